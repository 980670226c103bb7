package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/modules/study/gate"
	"github.com/yungbote/studyflow-backend/internal/modules/study/phases"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
)

type memStore struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*study.Progress
	responses []*study.Response
	commitErr error
	conflicts int
}

func newMemStore(states ...*study.Progress) *memStore {
	s := &memStore{rows: map[uuid.UUID]*study.Progress{}}
	for _, st := range states {
		s.rows[st.UserID] = st.Clone()
	}
	return s
}

func (s *memStore) Load(_ context.Context, id uuid.UUID) (*study.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return st.Clone(), nil
}

func (s *memStore) Commit(_ context.Context, next *study.Progress, expected int64, resp *study.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	cur, ok := s.rows[next.UserID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != expected {
		s.conflicts++
		return domain.ErrVersionConflict
	}
	next.Version = expected + 1
	s.rows[next.UserID] = next.Clone()
	if resp != nil {
		s.responses = append(s.responses, resp)
	}
	return nil
}

func (s *memStore) get(id uuid.UUID) *study.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id].Clone()
}

type harness struct {
	eng   *Engine
	store *memStore
	clock *clock.Fixed
}

func newHarness(t *testing.T, today string, states ...*study.Progress) *harness {
	t.Helper()
	loc, err := time.LoadLocation(clock.DefaultTimezone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	d := clock.MustDate(today)
	fixed := &clock.Fixed{T: time.Date(d.Year, d.Month, d.Day, 9, 0, 0, 0, loc)}
	cfg := phases.Default()
	store := newMemStore(states...)
	g := gate.New(cfg, clock.NewCalendar(loc, fixed))
	return &harness{eng: New(nil, cfg, g, store), store: store, clock: fixed}
}

func (h *harness) submit(t *testing.T, id uuid.UUID, phase study.Phase, activity study.ActivityType, day int) (*Result, error) {
	t.Helper()
	return h.eng.Record(context.Background(), Event{
		UserID:      id,
		Phase:       string(phase),
		Activity:    string(activity),
		TrainingDay: day,
		Payload:     []byte(`{"answer":"ok"}`),
	})
}

func completePretest(t *testing.T, h *harness, id uuid.UUID) *study.Progress {
	t.Helper()
	var last *Result
	for _, a := range phases.Default().RequiredActivities(study.PhasePretest) {
		res, err := h.submit(t, id, study.PhasePretest, a, 0)
		if err != nil {
			t.Fatalf("pretest %s: %v", a, err)
		}
		last = res
	}
	return last.State
}

func TestPretestCompletionSetsBaseline(t *testing.T) {
	st := study.NewProgress(uuid.New())
	h := newHarness(t, "2025-01-01", st)

	got := completePretest(t, h, st.UserID)
	if got.BaselineDate != clock.MustDate("2025-01-01") {
		t.Fatalf("baseline: got=%s want=2025-01-01", got.BaselineDate)
	}
	if got.CurrentPhase != study.PhaseTraining || got.TrainingDay != 1 {
		t.Fatalf("state: phase=%s day=%d", got.CurrentPhase, got.TrainingDay)
	}

	h.clock.AdvanceDays(1)
	if !h.eng.gate.CanProceed(got, study.PhaseTraining) {
		t.Fatalf("training should be open on 2025-01-02")
	}
	h.clock.AdvanceDays(1)
	if h.eng.gate.CanProceed(got, study.PhaseTraining) {
		t.Fatalf("training should be closed on 2025-01-03 with counter 1")
	}
	if n := len(h.store.responses); n != 4 {
		t.Fatalf("responses: got=%d want=4", n)
	}
}

func TestPretestPartialDoesNotAdvance(t *testing.T) {
	st := study.NewProgress(uuid.New())
	h := newHarness(t, "2025-01-01", st)

	res, err := h.submit(t, st.UserID, study.PhasePretest, study.ActivityDemographics, 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.State.CurrentPhase != study.PhasePretest || res.State.HasBaseline() {
		t.Fatalf("partial pretest advanced: %+v", res.State)
	}
}

func TestLateDayFourAdvancesToPosttest1(t *testing.T) {
	st := study.NewProgress(uuid.New())
	st.CurrentPhase = study.PhaseTraining
	st.TrainingDay = 4
	st.BaselineDate = clock.MustDate("2025-01-01")
	h := newHarness(t, "2025-01-13", st)

	res, err := h.submit(t, st.UserID, study.PhaseTraining, study.ActivityTranscription, 4)
	if err != nil {
		t.Fatalf("submit day 4: %v", err)
	}
	if res.State.CurrentPhase != study.PhasePosttest1 {
		t.Fatalf("phase: got=%s want=posttest1", res.State.CurrentPhase)
	}
	if !h.eng.gate.CanProceed(res.State, study.PhasePosttest1) {
		t.Fatalf("posttest1 should be open at offset 12")
	}
}

func TestOnTimeTrainingDayIsIdempotent(t *testing.T) {
	st := study.NewProgress(uuid.New())
	st.CurrentPhase = study.PhaseTraining
	st.TrainingDay = 2
	st.BaselineDate = clock.MustDate("2025-01-01")
	st.Completed.Mark(study.ActivityKey{Phase: study.PhaseTraining, Activity: study.ActivityTranscription, Day: 1})
	h := newHarness(t, "2025-01-03", st)

	first, err := h.submit(t, st.UserID, study.PhaseTraining, study.ActivityTranscription, 2)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.State.TrainingDay != 3 || !first.Transition.DayAdvanced {
		t.Fatalf("counter: got=%d want=3", first.State.TrainingDay)
	}

	second, err := h.submit(t, st.UserID, study.PhaseTraining, study.ActivityTranscription, 2)
	if err != nil {
		t.Fatalf("repeat submit: %v", err)
	}
	if second.Transition.Recorded {
		t.Fatalf("repeat submit should not record")
	}
	stored := h.store.get(st.UserID)
	if stored.TrainingDay != 3 || stored.CurrentPhase != study.PhaseTraining {
		t.Fatalf("repeat submit changed state: phase=%s day=%d", stored.CurrentPhase, stored.TrainingDay)
	}
	if n := len(h.store.responses); n != 1 {
		t.Fatalf("responses: got=%d want=1", n)
	}
}

func TestInactiveAccountRejected(t *testing.T) {
	st := study.NewProgress(uuid.New())
	st.AccountActive = false
	h := newHarness(t, "2025-01-01", st)

	_, err := h.submit(t, st.UserID, study.PhasePretest, study.ActivityDemographics, 0)
	var oow *study.OutOfWindowError
	if !errors.As(err, &oow) || oow.Reason != study.ReasonAccountInactive {
		t.Fatalf("expected inactive rejection, got %v", err)
	}
	if got := h.store.get(st.UserID); len(got.Completed) != 0 || got.Version != 0 {
		t.Fatalf("rejected submission mutated state")
	}
}

func TestOutOfWindowDoesNotMutate(t *testing.T) {
	st := study.NewProgress(uuid.New())
	st.CurrentPhase = study.PhaseTraining
	st.TrainingDay = 2
	st.BaselineDate = clock.MustDate("2025-01-01")
	h := newHarness(t, "2025-01-02", st)

	_, err := h.submit(t, st.UserID, study.PhaseTraining, study.ActivityTranscription, 2)
	var oow *study.OutOfWindowError
	if !errors.As(err, &oow) {
		t.Fatalf("expected OutOfWindowError, got %v", err)
	}
	if got := h.store.get(st.UserID); got.Version != 0 || len(got.Completed) != 0 {
		t.Fatalf("state mutated on rejection")
	}
}

func TestUnknownActivityRejected(t *testing.T) {
	st := study.NewProgress(uuid.New())
	h := newHarness(t, "2025-01-01", st)

	_, err := h.eng.Record(context.Background(), Event{UserID: st.UserID, Phase: "pretest", Activity: "juggling"})
	var unknown *study.UnknownActivityError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownActivityError, got %v", err)
	}
}

func TestInvalidPayloadRejected(t *testing.T) {
	st := study.NewProgress(uuid.New())
	h := newHarness(t, "2025-01-01", st)

	_, err := h.eng.Record(context.Background(), Event{
		UserID: st.UserID, Phase: "pretest", Activity: "effort", Payload: []byte("{nope"),
	})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPersistenceErrorSurfaces(t *testing.T) {
	st := study.NewProgress(uuid.New())
	h := newHarness(t, "2025-01-01", st)
	h.store.commitErr = errors.New("disk full")

	_, err := h.submit(t, st.UserID, study.PhasePretest, study.ActivityEffort, 0)
	var pe *study.PersistenceError
	if !errors.As(err, &pe) || pe.Op != "commit" {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if got := h.store.get(st.UserID); len(got.Completed) != 0 {
		t.Fatalf("failed commit left partial state")
	}
}

func TestFullProtocolWalkthrough(t *testing.T) {
	st := study.NewProgress(uuid.New())
	h := newHarness(t, "2025-01-01", st)
	completePretest(t, h, st.UserID)

	for day := 1; day <= study.TrainingDays; day++ {
		h.clock.AdvanceDays(1)
		if _, err := h.submit(t, st.UserID, study.PhaseTraining, study.ActivityTranscription, day); err != nil {
			t.Fatalf("training day %d: %v", day, err)
		}
	}
	if got := h.store.get(st.UserID); got.CurrentPhase != study.PhasePosttest1 {
		t.Fatalf("after training: got=%s", got.CurrentPhase)
	}

	cfg := phases.Default()
	posttestDates := map[study.Phase]string{
		study.PhasePosttest1: "2025-01-13",
		study.PhasePosttest2: "2025-02-05",
		study.PhasePosttest3: "2025-04-01",
	}
	for _, p := range []study.Phase{study.PhasePosttest1, study.PhasePosttest2, study.PhasePosttest3} {
		d := clock.MustDate(posttestDates[p])
		h.clock.Set(time.Date(d.Year, d.Month, d.Day, 9, 0, 0, 0, h.eng.gate.Calendar().Location()))
		for _, a := range cfg.RequiredActivities(p) {
			if _, err := h.submit(t, st.UserID, p, a, 0); err != nil {
				t.Fatalf("%s %s: %v", p, a, err)
			}
		}
	}
	got := h.store.get(st.UserID)
	if got.CurrentPhase != study.PhaseDone || !got.CompletedFlag {
		t.Fatalf("final state: phase=%s completed=%v", got.CurrentPhase, got.CompletedFlag)
	}
	if got.BaselineDate != clock.MustDate("2025-01-01") {
		t.Fatalf("baseline moved: %s", got.BaselineDate)
	}
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	cfg := phases.Default()
	var events []study.ActivityKey
	for _, p := range study.Phases {
		if p == study.PhaseTraining {
			for d := 1; d <= study.TrainingDays; d++ {
				events = append(events, cfg.RequiredKeys(p, d)...)
			}
			continue
		}
		events = append(events, cfg.RequiredKeys(p, 0)...)
	}

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		st := study.NewProgress(uuid.New())
		h := newHarness(t, "2025-01-01", st)
		var baseline clock.Date
		lastRank := cfg.Rank(study.PhasePretest)

		for step := 0; step < 120; step++ {
			if rng.Intn(3) == 0 {
				h.clock.AdvanceDays(rng.Intn(5))
			}
			key := events[rng.Intn(len(events))]
			_, _ = h.submit(t, st.UserID, key.Phase, key.Activity, key.Day)

			got := h.store.get(st.UserID)
			if !baseline.IsZero() && got.BaselineDate != baseline {
				t.Fatalf("run %d step %d: baseline changed %s -> %s", run, step, baseline, got.BaselineDate)
			}
			if baseline.IsZero() {
				baseline = got.BaselineDate
			}
			rank := cfg.Rank(got.CurrentPhase)
			if rank < lastRank {
				t.Fatalf("run %d step %d: phase regressed to %s", run, step, got.CurrentPhase)
			}
			lastRank = rank
			if got.TrainingDay < 1 || got.TrainingDay > study.TrainingDays {
				t.Fatalf("run %d step %d: training day out of range: %d", run, step, got.TrainingDay)
			}
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	st := study.NewProgress(uuid.New())
	h := newHarness(t, "2025-01-01", st)
	today := h.eng.gate.Calendar().Today()
	key := study.ActivityKey{Phase: study.PhasePretest, Activity: study.ActivityEffort}

	once, _, err := h.eng.Apply(st, key, today)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	twice, tr, err := h.eng.Apply(once, key, today)
	if err != nil {
		t.Fatalf("Apply twice: %v", err)
	}
	if tr.Recorded || twice.CurrentPhase != once.CurrentPhase || len(twice.Completed) != len(once.Completed) {
		t.Fatalf("second Apply changed state")
	}
	if len(st.Completed) != 0 {
		t.Fatalf("Apply mutated its input")
	}
}

func TestConcurrentSubmissionsSerialize(t *testing.T) {
	st := study.NewProgress(uuid.New())
	h := newHarness(t, "2025-01-01", st)
	h.eng.maxAttempts = 20

	activities := phases.Default().RequiredActivities(study.PhasePretest)
	var wg sync.WaitGroup
	errs := make(chan error, len(activities)*2)
	for i := 0; i < 2; i++ {
		for _, a := range activities {
			wg.Add(1)
			go func(a study.ActivityType) {
				defer wg.Done()
				if _, err := h.submit(t, st.UserID, study.PhasePretest, a, 0); err != nil {
					errs <- err
				}
			}(a)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent submit: %v", err)
	}

	got := h.store.get(st.UserID)
	if got.CurrentPhase != study.PhaseTraining || got.TrainingDay != 1 {
		t.Fatalf("final state: phase=%s day=%d", got.CurrentPhase, got.TrainingDay)
	}
	if len(got.Completed) != len(activities) {
		t.Fatalf("completed: got=%d want=%d", len(got.Completed), len(activities))
	}
	if n := len(h.store.responses); n != len(activities) {
		t.Fatalf("responses: got=%d want=%d", n, len(activities))
	}
}
