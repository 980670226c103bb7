package study

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/studyflow-backend/internal/data/repos/testutil"
	"github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
)

func TestProgressRepoRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProgressRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "progress@example.com")
	if _, err := repo.Create(dbc, []*study.Progress{study.NewProgress(u.ID)}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByUserID(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got.CurrentPhase != study.PhasePretest || got.TrainingDay != 1 || got.HasBaseline() || !got.AccountActive || got.Version != 0 {
		t.Fatalf("GetByUserID: unexpected initial state %+v", got)
	}

	next := got.Clone()
	next.CurrentPhase = study.PhaseTraining
	next.BaselineDate = clock.MustDate("2025-01-01")
	next.Completed.Mark(study.ActivityKey{Phase: study.PhasePretest, Activity: study.ActivityEffort})
	if err := repo.CompareAndSwap(dbc, next, 0); err != nil {
		t.Fatalf("CompareAndSwap: %v", err)
	}
	if next.Version != 1 {
		t.Fatalf("CompareAndSwap: version got=%d want=1", next.Version)
	}

	stale := got.Clone()
	stale.CurrentPhase = study.PhasePosttest3
	if err := repo.CompareAndSwap(dbc, stale, 0); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("stale CompareAndSwap: got=%v want ErrVersionConflict", err)
	}

	reloaded, err := repo.GetByUserID(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if reloaded.CurrentPhase != study.PhaseTraining || reloaded.BaselineDate != clock.MustDate("2025-01-01") {
		t.Fatalf("reloaded: phase=%s baseline=%s", reloaded.CurrentPhase, reloaded.BaselineDate)
	}
	if !reloaded.Completed.Has(study.ActivityKey{Phase: study.PhasePretest, Activity: study.ActivityEffort}) {
		t.Fatalf("reloaded: completion set lost: %v", reloaded.Completed.Keys())
	}

	toggled, err := repo.SetAccountActive(dbc, u.ID, false)
	if err != nil {
		t.Fatalf("SetAccountActive: %v", err)
	}
	if toggled.AccountActive || toggled.Version != 2 {
		t.Fatalf("SetAccountActive: active=%v version=%d", toggled.AccountActive, toggled.Version)
	}

	if _, err := repo.GetByUserID(dbc, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByUserID missing: got=%v", err)
	}
	if _, err := repo.SetAccountActive(dbc, uuid.New(), true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SetAccountActive missing: got=%v", err)
	}
}

func TestProgressRepoQueries(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProgressRepo(db, testutil.Logger(t))

	fresh := testutil.SeedUser(t, ctx, tx, "fresh@example.com")
	testutil.SeedProgress(t, ctx, tx, fresh.ID, nil)

	training := testutil.SeedUser(t, ctx, tx, "training@example.com")
	testutil.SeedProgress(t, ctx, tx, training.ID, func(p *study.Progress) {
		p.CurrentPhase = study.PhaseTraining
		p.BaselineDate = clock.MustDate("2025-01-01")
	})

	inactive := testutil.SeedUser(t, ctx, tx, "inactive@example.com")
	testutil.SeedProgress(t, ctx, tx, inactive.ID, func(p *study.Progress) {
		p.CurrentPhase = study.PhaseTraining
		p.BaselineDate = clock.MustDate("2025-01-01")
		p.AccountActive = false
	})

	done := testutil.SeedUser(t, ctx, tx, "done@example.com")
	testutil.SeedProgress(t, ctx, tx, done.ID, func(p *study.Progress) {
		p.CurrentPhase = study.PhaseDone
		p.CompletedFlag = true
		p.BaselineDate = clock.MustDate("2024-06-01")
	})

	candidates, err := repo.ListReminderCandidates(dbc)
	if err != nil {
		t.Fatalf("ListReminderCandidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].UserID != training.ID {
		t.Fatalf("ListReminderCandidates: got=%d rows", len(candidates))
	}

	counts, err := repo.CountByPhase(dbc)
	if err != nil {
		t.Fatalf("CountByPhase: %v", err)
	}
	if counts[study.PhasePretest] != 1 || counts[study.PhaseTraining] != 2 || counts[study.PhaseDone] != 1 {
		t.Fatalf("CountByPhase: got=%v", counts)
	}

	active, err := repo.CountActive(dbc)
	if err != nil || active != 3 {
		t.Fatalf("CountActive: n=%d err=%v", active, err)
	}

	all, err := repo.GetByUserIDs(dbc, []uuid.UUID{fresh.ID, done.ID})
	if err != nil || len(all) != 2 {
		t.Fatalf("GetByUserIDs: n=%d err=%v", len(all), err)
	}

	if err := repo.FullDeleteByUserIDs(dbc, []uuid.UUID{fresh.ID}); err != nil {
		t.Fatalf("FullDeleteByUserIDs: %v", err)
	}
	if _, err := repo.GetByUserID(dbc, fresh.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted progress still readable: %v", err)
	}
}
