package admin

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/data/repos"
	"github.com/yungbote/studyflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/modules/study/reminders"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
)

type fakeSweep struct {
	calls  int
	report *reminders.Report
}

func (f *fakeSweep) RunOnce(context.Context) (*reminders.Report, error) {
	f.calls++
	return f.report, nil
}

type fixture struct {
	db    *gorm.DB
	uc    Usecases
	sweep *fakeSweep
	tag   string
	r     struct {
		users      repos.UserRepo
		tokens     repos.UserTokenRepo
		progress   repos.ProgressRepo
		responses  repos.ResponseRepo
		deliveries repos.ReminderDeliveryRepo
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	loc, err := time.LoadLocation(clock.DefaultTimezone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	cal := clock.NewCalendar(loc, &clock.Fixed{T: time.Date(2025, 1, 3, 10, 0, 0, 0, loc)})

	f := &fixture{db: db, tag: strings.ReplaceAll(uuid.NewString()[:8], "-", "")}
	f.r.users = repos.NewUserRepo(db, log)
	f.r.tokens = repos.NewUserTokenRepo(db, log)
	f.r.progress = repos.NewProgressRepo(db, log)
	f.r.responses = repos.NewResponseRepo(db, log)
	f.r.deliveries = repos.NewReminderDeliveryRepo(db, log)
	f.sweep = &fakeSweep{report: &reminders.Report{Date: clock.MustDate("2025-01-03"), Sent: 2}}
	f.uc = New(UsecasesDeps{
		DB:         db,
		Log:        log,
		Cal:        cal,
		Users:      f.r.users,
		Tokens:     f.r.tokens,
		Progress:   f.r.progress,
		Responses:  f.r.responses,
		Deliveries: f.r.deliveries,
		Sweep:      f.sweep,
	})
	return f
}

// participant seeds a user in training with a baseline of 2025-01-01.
func (f *fixture) participant(t *testing.T, name string) *types.User {
	t.Helper()
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, f.db, name+"-"+f.tag+"@example.com")
	testutil.SeedProgress(t, ctx, f.db, u.ID, func(p *study.Progress) {
		p.CurrentPhase = study.PhaseTraining
		p.TrainingDay = 2
		p.BaselineDate = clock.MustDate("2025-01-01")
	})
	testutil.SeedResponse(t, ctx, f.db, u.ID, study.PhasePretest, study.ActivityDemographics, 0)
	testutil.SeedResponse(t, ctx, f.db, u.ID, study.PhaseTraining, study.ActivityTranscription, 1)
	return u
}

func TestListAndGetUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.participant(t, "alice")
	f.participant(t, "bob")

	page, err := f.uc.ListUsers(ctx, ListUsersInput{Query: f.tag})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if page.Total != 2 || len(page.Users) != 2 {
		t.Fatalf("page: total=%d users=%d", page.Total, len(page.Users))
	}
	for _, s := range page.Users {
		if s.Progress == nil || s.Progress.CurrentPhase != study.PhaseTraining || s.Progress.Offset == nil || *s.Progress.Offset != 2 {
			t.Fatalf("summary: %+v", s.Progress)
		}
	}

	d, err := f.uc.GetUser(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if d.Email != a.Email || len(d.Responses) != 2 {
		t.Fatalf("detail: email=%s responses=%d", d.Email, len(d.Responses))
	}
	if _, err := f.uc.GetUser(ctx, uuid.New()); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("unknown user: got=%v", err)
	}
}

func TestSetActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.participant(t, "alice")

	s, err := f.uc.SetActive(ctx, a.ID, false)
	if err != nil {
		t.Fatalf("SetActive(false): %v", err)
	}
	if s.Progress.AccountActive || s.Progress.TrainingDay != 2 || s.Progress.CurrentPhase != study.PhaseTraining {
		t.Fatalf("deactivate changed more than the flag: %+v", s.Progress)
	}
	s, err = f.uc.SetActive(ctx, a.ID, true)
	if err != nil || !s.Progress.AccountActive {
		t.Fatalf("SetActive(true): s=%+v err=%v", s, err)
	}
	if _, err := f.uc.SetActive(ctx, uuid.New(), true); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("unknown user: got=%v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	a := f.participant(t, "alice")
	b := f.participant(t, "bob")

	if _, err := f.r.tokens.Create(dbc, []*types.UserToken{{
		UserID: a.ID, AccessToken: "at-" + f.tag, RefreshToken: "rt-" + f.tag, ExpiresAt: time.Now().Add(time.Hour),
	}}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if _, err := f.r.deliveries.Create(dbc, []*study.ReminderDelivery{{
		UserID: a.ID, SweepDate: clock.MustDate("2025-01-03"), Kind: study.ReminderTraining, TrainingDay: 3, Status: study.DeliverySent,
	}}); err != nil {
		t.Fatalf("seed delivery: %v", err)
	}

	if err := f.uc.DeleteUser(ctx, a.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	if users, _ := f.r.users.GetByIDs(dbc, []uuid.UUID{a.ID}); len(users) != 0 {
		t.Fatalf("user row survived")
	}
	if _, err := f.r.progress.GetByUserID(dbc, a.ID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("progress row survived: %v", err)
	}
	if rs, _ := f.r.responses.List(dbc, repos.ResponseFilter{UserIDs: []uuid.UUID{a.ID}}); len(rs) != 0 {
		t.Fatalf("responses survived: %d", len(rs))
	}
	if toks, _ := f.r.tokens.GetByUserIDs(dbc, []uuid.UUID{a.ID}); len(toks) != 0 {
		t.Fatalf("tokens survived: %d", len(toks))
	}
	if sent, _ := f.r.deliveries.SentOn(dbc, a.ID, clock.MustDate("2025-01-03")); sent {
		t.Fatalf("reminder log survived")
	}
	if rs, _ := f.r.responses.List(dbc, repos.ResponseFilter{UserIDs: []uuid.UUID{b.ID}}); len(rs) != 2 {
		t.Fatalf("other participant's responses touched: %d", len(rs))
	}

	if err := f.uc.DeleteUser(ctx, a.ID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("second delete: got=%v", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.uc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	a := f.participant(t, "alice")
	f.participant(t, "bob")
	if _, err := f.uc.SetActive(ctx, a.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	after, err := f.uc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if got := after.Participants - before.Participants; got != 2 {
		t.Fatalf("participants delta: got=%d want=2", got)
	}
	if got := after.Active - before.Active; got != 1 {
		t.Fatalf("active delta: got=%d want=1", got)
	}
	if got := after.ByPhase[study.PhaseTraining] - before.ByPhase[study.PhaseTraining]; got != 2 {
		t.Fatalf("training delta: got=%d want=2", got)
	}
	if got := after.ResponsesByPhase[study.PhasePretest] - before.ResponsesByPhase[study.PhasePretest]; got != 2 {
		t.Fatalf("pretest responses delta: got=%d want=2", got)
	}
	if _, ok := after.ByPhase[study.PhaseDone]; !ok {
		t.Fatalf("by_phase should list every phase, got %v", after.ByPhase)
	}
}

func TestExportCSVZip(t *testing.T) {
	f := newFixture(t)
	a := f.participant(t, "alice")

	var buf bytes.Buffer
	file, err := f.uc.Export(context.Background(), ExportCSV, &buf)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if file.ContentType != "application/zip" || file.Filename != "study-export-2025-01-03.zip" {
		t.Fatalf("file: %+v", file)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	entries := map[string][][]string{}
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			t.Fatalf("open %s: %v", zf.Name, err)
		}
		rows, err := csv.NewReader(rc).ReadAll()
		_ = rc.Close()
		if err != nil {
			t.Fatalf("csv %s: %v", zf.Name, err)
		}
		entries[zf.Name] = rows
	}
	for _, name := range []string{"participants.csv", "pretest.csv", "training.csv", "posttest1.csv", "posttest2.csv", "posttest3.csv"} {
		if _, ok := entries[name]; !ok {
			t.Fatalf("missing %s in %v", name, zr.File)
		}
	}
	if !containsRow(entries["training.csv"], a.ID.String(), "transcription", "1") {
		t.Fatalf("training.csv missing participant row: %v", entries["training.csv"])
	}
	if !containsRow(entries["participants.csv"], a.Email, "training", "2025-01-01") {
		t.Fatalf("participants.csv missing row: %v", entries["participants.csv"])
	}
}

func TestExportXLSX(t *testing.T) {
	f := newFixture(t)
	a := f.participant(t, "alice")

	var buf bytes.Buffer
	if _, err := f.uc.Export(context.Background(), ExportXLSX, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	wb, err := excelize.OpenReader(io.Reader(&buf))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer wb.Close()

	if sheets := wb.GetSheetList(); len(sheets) != 6 || sheets[0] != "participants" {
		t.Fatalf("sheets: %v", sheets)
	}
	rows, err := wb.GetRows("pretest")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) < 2 || rows[0][0] != "response_id" || !containsRow(rows, a.ID.String(), "demographics") {
		t.Fatalf("pretest sheet: %v", rows)
	}
}

func TestParseExportFormat(t *testing.T) {
	for in, want := range map[string]ExportFormat{"": ExportCSV, "CSV": ExportCSV, "xlsx": ExportXLSX} {
		if got, err := ParseExportFormat(in); err != nil || got != want {
			t.Fatalf("ParseExportFormat(%q): got=%q err=%v", in, got, err)
		}
	}
	if _, err := ParseExportFormat("pdf"); !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("pdf: got=%v", err)
	}
}

func TestTriggerSweep(t *testing.T) {
	f := newFixture(t)
	report, err := f.uc.TriggerSweep(context.Background())
	if err != nil || report.Sent != 2 || f.sweep.calls != 1 {
		t.Fatalf("TriggerSweep: report=%+v err=%v calls=%d", report, err, f.sweep.calls)
	}

	f.uc.deps.Sweep = nil
	if _, err := f.uc.TriggerSweep(context.Background()); !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("unconfigured sweep: got=%v", err)
	}
}

func containsRow(rows [][]string, values ...string) bool {
	for _, row := range rows {
		joined := "\x00" + strings.Join(row, "\x00") + "\x00"
		ok := true
		for _, v := range values {
			if !strings.Contains(joined, "\x00"+v+"\x00") {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
