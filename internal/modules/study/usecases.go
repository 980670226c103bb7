package study

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/data/repos"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/modules/study/engine"
	"github.com/yungbote/studyflow-backend/internal/modules/study/gate"
	"github.com/yungbote/studyflow-backend/internal/modules/study/phases"
	"github.com/yungbote/studyflow-backend/internal/observability"
	"github.com/yungbote/studyflow-backend/internal/platform/apierr"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Phases *phases.Config
	Gate   *gate.Gate

	Progress  repos.ProgressRepo
	Responses repos.ResponseRepo
}

type Usecases struct {
	deps   UsecasesDeps
	engine *engine.Engine
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	store := NewStore(deps.DB, deps.Progress, deps.Responses)
	return Usecases{
		deps:   deps,
		engine: engine.New(deps.Log, deps.Phases, deps.Gate, store),
	}
}

func (u Usecases) Engine() *engine.Engine { return u.engine }

type SubmitActivityInput struct {
	UserID      uuid.UUID
	Phase       string
	Activity    string
	TrainingDay int
	Payload     json.RawMessage
}

// ProgressView is the participant-facing projection of study.Progress.
type ProgressView struct {
	CurrentPhase        study.Phase  `json:"current_phase"`
	TrainingDay         int          `json:"training_day"`
	BaselineDate        clock.Date   `json:"baseline_date"`
	CompletedActivities []string     `json:"completed_activities"`
	AccountActive       bool         `json:"account_active"`
	Completed           bool         `json:"completed"`
	Offset              *int         `json:"offset,omitempty"`
	Recorded            *bool        `json:"recorded,omitempty"`
	PhaseChangedFrom    *study.Phase `json:"phase_changed_from,omitempty"`
}

func (u Usecases) view(p *study.Progress) *ProgressView {
	v := &ProgressView{
		CurrentPhase:        p.CurrentPhase,
		TrainingDay:         p.TrainingDay,
		BaselineDate:        p.BaselineDate,
		CompletedActivities: p.Completed.Keys(),
		AccountActive:       p.AccountActive,
		Completed:           p.CompletedFlag,
	}
	if p.HasBaseline() {
		off := u.deps.Gate.Calendar().OffsetFrom(p.BaselineDate)
		v.Offset = &off
	}
	return v
}

// SubmitActivity records one completion and returns the resulting state.
func (u Usecases) SubmitActivity(ctx context.Context, in SubmitActivityInput) (*ProgressView, error) {
	if in.UserID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing user"))
	}
	ctx, span := observability.Tracer().Start(ctx, "study.SubmitActivity")
	defer span.End()
	span.SetAttributes(
		attribute.String("study.phase", in.Phase),
		attribute.String("study.activity", in.Activity),
		attribute.Int("study.training_day", in.TrainingDay),
	)

	metrics := observability.Current()
	res, err := u.engine.Record(ctx, engine.Event{
		UserID:      in.UserID,
		Phase:       in.Phase,
		Activity:    in.Activity,
		TrainingDay: in.TrainingDay,
		Payload:     in.Payload,
	})
	if err != nil {
		mapped := apierr.From(MapError(err))
		metrics.ObserveSubmission(in.Phase, mapped.Code)
		span.RecordError(err)
		span.SetStatus(codes.Error, mapped.Code)
		return nil, mapped
	}

	v := u.view(res.State)
	recorded := res.Transition.Recorded
	v.Recorded = &recorded
	if recorded {
		metrics.ObserveSubmission(in.Phase, "recorded")
	} else {
		metrics.ObserveSubmission(in.Phase, "duplicate")
	}
	if res.Transition.PhaseChanged() {
		from := res.Transition.From
		v.PhaseChangedFrom = &from
		metrics.ObserveTransition(string(from), string(res.State.CurrentPhase))
		span.AddEvent("phase_changed", trace.WithAttributes(
			attribute.String("from", string(from)),
			attribute.String("to", string(res.State.CurrentPhase)),
		))
	}
	return v, nil
}

func (u Usecases) GetProgress(ctx context.Context, userID uuid.UUID) (*ProgressView, error) {
	p, err := u.deps.Progress.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, MapError(err)
	}
	return u.view(p), nil
}

// Eligibility reports which phases the participant may act on today.
func (u Usecases) Eligibility(ctx context.Context, userID uuid.UUID) (*gate.Eligibility, error) {
	p, err := u.deps.Progress.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, MapError(err)
	}
	el := u.deps.Gate.Eligibility(p, u.deps.Gate.Calendar().Today())
	return &el, nil
}

// Protocol describes the configured phases for clients.
type Protocol struct {
	Phases []ProtocolPhase `json:"phases"`
}

type ProtocolPhase struct {
	Phase      study.Phase          `json:"phase"`
	Activities []study.ActivityType `json:"activities"`
	MinOffset  int                  `json:"min_offset"`
	DayOffsets []int                `json:"day_offsets,omitempty"`
}

func (u Usecases) Protocol() Protocol {
	var out Protocol
	for _, p := range u.deps.Phases.Phases() {
		off := u.deps.Phases.ExpectedOffsets(p)
		out.Phases = append(out.Phases, ProtocolPhase{
			Phase:      p,
			Activities: u.deps.Phases.RequiredActivities(p),
			MinOffset:  off.Min,
			DayOffsets: off.PerDay,
		})
	}
	return out
}
