// Package engine is the progression state machine. It is the only code that
// produces a new study.Progress; callers persist what it returns through a
// Store that commits progress and the response row atomically.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/modules/study/gate"
	"github.com/yungbote/studyflow-backend/internal/modules/study/phases"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

const defaultMaxAttempts = 5

// Store loads and conditionally commits one participant's progress. Commit
// must write next and resp in one transaction, and only if the stored
// version still equals expectedVersion; otherwise it returns
// domain.ErrVersionConflict and writes nothing.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) (*study.Progress, error)
	Commit(ctx context.Context, next *study.Progress, expectedVersion int64, resp *study.Response) error
}

// Event is one activity completion as submitted by a participant.
type Event struct {
	UserID      uuid.UUID
	Phase       string
	Activity    string
	TrainingDay int
	Payload     json.RawMessage
}

// Transition describes what Apply changed.
type Transition struct {
	Key         study.ActivityKey
	From        study.Phase
	To          study.Phase
	Recorded    bool
	BaselineSet bool
	DayAdvanced bool
}

func (t Transition) PhaseChanged() bool { return t.From != t.To }

type Result struct {
	State      *study.Progress
	Transition Transition
}

type Engine struct {
	log         *logger.Logger
	cfg         *phases.Config
	gate        *gate.Gate
	store       Store
	maxAttempts int
}

func New(log *logger.Logger, cfg *phases.Config, g *gate.Gate, store Store) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		log:         log.With("service", "ProgressionEngine"),
		cfg:         cfg,
		gate:        g,
		store:       store,
		maxAttempts: defaultMaxAttempts,
	}
}

// Apply computes the state that follows recording key on today. It never
// mutates state. Recording an already completed key returns an unchanged
// copy with Recorded=false.
func (e *Engine) Apply(state *study.Progress, key study.ActivityKey, today clock.Date) (*study.Progress, Transition, error) {
	if state == nil {
		return nil, Transition{}, fmt.Errorf("apply: %w", domain.ErrNotFound)
	}
	tr := Transition{Key: key, From: state.CurrentPhase, To: state.CurrentPhase}
	if !state.AccountActive {
		return nil, tr, &study.OutOfWindowError{Phase: key.Phase, TrainingDay: key.Day, Reason: study.ReasonAccountInactive}
	}
	if state.Completed.Has(key) {
		return state.Clone(), tr, nil
	}
	if err := e.gate.CheckSubmission(state, key, today); err != nil {
		return nil, tr, err
	}

	next := state.Clone()
	if next.Completed == nil {
		next.Completed = study.CompletionSet{}
	}
	next.Completed.Mark(key)
	tr.Recorded = true

	switch {
	case key.Phase == study.PhasePretest:
		if next.CurrentPhase == study.PhasePretest && e.cfg.UnitComplete(next.Completed, study.PhasePretest, 0) {
			if next.BaselineDate.IsZero() {
				next.BaselineDate = today
				tr.BaselineSet = true
			}
			next.CurrentPhase = study.PhaseTraining
			next.TrainingDay = 1
		}
	case key.Phase == study.PhaseTraining:
		if e.cfg.UnitComplete(next.Completed, study.PhaseTraining, key.Day) {
			if key.Day >= study.TrainingDays {
				e.advance(next)
			} else {
				next.TrainingDay = min(next.TrainingDay+1, study.TrainingDays)
				tr.DayAdvanced = true
			}
		}
	case key.Phase.IsPosttest():
		if next.CurrentPhase == key.Phase && e.cfg.UnitComplete(next.Completed, key.Phase, 0) {
			e.advance(next)
		}
	}
	tr.To = next.CurrentPhase
	return next, tr, nil
}

func (e *Engine) advance(p *study.Progress) {
	if np, ok := e.cfg.NextPhase(p.CurrentPhase); ok {
		p.CurrentPhase = np
		return
	}
	p.CurrentPhase = study.PhaseDone
	p.CompletedFlag = true
}

// Record resolves ev, applies it to the stored state and commits the result.
// Concurrent submissions for the same participant are serialized by the
// store's version check; a lost race reloads and re-applies.
func (e *Engine) Record(ctx context.Context, ev Event) (*Result, error) {
	key, err := e.cfg.ResolveKey(ev.Phase, ev.Activity, ev.TrainingDay)
	if err != nil {
		return nil, err
	}
	payload := datatypes.JSON("{}")
	if len(ev.Payload) > 0 {
		if !json.Valid(ev.Payload) {
			return nil, fmt.Errorf("payload is not valid json: %w", domain.ErrInvalidArgument)
		}
		payload = datatypes.JSON(ev.Payload)
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, err := e.store.Load(ctx, ev.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			e.log.Error("Failed to load progress", "user_id", ev.UserID, "error", err)
			return nil, &study.PersistenceError{Op: "load", Err: err}
		}

		today := e.gate.Calendar().Today()
		next, tr, err := e.Apply(state, key, today)
		if err != nil {
			return nil, err
		}
		if !tr.Recorded {
			return &Result{State: next, Transition: tr}, nil
		}

		resp := &study.Response{
			UserID:      ev.UserID,
			Phase:       key.Phase,
			Activity:    key.Activity,
			TrainingDay: key.Day,
			Payload:     payload,
			SubmittedOn: today,
		}
		err = e.store.Commit(ctx, next, state.Version, resp)
		if err == nil {
			if tr.PhaseChanged() {
				e.log.Info("Phase advanced", "user_id", ev.UserID, "from", tr.From, "to", tr.To, "baseline_date", next.BaselineDate.String())
			}
			return &Result{State: next, Transition: tr}, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			e.log.Error("Failed to commit progress", "user_id", ev.UserID, "activity", key.String(), "error", err)
			return nil, &study.PersistenceError{Op: "commit", Err: err}
		}
		lastErr = err
		e.log.Debug("Progress version conflict, retrying", "user_id", ev.UserID, "attempt", attempt)
	}
	e.log.Error("Gave up committing progress", "user_id", ev.UserID, "attempts", e.maxAttempts)
	return nil, &study.PersistenceError{Op: "commit", Err: lastErr}
}
