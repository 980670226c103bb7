// Package gate answers whether a participant may act on a phase on a given
// calendar day. Every method is a pure function of its inputs; nothing here
// reads or writes storage.
package gate

import (
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/modules/study/phases"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
)

// Decision is the detailed form of CanProceed. Reason is empty when Allowed.
type Decision struct {
	Allowed   bool
	Reason    study.WindowReason
	Offset    int
	HasOffset bool
}

func (d Decision) Err(phase study.Phase, trainingDay int) error {
	if d.Allowed {
		return nil
	}
	return &study.OutOfWindowError{
		Phase:       phase,
		TrainingDay: trainingDay,
		Offset:      d.Offset,
		HasOffset:   d.HasOffset,
		Reason:      d.Reason,
	}
}

type Gate struct {
	cfg *phases.Config
	cal *clock.Calendar
}

func New(cfg *phases.Config, cal *clock.Calendar) *Gate {
	return &Gate{cfg: cfg, cal: cal}
}

func (g *Gate) Calendar() *clock.Calendar { return g.cal }

// CanProceed reports whether state may act on phase today.
func (g *Gate) CanProceed(state *study.Progress, phase study.Phase) bool {
	return g.Decide(state, phase, g.cal.Today()).Allowed
}

// Decide evaluates the access rules for phase on the given day.
func (g *Gate) Decide(state *study.Progress, phase study.Phase, today clock.Date) Decision {
	if state == nil || !state.AccountActive {
		return Decision{Reason: study.ReasonAccountInactive}
	}
	if phase == study.PhasePretest {
		return Decision{Allowed: true}
	}
	if state.IsDone() {
		return Decision{Reason: study.ReasonStudyComplete}
	}
	if !state.HasBaseline() {
		return Decision{Reason: study.ReasonNoBaseline}
	}

	d := Decision{Offset: g.cal.DaysBetween(state.BaselineDate, today), HasOffset: true}
	if !g.cfg.Has(phase) || state.CurrentPhase != phase {
		d.Reason = study.ReasonNotCurrentPhase
		return d
	}

	offsets := g.cfg.ExpectedOffsets(phase)
	if phase == study.PhaseTraining {
		want, ok := offsets.ForDay(state.TrainingDay)
		switch {
		case !ok:
			d.Reason = study.ReasonWrongTrainingDay
		case d.Offset == want:
			d.Allowed = true
		case d.Offset < want:
			d.Reason = study.ReasonTooEarly
		default:
			d.Reason = study.ReasonWrongTrainingDay
		}
		return d
	}
	if phase.IsPosttest() {
		if d.Offset >= offsets.Min {
			d.Allowed = true
		} else {
			d.Reason = study.ReasonTooEarly
		}
		return d
	}
	d.Reason = study.ReasonNotCurrentPhase
	return d
}

// CheckSubmission admits one activity submission. It applies Decide and adds
// the training catch-up rule: a participant whose calendar offset has moved
// past the window of their pending day may still submit that day, one day
// per accepted submission. Days ahead of the counter are always rejected.
func (g *Gate) CheckSubmission(state *study.Progress, key study.ActivityKey, today clock.Date) error {
	d := g.Decide(state, key.Phase, today)
	if key.Phase != study.PhaseTraining {
		return d.Err(key.Phase, 0)
	}
	if d.Allowed {
		if key.Day > state.TrainingDay {
			d.Allowed, d.Reason = false, study.ReasonWrongTrainingDay
		}
		return d.Err(key.Phase, key.Day)
	}
	if d.Reason != study.ReasonWrongTrainingDay || !d.HasOffset || key.Day > state.TrainingDay {
		return d.Err(key.Phase, key.Day)
	}
	if g.lateForPendingDay(state, d.Offset) {
		return nil
	}
	return d.Err(key.Phase, key.Day)
}

func (g *Gate) lateForPendingDay(state *study.Progress, offset int) bool {
	want, ok := g.cfg.ExpectedOffsets(study.PhaseTraining).ForDay(state.TrainingDay)
	return ok && offset > want
}

// Eligibility is the read model the client uses to decide what to show.
type Eligibility struct {
	Today        clock.Date           `json:"today"`
	CurrentPhase study.Phase          `json:"current_phase"`
	TrainingDay  int                  `json:"training_day"`
	BaselineDate clock.Date           `json:"baseline_date"`
	Offset       *int                 `json:"offset"`
	Phases       map[study.Phase]bool `json:"phases"`
	// CatchUp is set when training is not open today but the pending day can
	// still be submitted late.
	CatchUp bool `json:"catch_up"`
}

func (g *Gate) Eligibility(state *study.Progress, today clock.Date) Eligibility {
	out := Eligibility{
		Today:  today,
		Phases: make(map[study.Phase]bool, len(g.cfg.Phases())),
	}
	if state != nil {
		out.CurrentPhase = state.CurrentPhase
		out.TrainingDay = state.TrainingDay
		out.BaselineDate = state.BaselineDate
	}
	for _, p := range g.cfg.Phases() {
		out.Phases[p] = g.Decide(state, p, today).Allowed
	}
	if state != nil && state.HasBaseline() {
		off := g.cal.DaysBetween(state.BaselineDate, today)
		out.Offset = &off
		if state.AccountActive && state.CurrentPhase == study.PhaseTraining && !out.Phases[study.PhaseTraining] {
			out.CatchUp = g.lateForPendingDay(state, off)
		}
	}
	return out
}
