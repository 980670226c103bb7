package study

import (
	"fmt"

	"github.com/google/uuid"
)

type WindowReason string

const (
	ReasonAccountInactive  WindowReason = "account_inactive"
	ReasonNoBaseline       WindowReason = "baseline_not_set"
	ReasonNotCurrentPhase  WindowReason = "not_current_phase"
	ReasonWrongTrainingDay WindowReason = "wrong_training_day"
	ReasonTooEarly         WindowReason = "too_early"
	ReasonStudyComplete    WindowReason = "study_complete"
)

// OutOfWindowError rejects a submission made outside its eligible day. It
// never mutates state; the participant retries on the right day.
type OutOfWindowError struct {
	Phase       Phase
	TrainingDay int
	Offset      int
	HasOffset   bool
	Reason      WindowReason
}

func (e *OutOfWindowError) Error() string {
	if e == nil {
		return "out of window"
	}
	msg := fmt.Sprintf("%s is not available today (%s)", e.Phase, e.Reason)
	if e.Phase == PhaseTraining && e.TrainingDay > 0 {
		msg = fmt.Sprintf("training day %d is not available today (%s)", e.TrainingDay, e.Reason)
	}
	if e.HasOffset {
		msg += fmt.Sprintf(", day offset %d", e.Offset)
	}
	return msg
}

// UnknownActivityError is a client input error: the phase, activity or
// training day is not part of the configured protocol.
type UnknownActivityError struct {
	Phase       string
	Activity    string
	TrainingDay int
	Detail      string
}

func (e *UnknownActivityError) Error() string {
	if e == nil {
		return "unknown activity"
	}
	msg := fmt.Sprintf("unknown activity %q for phase %q", e.Activity, e.Phase)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// PersistenceError means the progress store could not complete a write. No
// partial state was committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return "persistence error"
	}
	return fmt.Sprintf("persist progress (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NotificationDeliveryError is reported per participant by the reminder sweep.
type NotificationDeliveryError struct {
	UserID uuid.UUID
	Kind   ReminderKind
	Err    error
}

func (e *NotificationDeliveryError) Error() string {
	if e == nil {
		return "notification delivery error"
	}
	return fmt.Sprintf("deliver %s reminder: %v", e.Kind, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
