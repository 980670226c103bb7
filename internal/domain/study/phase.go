package study

import "strings"

type Phase string

const (
	PhasePretest   Phase = "pretest"
	PhaseTraining  Phase = "training"
	PhasePosttest1 Phase = "posttest1"
	PhasePosttest2 Phase = "posttest2"
	PhasePosttest3 Phase = "posttest3"

	// PhaseDone is the terminal state after the last posttest. It is a
	// progress state only and never carries activities.
	PhaseDone Phase = "done"
)

// Phases lists the protocol phases in order.
var Phases = []Phase{PhasePretest, PhaseTraining, PhasePosttest1, PhasePosttest2, PhasePosttest3}

// ParsePhase accepts only protocol phases, never PhaseDone.
func ParsePhase(s string) (Phase, bool) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Phases {
		if p == known {
			return p, true
		}
	}
	return "", false
}

func (p Phase) IsPosttest() bool {
	return p == PhasePosttest1 || p == PhasePosttest2 || p == PhasePosttest3
}

func (p Phase) String() string { return string(p) }

type ActivityType string

const (
	ActivityDemographics    ActivityType = "demographics"
	ActivityIntelligibility ActivityType = "intelligibility"
	ActivityComprehension   ActivityType = "comprehension"
	ActivityEffort          ActivityType = "effort"
	ActivityTranscription   ActivityType = "transcription"
	ActivityFeedback        ActivityType = "feedback"
)

// ActivityTypes is the closed set of activities any phase may require.
var ActivityTypes = []ActivityType{
	ActivityDemographics,
	ActivityIntelligibility,
	ActivityComprehension,
	ActivityEffort,
	ActivityTranscription,
	ActivityFeedback,
}

func ParseActivityType(s string) (ActivityType, bool) {
	a := ActivityType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ActivityTypes {
		if a == known {
			return a, true
		}
	}
	return "", false
}

func (a ActivityType) String() string { return string(a) }

// TrainingDays is the number of training sessions between pretest and posttest1.
const TrainingDays = 4
