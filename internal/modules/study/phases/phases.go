// Package phases is the single source of truth for the study protocol:
// phase ordering, the activities each phase requires and the day offsets
// from baseline at which each phase opens. A Config is built once at process
// start and never mutated afterwards.
package phases

import (
	"fmt"

	"github.com/yungbote/studyflow-backend/internal/domain/study"
)

const (
	DefaultPosttest1Offset = 12
	DefaultPosttest2Offset = 35
	DefaultPosttest3Offset = 90
)

// Offsets is either a per-day list (training) or a single minimum offset.
type Offsets struct {
	Min    int
	PerDay []int
}

func (o Offsets) IsPerDay() bool { return len(o.PerDay) > 0 }

// ForDay returns the expected offset of training day (1-based).
func (o Offsets) ForDay(day int) (int, bool) {
	if day < 1 || day > len(o.PerDay) {
		return 0, false
	}
	return o.PerDay[day-1], true
}

type Definition struct {
	Phase      study.Phase
	Activities []study.ActivityType
	Offsets    Offsets
}

type Config struct {
	order []study.Phase
	defs  map[study.Phase]Definition
}

// Default is the protocol as run in the lab.
func Default() *Config {
	cfg, err := New([]Definition{
		{
			Phase:      study.PhasePretest,
			Activities: []study.ActivityType{study.ActivityDemographics, study.ActivityIntelligibility, study.ActivityComprehension, study.ActivityEffort},
		},
		{
			Phase:      study.PhaseTraining,
			Activities: []study.ActivityType{study.ActivityTranscription},
			Offsets:    Offsets{PerDay: []int{1, 2, 3, 4}},
		},
		{
			Phase:      study.PhasePosttest1,
			Activities: []study.ActivityType{study.ActivityIntelligibility, study.ActivityComprehension, study.ActivityEffort},
			Offsets:    Offsets{Min: DefaultPosttest1Offset},
		},
		{
			Phase:      study.PhasePosttest2,
			Activities: []study.ActivityType{study.ActivityIntelligibility, study.ActivityComprehension, study.ActivityEffort},
			Offsets:    Offsets{Min: DefaultPosttest2Offset},
		},
		{
			Phase:      study.PhasePosttest3,
			Activities: []study.ActivityType{study.ActivityIntelligibility, study.ActivityComprehension, study.ActivityEffort, study.ActivityFeedback},
			Offsets:    Offsets{Min: DefaultPosttest3Offset},
		},
	})
	if err != nil {
		panic(fmt.Sprintf("phases: invalid default protocol: %v", err))
	}
	return cfg
}

// New validates defs and builds a Config. defs must contain exactly the
// protocol phases, in protocol order.
func New(defs []Definition) (*Config, error) {
	if len(defs) != len(study.Phases) {
		return nil, fmt.Errorf("expected %d phases, got %d", len(study.Phases), len(defs))
	}
	cfg := &Config{
		order: make([]study.Phase, 0, len(defs)),
		defs:  make(map[study.Phase]Definition, len(defs)),
	}
	lastOffset := 0
	for i, def := range defs {
		if def.Phase != study.Phases[i] {
			return nil, fmt.Errorf("phase %d: expected %q, got %q", i, study.Phases[i], def.Phase)
		}
		if len(def.Activities) == 0 {
			return nil, fmt.Errorf("phase %q: no required activities", def.Phase)
		}
		seen := map[study.ActivityType]bool{}
		for _, a := range def.Activities {
			if _, ok := study.ParseActivityType(string(a)); !ok {
				return nil, fmt.Errorf("phase %q: unknown activity %q", def.Phase, a)
			}
			if seen[a] {
				return nil, fmt.Errorf("phase %q: duplicate activity %q", def.Phase, a)
			}
			seen[a] = true
		}

		switch def.Phase {
		case study.PhasePretest:
			if def.Offsets.Min != 0 || def.Offsets.IsPerDay() {
				return nil, fmt.Errorf("pretest: offsets must be zero")
			}
		case study.PhaseTraining:
			if len(def.Offsets.PerDay) != study.TrainingDays {
				return nil, fmt.Errorf("training: expected %d day offsets, got %d", study.TrainingDays, len(def.Offsets.PerDay))
			}
			for d, off := range def.Offsets.PerDay {
				if off <= lastOffset {
					return nil, fmt.Errorf("training day %d: offset %d must be greater than %d", d+1, off, lastOffset)
				}
				lastOffset = off
			}
		default:
			if def.Offsets.IsPerDay() {
				return nil, fmt.Errorf("%s: per-day offsets are only valid for training", def.Phase)
			}
			if def.Offsets.Min <= lastOffset {
				return nil, fmt.Errorf("%s: min offset %d must be greater than %d", def.Phase, def.Offsets.Min, lastOffset)
			}
			lastOffset = def.Offsets.Min
		}

		def.Activities = append([]study.ActivityType(nil), def.Activities...)
		def.Offsets.PerDay = append([]int(nil), def.Offsets.PerDay...)
		cfg.order = append(cfg.order, def.Phase)
		cfg.defs[def.Phase] = def
	}
	return cfg, nil
}

func (c *Config) Phases() []study.Phase {
	return append([]study.Phase(nil), c.order...)
}

// NextPhase returns the successor of current; ok is false for the last phase
// and for anything that is not a protocol phase.
func (c *Config) NextPhase(current study.Phase) (study.Phase, bool) {
	for i, p := range c.order {
		if p == current {
			if i+1 < len(c.order) {
				return c.order[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// Rank orders progress states: protocol phases by position, PhaseDone last,
// unknown values -1.
func (c *Config) Rank(p study.Phase) int {
	if p == study.PhaseDone {
		return len(c.order)
	}
	for i, known := range c.order {
		if known == p {
			return i
		}
	}
	return -1
}

func (c *Config) Has(p study.Phase) bool {
	_, ok := c.defs[p]
	return ok
}

func (c *Config) RequiredActivities(p study.Phase) []study.ActivityType {
	return append([]study.ActivityType(nil), c.defs[p].Activities...)
}

func (c *Config) ExpectedOffsets(p study.Phase) Offsets {
	def := c.defs[p]
	return Offsets{Min: def.Offsets.Min, PerDay: append([]int(nil), def.Offsets.PerDay...)}
}

// RequiredKeys lists the completion keys for one unit of work: a whole phase,
// or a single training day.
func (c *Config) RequiredKeys(p study.Phase, day int) []study.ActivityKey {
	def, ok := c.defs[p]
	if !ok {
		return nil
	}
	if p != study.PhaseTraining {
		day = 0
	}
	out := make([]study.ActivityKey, 0, len(def.Activities))
	for _, a := range def.Activities {
		out = append(out, study.ActivityKey{Phase: p, Activity: a, Day: day})
	}
	return out
}

// UnitComplete reports whether every key of the unit is in set.
func (c *Config) UnitComplete(set study.CompletionSet, p study.Phase, day int) bool {
	keys := c.RequiredKeys(p, day)
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !set.Has(k) {
			return false
		}
	}
	return true
}

// ResolveKey validates raw client input against the protocol and returns the
// typed completion key, or an *study.UnknownActivityError.
func (c *Config) ResolveKey(rawPhase, rawActivity string, trainingDay int) (study.ActivityKey, error) {
	unknown := func(detail string) error {
		return &study.UnknownActivityError{Phase: rawPhase, Activity: rawActivity, TrainingDay: trainingDay, Detail: detail}
	}
	phase, ok := study.ParsePhase(rawPhase)
	if !ok || !c.Has(phase) {
		return study.ActivityKey{}, unknown("unknown phase")
	}
	activity, ok := study.ParseActivityType(rawActivity)
	if !ok {
		return study.ActivityKey{}, unknown("unknown activity type")
	}
	required := false
	for _, a := range c.defs[phase].Activities {
		if a == activity {
			required = true
			break
		}
	}
	if !required {
		return study.ActivityKey{}, unknown("activity is not part of this phase")
	}
	if phase == study.PhaseTraining {
		if trainingDay < 1 || trainingDay > study.TrainingDays {
			return study.ActivityKey{}, unknown(fmt.Sprintf("training_day must be between 1 and %d", study.TrainingDays))
		}
		return study.ActivityKey{Phase: phase, Activity: activity, Day: trainingDay}, nil
	}
	if trainingDay != 0 {
		return study.ActivityKey{}, unknown("training_day is only valid for training")
	}
	return study.ActivityKey{Phase: phase, Activity: activity}, nil
}
