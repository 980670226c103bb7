package study

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ActivityKey identifies one unit of completed work. Day is set only for
// training activities, where each of the four sessions is tracked apart.
type ActivityKey struct {
	Phase    Phase
	Activity ActivityType
	Day      int
}

// String renders "{phase}_{activity}", with training days as
// "training_day{N}_{activity}".
func (k ActivityKey) String() string {
	if k.Phase == PhaseTraining {
		return fmt.Sprintf("%s_day%d_%s", k.Phase, k.Day, k.Activity)
	}
	return string(k.Phase) + "_" + string(k.Activity)
}

// ParseActivityKey is the inverse of String. Only structurally valid keys over
// known phases and activities are accepted.
func ParseActivityKey(s string) (ActivityKey, error) {
	raw := strings.TrimSpace(s)
	idx := strings.LastIndex(raw, "_")
	if idx <= 0 || idx == len(raw)-1 {
		return ActivityKey{}, fmt.Errorf("malformed activity key %q", s)
	}
	head, tail := raw[:idx], raw[idx+1:]
	activity, ok := ParseActivityType(tail)
	if !ok {
		return ActivityKey{}, fmt.Errorf("unknown activity in key %q", s)
	}
	if strings.HasPrefix(head, string(PhaseTraining)+"_day") {
		day, err := strconv.Atoi(strings.TrimPrefix(head, string(PhaseTraining)+"_day"))
		if err != nil || day < 1 || day > TrainingDays {
			return ActivityKey{}, fmt.Errorf("bad training day in key %q", s)
		}
		return ActivityKey{Phase: PhaseTraining, Activity: activity, Day: day}, nil
	}
	phase, ok := ParsePhase(head)
	if !ok || phase == PhaseTraining {
		return ActivityKey{}, fmt.Errorf("unknown phase in key %q", s)
	}
	return ActivityKey{Phase: phase, Activity: activity}, nil
}

// CompletionSet is the monotonic set of completed activity keys. It is
// persisted as a JSON object of key -> true.
type CompletionSet map[ActivityKey]bool

func (c CompletionSet) Has(k ActivityKey) bool { return c[k] }

// Mark records k and reports whether it was newly added.
func (c CompletionSet) Mark(k ActivityKey) bool {
	if c[k] {
		return false
	}
	c[k] = true
	return true
}

func (c CompletionSet) Clone() CompletionSet {
	out := make(CompletionSet, len(c))
	for k, v := range c {
		if v {
			out[k] = true
		}
	}
	return out
}

// Keys returns the string keys in sorted order.
func (c CompletionSet) Keys() []string {
	out := make([]string, 0, len(c))
	for k, v := range c {
		if v {
			out = append(out, k.String())
		}
	}
	sort.Strings(out)
	return out
}

func (c CompletionSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]bool, len(c))
	for k, v := range c {
		if v {
			m[k.String()] = true
		}
	}
	return json.Marshal(m)
}

func (c *CompletionSet) UnmarshalJSON(b []byte) error {
	var m map[string]bool
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	out := make(CompletionSet, len(m))
	for raw, v := range m {
		if !v {
			continue
		}
		k, err := ParseActivityKey(raw)
		if err != nil {
			return err
		}
		out[k] = true
	}
	*c = out
	return nil
}

func (c CompletionSet) Value() (driver.Value, error) {
	b, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *CompletionSet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = CompletionSet{}
		return nil
	case string:
		return c.UnmarshalJSON([]byte(v))
	case []byte:
		return c.UnmarshalJSON(v)
	default:
		return fmt.Errorf("study.CompletionSet: cannot scan %T", src)
	}
}

func (CompletionSet) GormDataType() string { return "json" }

func (CompletionSet) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}
