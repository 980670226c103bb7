package study

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestActivityKeyRoundTrip(t *testing.T) {
	cases := []struct {
		key  ActivityKey
		want string
	}{
		{ActivityKey{Phase: PhasePretest, Activity: ActivityDemographics}, "pretest_demographics"},
		{ActivityKey{Phase: PhaseTraining, Activity: ActivityTranscription, Day: 3}, "training_day3_transcription"},
		{ActivityKey{Phase: PhasePosttest2, Activity: ActivityEffort}, "posttest2_effort"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.key.String(); got != tc.want {
				t.Fatalf("String: got=%q want=%q", got, tc.want)
			}
			back, err := ParseActivityKey(tc.want)
			if err != nil {
				t.Fatalf("ParseActivityKey(%q): %v", tc.want, err)
			}
			if back != tc.key {
				t.Fatalf("ParseActivityKey(%q): got=%+v want=%+v", tc.want, back, tc.key)
			}
		})
	}
}

func TestParseActivityKeyRejectsUnknown(t *testing.T) {
	bad := []string{
		"",
		"pretest",
		"pretest_",
		"pretest_dance",
		"midterm_effort",
		"training_transcription",
		"training_day9_transcription",
		"training_dayx_transcription",
		"done_feedback",
	}
	for _, raw := range bad {
		if _, err := ParseActivityKey(raw); err == nil {
			t.Fatalf("ParseActivityKey(%q): expected error", raw)
		}
	}
}

func TestCompletionSetMarkIsMonotonic(t *testing.T) {
	set := CompletionSet{}
	k := ActivityKey{Phase: PhasePretest, Activity: ActivityEffort}
	if !set.Mark(k) {
		t.Fatalf("first Mark: expected newly added")
	}
	if set.Mark(k) {
		t.Fatalf("second Mark: expected no-op")
	}
	if !set.Has(k) || len(set) != 1 {
		t.Fatalf("unexpected set: %v", set.Keys())
	}
}

func TestCompletionSetJSONAndScan(t *testing.T) {
	set := CompletionSet{}
	set.Mark(ActivityKey{Phase: PhasePretest, Activity: ActivityDemographics})
	set.Mark(ActivityKey{Phase: PhaseTraining, Activity: ActivityTranscription, Day: 1})

	raw, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"pretest_demographics":true,"training_day1_transcription":true}` {
		t.Fatalf("marshal: got=%s", raw)
	}

	var scanned CompletionSet
	if err := scanned.Scan(raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(scanned) != 2 || !scanned.Has(ActivityKey{Phase: PhaseTraining, Activity: ActivityTranscription, Day: 1}) {
		t.Fatalf("Scan: got=%v", scanned.Keys())
	}

	if err := scanned.Scan(`{"pretest_bogus":true}`); err == nil {
		t.Fatalf("Scan: expected error for unknown key")
	}
	if err := scanned.Scan(nil); err != nil || len(scanned) != 0 {
		t.Fatalf("Scan nil: got=%v err=%v", scanned.Keys(), err)
	}
}

func TestProgressCloneIsDeep(t *testing.T) {
	p := NewProgress(uuid.New())
	c := p.Clone()
	c.Completed.Mark(ActivityKey{Phase: PhasePretest, Activity: ActivityEffort})
	if len(p.Completed) != 0 {
		t.Fatalf("Clone shares completion set")
	}
}
