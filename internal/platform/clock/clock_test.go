package clock

import (
	"encoding/json"
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %q: %v", name, err)
	}
	return loc
}

func TestCalendarTodayUsesReferenceZone(t *testing.T) {
	chicago := mustLoc(t, "America/Chicago")
	// 03:30 UTC on Jan 2 is still Jan 1 in Chicago.
	fixed := &Fixed{T: time.Date(2025, 1, 2, 3, 30, 0, 0, time.UTC)}
	cal := NewCalendar(chicago, fixed)

	if got, want := cal.Today(), MustDate("2025-01-01"); got != want {
		t.Fatalf("Today: got=%s want=%s", got, want)
	}

	utcCal := NewCalendar(time.UTC, fixed)
	if got, want := utcCal.Today(), MustDate("2025-01-02"); got != want {
		t.Fatalf("Today (utc): got=%s want=%s", got, want)
	}
}

func TestDaysBetween(t *testing.T) {
	cal := NewCalendar(mustLoc(t, "America/Chicago"), &Fixed{})

	cases := []struct {
		name string
		a, b string
		want int
	}{
		{name: "same_day", a: "2025-01-01", b: "2025-01-01", want: 0},
		{name: "one_day", a: "2025-01-01", b: "2025-01-02", want: 1},
		{name: "negative", a: "2025-01-05", b: "2025-01-01", want: -4},
		{name: "month_boundary", a: "2025-01-30", b: "2025-02-02", want: 3},
		{name: "leap_day", a: "2024-02-28", b: "2024-03-01", want: 2},
		{name: "spring_forward", a: "2025-03-08", b: "2025-03-10", want: 2},
		{name: "fall_back", a: "2025-11-01", b: "2025-11-03", want: 2},
		{name: "posttest_window", a: "2025-01-01", b: "2025-01-13", want: 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cal.DaysBetween(MustDate(tc.a), MustDate(tc.b))
			if got != tc.want {
				t.Fatalf("DaysBetween(%s, %s)=%d, want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestOffsetFromNearMidnight(t *testing.T) {
	chicago := mustLoc(t, "America/Chicago")
	fixed := &Fixed{T: time.Date(2025, 1, 2, 23, 59, 0, 0, chicago)}
	cal := NewCalendar(chicago, fixed)

	baseline := MustDate("2025-01-01")
	if got := cal.OffsetFrom(baseline); got != 1 {
		t.Fatalf("OffsetFrom before midnight: got=%d want=1", got)
	}
	fixed.Set(fixed.T.Add(2 * time.Minute))
	if got := cal.OffsetFrom(baseline); got != 2 {
		t.Fatalf("OffsetFrom after midnight: got=%d want=2", got)
	}
}

func TestDateScanAndValue(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan time: %v", err)
	}
	if d != MustDate("2025-03-04") {
		t.Fatalf("Scan time: got=%s", d)
	}
	if err := d.Scan([]byte("2025-05-06T00:00:00Z")); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if d != MustDate("2025-05-06") {
		t.Fatalf("Scan bytes: got=%s", d)
	}
	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Fatalf("Scan nil: got=%s err=%v", d, err)
	}
	v, err := MustDate("2025-01-01").Value()
	if err != nil || v != "2025-01-01" {
		t.Fatalf("Value: got=%v err=%v", v, err)
	}
	if v, _ := (Date{}).Value(); v != nil {
		t.Fatalf("Value zero: got=%v want nil", v)
	}
}

func TestDateJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}{A: MustDate("2025-01-01")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"a":"2025-01-01","b":null}` {
		t.Fatalf("marshal: got=%s", raw)
	}
	var back struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.A != MustDate("2025-01-01") || !back.B.IsZero() {
		t.Fatalf("unmarshal: got=%+v", back)
	}
}

func TestDateAddDaysNormalises(t *testing.T) {
	if got := MustDate("2025-01-31").AddDays(1); got != MustDate("2025-02-01") {
		t.Fatalf("AddDays: got=%s", got)
	}
	if !MustDate("2025-01-01").Before(MustDate("2025-01-02")) {
		t.Fatalf("Before: expected true")
	}
}
