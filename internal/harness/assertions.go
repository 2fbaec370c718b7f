package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/dropfarm/internal/model"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nNotifications:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %q\n", ev.Seq, ev.Kind, ev.Message)
		}
	}
	return buf.String()
}

func evaluate(a Assertion, result *Result) error {
	switch a.Type {
	case AssertState:
		return assertState(result.State, a)
	case AssertNotified:
		return assertNotified(result.Trace, a)
	case AssertNotifyOrder:
		return assertNotifyOrder(result.Trace, a)
	case AssertNotifyCount:
		return assertNotifyCount(result.Trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertState compares only the fields the assertion sets. An empty string
// expects the field to be unset.
func assertState(st model.FarmingState, a Assertion) error {
	var diffs []string
	check := func(field string, want *string, got string) {
		if want != nil && *want != got {
			diffs = append(diffs, fmt.Sprintf("%s=%q (want %q)", field, got, *want))
		}
	}

	if a.Running != nil && *a.Running != st.Running {
		diffs = append(diffs, fmt.Sprintf("running=%v (want %v)", st.Running, *a.Running))
	}
	if a.Paused != nil && *a.Paused != st.Paused {
		diffs = append(diffs, fmt.Sprintf("paused=%v (want %v)", st.Paused, *a.Paused))
	}

	selected := ""
	if st.Selected != nil {
		selected = st.Selected.Key()
	}
	check("selected", a.Selected, selected)

	streamer := ""
	if st.ActiveStreamer != nil {
		streamer = st.ActiveStreamer.Login
	}
	check("streamer", a.Streamer, streamer)

	drop := ""
	if st.CurrentDrop != nil {
		drop = st.CurrentDrop.ID
	}
	check("current_drop", a.CurrentDrop, drop)

	if a.Queue != nil {
		keys := make([]string, 0, len(st.Queue))
		for _, c := range st.Queue {
			keys = append(keys, c.Key())
		}
		if !slices.Equal(keys, a.Queue) {
			diffs = append(diffs, fmt.Sprintf("queue=%v (want %v)", keys, a.Queue))
		}
	}

	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertState,
		Expected: "final state to match",
		Actual:   strings.Join(diffs, ", "),
	}
}

func assertNotified(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Kind == a.Kind && (a.Message == "" || ev.Message == a.Message) {
			return nil
		}
	}
	expected := a.Kind
	if a.Message != "" {
		expected += fmt.Sprintf(" %q", a.Message)
	}
	return &AssertionError{
		Type:     AssertNotified,
		Expected: "notification " + expected,
		Actual:   "not sent",
		Trace:    trace,
	}
}

// assertNotifyOrder checks kinds occur in order; other notifications may
// appear in between.
func assertNotifyOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Kinds) && ev.Kind == a.Kinds[next] {
			next++
		}
	}
	if next == len(a.Kinds) {
		return nil
	}
	return &AssertionError{
		Type:     AssertNotifyOrder,
		Expected: fmt.Sprintf("kinds in order %v", a.Kinds),
		Actual:   fmt.Sprintf("matched up to %v", a.Kinds[:next]),
		Trace:    trace,
	}
}

func assertNotifyCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind == a.Kind {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertNotifyCount,
		Expected: fmt.Sprintf("%s sent %d times", a.Kind, a.Count),
		Actual:   fmt.Sprintf("sent %d times", count),
		Trace:    trace,
	}
}
