package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dropfarm/internal/model"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Kind: "state", Message: "campaign selected"},
		{Seq: 2, Kind: "rotated"},
		{Seq: 3, Kind: "claimed"},
		{Seq: 4, Kind: "state"},
		{Seq: 5, Kind: "farming_stopped", Message: "farming stopped"},
	}
}

func TestAssertNotifyOrder(t *testing.T) {
	tests := []struct {
		name  string
		kinds []string
		ok    bool
	}{
		{"gaps allowed", []string{"state", "claimed", "farming_stopped"}, true},
		{"single", []string{"rotated"}, true},
		{"wrong order", []string{"claimed", "rotated"}, false},
		{"missing", []string{"campaign_complete"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertNotifyOrder(sampleTrace(), Assertion{Type: AssertNotifyOrder, Kinds: tt.kinds})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAssertNotifyCount(t *testing.T) {
	assert.NoError(t, assertNotifyCount(sampleTrace(), Assertion{Kind: "state", Count: 2}))
	assert.NoError(t, assertNotifyCount(sampleTrace(), Assertion{Kind: "campaign_complete", Count: 0}))

	err := assertNotifyCount(sampleTrace(), Assertion{Kind: "claimed", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sent 1 times")
}

func TestAssertNotified_Message(t *testing.T) {
	assert.NoError(t, assertNotified(sampleTrace(), Assertion{Kind: "farming_stopped", Message: "farming stopped"}))

	err := assertNotified(sampleTrace(), Assertion{Kind: "state", Message: "farming started"})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Len(t, ae.Trace, 5)
	assert.Contains(t, err.Error(), `[1] state "campaign selected"`)
}

func TestAssertState(t *testing.T) {
	yes, empty, rust, alpha := true, "", "rust", "alpha"
	st := model.FarmingState{
		Running:        true,
		Selected:       &model.Campaign{ID: "rust", Name: "Rust"},
		ActiveStreamer: &model.Streamer{Login: "alpha"},
		Queue:          []model.Campaign{{ID: "rust"}, {ID: "cs"}},
	}

	assert.NoError(t, assertState(st, Assertion{
		Running:     &yes,
		Selected:    &rust,
		Streamer:    &alpha,
		CurrentDrop: &empty,
		Queue:       []string{"rust", "cs"},
	}))

	err := assertState(st, Assertion{Paused: &yes, Queue: []string{"cs"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paused=false (want true)")
	assert.Contains(t, err.Error(), "queue=[rust cs] (want [cs])")
}
