package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/dropfarm/internal/model"
)

var t0 = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

// createTestStore opens a fresh database under t.TempDir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleFarming() model.FarmingState {
	rust := model.Campaign{ID: "rust", Name: "Rust", EndsAt: t0.Add(96 * time.Hour), Expiry: model.ExpirySafe}
	hoodie := model.Drop{
		ID:               "r1",
		Name:             "Hoodie",
		CampaignID:       "rust",
		Progress:         20,
		RemainingMinutes: model.IntPtr(40),
		Status:           model.DropActive,
		Source:           model.SourceCampaign,
	}
	return model.FarmingState{
		Selected:       &rust,
		Running:        true,
		ActiveStreamer: &model.Streamer{Login: "alpha", Live: true, Viewers: model.IntPtr(50)},
		ActiveTab:      "tab-1",
		CurrentDrop:    &hoodie,
		Pending:        []model.Drop{hoodie},
		Completed:      []model.Drop{},
		Drops:          []model.Drop{hoodie},
		Available:      []model.Campaign{rust},
		Queue:          []model.Campaign{rust},
	}
}
