package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dropfarm/internal/engine"
)

func TestRecentClaims_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordClaim(ctx, engine.ClaimRecord{
		ClaimID: "c1", DropID: "r1", DropName: "Hoodie", CampaignID: "rust", Success: true, At: t0,
	}))
	require.NoError(t, s.RecordClaim(ctx, engine.ClaimRecord{
		ClaimID: "c2", DropID: "r2", DropName: "Pants", Success: false, Error: "TRANSIENT: timeout", At: t0.Add(500 * time.Millisecond),
	}))
	require.NoError(t, s.RecordClaim(ctx, engine.ClaimRecord{
		ClaimID: "c3", DropID: "r3", Success: true, At: t0.Add(time.Second),
	}))

	got, err := s.RecentClaims(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "c3", got[0].ClaimID)
	assert.Equal(t, "c2", got[1].ClaimID)
	assert.False(t, got[1].Success)
	assert.Equal(t, "TRANSIENT: timeout", got[1].Error)
	assert.True(t, got[1].At.Equal(t0.Add(500*time.Millisecond)))
}

func TestRecentClaims_DefaultLimitAndEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	got, err := s.RecentClaims(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	for i := 0; i < DefaultClaimLimit+5; i++ {
		require.NoError(t, s.RecordClaim(ctx, engine.ClaimRecord{ClaimID: "c", At: t0.Add(time.Duration(i) * time.Second)}))
	}

	got, err = s.RecentClaims(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultClaimLimit)
}

func TestStore_SatisfiesEnginePorts(t *testing.T) {
	var _ engine.StateStore = (*Store)(nil)
	var _ engine.ClaimLog = (*Store)(nil)
}
