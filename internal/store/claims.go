package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/dropfarm/internal/engine"
)

// DefaultClaimLimit bounds RecentClaims when the caller passes no limit.
const DefaultClaimLimit = 50

// RecordClaim appends one claim attempt to the history.
func (s *Store) RecordClaim(ctx context.Context, rec engine.ClaimRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claim_history
		(claim_id, drop_id, drop_name, campaign_id, success, error, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ClaimID,
		rec.DropID,
		rec.DropName,
		rec.CampaignID,
		success,
		rec.Error,
		at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record claim: %w", err)
	}
	return nil
}

// RecentClaims returns up to limit claim attempts, newest first.
func (s *Store) RecentClaims(ctx context.Context, limit int) ([]engine.ClaimRecord, error) {
	if limit <= 0 {
		limit = DefaultClaimLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT claim_id, drop_id, drop_name, campaign_id, success, error, at
		FROM claim_history
		ORDER BY at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent claims: %w", err)
	}
	defer rows.Close()

	out := []engine.ClaimRecord{}
	for rows.Next() {
		var (
			rec     engine.ClaimRecord
			success int
			at      string
		)
		if err := rows.Scan(&rec.ClaimID, &rec.DropID, &rec.DropName, &rec.CampaignID, &success, &rec.Error, &at); err != nil {
			return nil, fmt.Errorf("recent claims: scan: %w", err)
		}
		rec.Success = success == 1
		if rec.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("recent claims: parse time: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent claims: %w", err)
	}
	return out, nil
}
