package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/dropfarm/internal/model"
)

// Record keys in kv_state.
const (
	keyFarming  = "farming"
	keySnapshot = "snapshot"
	keyTiming   = "timing"
	keySession  = "session"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// LoadFarming returns the last saved farming state.
func (s *Store) LoadFarming(ctx context.Context) (model.FarmingState, bool, error) {
	var st model.FarmingState
	ok, err := s.load(ctx, keyFarming, &st)
	return st, ok, err
}

// SaveFarming replaces the stored farming state.
func (s *Store) SaveFarming(ctx context.Context, st model.FarmingState) error {
	return s.save(ctx, keyFarming, st)
}

// LoadSnapshot returns the cached full snapshot.
func (s *Store) LoadSnapshot(ctx context.Context) (model.Snapshot, bool, error) {
	var snap model.Snapshot
	ok, err := s.load(ctx, keySnapshot, &snap)
	return snap, ok, err
}

// SaveSnapshot replaces the cached snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	return s.save(ctx, keySnapshot, snap)
}

// LoadTiming returns the stored timing state.
func (s *Store) LoadTiming(ctx context.Context) (model.TimingState, bool, error) {
	var t model.TimingState
	ok, err := s.load(ctx, keyTiming, &t)
	return t, ok, err
}

// SaveTiming replaces the stored timing state.
func (s *Store) SaveTiming(ctx context.Context, t model.TimingState) error {
	return s.save(ctx, keyTiming, t)
}

// LoadSession returns the session last pushed through SaveSession.
func (s *Store) LoadSession(ctx context.Context) (model.Session, bool, error) {
	var sess model.Session
	ok, err := s.load(ctx, keySession, &sess)
	return sess, ok, err
}

// SaveSession stores a pushed session bundle.
func (s *Store) SaveSession(ctx context.Context, sess model.Session) error {
	return s.save(ctx, keySession, sess)
}

// UpdatedAt reports when a record was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM kv_state WHERE key = ?`, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("updated_at %s: %w", key, err)
	}
	at, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("updated_at %s: %w", key, err)
	}
	return at, true, nil
}

func (s *Store) load(ctx context.Context, key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_state WHERE key = ?`, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("load %s: decode: %w", key, err)
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("save %s: encode: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, string(data), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
