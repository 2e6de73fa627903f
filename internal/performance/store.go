package performance

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/prepd/internal/storage"
)

// StorageKey is the fixed key the record lives under.
const StorageKey = "dmless_performance_data"

// KV defines the key-value operations the Store needs.
// Implemented by storage.Store.
type KV interface {
	GetValue(key string) (string, error)
	SetValue(key, value string) error
	DeleteValue(key string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store reads and writes the singleton Record.
type Store struct {
	kv    KV
	clock Clock
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv, clock: realClock{}}
}

// NewStoreWithClock creates a Store with a custom clock (for testing).
func NewStoreWithClock(kv KV, clock Clock) *Store {
	return &Store{kv: kv, clock: clock}
}

// Read returns the stored record. ok is false when nothing was written yet,
// the backend failed, or the stored value does not parse as a valid record;
// callers never see those failures.
func (s *Store) Read() (Record, bool) {
	raw, err := s.kv.GetValue(StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("reading performance record, treating as absent", "error", err)
		}
		return Record{}, false
	}
	if raw == "" {
		return Record{}, false
	}

	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		slog.Warn("malformed performance record, treating as absent", "error", err)
		return Record{}, false
	}
	if err := r.Validate(); err != nil {
		slog.Warn("invalid performance record, treating as absent", "error", err)
		return Record{}, false
	}
	return r, true
}

// Write stamps LastUpdated and replaces the stored record. The stamp never
// moves backwards relative to r.LastUpdated. The stamped record is returned
// even when the write fails.
func (s *Store) Write(r Record) (Record, error) {
	stamp := s.clock.Now().UTC().Truncate(time.Millisecond)
	if stamp.Before(r.LastUpdated) {
		stamp = r.LastUpdated
	}
	r.LastUpdated = stamp

	if err := r.Validate(); err != nil {
		return r, err
	}

	b, err := json.Marshal(r)
	if err != nil {
		return r, fmt.Errorf("%w: marshalling record: %w", ErrWriteFailed, err)
	}
	if err := s.kv.SetValue(StorageKey, string(b)); err != nil {
		return r, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return r, nil
}

// Delete removes the stored record. Deleting an absent record is not an error.
func (s *Store) Delete() error {
	err := s.kv.DeleteValue(StorageKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("deleting performance record: %w", err)
	}
	return nil
}
