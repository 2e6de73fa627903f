// Package attempts keeps the append-only history of code submitted during
// practice interviews.
package attempts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/prepd/internal/storage"
)

// MaxCodeSize caps a single submission.
const MaxCodeSize = 64 << 10 // 64KB

const (
	defaultLimit = 20
	maxLimit     = 100
)

// StatusSubmitted is the only status assigned today; nothing executes code.
const StatusSubmitted = "submitted"

var (
	ErrInvalidAttempt = errors.New("invalid coding attempt")
	ErrNotFound       = storage.ErrNotFound
)

// Store is the subset of storage.Store used by Log.
type Store interface {
	SaveCodingAttempt(c storage.CodingAttempt) error
	GetCodingAttempt(id string) (storage.CodingAttempt, error)
	ListCodingAttempts(limit, offset int) ([]storage.CodingAttempt, error)
	DeleteAllCodingAttempts() (int64, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Log struct {
	store Store
	clock Clock
}

func NewLog(store Store) *Log {
	return &Log{store: store, clock: realClock{}}
}

func NewLogWithClock(store Store, clock Clock) *Log {
	return &Log{store: store, clock: clock}
}

// Submit validates and stores one attempt.
func (l *Log) Submit(language, code string) (storage.CodingAttempt, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return storage.CodingAttempt{}, fmt.Errorf("%w: language is required", ErrInvalidAttempt)
	}
	if strings.TrimSpace(code) == "" {
		return storage.CodingAttempt{}, fmt.Errorf("%w: code is required", ErrInvalidAttempt)
	}
	if len(code) > MaxCodeSize {
		return storage.CodingAttempt{}, fmt.Errorf("%w: code exceeds %d bytes", ErrInvalidAttempt, MaxCodeSize)
	}

	a := storage.CodingAttempt{
		ID:        uuid.New().String(),
		Language:  language,
		Code:      code,
		Status:    StatusSubmitted,
		CreatedAt: l.clock.Now().UTC(),
	}
	if err := l.store.SaveCodingAttempt(a); err != nil {
		return storage.CodingAttempt{}, fmt.Errorf("saving coding attempt: %w", err)
	}
	return a, nil
}

// List returns the latest attempts, newest first. Non-positive limits select
// the default and large ones are capped.
func (l *Log) List(limit int) ([]storage.CodingAttempt, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	list, err := l.store.ListCodingAttempts(limit, 0)
	if err != nil {
		return nil, fmt.Errorf("listing coding attempts: %w", err)
	}
	if list == nil {
		list = []storage.CodingAttempt{}
	}
	return list, nil
}

func (l *Log) Get(id string) (storage.CodingAttempt, error) {
	return l.store.GetCodingAttempt(id)
}

// Clear removes every attempt and reports how many were deleted.
func (l *Log) Clear() (int64, error) {
	return l.store.DeleteAllCodingAttempts()
}
