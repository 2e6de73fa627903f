package performance

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/kalambet/prepd/internal/storage"
)

// AccuracyPolicy decides what happens to accuracy inputs outside [0, 100].
type AccuracyPolicy string

const (
	PolicyReject AccuracyPolicy = "reject"
	PolicyClamp  AccuracyPolicy = "clamp"
)

func ParsePolicy(s string) (AccuracyPolicy, error) {
	switch p := AccuracyPolicy(s); p {
	case PolicyReject, PolicyClamp:
		return p, nil
	case "":
		return PolicyReject, nil
	}
	return "", fmt.Errorf("unknown accuracy policy %q (want %q or %q)", s, PolicyReject, PolicyClamp)
}

// ActivityLog records individual observations. Implemented by storage.Store.
type ActivityLog interface {
	SaveActivity(a storage.Activity) error
	AllActivities() ([]storage.Activity, error)
	DeleteAllActivities() (int64, error)
}

// Options configures a Tracker. Zero values select ModePerCategory and
// PolicyReject; a nil Log disables the activity history.
type Options struct {
	Mode   Mode
	Policy AccuracyPolicy
	Log    ActivityLog
	Clock  Clock
}

// Tracker runs the read, aggregate, write cycle for each observation.
// Cycles are serialised within a process; separate processes sharing one
// database are last-write-wins.
type Tracker struct {
	store  *Store
	agg    Aggregator
	policy AccuracyPolicy
	log    ActivityLog
	clock  Clock
	logger *slog.Logger

	mu sync.Mutex
}

func NewTracker(store *Store, opts Options) *Tracker {
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyReject
	}
	return &Tracker{
		store:  store,
		agg:    Aggregator{Mode: opts.Mode},
		policy: policy,
		log:    opts.Log,
		clock:  clock,
		logger: slog.Default(),
	}
}

// RecordInterview folds a completed interview into the stored record.
// On a write failure the computed record is returned with an error wrapping
// ErrWriteFailed.
func (t *Tracker) RecordInterview(accuracy float64) (Record, error) {
	acc, err := t.checkAccuracy(accuracy)
	if err != nil {
		return Record{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.agg.RecordInterview(t.current(), acc)
	saved, err := t.store.Write(next)
	if err != nil {
		return saved, err
	}
	t.appendActivity("interview", acc, "")
	return saved, nil
}

// RecordTest folds a completed test into the stored record.
func (t *Tracker) RecordTest(accuracy float64, d Difficulty) (Record, error) {
	acc, err := t.checkAccuracy(accuracy)
	if err != nil {
		return Record{}, err
	}
	if !d.Valid() {
		return Record{}, fmt.Errorf("%w: got %q", ErrInvalidDifficulty, d)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.agg.RecordTest(t.current(), acc, d)
	saved, err := t.store.Write(next)
	if err != nil {
		return saved, err
	}
	t.appendActivity("test", acc, d)
	return saved, nil
}

// Update merges a partial record over the stored one.
func (t *Tracker) Update(p Patch) (Record, error) {
	if p.AverageAccuracy != nil {
		acc, err := t.checkAccuracy(*p.AverageAccuracy)
		if err != nil {
			return Record{}, err
		}
		p.AverageAccuracy = &acc
	}
	if p.DifficultyLevel != nil && !p.DifficultyLevel.Valid() {
		return Record{}, fmt.Errorf("%w: got %q", ErrInvalidDifficulty, *p.DifficultyLevel)
	}
	if (p.InterviewsCompleted != nil && *p.InterviewsCompleted < 0) ||
		(p.TestsCompleted != nil && *p.TestsCompleted < 0) {
		return Record{}, fmt.Errorf("%w: counts must not be negative", ErrInvalidRecord)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.store.Write(Apply(t.current(), p))
}

// Current returns the stored record, if any.
func (t *Tracker) Current() (Record, bool) {
	return t.store.Read()
}

// Summary returns the display summary of the stored record.
func (t *Tracker) Summary() Summary {
	r, ok := t.store.Read()
	if !ok {
		return Summarize(nil)
	}
	return Summarize(&r)
}

// Breakdown computes per-category statistics from the activity history.
func (t *Tracker) Breakdown() (Breakdown, error) {
	if t.log == nil {
		return Breakdown{}, errors.New("activity history is not enabled")
	}
	activities, err := t.log.AllActivities()
	if err != nil {
		return Breakdown{}, fmt.Errorf("loading activities: %w", err)
	}
	return ComputeBreakdown(activities), nil
}

// Reset deletes the stored record and the activity history.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Delete(); err != nil {
		return err
	}
	if t.log != nil {
		if _, err := t.log.DeleteAllActivities(); err != nil {
			return fmt.Errorf("deleting activities: %w", err)
		}
	}
	return nil
}

func (t *Tracker) current() *Record {
	r, ok := t.store.Read()
	if !ok {
		return nil
	}
	return &r
}

func (t *Tracker) checkAccuracy(acc float64) (float64, error) {
	if math.IsNaN(acc) {
		return 0, fmt.Errorf("%w: got NaN", ErrAccuracyOutOfRange)
	}
	if acc >= 0 && acc <= 100 {
		return acc, nil
	}
	if t.policy == PolicyClamp {
		clamped := math.Max(0, math.Min(100, acc))
		t.logger.Debug("clamped out-of-range accuracy", "accuracy", acc, "clamped", clamped)
		return clamped, nil
	}
	return 0, fmt.Errorf("%w: got %v", ErrAccuracyOutOfRange, acc)
}

// appendActivity is best effort: the record is authoritative and has
// already been written.
func (t *Tracker) appendActivity(kind string, acc float64, d Difficulty) {
	if t.log == nil {
		return
	}
	err := t.log.SaveActivity(storage.Activity{
		ID:         uuid.New().String(),
		Kind:       kind,
		Accuracy:   acc,
		Difficulty: string(d),
		CreatedAt:  t.clock.Now().UTC(),
	})
	if err != nil {
		t.logger.Warn("failed to append activity", "kind", kind, "error", err)
	}
}
