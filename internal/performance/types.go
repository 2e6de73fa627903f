package performance

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrWriteFailed is returned when the backing store rejects a write.
	// The computed record is still returned to the caller alongside it.
	ErrWriteFailed = errors.New("performance record write failed")

	ErrAccuracyOutOfRange = errors.New("accuracy must be a number between 0 and 100")
	ErrInvalidDifficulty  = errors.New("difficulty must be one of easy, medium, hard")
	ErrInvalidRecord      = errors.New("invalid performance record")
)

// Difficulty tags the most recently recorded test.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty accepts a difficulty tag in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: got %q", ErrInvalidDifficulty, s)
	}
	return d, nil
}

func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// isoLayout is ISO 8601 in UTC with millisecond precision.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is the persisted performance summary for one client.
type Record struct {
	InterviewsCompleted int
	TestsCompleted      int
	AverageAccuracy     float64
	DifficultyLevel     Difficulty
	LastUpdated         time.Time
}

// NewRecord returns the zero-valued default used whenever no record exists yet.
func NewRecord() Record {
	return Record{DifficultyLevel: Easy}
}

// Total is the number of completed activities of either kind.
func (r Record) Total() int {
	return r.InterviewsCompleted + r.TestsCompleted
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if r.InterviewsCompleted < 0 || r.TestsCompleted < 0 {
		return fmt.Errorf("%w: negative activity count", ErrInvalidRecord)
	}
	if math.IsNaN(r.AverageAccuracy) || r.AverageAccuracy < 0 || r.AverageAccuracy > 100 {
		return fmt.Errorf("%w: average accuracy %v out of range", ErrInvalidRecord, r.AverageAccuracy)
	}
	if !r.DifficultyLevel.Valid() {
		return fmt.Errorf("%w: difficulty %q", ErrInvalidRecord, r.DifficultyLevel)
	}
	return nil
}

// recordJSON is the on-disk shape. Field names are shared with existing
// browser clients and must not change.
type recordJSON struct {
	InterviewsCompleted int        `json:"interviewsCompleted"`
	TestsCompleted      int        `json:"testsCompleted"`
	AverageAccuracy     float64    `json:"averageAccuracy"`
	DifficultyLevel     Difficulty `json:"difficultyLevel"`
	LastUpdated         string     `json:"lastUpdated"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		InterviewsCompleted: r.InterviewsCompleted,
		TestsCompleted:      r.TestsCompleted,
		AverageAccuracy:     r.AverageAccuracy,
		DifficultyLevel:     r.DifficultyLevel,
	}
	if !r.LastUpdated.IsZero() {
		out.LastUpdated = r.LastUpdated.UTC().Format(isoLayout)
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var ts time.Time
	if in.LastUpdated != "" {
		t, err := time.Parse(time.RFC3339Nano, in.LastUpdated)
		if err != nil {
			return fmt.Errorf("parsing lastUpdated: %w", err)
		}
		ts = t.UTC()
	}
	*r = Record{
		InterviewsCompleted: in.InterviewsCompleted,
		TestsCompleted:      in.TestsCompleted,
		AverageAccuracy:     in.AverageAccuracy,
		DifficultyLevel:     in.DifficultyLevel,
		LastUpdated:         ts,
	}
	return nil
}

// Patch is a partial update of the business fields. Nil fields keep their
// current value.
type Patch struct {
	InterviewsCompleted *int        `json:"interviewsCompleted,omitempty"`
	TestsCompleted      *int        `json:"testsCompleted,omitempty"`
	AverageAccuracy     *float64    `json:"averageAccuracy,omitempty"`
	DifficultyLevel     *Difficulty `json:"difficultyLevel,omitempty"`
}

func (p Patch) Empty() bool {
	return p.InterviewsCompleted == nil && p.TestsCompleted == nil &&
		p.AverageAccuracy == nil && p.DifficultyLevel == nil
}
