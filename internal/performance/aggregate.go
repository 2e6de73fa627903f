package performance

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Mode selects how a new observation is folded into AverageAccuracy.
type Mode string

const (
	// ModePerCategory divides by the count of the observation's own category
	// only, so interviews and tests keep overwriting one shared average.
	// This matches records written by existing clients.
	ModePerCategory Mode = "per_category"

	// ModeCombined keeps a single running mean over all activities.
	ModeCombined Mode = "combined"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModePerCategory, ModeCombined:
		return m, nil
	case "":
		return ModePerCategory, nil
	}
	return "", fmt.Errorf("unknown averaging mode %q (want %q or %q)", s, ModePerCategory, ModeCombined)
}

// Aggregator computes the next record from the current one plus an
// observation. It holds no state; the zero value uses ModePerCategory.
type Aggregator struct {
	Mode Mode
}

// RecordInterview folds an interview accuracy into current (nil means no
// record yet). DifficultyLevel is left untouched.
func (a Aggregator) RecordInterview(current *Record, accuracy float64) Record {
	base := orDefault(current)
	base.AverageAccuracy = a.nextMean(base, base.InterviewsCompleted, accuracy)
	base.InterviewsCompleted++
	return base
}

// RecordTest folds a test accuracy into current and sets DifficultyLevel to
// d, even when d is lower than the previous value.
func (a Aggregator) RecordTest(current *Record, accuracy float64, d Difficulty) Record {
	base := orDefault(current)
	base.AverageAccuracy = a.nextMean(base, base.TestsCompleted, accuracy)
	base.TestsCompleted++
	base.DifficultyLevel = d
	return base
}

func (a Aggregator) nextMean(base Record, prior int, accuracy float64) float64 {
	if a.Mode == ModeCombined {
		prior = base.Total()
	}
	return round2((base.AverageAccuracy*float64(prior) + accuracy) / float64(prior+1))
}

// RecordInterview applies an interview observation in ModePerCategory.
func RecordInterview(current *Record, accuracy float64) Record {
	return Aggregator{}.RecordInterview(current, accuracy)
}

// RecordTest applies a test observation in ModePerCategory.
func RecordTest(current *Record, accuracy float64, d Difficulty) Record {
	return Aggregator{}.RecordTest(current, accuracy, d)
}

// Apply merges p over current (or the default record).
func Apply(current *Record, p Patch) Record {
	base := orDefault(current)
	if p.InterviewsCompleted != nil {
		base.InterviewsCompleted = *p.InterviewsCompleted
	}
	if p.TestsCompleted != nil {
		base.TestsCompleted = *p.TestsCompleted
	}
	if p.AverageAccuracy != nil {
		base.AverageAccuracy = round2(*p.AverageAccuracy)
	}
	if p.DifficultyLevel != nil {
		base.DifficultyLevel = *p.DifficultyLevel
	}
	return base
}

func orDefault(current *Record) Record {
	if current == nil {
		return NewRecord()
	}
	return *current
}

// round2 rounds half up to two decimal places.
func round2(x float64) float64 {
	r, err := stats.Round(x, 2)
	if err != nil {
		return x
	}
	return r
}
