package performance

import (
	"github.com/montanaflynn/stats"

	"github.com/kalambet/prepd/internal/storage"
)

// recentWindow is how many of the latest activities feed RecentMean.
const recentWindow = 5

// CategoryStats summarises the accuracies of one group of activities.
type CategoryStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Best   float64 `json:"best"`
	Worst  float64 `json:"worst"`
}

// Breakdown separates interview and test accuracy, which the stored record
// folds into one number.
type Breakdown struct {
	Interviews   CategoryStats                `json:"interviews"`
	Tests        CategoryStats                `json:"tests"`
	Overall      CategoryStats                `json:"overall"`
	ByDifficulty map[Difficulty]CategoryStats `json:"byDifficulty"`
	RecentMean   float64                      `json:"recentMean"`
}

// ComputeBreakdown expects activities oldest first.
func ComputeBreakdown(activities []storage.Activity) Breakdown {
	var interviews, tests, overall []float64
	byDifficulty := make(map[Difficulty][]float64)

	for _, a := range activities {
		overall = append(overall, a.Accuracy)
		switch a.Kind {
		case "interview":
			interviews = append(interviews, a.Accuracy)
		case "test":
			tests = append(tests, a.Accuracy)
			if d := Difficulty(a.Difficulty); d.Valid() {
				byDifficulty[d] = append(byDifficulty[d], a.Accuracy)
			}
		}
	}

	b := Breakdown{
		Interviews:   categoryStats(interviews),
		Tests:        categoryStats(tests),
		Overall:      categoryStats(overall),
		ByDifficulty: make(map[Difficulty]CategoryStats, len(byDifficulty)),
	}
	for d, accs := range byDifficulty {
		b.ByDifficulty[d] = categoryStats(accs)
	}

	recent := overall
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	if mean, err := stats.Mean(recent); err == nil {
		b.RecentMean = round2(mean)
	}
	return b
}

func categoryStats(data []float64) CategoryStats {
	if len(data) == 0 {
		return CategoryStats{}
	}
	cs := CategoryStats{Count: len(data)}
	if mean, err := stats.Mean(data); err == nil {
		cs.Mean = round2(mean)
	}
	if sd, err := stats.StandardDeviation(data); err == nil {
		cs.StdDev = round2(sd)
	}
	if max, err := stats.Max(data); err == nil {
		cs.Best = max
	}
	if min, err := stats.Min(data); err == nil {
		cs.Worst = min
	}
	return cs
}
