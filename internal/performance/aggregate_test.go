package performance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordInterview_FromAbsent(t *testing.T) {
	got := RecordInterview(nil, 80)

	assert.Equal(t, Record{
		InterviewsCompleted: 1,
		TestsCompleted:      0,
		AverageAccuracy:     80,
		DifficultyLevel:     Easy,
	}, got)
}

func TestRecordInterview_RunningMean(t *testing.T) {
	r := RecordInterview(nil, 80)
	r = RecordInterview(&r, 60)

	assert.Equal(t, 2, r.InterviewsCompleted)
	assert.Equal(t, 70.0, r.AverageAccuracy)
}

func TestRecordInterview_RoundsToTwoDecimals(t *testing.T) {
	r := RecordInterview(nil, 33)
	r = RecordInterview(&r, 34)
	assert.Equal(t, 33.5, r.AverageAccuracy)

	r = RecordInterview(nil, 70)
	r = RecordInterview(&r, 80)
	r = RecordInterview(&r, 85)
	// (75*2 + 85) / 3 = 78.333...
	assert.Equal(t, 78.33, r.AverageAccuracy)
}

func TestRecordInterview_DoesNotTouchDifficulty(t *testing.T) {
	current := Record{TestsCompleted: 2, AverageAccuracy: 90, DifficultyLevel: Hard}

	got := RecordInterview(&current, 50)
	assert.Equal(t, Hard, got.DifficultyLevel)
}

func TestRecordTest_LastDifficultyWins(t *testing.T) {
	r := RecordTest(nil, 90, Hard)
	assert.Equal(t, Hard, r.DifficultyLevel)
	assert.Equal(t, 1, r.TestsCompleted)

	r = RecordTest(&r, 90, Easy)
	assert.Equal(t, Easy, r.DifficultyLevel, "no max-difficulty tracking")
	assert.Equal(t, 2, r.TestsCompleted)
	assert.Equal(t, 90.0, r.AverageAccuracy)
}

func TestAggregator_Pure(t *testing.T) {
	current := Record{InterviewsCompleted: 3, AverageAccuracy: 71.2, DifficultyLevel: Medium}
	before := current

	a := RecordInterview(&current, 88)
	b := RecordInterview(&current, 88)

	assert.Equal(t, a, b)
	assert.Equal(t, before, current, "input must not be mutated")
}

func TestAggregator_PerCategorySharesOneAverage(t *testing.T) {
	// One interview at 80, then one test at 60. The test divides by its own
	// count only, so the interview contribution is discarded.
	r := RecordInterview(nil, 80)
	r = RecordTest(&r, 60, Medium)

	assert.Equal(t, 1, r.InterviewsCompleted)
	assert.Equal(t, 1, r.TestsCompleted)
	assert.Equal(t, 60.0, r.AverageAccuracy)
}

func TestAggregator_CombinedMode(t *testing.T) {
	agg := Aggregator{Mode: ModeCombined}

	r := agg.RecordInterview(nil, 80)
	r = agg.RecordTest(&r, 60, Medium)
	assert.Equal(t, 70.0, r.AverageAccuracy)

	r = agg.RecordInterview(&r, 100)
	// (70*2 + 100) / 3 = 80
	assert.Equal(t, 80.0, r.AverageAccuracy)
	assert.Equal(t, 3, r.Total())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModePerCategory, m)

	m, err = ParseMode("combined")
	require.NoError(t, err)
	assert.Equal(t, ModeCombined, m)

	_, err = ParseMode("weighted")
	assert.Error(t, err)
}

func TestApply_Patch(t *testing.T) {
	tests := 4
	acc := 66.666
	hard := Hard

	got := Apply(nil, Patch{TestsCompleted: &tests, AverageAccuracy: &acc, DifficultyLevel: &hard})
	assert.Equal(t, Record{TestsCompleted: 4, AverageAccuracy: 66.67, DifficultyLevel: Hard}, got)

	interviews := 2
	got = Apply(&got, Patch{InterviewsCompleted: &interviews})
	assert.Equal(t, 2, got.InterviewsCompleted)
	assert.Equal(t, 4, got.TestsCompleted, "unset fields keep their value")
	assert.Equal(t, Hard, got.DifficultyLevel)
}

func TestNewRecord(t *testing.T) {
	r := NewRecord()
	assert.Equal(t, Easy, r.DifficultyLevel)
	assert.Zero(t, r.Total())
	assert.Zero(t, r.AverageAccuracy)
	assert.NoError(t, r.Validate())
}
