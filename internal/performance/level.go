package performance

// Level is an ordinal readiness classification derived from a Record.
type Level string

const (
	Beginner       Level = "Beginner"
	Intermediate   Level = "Intermediate"
	Advanced       Level = "Advanced"
	InterviewReady Level = "Interview-Ready"
)

// Rank orders levels from 0 (Beginner) to 3 (Interview-Ready).
func (l Level) Rank() int {
	switch l {
	case Intermediate:
		return 1
	case Advanced:
		return 2
	case InterviewReady:
		return 3
	}
	return 0
}

// Classify maps r to a Level. Rules are evaluated top to bottom and the
// first match wins; a near miss on any rule falls through to the next tier.
func Classify(r *Record) Level {
	if r == nil || r.Total() == 0 {
		return Beginner
	}

	total := r.Total()
	acc := r.AverageAccuracy

	switch {
	case total >= 10 && acc >= 85 && r.DifficultyLevel == Hard:
		return InterviewReady
	case total >= 7 && acc >= 80 && (r.DifficultyLevel == Medium || r.DifficultyLevel == Hard):
		return Advanced
	case total >= 3 && acc >= 70:
		return Intermediate
	}
	return Beginner
}
