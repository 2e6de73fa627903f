package performance

import (
	"bytes"
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/yuin/goldmark"
)

// NoActivityInsight is shown before any interview or test is recorded.
const NoActivityInsight = "Complete your first interview to see your performance level."

var levelDescriptions = map[Level]string{
	Beginner:       "Keep practicing! Aim for more interviews and tests to improve your accuracy.",
	Intermediate:   "Great progress! Try medium or hard difficulty questions to level up.",
	Advanced:       "Excellent! You're approaching interview readiness. Focus on hard questions.",
	InterviewReady: "Congratulations! You're well-prepared for interviews. Keep maintaining this performance.",
}

var levelGlyphs = map[Level]string{
	Beginner:       "🌱",
	Intermediate:   "📈",
	Advanced:       "⭐",
	InterviewReady: "🏆",
}

// Describe returns the fixed advice sentence for l.
func Describe(l Level) string {
	return levelDescriptions[l]
}

// Glyph returns the display glyph for l.
func Glyph(l Level) string {
	return levelGlyphs[l]
}

// Insight renders a one-sentence markdown summary of r.
func Insight(r *Record) string {
	if r == nil || r.Total() == 0 {
		return NoActivityInsight
	}
	level := Classify(r)
	return fmt.Sprintf("You are currently at **%s** level based on %d completed activities with %d%% accuracy. %s",
		level, r.Total(), displayAccuracy(r.AverageAccuracy), Describe(level))
}

// mdRenderer leaves WithUnsafe unset so raw HTML in the input is escaped.
var mdRenderer = goldmark.New()

// InsightHTML renders Insight(r) as an HTML fragment.
func InsightHTML(r *Record) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(Insight(r)), &buf); err != nil {
		return "", fmt.Errorf("rendering insight: %w", err)
	}
	return buf.String(), nil
}

// Summary bundles everything a display surface needs.
type Summary struct {
	Record              *Record `json:"record"`
	Level               Level   `json:"level"`
	Glyph               string  `json:"glyph"`
	Insight             string  `json:"insight"`
	InterviewsCompleted int     `json:"interviewsCompleted"`
	TestsCompleted      int     `json:"testsCompleted"`
	Accuracy            int     `json:"accuracy"`
}

// Summarize derives level, glyph, insight and display counters from r.
// A nil r yields the Beginner summary with a nil Record.
func Summarize(r *Record) Summary {
	level := Classify(r)
	s := Summary{
		Record:  r,
		Level:   level,
		Glyph:   Glyph(level),
		Insight: Insight(r),
	}
	if r != nil {
		s.InterviewsCompleted = r.InterviewsCompleted
		s.TestsCompleted = r.TestsCompleted
		s.Accuracy = displayAccuracy(r.AverageAccuracy)
	}
	return s
}

// displayAccuracy rounds to the nearest whole percent for display only.
func displayAccuracy(acc float64) int {
	v, err := stats.Round(acc, 0)
	if err != nil {
		return 0
	}
	return int(v)
}
