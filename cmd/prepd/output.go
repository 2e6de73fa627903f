package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kalambet/prepd/internal/performance"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorBold    = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func levelColor(l performance.Level) string {
	switch l {
	case performance.InterviewReady:
		return colorGreen
	case performance.Advanced:
		return colorMagenta
	case performance.Intermediate:
		return colorCyan
	default:
		return colorYellow
	}
}

// renderInsight turns the **bold** spans of an insight into terminal bold.
func renderInsight(md string) string {
	parts := strings.Split(md, "**")
	if len(parts)%2 == 0 {
		// Unbalanced markers; print as is.
		return md
	}
	var b strings.Builder
	for i, p := range parts {
		if i%2 == 1 {
			b.WriteString(colorize(colorBold, p))
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}

func printSummary(s performance.Summary) {
	fmt.Printf("%s %s\n\n", s.Glyph, colorize(levelColor(s.Level)+colorBold, string(s.Level)))
	fmt.Println(renderInsight(s.Insight))
	if s.Record == nil {
		return
	}
	fmt.Println()
	fmt.Printf("  %s %d\n", colorize(colorBold, "Interviews:"), s.InterviewsCompleted)
	fmt.Printf("  %s %d\n", colorize(colorBold, "Tests:     "), s.TestsCompleted)
	fmt.Printf("  %s %d%%\n", colorize(colorBold, "Accuracy:  "), s.Accuracy)
	fmt.Printf("  %s %s\n", colorize(colorBold, "Difficulty:"), s.Record.DifficultyLevel)
	if !s.Record.LastUpdated.IsZero() {
		fmt.Printf("  %s %s\n", colorize(colorBold, "Updated:   "), s.Record.LastUpdated.Local().Format("2006-01-02 15:04"))
	}
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}
