package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/prepd/internal/config"
	"github.com/kalambet/prepd/internal/performance"
	"github.com/kalambet/prepd/internal/storage"
)

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current performance level and insight",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		s, err := client.summary(cmd.Context(), http.MethodGet, "/performance", nil)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		printSummary(s)
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "print the raw summary as JSON")
}

// --- record ---

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a completed interview or test",
}

var recordInterviewCmd = &cobra.Command{
	Use:   "interview <accuracy>",
	Short: "Record a completed interview",
	Long: `Record a completed interview.

Examples:
  prepd record interview 82
  prepd record interview 67.5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := parseAccuracy(args[0])
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return submitRecord(cmd.Context(), client, "/performance/interviews", map[string]any{"accuracy": acc})
	},
}

var recordTestCmd = &cobra.Command{
	Use:   "test <accuracy>",
	Short: "Record a completed test",
	Long: `Record a completed test.

Examples:
  prepd record test 91 --difficulty hard
  prepd record test 74`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := parseAccuracy(args[0])
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("difficulty")
		d, err := performance.ParseDifficulty(raw)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return submitRecord(cmd.Context(), client, "/performance/tests", map[string]any{
			"accuracy":   acc,
			"difficulty": d,
		})
	},
}

func init() {
	recordTestCmd.Flags().String("difficulty", string(performance.Easy), "test difficulty: easy, medium or hard")
	recordCmd.AddCommand(recordInterviewCmd)
	recordCmd.AddCommand(recordTestCmd)
}

func parseAccuracy(s string) (float64, error) {
	acc, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("accuracy %q is not a number", s)
	}
	return acc, nil
}

func submitRecord(ctx context.Context, client *apiClient, path string, body map[string]any) error {
	s, err := client.summary(ctx, http.MethodPost, path, body)
	return reportSummary(s, err, "Recorded")
}

// reportSummary prints s after a write. An unsaved record is still shown
// so the user sees what would have been stored.
func reportSummary(s performance.Summary, err error, success string) error {
	if errors.Is(err, errNotSaved) {
		printWarning("The server could not save the record; showing the unsaved result.")
		printSummary(s)
		return err
	}
	if err != nil {
		return err
	}
	printSuccess("%s", success)
	printSummary(s)
	return nil
}

// --- adjust ---

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Overwrite fields of the stored performance record",
	Long: `Overwrite fields of the stored performance record. Unset flags keep
their current value.

Examples:
  prepd adjust --difficulty medium
  prepd adjust --interviews 4 --accuracy 78.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{}
		if cmd.Flags().Changed("interviews") {
			v, _ := cmd.Flags().GetInt("interviews")
			body["interviewsCompleted"] = v
		}
		if cmd.Flags().Changed("tests") {
			v, _ := cmd.Flags().GetInt("tests")
			body["testsCompleted"] = v
		}
		if cmd.Flags().Changed("accuracy") {
			v, _ := cmd.Flags().GetFloat64("accuracy")
			body["averageAccuracy"] = v
		}
		if cmd.Flags().Changed("difficulty") {
			v, _ := cmd.Flags().GetString("difficulty")
			body["difficultyLevel"] = v
		}
		if len(body) == 0 {
			return fmt.Errorf("at least one of --interviews, --tests, --accuracy or --difficulty is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		s, err := client.summary(cmd.Context(), http.MethodPatch, "/performance", body)
		return reportSummary(s, err, "Record updated")
	},
}

func init() {
	adjustCmd.Flags().Int("interviews", 0, "interviews completed")
	adjustCmd.Flags().Int("tests", 0, "tests completed")
	adjustCmd.Flags().Float64("accuracy", 0, "average accuracy (0-100)")
	adjustCmd.Flags().String("difficulty", "", "difficulty level: easy, medium or hard")
}

// --- activities ---

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List recent interviews and tests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		breakdown, _ := cmd.Flags().GetBool("breakdown")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if breakdown {
			return printBreakdown(cmd.Context(), client)
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/activities?limit=%d", limit))
		if err != nil {
			return err
		}

		var activities []storage.Activity
		if err := decodeJSON(resp, &activities); err != nil {
			return err
		}

		if len(activities) == 0 {
			fmt.Println("No activities recorded.")
			return nil
		}

		for _, a := range activities {
			kind := a.Kind
			if a.Difficulty != "" {
				kind += " (" + a.Difficulty + ")"
			}
			fmt.Printf("%s  %-16s %6.2f%%\n",
				colorize(colorCyan, a.CreatedAt.Local().Format("2006-01-02 15:04")),
				kind,
				a.Accuracy,
			)
		}
		return nil
	},
}

func init() {
	activitiesCmd.Flags().Int("limit", 20, "maximum number of activities to list")
	activitiesCmd.Flags().Bool("breakdown", false, "show per-category statistics instead")
}

func printBreakdown(ctx context.Context, client *apiClient) error {
	resp, err := client.get(ctx, "/performance/breakdown")
	if err != nil {
		return err
	}

	var b performance.Breakdown
	if err := decodeJSON(resp, &b); err != nil {
		return err
	}

	row := func(label string, cs performance.CategoryStats) {
		if cs.Count == 0 {
			fmt.Printf("  %-12s %s\n", label, "none")
			return
		}
		fmt.Printf("  %-12s n=%-4d mean=%6.2f  sd=%5.2f  best=%6.2f  worst=%6.2f\n",
			label, cs.Count, cs.Mean, cs.StdDev, cs.Best, cs.Worst)
	}

	fmt.Println(colorize(colorBold, "Accuracy breakdown"))
	row("Interviews", b.Interviews)
	row("Tests", b.Tests)
	for _, d := range []performance.Difficulty{performance.Easy, performance.Medium, performance.Hard} {
		if cs, ok := b.ByDifficulty[d]; ok {
			row("  "+string(d), cs)
		}
	}
	row("Overall", b.Overall)
	if b.Overall.Count > 0 {
		fmt.Printf("  %-12s %6.2f\n", "Recent", b.RecentMean)
	}
	return nil
}

// --- attempts ---

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Submit or list coding attempts",
}

var attemptsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit code written during practice",
	Long: `Submit code written during practice. Reads --file, or stdin when
--file is omitted.

Examples:
  prepd attempts submit --language go --file ./solution.go
  pbpaste | prepd attempts submit --language python`,
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		file, _ := cmd.Flags().GetString("file")

		if language == "" {
			return fmt.Errorf("--language is required")
		}

		var code []byte
		var err error
		if file != "" {
			code, err = os.ReadFile(file)
		} else {
			code, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("reading code: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/coding-attempts", map[string]any{
			"language": language,
			"code":     string(code),
		})
		if err != nil {
			return err
		}

		var a storage.CodingAttempt
		if err := decodeJSON(resp, &a); err != nil {
			return err
		}

		printSuccess("Stored %s attempt %s", a.Language, a.ID)
		return nil
	},
}

var attemptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent coding attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/coding-attempts?limit=%d", limit))
		if err != nil {
			return err
		}

		var list []storage.CodingAttempt
		if err := decodeJSON(resp, &list); err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Println("No coding attempts found.")
			return nil
		}

		for _, a := range list {
			firstLine := strings.SplitN(strings.TrimSpace(a.Code), "\n", 2)[0]
			if len(firstLine) > 60 {
				firstLine = firstLine[:60] + "..."
			}
			fmt.Printf("%s  %s  %-10s %s\n",
				colorize(colorCyan, shortID(a.ID)),
				a.CreatedAt.Local().Format("2006-01-02 15:04"),
				a.Language,
				firstLine,
			)
		}
		return nil
	},
}

func init() {
	attemptsSubmitCmd.Flags().String("language", "", "programming language")
	attemptsSubmitCmd.Flags().String("file", "", "file containing the code (default: stdin)")
	attemptsListCmd.Flags().Int("limit", 20, "maximum number of attempts to list")
	attemptsCmd.AddCommand(attemptsSubmitCmd)
	attemptsCmd.AddCommand(attemptsListCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export or reset stored data",
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all stored data as JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var writer io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		}

		n, err := exportData(cmd.Context(), client, writer)
		if err != nil {
			return err
		}

		if output != "" {
			printSuccess("Exported %d records to %s", n, output)
		}
		return nil
	},
}

// exportData writes the performance record and the activity history as
// JSONL lines of {"type", "data"}, then the coding attempts.
func exportData(ctx context.Context, client *apiClient, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	count := 0

	s, err := client.summary(ctx, http.MethodGet, "/performance", nil)
	if err != nil {
		return count, err
	}
	if s.Record != nil {
		if err := enc.Encode(map[string]any{"type": "performance", "data": s.Record}); err != nil {
			return count, err
		}
		count++
	}

	offset := 0
	for {
		resp, err := client.get(ctx, fmt.Sprintf("/activities?limit=100&offset=%d", offset))
		if err != nil {
			return count, err
		}
		var activities []json.RawMessage
		if err := decodeJSON(resp, &activities); err != nil {
			return count, err
		}
		if len(activities) == 0 {
			break
		}
		for _, a := range activities {
			if err := enc.Encode(map[string]any{"type": "activity", "data": a}); err != nil {
				return count, err
			}
			count++
		}
		offset += len(activities)
	}

	resp, err := client.get(ctx, "/coding-attempts?limit=100")
	if err != nil {
		return count, err
	}
	var list []json.RawMessage
	if err := decodeJSON(resp, &list); err != nil {
		return count, err
	}
	for _, a := range list {
		if err := enc.Encode(map[string]any{"type": "coding_attempt", "data": a}); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

var dataResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the performance record, activity history and coding attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL stored data. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Deleting performance record and activities...")
		resp, err := client.delete(cmd.Context(), "/performance")
		if err != nil {
			return err
		}
		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printStep("Deleting coding attempts...")
		resp, err = client.delete(cmd.Context(), "/coding-attempts")
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("All data reset")
		return nil
	},
}

func init() {
	dataExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	dataResetCmd.Flags().Bool("confirm", false, "confirm data reset")
	dataCmd.AddCommand(dataExportCmd)
	dataCmd.AddCommand(dataResetCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: fmt.Sprintf(`Set a configuration value.

Valid keys: %s`, strings.Join(config.ValidKeys(), ", ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
