package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/learnquest/learnquest/internal/domain"
)

// suggestionLogs is how many recent sessions a daily suggestion considers.
const suggestionLogs = 10

func init() {
	coachCmd.AddCommand(coachAnalyzeCmd, coachSuggestCmd)
	rootCmd.AddCommand(coachCmd)
}

var coachCmd = &cobra.Command{
	Use:   "coach",
	Short: "Ask the study coach for feedback",
}

var coachAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze your study patterns",
	Args:  cobra.NoArgs,
	RunE:  runCoachAnalyze,
}

var coachSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Get a suggestion for today",
	Args:  cobra.NoArgs,
	RunE:  runCoachSuggest,
}

func runCoachAnalyze(cmd *cobra.Command, args []string) error {
	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	req, err := d.Engagement.CoachInput(cmd.Context(), uid, 0)
	if err != nil {
		return err
	}
	report := d.Coach.Analyze(cmd.Context(), req)

	out := cmd.OutOrStdout()
	if flagJSON {
		return printJSON(out, report)
	}

	var p domain.Patterns
	if report.Patterns != nil {
		p = *report.Patterns
	}
	fmt.Fprintln(out, paint(titleStyle, "Patterns"))
	fmt.Fprintf(out, "  %d sessions, %d minutes, %.1f min/session, difficulty %.1f, consistency %.1f%%\n",
		p.TotalSessions, p.TotalStudyTime, p.AvgTimePerSession, p.AvgDifficulty, p.ConsistencyScore)
	if p.BurnoutRisk {
		fmt.Fprintln(out, "  "+paint(warningStyle, "Burnout risk: several long, hard sessions recently"))
	}
	if p.SkipDetection {
		fmt.Fprintln(out, "  "+paint(warningStyle, "Gaps of more than three days between sessions"))
	}
	if len(report.WeakSubjects) > 0 {
		parts := make([]string, 0, len(report.WeakSubjects))
		for _, ws := range report.WeakSubjects {
			parts = append(parts, fmt.Sprintf("%s %.1f%%", ws.Subject, ws.CompletionRate))
		}
		fmt.Fprintf(out, "  Weak subjects: %s\n", strings.Join(parts, ", "))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, boxed(report.Coaching))
	if !report.Success && report.Error != "" {
		fmt.Fprintln(out, paint(mutedStyle, "coach: "+report.Error))
	}
	return nil
}

func runCoachSuggest(cmd *cobra.Command, args []string) error {
	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	req, err := d.Engagement.CoachInput(cmd.Context(), uid, suggestionLogs)
	if err != nil {
		return err
	}
	sug := d.Coach.DailySuggestion(cmd.Context(), req)

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), sug)
	}
	fmt.Fprintln(cmd.OutOrStdout(), paint(accentStyle, "Today: ")+sug.Suggestion)
	return nil
}
