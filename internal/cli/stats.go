package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"analytics"},
	Short:   "Show study totals and plan progress by subject",
	RunE:    runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Engagement.Analytics(cmd.Context(), uid)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return printJSON(out, s)
	}

	fmt.Fprintln(out, paint(titleStyle, "Study"))
	fmt.Fprintf(out, "  Sessions: %d   Minutes: %d   Session XP: %d   Avg difficulty: %.1f\n",
		s.TotalSessions, s.TotalMinutes, s.SessionXP, s.AvgDifficulty)
	fmt.Fprintf(out, "  Level %d with %d XP\n\n", s.CurrentLevel, s.CurrentXP)

	fmt.Fprintln(out, paint(titleStyle, "Plan"))
	fmt.Fprintf(out, "  %s %d%% (%d/%d tasks)\n",
		bar(float64(s.CompletionPercentage)/100, 20), s.CompletionPercentage, s.CompletedTasks, s.TotalTasks)

	subjects := make([]string, 0, len(s.SubjectBreakdown))
	for name := range s.SubjectBreakdown {
		subjects = append(subjects, name)
	}
	sort.Strings(subjects)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, name := range subjects {
		p := s.SubjectBreakdown[name]
		fmt.Fprintf(w, "  %s\t%d/%d\t%s\n", name, p.Completed, p.Total, bar(p.Rate(), 10))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(s.WeakSubjects) > 0 {
		fmt.Fprintf(out, "\n%s %s\n", paint(warningStyle, "Needs attention:"), strings.Join(s.WeakSubjects, ", "))
	}
	return nil
}
