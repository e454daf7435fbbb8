package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/learnquest/learnquest/internal/app/engagement"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"dashboard"},
	Short:   "Show level, streak, badges and tasks in progress",
	RunE:    runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	dash, err := d.Engagement.Dashboard(cmd.Context(), uid)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return printJSON(out, dash)
	}
	fmt.Fprintln(out, renderDashboard(dash))
	return nil
}

func renderDashboard(dash *engagement.Dashboard) string {
	var b strings.Builder
	p := dash.Progress

	fmt.Fprintf(&b, "%s  %s\n", paint(titleStyle, dash.User.Username), paint(mutedStyle, string(dash.User.ID)))
	fmt.Fprintf(&b, "Level %d  %s  %d XP (%d to level %d)\n",
		p.Level, bar(p.Fraction, 20), dash.User.CurrentXP, p.XPToNext, p.Level+1)
	fmt.Fprintf(&b, "Streak: %s (best %s)\n", days(dash.Streak.CurrentStreak), days(dash.Streak.LongestStreak))

	if len(dash.Badges) > 0 {
		names := make([]string, 0, len(dash.Badges))
		for _, badge := range dash.Badges {
			names = append(names, badge.BadgeName)
		}
		fmt.Fprintf(&b, "Badges: %s\n", paint(accentStyle, strings.Join(names, ", ")))
	}

	minutes := 0
	for _, l := range dash.RecentLogs {
		minutes += l.TimeSpent
	}
	fmt.Fprintf(&b, "This week: %d sessions, %d minutes\n", len(dash.RecentLogs), minutes)

	if len(dash.TodayTasks) > 0 {
		b.WriteString("\nIn progress:\n")
		for _, t := range dash.TodayTasks {
			fmt.Fprintf(&b, "  • %s %s\n", t.Topic, paint(mutedStyle, fmt.Sprintf("(%s, week %d)", t.SubjectType, t.Week)))
		}
	}
	b.WriteString("\n" + paint(warningStyle, dash.MotivationalMessage))
	return boxed(b.String())
}
