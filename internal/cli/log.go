package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/learnquest/learnquest/internal/app/engagement"
)

func init() {
	f := logCmd.Flags()
	f.IntVarP(&logInput.TimeSpent, "minutes", "m", 0, "Minutes studied")
	f.IntVarP(&logInput.Difficulty, "difficulty", "d", 0, "Difficulty from 1 (easy) to 5 (hard)")
	f.StringVar(&logInput.Mood, "mood", "", "How you felt")
	f.StringVar(&logInput.Energy, "energy", "", "Energy level")
	f.StringVar(&logInput.FreelanceLoad, "load", "", "Freelance or work load that day")
	f.StringVar(&logInput.Notes, "notes", "", "Free-form notes")
	_ = logCmd.MarkFlagRequired("minutes")
	_ = logCmd.MarkFlagRequired("difficulty")
	rootCmd.AddCommand(logCmd)
}

var logInput engagement.SessionInput

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Record a study session and earn XP",
	Example: `  learnquest log --minutes 90 --difficulty 4 --notes "binary trees"`,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Engagement.LogStudy(cmd.Context(), uid, logInput)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return printJSON(out, res)
	}

	fmt.Fprintf(out, "%s %d minutes at difficulty %d\n",
		paint(successStyle, "Logged"), res.Log.TimeSpent, res.Log.Difficulty)
	fmt.Fprintf(out, "  +%d XP  →  %d XP, level %d\n", res.XPEarned, res.NewXP, res.NewLevel)
	if res.LeveledUp {
		fmt.Fprintln(out, "  "+paint(titleStyle, fmt.Sprintf("Level up! You reached level %d.", res.NewLevel)))
	}
	fmt.Fprintf(out, "  Streak: %s\n", days(res.NewStreak))
	if len(res.NewBadges) > 0 {
		fmt.Fprintf(out, "  New badges: %s\n", paint(accentStyle, strings.Join(res.NewBadges, ", ")))
	}
	return nil
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
