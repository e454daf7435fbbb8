// Package cli implements the learnquest command-line interface using Cobra.
// Each subcommand runs one operation against the local store and exits.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/learnquest/learnquest/internal/daemon"
	"github.com/learnquest/learnquest/internal/domain"
)

var (
	flagUser string
	flagJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "learnquest",
	Short: "learnquest: level up your self-study",
	Long: `learnquest turns study sessions into XP, levels, streaks and badges.
Log sessions, track a weekly learning plan and ask the coach what to do next.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "Learner ID (defaults to user.default_id from config)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print machine-readable JSON")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	daemon.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDaemon loads config, opens the store and makes sure the learner
// exists. Callers must Close the daemon.
func openDaemon(ctx context.Context) (*daemon.Daemon, domain.UserID, error) {
	d, err := daemon.New()
	if err != nil {
		return nil, "", err
	}
	uid := domain.UserID(flagUser)
	name := flagUser
	if uid == "" {
		uid = domain.UserID(d.Config.User.DefaultID)
		name = d.Config.User.DefaultName
	}
	if _, err := d.Engagement.EnsureUser(ctx, uid, name); err != nil {
		d.Close()
		return nil, "", err
	}
	return d, uid, nil
}
