package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/learnquest/learnquest/internal/daemon"
)

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config.toml")
	rootCmd.AddCommand(initCmd)
}

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config and create the learner profile",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := daemon.ConfigPath()
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil && !initForce:
		fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s (use --force to overwrite)\n", path)
	default:
		if err := daemon.SaveConfig(daemon.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	}

	d, uid, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	n, err := d.Store.CountTasks(cmd.Context(), uid)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Learner %s ready with %d plan tasks. Run 'learnquest log' after your next session.\n",
		paint(accentStyle, string(uid)), n)
	return nil
}
