package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/learnquest/learnquest/internal/infra/keyring"
)

func init() {
	keyringCmd.AddCommand(keyringSetCmd, keyringClearCmd, keyringStatusCmd)
	rootCmd.AddCommand(keyringCmd)
}

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Store the PostgreSQL connection string in the OS keyring",
	Long: `Store the PostgreSQL connection string in the OS keyring instead of config.toml.
Set storage.use_keyring = true to read it from there.`,
}

var keyringSetCmd = &cobra.Command{
	Use:   "set [dsn]",
	Short: "Save a connection string (read from stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKeyringSet,
}

var keyringClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored connection string",
	Args:  cobra.NoArgs,
	RunE:  runKeyringClear,
}

var keyringStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a connection string is stored",
	Args:  cobra.NoArgs,
	RunE:  runKeyringStatus,
}

func runKeyringSet(cmd *cobra.Command, args []string) error {
	var dsn string
	if len(args) == 1 {
		dsn = args[0]
	} else {
		fmt.Fprint(cmd.ErrOrStderr(), "PostgreSQL DSN: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read DSN: %w", err)
		}
		dsn = line
	}
	dsn = strings.TrimSpace(dsn)
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") && !strings.Contains(dsn, "=") {
		return errors.New("DSN must be a postgres:// URL or key=value connection string")
	}

	if err := keyring.SetDSN(dsn); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Connection string saved to the OS keyring.")
	return nil
}

func runKeyringClear(cmd *cobra.Command, args []string) error {
	err := keyring.DeleteDSN()
	if errors.Is(err, keyring.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing stored.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Connection string removed.")
	return nil
}

func runKeyringStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !keyring.IsAvailable() {
		fmt.Fprintln(out, "OS keyring is not available on this system.")
		return nil
	}
	_, err := keyring.GetDSN()
	switch {
	case err == nil:
		fmt.Fprintln(out, "A connection string is stored.")
	case errors.Is(err, keyring.ErrNotFound):
		fmt.Fprintln(out, "No connection string stored.")
	default:
		return err
	}
	return nil
}
