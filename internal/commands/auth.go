package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ofspectrum/apicheck/internal/appctx"
	"github.com/ofspectrum/apicheck/internal/creds"
	"github.com/ofspectrum/apicheck/internal/output"
)

// NewAuthCmd creates the auth command group for managing stored keys.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage API keys in the system keyring",
		Long: `Store or remove the two bearer keys in the system keyring.

Environment variables (APICHECK_API_KEY_A, APICHECK_API_KEY_B) always
take precedence over keyring entries.`,
	}

	cmd.AddCommand(newAuthSetCmd())
	cmd.AddCommand(newAuthClearCmd())
	cmd.AddCommand(newAuthStatusCmd())

	return cmd
}

func newAuthSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <a|b>",
		Short: "Store an API key in the keyring (reads the key from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			entry, err := entryForUser(args[0])
			if err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			line, _ := reader.ReadString('\n')
			key := strings.TrimSpace(line)
			if key == "" {
				return output.ErrUsage("No key provided on stdin")
			}

			if err := app.Creds.Save(entry, key); err != nil {
				return err
			}
			return app.Output.OK(map[string]string{"stored": entry})
		},
	}
}

func newAuthClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <a|b>",
		Short: "Remove an API key from the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			entry, err := entryForUser(args[0])
			if err != nil {
				return err
			}

			if err := app.Creds.Delete(entry); err != nil {
				return err
			}
			return app.Output.OK(map[string]string{"cleared": entry})
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credentials resolve and from where",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			status := map[string]string{
				"key_a":   credSource(app.Config.APIKeyA != "", app.Creds.UsingKeyring()),
				"key_b":   credSource(app.Config.APIKeyB != "", app.Creds.UsingKeyring()),
				"keyring": fmt.Sprintf("%v", app.Creds.UsingKeyring()),
			}
			return app.Output.OK(status)
		},
	}
}

func entryForUser(arg string) (string, error) {
	switch strings.ToLower(arg) {
	case "a":
		return creds.KeyUserA, nil
	case "b":
		return creds.KeyUserB, nil
	}
	return "", output.ErrUsage(fmt.Sprintf("Unknown user %q (expected \"a\" or \"b\")", arg))
}

func credSource(fromEnv, keyringEnabled bool) string {
	if fromEnv {
		return "env"
	}
	if keyringEnabled {
		return "keyring (if stored)"
	}
	return "missing"
}
