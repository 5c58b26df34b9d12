package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ofspectrum/apicheck/internal/appctx"
	"github.com/ofspectrum/apicheck/internal/output"
	"github.com/ofspectrum/apicheck/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app != nil && app.Output.EffectiveFormat() == output.FormatJSON {
				return app.Output.OK(map[string]string{
					"version": version.Version,
					"commit":  version.Commit,
					"date":    version.Date,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return nil
		},
	}
}
