// Package commands implements the CLI commands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ofspectrum/apicheck/internal/api"
	"github.com/ofspectrum/apicheck/internal/appctx"
	"github.com/ofspectrum/apicheck/internal/config"
	"github.com/ofspectrum/apicheck/internal/creds"
	"github.com/ofspectrum/apicheck/internal/harness"
	"github.com/ofspectrum/apicheck/internal/ofspectrum"
	"github.com/ofspectrum/apicheck/internal/output"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var (
		baseURL    string
		scratchDir string
		urlOnly    bool
		sdkOnly    bool
		reportPath string
		jqExpr     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the acceptance checks against a live service",
		Long: `Run the full acceptance sequence against a live OfSpectrum service:
token listing, quota filtering, watermark encode/decode round-trip,
notebook and media operations, signed-URL redaction, cross-user
isolation, and credential rejection.

Each check runs exactly once, in both raw-HTTP and client-wrapper form.
Checks with an unmet prerequisite are recorded as skipped, not failed.

Examples:
  apicheck run                         # Run everything
  apicheck run --url-only              # Raw HTTP checks only
  apicheck run --report results.yaml   # Also write a report file
  apicheck run --json --jq '.checks[] | select(.status == "fail")'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}
			if urlOnly && sdkOnly {
				return output.ErrUsage("--url-only and --sdk-only are mutually exclusive")
			}

			cfg := app.Config
			config.ApplyOverrides(cfg, config.FlagOverrides{BaseURL: baseURL, ScratchDir: scratchDir})
			cfg.BaseURL = config.NormalizeBaseURL(cfg.BaseURL)

			// Resolve credentials before touching the network or the
			// scratch directory.
			keys, err := app.Creds.Resolve(cfg)
			if err != nil {
				return err
			}

			fx, err := harness.PrepareFixtures(cfg.ScratchDir)
			if err != nil {
				return fmt.Errorf("prepare fixtures: %w", err)
			}

			lock, err := harness.AcquireLock(cfg.ScratchDir)
			if err != nil {
				return err
			}
			defer lock.Release() //nolint:errcheck // Best-effort unlock

			return runChecks(cmd, app, keys, fx, runOptions{
				urlOnly:    urlOnly,
				sdkOnly:    sdkOnly,
				reportPath: reportPath,
				jqExpr:     jqExpr,
			})
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Service base URL (overrides config)")
	cmd.Flags().StringVar(&scratchDir, "scratch-dir", "", "Directory for fixture files (overrides config)")
	cmd.Flags().BoolVar(&urlOnly, "url-only", false, "Run only the raw HTTP checks")
	cmd.Flags().BoolVar(&sdkOnly, "sdk-only", false, "Run only the client-wrapper checks")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the report to a file (.json or .yaml)")
	cmd.Flags().StringVar(&jqExpr, "jq", "", "Filter the report through a jq expression")

	return cmd
}

type runOptions struct {
	urlOnly    bool
	sdkOnly    bool
	reportPath string
	jqExpr     string
}

func runChecks(cmd *cobra.Command, app *appctx.App, keys creds.Credentials, fx harness.Fixtures, opts runOptions) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	styled := app.Output.EffectiveFormat() == output.FormatStyled
	var r *output.Renderer
	var emit func(harness.Check)
	if styled {
		r = output.NewRenderer(w, app.Flags.Styled)
		emit = func(c harness.Check) { renderCheckStyled(w, r, c) }
	}
	report := harness.NewReport(emit)

	urlClient := api.NewClient(app.Config.BaseURL)
	urlClient.SetVerbose(app.Verbosity() > 1)
	defer urlClient.Close()

	sdkClient := ofspectrum.New(ofspectrum.Config{APIKey: keys.KeyA, BaseURL: app.Config.BaseURL})
	defer sdkClient.Close()

	runner := &harness.Runner{
		URL:      urlClient,
		SDK:      sdkClient,
		KeyA:     keys.KeyA,
		KeyB:     keys.KeyB,
		BaseURL:  app.Config.BaseURL,
		Fixtures: fx,
		Report:   report,
	}
	if styled && app.Verbosity() > 0 {
		runner.Notef = func(format string, args ...any) {
			fmt.Fprintf(w, "      %s\n", r.Muted.Render(fmt.Sprintf(format, args...)))
		}
	}

	if !opts.sdkOnly {
		if styled {
			fmt.Fprintln(w)
			fmt.Fprintln(w, r.Summary.Render("URL checks"))
		}
		runner.RunURL(ctx)
	}
	if !opts.urlOnly {
		if styled {
			fmt.Fprintln(w)
			fmt.Fprintln(w, r.Summary.Render("SDK checks"))
		}
		runner.RunSDK(ctx)
	}

	if opts.reportPath != "" {
		if err := writeReportFile(opts.reportPath, app.Config.BaseURL, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if opts.jqExpr != "" {
		if err := filterReport(ctx, w, opts.jqExpr, report); err != nil {
			return err
		}
	} else if styled {
		renderSummaryStyled(w, r, report)
	} else {
		if err := app.Output.OK(report, output.WithSummary(report.Summary())); err != nil {
			return err
		}
	}

	if report.Failed > 0 {
		return output.ErrChecksFailed(report.Failed, report.Attempted())
	}
	return nil
}

// reportFile is the on-disk report shape.
type reportFile struct {
	GeneratedAt string `json:"generated_at" yaml:"generated_at"`
	BaseURL     string `json:"base_url" yaml:"base_url"`

	harness.Report `yaml:",inline"`
}

func writeReportFile(path, baseURL string, report *harness.Report) error {
	out := reportFile{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		BaseURL:     baseURL,
		Report:      *report,
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(out)
	default:
		data, err = json.MarshalIndent(out, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644) //nolint:gosec // G306: report is not sensitive
}

// filterReport runs the report through a jq expression and prints each
// result as JSON.
func filterReport(ctx context.Context, w io.Writer, expr string, report *harness.Report) error {
	query, err := gojq.Parse(expr)
	if err != nil {
		return output.ErrUsage(fmt.Sprintf("Invalid jq expression: %v", err))
	}

	// gojq operates on plain any values; round-trip through JSON.
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	iter := query.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return output.ErrUsage(fmt.Sprintf("jq: %v", err))
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

// renderCheckStyled outputs one check line for TTY output.
func renderCheckStyled(w io.Writer, r *output.Renderer, c harness.Check) {
	var icon string
	var msgStyle lipgloss.Style
	switch c.Status {
	case harness.StatusPass:
		icon = r.Success.Render("✓")
		msgStyle = r.Success
	case harness.StatusFail:
		icon = r.Error.Render("✗")
		msgStyle = r.Error
	case harness.StatusWarn:
		icon = r.Warning.Render("!")
		msgStyle = r.Warning
	case harness.StatusSkip:
		icon = r.Muted.Render("○")
		msgStyle = r.Muted
	}

	nameStyle := lipgloss.NewStyle().Bold(true)
	fmt.Fprintf(w, "  %s %s %s\n", icon, nameStyle.Render(c.Name), msgStyle.Render(c.Message))
}

// renderSummaryStyled outputs the closing summary for TTY output.
func renderSummaryStyled(w io.Writer, r *output.Renderer, report *harness.Report) {
	fmt.Fprintln(w)

	var parts []string
	if report.Passed > 0 {
		parts = append(parts, r.Success.Render(fmt.Sprintf("%d passed", report.Passed)))
	}
	if report.Failed > 0 {
		parts = append(parts, r.Error.Render(fmt.Sprintf("%d failed", report.Failed)))
	}
	if report.Warned > 0 {
		parts = append(parts, r.Warning.Render(fmt.Sprintf("%d warnings", report.Warned)))
	}
	if report.Skipped > 0 {
		parts = append(parts, r.Muted.Render(fmt.Sprintf("%d skipped", report.Skipped)))
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  "))

	if report.Attempted() > 0 {
		fmt.Fprintf(w, "  %s\n", r.Muted.Render(fmt.Sprintf("Pass rate: %.1f%%", report.PassRate())))
	}
	fmt.Fprintln(w)
}
