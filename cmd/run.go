package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
	"github.com/xkilldash9x/scalpel-qa/internal/observability"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type runOptions struct {
	url          string
	instructions string
	device       string
	wait         int
	screenshots  bool
	output       string
	format       string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one plain-language test against a page and print the report",
		Long: `Opens the target page in a headless browser, asks the reasoning service to
turn the instructions into browser actions, executes them and verifies the
outcome. The full run report is written as JSON or YAML.

The command exits non-zero when the run does not succeed.`,
		Example: `  scalpel-qa run --url https://example.com --instructions "Find my IP address"
  scalpel-qa run --url https://example.com --instructions "Search for golang" --device mobile --format yaml -o report.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg, opts, cmd.OutOrStdout(), observability.GetLogger())
		},
	}

	flags := runCmd.Flags()
	flags.StringVarP(&opts.url, "url", "u", "", "Target page URL (http or https)")
	flags.StringVarP(&opts.instructions, "instructions", "i", "", "Plain-language test instructions")
	flags.StringVar(&opts.device, "device", string(schemas.DeviceDesktop), "Device profile: desktop, mobile or tablet")
	flags.IntVar(&opts.wait, "wait", 0, "Seconds to let the page settle after navigation (0 uses the configured default)")
	flags.BoolVar(&opts.screenshots, "screenshots", true, "Capture checkpoint screenshots")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	flags.StringVarP(&opts.format, "format", "f", formatJSON, "Report format: json or yaml")
	_ = runCmd.MarkFlagRequired("url")
	_ = runCmd.MarkFlagRequired("instructions")

	return runCmd
}

func (o *runOptions) request() schemas.RunRequest {
	return schemas.RunRequest{
		TargetURL:    o.url,
		Instructions: o.instructions,
		Options: schemas.RunOptions{
			WaitSeconds:        o.wait,
			CaptureScreenshots: o.screenshots,
			DeviceProfile:      schemas.DeviceProfile(strings.ToLower(o.device)),
		},
	}
}

// runOnce executes a single run and writes its report. Everything that can be
// checked without a browser is checked first.
func runOnce(ctx context.Context, cfg *config.Config, opts *runOptions, stdout io.Writer, logger *zap.Logger) error {
	format := strings.ToLower(opts.format)
	if format != formatJSON && format != formatYAML {
		return fmt.Errorf("%w: unsupported report format %q (use json or yaml)", schemas.ErrConfiguration, opts.format)
	}

	req := opts.request()
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", schemas.ErrConfiguration, err)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}

	comps, err := assemble(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := comps.close(); cerr != nil {
			logger.Warn("Failed to close reasoning client.", zap.Error(cerr))
		}
	}()

	runID := uuid.New().String()
	report, runErr := comps.runner.Run(ctx, runID, req)
	if report != nil {
		if err := emitReport(report, format, opts.output, stdout); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if report.Status != schemas.RunSuccess {
		return fmt.Errorf("run %s finished with status %s: %s", runID, report.Status, report.Message)
	}
	return nil
}

// emitReport writes the report to path, or to stdout when path is empty.
func emitReport(report *schemas.RunReport, format, path string, stdout io.Writer) error {
	if path == "" {
		return writeReport(stdout, report, format)
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand output path '%s': %w", path, err)
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory '%s': %w", dir, err)
		}
	}

	f, err := os.Create(expanded)
	if err != nil {
		return fmt.Errorf("failed to create report file '%s': %w", expanded, err)
	}
	if err := writeReport(f, report, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file '%s': %w", expanded, err)
	}
	fmt.Fprintf(stdout, "Report written to %s\n", expanded)
	return nil
}

func writeReport(w io.Writer, report *schemas.RunReport, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report as yaml: %w", err)
		}
		return enc.Close()
	default:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report as json: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}
}
