package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/report"
)

// newAnalyzeCmd creates the 'analyze' subcommand: a one-shot scrape and
// analysis of a single URL, printed to stdout or a file.
func newAnalyzeCmd() *cobra.Command {
	var (
		format      string
		output      string
		onStepError string
	)

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Scrape one URL and print its analysis report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger()
			pageURL := args[0]

			runner, err := appInstance.RunnerFactory()(onStepError)
			if err != nil {
				return fmt.Errorf("configure pipeline: %w", err)
			}

			text := appInstance.Scraper().Scrape(cmd.Context(), pageURL)
			if text == "" {
				logger.Warn("scrape produced no content; analyzing empty page", zap.String("url", pageURL))
			}

			result, runErr := runner.Execute(cmd.Context(), analysis.NewRecord(pageURL, text))

			reportID, err := appInstance.IDs().NewID()
			if err != nil {
				return fmt.Errorf("generate report id: %w", err)
			}
			rep := analysis.Report{
				ID:        reportID,
				URL:       pageURL,
				CreatedAt: appInstance.Clock().Now(),
				Record:    result.Record,
				Steps:     result.Steps,
			}

			if err := writeReport(rep, format, output); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("analysis incomplete: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&onStepError, "on-step-error", "", "override the step failure policy: abort or continue")

	return cmd
}

func writeReport(rep analysis.Report, format, output string) error {
	var out io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "markdown":
		if _, err := report.NewMarkdownWriter(out).Write(rep); err != nil {
			return fmt.Errorf("render markdown report: %w", err)
		}
	case "json":
		if _, err := report.NewJSONWriter(out).Write(rep); err != nil {
			return fmt.Errorf("render json report: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}
