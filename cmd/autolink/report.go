package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/autolink/autolink/internal/report"
	"github.com/autolink/autolink/internal/service"
	"github.com/spf13/cobra"
)

type reportOptions struct {
	scanLog string
	since   time.Duration
	source  string
	top     int
	format  string
	outPath string
}

func newReportCmd() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a scan log",
		Long: "Summarize the JSONL scan log written by serve: outcomes, matches per category, " +
			"diagnostic codes, rate-limited clients and scan latency.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.scanLog == "" {
				return errors.New("scan log path is required (--in)")
			}
			switch opts.source {
			case "", service.SourceHTTP, service.SourceWebsocket:
			default:
				return fmt.Errorf("unknown source %q", opts.source)
			}

			reader := report.Reader{Source: opts.source}
			if opts.since > 0 {
				reader.Since = time.Now().Add(-opts.since)
			}
			records, err := reader.Read(opts.scanLog)
			if err != nil {
				return fmt.Errorf("read scan log: %w", err)
			}

			out, err := renderSummary(opts.format, report.SummarizeTop(records, opts.top))
			if err != nil {
				return err
			}
			return report.WriteOutput(opts.outPath, out)
		},
	}

	cmd.Flags().StringVar(&opts.scanLog, "in", "", "Path to the scan log (logging.scanLog)")
	cmd.Flags().DurationVar(&opts.since, "since", 0, "Only include scans newer than this duration (e.g. 10m)")
	cmd.Flags().StringVar(&opts.source, "source", "", "Only include scans served over http or websocket")
	cmd.Flags().IntVar(&opts.top, "top", report.DefaultTop, "Entries in the top categories, diagnostics and clients lists")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text|md|json")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "Output file path (default stdout)")

	return cmd
}

func renderSummary(format string, summary report.Summary) ([]byte, error) {
	switch format {
	case "", "text":
		return []byte(report.RenderText(summary)), nil
	case "md":
		return []byte(report.RenderMarkdown(summary)), nil
	case "json":
		return report.RenderJSON(summary)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
