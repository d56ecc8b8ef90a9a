package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/okian/overtime/internal/report"
	"github.com/spf13/cobra"
)

var (
	baseURL  string
	timeout  time.Duration
	noColor  bool
	query    report.Query
	summary  bool
	jsonMode bool
)

var rootCmd = &cobra.Command{
	Use:   "overtime-report",
	Short: "Print overtime records from a running overtime service",
	Long: `overtime-report queries the overtime HTTP API and prints per-person
overtime as a table, or the aggregate summary with --summary.`,
	Example: `  overtime-report --days 30
  overtime-report --mode source --window ytd --limit 10
  overtime-report --from 2024-05-01 --to 2024-05-31 --summary`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&baseURL, "url", report.DefaultBaseURL, "Base URL of the overtime service")
	f.DurationVar(&timeout, "timeout", report.DefaultTimeout, "HTTP request timeout")
	f.BoolVar(&noColor, "no-color", false, "Disable colored output")
	f.StringVar(&query.Mode, "mode", "", "Aggregation mode: roster or source (default: service setting)")
	f.StringVar(&query.Window, "window", "", "Window kind: trailing, ytd or range")
	f.IntVar(&query.Days, "days", 0, "Trailing window length in days")
	f.StringVar(&query.From, "from", "", "Range start (YYYY-MM-DD)")
	f.StringVar(&query.To, "to", "", "Range end (YYYY-MM-DD)")
	f.IntVar(&query.Limit, "limit", 0, "Show at most this many people")
	f.BoolVar(&summary, "summary", false, "Print the aggregate summary instead of records")
	f.BoolVar(&jsonMode, "json", false, "Print the raw API response as JSON")
	rootCmd.MarkFlagsRequiredTogether("from", "to")
}

func run(cmd *cobra.Command, _ []string) error {
	if noColor {
		color.NoColor = true
	}
	ctx := cmd.Context()
	client := report.NewClient(baseURL, timeout)
	out := cmd.OutOrStdout()

	if summary {
		s, err := client.Summary(ctx, query)
		if err != nil {
			return err
		}
		if jsonMode {
			return report.WriteJSON(out, s)
		}
		return report.RenderSummary(out, s)
	}

	o, err := client.Overtime(ctx, query)
	if err != nil {
		return err
	}
	if jsonMode {
		return report.WriteJSON(out, o)
	}
	return report.RenderOvertime(out, o)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		stop()
		os.Exit(1)
	}
}
