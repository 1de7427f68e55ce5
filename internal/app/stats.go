package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/curio/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, service, err := connectService(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	stats, err := service.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := [][]string{
		{"assets", fmt.Sprintf("%d", stats.Assets)},
		{"clusters", fmt.Sprintf("%d", stats.Clusters)},
		{"manual_clusters", fmt.Sprintf("%d", stats.ManualClusters)},
		{"clustered_assets", fmt.Sprintf("%d", stats.ClusteredAssets)},
	}
	if stats.LastRunUUID != nil {
		rows = append(rows, []string{"last_run", *stats.LastRunUUID})
	}
	if stats.LastRunStatus != nil {
		rows = append(rows, []string{"last_run_status", *stats.LastRunStatus})
	}
	if stats.LastRunAt != nil {
		rows = append(rows, []string{"last_run_at", stats.LastRunAt.UTC().Format(time.RFC3339)})
	}
	if stats.LastThreshold != nil {
		rows = append(rows, []string{"last_threshold", fmt.Sprintf("%.2f", *stats.LastThreshold)})
	}

	if err := writeTable([]string{"metric", "value"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	return 0
}
