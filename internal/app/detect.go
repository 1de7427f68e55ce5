package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/curio/internal/cli"
	"horse.fit/curio/internal/pipeline"
)

func runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	threshold := fs.Float64("threshold", 0, "Override the detection threshold (0 uses the configured value)")
	dryRun := fs.Bool("dry-run", false, "Compute clusters without persisting a run")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "detect does not accept positional arguments")
		return 2
	}
	if *threshold < 0 || *threshold > 1 {
		fmt.Fprintln(os.Stderr, "--threshold must be between 0 and 1")
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

	result, err := service.Detect(ctx, pipeline.DetectOptions{
		Threshold: *threshold,
		DryRun:    *dryRun,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Detection run failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("assets=%d clusters=%d unique=%d threshold=%.2f offloaded=%t\n",
		result.Assets, len(result.Result.Clusters), len(result.Result.Unique), result.Threshold, result.Offloaded)
	if result.RunUUID != "" {
		fmt.Printf("run=%s\n", result.RunUUID)
	}

	rows := make([][]string, 0, len(result.Result.Clusters))
	for _, cluster := range result.Result.Clusters {
		rows = append(rows, []string{
			cluster.ID,
			cluster.Primary.ID,
			fmt.Sprintf("%d", len(cluster.Duplicates)+1),
			fmt.Sprintf("%.2f", cluster.Similarity),
			truncateForTable(cluster.Consolidated.Title, 48),
		})
	}
	if len(rows) == 0 {
		fmt.Println("no duplicate clusters found")
		return 0
	}
	if err := writeTable([]string{"cluster", "primary", "members", "similarity", "title"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	return 0
}
