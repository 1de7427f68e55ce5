package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/curio/internal/cli"
)

func runSuggest(args []string) int {
	fs := flag.NewFlagSet("suggest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	threshold := fs.Float64("threshold", 0, "Override the suggestion threshold (0 keeps the configured value)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "suggest does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}
	if *threshold < 0 || *threshold > 1 {
		fmt.Fprintln(os.Stderr, "Threshold must be between 0 and 1")
		return 2
	}

	ctx, cancel, pool, service, err := connectService(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	result, err := service.Suggestions(ctx, *threshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to compute suggestions: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(result.Clusters) == 0 {
		fmt.Println("no merge suggestions")
		return 0
	}

	rows := make([][]string, 0, len(result.Clusters))
	for _, cluster := range result.Clusters {
		members := make([]string, 0, len(cluster.Duplicates)+1)
		members = append(members, cluster.Primary.ID)
		for _, duplicate := range cluster.Duplicates {
			members = append(members, duplicate.ID)
		}
		rows = append(rows, []string{
			strings.Join(members, ","),
			fmt.Sprintf("%.2f", cluster.Similarity),
			truncateForTable(strings.Join(cluster.MatchReasons, "; "), 64),
		})
	}
	if err := writeTable([]string{"members", "similarity", "reasons"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	return 0
}
