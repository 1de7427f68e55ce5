package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/curio/internal/cli"
	"horse.fit/curio/internal/db"
)

func runSimilar(args []string) int {
	fs := flag.NewFlagSet("similar", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	minSimilarity := fs.Float64("min", 0, "Minimum similarity (0 uses the suggestion threshold)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "similar requires exactly one asset UUID")
		return 2
	}
	if *minSimilarity < 0 || *minSimilarity > 1 {
		fmt.Fprintln(os.Stderr, "--min must be between 0 and 1")
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

	assetUUID := strings.TrimSpace(fs.Arg(0))
	matches, err := service.Similar(ctx, assetUUID, *minSimilarity)
	if err != nil {
		if db.IsNoRows(err) {
			fmt.Fprintf(os.Stderr, "Asset %s not found\n", assetUUID)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Similar lookup failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(matches); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(matches) == 0 {
		fmt.Println("no similar assets")
		return 0
	}

	rows := make([][]string, 0, len(matches))
	for _, match := range matches {
		rows = append(rows, []string{
			match.AssetB,
			fmt.Sprintf("%.2f", match.Score),
			truncateForTable(strings.Join(match.Reasons, "; "), 64),
		})
	}
	if err := writeTable([]string{"asset", "similarity", "reasons"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	return 0
}
