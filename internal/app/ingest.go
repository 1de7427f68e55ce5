package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"horse.fit/curio/internal/cli"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "ingest requires at least one JSON file path (use - for stdin)")
		return 2
	}

	ctx, cancel, pool, service, err := connectService(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	failures := 0
	for _, path := range fs.Args() {
		var raw []byte
		var readErr error
		if path == "-" {
			raw, readErr = io.ReadAll(os.Stdin)
		} else {
			raw, readErr = os.ReadFile(path)
		}
		if readErr != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, readErr)
			failures++
			continue
		}

		result, err := service.IngestAsset(ctx, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			failures++
			continue
		}

		fmt.Printf("OK   %s -> %s (lang=%s)\n", result.ExternalID, result.AssetUUID, result.Language)
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed to ingest\n", failures, fs.NArg())
		return 1
	}
	return 0
}
