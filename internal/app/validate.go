package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	payloadschema "horse.fit/curio/schema"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "validate requires at least one JSON file path")
		return 2
	}

	failures := 0
	for _, path := range fs.Args() {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			failures++
			continue
		}

		asset, err := payloadschema.ValidateAssetPayload(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			failures++
			continue
		}

		fmt.Printf("OK   %s (asset_id=%s)\n", path, asset.AssetID)
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed validation\n", failures, fs.NArg())
		return 1
	}
	return 0
}
