package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/curio/internal/cli"
	"horse.fit/curio/internal/dedup"
)

func runMerge(args []string) int {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	primary := fs.String("primary", "", "External id of the record to keep as primary")
	title := fs.String("title", "", "Custom title for the consolidated record")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "merge requires at least two asset external ids")
		return 2
	}

	ctx, cancel, pool, service, err := connectService(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	cluster, err := service.ManualMerge(ctx, dedup.ManualMergeRequest{
		IDs:         fs.Args(),
		PrimaryID:   *primary,
		CustomTitle: *title,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Manual merge failed: %v\n", err)
		return 1
	}

	fmt.Printf("merged %d records into cluster %s\n", len(cluster.Duplicates)+1, cluster.ID)
	fmt.Printf("primary: %s\n", cluster.Primary.ID)
	fmt.Printf("title:   %s\n", cluster.Consolidated.Title)
	return 0
}
