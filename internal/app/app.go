// Package app implements the curio CLI commands.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "detect":
		return runDetect(args[1:])
	case "suggest":
		return runSuggest(args[1:])
	case "similar":
		return runSimilar(args[1:])
	case "merge":
		return runMerge(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "curio CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  curio <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  validate  Validate asset JSON files against the v1 schema")
	fmt.Fprintln(os.Stderr, "  ingest    Insert or refresh asset records from JSON files")
	fmt.Fprintln(os.Stderr, "  detect    Run duplicate detection over the catalog")
	fmt.Fprintln(os.Stderr, "  suggest   List merge suggestions below the detection threshold")
	fmt.Fprintln(os.Stderr, "  similar   Find records similar to one asset")
	fmt.Fprintln(os.Stderr, "  merge     Manually merge asset records into one cluster")
	fmt.Fprintln(os.Stderr, "  stats     Show catalog and detection run counters")
	fmt.Fprintln(os.Stderr, "  serve     Start the Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"curio <command> -h\" for command-specific flags.")
}
