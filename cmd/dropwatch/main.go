// Package main provides the dropwatch CLI application.
//
// dropwatch watches a directory for files arriving with configured
// extensions, hands each one to a processing step and removes it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("dropwatch", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "path to configuration file")
	showVersion := fs.Bool("version", false, "show version information")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return showUsage(out)
		}
		return err
	}

	if *showVersion {
		fmt.Fprintf(out, "dropwatch %s\n", version)
		return nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return showUsage(out)
	}

	switch command := rest[0]; command {
	case "watch":
		return runWatchCommand(*configPath, rest[1:], out)
	case "config":
		cmd := &configCommand{configPath: *configPath, out: out}
		return cmd.Execute(rest[1:])
	case "help":
		return showUsage(out)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// showUsage displays usage information.
func showUsage(out io.Writer) error {
	usage := `dropwatch - process files dropped into a directory

Usage:
  dropwatch [flags] <command> [command flags]

Commands:
  watch       Watch a directory and process arriving files
  config      Configuration management (show, path, init)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Watch Command Flags:
  -dir        Directory to watch (created if missing)
  -ext        Comma-separated extensions (e.g. dat,csv)
  -duration   Stop after this long (default: until interrupted)
  -remove     Remove files after processing (default: from config)
  -delay      Simulated processing time per file
  -backend    Notification backend (native, portable)
  -queue      Dispatch queue length (0 processes in the watch loop)
  -backlog    Process files already in the directory before watching
  -stats-interval  Print statistics periodically (e.g. 10s)
  -format     Statistics format: table, json, simple (default: simple)

Environment:
  DROPWATCH_DIR, DROPWATCH_EXTENSIONS, DROPWATCH_BACKEND, DROPWATCH_LOG_LEVEL

Examples:
  # Watch the configured directory until Ctrl+C
  dropwatch watch

  # Watch /data/inbox for .dat files for five minutes
  dropwatch watch -dir /data/inbox -ext dat -duration 5m

  # Drain existing files, then report throughput every 10 seconds
  dropwatch watch -backlog -stats-interval 10s -format table

  # Keep processed files
  dropwatch watch -remove=false

  # Write a default configuration file
  dropwatch config init

Version: %s
`

	fmt.Fprintf(out, usage, version)
	return nil
}
