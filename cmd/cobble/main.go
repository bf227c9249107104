// Package main provides the cobble CLI application.
//
// Cobble builds C and C++ projects described by small build files and
// keeps them built: after the first build it watches every source, header
// and build file and recompiles only what an edit affects.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// version is set during build time.
var version = "dev"

// stdout receives command output.
var stdout io.Writer = os.Stdout

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run(args []string) error {
	fs := flag.NewFlagSet("cobble", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	showVersion := fs.Bool("version", false, "show version information")
	fs.Usage = func() { _ = showUsage() }

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "cobble %s\n", version)
		return nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return showUsage()
	}

	command := rest[0]

	switch command {
	case "watch":
		return runWatchCommand(*configPath, rest[1:])
	case "build":
		return runBuildCommand(*configPath, rest[1:])
	case "history":
		return runHistoryCommand(*configPath, rest[1:])
	case "schema":
		return runSchemaCommand()
	case "config":
		cmd := &configCommand{configPath: *configPath}
		return cmd.Execute(rest[1:])
	case "version":
		fmt.Fprintf(stdout, "cobble %s\n", version)
		return nil
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// showUsage displays usage information.
func showUsage() error {
	usage := `Cobble - incremental C/C++ builds that follow your edits

Usage:
  cobble [flags] <command> [command flags] [build files...]

Commands:
  watch       Build, then rebuild whatever an edit affects until interrupted
  build       Build once and exit
  history     Show recorded compiles, links and copies
  schema      Print the JSON schema of build files
  config      Configuration management (show, path, init)
  version     Show version information
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Watch and Build Flags:
  -v          Verbose logging
  -release    Build the release variant
  -t          Scratch directory for object files (default: a fresh temp dir)
  -m          Target platform: win32, darwin, linux, wasm (default: host)
  -link-mode  serialized or concurrent (default: serialized)

History Flags:
  -limit      Number of records to show (default: 20, 0 for all)
  -format     Output format (table, json, simple)
  -failed     Only show failures
  -target     Only show one build
  -output     Include captured compiler output
  -percentiles Show duration percentiles in the summary

When no build files are given, build.yaml, build.yml, build.json and
build.toml files are searched for below the current directory.

Examples:
  # Keep the project in the current directory built
  cobble watch

  # Build a release for the web once
  cobble build -release -m wasm app/build.yaml

  # Show the last failures with compiler output
  cobble history -failed -output

Version: %s
`

	fmt.Fprintf(stdout, usage, version)
	return nil
}
