package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/nullcatalyst/cobble/pkg/config"
	"gopkg.in/yaml.v3"
)

// configCommand handles configuration management subcommands.
type configCommand struct {
	configPath string
}

// Execute runs the config command with given arguments.
func (c *configCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "show":
		return c.runShow(args[1:])
	case "path":
		return c.runPath()
	case "init":
		return c.runInit(args[1:])
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown config subcommand: %s", args[0])
	}
}

// runShow prints the effective configuration after file and environment
// overrides.
func (c *configCommand) runShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	format := fs.String("format", "yaml", "output format (yaml, json)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch *format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintln(stdout, string(data))
	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintf(stdout, "# Source: %s\n", c.source())
		fmt.Fprint(stdout, string(data))
	default:
		return fmt.Errorf("unknown format: %s", *format)
	}
	return nil
}

func (c *configCommand) runPath() error {
	fmt.Fprintln(stdout, "Configuration file search paths (in order of precedence):")
	fmt.Fprintln(stdout)

	for i, p := range c.candidates() {
		exists := "not found"
		if _, err := os.Stat(p); err == nil {
			exists = "found"
		}
		fmt.Fprintf(stdout, "  %d. %s [%s]\n", i+1, p, exists)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Active configuration:", c.source())
	return nil
}

// runInit writes the default configuration.
func (c *configCommand) runInit(args []string) error {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	force := fs.Bool("force", false, "overwrite an existing file")
	output := fs.String("output", config.DefaultPath(), "output path for the config file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*output); err == nil && !*force {
		return fmt.Errorf("configuration file already exists at %s (use -force to overwrite)", *output)
	}

	if err := config.Save(config.Default(), *output); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Default configuration written to: %s\n", *output)
	return nil
}

func (c *configCommand) candidates() []string {
	if c.configPath != "" {
		return []string{c.configPath}
	}
	return config.SearchPaths()
}

// source returns the path of the active configuration file.
func (c *configCommand) source() string {
	if p := config.NewLoader(c.configPath).Path(); p != "" {
		return p
	}
	return "defaults (no config file found)"
}

func (c *configCommand) showHelp() error {
	help := `Config - Configuration management

Usage:
  cobble config <subcommand> [flags]

Subcommands:
  show      Display the effective configuration
  path      Show configuration file paths
  init      Write the default configuration

Show Flags:
  -format   Output format (yaml, json) (default: yaml)

Init Flags:
  -force    Overwrite an existing file
  -output   Output path for the config file

Environment:
  COBBLE_LOG_LEVEL, COBBLE_TMP_DIR, COBBLE_JOURNAL_DB, COBBLE_CC and
  COBBLE_LINK_MODE override the file.
`
	fmt.Fprint(stdout, help)
	return nil
}
