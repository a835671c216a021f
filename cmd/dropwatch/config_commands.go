package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/0xmhha/dropwatch/pkg/config"
)

// configCommand handles configuration management subcommands.
type configCommand struct {
	configPath string
	out        io.Writer
}

// Execute runs the config command with given arguments.
func (c *configCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "show":
		return c.runShow(subargs)
	case "path":
		return c.runPath()
	case "init":
		return c.runInit(subargs)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown config subcommand: %s", subcommand)
	}
}

// runShow displays the effective configuration.
func (c *configCommand) runShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	fs.SetOutput(c.out)
	format := fs.String("format", "yaml", "output format (yaml, json)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	loader := config.NewLoader(c.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch *format {
	case "json":
		return c.showJSON(cfg)
	case "yaml":
		return c.showYAML(cfg, loader.Path())
	default:
		return fmt.Errorf("unknown format: %s", *format)
	}
}

// showYAML displays configuration in YAML format.
func (c *configCommand) showYAML(cfg *config.Config, source string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if source == "" {
		source = "defaults (no config file found)"
	}
	fmt.Fprintln(c.out, "# Effective configuration")
	fmt.Fprintln(c.out, "# Source:", source)
	fmt.Fprintln(c.out)
	fmt.Fprint(c.out, string(data))
	return nil
}

// showJSON displays configuration in JSON format.
func (c *configCommand) showJSON(cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(c.out, string(data))
	return nil
}

// runPath lists the configuration search paths.
func (c *configCommand) runPath() error {
	fmt.Fprintln(c.out, "Configuration file search paths (in order of precedence):")
	fmt.Fprintln(c.out)

	active := ""
	for i, p := range config.SearchPaths() {
		exists := "not found"
		if _, err := os.Stat(p); err == nil {
			exists = "found"
			if active == "" {
				active = p
			}
		}
		fmt.Fprintf(c.out, "  %d. %s [%s]\n", i+1, p, exists)
	}

	if c.configPath != "" {
		active = c.configPath + " (from -config)"
	}
	if active == "" {
		active = "defaults (no config file found)"
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Active configuration:", active)
	return nil
}

// runInit writes the default configuration to a file.
func (c *configCommand) runInit(args []string) error {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	fs.SetOutput(c.out)
	force := fs.Bool("force", false, "overwrite an existing file")
	output := fs.String("output", "", "output path (default: ~/.config/dropwatch/config.yaml)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = config.DefaultPath()
	}

	if _, err := os.Stat(outputPath); err == nil && !*force {
		return fmt.Errorf("configuration file already exists at %s (use -force to overwrite)", outputPath)
	}

	if err := config.Save(config.Default(), outputPath); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Default configuration written to: %s\n", outputPath)
	return nil
}

// showHelp displays help for config command.
func (c *configCommand) showHelp() error {
	help := `Config - Configuration management

Usage:
  dropwatch config <subcommand> [flags]

Subcommands:
  show      Display the effective configuration
  path      Show configuration file search paths
  init      Write the default configuration

Show Flags:
  -format   Output format (yaml, json) (default: yaml)

Init Flags:
  -force    Overwrite an existing file
  -output   Output path for the config file

Examples:
  # Show the effective configuration
  dropwatch config show

  # Show configuration in JSON format
  dropwatch config show -format json

  # Write defaults next to the binary
  dropwatch config init -output ./dropwatch.yaml
`
	fmt.Fprint(c.out, help)
	return nil
}
