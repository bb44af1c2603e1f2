// Package cli implements the resourcectl command tree: each command drives
// one sync workflow against a remote collection and prints the resulting state.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erauner12/toolbridge-resources/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DevMode    bool
	Debug      bool
	LogLevel   string
	Format     string // "json" | "text"
	BaseURL    string
	Collection string
	Indexes    []string

	// Config is resolved in PersistentPreRunE from file, env and flags
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for resourcectl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "resourcectl",
		Short: "Inspect and edit a remote resource collection",
		Long: `resourcectl keeps a local copy of a REST collection and syncs changes
to it, either optimistically (local state first, rolled back on failure) or
pessimistically (local state only after the server answers).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.Config = cfg
			setupLogging(cfg, cmd.ErrOrStderr())
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "path to configuration file (JSON or YAML)")
	flags.BoolVar(&opts.DevMode, "dev", false, "send X-Debug-Sub instead of a signed token")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.BaseURL, "url", "", "API base URL (overrides config)")
	flags.StringVar(&opts.Collection, "collection", "", "collection name (overrides config)")
	flags.StringSliceVar(&opts.Indexes, "index", nil, "secondary index to maintain (repeatable)")

	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDestroyCommand(opts))
	cmd.AddCommand(NewLookupCommand(opts))

	return cmd
}

// loadConfig loads file or environment configuration and applies flag
// overrides before validating, so --dev works without any other setup.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnvironment()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if opts.DevMode {
		cfg.DevMode = true
	}
	if opts.Debug {
		cfg.Debug = true
		if !flags.Changed("log-level") {
			cfg.LogLevel = "debug"
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.BaseURL != "" {
		cfg.APIBaseURL = opts.BaseURL
	}
	if opts.Collection != "" {
		cfg.Collection = opts.Collection
	}
	if len(opts.Indexes) > 0 {
		cfg.Indexes = opts.Indexes
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
