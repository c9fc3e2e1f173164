package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentstation/enginelink/cmd/enginelink/cmd/connect"
	"github.com/agentstation/enginelink/cmd/enginelink/cmd/list"
	"github.com/agentstation/enginelink/cmd/enginelink/cmd/upload"
	"github.com/agentstation/enginelink/cmd/enginelink/cmd/version"
	"github.com/agentstation/enginelink/internal/cmd/output"
)

// Execute runs the enginelink CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "enginelink",
		Short:   "Inference backend connection and resource catalog CLI",
		Version: a.version,
		Long: `Enginelink connects to a ComfyUI or Forge inference backend, including
backends behind Cloudflare Access, and lists the models, samplers and other
resources available locally, on the backend, or as curated downloads.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	cfg := a.config
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "config file (default is $HOME/.enginelink.yaml)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "verbose output (shortcut for --log-level=debug)")
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, "minimal output (shortcut for --log-level=warn)")
	flags.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "disable colored output")
	flags.StringVarP(&cfg.Format, "format", "o", cfg.Format, "output format: table, json, yaml, wide")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace, debug, info, warn, error (overrides -v/-q)")

	flags.StringVar(&cfg.BaseURI, "base-uri", cfg.BaseURI, "backend address, host[:port] or full URL")
	flags.StringVar(&cfg.Backend, "backend", cfg.Backend, "backend API: comfyui or forge")
	flags.StringToStringVar(&cfg.Headers, "header", cfg.Headers, "header attached to every backend request (Name=Value)")
	flags.StringVar(&cfg.HeadersFile, "headers-file", cfg.HeadersFile, "file of Name=Value header lines")
	flags.StringVar(&cfg.LoginDomain, "login-domain", cfg.LoginDomain, "access-control login domain")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout of each backend request")
	flags.StringVar(&cfg.ModelsDir, "models-dir", cfg.ModelsDir, "local models directory")
	flags.StringVar(&cfg.DefaultsFile, "defaults-file", cfg.DefaultsFile, "downloadable defaults catalog (YAML)")

	rootCmd.SetVersionTemplate("enginelink {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("config") {
		if err := a.reloadConfig(cmd.Flags()); err != nil {
			return err
		}
	}

	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return err
	}

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger
	return nil
}

// reloadConfig reads the --config file and keeps every flag set explicitly.
func (a *App) reloadConfig(flags *pflag.FlagSet) error {
	loaded, err := LoadConfigFile(a.config.ConfigFile)
	if err != nil {
		return err
	}

	current := a.config
	keep := map[string]func(){
		"verbose":       func() { loaded.Verbose = current.Verbose },
		"quiet":         func() { loaded.Quiet = current.Quiet },
		"no-color":      func() { loaded.NoColor = current.NoColor },
		"format":        func() { loaded.Format = current.Format },
		"log-level":     func() { loaded.LogLevel = current.LogLevel },
		"base-uri":      func() { loaded.BaseURI = current.BaseURI },
		"backend":       func() { loaded.Backend = current.Backend },
		"header":        func() { loaded.Headers = current.Headers },
		"headers-file":  func() { loaded.HeadersFile = current.HeadersFile },
		"login-domain":  func() { loaded.LoginDomain = current.LoginDomain },
		"timeout":       func() { loaded.Timeout = current.Timeout },
		"models-dir":    func() { loaded.ModelsDir = current.ModelsDir },
		"defaults-file": func() { loaded.DefaultsFile = current.DefaultsFile },
	}
	flags.Visit(func(f *pflag.Flag) {
		if fn, ok := keep[f.Name]; ok {
			fn()
		}
	})
	*a.config = *loaded
	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(connect.NewCommand(a))
	rootCmd.AddCommand(list.NewCommand(a))
	rootCmd.AddCommand(upload.NewCommand(a))
	rootCmd.AddCommand(version.NewCommand(a))
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
