// Package cmd provides the CLI commands for symdex.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/symdex/internal/config"
	symerrors "github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/logging"
	"github.com/Aman-CERP/symdex/internal/output"
	"github.com/Aman-CERP/symdex/pkg/version"
)

// rootOptions carries persistent flags and the state PersistentPreRunE
// builds from them.
type rootOptions struct {
	debug      bool
	configPath string

	cfg            *config.Config
	loggingCleanup func()
}

// config returns the loaded configuration, or defaults when a subcommand
// skipped loading.
func (o *rootOptions) config() *config.Config {
	if o.cfg == nil {
		return config.NewConfig()
	}
	return o.cfg
}

// NewRootCmd creates the root command for the symdex CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "symdex",
		Short: "Symbol index and lookup service for compiled-assembly snapshots",
		Long: `symdex loads a JSON snapshot of modules, types, and members extracted
from compiled assemblies and answers three kinds of queries over it:

  search  regex search across module, type, and member names and signatures
  lookup  resolve a type name to its module, assembly, and source file
  refs    list the types whose signatures mention a given type

Run 'symdex serve' to expose the queries over HTTP, a local socket, or MCP.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.setup,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			opts.teardown()
			return nil
		},
	}

	cmd.SetVersionTemplate("symdex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.symdex/logs/")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Read configuration from this file only")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newLookupCmd(opts))
	cmd.AddCommand(newRefsCmd(opts))
	cmd.AddCommand(newPathsCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newStopCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads configuration and installs the process logger.
func (o *rootOptions) setup(cmd *cobra.Command, _ []string) error {
	if skipsConfig(cmd) {
		return nil
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	o.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel
	if o.debug {
		logCfg = logging.DebugConfig()
	}
	if servesMCP(cmd, cfg) {
		// Stdio belongs to the protocol; log to the file only.
		logCfg = logging.MCPConfig(logCfg.Level)
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.loggingCleanup = cleanup
	slog.SetDefault(logger)

	if o.debug {
		slog.Debug("Debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}
	return nil
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, symerrors.ConfigError("failed to determine working directory", err)
	}
	return config.Load(dir)
}

func (o *rootOptions) teardown() {
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
}

// servesMCP reports whether cmd is a serve run with the MCP transport on.
func servesMCP(cmd *cobra.Command, cfg *config.Config) bool {
	if cmd.Name() != "serve" {
		return false
	}
	if f := cmd.Flags().Lookup("mcp"); f != nil && f.Changed {
		return f.Value.String() == "true"
	}
	return cfg.Server.MCP
}

// skipsConfig reports whether cmd must run even when the configuration is
// broken, so that it can be inspected or regenerated.
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skip-config"] == "true" {
			return true
		}
	}
	return false
}

// Execute runs the root command until it finishes or the process receives
// SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, err := NewRootCmd().ExecuteContextC(ctx)
	if err != nil {
		reportError(os.Stderr, cmd, err)
	}
	return err
}

// reportError writes err for a human, or as a JSON object when the failed
// command was asked for JSON output.
func reportError(w io.Writer, cmd *cobra.Command, err error) {
	if wantsJSON(cmd) {
		if data, jerr := symerrors.FormatJSON(err); jerr == nil {
			fmt.Fprintln(w, string(data))
			return
		}
	}
	fmt.Fprint(w, symerrors.FormatForCLI(err))
}

func wantsJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	if f := cmd.Flags().Lookup("json"); f != nil && f.Value.String() == "true" {
		return true
	}
	f := cmd.Flags().Lookup("format")
	return f != nil && f.Value.String() == string(output.FormatJSON)
}
