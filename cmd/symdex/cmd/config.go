package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/symdex/configs"
	"github.com/Aman-CERP/symdex/internal/config"
	symerrors "github.com/Aman-CERP/symdex/internal/errors"
	"github.com/Aman-CERP/symdex/internal/output"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage symdex configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/symdex/config.yaml)
  3. Project config (.symdex.yaml)
  4. Environment variables (SYMDEX_*, LLM_AUTOMATION_HOST, LLM_AUTOMATION_PORT)`,
		Example: `  # Create user config from template
  symdex config init

  # Show effective configuration
  symdex config show

  # Print user config file path
  symdex config path`,
		// Subcommands load configuration themselves so that a broken file
		// can still be shown and regenerated.
		Annotations: map[string]string{"skip-config": "true"},
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(root))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		project bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from the template",
		Long: `Create a configuration file from the commented template.

The file is written to ~/.config/symdex/config.yaml (or
$XDG_CONFIG_HOME/symdex/config.yaml), or to .symdex.yaml in the working
directory with --project. --force overwrites an existing file after backing
it up.`,
		Example: `  symdex config init
  symdex config init --project
  symdex config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.GetUserConfigPath()
			if project {
				cwd, err := os.Getwd()
				if err != nil {
					return symerrors.ConfigError("failed to determine working directory", err)
				}
				path = filepath.Join(cwd, ".symdex.yaml")
			}
			return runConfigInit(cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&project, "project", false, "Write .symdex.yaml in the working directory")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	out := output.New(cmd.OutOrStdout(), output.FormatText)

	var backupPath string
	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Newline()
			out.Status("💡", "Use --force to overwrite it (a backup is kept)")
			return nil
		}
		if backupPath, err = config.BackupFile(path); err != nil {
			return symerrors.IOError("failed to back up configuration", err).WithDetail("path", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return symerrors.IOError("failed to create config directory", err).WithDetail("path", filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
		return symerrors.IOError("failed to write config file", err).WithDetail("path", path)
	}

	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)
	if backupPath != "" {
		out.Statusf("💾", "Backup: %s", backupPath)
	}
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Edit the file to set snapshot.path and the transports you need")
	out.Status("", "  2. Run 'symdex config show' to verify")
	return nil
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging every source.

--source narrows the output to one layer: defaults, user, or project.`,
		Example: `  symdex config show
  symdex config show --json
  symdex config show --source user`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, desc, err := configForSource(root, source)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg == nil {
				w := output.New(out, output.FormatText)
				w.Warningf("No %s configuration file found", source)
				return nil
			}
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return symerrors.InternalError("failed to encode configuration", err)
			}
			fmt.Fprintf(out, "# source: %s\n", desc)
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

// configForSource returns a nil config without error when the requested
// file does not exist.
func configForSource(root *rootOptions, source string) (*config.Config, string, error) {
	switch source {
	case "merged":
		if root.configPath != "" {
			cfg, err := config.LoadFile(root.configPath)
			return cfg, root.configPath, err
		}
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", symerrors.ConfigError("failed to determine working directory", err)
		}
		cfg, err := config.Load(cwd)
		return cfg, "merged (defaults + user + project + env)", err
	case "defaults":
		return config.NewConfig(), "defaults", nil
	case "user":
		path := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			return nil, path, nil
		}
		cfg, err := config.LoadFile(path)
		return cfg, path, err
	case "project":
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", symerrors.ConfigError("failed to determine working directory", err)
		}
		path := config.FindProjectConfig(cwd)
		if path == "" {
			return nil, "", nil
		}
		cfg, err := config.LoadFile(path)
		return cfg, path, err
	default:
		return nil, "", symerrors.ValidationError(fmt.Sprintf("unknown config source %q", source), nil).
			WithSuggestion("use one of: merged, user, project, defaults")
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
