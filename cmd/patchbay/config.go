package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gorewood/patchbay/internal/config"
)

// newConfigCmd creates the config command group.
func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective settings and where they come from",
	}
	cmd.AddCommand(newConfigShowCmd(a), newConfigPathCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML",
		Long: `Print the effective settings: defaults, then config.yaml, then
PATCHBAY_* environment variables, then flags.

Examples:
  patchbay config show
  patchbay config show --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printer := a.printer(cmd)
			if printer.IsJSON() {
				return printer.WriteJSON(a.settings)
			}
			return printer.WriteYAML(a.settings)
		},
	}
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config, env and credential locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printer := a.printer(cmd)
			paths := map[string]any{
				"config_dir":  config.Dir(),
				"config_file": config.ConfigFile(a.viper),
				"env_file":    config.EnvFile(),
				"workspace":   a.settings.Workspace,
				"credentials": filepath.Join(a.settings.Workspace, "connectors"),
			}
			if printer.IsJSON() {
				return printer.WriteJSON(paths)
			}
			for _, key := range []string{"config_dir", "config_file", "env_file", "workspace", "credentials"} {
				printer.KeyValue(key, paths[key].(string))
			}
			return nil
		},
	}
}
