// Package main provides the entry point for the patchbay CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gorewood/patchbay/internal/config"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
	"github.com/gorewood/patchbay/internal/envfile"
	"github.com/gorewood/patchbay/internal/output"
)

// Build info set via ldflags at build time by goreleaser.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123 -X main.date=2024-01-01"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// isJSONMode reads the --json persistent flag from the command hierarchy.
func isJSONMode(cmd *cobra.Command) bool {
	return flagString(cmd, "json") == "true"
}

// flagString reads a flag by name, walking up to the root's persistent flags.
func flagString(cmd *cobra.Command, name string) string {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		flag = cmd.Root().PersistentFlags().Lookup(name)
	}
	if flag == nil {
		return ""
	}
	return flag.Value.String()
}

// buildVersion returns the full version string including commit and date.
func buildVersion() string {
	if commit == "none" && date == "unknown" {
		return version
	}
	shortCommit := commit
	if len(commit) > 7 {
		shortCommit = commit[:7]
	}
	return fmt.Sprintf("%s (%s, %s)", version, shortCommit, date)
}

func main() {
	code := run()
	os.Exit(code)
}

func run() int {
	cmd := newRootCmd()
	err := fang.Execute(context.Background(), cmd, fang.WithVersion(buildVersion()))
	return output.GetExitCode(err)
}

// app carries the state shared by every command of one process: the
// settings loaded before the command runs and the hooks tests replace.
type app struct {
	viper    *viper.Viper
	settings *config.Settings
	logger   zerolog.Logger

	// newLoader builds the credential loader for a workspace root.
	newLoader func(root string) *credentials.Loader

	// httpClient and timer are nil outside tests.
	httpClient *http.Client
	timer      backoff.Timer
}

func newApp() *app {
	return &app{
		viper:     config.NewViper("patchbay/" + version),
		logger:    zerolog.Nop(),
		newLoader: credentials.NewLoader,
	}
}

// newRootCmd creates the root command for the patchbay CLI.
func newRootCmd() *cobra.Command {
	return newRootCmdWith(newApp())
}

// newRootCmdWith creates the root command around an app, so tests can
// inject the loader, HTTP client and retry timer.
func newRootCmdWith(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patchbay",
		Short: "One CLI for the SaaS APIs your scripts talk to",
		Long: `Patchbay - one CLI for the SaaS REST APIs your scripts talk to.

Every vendor call has the same shape:
  patchbay <connector> <resource> <verb> [args] [--flags]

Credentials live in per-connector .env files under the workspace:
  <workspace>/connectors/<connector>/.env
  <workspace>/connectors/<connector>/<account>/.env

Rate-limited calls (HTTP 429) are retried with exponential backoff.
Destructive calls ask for confirmation unless --force is given.

All commands support --json for structured output.`,
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// If --json flag is set but no subcommand, output JSON error
			if isJSONMode(cmd) {
				printer := output.NewPrinter(cmd.OutOrStdout(), true, false)
				err := output.NewUserError("no command specified. Run 'patchbay --help' for usage")
				printer.Error(err)
				return err
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.setup(cmd)
	}

	flags := cmd.PersistentFlags()
	flags.Bool("json", false, "Output in JSON format")
	flags.String("workspace", "", "Workspace root holding connectors/ (default /memory)")
	flags.String("account", "", "Sub-account for multi-account connectors")
	flags.Bool("debug", false, "Log requests and credential files used to stderr")
	flags.String("color", "auto", "Color output: auto, always, never")
	_ = a.viper.BindPFlag("workspace", flags.Lookup("workspace"))

	// Configure lipgloss for TTY detection
	lipgloss.SetHasDarkBackground(true)

	addCommandGroups(cmd)
	addCommands(cmd, a)

	return cmd
}

// setup loads the global env file, settings and logger before any
// subcommand runs. Flags beat PATCHBAY_* env, which beats config.yaml.
func (a *app) setup(cmd *cobra.Command) error {
	if _, err := output.ParseColorMode(flagString(cmd, "color")); err != nil {
		return a.fail(cmd, err)
	}
	if path := config.EnvFile(); path != "" {
		_ = envfile.Load(path)
	}

	settings, err := config.Load(a.viper)
	if err != nil {
		return a.fail(cmd, output.NewConfigError(err.Error(), err))
	}
	a.settings = settings

	logger, err := newLogger(cmd.ErrOrStderr(), settings.LogLevel, flagString(cmd, "debug") == "true", a.color(cmd, cmd.ErrOrStderr()))
	if err != nil {
		return a.fail(cmd, output.NewConfigError(err.Error(), err))
	}
	a.logger = logger
	return nil
}

// newLogger returns a console logger on w. debug overrides level.
func newLogger(w io.Writer, level string, debug, color bool) (zerolog.Logger, error) {
	lvl := zerolog.WarnLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log_level %q", level)
		}
		lvl = parsed
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: w, NoColor: !color, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger(), nil
}

// color resolves --color for w. An invalid mode falls back to auto so
// the error about it can still be printed.
func (a *app) color(cmd *cobra.Command, w io.Writer) bool {
	mode, err := output.ParseColorMode(flagString(cmd, "color"))
	if err != nil {
		mode = output.ColorAuto
	}
	return mode.Colorize(w)
}

// printer returns the stdout printer for the command's output mode.
func (a *app) printer(cmd *cobra.Command) *output.Printer {
	return output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), a.color(cmd, cmd.OutOrStdout())).
		WithStderr(cmd.ErrOrStderr())
}

// fail prints err in the command's output mode and returns it.
func (a *app) fail(cmd *cobra.Command, err error) error {
	a.printer(cmd).Error(err)
	return err
}

// loader returns the credential loader for the configured workspace.
func (a *app) loader() *credentials.Loader {
	return a.newLoader(a.settings.Workspace)
}

// runner returns a one-shot runner. Destructive calls are confirmed on
// the command's stdin unless --json is set.
func (a *app) runner(cmd *cobra.Command) *connector.Runner {
	return &connector.Runner{
		Loader:     a.loader(),
		Settings:   a.settings,
		HTTPClient: a.httpClient,
		Logger:     a.logger,
		Timer:      a.timer,
		Confirm:    newConfirmer(cmd),
	}
}

// addCommandGroups defines the command groups for help output.
func addCommandGroups(cmd *cobra.Command) {
	cmd.AddGroup(&cobra.Group{ID: "vendor", Title: "Vendor Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "admin", Title: "Admin Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "agent", Title: "Agent Commands:"})
}

// addCommands adds all subcommands with their group assignments.
func addCommands(cmd *cobra.Command, a *app) {
	for _, child := range newConnectorCmds(a) {
		addGroupedCommand(cmd, child, "vendor")
	}

	addGroupedCommand(cmd, newInitCmd(a), "admin")
	addGroupedCommand(cmd, newDoctorCmd(a), "admin")
	addGroupedCommand(cmd, newAccountsCmd(a), "admin")
	addGroupedCommand(cmd, newConfigCmd(a), "admin")

	addGroupedCommand(cmd, newServeCmd(a), "agent")
}

// addGroupedCommand adds a subcommand with a group assignment.
func addGroupedCommand(parent *cobra.Command, child *cobra.Command, groupID string) {
	child.GroupID = groupID
	parent.AddCommand(child)
}
