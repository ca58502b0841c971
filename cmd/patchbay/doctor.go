package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gorewood/patchbay/internal/catalog"
	"github.com/gorewood/patchbay/internal/config"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/credentials"
	"github.com/gorewood/patchbay/internal/output"
)

// checkStatus represents the result of a health check.
type checkStatus string

const (
	checkPass checkStatus = "pass"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
)

// checkResult holds the result of a single health check.
type checkResult struct {
	Name    string      `json:"name"`
	Status  checkStatus `json:"status"`
	Message string      `json:"message"`
	Hint    string      `json:"hint,omitempty"`
}

// connectorReport groups the checks for one connector.
type connectorReport struct {
	Name   string        `json:"name"`
	Title  string        `json:"title"`
	Checks []checkResult `json:"checks"`
}

// doctorResult holds all check results.
type doctorResult struct {
	Version    string            `json:"version"`
	Workspace  string            `json:"workspace"`
	Core       []checkResult     `json:"core"`
	Connectors []connectorReport `json:"connectors"`
	Summary    *doctorSummary    `json:"summary"`
}

// doctorSummary holds the counts of check results.
type doctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Failed   int `json:"failed"`
}

// newDoctorCmd creates the doctor command.
func newDoctorCmd(a *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor [connector...]",
		Short: "Check credential files without calling any API",
		Long: `Check patchbay's workspace and credential files.

For each connector (or only the ones named) doctor reports:
  - whether the credential file exists
  - which required keys are missing (values are never shown)
  - sub-account files of multi-account connectors
  - files readable by group or other users
  - when each file was last modified

No network call is made.

Examples:
  patchbay doctor                 # Check every connector
  patchbay doctor clickup hubspot # Check two connectors
  patchbay doctor --quiet         # Only show failures and warnings
  patchbay doctor --json          # Output results as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, a, args, quiet)
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Only show failures and warnings")

	return cmd
}

// runDoctor executes the doctor command. Failed checks do not fail the
// command; only a bad connector name does.
func runDoctor(cmd *cobra.Command, a *app, names []string, quiet bool) error {
	printer := a.printer(cmd)

	connectors := catalog.All()
	if len(names) > 0 {
		connectors = connectors[:0]
		for _, name := range names {
			conn, err := lookupConnector(name)
			if err != nil {
				printer.Error(err)
				return err
			}
			connectors = append(connectors, conn)
		}
	}

	result := gatherDoctorChecks(a, connectors)

	if printer.IsJSON() {
		return printer.WriteJSON(result)
	}

	outputDoctorHuman(printer, result, quiet)
	return nil
}

// gatherDoctorChecks runs all checks and returns results.
func gatherDoctorChecks(a *app, connectors []*connector.Connector) *doctorResult {
	result := &doctorResult{
		Version:   version,
		Workspace: a.settings.Workspace,
		Core: []checkResult{
			checkWorkspace(a.settings.Workspace),
			checkConfigFile(a),
		},
		Summary: &doctorSummary{},
	}

	loader := a.loader()
	for _, conn := range connectors {
		result.Connectors = append(result.Connectors, connectorReport{
			Name:   conn.Name,
			Title:  conn.Title,
			Checks: runConnectorChecks(loader, conn),
		})
	}

	allChecks := append([]checkResult(nil), result.Core...)
	for _, report := range result.Connectors {
		allChecks = append(allChecks, report.Checks...)
	}
	for _, check := range allChecks {
		switch check.Status {
		case checkPass:
			result.Summary.Passed++
		case checkWarn:
			result.Summary.Warnings++
		case checkFail:
			result.Summary.Failed++
		}
	}

	return result
}

// checkWorkspace checks that the workspace directory exists.
func checkWorkspace(workspace string) checkResult {
	info, err := os.Stat(workspace)
	if err == nil && info.IsDir() {
		return checkResult{
			Name:    "Workspace",
			Status:  checkPass,
			Message: workspace,
		}
	}
	return checkResult{
		Name:    "Workspace",
		Status:  checkFail,
		Message: workspace + " not found",
		Hint:    "Pass --workspace or set PATCHBAY_WORKSPACE",
	}
}

// checkConfigFile reports which config file was read, if any.
func checkConfigFile(a *app) checkResult {
	if used := a.viper.ConfigFileUsed(); used != "" {
		return checkResult{
			Name:    "Config",
			Status:  checkPass,
			Message: "loaded " + used,
		}
	}
	return checkResult{
		Name:    "Config",
		Status:  checkPass,
		Message: "using defaults (no " + config.ConfigFile(a.viper) + ")",
	}
}

// runConnectorChecks inspects a connector's credential files.
func runConnectorChecks(loader *credentials.Loader, conn *connector.Connector) []checkResult {
	statuses, err := connector.Health(loader, conn)

	checks := make([]checkResult, 0, len(statuses)+1)
	for _, status := range statuses {
		checks = append(checks, checkCredentialFile(conn, status)...)
	}
	if err != nil {
		checks = append(checks, checkResult{
			Name:    "Accounts",
			Status:  checkFail,
			Message: err.Error(),
		})
	}
	return checks
}

// checkCredentialFile checks one credential file: presence, keys, mode.
func checkCredentialFile(conn *connector.Connector, status credentials.Status) []checkResult {
	name := "Credentials"
	initHint := "Run 'patchbay init " + conn.Name + "'"
	if status.Account != "" {
		name = "Account " + status.Account
		initHint += " --account " + status.Account
	}

	switch {
	case !status.FileExists:
		return []checkResult{{
			Name:    name,
			Status:  checkWarn,
			Message: "not configured",
			Hint:    initHint,
		}}
	case status.ReadError != "":
		return []checkResult{{
			Name:    name,
			Status:  checkFail,
			Message: "cannot read " + status.Path + ": " + status.ReadError,
		}}
	}

	checks := make([]checkResult, 0, 2)
	age := humanize.Time(status.ModTime)
	if len(status.Missing) > 0 {
		checks = append(checks, checkResult{
			Name:    name,
			Status:  checkFail,
			Message: fmt.Sprintf("missing %s (modified %s)", strings.Join(status.Missing, ", "), age),
			Hint:    "Fill in the missing keys in " + status.Path,
		})
	} else {
		checks = append(checks, checkResult{
			Name:    name,
			Status:  checkPass,
			Message: fmt.Sprintf("%d required keys set (modified %s)", len(status.Present), age),
		})
	}

	if status.Exposed() {
		checks = append(checks, checkResult{
			Name:    name + " Mode",
			Status:  checkWarn,
			Message: fmt.Sprintf("%s is readable by other users (%04o)", status.Path, status.Mode.Perm()),
			Hint:    "chmod 600 " + status.Path,
		})
	}
	return checks
}

// outputDoctorHuman outputs the doctor result in human-readable format.
func outputDoctorHuman(printer *output.Printer, result *doctorResult, quiet bool) {
	printer.Println()
	printer.Print("patchbay doctor v%s\n", result.Version)

	printCheckSection(printer, "WORKSPACE", result.Core, quiet)
	for _, report := range result.Connectors {
		printCheckSection(printer, strings.ToUpper(report.Name), report.Checks, quiet)
	}

	printer.Println()
	printer.Print("%s %d passed  %s %d warnings  %s %d failed\n",
		statusIcon(checkPass), result.Summary.Passed,
		statusIcon(checkWarn), result.Summary.Warnings,
		statusIcon(checkFail), result.Summary.Failed,
	)
}

// printCheckSection prints a section of checks.
func printCheckSection(printer *output.Printer, title string, checks []checkResult, quiet bool) {
	// In quiet mode, skip sections with only passing checks
	if quiet {
		hasNonPass := false
		for _, check := range checks {
			if check.Status != checkPass {
				hasNonPass = true
				break
			}
		}
		if !hasNonPass {
			return
		}
	}

	printer.Println()
	printer.Println(title)

	for _, check := range checks {
		if quiet && check.Status == checkPass {
			continue
		}

		printer.Print("  %s  %s %s\n", statusIcon(check.Status), check.Name, check.Message)
		if check.Hint != "" {
			printer.Print("     %s %s\n", hintPrefix(), check.Hint)
		}
	}
}

// statusIcon returns the icon for a check status.
func statusIcon(status checkStatus) string {
	switch status {
	case checkPass:
		return "ok"
	case checkWarn:
		return "!!"
	case checkFail:
		return "XX"
	default:
		return "??"
	}
}

// hintPrefix returns the prefix for hint lines.
func hintPrefix() string {
	return "->"
}
