package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gorewood/patchbay/internal/output"
)

// newAccountsCmd creates the accounts command.
func newAccountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts <connector>",
		Short: "List sub-accounts of a multi-account connector",
		Long: `List sub-accounts of a multi-account connector.

A sub-account is a directory under connectors/<connector>/ holding its own
.env file. Select one with --account NAME on any vendor command.

Examples:
  patchbay accounts hubspot
  patchbay accounts hubspot --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccounts(cmd, a, args[0])
		},
	}
}

// accountInfo is one row of the accounts listing.
type accountInfo struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Ready    bool     `json:"ready"`
	Missing  []string `json:"missing,omitempty"`
	Modified string   `json:"modified,omitempty"`
}

// runAccounts executes the accounts command.
func runAccounts(cmd *cobra.Command, a *app, name string) error {
	printer := a.printer(cmd)

	conn, err := lookupConnector(name)
	if err != nil {
		printer.Error(err)
		return err
	}
	if !conn.MultiAccount {
		err := output.NewUserError(fmt.Sprintf("%s does not support multiple accounts", conn.Name))
		printer.Error(err)
		return err
	}

	loader := a.loader()
	names, err := loader.Accounts(conn.Name)
	if err != nil {
		err = output.NewSystemErrorWithCause("listing accounts", err)
		printer.Error(err)
		return err
	}

	accounts := make([]accountInfo, 0, len(names))
	for _, account := range names {
		status := loader.Inspect(conn.Name, account, conn.RequiredKeys())
		info := accountInfo{
			Name:    account,
			Path:    status.Path,
			Ready:   status.Complete(),
			Missing: status.Missing,
		}
		if !status.ModTime.IsZero() {
			info.Modified = humanize.Time(status.ModTime)
		}
		accounts = append(accounts, info)
	}

	if printer.IsJSON() {
		return printer.WriteJSON(map[string]any{
			"connector": conn.Name,
			"accounts":  accounts,
		})
	}

	if len(accounts) == 0 {
		printer.Print("No %s accounts. Create one with 'patchbay init %s --account NAME'.\n", conn.Name, conn.Name)
		return nil
	}
	rows := make([][]string, 0, len(accounts))
	for _, info := range accounts {
		state := "ready"
		switch {
		case len(info.Missing) > 0:
			state = "missing " + strings.Join(info.Missing, ", ")
		case !info.Ready:
			state = "unreadable"
		}
		rows = append(rows, []string{info.Name, state, info.Modified})
	}
	printer.Table([]string{"ACCOUNT", "STATUS", "MODIFIED"}, rows)
	return nil
}
