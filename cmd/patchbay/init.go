package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gorewood/patchbay/internal/catalog"
	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/output"
)

// newInitCmd creates the init command.
func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init <connector>",
		Short: "Write a credential file template for a connector",
		Long: `Write a credential file template for a connector.

The file lists every key the connector reads, with empty values, and is
created with mode 0600. An existing file is never overwritten.

Examples:
  patchbay init clickup                     # connectors/clickup/.env
  patchbay init hubspot --account client-a  # connectors/hubspot/client-a/.env`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a, args[0])
		},
	}
}

// runInit executes the init command.
func runInit(cmd *cobra.Command, a *app, name string) error {
	printer := a.printer(cmd)

	conn, err := lookupConnector(name)
	if err != nil {
		printer.Error(err)
		return err
	}

	account := flagString(cmd, "account")
	if account != "" && !conn.MultiAccount {
		err := output.NewUserError(fmt.Sprintf("%s does not support multiple accounts", conn.Name))
		printer.Error(err)
		return err
	}

	path, err := a.loader().Scaffold(conn.Name, account, conn.Title, conn.ScaffoldKeys())
	if err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.WriteJSON(map[string]any{
			"status":    "created",
			"connector": conn.Name,
			"account":   account,
			"path":      path,
			"keys":      conn.KeyNames(),
		})
	}

	_ = printer.Success(map[string]any{"message": "Created " + path})
	printer.Println()
	printer.Println("Next steps:")
	printer.Print("  1. Fill in %s\n", strings.Join(conn.RequiredKeys(), ", "))
	printer.Println("  2. Run 'patchbay doctor' to check the file")
	return nil
}

// lookupConnector resolves a catalog connector or returns a user error
// listing the available names.
func lookupConnector(name string) (*connector.Connector, error) {
	conn, ok := catalog.Lookup(name)
	if !ok {
		return nil, output.NewUserError(fmt.Sprintf("unknown connector %q (available: %s)", name, strings.Join(catalog.Names(), ", ")))
	}
	return conn, nil
}
