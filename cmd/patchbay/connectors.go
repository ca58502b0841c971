package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gorewood/patchbay/internal/catalog"
	"github.com/gorewood/patchbay/internal/connector"
)

// newConnectorCmds builds one command tree per catalog connector:
// connector -> resource -> verb.
func newConnectorCmds(a *app) []*cobra.Command {
	var cmds []*cobra.Command
	for _, conn := range catalog.All() {
		cmds = append(cmds, newConnectorCmd(a, conn))
	}
	return cmds
}

func newConnectorCmd(a *app, conn *connector.Connector) *cobra.Command {
	cmd := &cobra.Command{
		Use:   conn.Name,
		Short: conn.Title + " API",
		Long:  connectorLong(conn),
	}
	for i := range conn.Resources {
		res := &conn.Resources[i]
		resCmd := &cobra.Command{
			Use:   res.Name,
			Short: res.Short,
		}
		for j := range res.Operations {
			target := connector.Target{Connector: conn, Resource: res, Operation: &res.Operations[j]}
			resCmd.AddCommand(newOperationCmd(a, target))
		}
		cmd.AddCommand(resCmd)
	}
	return cmd
}

func connectorLong(conn *connector.Connector) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s API.\n\nCredentials (<workspace>/connectors/%s/.env):\n", conn.Title, conn.Name)
	for _, k := range conn.Keys {
		line := "  " + k.Name
		if k.Description != "" {
			line += "  " + k.Description
		}
		if k.Optional {
			line += " (optional)"
		}
		b.WriteString(line + "\n")
	}
	if conn.MultiAccount {
		fmt.Fprintf(&b, "\nSub-accounts: pass --account NAME to read connectors/%s/NAME/.env.\n", conn.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

// opFlags holds the switches every operation may carry.
type opFlags struct {
	data  string
	force bool
	all   bool
}

func newOperationCmd(a *app, target connector.Target) *cobra.Command {
	op := target.Operation
	flags := &opFlags{}

	use := op.Verb
	if usage := op.Usage(); usage != "" {
		use += " " + usage
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: op.Short,
		Long:  operationLong(target),
		Args:  cobra.ExactArgs(len(op.Args)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, a, target, args, flags)
		},
	}

	for _, p := range op.Flags() {
		if p.Kind == connector.Bool {
			cmd.Flags().Bool(p.Flag, false, paramUsage(p))
			continue
		}
		cmd.Flags().String(p.Flag, "", paramUsage(p))
	}
	if op.AcceptsBody() {
		cmd.Flags().StringVar(&flags.data, "data", "", "JSON body, or @file.json (typed flags override its keys)")
	}
	if op.List != nil && op.List.Cursor != nil {
		cmd.Flags().BoolVar(&flags.all, "all", false, fmt.Sprintf("Fetch every page (at most %d)", connector.MaxPages))
	}
	if op.Destructive {
		cmd.Flags().BoolVar(&flags.force, "force", false, "Skip the confirmation prompt")
	}
	return cmd
}

func operationLong(target connector.Target) string {
	op := target.Operation
	var b strings.Builder
	b.WriteString(op.Short + ".\n\n")
	fmt.Fprintf(&b, "Calls %s %s", op.Method, op.Path)
	if op.Destructive {
		b.WriteString("\n\nThis operation is destructive: it asks for confirmation unless --force is given.")
	}
	if len(op.Args) > 0 {
		b.WriteString("\n\nArgs:")
		for _, arg := range op.Args {
			fmt.Fprintf(&b, "\n  %-12s %s", arg.Name, arg.Usage)
		}
	}
	return b.String()
}

func paramUsage(p connector.Param) string {
	usage := p.Usage
	switch {
	case p.FromKey != "" && p.Default != "":
		usage += fmt.Sprintf(" (default $%s, then %s)", p.FromKey, p.Default)
	case p.FromKey != "":
		usage += fmt.Sprintf(" (default $%s)", p.FromKey)
	case p.Default != "":
		usage += fmt.Sprintf(" (default %s)", p.Default)
	}
	if p.Required {
		usage += " [required]"
	}
	if p.Kind == connector.List {
		usage += " [comma separated]"
	}
	return usage
}

// collectFlags returns the operation flags the user set, as raw strings.
func collectFlags(cmd *cobra.Command, op *connector.Operation) map[string]string {
	values := map[string]string{}
	for _, p := range op.Flags() {
		flag := cmd.Flags().Lookup(p.Flag)
		if flag != nil && flag.Changed {
			values[p.Flag] = flag.Value.String()
		}
	}
	return values
}

// runOperation executes one vendor call and renders its result.
func runOperation(cmd *cobra.Command, a *app, target connector.Target, args []string, flags *opFlags) error {
	printer := a.printer(cmd)

	inv := connector.Invocation{
		Args:    args,
		Flags:   collectFlags(cmd, target.Operation),
		Data:    flags.data,
		Force:   flags.force,
		All:     flags.all,
		Account: flagString(cmd, "account"),
	}

	result, err := a.runner(cmd).Run(cmd.Context(), target, inv)
	if errors.Is(err, connector.ErrCancelled) {
		printer.Println("Cancelled.")
		return nil
	}
	if err != nil {
		printer.Error(err)
		return err
	}
	return renderResult(printer, result)
}
