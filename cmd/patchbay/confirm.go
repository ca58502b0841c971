package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/gorewood/patchbay/internal/connector"
	"github.com/gorewood/patchbay/internal/output"
)

// newConfirmer picks how destructive calls are approved. JSON mode has no
// prompt, so those calls need --force.
func newConfirmer(cmd *cobra.Command) connector.Confirmer {
	if isJSONMode(cmd) {
		return nil
	}
	in := cmd.InOrStdin()
	if output.IsInteractive(in) {
		return connector.ConfirmFunc(formConfirm)
	}
	out := cmd.OutOrStdout()
	return connector.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		return lineConfirm(in, out, prompt), nil
	})
}

// formConfirm asks on the terminal. Ctrl-C counts as no.
func formConfirm(ctx context.Context, prompt string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return ok, nil
}

// lineConfirm reads a y/N answer from a non-terminal reader. EOF is no.
func lineConfirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "  ? %s [y/N] ", prompt)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
