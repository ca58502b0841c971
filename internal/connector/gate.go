package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorewood/patchbay/internal/output"
)

// ErrCancelled is returned when a destructive call is declined.
var ErrCancelled = errors.New("cancelled")

// Confirmer asks a person to approve a destructive call.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// gate decides whether a destructive call may proceed. With force it
// always may; without a confirmer it is refused; otherwise the confirmer
// decides.
func gate(ctx context.Context, confirm Confirmer, target Target, inv Invocation) error {
	if !target.Operation.Destructive || inv.Force {
		return nil
	}
	if confirm == nil {
		return output.NewUserError(fmt.Sprintf("%s is destructive: pass --force to run it non-interactively", target.Name()))
	}

	ok, err := confirm.Confirm(ctx, confirmPrompt(target, inv))
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	return nil
}

func confirmPrompt(target Target, inv Invocation) string {
	prompt := target.Name()
	for _, a := range inv.Args {
		prompt += " " + a
	}
	if inv.Account != "" {
		prompt += " (account " + inv.Account + ")"
	}
	return fmt.Sprintf("Run %q? This cannot be undone.", prompt)
}
