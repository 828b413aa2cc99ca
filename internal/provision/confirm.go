package provision

import (
	"context"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ConfirmPolicy decides whether a workflow may proceed past a
// checkpoint that needs operator consent, such as a downgrade or a
// degraded health gate.
type ConfirmPolicy func(ctx context.Context, title, description string) (bool, error)

// AssumeYes approves every checkpoint without prompting.
func AssumeYes() ConfirmPolicy {
	return func(context.Context, string, string) (bool, error) {
		return true, nil
	}
}

// AssumeNo declines every checkpoint without prompting.
func AssumeNo() ConfirmPolicy {
	return func(context.Context, string, string) (bool, error) {
		return false, nil
	}
}

// Interactive prompts on the terminal. Without a terminal attached it
// declines: an unattended run must never assume consent.
func Interactive() ConfirmPolicy {
	return func(ctx context.Context, title, description string) (bool, error) {
		if !isInteractiveTTY() {
			return false, nil
		}
		var proceed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(title).
					Description(description).
					Value(&proceed),
			),
		)
		if err := form.RunWithContext(ctx); err != nil {
			return false, err
		}
		return proceed, nil
	}
}

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
