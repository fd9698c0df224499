package cmds

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
)

// confirm asks a yes/no question on the terminal. Without a terminal there is
// nobody to ask, and the caller has to pass --yes.
func confirm(cmd *cobra.Command, query string) (bool, error) {
	if f, ok := cmd.InOrStdin().(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		return false, errors.New("not a terminal, use --yes to confirm")
	}

	ui := &input.UI{
		Writer: cmd.ErrOrStderr(),
		Reader: cmd.InOrStdin(),
	}
	answer, err := ui.Ask(query, &input.Options{
		Default:  "n",
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N":
				return nil
			default:
				return errors.New("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "Y", nil
}
