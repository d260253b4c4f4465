package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errNotConfirmed = errors.New("stdin is not a terminal; pass --yes to confirm")

var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// confirm asks a yes/no question on a terminal. Non-interactive callers must
// pass --yes instead.
func confirm(cmd *cobra.Command, prompt string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	if !stdinIsTerminal() {
		return false, errNotConfirmed
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	sc := bufio.NewScanner(cmd.InOrStdin())
	if !sc.Scan() {
		return false, sc.Err()
	}
	switch strings.ToLower(strings.TrimSpace(sc.Text())) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
