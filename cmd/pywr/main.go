// Command pywr runs and inspects water-resource network models.
//
// Subcommands are built as a cobra.Command tree: RunE handlers, a
// persistent --config flag on the root command, one AddCommand per verb.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pywr/internal/apperror"
)

var cfgFile string

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		code := exitCodeFor(err)
		os.Exit(code)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pywr",
		Short:         "Run and inspect water-resource network simulations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: searches ./pywr.yaml, ./config/pywr.yaml, /etc/pywr/pywr.yaml)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newConvertCmd())
	root.AddCommand(newExportSchemaCmd())
	root.AddCommand(newServeCmd())

	return root
}

// exitCodeFor maps a command failure to a process exit code an operator
// can script against: 0 success, 1 a bad model document, 2 anything else,
// 3 a data problem (missing timeseries, bad table row).
func exitCodeFor(err error) int {
	fmt.Fprintln(os.Stderr, "error:", err)
	if appErr, ok := err.(*apperror.Error); ok {
		return appErr.ExitCode()
	}
	return 2
}
