// Command memorykeep runs the context window memory engine as an HTTP
// service and offers maintenance commands for its conversations.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// app holds the global flags shared by every command.
type app struct {
	configPath string
	verbose    bool
	ephemeral  bool

	stdin  io.Reader
	stdout io.Writer
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout}

	root := &cobra.Command{
		Use:           "memorykeep",
		Short:         "memorykeep - context window memory engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.ephemeral, "ephemeral", false, "keep all state in memory for this process only")

	root.AddCommand(
		a.serveCmd(),
		a.migrateCmd(),
		a.chatCmd(),
		a.statsCmd(),
		a.consolidateCmd(),
		a.factCmd(),
	)
	return root
}
