// Package cli implements the mailrelay command.
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Options controls where command output goes.
type Options struct {
	Out io.Writer
	Err io.Writer
}

// DefaultOptions writes to the process streams.
func DefaultOptions() Options {
	return Options{Out: os.Stdout, Err: os.Stderr}
}

// NewRootCommand builds the mailrelay command tree.
func NewRootCommand(opts Options) *cobra.Command {
	root := &cobra.Command{
		Use:          "mailrelay",
		Short:        "Exactly-once email relay with provider fallback",
		SilenceUsage: true,
	}
	if opts.Out != nil {
		root.SetOut(opts.Out)
	}
	if opts.Err != nil {
		root.SetErr(opts.Err)
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())
	return root
}
