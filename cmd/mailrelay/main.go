package main

import (
	"os"

	"github.com/lattiq/mailrelay/internal/cli"
)

func main() {
	root := cli.NewRootCommand(cli.DefaultOptions())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
