package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var root = &cobra.Command{
	Use:          "childtracker",
	Short:        "track how long elements inside a child frame stay visible",
	SilenceUsage: true,
}

func init() {
	root.AddCommand(serveCmd, checkCmd, chartCmd)
}

func main() {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
