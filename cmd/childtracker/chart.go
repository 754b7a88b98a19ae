package main

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/comalice/childtracker"
)

var chartState string

func init() {
	chartCmd.Flags().StringVar(&chartState, "state", childtracker.StateNotVisible.String(), "state to highlight (visible or not-visible)")
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "print the visibility chart in Graphviz DOT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChart(cmd.OutOrStdout(), chartState)
	},
}

func runChart(out io.Writer, state string) error {
	m := childtracker.VisibilityChart()
	switch state {
	case childtracker.StateNotVisible.String():
	case childtracker.StateVisible.String():
		if _, err := m.Send(context.Background(), childtracker.Event{ID: childtracker.EventRectVisible}); err != nil {
			return errors.Wrap(err, "enter visible")
		}
	default:
		return errors.Errorf("unknown state %q", state)
	}
	_, err := fmt.Fprint(out, m.DOT("visibility"))
	return err
}
