package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/comalice/childtracker/geometry"
)

var (
	viewportFlag string
	frameTop     float64
	explain      bool
)

func init() {
	checkCmd.Flags().StringVar(&viewportFlag, "viewport", "1024x768", "host viewport as WIDTHxHEIGHT")
	checkCmd.Flags().Float64Var(&frameTop, "frame-top", 0, "top of the child frame in the host viewport")
	checkCmd.Flags().BoolVar(&explain, "explain", false, "print the parsed geometry before the verdict")
}

var checkCmd = &cobra.Command{
	Use:   "check \"TOP LEFT BOTTOM RIGHT\"",
	Short: "classify a serialized rectangle as visible or hidden",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.OutOrStdout(), viewportFlag, frameTop, args[0], explain)
	},
}

func runCheck(out io.Writer, viewport string, top float64, rect string, explain bool) error {
	vp, err := parseViewport(viewport)
	if err != nil {
		return err
	}
	r, frame := geometry.ParseRect(rect), geometry.Box{Top: top}
	if explain {
		printer := pp.New()
		printer.SetColoringEnabled(false)
		if _, err := printer.Fprintln(out, r, frame, vp); err != nil {
			return err
		}
	}
	verdict := "hidden"
	if geometry.InViewport(r, frame, vp) {
		verdict = "visible"
	}
	_, err = fmt.Fprintln(out, verdict)
	return err
}

func parseViewport(s string) (geometry.Viewport, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return geometry.Viewport{}, errors.Errorf("viewport %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return geometry.Viewport{}, errors.Wrapf(err, "viewport width %q", w)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return geometry.Viewport{}, errors.Wrapf(err, "viewport height %q", h)
	}
	return geometry.Viewport{Width: width, Height: height}, nil
}
