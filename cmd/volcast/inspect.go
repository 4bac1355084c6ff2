package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chewxy/math32"
	"github.com/urfave/cli"

	"github.com/mrjoshuak/go-volcast/composite"
)

func inspectCommand() cli.Command {
	return cli.Command{
		Name:      "inspect",
		Usage:     "print the header and statistics of serialized frames",
		ArgsUsage: "<image.vci> [...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.NewExitError("inspect: no files given", 2)
			}
			failed := 0
			for _, path := range c.Args() {
				if err := inspectFile(os.Stdout, path); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					failed++
				}
			}
			if failed > 0 {
				return cli.NewExitError(fmt.Sprintf("inspect: %d of %d files invalid", failed, c.NArg()), 1)
			}
			return nil
		},
	}
}

func inspectFile(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	h, err := composite.ReadHeader(data)
	if err != nil {
		return err
	}
	f, _, _, err := composite.DecodeImage(data)
	if err != nil {
		return err
	}

	covered := 0
	lo, hi := math32.Inf(1), math32.Inf(-1)
	for i, a := range f.A {
		if a > 0 {
			covered++
		}
		if f.Z != nil && f.Z[i] < 1 {
			lo, hi = min(lo, f.Z[i]), max(hi, f.Z[i])
		}
	}

	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  size:    %dx%d at row %d col %d\n", h.Width, h.Height, h.Row, h.Col)
	fmt.Fprintf(w, "  codec:   %s (half color: %v)\n", h.Codec, h.HalfColor)
	fmt.Fprintf(w, "  payload: %d bytes\n", len(data))
	fmt.Fprintf(w, "  covered: %d of %d pixels\n", covered, h.Width*h.Height)
	if h.HasZ && lo <= hi {
		fmt.Fprintf(w, "  depth:   [%g, %g]\n", lo, hi)
	}
	return nil
}
