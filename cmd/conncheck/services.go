package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hazz-dev/conncheck/internal/checker"
)

func executeServices(out io.Writer, checkers []checker.Checker) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tCLIENT\tFLAG\tENABLED\tADDRESS")
	for _, c := range checkers {
		d, ok := c.(checker.Describer)
		if !ok {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\n", c.Service())
			continue
		}
		t := d.Target()
		enabled := "no"
		if t.Enabled {
			enabled = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Service, t.Client, t.Flag, enabled, t.Address)
	}
	return w.Flush()
}
