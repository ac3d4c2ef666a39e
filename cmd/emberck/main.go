// Command emberck verifies a kernel configuration manifest before the build
// links anything for hardware. It prints a memory and constraint report and
// exits nonzero on any violation, so a CI or Makefile step can gate flashing
// on it.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/inhies/go-bytesize"
	"github.com/mattn/go-colorable"

	"ember/internal/buildinfo"
	"ember/verify"
)

const (
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

func main() {
	var (
		manifestPath string
		noColor      bool
		quiet        bool
	)
	flag.StringVar(&manifestPath, "manifest", "ember.yaml", "Configuration manifest to verify.")
	flag.BoolVar(&noColor, "no-color", false, "Disable colored output.")
	flag.BoolVar(&quiet, "quiet", false, "Only print violations.")
	flag.Parse()

	out := io.Writer(colorable.NewColorableStdout())
	color := func(c, s string) string {
		if noColor {
			return s
		}
		return c + s + ansiReset
	}

	m, err := verify.LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "emberck:", err)
		os.Exit(2)
	}

	if !quiet {
		fmt.Fprintf(out, "%s manifest %s\n", color(ansiBold, "emberck "+buildinfo.Short()), manifestPath)
		printReport(out, m)
	}

	errs := m.Check()
	for _, e := range errs {
		fmt.Fprintf(out, "%s %v\n", color(ansiRed, "FAIL"), e)
	}
	if len(errs) > 0 {
		fmt.Fprintf(out, "%s: %d violation(s)\n", color(ansiRed, "emberck: build rejected"), len(errs))
		os.Exit(1)
	}
	fmt.Fprintln(out, color(ansiGreen, "emberck: configuration OK"))
}

func printReport(out io.Writer, m *verify.Manifest) {
	set := m.TaskSet()

	fmt.Fprintf(out, "\n  %-16s %8s  %s\n", "TASK", "STACK", "PRIO")
	for _, t := range set.Tasks() {
		fmt.Fprintf(out, "  %-16s %8s  %d\n", t.Name, size(t.StackSize), t.Priority)
	}
	fmt.Fprintf(out, "\n  stacks:     %s\n", size(set.TotalStackRAM()))
	fmt.Fprintf(out, "  overhead:   %s (%d tasks x %d B)\n",
		size(set.Len()*verify.TaskOverheadBytes), set.Len(), verify.TaskOverheadBytes)
	fmt.Fprintf(out, "  total RAM:  %s", size(set.TotalRAM()))
	if m.RAMBudget > 0 {
		fmt.Fprintf(out, " of %s budget", size(m.RAMBudget))
	}
	fmt.Fprintln(out)

	if len(m.Queues) > 0 {
		fmt.Fprintf(out, "\n  %-16s %-12s %8s  %s\n", "QUEUE", "ELEM", "SIZE", "SLOTS")
		for _, q := range m.Queues {
			fmt.Fprintf(out, "  %-16s %-12s %8d  %d\n", q.Name, q.ElemType, q.ElemSize, q.Slots)
		}
	}
	fmt.Fprintln(out)
}

func size(n int) string {
	return bytesize.New(float64(n)).String()
}
