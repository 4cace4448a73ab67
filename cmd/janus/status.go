package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// statusLineFormat truncates and right-pads printed content to 80 columns,
// so a status-line update always overwrites whatever the previous update
// left behind.
const statusLineFormat = "\r%-80.80s"

// statusLinePrinter supports dynamically updating, single-line console
// output, the way a progress indicator needs to without scrolling the
// terminal.
type statusLinePrinter struct {
	quiet    bool
	nonEmpty bool
}

// Print overwrites the status line with message.
func (p *statusLinePrinter) Print(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(color.Output, statusLineFormat, message)
	p.nonEmpty = true
}

// BreakIfNonEmpty prints a newline if the status line currently holds
// content, so that subsequent output (a warning, the final summary) starts
// on its own line.
func (p *statusLinePrinter) BreakIfNonEmpty() {
	if p.nonEmpty {
		fmt.Fprintln(os.Stdout)
		p.nonEmpty = false
	}
}
