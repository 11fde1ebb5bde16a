package diag

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

// Printer renders diagnostics one per line, severity-prefixed, for a host's
// diagnostic channel (spec §6). It is presentation only: no part of the core
// depends on it, and it carries no CLI argument parsing or subcommand logic.
type Printer struct {
	w      io.Writer
	color  bool
	errSty *pterm.Style
	warnSty *pterm.Style
}

// NewPrinter creates a diagnostic printer writing to w. Color styling can be
// disabled for non-terminal sinks (logs, CI).
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{
		w:       w,
		color:   color,
		errSty:  pterm.NewStyle(pterm.FgRed, pterm.Bold),
		warnSty: pterm.NewStyle(pterm.FgYellow, pterm.Bold),
	}
}

// Print writes one diagnostic line.
func (p *Printer) Print(e *Error) {
	prefix := fmt.Sprintf("[%s]", e.Severity)
	if p.color {
		sty := p.errSty
		if e.Severity == SeverityWarning {
			sty = p.warnSty
		}
		prefix = sty.Sprint(prefix)
	}
	fmt.Fprintf(p.w, "%s %s: %s\n", prefix, e.Phase, e.Error())
}

// PrintAll writes a slice of diagnostics in order.
func (p *Printer) PrintAll(errs []*Error) {
	for _, e := range errs {
		p.Print(e)
	}
}
