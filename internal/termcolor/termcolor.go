// Package termcolor renders diagnostic text in color when stderr is an
// interactive terminal, and falls back to plain text otherwise (piped
// output, CI logs). Purely cosmetic: it never changes diagnostic content.
package termcolor

import (
	"fmt"

	"golang.org/x/term"
)

const (
	bold   = "\x1b[1m"
	red    = "\x1b[91m"
	yellow = "\x1b[93m"
	reset  = "\x1b[0m"
)

// Writer decides once, at construction, whether its target is a terminal.
type Writer struct {
	isTerminal bool
}

// New inspects fd (typically os.Stderr.Fd()) and returns a Writer that
// colors output only when fd is an interactive terminal.
func New(fd uintptr) *Writer {
	return &Writer{isTerminal: term.IsTerminal(int(fd))}
}

// Errorf formats a fatal diagnostic, prefixing it with a bold red
// "error:" when writing to a terminal.
func (w *Writer) Errorf(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if !w.isTerminal {
		return "error: " + msg
	}
	return fmt.Sprintf("%s%serror:%s %s", bold, red, reset, msg)
}

// Warnf formats a non-fatal diagnostic in yellow when writing to a
// terminal.
func (w *Writer) Warnf(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if !w.isTerminal {
		return "warning: " + msg
	}
	return fmt.Sprintf("%swarning:%s %s", yellow, reset, msg)
}

// Width returns the current terminal column width, or a sane fallback
// when the size cannot be determined (piped output, unsupported fd).
func Width(fd uintptr) int {
	width, _, err := term.GetSize(int(fd))
	if err != nil || width < 20 {
		return 80
	}
	return width
}

// IsTerminal reports whether fd refers to an interactive terminal.
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}
