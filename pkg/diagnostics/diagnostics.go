// Package diagnostics implements the four fatal, non-recoverable error
// kinds described by the compiler's error handling design: lexical,
// syntactic, semantic, and I/O/toolchain. Every Error renders as a single
// "<file>:<line>: <kind>: <message>" line on stderr; the compiler never recovers
// mid-compilation, so a Reporter never buffers more than one in-flight
// error.
package diagnostics

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Kind identifies which of the four fatal error categories an Error belongs
// to, which in turn determines the process exit code (see ExitCode).
type Kind int

const (
	Lexical Kind = iota
	Syntax
	Semantic
	IO
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical error"
	case Syntax:
		return "syntax error"
	case Semantic:
		return "semantic error"
	case IO:
		return "I/O error"
	default:
		return "error"
	}
}

// Error is a single fatal compiler diagnostic.
type Error struct {
	Kind Kind
	File string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Kind, e.Msg)
}

// ExitCode maps an error to a process exit code: 1 for a compilation error
// (lexical/syntax/semantic), 2 for an I/O or toolchain-invocation error.
// Toolchain-launch failures are reported by the driver as Kind IO but exit
// 3; see driver.ExitCode.
func ExitCode(err error) int {
	var diag *Error
	if !errors.As(err, &diag) {
		return 1
	}
	if diag.Kind == IO {
		return 2
	}
	return 1
}

// Reporter renders fatal diagnostics to an underlying writer, coloring the
// kind tag when the writer is attached to a terminal.
type Reporter struct {
	w     io.Writer
	color bool
	fatal *color.Color
}

// ColorMode controls whether a Reporter colors its output.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// NewReporter builds a Reporter over w. w is typically os.Stderr; when it is
// an *os.File, colored output is routed through go-colorable so ANSI
// sequences render correctly on Windows consoles as well as Unix terminals.
func NewReporter(w io.Writer, mode ColorMode) *Reporter {
	out := w
	useColor := false
	file, isFile := w.(*os.File)

	switch mode {
	case ColorAlways:
		useColor = true
	case ColorNever:
		useColor = false
	default:
		if isFile {
			useColor = isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
		}
	}
	if useColor && isFile {
		out = colorable.NewColorable(file)
	}
	return &Reporter{w: out, color: useColor, fatal: color.New(color.FgRed, color.Bold)}
}

// Report prints err's single diagnostic line, terminated by a newline.
func (r *Reporter) Report(err error) {
	if r.color {
		r.fatal.Fprint(r.w, "FATAL: ")
		fmt.Fprintln(r.w, err.Error())
		return
	}
	fmt.Fprintln(r.w, "FATAL: "+err.Error())
}
