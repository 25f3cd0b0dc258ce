// Package diag collects diagnostics produced while reading, analyzing, and
// table-generating a grammar source, and renders them in the
// "source:line:col: error: message" form a terminal expects.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/dekarrin/yalr/internal/source"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	// Error indicates the input could not be fully processed.
	Error Severity = iota
	// Warning indicates a questionable but non-fatal condition.
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "diag"
	}
}

// Diagnostic is a single message pinned to a location in a source file, with
// optional nested diagnostics giving further context (e.g. "... previously
// defined here").
type Diagnostic struct {
	Severity Severity
	Message  string
	At       source.Fragment
	Aux      []Diagnostic
}

// Error implements the error interface so a lone Diagnostic can be returned
// and handled anywhere a normal error is expected.
func (d *Diagnostic) Error() string {
	return d.format()
}

func (d *Diagnostic) format() string {
	var sb strings.Builder
	loc := d.At.String()
	fmt.Fprintf(&sb, "%s: %s: %s", loc, d.Severity, d.Message)
	if d.At.Text != nil {
		line := d.At.Line()
		pos := d.At.Pos()
		sb.WriteString("\n")
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", pos.Col-1))
		sb.WriteString("^")
	}
	for _, aux := range d.Aux {
		sb.WriteString("\n\t")
		sb.WriteString(aux.format())
	}
	return sb.String()
}

// Sink is the mutable diagnostic accumulator threaded by pointer through the
// regex parser, the two analyzer passes, and the table generator. It is the
// "error accumulator pattern" used instead of returning on first failure, so
// a single run can report every problem in a source file at once.
type Sink struct {
	diags []Diagnostic
}

// NewSink returns an empty Sink ready for use.
func NewSink() *Sink {
	return &Sink{}
}

// Errorf records an Error-severity diagnostic at the given fragment.
func (s *Sink) Errorf(at source.Fragment, format string, args ...interface{}) {
	s.diags = append(s.diags, Diagnostic{
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		At:       at,
	})
}

// Warnf records a Warning-severity diagnostic at the given fragment.
func (s *Sink) Warnf(at source.Fragment, format string, args ...interface{}) {
	s.diags = append(s.diags, Diagnostic{
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		At:       at,
	})
}

// ErrorfAux is like Errorf but attaches aux as supplementary context (for
// example, pointing back at where a conflicting symbol was first defined).
func (s *Sink) ErrorfAux(at source.Fragment, aux []Diagnostic, format string, args ...interface{}) {
	s.diags = append(s.diags, Diagnostic{
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		At:       at,
		Aux:      aux,
	})
}

// HasErrors returns whether any Error-severity diagnostic has been recorded.
func (s *Sink) HasErrors() bool {
	for _, d := range s.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Diagnostics returns every diagnostic recorded so far, in recording order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.diags
}

// Count returns the number of diagnostics of the given severity.
func (s *Sink) Count(sev Severity) int {
	n := 0
	for _, d := range s.diags {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Err returns a combined error representing every Error-severity diagnostic
// recorded, or nil if the sink has none. Warnings do not affect the result.
func (s *Sink) Err() error {
	if !s.HasErrors() {
		return nil
	}
	var lines []string
	for _, d := range s.diags {
		if d.Severity == Error {
			lines = append(lines, d.format())
		}
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n\n"))
}

// Render writes every recorded diagnostic, in recording order, to w.
func (s *Sink) Render(w io.Writer) error {
	for i, d := range s.diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, d.format()); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
