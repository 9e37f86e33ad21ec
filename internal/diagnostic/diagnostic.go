// Package diagnostic renders cbuf schema errors with a line/column
// source excerpt and collapses accumulated diagnostics into the
// single error string parseCBufSchema returns.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/mvi-llc/wasm-cbuf/position"
)

// Diagnostic is one reported problem, anchored at a source position.
type Diagnostic struct {
	Message string
	Pos     position.Position
}

// Format renders the diagnostic as "line:col: message", followed by a
// caret-annotated excerpt of source when the position falls within it.
func (d Diagnostic) Format(source string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d: %s", d.Pos.Line, d.Pos.Column, d.Message)
	if excerpt, ok := sourceLine(source, d.Pos.Line); ok {
		fmt.Fprintf(&b, "\n  %s\n  %s^", excerpt, strings.Repeat(" ", caretOffset(d.Pos.Column)))
	}
	return b.String()
}

func caretOffset(column int) int {
	if column <= 0 {
		return 0
	}
	return column - 1
}

func sourceLine(source string, line int) (string, bool) {
	if line <= 0 {
		return "", false
	}
	cur := 1
	start := 0
	for i := 0; i < len(source); i++ {
		if cur == line {
			end := strings.IndexByte(source[start:], '\n')
			if end < 0 {
				return source[start:], true
			}
			return source[start : start+end], true
		}
		if source[i] == '\n' {
			cur++
			start = i + 1
		}
	}
	if cur == line {
		return source[start:], true
	}
	return "", false
}

// Collector accumulates diagnostics raised while parsing a single
// schema and collapses them into the one `error` string spec.md §6's
// parseCBufSchema contract requires.
type Collector struct {
	source string
	items  []Diagnostic
}

// NewCollector creates a Collector over the schema's source text, used
// to render caret excerpts.
func NewCollector(source string) *Collector {
	return &Collector{source: source}
}

// Add records a diagnostic.
func (c *Collector) Add(pos position.Position, message string) {
	c.items = append(c.items, Diagnostic{Message: message, Pos: pos})
}

// HasErrors reports whether any diagnostic was recorded.
func (c *Collector) HasErrors() bool { return len(c.items) > 0 }

// Collapse joins every recorded diagnostic into the single error
// string returned to callers, separated by newlines; a diagnostic with
// a source excerpt spans several lines.
func (c *Collector) Collapse() error {
	if len(c.items) == 0 {
		return nil
	}
	parts := make([]string, len(c.items))
	for i, d := range c.items {
		parts[i] = d.Format(c.source)
	}
	return fmt.Errorf("%s", strings.Join(parts, "\n"))
}
