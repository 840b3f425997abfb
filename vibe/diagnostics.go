package vibe

import (
	"fmt"
	"sort"
	"strings"
)

// DiagnosticKind classifies which pass produced a diagnostic.
type DiagnosticKind string

const (
	KindLexical      DiagnosticKind = "lexical"
	KindSyntax       DiagnosticKind = "syntax"
	KindType         DiagnosticKind = "type"
	KindVerification DiagnosticKind = "verification"
	KindInternal     DiagnosticKind = "internal"
)

// Severity distinguishes errors from advisory output.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is a single message tied to a source position.
type Diagnostic struct {
	Kind     DiagnosticKind
	Severity Severity
	Pos      Position
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Pos.Line, d.Pos.Column, d.Message)
}

func errorDiag(kind DiagnosticKind, pos Position, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:     kind,
		Severity: SeverityError,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
	}
}

func hasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Pos.Line != diags[j].Pos.Line {
			return diags[i].Pos.Line < diags[j].Pos.Line
		}
		return diags[i].Pos.Column < diags[j].Pos.Column
	})
}

// RenderDiagnostic formats a diagnostic with a code frame pointing at the
// offending source location, when one can be produced.
func RenderDiagnostic(source string, d Diagnostic) string {
	var b strings.Builder
	b.WriteString(d.String())
	if frame := formatCodeFrame(source, d.Pos); frame != "" {
		b.WriteString("\n")
		b.WriteString(frame)
	}
	return b.String()
}
