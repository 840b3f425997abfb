package vibe

import (
	"strings"
	"testing"
)

func TestRunEndToEnd(t *testing.T) {
	source := "type Money = Int\n  invariant value >= 0\n\n" + addSource
	result := Run(source, DefaultConfig())
	if result.HasErrors() {
		t.Fatalf("expected clean run, got %v", result.Diagnostics)
	}
	if result.Program == nil || result.Types == nil || result.Report == nil || result.Optimized == nil {
		t.Fatalf("expected artifacts from every pass")
	}
	if !strings.Contains(result.Output, "def add(x, y):") {
		t.Fatalf("expected emitted function:\n%s", result.Output)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	source := "type Money = Int\n  invariant value >= 0\n\n" + addSource + "\n" + halveSource
	first := Run(source, DefaultConfig())
	second := Run(source, DefaultConfig())
	if first.Output != second.Output {
		t.Fatalf("outputs differ between runs")
	}
	if len(first.Diagnostics) != len(second.Diagnostics) {
		t.Fatalf("diagnostic counts differ")
	}
	for i := range first.Diagnostics {
		if first.Diagnostics[i] != second.Diagnostics[i] {
			t.Fatalf("diagnostic %d differs", i)
		}
	}
}

func TestRunHaltsOnLexError(t *testing.T) {
	result := Run("\tx\n", DefaultConfig())
	if !result.HasErrors() {
		t.Fatalf("expected lexical error")
	}
	if result.Diagnostics[0].Kind != KindLexical {
		t.Fatalf("expected lexical diagnostic, got %v", result.Diagnostics[0])
	}
	if result.Program != nil || result.Output != "" {
		t.Fatalf("later passes must not run after a lex error")
	}
}

func TestRunHaltsOnParseError(t *testing.T) {
	result := Run("define 42\n", DefaultConfig())
	if !result.HasErrors() || result.Diagnostics[0].Kind != KindSyntax {
		t.Fatalf("expected syntax diagnostic, got %v", result.Diagnostics)
	}
	if result.Types != nil {
		t.Fatalf("checker must not run after a parse error")
	}
}

func TestRunHaltsOnTypeError(t *testing.T) {
	result := Run("define bad(x: Int) -> String\ngiven\n  x\n", DefaultConfig())
	if !result.HasErrors() || result.Diagnostics[0].Kind != KindType {
		t.Fatalf("expected type diagnostic, got %v", result.Diagnostics)
	}
	if result.Report != nil || result.Output != "" {
		t.Fatalf("verifier and emitter must not run after type errors")
	}
}

func TestRunFullLevelFailsOnUnproven(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = LevelFull
	result := Run(halveSource, cfg)
	if !result.HasErrors() {
		t.Fatalf("full level must reject unproven contracts")
	}
	if result.Output != "" {
		t.Fatalf("no code may be emitted when verification fails")
	}
}

func TestRunFullLevelAcceptsProven(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = LevelFull
	result := Run(addSource, cfg)
	if result.HasErrors() {
		t.Fatalf("fully proven program must compile under full: %v", result.Diagnostics)
	}
	if result.Output == "" {
		t.Fatalf("expected emitted output")
	}
}

func TestRunDiagnosticsInSourceOrder(t *testing.T) {
	source := "define f(x: Int) -> Int\ngiven\n  missing\n  also + 1\n  x\n"
	result := Run(source, DefaultConfig())
	var last Position
	for _, d := range result.Diagnostics {
		if d.Pos.Line < last.Line || (d.Pos.Line == last.Line && d.Pos.Column < last.Column) {
			t.Fatalf("diagnostics out of order: %v", result.Diagnostics)
		}
		last = d.Pos
	}
	if len(result.Diagnostics) < 2 {
		t.Fatalf("expected multiple type diagnostics, got %v", result.Diagnostics)
	}
}

func TestParseLevelValidation(t *testing.T) {
	for _, name := range []string{"none", "runtime", "hybrid", "full"} {
		if _, err := ParseLevel(name); err != nil {
			t.Fatalf("level %q should parse: %v", name, err)
		}
	}
	if _, err := ParseLevel("paranoid"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
