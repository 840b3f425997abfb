package vibe

import (
	"strings"
	"testing"
)

var formatterCorpus = []string{
	"import std.io\nimport std.math\n\ntype Money = Int\n  invariant value >= 0\n\ndefine add(x: Int, y: Int) -> Int\n  expect x >= 0\n  ensure result >= x\ngiven\n  x + y\n",
	"type Shape =\n  | Circle(Float)\n  | Rect(Float, Float)\n\ndefine area(s: Shape) -> Float\ngiven\n  given s\n    Circle(r) -> r * r\n    Rect(w, h) -> w * h\n",
	"define f(x: Bool) -> Int\ngiven\n  when x\n    1\n  otherwise\n    2\n",
	"define g(x: Int) -> Int\ngiven\n  y = x + 1\n  y = y * 2\n  total: Int = y\n  total\n",
	"define h(xs: Array[Int]) -> Result[Int, String]\ngiven\n  [1, 2, 3]\n  { a: 1, b: \"two\" }\n  h(xs)\n",
	"define m(x: Int) -> Int\ngiven\n  given x\n    0 ->\n      1\n    _ -> 2\n",
}

func TestFormatCanonical(t *testing.T) {
	source := "import std.io\n\n\ntype Money = Int\n  invariant value >= 0\n\n\ndefine add(x: Int,y: Int) -> Int\n  expect x >= 0\ngiven\n  x   +   y\n"
	program := mustParse(t, source)
	got := Format(program)
	want := "import std.io\n" +
		"\n" +
		"type Money = Int\n" +
		"  invariant value >= 0\n" +
		"\n" +
		"define add(x: Int, y: Int) -> Int\n" +
		"  expect x >= 0\n" +
		"given\n" +
		"  x + y\n"
	if got != want {
		t.Fatalf("canonical form mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatSumType(t *testing.T) {
	program := mustParse(t, "type Color =\n  | Red\n  | Green\n  | Blue\n")
	got := Format(program)
	want := "type Color =\n  | Red\n  | Green\n  | Blue\n"
	if got != want {
		t.Fatalf("sum type form mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatWhenAndGivenBlocks(t *testing.T) {
	source := "define f(x: Bool) -> Int\ngiven\n  when x\n    1\n  otherwise\n    2\n"
	program := mustParse(t, source)
	got := Format(program)
	if got != source {
		t.Fatalf("when block mismatch:\ngot:\n%s\nwant:\n%s", got, source)
	}

	source = "define d(x: Int) -> String\ngiven\n  given x\n    0 -> \"zero\"\n    _ -> \"other\"\n"
	program = mustParse(t, source)
	got = Format(program)
	if got != source {
		t.Fatalf("given block mismatch:\ngot:\n%s\nwant:\n%s", got, source)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, source := range formatterCorpus {
		program := mustParse(t, source)
		formatted := Format(program)
		reparsed, diags := Parse(formatted)
		if len(diags) > 0 {
			t.Fatalf("canonical output failed to reparse: %v\nsource:\n%s\nformatted:\n%s", diags, source, formatted)
		}
		if again := Format(reparsed); again != formatted {
			t.Fatalf("round-trip changed the tree:\nfirst:\n%s\nsecond:\n%s", formatted, again)
		}
	}
}

func TestFormatIdempotence(t *testing.T) {
	for _, source := range formatterCorpus {
		once := Format(mustParse(t, source))
		twice := Format(mustParse(t, once))
		if once != twice {
			t.Fatalf("formatter is not idempotent:\nonce:\n%s\ntwice:\n%s", once, twice)
		}
	}
}

func TestFormatIndentWidth(t *testing.T) {
	program := mustParse(t, "define f(x: Int) -> Int\n  expect x >= 0\ngiven\n  x\n")
	got := NewFormatter(4).Format(program)
	if !strings.Contains(got, "\n    expect x >= 0\n") {
		t.Fatalf("expected 4-space contract indent, got:\n%s", got)
	}
}

func TestFormatStringEscapes(t *testing.T) {
	program := mustParse(t, "define f() -> String\ngiven\n  \"a\\nb\\\"c\\\\\"\n")
	got := Format(program)
	if !strings.Contains(got, `"a\nb\"c\\"`) {
		t.Fatalf("expected escaped string in output, got:\n%s", got)
	}
}

func TestFormatFloats(t *testing.T) {
	program := mustParse(t, "define f() -> Float\ngiven\n  2.0\n")
	got := Format(program)
	if !strings.Contains(got, "2.0") {
		t.Fatalf("expected float to keep its decimal point, got:\n%s", got)
	}
}
