package vibe

import (
	"strings"
	"testing"
)

func checkSource(t *testing.T, source string) (*TypeInfo, []Diagnostic) {
	t.Helper()
	program := mustParse(t, source)
	return Check(program)
}

func checkOK(t *testing.T, source string) *TypeInfo {
	t.Helper()
	info, diags := checkSource(t, source)
	if len(diags) > 0 {
		t.Fatalf("expected no type diagnostics, got %v", diags)
	}
	return info
}

func checkOneError(t *testing.T, source, want string) Diagnostic {
	t.Helper()
	_, diags := checkSource(t, source)
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %v", diags)
	}
	if diags[0].Kind != KindType {
		t.Fatalf("expected type diagnostic, got %s", diags[0].Kind)
	}
	if !strings.Contains(diags[0].Message, want) {
		t.Fatalf("expected message containing %q, got %q", want, diags[0].Message)
	}
	return diags[0]
}

func TestCheckBodyTypeMismatch(t *testing.T) {
	diag := checkOneError(t,
		"define bad(x: Int) -> String\ngiven\n  x\n",
		"body type Int does not match return type String")
	if diag.Pos.Line != 3 {
		t.Fatalf("expected diagnostic at the body, got line %d", diag.Pos.Line)
	}
}

func TestCheckLiteralTypes(t *testing.T) {
	cases := []struct {
		ret, body string
	}{
		{"Int", "42"},
		{"Float", "3.14"},
		{"String", `"hello"`},
		{"Bool", "true"},
	}
	for _, tc := range cases {
		checkOK(t, "define f() -> "+tc.ret+"\ngiven\n  "+tc.body+"\n")
	}
}

func TestCheckArithmetic(t *testing.T) {
	checkOK(t, "define f(x: Int, y: Int) -> Int\ngiven\n  x + y * 2 - x % y\n")
	checkOK(t, "define f(x: Float) -> Float\ngiven\n  x * 2.0\n")
	checkOK(t, "define f(a: String, b: String) -> String\ngiven\n  a + b\n")
	checkOneError(t,
		"define f(x: Int) -> Int\ngiven\n  x + true\n",
		"cannot apply '+' to Int and Bool")
}

func TestCheckMixedNumericPromotes(t *testing.T) {
	checkOK(t, "define f(x: Int) -> Float\ngiven\n  x + 1.5\n")
}

func TestCheckComparisonAndLogical(t *testing.T) {
	checkOK(t, "define f(x: Int, y: Int) -> Bool\ngiven\n  x < y && x >= 0 || !(x == y)\n")
	checkOneError(t,
		"define f(a: String) -> Bool\ngiven\n  a < a\n",
		"cannot apply '<' to String and String")
	checkOneError(t,
		"define f(x: Int) -> Bool\ngiven\n  x && true\n",
		"left operand of '&&' must be Bool")
}

func TestCheckUnary(t *testing.T) {
	checkOK(t, "define f(x: Int) -> Int\ngiven\n  -x\n")
	checkOneError(t,
		"define f(a: String) -> Bool\ngiven\n  !a\n",
		"operand of '!' must be Bool")
}

func TestCheckUndefinedIdentifier(t *testing.T) {
	checkOneError(t,
		"define f() -> Int\ngiven\n  missing\n",
		"undefined identifier 'missing'")
}

func TestCheckCallArityAndArguments(t *testing.T) {
	source := "define add(x: Int, y: Int) -> Int\ngiven\n  x + y\n\ndefine f() -> Int\ngiven\n  add(1)\n"
	checkOneError(t, source, "expects 2 arguments, got 1")

	source = "define add(x: Int, y: Int) -> Int\ngiven\n  x + y\n\ndefine f() -> Int\ngiven\n  add(1, \"two\")\n"
	checkOneError(t, source, "argument 2 of 'add': expected Int, got String")

	checkOK(t, "define add(x: Int, y: Int) -> Int\ngiven\n  x + y\n\ndefine f() -> Int\ngiven\n  add(1, 2)\n")
}

func TestCheckWhenCondition(t *testing.T) {
	checkOneError(t,
		"define f(x: Int) -> Unit\ngiven\n  when x\n    1\n",
		"when condition must be Bool")
}

func TestCheckWhenBranchMismatch(t *testing.T) {
	checkOneError(t,
		"define f(x: Bool) -> Int\ngiven\n  when x\n    1\n  otherwise\n    \"two\"\n",
		"when branches have different types")
}

func TestCheckWhenWithoutOtherwiseIsUnit(t *testing.T) {
	checkOK(t, "define f(x: Bool) -> Unit\ngiven\n  when x\n    1\n")
	checkOneError(t,
		"define f(x: Bool) -> Int\ngiven\n  when x\n    1\n",
		"body type Unit does not match return type Int")
}

func TestCheckContractsMustBeBool(t *testing.T) {
	checkOneError(t,
		"define f(x: Int) -> Int\n  expect x + 1\ngiven\n  x\n",
		"precondition must be Bool, got Int")
	checkOneError(t,
		"define f(x: Int) -> Int\n  ensure result + 1\ngiven\n  x\n",
		"postcondition must be Bool, got Int")
	checkOneError(t,
		"type Money = Int\n  invariant value + 1\n",
		"invariant must be Bool, got Int")
}

func TestCheckOldOnlyInPostconditions(t *testing.T) {
	checkOK(t, "define f(x: Int) -> Int\n  ensure result >= old(x)\ngiven\n  x + 1\n")
	checkOneError(t,
		"define f(x: Int) -> Int\n  expect old(x) > 0\ngiven\n  x\n",
		"old(...) is only allowed in postconditions")
}

func TestCheckLetBindings(t *testing.T) {
	checkOK(t, "define f(x: Int) -> Int\ngiven\n  y = x + 1\n  y\n")
	checkOK(t, "define f() -> Int\ngiven\n  total: Int = 0\n  total\n")
	checkOneError(t,
		"define f() -> Int\ngiven\n  y: String = 1\n  0\n",
		"let binding 'y' type String does not match value type Int")
}

func TestCheckAssignment(t *testing.T) {
	checkOK(t, "define f(x: Int) -> Int\ngiven\n  y = x\n  y = y + 1\n  y\n")
	checkOneError(t,
		"define f(x: Int) -> Int\ngiven\n  y = x\n  y = \"s\"\n  y\n",
		"cannot assign String to 'y' of type Int")
}

func TestCheckArrayLiteral(t *testing.T) {
	checkOK(t, "define f() -> Array[Int]\ngiven\n  [1, 2, 3]\n")
	checkOneError(t,
		"define f() -> Array[Int]\ngiven\n  [1, \"two\"]\n",
		"array element type mismatch")
}

func TestCheckAliasResolution(t *testing.T) {
	checkOK(t, "type Money = Int\n\ndefine f(m: Money) -> Int\ngiven\n  m\n")
	checkOK(t, "type Money = Int\n\ndefine f(x: Int) -> Money\ngiven\n  x\n")
}

func TestCheckSumTypeConstructors(t *testing.T) {
	source := "type Shape =\n  | Circle(Float)\n  | Square(Float)\n\ndefine c(r: Float) -> Shape\ngiven\n  Circle(r)\n"
	checkOK(t, source)

	source = "type Shape =\n  | Circle(Float)\n  | Square(Float)\n\ndefine c() -> Shape\ngiven\n  Circle(1.0, 2.0)\n"
	checkOneError(t, source, "constructor 'Circle' expects 1 arguments, got 2")
}

func TestCheckGivenPatterns(t *testing.T) {
	source := "type Shape =\n  | Circle(Float)\n  | Square(Float)\n\ndefine area(s: Shape) -> Float\ngiven\n  given s\n    Circle(r) -> r * r\n    Square(w) -> w * w\n"
	checkOK(t, source)

	source = "type Shape =\n  | Circle(Float)\n  | Square(Float)\n\ndefine area(s: Shape) -> Float\ngiven\n  given s\n    Circle(r) -> r * r\n"
	checkOneError(t, source, "inexhaustive patterns: missing variant 'Square'")

	source = "type Shape =\n  | Circle(Float)\n  | Square(Float)\n\ndefine area(s: Shape) -> Float\ngiven\n  given s\n    Triangle(x) -> x\n    _ -> 0.0\n"
	checkOneError(t, source, "unknown variant 'Triangle'")
}

func TestCheckGivenCaseTypesMustMatch(t *testing.T) {
	checkOneError(t,
		"define f(x: Int) -> Int\ngiven\n  given x\n    0 -> 1\n    _ -> \"other\"\n",
		"given cases have different types")
}

func TestCheckDuplicateParameters(t *testing.T) {
	checkOneError(t,
		"define f(x: Int, x: Int) -> Int\ngiven\n  x\n",
		"duplicate parameter 'x'")
}

func TestCheckDuplicateVariants(t *testing.T) {
	checkOneError(t,
		"type T =\n  | A\n  | A\n",
		"duplicate variant 'A'")
}

func TestCheckTypeInfoAnnotations(t *testing.T) {
	source := "define f(x: Int) -> Int\ngiven\n  x + 1\n"
	program := mustParse(t, source)
	info, diags := Check(program)
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	fn := program.Decls[0].(*FuncDecl)
	expr := fn.Body.Stmts[0].(*ExprStmt).Expr
	if got := info.TypeOf(expr); got != "Int" {
		t.Fatalf("expected Int annotation, got %s", got)
	}
	sum := expr.(*BinaryExpr)
	if got := info.TypeOf(sum.Left); got != "Int" {
		t.Fatalf("expected Int for x, got %s", got)
	}
}

func TestCheckDeterminism(t *testing.T) {
	source := "define f(x: Int) -> String\ngiven\n  missing + x\n"
	program1 := mustParse(t, source)
	_, first := Check(program1)
	program2 := mustParse(t, source)
	_, second := Check(program2)
	if len(first) != len(second) {
		t.Fatalf("diagnostic counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("diagnostic %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}
