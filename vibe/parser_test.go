package vibe

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, source string) *Program {
	t.Helper()
	program, diags := Parse(source)
	if len(diags) > 0 {
		t.Fatalf("expected no parse diagnostics, got %v", diags)
	}
	return program
}

func parseErr(t *testing.T, source string) Diagnostic {
	t.Helper()
	_, diags := Parse(source)
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %v", diags)
	}
	return diags[0]
}

func onlyFunc(t *testing.T, program *Program) *FuncDecl {
	t.Helper()
	if len(program.Decls) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(program.Decls))
	}
	fn, ok := program.Decls[0].(*FuncDecl)
	if !ok {
		t.Fatalf("expected function declaration, got %T", program.Decls[0])
	}
	return fn
}

func bodyExpr(t *testing.T, fn *FuncDecl) Expression {
	t.Helper()
	if len(fn.Body.Stmts) == 0 {
		t.Fatalf("expected non-empty body")
	}
	stmt, ok := fn.Body.Stmts[len(fn.Body.Stmts)-1].(*ExprStmt)
	if !ok {
		t.Fatalf("expected expression statement, got %T", fn.Body.Stmts[len(fn.Body.Stmts)-1])
	}
	return stmt.Expr
}

func TestParseImports(t *testing.T) {
	program := mustParse(t, "import std.io\nimport std.math\n")
	if len(program.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(program.Imports))
	}
	if program.Imports[0].Path != "std.io" || program.Imports[1].Path != "std.math" {
		t.Fatalf("unexpected import paths: %v, %v", program.Imports[0].Path, program.Imports[1].Path)
	}
}

func TestParseSimpleTypeAlias(t *testing.T) {
	program := mustParse(t, "type Money = Int\n")
	td, ok := program.Decls[0].(*TypeDecl)
	if !ok || td.Name != "Money" {
		t.Fatalf("expected type Money, got %#v", program.Decls[0])
	}
	alias, ok := td.Definition.(*AliasDef)
	if !ok || alias.Name != "Int" {
		t.Fatalf("expected alias to Int, got %#v", td.Definition)
	}
}

func TestParseRefinedType(t *testing.T) {
	program := mustParse(t, "type PositiveMoney = Int\n  invariant value > 0\n")
	td := program.Decls[0].(*TypeDecl)
	refined, ok := td.Definition.(*RefinedDef)
	if !ok {
		t.Fatalf("expected refined definition, got %#v", td.Definition)
	}
	base, ok := refined.Base.(*PrimitiveType)
	if !ok || base.Name != "Int" {
		t.Fatalf("expected Int base, got %#v", refined.Base)
	}
	if len(td.Invariants) != 1 {
		t.Fatalf("expected 1 invariant, got %d", len(td.Invariants))
	}
}

func TestParseMultipleInvariants(t *testing.T) {
	program := mustParse(t, "type Money = Int\n  invariant value >= 0\n  invariant value <= 9999\n")
	td := program.Decls[0].(*TypeDecl)
	if len(td.Invariants) != 2 {
		t.Fatalf("expected 2 invariants, got %d", len(td.Invariants))
	}
}

func TestParseSumType(t *testing.T) {
	source := "type TransferError =\n  | InsufficientFunds\n  | AccountNotFound\n  | InvalidAmount\n"
	program := mustParse(t, source)
	td := program.Decls[0].(*TypeDecl)
	sum, ok := td.Definition.(*SumDef)
	if !ok {
		t.Fatalf("expected sum definition, got %#v", td.Definition)
	}
	if len(sum.Variants) != 3 || sum.Variants[0].Name != "InsufficientFunds" {
		t.Fatalf("unexpected variants: %#v", sum.Variants)
	}
}

func TestParseSumTypeWithPayloads(t *testing.T) {
	source := "type Shape =\n  | Circle(Float)\n  | Rect(Float, Float)\n"
	program := mustParse(t, source)
	sum := program.Decls[0].(*TypeDecl).Definition.(*SumDef)
	if len(sum.Variants[0].Params) != 1 || len(sum.Variants[1].Params) != 2 {
		t.Fatalf("unexpected payload arities: %#v", sum.Variants)
	}
}

func TestParseTypeParameters(t *testing.T) {
	program := mustParse(t, "type Pair[A, B] = Record\n")
	td := program.Decls[0].(*TypeDecl)
	if len(td.TypeParams) != 2 || td.TypeParams[0] != "A" || td.TypeParams[1] != "B" {
		t.Fatalf("unexpected type params: %v", td.TypeParams)
	}
}

func TestParseRecordTypeDefinition(t *testing.T) {
	program := mustParse(t, "type Point = { x: Int, y: Int }\n")
	alias := program.Decls[0].(*TypeDecl).Definition.(*AliasDef)
	if alias.Name != "Record" || len(alias.TypeArgs) != 2 {
		t.Fatalf("expected Record with 2 field types, got %#v", alias)
	}
}

func TestParseFunctionWithContracts(t *testing.T) {
	source := "define add(x: Int, y: Int) -> Int\n  expect x >= 0\n  expect y >= 0\n  ensure result >= x\ngiven\n  x + y\n"
	fn := onlyFunc(t, mustParse(t, source))
	if fn.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("unexpected signature: %#v", fn)
	}
	if len(fn.Preconditions) != 2 || len(fn.Postconditions) != 1 {
		t.Fatalf("expected 2 expect / 1 ensure, got %d/%d", len(fn.Preconditions), len(fn.Postconditions))
	}
	if _, ok := fn.ReturnType.(*PrimitiveType); !ok {
		t.Fatalf("expected primitive return type, got %#v", fn.ReturnType)
	}
}

func TestParseArithmeticPrecedence(t *testing.T) {
	fn := onlyFunc(t, mustParse(t, "define f() -> Bool\ngiven\n  1 + 2 * 3 == 7\n"))
	eq, ok := bodyExpr(t, fn).(*BinaryExpr)
	if !ok || eq.Op != tokenEQ {
		t.Fatalf("expected == at root, got %#v", bodyExpr(t, fn))
	}
	sum, ok := eq.Left.(*BinaryExpr)
	if !ok || sum.Op != tokenPlus {
		t.Fatalf("expected + on the left, got %#v", eq.Left)
	}
	if lit, ok := sum.Left.(*IntLit); !ok || lit.Value != 1 {
		t.Fatalf("expected literal 1, got %#v", sum.Left)
	}
	product, ok := sum.Right.(*BinaryExpr)
	if !ok || product.Op != tokenStar {
		t.Fatalf("expected * under +, got %#v", sum.Right)
	}
	if lit, ok := eq.Right.(*IntLit); !ok || lit.Value != 7 {
		t.Fatalf("expected literal 7, got %#v", eq.Right)
	}
}

func TestParseLogicalPrecedence(t *testing.T) {
	fn := onlyFunc(t, mustParse(t, "define f(a: Bool, b: Bool, c: Bool) -> Bool\ngiven\n  a && b || c\n"))
	or, ok := bodyExpr(t, fn).(*BinaryExpr)
	if !ok || or.Op != tokenOr {
		t.Fatalf("expected || at root, got %#v", bodyExpr(t, fn))
	}
	if and, ok := or.Left.(*BinaryExpr); !ok || and.Op != tokenAnd {
		t.Fatalf("expected && on the left, got %#v", or.Left)
	}
}

func TestParseUnaryAndCalls(t *testing.T) {
	fn := onlyFunc(t, mustParse(t, "define f(x: Bool) -> Bool\ngiven\n  !g(x).ok\n"))
	not, ok := bodyExpr(t, fn).(*UnaryExpr)
	if !ok || not.Op != tokenBang {
		t.Fatalf("expected ! at root, got %#v", bodyExpr(t, fn))
	}
	member, ok := not.Operand.(*MemberExpr)
	if !ok || member.Member != "ok" {
		t.Fatalf("expected member access, got %#v", not.Operand)
	}
	if _, ok := member.Object.(*CallExpr); !ok {
		t.Fatalf("expected call under member, got %#v", member.Object)
	}
}

func TestParseWhenOtherwise(t *testing.T) {
	source := "define f(x: Bool) -> Int\ngiven\n  when x\n    1\n  otherwise\n    2\n"
	fn := onlyFunc(t, mustParse(t, source))
	when, ok := bodyExpr(t, fn).(*WhenExpr)
	if !ok {
		t.Fatalf("expected when expression, got %#v", bodyExpr(t, fn))
	}
	if when.Else == nil {
		t.Fatalf("expected otherwise block")
	}
	if len(when.Then.Stmts) != 1 || len(when.Else.Stmts) != 1 {
		t.Fatalf("unexpected branch sizes: %d/%d", len(when.Then.Stmts), len(when.Else.Stmts))
	}
}

func TestParseGivenExpression(t *testing.T) {
	source := "define describe(x: Int) -> String\ngiven\n  given x\n    0 -> \"zero\"\n    _ -> \"other\"\n"
	fn := onlyFunc(t, mustParse(t, source))
	given, ok := bodyExpr(t, fn).(*GivenExpr)
	if !ok {
		t.Fatalf("expected given expression, got %#v", bodyExpr(t, fn))
	}
	if len(given.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(given.Cases))
	}
	if _, ok := given.Cases[0].Pattern.(*LiteralPattern); !ok {
		t.Fatalf("expected literal pattern, got %#v", given.Cases[0].Pattern)
	}
	if _, ok := given.Cases[1].Pattern.(*WildcardPattern); !ok {
		t.Fatalf("expected wildcard pattern, got %#v", given.Cases[1].Pattern)
	}
}

func TestParseConstructorPatterns(t *testing.T) {
	source := "define unwrap(r: Wrapped) -> Int\ngiven\n  given r\n    Some(v) -> v\n    None() -> 0\n"
	fn := onlyFunc(t, mustParse(t, source))
	given := bodyExpr(t, fn).(*GivenExpr)
	some, ok := given.Cases[0].Pattern.(*ConstructorPattern)
	if !ok || some.Name != "Some" || len(some.Params) != 1 {
		t.Fatalf("expected Some(v), got %#v", given.Cases[0].Pattern)
	}
	if _, ok := some.Params[0].(*IdentPattern); !ok {
		t.Fatalf("expected identifier sub-pattern, got %#v", some.Params[0])
	}
}

func TestParseGivenCaseBlockContinuation(t *testing.T) {
	source := "define f(x: Int) -> Int\ngiven\n  given x\n    0 ->\n      1\n    _ -> 2\n"
	fn := onlyFunc(t, mustParse(t, source))
	given := bodyExpr(t, fn).(*GivenExpr)
	if len(given.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(given.Cases))
	}
	if _, ok := blockContinuation(given.Cases[0].Result); !ok {
		t.Fatalf("expected block continuation result, got %#v", given.Cases[0].Result)
	}
}

func TestParseLetAndAssign(t *testing.T) {
	source := "define f(x: Int) -> Int\ngiven\n  y = x + 1\n  y = y * 2\n  y\n"
	fn := onlyFunc(t, mustParse(t, source))
	if len(fn.Body.Stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(fn.Body.Stmts))
	}
	let, ok := fn.Body.Stmts[0].(*LetStmt)
	if !ok || let.Name != "y" || let.Annotation != nil {
		t.Fatalf("expected unannotated let, got %#v", fn.Body.Stmts[0])
	}
	if assign, ok := fn.Body.Stmts[1].(*AssignStmt); !ok || assign.Target != "y" {
		t.Fatalf("expected assignment to y, got %#v", fn.Body.Stmts[1])
	}
}

func TestParseLetAnnotation(t *testing.T) {
	source := "define f() -> Int\ngiven\n  total: Int = 0\n  total\n"
	fn := onlyFunc(t, mustParse(t, source))
	let, ok := fn.Body.Stmts[0].(*LetStmt)
	if !ok || let.Annotation == nil {
		t.Fatalf("expected annotated let, got %#v", fn.Body.Stmts[0])
	}
	if prim, ok := let.Annotation.(*PrimitiveType); !ok || prim.Name != "Int" {
		t.Fatalf("expected Int annotation, got %#v", let.Annotation)
	}
}

func TestParseParameterRebindingIsAssignment(t *testing.T) {
	source := "define f(x: Int) -> Int\ngiven\n  x = x + 1\n  x\n"
	fn := onlyFunc(t, mustParse(t, source))
	if _, ok := fn.Body.Stmts[0].(*AssignStmt); !ok {
		t.Fatalf("expected assignment to parameter, got %#v", fn.Body.Stmts[0])
	}
}

func TestParseArrayAndResultTypes(t *testing.T) {
	source := "define sum(nums: Array[Int]) -> Result[Int, String]\ngiven\n  0\n"
	fn := onlyFunc(t, mustParse(t, source))
	arr, ok := fn.Params[0].Type.(*ArrayType)
	if !ok {
		t.Fatalf("expected array type, got %#v", fn.Params[0].Type)
	}
	if elem, ok := arr.Elem.(*PrimitiveType); !ok || elem.Name != "Int" {
		t.Fatalf("expected Int element, got %#v", arr.Elem)
	}
	res, ok := fn.ReturnType.(*ResultType)
	if !ok {
		t.Fatalf("expected result type, got %#v", fn.ReturnType)
	}
	if failure, ok := res.Failure.(*PrimitiveType); !ok || failure.Name != "String" {
		t.Fatalf("expected String failure type, got %#v", res.Failure)
	}
}

func TestParseOldExpression(t *testing.T) {
	source := "define f(x: Int) -> Int\n  ensure result >= old(x)\ngiven\n  x + 1\n"
	fn := onlyFunc(t, mustParse(t, source))
	cmp := fn.Postconditions[0].Cond.(*BinaryExpr)
	old, ok := cmp.Right.(*OldExpr)
	if !ok {
		t.Fatalf("expected old(...), got %#v", cmp.Right)
	}
	if inner, ok := old.Inner.(*Ident); !ok || inner.Name != "x" {
		t.Fatalf("expected old(x), got %#v", old.Inner)
	}
}

func TestParseArrayAndRecordLiterals(t *testing.T) {
	source := "define f() -> Array[Int]\ngiven\n  [1, 2, 3]\n"
	fn := onlyFunc(t, mustParse(t, source))
	arr, ok := bodyExpr(t, fn).(*ArrayLit)
	if !ok || len(arr.Elems) != 3 {
		t.Fatalf("expected 3-element array literal, got %#v", bodyExpr(t, fn))
	}

	source = "define g() -> Unit\ngiven\n  { x: 1, y: 2 }\n"
	fn = onlyFunc(t, mustParse(t, source))
	rec, ok := bodyExpr(t, fn).(*RecordLit)
	if !ok || len(rec.Fields) != 2 || rec.Fields[0].Name != "x" {
		t.Fatalf("expected record literal, got %#v", bodyExpr(t, fn))
	}
}

func TestParseQuestionOperatorRejected(t *testing.T) {
	diag := parseErr(t, "define f(x: Int) -> Int\ngiven\n  g(x)?\n")
	if diag.Kind != KindSyntax || !strings.Contains(diag.Message, "error-propagation") {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
}

func TestParseForLoopRejected(t *testing.T) {
	diag := parseErr(t, "define f(items: Array[Int]) -> Unit\ngiven\n  for item in items\n")
	if diag.Kind != KindSyntax || !strings.Contains(diag.Message, "loops are not supported") {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		source string
		want   string
	}{
		{"define 42\n", "expected identifier"},
		{"define f(x: Int) Int\n", "expected '->'"},
		{"define f() -> Int\n  x\n", "expected 'given'"},
		{"type = Int\n", "expected type name"},
		{"42\n", "unexpected token"},
	}
	for _, tc := range cases {
		diag := parseErr(t, tc.source)
		if !strings.Contains(diag.Message, tc.want) {
			t.Fatalf("%q: expected message containing %q, got %q", tc.source, tc.want, diag.Message)
		}
	}
}

func TestParseMixedDeclarations(t *testing.T) {
	source := "type Money = Int\n\ndefine add(x: Int, y: Int) -> Int\ngiven\n  x + y\n"
	program := mustParse(t, source)
	if len(program.Decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(program.Decls))
	}
	if _, ok := program.Decls[0].(*TypeDecl); !ok {
		t.Fatalf("expected type declaration first")
	}
	if _, ok := program.Decls[1].(*FuncDecl); !ok {
		t.Fatalf("expected function declaration second")
	}
}
