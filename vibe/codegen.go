package vibe

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator spellings in the Python target.
var binaryOpTarget = map[TokenType]string{
	tokenAnd:     "and",
	tokenOr:      "or",
	tokenPlus:    "+",
	tokenMinus:   "-",
	tokenStar:    "*",
	tokenSlash:   "//",
	tokenPercent: "%",
	tokenEQ:      "==",
	tokenNotEQ:   "!=",
	tokenLT:      "<",
	tokenGT:      ">",
	tokenLTE:     "<=",
	tokenGTE:     ">=",
}

var unaryOpTarget = map[TokenType]string{
	tokenBang:  "not ",
	tokenMinus: "-",
}

// The runtime prelude defines exactly three names: Success, Error, Unit.
const runtimePrelude = `# --- VibeLang Runtime ---
class Success:
    def __init__(self, value):
        self.value = value
    def __repr__(self):
        return f"Success({self.value!r})"

class Error:
    def __init__(self, err):
        self.err = err
    def __repr__(self):
        return f"Error({self.err!r})"

Unit = None
# --- End Runtime ---
`

// CodeGenerator lowers a typed, verified, optimized AST to Python source.
// Residual checks planned by the verifier become assertions; proven
// contracts are dropped.
type CodeGenerator struct {
	indentLevel int
	lines       []string
	errors      []Diagnostic

	formatter *Formatter
	oldNames  map[*OldExpr]string
}

// Generate emits the target program. Internal diagnostics signal nodes the
// emitter cannot lower, which a type-checked tree never contains.
func Generate(program *Program) (string, []Diagnostic) {
	g := &CodeGenerator{formatter: NewFormatter(2)}
	return g.Generate(program)
}

func (g *CodeGenerator) Generate(program *Program) (string, []Diagnostic) {
	g.indentLevel = 0
	g.lines = nil
	g.errors = nil

	g.emitRaw(runtimePrelude)

	for _, imp := range program.Imports {
		g.emit("import " + strings.ReplaceAll(imp.Path, ".", "_"))
	}
	if len(program.Imports) > 0 {
		g.emit("")
	}

	for _, decl := range program.Decls {
		switch decl := decl.(type) {
		case *TypeDecl:
			g.genTypeDecl(decl)
		case *FuncDecl:
			g.genFuncDecl(decl)
		}
		g.emit("")
	}

	output := strings.TrimRight(strings.Join(g.lines, "\n"), "\n") + "\n"
	return output, g.errors
}

func (g *CodeGenerator) internalError(node Node, format string, args ...any) {
	g.errors = append(g.errors, errorDiag(KindInternal, node.Pos(), format, args...))
}

func (g *CodeGenerator) indent() string {
	return strings.Repeat("    ", g.indentLevel)
}

func (g *CodeGenerator) emit(line string) {
	if line == "" {
		g.lines = append(g.lines, "")
		return
	}
	g.lines = append(g.lines, g.indent()+line)
}

func (g *CodeGenerator) emitRaw(text string) {
	g.lines = append(g.lines, strings.Split(strings.TrimRight(text, "\n"), "\n")...)
}

// ------------------------------------------------------------------
// Type declarations
// ------------------------------------------------------------------

func (g *CodeGenerator) genTypeDecl(decl *TypeDecl) {
	switch def := decl.Definition.(type) {
	case *SumDef:
		g.genSumType(decl.Name, def)
	case *AliasDef, *RefinedDef:
		g.genValidatingType(decl)
	default:
		g.internalError(decl, "cannot lower type definition for '%s'", decl.Name)
	}
}

func (g *CodeGenerator) genSumType(name string, def *SumDef) {
	g.emit("class " + name + ":")
	g.indentLevel++
	g.emit("pass")
	g.indentLevel--
	g.emit("")

	for _, variant := range def.Variants {
		g.genVariant(name, variant)
	}
}

func (g *CodeGenerator) genVariant(baseName string, variant *Variant) {
	g.emit(fmt.Sprintf("class %s(%s):", variant.Name, baseName))
	g.indentLevel++
	if len(variant.Params) > 0 {
		params := make([]string, len(variant.Params))
		for i := range variant.Params {
			params[i] = fmt.Sprintf("v%d", i)
		}
		g.emit(fmt.Sprintf("def __init__(self, %s):", strings.Join(params, ", ")))
		g.indentLevel++
		for i := range variant.Params {
			g.emit(fmt.Sprintf("self.v%d = v%d", i, i))
		}
		g.indentLevel--
	} else {
		g.emit("pass")
	}
	g.indentLevel--
	g.emit("")
}

// Alias and refined declarations lower to a constructor that validates
// the residual invariants over the carried value.
func (g *CodeGenerator) genValidatingType(decl *TypeDecl) {
	g.emit("class " + decl.Name + ":")
	g.indentLevel++
	g.emit("def __init__(self, value):")
	g.indentLevel++
	for _, inv := range decl.Invariants {
		if inv.Status != StatusRuntimeCheck {
			continue
		}
		g.emit(fmt.Sprintf("assert %s, %s", g.genExpr(inv.Cond),
			pyString(fmt.Sprintf("Invariant violated for %s: %s", decl.Name, g.contractText(inv)))))
	}
	g.emit("self.value = value")
	g.indentLevel--
	g.indentLevel--
}

// ------------------------------------------------------------------
// Function declarations
// ------------------------------------------------------------------

func (g *CodeGenerator) genFuncDecl(decl *FuncDecl) {
	params := make([]string, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = p.Name
	}
	g.emit(fmt.Sprintf("def %s(%s):", decl.Name, strings.Join(params, ", ")))
	g.indentLevel++

	for _, pre := range decl.Preconditions {
		if pre.Status != StatusRuntimeCheck {
			continue
		}
		text := g.contractText(pre)
		g.emit(fmt.Sprintf("assert %s, %s", g.genExpr(pre.Cond),
			pyString("Precondition failed: "+text)))
	}

	// Residual postconditions that mention old(e) read entry snapshots.
	g.oldNames = map[*OldExpr]string{}
	for _, post := range decl.Postconditions {
		if post.Status != StatusRuntimeCheck {
			continue
		}
		g.collectOldExprs(post.Cond)
	}
	for _, pair := range g.orderedOldNames(decl.Postconditions) {
		g.emit(fmt.Sprintf("%s = %s", pair.name, g.genExprWithoutOld(pair.expr.Inner)))
	}

	g.genFunctionBody(decl)

	g.indentLevel--
}

type oldPair struct {
	expr *OldExpr
	name string
}

func (g *CodeGenerator) collectOldExprs(expr Expression) {
	switch expr := expr.(type) {
	case *OldExpr:
		if _, ok := g.oldNames[expr]; !ok {
			g.oldNames[expr] = fmt.Sprintf("_old_%d", len(g.oldNames)+1)
		}
	case *BinaryExpr:
		g.collectOldExprs(expr.Left)
		g.collectOldExprs(expr.Right)
	case *UnaryExpr:
		g.collectOldExprs(expr.Operand)
	case *CallExpr:
		for _, arg := range expr.Args {
			g.collectOldExprs(arg)
		}
	case *MemberExpr:
		g.collectOldExprs(expr.Object)
	}
}

func (g *CodeGenerator) orderedOldNames(posts []*Contract) []oldPair {
	var pairs []oldPair
	seen := map[*OldExpr]bool{}
	var walk func(Expression)
	walk = func(expr Expression) {
		switch expr := expr.(type) {
		case *OldExpr:
			if name, ok := g.oldNames[expr]; ok && !seen[expr] {
				seen[expr] = true
				pairs = append(pairs, oldPair{expr: expr, name: name})
			}
		case *BinaryExpr:
			walk(expr.Left)
			walk(expr.Right)
		case *UnaryExpr:
			walk(expr.Operand)
		case *CallExpr:
			for _, arg := range expr.Args {
				walk(arg)
			}
		case *MemberExpr:
			walk(expr.Object)
		}
	}
	for _, post := range posts {
		if post.Status == StatusRuntimeCheck {
			walk(post.Cond)
		}
	}
	return pairs
}

// The last expression binds result, residual postconditions assert, and
// the function returns. Bodies without a value return Unit.
func (g *CodeGenerator) genFunctionBody(decl *FuncDecl) {
	stmts := decl.Body.Stmts
	if len(stmts) == 0 {
		g.emit("result = Unit")
		g.genPostconditions(decl)
		g.emit("return result")
		return
	}

	for _, stmt := range stmts[:len(stmts)-1] {
		g.genStatement(stmt)
	}

	last := stmts[len(stmts)-1]
	if exprStmt, ok := last.(*ExprStmt); ok {
		g.emit("result = " + g.genExpr(exprStmt.Expr))
	} else {
		g.genStatement(last)
		g.emit("result = Unit")
	}
	g.genPostconditions(decl)
	g.emit("return result")
}

func (g *CodeGenerator) genPostconditions(decl *FuncDecl) {
	for _, post := range decl.Postconditions {
		if post.Status != StatusRuntimeCheck {
			continue
		}
		g.emit(fmt.Sprintf("assert %s, %s", g.genExpr(post.Cond),
			pyString("Postcondition failed: "+g.contractText(post))))
	}
}

// contractText is the canonical VibeLang rendering used in failure
// messages.
func (g *CodeGenerator) contractText(contract *Contract) string {
	return g.formatter.formatExpr(contract.Cond)
}

// ------------------------------------------------------------------
// Statements
// ------------------------------------------------------------------

func (g *CodeGenerator) genStatement(stmt Statement) {
	switch stmt := stmt.(type) {
	case *LetStmt:
		g.emit(fmt.Sprintf("%s = %s", stmt.Name, g.genExpr(stmt.Value)))
	case *AssignStmt:
		g.emit(fmt.Sprintf("%s = %s", stmt.Target, g.genExpr(stmt.Value)))
	case *ExprStmt:
		if when, ok := stmt.Expr.(*WhenExpr); ok {
			g.genWhenStatement(when)
			return
		}
		g.emit(g.genExpr(stmt.Expr))
	case *Block:
		for _, inner := range stmt.Stmts {
			g.genStatement(inner)
		}
	default:
		g.internalError(stmt, "cannot lower statement")
	}
}

func (g *CodeGenerator) genWhenStatement(expr *WhenExpr) {
	g.emit("if " + g.genExpr(expr.Cond) + ":")
	g.indentLevel++
	g.genBlockStatements(expr.Then)
	g.indentLevel--
	if expr.Else != nil {
		g.emit("else:")
		g.indentLevel++
		g.genBlockStatements(expr.Else)
		g.indentLevel--
	}
}

func (g *CodeGenerator) genBlockStatements(block *Block) {
	if len(block.Stmts) == 0 {
		g.emit("pass")
		return
	}
	for _, stmt := range block.Stmts {
		g.genStatement(stmt)
	}
}

// ------------------------------------------------------------------
// Expressions
// ------------------------------------------------------------------

func (g *CodeGenerator) genExpr(expr Expression) string {
	switch expr := expr.(type) {
	case *IntLit:
		return strconv.FormatInt(expr.Value, 10)
	case *FloatLit:
		return formatFloatLiteral(expr.Value)
	case *StringLit:
		return pyString(expr.Value)
	case *BoolLit:
		if expr.Value {
			return "True"
		}
		return "False"
	case *Ident:
		return expr.Name
	case *BinaryExpr:
		op, ok := binaryOpTarget[expr.Op]
		if !ok {
			g.internalError(expr, "cannot lower operator '%s'", expr.Op)
			op = string(expr.Op)
		}
		return fmt.Sprintf("(%s %s %s)", g.genExpr(expr.Left), op, g.genExpr(expr.Right))
	case *UnaryExpr:
		op, ok := unaryOpTarget[expr.Op]
		if !ok {
			g.internalError(expr, "cannot lower operator '%s'", expr.Op)
			op = string(expr.Op)
		}
		return fmt.Sprintf("(%s%s)", op, g.genExpr(expr.Operand))
	case *CallExpr:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = g.genExpr(a)
		}
		return fmt.Sprintf("%s(%s)", g.genExpr(expr.Callee), strings.Join(args, ", "))
	case *MemberExpr:
		return g.genExpr(expr.Object) + "." + expr.Member
	case *ArrayLit:
		elems := make([]string, len(expr.Elems))
		for i, e := range expr.Elems {
			elems[i] = g.genExpr(e)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case *RecordLit:
		fields := make([]string, len(expr.Fields))
		for i, field := range expr.Fields {
			fields[i] = pyString(field.Name) + ": " + g.genExpr(field.Value)
		}
		return "{" + strings.Join(fields, ", ") + "}"
	case *WhenExpr:
		return g.genWhenExpr(expr)
	case *GivenExpr:
		return g.genGivenExpr(expr)
	case *OldExpr:
		if name, ok := g.oldNames[expr]; ok {
			return name
		}
		return g.genExpr(expr.Inner)
	default:
		g.internalError(expr, "cannot lower expression")
		return "None"
	}
}

// genExprWithoutOld renders the snapshot initializer itself, bypassing the
// snapshot substitution.
func (g *CodeGenerator) genExprWithoutOld(expr Expression) string {
	saved := g.oldNames
	g.oldNames = map[*OldExpr]string{}
	out := g.genExpr(expr)
	g.oldNames = saved
	return out
}

func (g *CodeGenerator) genWhenExpr(expr *WhenExpr) string {
	cond := g.genExpr(expr.Cond)
	thenCode := g.genBlockValue(expr.Then)
	if expr.Else != nil {
		return fmt.Sprintf("(%s if %s else %s)", thenCode, cond, g.genBlockValue(expr.Else))
	}
	return fmt.Sprintf("(%s if %s else Unit)", thenCode, cond)
}

func (g *CodeGenerator) genBlockValue(block *Block) string {
	if len(block.Stmts) > 0 {
		if stmt, ok := block.Stmts[len(block.Stmts)-1].(*ExprStmt); ok {
			return g.genExpr(stmt.Expr)
		}
	}
	return "Unit"
}

// given lowers to a lambda over the scrutinee with a conditional chain
// built bottom-up from the cases.
func (g *CodeGenerator) genGivenExpr(expr *GivenExpr) string {
	scrutinee := g.genExpr(expr.Scrutinee)

	result := "Unit"
	for i := len(expr.Cases) - 1; i >= 0; i-- {
		pc := expr.Cases[i]
		cond := g.genPatternCondition("_vl_scrutinee", pc.Pattern)
		val := g.genExpr(pc.Result)
		if cond == "True" {
			result = val
			continue
		}
		result = fmt.Sprintf("(%s if %s else %s)", val, cond, result)
	}

	return fmt.Sprintf("(lambda _vl_scrutinee: %s)(%s)", result, scrutinee)
}

func (g *CodeGenerator) genPatternCondition(varName string, pattern Pattern) string {
	switch pat := pattern.(type) {
	case *LiteralPattern:
		return fmt.Sprintf("%s == %s", varName, g.genExpr(pat.Value))
	case *IdentPattern, *WildcardPattern:
		return "True"
	case *ConstructorPattern:
		return fmt.Sprintf("isinstance(%s, %s)", varName, pat.Name)
	default:
		g.internalError(pattern, "cannot lower pattern")
		return "False"
	}
}

// pyString renders a Python string literal.
func pyString(s string) string {
	return strconv.Quote(s)
}
