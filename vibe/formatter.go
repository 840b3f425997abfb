package vibe

import (
	"fmt"
	"strconv"
	"strings"
)

// Formatter serializes an AST back to canonical source. It is
// deterministic and idempotent over parse.
type Formatter struct {
	IndentWidth int
}

// Format renders a program with the default two-space indentation.
func Format(program *Program) string {
	return NewFormatter(2).Format(program)
}

func NewFormatter(indentWidth int) *Formatter {
	if indentWidth <= 0 {
		indentWidth = 2
	}
	return &Formatter{IndentWidth: indentWidth}
}

func (f *Formatter) indent(level int) string {
	return strings.Repeat(" ", f.IndentWidth*level)
}

func (f *Formatter) Format(program *Program) string {
	var parts []string

	for _, imp := range program.Imports {
		parts = append(parts, "import "+imp.Path)
	}
	if len(program.Imports) > 0 && len(program.Decls) > 0 {
		parts = append(parts, "")
	}

	for i, decl := range program.Decls {
		switch decl := decl.(type) {
		case *TypeDecl:
			parts = append(parts, f.formatTypeDecl(decl))
		case *FuncDecl:
			parts = append(parts, f.formatFuncDecl(decl))
		}
		if i < len(program.Decls)-1 {
			parts = append(parts, "")
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n") + "\n"
}

// ------------------------------------------------------------------
// Declarations
// ------------------------------------------------------------------

func (f *Formatter) formatTypeDecl(decl *TypeDecl) string {
	var lines []string
	header := "type " + decl.Name
	if len(decl.TypeParams) > 0 {
		header += "[" + strings.Join(decl.TypeParams, ", ") + "]"
	}
	def := f.formatTypeDef(decl.Definition)
	if strings.HasPrefix(def, "\n") {
		header += " =" + def
	} else {
		header += " = " + def
	}
	lines = append(lines, header)

	for _, inv := range decl.Invariants {
		lines = append(lines, f.indent(1)+"invariant "+f.formatExpr(inv.Cond))
	}

	return strings.Join(lines, "\n")
}

func (f *Formatter) formatTypeDef(def TypeDef) string {
	switch def := def.(type) {
	case *SumDef:
		parts := make([]string, len(def.Variants))
		for i, v := range def.Variants {
			part := "| " + v.Name
			if len(v.Params) > 0 {
				params := make([]string, len(v.Params))
				for j, p := range v.Params {
					params[j] = f.formatType(p)
				}
				part += "(" + strings.Join(params, ", ") + ")"
			}
			parts[i] = part
		}
		return "\n" + f.indent(1) + strings.Join(parts, "\n"+f.indent(1))
	case *AliasDef:
		s := def.Name
		if len(def.TypeArgs) > 0 {
			args := make([]string, len(def.TypeArgs))
			for i, a := range def.TypeArgs {
				args[i] = f.formatType(a)
			}
			s += "[" + strings.Join(args, ", ") + "]"
		}
		return s
	case *RefinedDef:
		return f.formatType(def.Base)
	default:
		return ""
	}
}

func (f *Formatter) formatFuncDecl(decl *FuncDecl) string {
	var lines []string

	params := make([]string, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = p.Name + ": " + f.formatType(p.Type)
	}
	lines = append(lines, fmt.Sprintf("define %s(%s) -> %s",
		decl.Name, strings.Join(params, ", "), f.formatType(decl.ReturnType)))

	for _, pre := range decl.Preconditions {
		lines = append(lines, f.indent(1)+"expect "+f.formatExpr(pre.Cond))
	}
	for _, post := range decl.Postconditions {
		lines = append(lines, f.indent(1)+"ensure "+f.formatExpr(post.Cond))
	}

	lines = append(lines, "given")
	lines = append(lines, f.formatBlock(decl.Body, 1)...)
	return strings.Join(lines, "\n")
}

// ------------------------------------------------------------------
// Types
// ------------------------------------------------------------------

func (f *Formatter) formatType(t Type) string {
	switch t := t.(type) {
	case *PrimitiveType:
		return t.Name
	case *ArrayType:
		return "Array[" + f.formatType(t.Elem) + "]"
	case *ResultType:
		return "Result[" + f.formatType(t.Success) + ", " + f.formatType(t.Failure) + "]"
	case *FunctionType:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = f.formatType(p)
		}
		return "(" + strings.Join(params, ", ") + ") -> " + f.formatType(t.Return)
	case *NamedType:
		s := t.Name
		if len(t.Args) > 0 {
			args := make([]string, len(t.Args))
			for i, a := range t.Args {
				args[i] = f.formatType(a)
			}
			s += "[" + strings.Join(args, ", ") + "]"
		}
		return s
	default:
		return ""
	}
}

// ------------------------------------------------------------------
// Expressions
// ------------------------------------------------------------------

func (f *Formatter) formatExpr(expr Expression) string {
	switch expr := expr.(type) {
	case *IntLit:
		return strconv.FormatInt(expr.Value, 10)
	case *FloatLit:
		return formatFloatLiteral(expr.Value)
	case *StringLit:
		escaped := strings.ReplaceAll(expr.Value, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		return "\"" + escaped + "\""
	case *BoolLit:
		if expr.Value {
			return "true"
		}
		return "false"
	case *Ident:
		return expr.Name
	case *BinaryExpr:
		// Operators are left-associative, so a right operand of equal
		// precedence needs parentheses as well as any looser operand.
		left := f.formatExpr(expr.Left)
		if inner, ok := expr.Left.(*BinaryExpr); ok && precedences[inner.Op] < precedences[expr.Op] {
			left = "(" + left + ")"
		}
		right := f.formatExpr(expr.Right)
		if inner, ok := expr.Right.(*BinaryExpr); ok && precedences[inner.Op] <= precedences[expr.Op] {
			right = "(" + right + ")"
		}
		return left + " " + string(expr.Op) + " " + right
	case *UnaryExpr:
		operand := f.formatExpr(expr.Operand)
		if _, ok := expr.Operand.(*BinaryExpr); ok {
			operand = "(" + operand + ")"
		}
		return string(expr.Op) + operand
	case *CallExpr:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = f.formatExpr(a)
		}
		return f.formatExpr(expr.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *MemberExpr:
		return f.formatExpr(expr.Object) + "." + expr.Member
	case *ArrayLit:
		elems := make([]string, len(expr.Elems))
		for i, e := range expr.Elems {
			elems[i] = f.formatExpr(e)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case *RecordLit:
		fields := make([]string, len(expr.Fields))
		for i, field := range expr.Fields {
			fields[i] = field.Name + ": " + f.formatExpr(field.Value)
		}
		return "{ " + strings.Join(fields, ", ") + " }"
	case *OldExpr:
		return "old(" + f.formatExpr(expr.Inner) + ")"
	case *WhenExpr:
		s := "when " + f.formatExpr(expr.Cond)
		if expr.Else != nil {
			s += " otherwise"
		}
		return s
	case *GivenExpr:
		return "given " + f.formatExpr(expr.Scrutinee)
	default:
		return ""
	}
}

// Float literals keep a decimal point so they re-lex as floats.
func formatFloatLiteral(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// ------------------------------------------------------------------
// Patterns
// ------------------------------------------------------------------

func (f *Formatter) formatPattern(pat Pattern) string {
	switch pat := pat.(type) {
	case *ConstructorPattern:
		if len(pat.Params) > 0 {
			params := make([]string, len(pat.Params))
			for i, p := range pat.Params {
				params[i] = f.formatPattern(p)
			}
			return pat.Name + "(" + strings.Join(params, ", ") + ")"
		}
		return pat.Name
	case *IdentPattern:
		return pat.Name
	case *LiteralPattern:
		return f.formatExpr(pat.Value)
	case *WildcardPattern:
		return "_"
	default:
		return ""
	}
}

// ------------------------------------------------------------------
// Blocks / statements
// ------------------------------------------------------------------

func (f *Formatter) formatBlock(block *Block, level int) []string {
	var lines []string
	for _, stmt := range block.Stmts {
		switch stmt := stmt.(type) {
		case *LetStmt:
			line := f.indent(level) + stmt.Name
			if stmt.Annotation != nil {
				line += ": " + f.formatType(stmt.Annotation)
			}
			line += " = " + f.formatExpr(stmt.Value)
			lines = append(lines, line)
		case *AssignStmt:
			lines = append(lines, f.indent(level)+stmt.Target+" = "+f.formatExpr(stmt.Value))
		case *ExprStmt:
			switch expr := stmt.Expr.(type) {
			case *WhenExpr:
				lines = append(lines, f.formatWhenBlock(expr, level)...)
			case *GivenExpr:
				lines = append(lines, f.formatGivenBlock(expr, level)...)
			default:
				lines = append(lines, f.indent(level)+f.formatExpr(stmt.Expr))
			}
		case *Block:
			lines = append(lines, f.formatBlock(stmt, level)...)
		}
	}
	return lines
}

func (f *Formatter) formatWhenBlock(expr *WhenExpr, level int) []string {
	lines := []string{f.indent(level) + "when " + f.formatExpr(expr.Cond)}
	lines = append(lines, f.formatBlock(expr.Then, level+1)...)
	if expr.Else != nil {
		lines = append(lines, f.indent(level)+"otherwise")
		lines = append(lines, f.formatBlock(expr.Else, level+1)...)
	}
	return lines
}

func (f *Formatter) formatGivenBlock(expr *GivenExpr, level int) []string {
	lines := []string{f.indent(level) + "given " + f.formatExpr(expr.Scrutinee)}
	for _, pc := range expr.Cases {
		pat := f.formatPattern(pc.Pattern)
		if cont, ok := blockContinuation(pc.Result); ok {
			lines = append(lines, f.indent(level+1)+pat+" ->")
			lines = append(lines, f.formatBlock(cont, level+2)...)
			continue
		}
		lines = append(lines, f.indent(level+1)+pat+" -> "+f.formatExpr(pc.Result))
	}
	return lines
}

// blockContinuation recognizes the always-taken branch wrapper the parser
// builds for a case body on its own indented lines.
func blockContinuation(expr Expression) (*Block, bool) {
	when, ok := expr.(*WhenExpr)
	if !ok || when.Else != nil {
		return nil, false
	}
	cond, ok := when.Cond.(*BoolLit)
	if !ok || !cond.Value {
		return nil, false
	}
	return when.Then, true
}
