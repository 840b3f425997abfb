package vibe

import (
	"fmt"
	"strings"
)

const typeUnknown = "Unknown"

var arithmeticOps = map[TokenType]bool{
	tokenPlus: true, tokenMinus: true, tokenStar: true, tokenSlash: true, tokenPercent: true,
}

var comparisonOps = map[TokenType]bool{
	tokenLT: true, tokenGT: true, tokenLTE: true, tokenGTE: true,
}

var equalityOps = map[TokenType]bool{
	tokenEQ: true, tokenNotEQ: true,
}

var logicalOps = map[TokenType]bool{
	tokenAnd: true, tokenOr: true,
}

// TypeInfo carries the inferred type of every expression the checker
// visited. Types are attached once and never narrowed afterwards.
type TypeInfo struct {
	ExprTypes map[Expression]string
}

func (ti *TypeInfo) set(expr Expression, ty string) {
	if _, ok := ti.ExprTypes[expr]; !ok {
		ti.ExprTypes[expr] = ty
	}
}

// TypeOf reports the resolved type of an expression, or Unknown.
func (ti *TypeInfo) TypeOf(expr Expression) string {
	if ty, ok := ti.ExprTypes[expr]; ok {
		return ty
	}
	return typeUnknown
}

type funcSig struct {
	paramNames []string
	paramTypes []string
	returnType string
}

type checker struct {
	typeEnv   map[string]string
	typeDecls map[string]*TypeDecl
	variants  map[string]string // constructor name -> declaring sum type
	funcSigs  map[string]funcSig

	info   *TypeInfo
	errors []Diagnostic

	inPostcondition bool
}

// Check type-checks a program. It continues past errors to maximize
// coverage; diagnostics come back in source order.
func Check(program *Program) (*TypeInfo, []Diagnostic) {
	c := &checker{
		typeEnv:   map[string]string{},
		typeDecls: map[string]*TypeDecl{},
		variants:  map[string]string{},
		funcSigs:  map[string]funcSig{},
		info:      &TypeInfo{ExprTypes: map[Expression]string{}},
	}

	// Recognized pure built-ins.
	c.funcSigs["length"] = funcSig{paramNames: []string{"value"}, paramTypes: []string{typeUnknown}, returnType: "Int"}
	c.funcSigs["abs"] = funcSig{paramNames: []string{"value"}, paramTypes: []string{typeUnknown}, returnType: typeUnknown}
	c.funcSigs["min"] = funcSig{paramNames: []string{"a", "b"}, paramTypes: []string{typeUnknown, typeUnknown}, returnType: typeUnknown}
	c.funcSigs["max"] = funcSig{paramNames: []string{"a", "b"}, paramTypes: []string{typeUnknown, typeUnknown}, returnType: typeUnknown}

	for _, decl := range program.Decls {
		if td, ok := decl.(*TypeDecl); ok {
			c.checkTypeDecl(td)
		}
	}
	for _, decl := range program.Decls {
		if fd, ok := decl.(*FuncDecl); ok {
			c.checkFuncDecl(fd)
		}
	}

	sortDiagnostics(c.errors)
	return c.info, c.errors
}

func (c *checker) errorAt(node Node, format string, args ...any) {
	c.errors = append(c.errors, errorDiag(KindType, node.Pos(), format, args...))
}

// ------------------------------------------------------------------
// Canonical type strings
// ------------------------------------------------------------------

func typeString(t Type) string {
	switch t := t.(type) {
	case *PrimitiveType:
		return t.Name
	case *ArrayType:
		return fmt.Sprintf("Array[%s]", typeString(t.Elem))
	case *ResultType:
		return fmt.Sprintf("Result[%s, %s]", typeString(t.Success), typeString(t.Failure))
	case *FunctionType:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = typeString(p)
		}
		return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), typeString(t.Return))
	case *NamedType:
		if len(t.Args) > 0 {
			args := make([]string, len(t.Args))
			for i, a := range t.Args {
				args[i] = typeString(a)
			}
			return fmt.Sprintf("%s[%s]", t.Name, strings.Join(args, ", "))
		}
		return t.Name
	default:
		return typeUnknown
	}
}

// ------------------------------------------------------------------
// Type declarations
// ------------------------------------------------------------------

func (c *checker) checkTypeDecl(decl *TypeDecl) {
	c.typeDecls[decl.Name] = decl

	switch def := decl.Definition.(type) {
	case *AliasDef:
		if len(def.TypeArgs) > 0 {
			args := make([]string, len(def.TypeArgs))
			for i, a := range def.TypeArgs {
				args[i] = typeString(a)
			}
			c.typeEnv[decl.Name] = fmt.Sprintf("%s[%s]", def.Name, strings.Join(args, ", "))
		} else {
			c.typeEnv[decl.Name] = def.Name
		}
	case *SumDef:
		c.typeEnv[decl.Name] = decl.Name
		seen := map[string]bool{}
		for _, variant := range def.Variants {
			if seen[variant.Name] {
				c.errorAt(variant, "duplicate variant '%s' in type '%s'", variant.Name, decl.Name)
				continue
			}
			seen[variant.Name] = true
			c.variants[variant.Name] = decl.Name
			c.typeEnv[variant.Name] = decl.Name
		}
	case *RefinedDef:
		c.typeEnv[decl.Name] = typeString(def.Base)
	}

	for _, inv := range decl.Invariants {
		env := map[string]string{
			"value": c.typeEnv[decl.Name],
			"self":  decl.Name,
		}
		invType := c.inferType(inv.Cond, env)
		if invType != "Bool" && invType != typeUnknown {
			c.errorAt(inv.Cond, "invariant must be Bool, got %s", invType)
		}
	}
}

// ------------------------------------------------------------------
// Function declarations
// ------------------------------------------------------------------

func (c *checker) checkFuncDecl(decl *FuncDecl) {
	retType := typeString(decl.ReturnType)

	sig := funcSig{returnType: retType}
	seen := map[string]bool{}
	for _, param := range decl.Params {
		if seen[param.Name] {
			c.errorAt(param, "duplicate parameter '%s' in function '%s'", param.Name, decl.Name)
		}
		seen[param.Name] = true
		sig.paramNames = append(sig.paramNames, param.Name)
		sig.paramTypes = append(sig.paramTypes, typeString(param.Type))
	}
	c.funcSigs[decl.Name] = sig

	localEnv := c.copyEnv(c.typeEnv)
	for i, param := range decl.Params {
		localEnv[param.Name] = sig.paramTypes[i]
	}

	for _, pre := range decl.Preconditions {
		preType := c.inferType(pre.Cond, localEnv)
		if preType != "Bool" && preType != typeUnknown {
			c.errorAt(pre.Cond, "precondition must be Bool, got %s", preType)
		}
	}

	postEnv := c.copyEnv(localEnv)
	postEnv["result"] = retType
	c.inPostcondition = true
	for _, post := range decl.Postconditions {
		postType := c.inferType(post.Cond, postEnv)
		if postType != "Bool" && postType != typeUnknown {
			c.errorAt(post.Cond, "postcondition must be Bool, got %s", postType)
		}
	}
	c.inPostcondition = false

	bodyType := c.checkBlock(decl.Body, localEnv)
	if bodyType != typeUnknown && retType != typeUnknown {
		if !c.typesCompatible(bodyType, retType) {
			c.errorAt(decl.Body, "function '%s' body type %s does not match return type %s",
				decl.Name, bodyType, retType)
		}
	}
}

func (c *checker) copyEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// ------------------------------------------------------------------
// Blocks / statements
// ------------------------------------------------------------------

func (c *checker) checkBlock(block *Block, env map[string]string) string {
	resultType := "Unit"
	localEnv := c.copyEnv(env)

	for _, stmt := range block.Stmts {
		switch stmt := stmt.(type) {
		case *LetStmt:
			valType := c.inferType(stmt.Value, localEnv)
			if stmt.Annotation != nil {
				annType := typeString(stmt.Annotation)
				if valType != typeUnknown && !c.typesCompatible(valType, annType) {
					c.errorAt(stmt, "let binding '%s' type %s does not match value type %s",
						stmt.Name, annType, valType)
				}
				localEnv[stmt.Name] = annType
			} else {
				localEnv[stmt.Name] = valType
			}
			resultType = "Unit"
		case *AssignStmt:
			valType := c.inferType(stmt.Value, localEnv)
			if targetType, ok := localEnv[stmt.Target]; ok && valType != typeUnknown {
				if !c.typesCompatible(valType, targetType) {
					c.errorAt(stmt, "cannot assign %s to '%s' of type %s",
						valType, stmt.Target, targetType)
				}
			}
			resultType = "Unit"
		case *ExprStmt:
			resultType = c.inferType(stmt.Expr, localEnv)
		case *Block:
			resultType = c.checkBlock(stmt, localEnv)
		}
	}

	return resultType
}

// ------------------------------------------------------------------
// Expression inference
// ------------------------------------------------------------------

func (c *checker) inferType(expr Expression, env map[string]string) string {
	ty := c.inferTypeUncached(expr, env)
	c.info.set(expr, ty)
	return ty
}

func (c *checker) inferTypeUncached(expr Expression, env map[string]string) string {
	switch expr := expr.(type) {
	case *IntLit:
		return "Int"
	case *FloatLit:
		return "Float"
	case *StringLit:
		return "String"
	case *BoolLit:
		return "Bool"

	case *Ident:
		if ty, ok := env[expr.Name]; ok {
			return ty
		}
		if sig, ok := c.funcSigs[expr.Name]; ok {
			return sig.returnType
		}
		c.errorAt(expr, "undefined identifier '%s'", expr.Name)
		return typeUnknown

	case *BinaryExpr:
		return c.inferBinary(expr, env)

	case *UnaryExpr:
		return c.inferUnary(expr, env)

	case *CallExpr:
		return c.inferCall(expr, env)

	case *MemberExpr:
		c.inferType(expr.Object, env)
		return typeUnknown

	case *ArrayLit:
		if len(expr.Elems) == 0 {
			return "Array[Unknown]"
		}
		elemType := c.inferType(expr.Elems[0], env)
		for _, elem := range expr.Elems[1:] {
			et := c.inferType(elem, env)
			if et != elemType && et != typeUnknown && elemType != typeUnknown {
				c.errorAt(elem, "array element type mismatch: expected %s, got %s", elemType, et)
			}
		}
		return fmt.Sprintf("Array[%s]", elemType)

	case *RecordLit:
		for _, field := range expr.Fields {
			c.inferType(field.Value, env)
		}
		return typeUnknown

	case *WhenExpr:
		return c.inferWhen(expr, env)

	case *GivenExpr:
		return c.inferGiven(expr, env)

	case *OldExpr:
		if !c.inPostcondition {
			c.errorAt(expr, "old(...) is only allowed in postconditions")
		}
		return c.inferType(expr.Inner, env)

	default:
		return typeUnknown
	}
}

func (c *checker) inferWhen(expr *WhenExpr, env map[string]string) string {
	condType := c.inferType(expr.Cond, env)
	if condType != "Bool" && condType != typeUnknown {
		c.errorAt(expr.Cond, "when condition must be Bool, got %s", condType)
	}
	thenType := c.checkBlock(expr.Then, env)
	if expr.Else == nil {
		return "Unit"
	}
	elseType := c.checkBlock(expr.Else, env)
	if thenType != elseType && thenType != typeUnknown && elseType != typeUnknown {
		c.errorAt(expr, "when branches have different types: %s vs %s", thenType, elseType)
	}
	return thenType
}

func (c *checker) inferGiven(expr *GivenExpr, env map[string]string) string {
	scrutType := c.inferType(expr.Scrutinee, env)

	var caseTypes []string
	covered := map[string]bool{}
	hasCatchAll := false

	for _, pc := range expr.Cases {
		caseEnv := c.copyEnv(env)
		c.checkPattern(pc.Pattern, scrutType, caseEnv)
		switch pat := pc.Pattern.(type) {
		case *ConstructorPattern:
			covered[pat.Name] = true
		case *IdentPattern, *WildcardPattern:
			hasCatchAll = true
		}
		caseTypes = append(caseTypes, c.inferType(pc.Result, caseEnv))
	}

	if decl, ok := c.typeDecls[scrutType]; ok && !hasCatchAll {
		if sum, ok := decl.Definition.(*SumDef); ok {
			for _, variant := range sum.Variants {
				if !covered[variant.Name] {
					c.errorAt(expr, "inexhaustive patterns: missing variant '%s'", variant.Name)
				}
			}
		}
	}

	if len(caseTypes) == 0 {
		return typeUnknown
	}
	first := caseTypes[0]
	for _, ct := range caseTypes[1:] {
		if ct != first && ct != typeUnknown && first != typeUnknown {
			c.errorAt(expr, "given cases have different types: %s vs %s", first, ct)
		}
	}
	return first
}

func (c *checker) checkPattern(pattern Pattern, scrutType string, env map[string]string) {
	switch pat := pattern.(type) {
	case *ConstructorPattern:
		declName, known := c.variants[pat.Name]
		if !known {
			c.errorAt(pat, "unknown variant '%s'", pat.Name)
			for _, sub := range pat.Params {
				c.checkPattern(sub, typeUnknown, env)
			}
			return
		}
		if scrutType != typeUnknown && scrutType != declName && !c.typesCompatible(scrutType, declName) {
			c.errorAt(pat, "pattern '%s' does not match scrutinee type %s", pat.Name, scrutType)
		}
		payload := c.variantPayload(declName, pat.Name)
		for i, sub := range pat.Params {
			subType := typeUnknown
			if i < len(payload) {
				subType = payload[i]
			}
			c.checkPattern(sub, subType, env)
		}
	case *IdentPattern:
		env[pat.Name] = scrutType
	case *LiteralPattern:
		litType := c.inferType(pat.Value, env)
		if scrutType != typeUnknown && litType != typeUnknown && !c.typesCompatible(litType, scrutType) {
			c.errorAt(pat, "literal pattern type %s does not match scrutinee type %s", litType, scrutType)
		}
	case *WildcardPattern:
	}
}

func (c *checker) variantPayload(declName, variantName string) []string {
	decl, ok := c.typeDecls[declName]
	if !ok {
		return nil
	}
	sum, ok := decl.Definition.(*SumDef)
	if !ok {
		return nil
	}
	for _, variant := range sum.Variants {
		if variant.Name == variantName {
			out := make([]string, len(variant.Params))
			for i, p := range variant.Params {
				out[i] = typeString(p)
			}
			return out
		}
	}
	return nil
}

func (c *checker) inferBinary(expr *BinaryExpr, env map[string]string) string {
	leftType := c.inferType(expr.Left, env)
	rightType := c.inferType(expr.Right, env)
	op := expr.Op

	switch {
	case arithmeticOps[op]:
		if leftType == typeUnknown || rightType == typeUnknown {
			return typeUnknown
		}
		if leftType == "Int" && rightType == "Int" {
			return "Int"
		}
		if leftType == "Float" && rightType == "Float" {
			return "Float"
		}
		if (leftType == "Int" && rightType == "Float") || (leftType == "Float" && rightType == "Int") {
			return "Float"
		}
		if op == tokenPlus && leftType == "String" && rightType == "String" {
			return "String"
		}
		c.errorAt(expr, "cannot apply '%s' to %s and %s", op, leftType, rightType)
		return typeUnknown

	case comparisonOps[op]:
		if leftType == typeUnknown || rightType == typeUnknown {
			return "Bool"
		}
		if isNumericType(leftType) && isNumericType(rightType) {
			return "Bool"
		}
		c.errorAt(expr, "cannot apply '%s' to %s and %s", op, leftType, rightType)
		return "Bool"

	case equalityOps[op]:
		if leftType != typeUnknown && rightType != typeUnknown && leftType != rightType &&
			!c.typesCompatible(leftType, rightType) && !c.typesCompatible(rightType, leftType) {
			c.errorAt(expr, "cannot compare %s with %s", leftType, rightType)
		}
		return "Bool"

	case logicalOps[op]:
		if leftType != "Bool" && leftType != typeUnknown {
			c.errorAt(expr, "left operand of '%s' must be Bool, got %s", op, leftType)
		}
		if rightType != "Bool" && rightType != typeUnknown {
			c.errorAt(expr, "right operand of '%s' must be Bool, got %s", op, rightType)
		}
		return "Bool"
	}

	return typeUnknown
}

func (c *checker) inferUnary(expr *UnaryExpr, env map[string]string) string {
	operandType := c.inferType(expr.Operand, env)
	switch expr.Op {
	case tokenBang:
		if operandType != "Bool" && operandType != typeUnknown {
			c.errorAt(expr, "operand of '!' must be Bool, got %s", operandType)
		}
		return "Bool"
	case tokenMinus:
		if isNumericType(operandType) || operandType == typeUnknown {
			return operandType
		}
		c.errorAt(expr, "operand of unary '-' must be numeric, got %s", operandType)
		return typeUnknown
	}
	return typeUnknown
}

func (c *checker) inferCall(expr *CallExpr, env map[string]string) string {
	if ident, ok := expr.Callee.(*Ident); ok {
		if sig, ok := c.funcSigs[ident.Name]; ok {
			if len(expr.Args) != len(sig.paramTypes) {
				c.errorAt(expr, "function '%s' expects %d arguments, got %d",
					ident.Name, len(sig.paramTypes), len(expr.Args))
			} else {
				for i, arg := range expr.Args {
					argType := c.inferType(arg, env)
					if argType != typeUnknown && !c.typesCompatible(argType, sig.paramTypes[i]) {
						c.errorAt(arg, "argument %d of '%s': expected %s, got %s",
							i+1, ident.Name, sig.paramTypes[i], argType)
					}
				}
			}
			c.info.set(expr.Callee, sig.returnType)
			return sig.returnType
		}
		// Sum-type variants act as constructors in expression position.
		if declName, ok := c.variants[ident.Name]; ok {
			payload := c.variantPayload(declName, ident.Name)
			if len(expr.Args) != len(payload) {
				c.errorAt(expr, "constructor '%s' expects %d arguments, got %d",
					ident.Name, len(payload), len(expr.Args))
			} else {
				for i, arg := range expr.Args {
					argType := c.inferType(arg, env)
					if argType != typeUnknown && !c.typesCompatible(argType, payload[i]) {
						c.errorAt(arg, "argument %d of '%s': expected %s, got %s",
							i+1, ident.Name, payload[i], argType)
					}
				}
			}
			c.info.set(expr.Callee, declName)
			return declName
		}
	}

	c.inferType(expr.Callee, env)
	for _, arg := range expr.Args {
		c.inferType(arg, env)
	}
	return typeUnknown
}

// ------------------------------------------------------------------
// Compatibility
// ------------------------------------------------------------------

func isNumericType(ty string) bool {
	return ty == "Int" || ty == "Float"
}

func (c *checker) typesCompatible(actual, expected string) bool {
	return c.typesCompatibleDepth(actual, expected, 0)
}

// Aliases resolve one level at a time; the depth guard breaks alias cycles.
func (c *checker) typesCompatibleDepth(actual, expected string, depth int) bool {
	if actual == expected {
		return true
	}
	if actual == typeUnknown || expected == typeUnknown {
		return true
	}
	if actual == "Int" && expected == "Float" {
		return true
	}
	if depth > 16 {
		return false
	}
	if _, ok := c.typeDecls[actual]; ok {
		if resolved, ok := c.typeEnv[actual]; ok && resolved != actual {
			if c.typesCompatibleDepth(resolved, expected, depth+1) {
				return true
			}
		}
	}
	if _, ok := c.typeDecls[expected]; ok {
		if resolved, ok := c.typeEnv[expected]; ok && resolved != expected {
			if c.typesCompatibleDepth(actual, resolved, depth+1) {
				return true
			}
		}
	}
	return false
}
