package vibe

// pureBuiltins are the calls the optimizer may reason across. Anything not
// on the table is treated as side-effecting.
var pureBuiltins = map[string]bool{
	"length": true,
	"abs":    true,
	"min":    true,
	"max":    true,
}

// Optimizer rewrites an AST bottom-up to a fixpoint: constant folding,
// identity simplification, and dead branch elimination. The input tree is
// never mutated; every pass builds new function, block, statement and
// compound-expression nodes, while type declarations, imports, patterns,
// literals and identifiers are shared with the input.
type Optimizer struct {
	Applied int
}

// Optimize returns a structurally new, simplified program plus the number
// of rewrites applied.
func Optimize(program *Program) (*Program, int) {
	o := &Optimizer{}
	return o.Optimize(program), o.Applied
}

func (o *Optimizer) Optimize(program *Program) *Program {
	tree := program
	for {
		before := o.Applied
		tree = o.optimizeProgram(tree)
		if o.Applied == before {
			return tree
		}
	}
}

func (o *Optimizer) optimizeProgram(program *Program) *Program {
	out := &Program{Imports: program.Imports}
	for _, decl := range program.Decls {
		out.Decls = append(out.Decls, o.optimizeDecl(decl))
	}
	return out
}

func (o *Optimizer) optimizeDecl(decl Declaration) Declaration {
	fn, ok := decl.(*FuncDecl)
	if !ok {
		return decl
	}
	out := &FuncDecl{
		Name:       fn.Name,
		Params:     fn.Params,
		ReturnType: fn.ReturnType,
		Body:       o.optimizeBlock(fn.Body),
		position:   fn.position,
	}
	for _, pre := range fn.Preconditions {
		out.Preconditions = append(out.Preconditions, o.optimizeContract(pre))
	}
	for _, post := range fn.Postconditions {
		out.Postconditions = append(out.Postconditions, o.optimizeContract(post))
	}
	return out
}

func (o *Optimizer) optimizeContract(contract *Contract) *Contract {
	return &Contract{
		Cond:     o.optimizeExpr(contract.Cond),
		Status:   contract.Status,
		position: contract.position,
	}
}

func (o *Optimizer) optimizeBlock(block *Block) *Block {
	out := &Block{position: block.position}
	for _, stmt := range block.Stmts {
		out.Stmts = append(out.Stmts, o.optimizeStmt(stmt))
	}
	return out
}

func (o *Optimizer) optimizeStmt(stmt Statement) Statement {
	switch stmt := stmt.(type) {
	case *Block:
		return o.optimizeBlock(stmt)
	case *LetStmt:
		return &LetStmt{
			Name:       stmt.Name,
			Annotation: stmt.Annotation,
			Value:      o.optimizeExpr(stmt.Value),
			position:   stmt.position,
		}
	case *AssignStmt:
		return &AssignStmt{Target: stmt.Target, Value: o.optimizeExpr(stmt.Value), position: stmt.position}
	case *ExprStmt:
		return &ExprStmt{Expr: o.optimizeExpr(stmt.Expr), position: stmt.position}
	default:
		return stmt
	}
}

func (o *Optimizer) optimizeExpr(expr Expression) Expression {
	switch expr := expr.(type) {
	case *BinaryExpr:
		return o.optimizeBinary(expr)
	case *UnaryExpr:
		return o.optimizeUnary(expr)
	case *CallExpr:
		out := &CallExpr{Callee: o.optimizeExpr(expr.Callee), position: expr.position}
		for _, arg := range expr.Args {
			out.Args = append(out.Args, o.optimizeExpr(arg))
		}
		return out
	case *MemberExpr:
		return &MemberExpr{Object: o.optimizeExpr(expr.Object), Member: expr.Member, position: expr.position}
	case *ArrayLit:
		out := &ArrayLit{position: expr.position}
		for _, elem := range expr.Elems {
			out.Elems = append(out.Elems, o.optimizeExpr(elem))
		}
		return out
	case *RecordLit:
		out := &RecordLit{position: expr.position}
		for _, field := range expr.Fields {
			out.Fields = append(out.Fields, RecordField{Name: field.Name, Value: o.optimizeExpr(field.Value)})
		}
		return out
	case *WhenExpr:
		return o.optimizeWhen(expr)
	case *GivenExpr:
		out := &GivenExpr{Scrutinee: o.optimizeExpr(expr.Scrutinee), position: expr.position}
		for _, pc := range expr.Cases {
			out.Cases = append(out.Cases, &PatternCase{
				Pattern:  pc.Pattern,
				Result:   o.optimizeExpr(pc.Result),
				position: pc.position,
			})
		}
		return out
	case *OldExpr:
		return &OldExpr{Inner: o.optimizeExpr(expr.Inner), position: expr.position}
	default:
		// Literals and identifiers pass through.
		return expr
	}
}

// ------------------------------------------------------------------
// Binary: constant folding + identity simplification
// ------------------------------------------------------------------

func (o *Optimizer) optimizeBinary(expr *BinaryExpr) Expression {
	left := o.optimizeExpr(expr.Left)
	right := o.optimizeExpr(expr.Right)

	if folded := foldBinary(left, expr.Op, right, expr.position); folded != nil {
		o.Applied++
		return folded
	}

	if simplified := o.simplifyIdentity(left, expr.Op, right, expr.position); simplified != nil {
		o.Applied++
		return simplified
	}

	return &BinaryExpr{Left: left, Op: expr.Op, Right: right, position: expr.position}
}

func foldBinary(left Expression, op TokenType, right Expression, pos Position) Expression {
	if l, ok := left.(*IntLit); ok {
		if r, ok := right.(*IntLit); ok {
			return foldInt(l.Value, op, r.Value, pos)
		}
	}
	if l, ok := left.(*FloatLit); ok {
		if r, ok := right.(*FloatLit); ok {
			return foldFloat(l.Value, op, r.Value, pos)
		}
	}
	// Mixed Int/Float promotes to Float.
	if lv, lok := numericValue(left); lok {
		if rv, rok := numericValue(right); rok && isMixedNumeric(left, right) {
			return foldFloat(lv, op, rv, pos)
		}
	}
	if l, ok := left.(*StringLit); ok {
		if r, ok := right.(*StringLit); ok && op == tokenPlus {
			return &StringLit{Value: l.Value + r.Value, position: pos}
		}
	}
	if l, ok := left.(*BoolLit); ok {
		if r, ok := right.(*BoolLit); ok {
			return foldBool(l.Value, op, r.Value, pos)
		}
	}
	return nil
}

func numericValue(expr Expression) (float64, bool) {
	switch expr := expr.(type) {
	case *IntLit:
		return float64(expr.Value), true
	case *FloatLit:
		return expr.Value, true
	}
	return 0, false
}

func isMixedNumeric(left, right Expression) bool {
	_, li := left.(*IntLit)
	_, lf := left.(*FloatLit)
	_, ri := right.(*IntLit)
	_, rf := right.(*FloatLit)
	return (li && rf) || (lf && ri)
}

func foldInt(lv int64, op TokenType, rv int64, pos Position) Expression {
	switch op {
	case tokenPlus:
		return &IntLit{Value: lv + rv, position: pos}
	case tokenMinus:
		return &IntLit{Value: lv - rv, position: pos}
	case tokenStar:
		return &IntLit{Value: lv * rv, position: pos}
	case tokenPercent:
		if rv == 0 {
			return nil
		}
		return &IntLit{Value: lv % rv, position: pos}
	case tokenSlash:
		if rv == 0 {
			return nil
		}
		if lv%rv == 0 {
			return &IntLit{Value: lv / rv, position: pos}
		}
		return &FloatLit{Value: float64(lv) / float64(rv), position: pos}
	case tokenEQ:
		return &BoolLit{Value: lv == rv, position: pos}
	case tokenNotEQ:
		return &BoolLit{Value: lv != rv, position: pos}
	case tokenLT:
		return &BoolLit{Value: lv < rv, position: pos}
	case tokenLTE:
		return &BoolLit{Value: lv <= rv, position: pos}
	case tokenGT:
		return &BoolLit{Value: lv > rv, position: pos}
	case tokenGTE:
		return &BoolLit{Value: lv >= rv, position: pos}
	}
	return nil
}

func foldFloat(lv float64, op TokenType, rv float64, pos Position) Expression {
	switch op {
	case tokenPlus:
		return &FloatLit{Value: lv + rv, position: pos}
	case tokenMinus:
		return &FloatLit{Value: lv - rv, position: pos}
	case tokenStar:
		return &FloatLit{Value: lv * rv, position: pos}
	case tokenSlash:
		if rv == 0 {
			return nil
		}
		return &FloatLit{Value: lv / rv, position: pos}
	case tokenEQ:
		return &BoolLit{Value: lv == rv, position: pos}
	case tokenNotEQ:
		return &BoolLit{Value: lv != rv, position: pos}
	case tokenLT:
		return &BoolLit{Value: lv < rv, position: pos}
	case tokenLTE:
		return &BoolLit{Value: lv <= rv, position: pos}
	case tokenGT:
		return &BoolLit{Value: lv > rv, position: pos}
	case tokenGTE:
		return &BoolLit{Value: lv >= rv, position: pos}
	}
	return nil
}

func foldBool(lv bool, op TokenType, rv bool, pos Position) Expression {
	switch op {
	case tokenAnd:
		return &BoolLit{Value: lv && rv, position: pos}
	case tokenOr:
		return &BoolLit{Value: lv || rv, position: pos}
	case tokenEQ:
		return &BoolLit{Value: lv == rv, position: pos}
	case tokenNotEQ:
		return &BoolLit{Value: lv != rv, position: pos}
	}
	return nil
}

func (o *Optimizer) simplifyIdentity(left Expression, op TokenType, right Expression, pos Position) Expression {
	lZero := isIntLiteral(left, 0)
	rZero := isIntLiteral(right, 0)
	lOne := isIntLiteral(left, 1)
	rOne := isIntLiteral(right, 1)

	switch {
	case op == tokenPlus && rZero:
		return left
	case op == tokenPlus && lZero:
		return right
	case op == tokenMinus && rZero:
		return left
	case op == tokenStar && rOne:
		return left
	case op == tokenStar && lOne:
		return right
	// Absorbing zero may only discard the other operand when it cannot
	// have effects.
	case op == tokenStar && rZero && isPure(left):
		return &IntLit{Value: 0, position: pos}
	case op == tokenStar && lZero && isPure(right):
		return &IntLit{Value: 0, position: pos}
	}
	return nil
}

func isIntLiteral(expr Expression, value int64) bool {
	lit, ok := expr.(*IntLit)
	return ok && lit.Value == value
}

func isPure(expr Expression) bool {
	switch expr := expr.(type) {
	case *IntLit, *FloatLit, *StringLit, *BoolLit, *Ident:
		return true
	case *UnaryExpr:
		return isPure(expr.Operand)
	case *BinaryExpr:
		return isPure(expr.Left) && isPure(expr.Right)
	case *MemberExpr:
		return isPure(expr.Object)
	case *OldExpr:
		return isPure(expr.Inner)
	case *ArrayLit:
		for _, elem := range expr.Elems {
			if !isPure(elem) {
				return false
			}
		}
		return true
	case *CallExpr:
		ident, ok := expr.Callee.(*Ident)
		if !ok || !pureBuiltins[ident.Name] {
			return false
		}
		for _, arg := range expr.Args {
			if !isPure(arg) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ------------------------------------------------------------------
// Unary: constant folding + double negation
// ------------------------------------------------------------------

func (o *Optimizer) optimizeUnary(expr *UnaryExpr) Expression {
	operand := o.optimizeExpr(expr.Operand)

	switch {
	case expr.Op == tokenMinus:
		if lit, ok := operand.(*IntLit); ok {
			o.Applied++
			return &IntLit{Value: -lit.Value, position: expr.position}
		}
		if lit, ok := operand.(*FloatLit); ok {
			o.Applied++
			return &FloatLit{Value: -lit.Value, position: expr.position}
		}
	case expr.Op == tokenBang:
		if lit, ok := operand.(*BoolLit); ok {
			o.Applied++
			return &BoolLit{Value: !lit.Value, position: expr.position}
		}
		if inner, ok := operand.(*UnaryExpr); ok && inner.Op == tokenBang {
			o.Applied++
			return inner.Operand
		}
	}

	return &UnaryExpr{Op: expr.Op, Operand: operand, position: expr.position}
}

// ------------------------------------------------------------------
// when: dead branch elimination
// ------------------------------------------------------------------

func (o *Optimizer) optimizeWhen(expr *WhenExpr) Expression {
	cond := o.optimizeExpr(expr.Cond)
	thenBlock := o.optimizeBlock(expr.Then)
	var elseBlock *Block
	if expr.Else != nil {
		elseBlock = o.optimizeBlock(expr.Else)
	}

	if lit, ok := cond.(*BoolLit); ok {
		if lit.Value {
			if single, ok := singleExprOf(thenBlock); ok {
				o.Applied++
				return single
			}
			// A multi-statement block stays wrapped under the taken
			// branch; dropping the otherwise branch still counts.
			if elseBlock != nil {
				o.Applied++
			}
			return &WhenExpr{Cond: cond, Then: thenBlock, position: expr.position}
		}
		o.Applied++
		if elseBlock != nil {
			return blockToExpr(elseBlock, expr.position)
		}
		// No otherwise branch: the expression contributes nothing; stand
		// in for Unit.
		return &IntLit{Value: 0, position: expr.position}
	}

	return &WhenExpr{Cond: cond, Then: thenBlock, Else: elseBlock, position: expr.position}
}

func singleExprOf(block *Block) (Expression, bool) {
	if len(block.Stmts) == 1 {
		if stmt, ok := block.Stmts[0].(*ExprStmt); ok {
			return stmt.Expr, true
		}
	}
	return nil, false
}

// blockToExpr extracts a single-expression block's value; multi-statement
// blocks are preserved under an always-taken branch.
func blockToExpr(block *Block, pos Position) Expression {
	if single, ok := singleExprOf(block); ok {
		return single
	}
	return &WhenExpr{
		Cond:     &BoolLit{Value: true, position: pos},
		Then:     block,
		position: pos,
	}
}
