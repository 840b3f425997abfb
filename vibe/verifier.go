package vibe

import (
	"context"
	"fmt"
)

// VerifyStatus is the verifier's decision about a single contract.
type VerifyStatus int

const (
	StatusUnknown VerifyStatus = iota
	StatusProven
	StatusRuntimeCheck
	StatusViolated
)

func (s VerifyStatus) String() string {
	switch s {
	case StatusProven:
		return "proven"
	case StatusRuntimeCheck:
		return "runtime"
	case StatusViolated:
		return "violated"
	default:
		return "unknown"
	}
}

// VerifyLevel selects how aggressively contracts are discharged.
type VerifyLevel string

const (
	LevelNone    VerifyLevel = "none"
	LevelRuntime VerifyLevel = "runtime"
	LevelHybrid  VerifyLevel = "hybrid"
	LevelFull    VerifyLevel = "full"
)

// VerificationResult reports the decision for one contract.
type VerificationResult struct {
	Name         string
	ContractKind string // "precondition", "postcondition", "invariant"
	Status       VerifyStatus
	Message      string
	Pos          Position
}

type VerificationReport struct {
	Results []VerificationResult
}

// Counts tallies results by outcome.
func (r *VerificationReport) Counts() (proven, runtime, violated int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusProven:
			proven++
		case StatusRuntimeCheck:
			runtime++
		case StatusViolated:
			violated++
		}
	}
	return
}

// Verifier discharges contracts symbolically, annotating each Contract
// node and planning residual runtime checks for the emitter.
type Verifier struct {
	cfg    Config
	oracle Oracle

	report *VerificationReport
	errors []Diagnostic
}

func NewVerifier(cfg Config) *Verifier {
	oracle := cfg.Oracle
	if oracle == nil {
		oracle = unknownOracle{}
	}
	return &Verifier{cfg: cfg, oracle: oracle}
}

// Verify walks every declaration's contracts. Diagnostics carry violations
// and, under the full level, unproven contracts.
func Verify(program *Program, cfg Config) (*VerificationReport, []Diagnostic) {
	return NewVerifier(cfg).Verify(program)
}

func (v *Verifier) Verify(program *Program) (*VerificationReport, []Diagnostic) {
	v.report = &VerificationReport{}
	v.errors = nil

	if v.cfg.Level == LevelNone {
		return v.report, nil
	}

	for _, decl := range program.Decls {
		switch decl := decl.(type) {
		case *FuncDecl:
			v.verifyFunction(decl)
		case *TypeDecl:
			v.verifyTypeInvariants(decl)
		}
	}

	sortDiagnostics(v.errors)
	return v.report, v.errors
}

func (v *Verifier) record(contract *Contract, name, kind string, status VerifyStatus, message string) {
	contract.Status = status
	v.report.Results = append(v.report.Results, VerificationResult{
		Name:         name,
		ContractKind: kind,
		Status:       status,
		Message:      message,
		Pos:          contract.Cond.Pos(),
	})
	if status == StatusViolated {
		v.errors = append(v.errors, errorDiag(KindVerification, contract.Cond.Pos(),
			"%s: %s", name, message))
	} else if status == StatusRuntimeCheck && v.cfg.Level == LevelFull {
		v.errors = append(v.errors, errorDiag(KindVerification, contract.Cond.Pos(),
			"%s: %s could not be statically verified", name, kind))
	}
}

func (v *Verifier) verifyFunction(fn *FuncDecl) {
	if v.cfg.Level == LevelRuntime {
		for _, pre := range fn.Preconditions {
			v.record(pre, fn.Name, "precondition", StatusRuntimeCheck, "precondition checked at runtime")
		}
		for _, post := range fn.Postconditions {
			v.record(post, fn.Name, "postcondition", StatusRuntimeCheck, "postcondition checked at runtime")
		}
		return
	}

	// Preconditions are the caller's obligation: inside the function they
	// are assumptions, so only a trivially false one is a defect here.
	entry := newSymbolicEvaluator()
	for _, pre := range fn.Preconditions {
		switch truth := entry.checkTruth(pre.Cond); {
		case truth != nil && !*truth:
			v.record(pre, fn.Name, "precondition", StatusViolated, "precondition is trivially false")
		case truth != nil && *truth:
			v.record(pre, fn.Name, "precondition", StatusProven, "precondition is trivially true")
		default:
			v.record(pre, fn.Name, "precondition", StatusProven, "precondition is assumed to hold at call sites")
		}
	}

	eval := newSymbolicEvaluator()
	for _, pre := range fn.Preconditions {
		for _, bound := range eval.extractBounds(pre.Cond) {
			eval.addAssumption(bound)
		}
	}
	for _, bound := range letEqualities(fn.Body) {
		eval.addAssumption(bound)
	}

	var facts []Expression
	for _, pre := range fn.Preconditions {
		facts = append(facts, pre.Cond)
	}

	// When the body's value is a pure expression, postconditions may
	// mention result by that expression.
	resultExpr := tailExpression(fn.Body)
	if resultExpr != nil && !isPure(resultExpr) {
		resultExpr = nil
	}

	for _, post := range fn.Postconditions {
		goal := post.Cond
		if resultExpr != nil {
			goal = substituteIdent(goal, "result", resultExpr)
		}
		v.dischargeGoal(eval, facts, goal, post, fn.Name, "postcondition")
	}
}

func tailExpression(body *Block) Expression {
	if len(body.Stmts) == 0 {
		return nil
	}
	if stmt, ok := body.Stmts[len(body.Stmts)-1].(*ExprStmt); ok {
		return stmt.Expr
	}
	return nil
}

// substituteIdent rebuilds an expression with every use of name replaced.
// The input is left untouched.
func substituteIdent(expr Expression, name string, replacement Expression) Expression {
	switch expr := expr.(type) {
	case *Ident:
		if expr.Name == name {
			return replacement
		}
		return expr
	case *BinaryExpr:
		return &BinaryExpr{
			Left:     substituteIdent(expr.Left, name, replacement),
			Op:       expr.Op,
			Right:    substituteIdent(expr.Right, name, replacement),
			position: expr.position,
		}
	case *UnaryExpr:
		return &UnaryExpr{Op: expr.Op, Operand: substituteIdent(expr.Operand, name, replacement), position: expr.position}
	case *CallExpr:
		out := &CallExpr{Callee: substituteIdent(expr.Callee, name, replacement), position: expr.position}
		for _, arg := range expr.Args {
			out.Args = append(out.Args, substituteIdent(arg, name, replacement))
		}
		return out
	case *MemberExpr:
		return &MemberExpr{Object: substituteIdent(expr.Object, name, replacement), Member: expr.Member, position: expr.position}
	case *OldExpr:
		// old(e) is already an entry-time value; result never occurs inside.
		return expr
	default:
		return expr
	}
}

func (v *Verifier) verifyTypeInvariants(td *TypeDecl) {
	if v.cfg.Level == LevelRuntime {
		for _, inv := range td.Invariants {
			v.record(inv, td.Name, "invariant", StatusRuntimeCheck, "invariant checked at runtime")
		}
		return
	}

	// Earlier invariants constrain later ones.
	eval := newSymbolicEvaluator()
	var facts []Expression
	for _, inv := range td.Invariants {
		v.dischargeGoal(eval, facts, inv.Cond, inv, td.Name, "invariant")
		for _, bound := range eval.extractBounds(inv.Cond) {
			eval.addAssumption(bound)
		}
		facts = append(facts, inv.Cond)
	}
}

func (v *Verifier) dischargeGoal(eval *symbolicEvaluator, facts []Expression, goal Expression, contract *Contract, name, kind string) {
	truth := eval.checkTruth(goal)
	switch {
	case truth != nil && *truth:
		v.record(contract, name, kind, StatusProven, kind+" is proven")
		return
	case truth != nil && !*truth:
		v.record(contract, name, kind, StatusViolated, kind+" is trivially false")
		return
	}

	switch result := v.consultOracle(facts, goal); result.Verdict {
	case VerdictUnsat:
		v.record(contract, name, kind, StatusProven, kind+" is proven by the oracle")
	case VerdictSat:
		message := kind + " is refuted by the oracle"
		if result.Witness != "" {
			message = fmt.Sprintf("%s (witness: %s)", message, result.Witness)
		}
		v.record(contract, name, kind, StatusViolated, message)
	default:
		v.record(contract, name, kind, StatusRuntimeCheck, kind+" could not be statically verified")
	}
}

func (v *Verifier) consultOracle(facts []Expression, goal Expression) OracleResult {
	ctx := context.Background()
	if v.cfg.VerifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.cfg.VerifyTimeout)
		defer cancel()
	}
	result := v.oracle.Check(ctx, facts, goal)
	if ctx.Err() != nil {
		return OracleResult{Verdict: VerdictUnknown}
	}
	return result
}

// letEqualities collects equalities for pure constant let bindings at the
// top level of a function body.
func letEqualities(body *Block) []symBound {
	var bounds []symBound
	eval := newSymbolicEvaluator()
	for _, stmt := range body.Stmts {
		let, ok := stmt.(*LetStmt)
		if !ok {
			continue
		}
		if val, ok := eval.evalConst(let.Value); ok && val.isNumeric() {
			bounds = append(bounds, symBound{varName: let.Name, op: "==", value: val.asFloat()})
		}
	}
	return bounds
}
