package vibe

import "context"

// OracleVerdict is the answer of an external decision procedure for the
// satisfiability of a conjunction of facts plus a negated goal.
type OracleVerdict int

const (
	VerdictUnknown OracleVerdict = iota
	VerdictSat
	VerdictUnsat
)

// OracleResult carries the verdict and, for sat answers, an optional
// witness assignment rendered as text.
type OracleResult struct {
	Verdict OracleVerdict
	Witness string
}

// Oracle decides whether facts ∧ ¬goal is satisfiable. Unsat means the
// goal is proven under the facts; sat refutes it (ideally with a witness);
// unknown leaves the contract to a residual runtime check. Implementations
// must honor ctx and answer unknown when the budget runs out.
type Oracle interface {
	Check(ctx context.Context, facts []Expression, goal Expression) OracleResult
}

// unknownOracle is the default in-process oracle: it answers unknown for
// every goal the verifier's own patterns left open. Verification stays
// deterministic and free of network I/O.
type unknownOracle struct{}

func (unknownOracle) Check(ctx context.Context, facts []Expression, goal Expression) OracleResult {
	return OracleResult{Verdict: VerdictUnknown}
}
