package vibe

// Result carries the artifacts of every pass the pipeline reached plus
// the shared, source-ordered diagnostic buffer.
type Result struct {
	Tokens      []Token
	Program     *Program
	Types       *TypeInfo
	Report      *VerificationReport
	Optimized   *Program
	Rewrites    int
	Output      string
	Diagnostics []Diagnostic
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	return hasErrors(r.Diagnostics)
}

// Run drives the full pipeline: lex, parse, check, verify, optimize,
// emit. Each pass appends its diagnostics; a pass that produced an
// error-severity diagnostic halts the pipeline. Running twice on the same
// input yields byte-identical output and identical diagnostics.
func Run(source string, cfg Config) *Result {
	result := &Result{}

	tokens, diags := Lex(source)
	result.Tokens = tokens
	result.Diagnostics = append(result.Diagnostics, diags...)
	if hasErrors(diags) {
		return result
	}

	program, diags := ParseTokens(tokens)
	result.Program = program
	result.Diagnostics = append(result.Diagnostics, diags...)
	if hasErrors(diags) {
		return result
	}

	info, diags := Check(program)
	result.Types = info
	result.Diagnostics = append(result.Diagnostics, diags...)
	if hasErrors(diags) {
		return result
	}

	report, diags := Verify(program, cfg)
	result.Report = report
	result.Diagnostics = append(result.Diagnostics, diags...)
	if hasErrors(diags) {
		return result
	}

	result.Optimized, result.Rewrites = Optimize(program)

	output, diags := Generate(result.Optimized)
	result.Output = output
	result.Diagnostics = append(result.Diagnostics, diags...)
	if hasErrors(diags) {
		result.Output = ""
	}

	return result
}
