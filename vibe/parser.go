package vibe

type (
	prefixParseFn func() Expression
	infixParseFn  func(Expression) Expression
)

type parser struct {
	tokens []Token
	pos    int

	errors []Diagnostic
	scopes []map[string]struct{}

	prefixFns map[TokenType]prefixParseFn
	infixFns  map[TokenType]infixParseFn
}

// Parse lexes and parses source text into a Program. Lexical and syntactic
// diagnostics stop the pass at the first error.
func Parse(source string) (*Program, []Diagnostic) {
	tokens, diags := Lex(source)
	if len(diags) > 0 {
		return nil, diags
	}
	return ParseTokens(tokens)
}

// ParseTokens parses an already-lexed token stream.
func ParseTokens(tokens []Token) (*Program, []Diagnostic) {
	p := newParser(tokens)
	program := p.parseProgram()
	if len(p.errors) > 0 {
		return nil, p.errors[:1]
	}
	return program, nil
}

func newParser(tokens []Token) *parser {
	if len(tokens) == 0 {
		tokens = []Token{{Type: tokenEOF, Pos: Position{1, 1}}}
	}
	p := &parser{tokens: tokens}

	p.prefixFns = map[TokenType]prefixParseFn{
		tokenInt:       p.parseIntegerLiteral,
		tokenFloat:     p.parseFloatLiteral,
		tokenStringLit: p.parseStringLiteral,
		tokenTrue:      p.parseBooleanLiteral,
		tokenFalse:     p.parseBooleanLiteral,
		tokenIdent:     p.parseIdentifier,
		tokenSelf:      p.parseSelfLiteral,
		tokenOld:       p.parseOldExpression,
		tokenWhen:      p.parseWhenExpression,
		tokenGiven:     p.parseGivenExpression,
		tokenLParen:    p.parseGroupedExpression,
		tokenLBracket:  p.parseArrayLiteral,
		tokenLBrace:    p.parseRecordLiteral,
		tokenBang:      p.parsePrefixExpression,
		tokenMinus:     p.parsePrefixExpression,
	}

	p.infixFns = map[TokenType]infixParseFn{
		tokenOr:      p.parseInfixExpression,
		tokenAnd:     p.parseInfixExpression,
		tokenEQ:      p.parseInfixExpression,
		tokenNotEQ:   p.parseInfixExpression,
		tokenLT:      p.parseInfixExpression,
		tokenGT:      p.parseInfixExpression,
		tokenLTE:     p.parseInfixExpression,
		tokenGTE:     p.parseInfixExpression,
		tokenPlus:    p.parseInfixExpression,
		tokenMinus:   p.parseInfixExpression,
		tokenStar:    p.parseInfixExpression,
		tokenSlash:   p.parseInfixExpression,
		tokenPercent: p.parseInfixExpression,
		tokenLParen:  p.parseCallExpression,
		tokenDot:     p.parseMemberExpression,
		tokenQuest:   p.parseQuestionExpression,
	}

	return p
}

const (
	lowestPrec = iota
	precOr
	precAnd
	precEquality
	precComparison
	precSum
	precProduct
	precPrefix
	precCall
)

var precedences = map[TokenType]int{
	tokenOr:      precOr,
	tokenAnd:     precAnd,
	tokenEQ:      precEquality,
	tokenNotEQ:   precEquality,
	tokenLT:      precComparison,
	tokenGT:      precComparison,
	tokenLTE:     precComparison,
	tokenGTE:     precComparison,
	tokenPlus:    precSum,
	tokenMinus:   precSum,
	tokenStar:    precProduct,
	tokenSlash:   precProduct,
	tokenPercent: precProduct,
	tokenLParen:  precCall,
	tokenDot:     precCall,
	tokenQuest:   precCall,
}

// ------------------------------------------------------------------
// Token helpers
// ------------------------------------------------------------------

func (p *parser) cur() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) peek() Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) advance() Token {
	tok := p.cur()
	if tok.Type != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(tt TokenType) (Token, bool) {
	tok := p.cur()
	if tok.Type != tt {
		p.errorExpected(tok, tokenLabel(tt))
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) skipNewlines() {
	for p.cur().Type == tokenNewline {
		p.advance()
	}
}

func (p *parser) failed() bool {
	return len(p.errors) > 0
}

func (p *parser) addError(pos Position, format string, args ...any) {
	p.errors = append(p.errors, errorDiag(KindSyntax, pos, format, args...))
}

func (p *parser) errorExpected(tok Token, expected string) {
	p.addError(tok.Pos, "expected %s, got %s", expected, tokenLabel(tok.Type))
}

func (p *parser) errorUnexpected(tok Token) {
	p.addError(tok.Pos, "unexpected token %s", tokenLabel(tok.Type))
}

// ------------------------------------------------------------------
// Binding scopes (distinguish let bindings from assignments)
// ------------------------------------------------------------------

func (p *parser) pushScope() {
	p.scopes = append(p.scopes, map[string]struct{}{})
}

func (p *parser) popScope() {
	p.scopes = p.scopes[:len(p.scopes)-1]
}

func (p *parser) bind(name string) {
	if len(p.scopes) > 0 {
		p.scopes[len(p.scopes)-1][name] = struct{}{}
	}
}

func (p *parser) isBound(name string) bool {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if _, ok := p.scopes[i][name]; ok {
			return true
		}
	}
	return false
}

// ------------------------------------------------------------------
// Top level
// ------------------------------------------------------------------

func (p *parser) parseProgram() *Program {
	program := &Program{}

	p.skipNewlines()

	for p.cur().Type == tokenImport {
		imp := p.parseImport()
		if imp == nil {
			return program
		}
		program.Imports = append(program.Imports, imp)
		p.skipNewlines()
	}

	for p.cur().Type != tokenEOF && !p.failed() {
		var decl Declaration
		switch p.cur().Type {
		case tokenType:
			decl = p.parseTypeDecl()
		case tokenDefine:
			decl = p.parseFuncDecl()
		default:
			p.errorUnexpected(p.cur())
			return program
		}
		if decl == nil {
			return program
		}
		program.Decls = append(program.Decls, decl)
		p.skipNewlines()
	}

	return program
}

func (p *parser) parseImport() *ImportDecl {
	tok, _ := p.expect(tokenImport)

	name, ok := p.expect(tokenIdent)
	if !ok {
		return nil
	}
	path := name.Literal
	for p.cur().Type == tokenDot {
		p.advance()
		part, ok := p.expect(tokenIdent)
		if !ok {
			return nil
		}
		path += "." + part.Literal
	}

	return &ImportDecl{Path: path, position: tok.Pos}
}

// ------------------------------------------------------------------
// Function declarations
// ------------------------------------------------------------------

func (p *parser) parseFuncDecl() Declaration {
	defineTok, _ := p.expect(tokenDefine)

	nameTok, ok := p.expect(tokenIdent)
	if !ok {
		return nil
	}

	if _, ok := p.expect(tokenLParen); !ok {
		return nil
	}
	var params []Param
	if p.cur().Type != tokenRParen {
		for {
			param, ok := p.parseParam()
			if !ok {
				return nil
			}
			params = append(params, param)
			if p.cur().Type != tokenComma {
				break
			}
			p.advance()
		}
	}
	if _, ok := p.expect(tokenRParen); !ok {
		return nil
	}

	if _, ok := p.expect(tokenArrow); !ok {
		return nil
	}
	returnType := p.parseType()
	if returnType == nil {
		return nil
	}

	p.skipNewlines()

	// Contract lines and the given body may sit under one shared indent.
	hasOuterIndent := false
	if p.cur().Type == tokenIndent {
		p.advance()
		hasOuterIndent = true
	}

	var pre, post []*Contract
	for p.cur().Type == tokenExpect || p.cur().Type == tokenEnsure {
		kw := p.advance()
		cond := p.parseExpression(lowestPrec)
		if cond == nil {
			return nil
		}
		contract := &Contract{Cond: cond, Status: StatusUnknown, position: kw.Pos}
		if kw.Type == tokenExpect {
			pre = append(pre, contract)
		} else {
			post = append(post, contract)
		}
		p.skipNewlines()
	}

	if hasOuterIndent && p.cur().Type == tokenDedent {
		p.advance()
		hasOuterIndent = false
	}
	p.skipNewlines()

	if _, ok := p.expect(tokenGiven); !ok {
		return nil
	}
	p.skipNewlines()

	p.pushScope()
	for _, param := range params {
		p.bind(param.Name)
	}
	body := p.parseBlock()
	p.popScope()
	if body == nil {
		return nil
	}

	if hasOuterIndent && p.cur().Type == tokenDedent {
		p.advance()
	}

	return &FuncDecl{
		Name:           nameTok.Literal,
		Params:         params,
		ReturnType:     returnType,
		Preconditions:  pre,
		Postconditions: post,
		Body:           body,
		position:       defineTok.Pos,
	}
}

func (p *parser) parseParam() (Param, bool) {
	nameTok, ok := p.expect(tokenIdent)
	if !ok {
		return Param{}, false
	}
	if _, ok := p.expect(tokenColon); !ok {
		return Param{}, false
	}
	ty := p.parseType()
	if ty == nil {
		return Param{}, false
	}
	return Param{Name: nameTok.Literal, Type: ty, position: nameTok.Pos}, true
}

// ------------------------------------------------------------------
// Blocks / statements
// ------------------------------------------------------------------

func (p *parser) parseBlock() *Block {
	pos := p.cur().Pos
	var stmts []Statement

	p.pushScope()
	defer p.popScope()

	if p.cur().Type == tokenIndent {
		p.advance()
		for p.cur().Type != tokenDedent && p.cur().Type != tokenEOF && !p.failed() {
			stmt := p.parseStatement()
			if stmt == nil {
				return nil
			}
			stmts = append(stmts, stmt)
			p.skipNewlines()
		}
		if p.cur().Type == tokenDedent {
			p.advance()
		}
	} else {
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}

	if len(stmts) > 0 {
		pos = stmts[0].Pos()
	}
	return &Block{Stmts: stmts, position: pos}
}

func (p *parser) parseStatement() Statement {
	tok := p.cur()

	if tok.Type == tokenIdent {
		// Loop syntax is documented but unimplemented; reject it rather
		// than mis-parsing the header as expressions.
		if tok.Literal == "for" && p.peek().Type == tokenIdent {
			p.addError(tok.Pos, "'for ... in ...' loops are not supported")
			return nil
		}
		if p.peek().Type == tokenColon {
			return p.parseLetWithAnnotation()
		}
		if p.peek().Type == tokenAssign {
			return p.parseLetOrAssign()
		}
	}

	expr := p.parseExpression(lowestPrec)
	if expr == nil {
		return nil
	}
	return &ExprStmt{Expr: expr, position: expr.Pos()}
}

func (p *parser) parseLetWithAnnotation() Statement {
	nameTok := p.advance()
	p.advance() // ':'
	annotation := p.parseType()
	if annotation == nil {
		return nil
	}
	if _, ok := p.expect(tokenAssign); !ok {
		return nil
	}
	value := p.parseExpression(lowestPrec)
	if value == nil {
		return nil
	}
	p.bind(nameTok.Literal)
	return &LetStmt{Name: nameTok.Literal, Annotation: annotation, Value: value, position: nameTok.Pos}
}

func (p *parser) parseLetOrAssign() Statement {
	nameTok := p.advance()
	p.advance() // '='
	value := p.parseExpression(lowestPrec)
	if value == nil {
		return nil
	}
	if p.isBound(nameTok.Literal) {
		return &AssignStmt{Target: nameTok.Literal, Value: value, position: nameTok.Pos}
	}
	p.bind(nameTok.Literal)
	return &LetStmt{Name: nameTok.Literal, Value: value, position: nameTok.Pos}
}

// ------------------------------------------------------------------
// Type declarations
// ------------------------------------------------------------------

func (p *parser) parseTypeDecl() Declaration {
	typeTok, _ := p.expect(tokenType)

	nameTok := p.cur()
	if nameTok.Type != tokenIdent && !isTypeNameToken(nameTok.Type) {
		p.errorExpected(nameTok, "type name")
		return nil
	}
	p.advance()

	var typeParams []string
	if p.cur().Type == tokenLBracket {
		p.advance()
		for {
			param, ok := p.expect(tokenIdent)
			if !ok {
				return nil
			}
			typeParams = append(typeParams, param.Literal)
			if p.cur().Type != tokenComma {
				break
			}
			p.advance()
		}
		if _, ok := p.expect(tokenRBracket); !ok {
			return nil
		}
	}

	if _, ok := p.expect(tokenAssign); !ok {
		return nil
	}

	definition := p.parseTypeDefinition()
	if definition == nil {
		return nil
	}

	var invariants []*Contract
	p.skipNewlines()
	hasIndent := false
	if p.cur().Type == tokenIndent {
		p.advance()
		hasIndent = true
	}
	for p.cur().Type == tokenInvariant {
		invTok := p.advance()
		cond := p.parseExpression(lowestPrec)
		if cond == nil {
			return nil
		}
		invariants = append(invariants, &Contract{Cond: cond, Status: StatusUnknown, position: invTok.Pos})
		p.skipNewlines()
	}
	if hasIndent && p.cur().Type == tokenDedent {
		p.advance()
	}

	// An alias constrained by invariants is a refined type.
	if alias, ok := definition.(*AliasDef); ok && len(invariants) > 0 {
		definition = &RefinedDef{Base: aliasToType(alias), position: alias.position}
	}

	return &TypeDecl{
		Name:       nameTok.Literal,
		TypeParams: typeParams,
		Definition: definition,
		Invariants: invariants,
		position:   typeTok.Pos,
	}
}

func aliasToType(alias *AliasDef) Type {
	switch alias.Name {
	case "Int", "Float", "Bool", "String", "Byte", "Unit":
		return &PrimitiveType{Name: alias.Name, position: alias.position}
	default:
		return &NamedType{Name: alias.Name, Args: alias.TypeArgs, position: alias.position}
	}
}

func (p *parser) parseTypeDefinition() TypeDef {
	p.skipNewlines()

	hasIndent := false
	if p.cur().Type == tokenIndent {
		p.advance()
		hasIndent = true
	}

	def := p.parseTypeDefinitionInner()
	if def == nil {
		return nil
	}

	p.skipNewlines()
	if hasIndent && p.cur().Type == tokenDedent {
		p.advance()
	}

	return def
}

func (p *parser) parseTypeDefinitionInner() TypeDef {
	tok := p.cur()

	if tok.Type == tokenPipe {
		return p.parseSumDefinition()
	}

	if tok.Type == tokenLBrace {
		return p.parseRecordTypeDefinition()
	}

	if tok.Type == tokenIdent {
		p.advance()
		var args []Type
		if p.cur().Type == tokenLBracket {
			p.advance()
			for {
				arg := p.parseType()
				if arg == nil {
					return nil
				}
				args = append(args, arg)
				if p.cur().Type != tokenComma {
					break
				}
				p.advance()
			}
			if _, ok := p.expect(tokenRBracket); !ok {
				return nil
			}
		}
		return &AliasDef{Name: tok.Literal, TypeArgs: args, position: tok.Pos}
	}

	if isTypeNameToken(tok.Type) {
		p.advance()
		return &AliasDef{Name: tok.Literal, position: tok.Pos}
	}

	p.errorExpected(tok, "type definition")
	return nil
}

func (p *parser) parseSumDefinition() TypeDef {
	firstPipe := p.cur()
	var variants []*Variant

	for p.cur().Type == tokenPipe {
		p.advance()
		p.skipNewlines()
		nameTok, ok := p.expect(tokenIdent)
		if !ok {
			return nil
		}
		var params []Type
		if p.cur().Type == tokenLParen {
			p.advance()
			if p.cur().Type != tokenRParen {
				for {
					param := p.parseType()
					if param == nil {
						return nil
					}
					params = append(params, param)
					if p.cur().Type != tokenComma {
						break
					}
					p.advance()
				}
			}
			if _, ok := p.expect(tokenRParen); !ok {
				return nil
			}
		}
		variants = append(variants, &Variant{Name: nameTok.Literal, Params: params, position: nameTok.Pos})
		p.skipNewlines()
	}

	return &SumDef{Variants: variants, position: firstPipe.Pos}
}

// Record-style definitions keep the reference's minimal representation: an
// alias named Record whose type arguments are the field types in order.
func (p *parser) parseRecordTypeDefinition() TypeDef {
	lbrace, _ := p.expect(tokenLBrace)
	p.skipNewlines()

	var fieldTypes []Type
	for p.cur().Type != tokenRBrace && p.cur().Type != tokenEOF {
		if _, ok := p.expect(tokenIdent); !ok {
			return nil
		}
		if _, ok := p.expect(tokenColon); !ok {
			return nil
		}
		ty := p.parseType()
		if ty == nil {
			return nil
		}
		fieldTypes = append(fieldTypes, ty)
		p.skipNewlines()
		if p.cur().Type == tokenComma {
			p.advance()
			p.skipNewlines()
		}
	}

	if _, ok := p.expect(tokenRBrace); !ok {
		return nil
	}
	return &AliasDef{Name: "Record", TypeArgs: fieldTypes, position: lbrace.Pos}
}
