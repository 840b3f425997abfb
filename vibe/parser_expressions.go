package vibe

import "strconv"

func (p *parser) parseExpression(precedence int) Expression {
	prefix := p.prefixFns[p.cur().Type]
	if prefix == nil {
		p.errorUnexpected(p.cur())
		return nil
	}

	left := prefix()
	if left == nil {
		return nil
	}

	for p.cur().Type != tokenEOF && precedence < p.curPrecedence() {
		infix := p.infixFns[p.cur().Type]
		if infix == nil {
			return left
		}
		left = infix(left)
		if left == nil {
			return nil
		}
	}

	return left
}

func (p *parser) curPrecedence() int {
	if prec, ok := precedences[p.cur().Type]; ok {
		return prec
	}
	return lowestPrec
}

// ------------------------------------------------------------------
// Prefix parsers
// ------------------------------------------------------------------

func (p *parser) parseIntegerLiteral() Expression {
	tok := p.advance()
	value, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		p.addError(tok.Pos, "invalid integer literal")
		return nil
	}
	return &IntLit{Value: value, position: tok.Pos}
}

func (p *parser) parseFloatLiteral() Expression {
	tok := p.advance()
	value, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.addError(tok.Pos, "invalid float literal")
		return nil
	}
	return &FloatLit{Value: value, position: tok.Pos}
}

func (p *parser) parseStringLiteral() Expression {
	tok := p.advance()
	return &StringLit{Value: tok.Literal, position: tok.Pos}
}

func (p *parser) parseBooleanLiteral() Expression {
	tok := p.advance()
	return &BoolLit{Value: tok.Type == tokenTrue, position: tok.Pos}
}

func (p *parser) parseIdentifier() Expression {
	tok := p.advance()
	return &Ident{Name: tok.Literal, position: tok.Pos}
}

func (p *parser) parseSelfLiteral() Expression {
	tok := p.advance()
	return &Ident{Name: "self", position: tok.Pos}
}

func (p *parser) parseOldExpression() Expression {
	tok := p.advance()
	if _, ok := p.expect(tokenLParen); !ok {
		return nil
	}
	inner := p.parseExpression(lowestPrec)
	if inner == nil {
		return nil
	}
	if _, ok := p.expect(tokenRParen); !ok {
		return nil
	}
	return &OldExpr{Inner: inner, position: tok.Pos}
}

func (p *parser) parseGroupedExpression() Expression {
	p.advance()
	expr := p.parseExpression(lowestPrec)
	if expr == nil {
		return nil
	}
	if _, ok := p.expect(tokenRParen); !ok {
		return nil
	}
	return expr
}

func (p *parser) parseArrayLiteral() Expression {
	tok := p.advance()
	elems := []Expression{}

	if p.cur().Type != tokenRBracket {
		for {
			elem := p.parseExpression(lowestPrec)
			if elem == nil {
				return nil
			}
			elems = append(elems, elem)
			if p.cur().Type != tokenComma {
				break
			}
			p.advance()
		}
	}
	if _, ok := p.expect(tokenRBracket); !ok {
		return nil
	}
	return &ArrayLit{Elems: elems, position: tok.Pos}
}

func (p *parser) parseRecordLiteral() Expression {
	tok := p.advance()
	fields := []RecordField{}

	p.skipNewlines()
	for p.cur().Type != tokenRBrace && p.cur().Type != tokenEOF {
		nameTok, ok := p.expect(tokenIdent)
		if !ok {
			return nil
		}
		if _, ok := p.expect(tokenColon); !ok {
			return nil
		}
		value := p.parseExpression(lowestPrec)
		if value == nil {
			return nil
		}
		fields = append(fields, RecordField{Name: nameTok.Literal, Value: value})
		p.skipNewlines()
		if p.cur().Type == tokenComma {
			p.advance()
			p.skipNewlines()
		}
	}

	if _, ok := p.expect(tokenRBrace); !ok {
		return nil
	}
	return &RecordLit{Fields: fields, position: tok.Pos}
}

func (p *parser) parsePrefixExpression() Expression {
	tok := p.advance()
	operand := p.parseExpression(precPrefix)
	if operand == nil {
		return nil
	}
	return &UnaryExpr{Op: tok.Type, Operand: operand, position: tok.Pos}
}

// ------------------------------------------------------------------
// Infix parsers
// ------------------------------------------------------------------

func (p *parser) parseInfixExpression(left Expression) Expression {
	tok := p.cur()
	precedence := p.curPrecedence()
	p.advance()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &BinaryExpr{Left: left, Op: tok.Type, Right: right, position: tok.Pos}
}

func (p *parser) parseCallExpression(callee Expression) Expression {
	p.advance() // '('
	args := []Expression{}

	if p.cur().Type != tokenRParen {
		for {
			arg := p.parseExpression(lowestPrec)
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.cur().Type != tokenComma {
				break
			}
			p.advance()
		}
	}
	if _, ok := p.expect(tokenRParen); !ok {
		return nil
	}
	return &CallExpr{Callee: callee, Args: args, position: callee.Pos()}
}

func (p *parser) parseMemberExpression(object Expression) Expression {
	p.advance() // '.'
	nameTok, ok := p.expect(tokenIdent)
	if !ok {
		return nil
	}
	return &MemberExpr{Object: object, Member: nameTok.Literal, position: object.Pos()}
}

// Error propagation is documented but unimplemented; reject it explicitly.
func (p *parser) parseQuestionExpression(left Expression) Expression {
	tok := p.cur()
	p.addError(tok.Pos, "the '?' error-propagation operator is not supported")
	return nil
}

// ------------------------------------------------------------------
// when / given
// ------------------------------------------------------------------

func (p *parser) parseWhenExpression() Expression {
	tok := p.advance()
	cond := p.parseExpression(lowestPrec)
	if cond == nil {
		return nil
	}
	p.skipNewlines()

	thenBlock := p.parseBlock()
	if thenBlock == nil {
		return nil
	}

	var elseBlock *Block
	p.skipNewlines()
	if p.cur().Type == tokenOtherwise {
		p.advance()
		p.skipNewlines()
		elseBlock = p.parseBlock()
		if elseBlock == nil {
			return nil
		}
	}

	return &WhenExpr{Cond: cond, Then: thenBlock, Else: elseBlock, position: tok.Pos}
}

func (p *parser) parseGivenExpression() Expression {
	tok := p.advance()
	scrutinee := p.parseExpression(lowestPrec)
	if scrutinee == nil {
		return nil
	}
	p.skipNewlines()

	hasIndent := false
	if p.cur().Type == tokenIndent {
		p.advance()
		hasIndent = true
	}

	var cases []*PatternCase
	for startsPattern(p.cur().Type) && !p.failed() {
		pattern := p.parsePattern()
		if pattern == nil {
			return nil
		}
		if _, ok := p.expect(tokenArrow); !ok {
			return nil
		}
		result := p.parseCaseResult()
		if result == nil {
			return nil
		}
		cases = append(cases, &PatternCase{Pattern: pattern, Result: result, position: pattern.Pos()})
		p.skipNewlines()
	}

	if len(cases) == 0 {
		p.errorExpected(p.cur(), "pattern case")
		return nil
	}

	if hasIndent && p.cur().Type == tokenDedent {
		p.advance()
	}

	return &GivenExpr{Scrutinee: scrutinee, Cases: cases, position: tok.Pos}
}

// A case result is a single expression, or an indented block continuation
// on the following lines.
func (p *parser) parseCaseResult() Expression {
	if p.cur().Type == tokenNewline {
		p.skipNewlines()
		if p.cur().Type == tokenIndent {
			block := p.parseBlock()
			if block == nil {
				return nil
			}
			return &WhenExpr{
				Cond:     &BoolLit{Value: true, position: block.Pos()},
				Then:     block,
				position: block.Pos(),
			}
		}
		p.errorExpected(p.cur(), "expression")
		return nil
	}
	return p.parseExpression(lowestPrec)
}

func startsPattern(tt TokenType) bool {
	switch tt {
	case tokenIdent, tokenInt, tokenFloat, tokenStringLit, tokenTrue, tokenFalse:
		return true
	default:
		return false
	}
}

// ------------------------------------------------------------------
// Patterns
// ------------------------------------------------------------------

func (p *parser) parsePattern() Pattern {
	tok := p.cur()

	if tok.Type == tokenIdent {
		p.advance()

		if p.cur().Type == tokenLParen {
			p.advance()
			var params []Pattern
			if p.cur().Type != tokenRParen {
				for {
					sub := p.parsePattern()
					if sub == nil {
						return nil
					}
					params = append(params, sub)
					if p.cur().Type != tokenComma {
						break
					}
					p.advance()
				}
			}
			if _, ok := p.expect(tokenRParen); !ok {
				return nil
			}
			return &ConstructorPattern{Name: tok.Literal, Params: params, position: tok.Pos}
		}

		if tok.Literal == "_" {
			return &WildcardPattern{position: tok.Pos}
		}
		return &IdentPattern{Name: tok.Literal, position: tok.Pos}
	}

	switch tok.Type {
	case tokenInt:
		lit := p.parseIntegerLiteral()
		if lit == nil {
			return nil
		}
		return &LiteralPattern{Value: lit, position: tok.Pos}
	case tokenFloat:
		lit := p.parseFloatLiteral()
		if lit == nil {
			return nil
		}
		return &LiteralPattern{Value: lit, position: tok.Pos}
	case tokenStringLit:
		return &LiteralPattern{Value: p.parseStringLiteral(), position: tok.Pos}
	case tokenTrue, tokenFalse:
		return &LiteralPattern{Value: p.parseBooleanLiteral(), position: tok.Pos}
	}

	p.errorExpected(tok, "pattern")
	return nil
}
