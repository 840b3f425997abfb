package vibe

func (p *parser) parseType() Type {
	tok := p.cur()

	if isPrimitiveTypeToken(tok.Type) {
		p.advance()
		return &PrimitiveType{Name: tok.Literal, position: tok.Pos}
	}

	if tok.Type == tokenTyArray {
		p.advance()
		if _, ok := p.expect(tokenLBracket); !ok {
			return nil
		}
		elem := p.parseType()
		if elem == nil {
			return nil
		}
		if _, ok := p.expect(tokenRBracket); !ok {
			return nil
		}
		return &ArrayType{Elem: elem, position: tok.Pos}
	}

	if tok.Type == tokenTyResult {
		p.advance()
		if _, ok := p.expect(tokenLBracket); !ok {
			return nil
		}
		success := p.parseType()
		if success == nil {
			return nil
		}
		if _, ok := p.expect(tokenComma); !ok {
			return nil
		}
		failure := p.parseType()
		if failure == nil {
			return nil
		}
		if _, ok := p.expect(tokenRBracket); !ok {
			return nil
		}
		return &ResultType{Success: success, Failure: failure, position: tok.Pos}
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
		return &NamedType{Name: tok.Literal, Args: args, position: tok.Pos}
	}

	p.errorExpected(tok, "type")
	return nil
}
