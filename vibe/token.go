package vibe

// TokenType identifies the lexical category of a token.
type TokenType string

const (
	tokenIllegal TokenType = "ILLEGAL"
	tokenEOF     TokenType = "EOF"

	tokenIdent     TokenType = "IDENT"
	tokenInt       TokenType = "INT_LIT"
	tokenFloat     TokenType = "FLOAT_LIT"
	tokenStringLit TokenType = "STRING_LIT"

	tokenPlus    TokenType = "+"
	tokenMinus   TokenType = "-"
	tokenStar    TokenType = "*"
	tokenSlash   TokenType = "/"
	tokenPercent TokenType = "%"
	tokenEQ      TokenType = "=="
	tokenNotEQ   TokenType = "!="
	tokenLT      TokenType = "<"
	tokenGT      TokenType = ">"
	tokenLTE     TokenType = "<="
	tokenGTE     TokenType = ">="
	tokenAnd     TokenType = "&&"
	tokenOr      TokenType = "||"
	tokenBang    TokenType = "!"
	tokenArrow   TokenType = "->"
	tokenPipe    TokenType = "|"
	tokenAmp     TokenType = "&"
	tokenQuest   TokenType = "?"

	tokenLParen   TokenType = "("
	tokenRParen   TokenType = ")"
	tokenLBracket TokenType = "["
	tokenRBracket TokenType = "]"
	tokenLBrace   TokenType = "{"
	tokenRBrace   TokenType = "}"
	tokenComma    TokenType = ","
	tokenColon    TokenType = ":"
	tokenDot      TokenType = "."
	tokenAssign   TokenType = "="
	tokenEllipsis TokenType = "..."

	tokenDefine    TokenType = "DEFINE"
	tokenType      TokenType = "TYPE"
	tokenExpect    TokenType = "EXPECT"
	tokenEnsure    TokenType = "ENSURE"
	tokenInvariant TokenType = "INVARIANT"
	tokenGiven     TokenType = "GIVEN"
	tokenWhen      TokenType = "WHEN"
	tokenOtherwise TokenType = "OTHERWISE"
	tokenImport    TokenType = "IMPORT"
	tokenExport    TokenType = "EXPORT"
	tokenTrue      TokenType = "TRUE"
	tokenFalse     TokenType = "FALSE"
	tokenSelf      TokenType = "SELF"
	tokenOld       TokenType = "OLD"

	tokenTyInt    TokenType = "TY_INT"
	tokenTyFloat  TokenType = "TY_FLOAT"
	tokenTyBool   TokenType = "TY_BOOL"
	tokenTyString TokenType = "TY_STRING"
	tokenTyByte   TokenType = "TY_BYTE"
	tokenTyUnit   TokenType = "TY_UNIT"
	tokenTyArray  TokenType = "TY_ARRAY"
	tokenTyResult TokenType = "TY_RESULT"

	tokenNewline TokenType = "NEWLINE"
	tokenIndent  TokenType = "INDENT"
	tokenDedent  TokenType = "DEDENT"
)

var keywords = map[string]TokenType{
	"define":    tokenDefine,
	"type":      tokenType,
	"expect":    tokenExpect,
	"ensure":    tokenEnsure,
	"invariant": tokenInvariant,
	"given":     tokenGiven,
	"when":      tokenWhen,
	"otherwise": tokenOtherwise,
	"import":    tokenImport,
	"export":    tokenExport,
	"true":      tokenTrue,
	"false":     tokenFalse,
	"self":      tokenSelf,
	"old":       tokenOld,
	"Int":       tokenTyInt,
	"Float":     tokenTyFloat,
	"Bool":      tokenTyBool,
	"String":    tokenTyString,
	"Byte":      tokenTyByte,
	"Unit":      tokenTyUnit,
	"Array":     tokenTyArray,
	"Result":    tokenTyResult,
}

// Token captures lexical information for the parser.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
	Indent  int
}

// Position identifies a 1-based line and column in the source file.
type Position struct {
	Line   int
	Column int
}

func isPrimitiveTypeToken(tt TokenType) bool {
	switch tt {
	case tokenTyInt, tokenTyFloat, tokenTyBool, tokenTyString, tokenTyByte, tokenTyUnit:
		return true
	default:
		return false
	}
}

func isTypeNameToken(tt TokenType) bool {
	return isPrimitiveTypeToken(tt) || tt == tokenTyArray || tt == tokenTyResult
}

func tokenLabel(tt TokenType) string {
	switch tt {
	case tokenIllegal:
		return "invalid token"
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return "identifier"
	case tokenInt:
		return "integer literal"
	case tokenFloat:
		return "float literal"
	case tokenStringLit:
		return "string literal"
	case tokenNewline:
		return "newline"
	case tokenIndent:
		return "indent"
	case tokenDedent:
		return "dedent"
	case tokenDefine, tokenType, tokenExpect, tokenEnsure, tokenInvariant,
		tokenGiven, tokenWhen, tokenOtherwise, tokenImport, tokenExport,
		tokenTrue, tokenFalse, tokenSelf, tokenOld:
		return "'" + string(keywordSpelling(tt)) + "'"
	case tokenTyInt, tokenTyFloat, tokenTyBool, tokenTyString, tokenTyByte,
		tokenTyUnit, tokenTyArray, tokenTyResult:
		return "'" + keywordSpelling(tt) + "'"
	default:
		return "'" + string(tt) + "'"
	}
}

func keywordSpelling(tt TokenType) string {
	for word, kw := range keywords {
		if kw == tt {
			return word
		}
	}
	return string(tt)
}
