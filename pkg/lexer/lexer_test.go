package lexer

import "testing"

func TestNextToken(t *testing.T) {
	input := `int main() { return 42; }`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenInt_, "int"},
		{TokenIdent, "main"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenReturn, "return"},
		{TokenInt, "42"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `+ - * / % = == != < <= > >= && || !`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenAssign, "="},
		{TokenEq, "=="},
		{TokenNe, "!="},
		{TokenLt, "<"},
		{TokenLe, "<="},
		{TokenGt, ">"},
		{TokenGe, ">="},
		{TokenAnd, "&&"},
		{TokenOr, "||"},
		{TokenNot, "!"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestComments(t *testing.T) {
	input := `int // comment
main /* block
comment */ ()`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenInt_, "int"},
		{TokenIdent, "main"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNumberForms(t *testing.T) {
	input := `10 0x2A`

	l := New(input)
	if tok := l.NextToken(); tok.Literal != "10" {
		t.Fatalf("expected 10, got %q", tok.Literal)
	}
	if tok := l.NextToken(); tok.Literal != "0x2A" {
		t.Fatalf("expected 0x2A, got %q", tok.Literal)
	}
}

func TestIllegalCharacter(t *testing.T) {
	l := New(`@`)
	tok := l.NextToken()
	if tok.Type != TokenIllegal {
		t.Fatalf("expected TokenIllegal, got %q", tok.Type)
	}
	if len(l.Errors()) != 1 {
		t.Fatalf("expected one lexical error, got %v", l.Errors())
	}
}

func TestLoneAmpersandAndPipeAreIllegal(t *testing.T) {
	for _, input := range []string{"&", "|"} {
		l := New(input)
		tok := l.NextToken()
		if tok.Type != TokenIllegal {
			t.Fatalf("input %q: expected TokenIllegal, got %q", input, tok.Type)
		}
		if len(l.Errors()) != 1 {
			t.Fatalf("input %q: expected one lexical error, got %v", input, l.Errors())
		}
	}
}

func TestUnterminatedBlockCommentReportsError(t *testing.T) {
	l := New("int x /* never closed")
	for {
		tok := l.NextToken()
		if tok.Type == TokenEOF {
			break
		}
	}
	if len(l.Errors()) != 1 {
		t.Fatalf("expected one lexical error for the unterminated comment, got %v", l.Errors())
	}
}

func TestOctalStyleLeadingZero(t *testing.T) {
	l := New("052")
	tok := l.NextToken()
	if tok.Type != TokenInt || tok.Literal != "052" {
		t.Fatalf("expected INT %q, got %q %q", "052", tok.Type, tok.Literal)
	}
}
