package ddl

import (
	"strings"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenWord TokenKind = iota
	TokenQuotedIdent
	TokenString
	TokenDollarBody
	TokenNumber
	TokenPunct
	TokenOperator
	TokenLineComment
	TokenBlockComment
)

func (k TokenKind) String() string {
	switch k {
	case TokenWord:
		return "word"
	case TokenQuotedIdent:
		return "quoted identifier"
	case TokenString:
		return "string"
	case TokenDollarBody:
		return "dollar body"
	case TokenNumber:
		return "number"
	case TokenPunct:
		return "punctuation"
	case TokenOperator:
		return "operator"
	case TokenLineComment:
		return "line comment"
	case TokenBlockComment:
		return "block comment"
	default:
		return "unknown"
	}
}

// Token is one lexical unit of normalized source.
//
// Raw is the exact source slice. Text is the normalized value: lower-cased
// for words, unquoted for quoted identifiers, the interior for block
// comments, and Raw for everything else.
type Token struct {
	Kind   TokenKind
	Raw    string
	Text   string
	Line   int
	Column int
	Start  int
	End    int
}

// Is reports whether t is the word w (already lower-case).
func (t Token) Is(w string) bool {
	return t.Kind == TokenWord && t.Text == w
}

// IsPunct reports whether t is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Kind == TokenPunct && t.Raw == p
}

// IsComment reports whether t is a line or block comment.
func (t Token) IsComment() bool {
	return t.Kind == TokenLineComment || t.Kind == TokenBlockComment
}

type lexState int

const (
	stateNormal lexState = iota
	stateLineComment
	stateBlockComment
	stateSingleQuote
	stateQuotedIdent
	stateDollarQuote
)

const operatorChars = "+-*/<>=~!@#%^&|?"

// Lex splits normalized source into tokens. Whitespace is discarded.
//
// Unterminated literals, quoted identifiers and dollar bodies produce a
// *dbobj.ParseError; unbalanced comment delimiters produce a
// *dbobj.TagSyntaxError since comments carry metadata tags.
func Lex(path, src string) ([]Token, error) {
	l := &lexer{path: path, src: src, line: 1, col: 1}
	return l.run()
}

type lexer struct {
	path   string
	src    string
	pos    int
	line   int
	col    int
	tokens []Token
}

// advance moves n bytes forward, tracking line and column.
func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset < len(l.src) {
		return l.src[l.pos+offset]
	}
	return 0
}

func (l *lexer) emit(kind TokenKind, start, line, col int, text string) {
	raw := l.src[start:l.pos]
	if text == "" && kind != TokenQuotedIdent && kind != TokenBlockComment {
		text = raw
	}
	l.tokens = append(l.tokens, Token{
		Kind:   kind,
		Raw:    raw,
		Text:   text,
		Line:   line,
		Column: col,
		Start:  start,
		End:    l.pos,
	})
}

func (l *lexer) run() ([]Token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		next := l.peek(1)
		start, line, col := l.pos, l.line, l.col

		switch {
		case isSpace(c):
			l.advance(1)

		case c == '-' && next == '-':
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				end = len(l.src) - l.pos
			}
			l.advance(end)
			l.emit(TokenLineComment, start, line, col, "")

		case c == '/' && next == '*':
			if err := l.blockComment(); err != nil {
				return nil, err
			}
			raw := l.src[start:l.pos]
			l.emit(TokenBlockComment, start, line, col, raw[2:len(raw)-2])

		case c == '*' && next == '/':
			return nil, &dbobj.TagSyntaxError{File: l.path, Line: line, Column: col, Reason: "unmatched comment terminator */"}

		case c == '\'':
			if err := l.singleQuoted(line, col); err != nil {
				return nil, err
			}
			l.emit(TokenString, start, line, col, "")

		case c == '"':
			value, err := l.quotedIdent(line, col)
			if err != nil {
				return nil, err
			}
			l.emit(TokenQuotedIdent, start, line, col, value)

		case c == '$' && dollarTagAt(l.src, l.pos) != "":
			if err := l.dollarBody(line, col); err != nil {
				return nil, err
			}
			l.emit(TokenDollarBody, start, line, col, "")

		case (c == 'e' || c == 'E') && next == '\'':
			// Escape string constant: E'...'
			l.advance(1)
			if err := l.singleQuoted(line, col); err != nil {
				return nil, err
			}
			l.emit(TokenString, start, line, col, "")

		case isIdentStart(c):
			for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
				l.advance(1)
			}
			l.emit(TokenWord, start, line, col, strings.ToLower(l.src[start:l.pos]))

		case isDigit(c) || (c == '.' && isDigit(next)):
			for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
				l.advance(1)
			}
			l.emit(TokenNumber, start, line, col, "")

		case c == ':' && next == ':':
			l.advance(2)
			l.emit(TokenOperator, start, line, col, "")

		case strings.IndexByte("(),;.[]:", c) >= 0:
			l.advance(1)
			l.emit(TokenPunct, start, line, col, "")

		case strings.IndexByte(operatorChars, c) >= 0:
			l.advance(1)
			for l.pos < len(l.src) && strings.IndexByte(operatorChars, l.src[l.pos]) >= 0 {
				if l.startsComment() {
					break
				}
				l.advance(1)
			}
			l.emit(TokenOperator, start, line, col, "")

		default:
			l.advance(1)
			l.emit(TokenOperator, start, line, col, "")
		}
	}
	return l.tokens, nil
}

func (l *lexer) startsComment() bool {
	c, next := l.src[l.pos], l.peek(1)
	return (c == '-' && next == '-') || (c == '/' && next == '*') || (c == '*' && next == '/')
}

// blockComment consumes a possibly nested /* ... */ comment.
func (l *lexer) blockComment() error {
	line, col := l.line, l.col
	depth := 0
	for l.pos < len(l.src) {
		c, next := l.src[l.pos], l.peek(1)
		switch {
		case c == '/' && next == '*':
			depth++
			l.advance(2)
		case c == '*' && next == '/':
			depth--
			l.advance(2)
			if depth == 0 {
				return nil
			}
		default:
			l.advance(1)
		}
	}
	return &dbobj.TagSyntaxError{File: l.path, Line: line, Column: col, Reason: "unterminated block comment"}
}

// singleQuoted consumes '...' with '' as the escaped quote. The lexer must be
// positioned on the opening quote.
func (l *lexer) singleQuoted(line, col int) error {
	l.advance(1)
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\'' {
			if l.peek(1) == '\'' {
				l.advance(2)
				continue
			}
			l.advance(1)
			return nil
		}
		l.advance(1)
	}
	return &dbobj.ParseError{File: l.path, Line: line, Column: col, Reason: "unterminated string literal"}
}

// quotedIdent consumes "..." with "" as the escaped quote and returns the unquoted value.
func (l *lexer) quotedIdent(line, col int) (string, error) {
	l.advance(1)
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '"' {
			if l.peek(1) == '"' {
				b.WriteByte('"')
				l.advance(2)
				continue
			}
			l.advance(1)
			return b.String(), nil
		}
		b.WriteByte(c)
		l.advance(1)
	}
	return "", &dbobj.ParseError{File: l.path, Line: line, Column: col, Reason: "unterminated quoted identifier"}
}

// dollarBody consumes $tag$ ... $tag$.
func (l *lexer) dollarBody(line, col int) error {
	tag := dollarTagAt(l.src, l.pos)
	l.advance(len(tag))
	end := strings.Index(l.src[l.pos:], tag)
	if end < 0 {
		l.advance(len(l.src) - l.pos)
		return &dbobj.ParseError{File: l.path, Line: line, Column: col, Reason: "unterminated dollar-quoted body " + tag}
	}
	l.advance(end + len(tag))
	return nil
}

// dollarTagAt returns the dollar-quote tag ("$$" or "$name$") starting at i,
// or "" if none starts there. Positional parameters such as $1 are not tags.
func dollarTagAt(src string, i int) string {
	if i >= len(src) || src[i] != '$' {
		return ""
	}
	for j := i + 1; j < len(src); j++ {
		c := src[j]
		if c == '$' {
			return src[i : j+1]
		}
		if j == i+1 && !isIdentStart(c) {
			return ""
		}
		if !isIdentPart(c) || c == '$' {
			return ""
		}
	}
	return ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$'
}
