package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdentifier
	tokString
	tokNumber
	tokPunct
)

type token struct {
	kind  tokenKind
	text  string
	begin int
	end   int
	// newlineBefore is set when a line break separates this token from the
	// previous one.
	newlineBefore bool
}

func (t token) is(text string) bool {
	return t.kind == tokPunct && t.text == text
}

func (t token) isIdent(text string) bool {
	return t.kind == tokIdentifier && t.text == text
}

// punctuators ordered longest first so the lexer is greedy.
var punctuators = []string{
	">>>=", "===", "!==", ">>>", "<<=", ">>=", "...",
	"==", "!=", "<=", ">=", "&&", "||", "++", "--", "+=", "-=", "*=", "/=",
	"%=", "&=", "|=", "^=", "<<", ">>", "=>", "?.", "??",
	"{", "}", "(", ")", "[", "]", ";", ",", ".", ":", "?", "<", ">",
	"+", "-", "*", "/", "%", "&", "|", "^", "!", "~", "=", "@",
}

// lex splits src into tokens. Comments are dropped; unknown bytes become
// single-byte punctuation so the parser can report them.
func lex(src []byte) []token {
	var (
		toks    []token
		i       int
		newline bool
	)
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			newline = true
			i++
			continue
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			i++
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(string(src[i+2:]), "*/")
			if end < 0 {
				i = len(src)
				continue
			}
			if strings.Contains(string(src[i:i+2+end]), "\n") {
				newline = true
			}
			i += end + 4
			continue
		}

		start := i
		var kind tokenKind
		switch {
		case c == '"' || c == '\'' || c == '`':
			i = scanString(src, i)
			kind = tokString
		case c >= '0' && c <= '9' || (c == '.' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9'):
			i = scanNumber(src, i)
			kind = tokNumber
		case isIdentStart(src[i:]):
			for i < len(src) {
				r, size := utf8.DecodeRune(src[i:])
				if !(r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
					break
				}
				i += size
			}
			kind = tokIdentifier
		default:
			kind = tokPunct
			matched := false
			for _, p := range punctuators {
				if strings.HasPrefix(string(src[i:min(len(src), i+4)]), p) {
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				_, size := utf8.DecodeRune(src[i:])
				i += size
			}
		}
		toks = append(toks, token{
			kind:          kind,
			text:          string(src[start:i]),
			begin:         start,
			end:           i,
			newlineBefore: newline,
		})
		newline = false
	}
	toks = append(toks, token{kind: tokEOF, begin: len(src), end: len(src), newlineBefore: newline})
	return toks
}

func isIdentStart(b []byte) bool {
	r, _ := utf8.DecodeRune(b)
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func scanString(src []byte, i int) int {
	quote := src[i]
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1
		case '\n':
			if quote != '`' {
				return i
			}
		}
		i++
	}
	return len(src)
}

func scanNumber(src []byte, i int) int {
	if src[i] == '0' && i+1 < len(src) && (src[i+1] == 'x' || src[i+1] == 'X') {
		i += 2
		for i < len(src) && isHexDigit(src[i]) {
			i++
		}
		return i
	}
	for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
		i++
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		i++
		if i < len(src) && (src[i] == '+' || src[i] == '-') {
			i++
		}
		for i < len(src) && src[i] >= '0' && src[i] <= '9' {
			i++
		}
	}
	return i
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// unquote strips the delimiters of a string token and resolves the common
// escapes.
func unquote(text string) string {
	if len(text) < 2 {
		return ""
	}
	body := text[1:]
	if last := text[len(text)-1]; last == text[0] {
		body = text[1 : len(text)-1]
	}
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' || i+1 == len(body) {
			b.WriteByte(body[i])
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
