package platform

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrInvalidExpression is wrapped by every expression syntax error.
var ErrInvalidExpression = errors.New("invalid platform expression")

// Eval evaluates a boolean expression over vars.
//
// Grammar:
//
//	expr    = and { "||" and }
//	and     = unary { "&&" unary }
//	unary   = "!" unary | primary
//	primary = ident | "true" | "false" | "(" expr ")"
//
// Identifiers missing from vars evaluate to false.
func Eval(expr string, vars map[string]bool) (bool, error) {
	toks, err := lex(expr)
	if err != nil {
		return false, err
	}

	p := &parser{src: expr, toks: toks, vars: vars}
	v, err := p.or()
	if err != nil {
		return false, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return false, p.errorf(tok, "unexpected %q", tok.text)
	}
	return v, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNot
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '!':
			toks = append(toks, token{tokNot, "!", i})
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == '&' || r == '|':
			if i+1 >= len(runes) || runes[i+1] != r {
				return nil, fmt.Errorf("%w: %q at offset %d: expected %c%c", ErrInvalidExpression, src, i, r, r)
			}
			kind := tokAnd
			if r == '|' {
				kind = tokOr
			}
			toks = append(toks, token{kind, string([]rune{r, r}), i})
			i += 2
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(runes) && (runes[i] == '_' || unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
				i++
			}
			toks = append(toks, token{tokIdent, string(runes[start:i]), start})
		default:
			return nil, fmt.Errorf("%w: %q at offset %d: unexpected %q", ErrInvalidExpression, src, i, r)
		}
	}

	return append(toks, token{kind: tokEOF, pos: len(runes)}), nil
}

type parser struct {
	src  string
	toks []token
	pos  int
	vars map[string]bool
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %q at offset %d: %s", ErrInvalidExpression, p.src, tok.pos, fmt.Sprintf(format, args...))
}

func (p *parser) or() (bool, error) {
	v, err := p.and()
	if err != nil {
		return false, err
	}
	for p.peek().kind == tokOr {
		p.next()
		rhs, err := p.and()
		if err != nil {
			return false, err
		}
		v = v || rhs
	}
	return v, nil
}

func (p *parser) and() (bool, error) {
	v, err := p.unary()
	if err != nil {
		return false, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		rhs, err := p.unary()
		if err != nil {
			return false, err
		}
		v = v && rhs
	}
	return v, nil
}

func (p *parser) unary() (bool, error) {
	if p.peek().kind == tokNot {
		p.next()
		v, err := p.unary()
		return !v, err
	}
	return p.primary()
}

func (p *parser) primary() (bool, error) {
	tok := p.next()
	switch tok.kind {
	case tokIdent:
		switch tok.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return p.vars[tok.text], nil
		}
	case tokLParen:
		v, err := p.or()
		if err != nil {
			return false, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return false, p.errorf(closing, "expected )")
		}
		return v, nil
	case tokEOF:
		return false, p.errorf(tok, "unexpected end of expression")
	default:
		return false, p.errorf(tok, "unexpected %q", tok.text)
	}
}
