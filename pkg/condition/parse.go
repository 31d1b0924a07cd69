package condition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokOp
	tokAnd
	tokBool
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Parse compiles src into an Expr.
func Parse(src string) (*Expr, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty condition", ErrSyntax)
	}

	expr := &Expr{}
	for i := 0; ; {
		if len(tokens)-i < 3 {
			return nil, fmt.Errorf("%w: incomplete comparison at offset %d", ErrSyntax, tokens[len(tokens)-1].pos)
		}
		cmp, err := parseComparison(tokens[i], tokens[i+1], tokens[i+2])
		if err != nil {
			return nil, err
		}
		expr.Terms = append(expr.Terms, cmp)
		i += 3

		if i == len(tokens) {
			return expr, nil
		}
		if tokens[i].kind != tokAnd {
			return nil, fmt.Errorf("%w: expected AND at offset %d, found %q", ErrSyntax, tokens[i].pos, tokens[i].text)
		}
		i++
		if i == len(tokens) {
			return nil, fmt.Errorf("%w: dangling AND", ErrSyntax)
		}
	}
}

// MustParse is Parse for conditions known to be valid, such as test fixtures.
func MustParse(src string) *Expr {
	expr, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return expr
}

func parseComparison(field, op, value token) (Comparison, error) {
	if field.kind != tokIdent {
		return Comparison{}, fmt.Errorf("%w: expected field name at offset %d, found %q", ErrSyntax, field.pos, field.text)
	}
	if op.kind != tokOp {
		return Comparison{}, fmt.Errorf("%w: expected operator at offset %d, found %q", ErrSyntax, op.pos, op.text)
	}

	cmp := Comparison{Field: field.text, Op: Op(op.text)}
	switch value.kind {
	case tokNumber:
		n, err := strconv.ParseFloat(value.text, 64)
		if err != nil {
			return Comparison{}, fmt.Errorf("%w: invalid number %q at offset %d", ErrSyntax, value.text, value.pos)
		}
		cmp.Value = Literal{Kind: KindNumber, Number: n}
	case tokBool:
		if cmp.Op != OpEQ && cmp.Op != OpNE {
			return Comparison{}, fmt.Errorf("%w: operator %s cannot compare bool field %q", ErrSyntax, cmp.Op, cmp.Field)
		}
		cmp.Value = Literal{Kind: KindBool, Bool: value.text == "true"}
	default:
		return Comparison{}, fmt.Errorf("%w: expected literal at offset %d, found %q", ErrSyntax, value.pos, value.text)
	}
	return cmp, nil
}

func lex(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case strings.ContainsRune("<>=!", r):
			start := i
			i++
			if i < len(runes) && runes[i] == '=' {
				i++
			}
			text := string(runes[start:i])
			switch Op(text) {
			case OpGT, OpLT, OpGE, OpLE, OpEQ, OpNE:
				tokens = append(tokens, token{kind: tokOp, text: text, pos: start})
			default:
				return nil, fmt.Errorf("%w: unknown operator %q at offset %d", ErrSyntax, text, start)
			}

		case r == '&':
			if i+1 >= len(runes) || runes[i+1] != '&' {
				return nil, fmt.Errorf("%w: stray '&' at offset %d", ErrSyntax, i)
			}
			tokens = append(tokens, token{kind: tokAnd, text: "&&", pos: i})
			i += 2

		case unicode.IsDigit(r) || r == '-' || r == '+' || r == '.':
			start := i
			i++
			for i < len(runes) && isNumberRune(runes[i], runes[i-1]) {
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[start:i]), pos: start})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_' || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			switch strings.ToLower(text) {
			case "and":
				tokens = append(tokens, token{kind: tokAnd, text: text, pos: start})
			case "true", "false":
				tokens = append(tokens, token{kind: tokBool, text: strings.ToLower(text), pos: start})
			default:
				tokens = append(tokens, token{kind: tokIdent, text: text, pos: start})
			}

		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, r, i)
		}
	}
	return tokens, nil
}

func isNumberRune(r, prev rune) bool {
	switch {
	case unicode.IsDigit(r), r == '.':
		return true
	case r == 'e' || r == 'E':
		return true
	case (r == '-' || r == '+') && (prev == 'e' || prev == 'E'):
		return true
	default:
		return false
	}
}
