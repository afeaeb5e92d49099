package uvl

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Op is the operator of a constraint expression node.
type Op int

const (
	OpFeature Op = iota
	OpNot
	OpAnd
	OpOr
	OpImplies
	OpEquiv
)

var opSymbols = map[Op]string{
	OpNot:     "!",
	OpAnd:     "&",
	OpOr:      "|",
	OpImplies: "=>",
	OpEquiv:   "<=>",
}

// Expr is a propositional cross-tree constraint.
type Expr struct {
	Op       Op
	Feature  string
	Operands []*Expr
}

func Ref(name string) *Expr          { return &Expr{Op: OpFeature, Feature: name} }
func Not(e *Expr) *Expr              { return &Expr{Op: OpNot, Operands: []*Expr{e}} }
func And(a, b *Expr) *Expr           { return &Expr{Op: OpAnd, Operands: []*Expr{a, b}} }
func Or(a, b *Expr) *Expr            { return &Expr{Op: OpOr, Operands: []*Expr{a, b}} }
func Implies(a, b *Expr) *Expr       { return &Expr{Op: OpImplies, Operands: []*Expr{a, b}} }
func Equiv(a, b *Expr) *Expr         { return &Expr{Op: OpEquiv, Operands: []*Expr{a, b}} }
func (e *Expr) IsLiteral() bool      { return e.Op == OpFeature || (e.Op == OpNot && e.Operands[0].Op == OpFeature) }
func (e *Expr) binary() (a, b *Expr) { return e.Operands[0], e.Operands[1] }

// String renders e in UVL syntax, parenthesising every compound operand.
func (e *Expr) String() string {
	switch e.Op {
	case OpFeature:
		return quoteName(e.Feature)
	case OpNot:
		return "!" + e.Operands[0].operand()
	default:
		a, b := e.binary()
		return a.operand() + " " + opSymbols[e.Op] + " " + b.operand()
	}
}

func (e *Expr) operand() string {
	if e.Op == OpFeature || e.Op == OpNot {
		return e.String()
	}
	return "(" + e.String() + ")"
}

// Features returns the distinct feature names referenced by e, in order of
// first appearance.
func (e *Expr) Features() []string {
	seen := map[string]bool{}
	var out []string
	var walk func(x *Expr)
	walk = func(x *Expr) {
		if x.Op == OpFeature {
			if !seen[x.Feature] {
				seen[x.Feature] = true
				out = append(out, x.Feature)
			}
			return
		}
		for _, o := range x.Operands {
			walk(o)
		}
	}
	walk(e)
	return out
}

func quoteName(name string) string {
	for _, r := range name {
		if !isIdentRune(r) {
			return `"` + name + `"`
		}
	}
	return name
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ErrUnsupportedConstraint is returned for arithmetic, aggregate and other
// non-boolean constraint syntax.
var ErrUnsupportedConstraint = errors.New("unsupported constraint syntax")

type tokenKind int

const (
	tokName tokenKind = iota
	tokNot
	tokAnd
	tokOr
	tokImplies
	tokEquiv
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func tokenize(s string) ([]token, error) {
	runes := []rune(s)
	var tokens []token
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case r == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case r == '!':
			tokens = append(tokens, token{tokNot, "!", i})
			i++
		case r == '&':
			tokens = append(tokens, token{tokAnd, "&", i})
			i++
		case r == '|':
			tokens = append(tokens, token{tokOr, "|", i})
			i++
		case r == '=' && i+1 < len(runes) && runes[i+1] == '>':
			tokens = append(tokens, token{tokImplies, "=>", i})
			i += 2
		case r == '<' && i+2 < len(runes) && runes[i+1] == '=' && runes[i+2] == '>':
			tokens = append(tokens, token{tokEquiv, "<=>", i})
			i += 3
		case r == '"':
			end := i + 1
			for end < len(runes) && runes[end] != '"' {
				end++
			}
			if end >= len(runes) {
				return nil, fmt.Errorf("unterminated quoted name at offset %d", i)
			}
			tokens = append(tokens, token{tokName, string(runes[i+1 : end]), i})
			i = end + 1
		case isIdentStart(r):
			end := i + 1
			for end < len(runes) && isIdentRune(runes[end]) {
				end++
			}
			tokens = append(tokens, token{tokName, string(runes[i:end]), i})
			i = end
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrUnsupportedConstraint, r, i)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(runes)})
	return tokens, nil
}

type exprParser struct {
	tokens []token
	pos    int
}

// ParseExpr parses a boolean constraint. Precedence from loosest to tightest
// is <=>, =>, |, &, !; implication is right associative.
func ParseExpr(s string) (*Expr, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens}
	e, err := p.equiv()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at offset %d", t.text, t.pos)
	}
	return e, nil
}

func (p *exprParser) peek() token {
	return p.tokens[p.pos]
}

func (p *exprParser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) equiv() (*Expr, error) {
	left, err := p.implies()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokEquiv {
		p.next()
		right, err := p.implies()
		if err != nil {
			return nil, err
		}
		left = Equiv(left, right)
	}
	return left, nil
}

func (p *exprParser) implies() (*Expr, error) {
	left, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokImplies {
		return left, nil
	}
	p.next()
	right, err := p.implies()
	if err != nil {
		return nil, err
	}
	return Implies(left, right), nil
}

func (p *exprParser) or() (*Expr, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = Or(left, right)
	}
	return left, nil
}

func (p *exprParser) and() (*Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = And(left, right)
	}
	return left, nil
}

func (p *exprParser) unary() (*Expr, error) {
	if p.peek().kind == tokNot {
		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Not(operand), nil
	}
	return p.primary()
}

func (p *exprParser) primary() (*Expr, error) {
	t := p.next()
	switch t.kind {
	case tokName:
		return Ref(strings.TrimSpace(t.text)), nil
	case tokLParen:
		e, err := p.equiv()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at offset %d", closing.pos)
		}
		return e, nil
	case tokEOF:
		return nil, errors.New("unexpected end of constraint")
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", t.text, t.pos)
	}
}
