package exact

import (
	"fmt"
	"math/big"
	"strings"
	"text/scanner"

	"github.com/matzehuels/gasket/pkg/errors"
)

// Serialization tags.
const (
	TagInt  = "int:"
	TagFrac = "frac:"
	TagSym  = "sym:"
)

// Format serializes n as "int:<n>", "frac:<p>/<q>" or "sym:<expr>".
// Algebraic values are written in canonical normal form, so two equal
// Numbers always format to the same string.
func Format(n Number) string {
	switch n.kind {
	case KindInteger:
		return TagInt + n.ratValue().Num().String()
	case KindRational:
		q := n.ratValue()
		return TagFrac + q.Num().String() + "/" + q.Denom().String()
	case KindAlgebraic:
		return TagSym + n.alg.String()
	default:
		panic("exact: unknown kind " + n.kind.String())
	}
}

// Parse decodes a string produced by [Format]. The "sym:" body accepts the
// general expression grammar of [ParseLoose], so legacy spellings such as
// "sym:2*sqrt(2)/3 + 7/6" decode to the same normal form. Malformed input
// fails with SERIALIZATION.
func Parse(s string) (Number, error) {
	switch {
	case strings.HasPrefix(s, TagInt):
		body := s[len(TagInt):]
		i, ok := new(big.Int).SetString(body, 10)
		if !ok {
			return Number{}, errors.New(errors.ErrCodeSerialization, "invalid integer %q", body)
		}
		return NewInt(i), nil

	case strings.HasPrefix(s, TagFrac):
		body := s[len(TagFrac):]
		num, den, found := strings.Cut(body, "/")
		if !found {
			return Number{}, errors.New(errors.ErrCodeSerialization, "fraction %q has no denominator", body)
		}
		p, okP := new(big.Int).SetString(num, 10)
		q, okQ := new(big.Int).SetString(den, 10)
		if !okP || !okQ {
			return Number{}, errors.New(errors.ErrCodeSerialization, "invalid fraction %q", body)
		}
		if q.Sign() == 0 {
			return Number{}, errors.New(errors.ErrCodeSerialization, "fraction %q has zero denominator", body)
		}
		return fromRat(new(big.Rat).SetFrac(p, q)), nil

	case strings.HasPrefix(s, TagSym):
		return parseExpr(s[len(TagSym):])

	default:
		return Number{}, errors.New(errors.ErrCodeSerialization, "unknown tag in %q", s)
	}
}

// ParseLoose decodes user input: a tagged string as accepted by [Parse],
// or an untagged expression such as "3", "-1/2" or "7/6 + 2*sqrt(2)/3".
func ParseLoose(s string) (Number, error) {
	s = strings.TrimSpace(s)
	for _, tag := range []string{TagInt, TagFrac, TagSym} {
		if strings.HasPrefix(s, tag) {
			return Parse(s)
		}
	}
	return parseExpr(s)
}

// =============================================================================
// Expression parser
// =============================================================================
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ "**" unary ]
//	primary = integer | "sqrt" "(" expr ")" | "(" expr ")"

type parser struct {
	src string
	s   scanner.Scanner
	tok rune
	err error
}

func parseExpr(src string) (Number, error) {
	p := &parser{src: src}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanInts | scanner.ScanIdents
	p.s.Error = func(_ *scanner.Scanner, msg string) { p.fail("%s", msg) }
	p.next()
	if p.tok == scanner.EOF {
		return Number{}, errors.New(errors.ErrCodeSerialization, "empty expression")
	}
	n := p.expr()
	if p.err == nil && p.tok != scanner.EOF {
		p.fail("unexpected %q", p.s.TokenText())
	}
	if p.err != nil {
		return Number{}, p.err
	}
	return n, nil
}

func (p *parser) next() { p.tok = p.s.Scan() }

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = errors.New(errors.ErrCodeSerialization, "parse %q: %s", p.src, fmt.Sprintf(format, args...))
	}
}

func (p *parser) check(err error) {
	if err != nil && p.err == nil {
		p.err = errors.Wrap(errors.ErrCodeSerialization, err, "parse %q", p.src)
	}
}

func (p *parser) expect(tok rune) {
	if p.tok != tok {
		p.fail("expected %q, found %q", tok, p.s.TokenText())
		return
	}
	p.next()
}

func (p *parser) expr() Number {
	n := p.term()
	for p.err == nil && (p.tok == '+' || p.tok == '-') {
		op := p.tok
		p.next()
		rhs := p.term()
		if op == '+' {
			n = n.Add(rhs)
		} else {
			n = n.Sub(rhs)
		}
	}
	return n
}

func (p *parser) term() Number {
	n := p.unary()
	for p.err == nil && (p.tok == '*' || p.tok == '/') {
		op := p.tok
		p.next()
		rhs := p.unary()
		if op == '*' {
			n = n.Mul(rhs)
			continue
		}
		q, err := n.Div(rhs)
		p.check(err)
		n = q
	}
	return n
}

func (p *parser) unary() Number {
	switch p.tok {
	case '-':
		p.next()
		return p.unary().Neg()
	case '+':
		p.next()
		return p.unary()
	}
	return p.power()
}

func (p *parser) power() Number {
	base := p.primary()
	if p.err != nil || p.tok != '*' || p.s.Peek() != '*' {
		return base
	}
	p.next()
	p.next()
	exp := p.unary()
	if p.err != nil {
		return base
	}
	n, err := base.Pow(exp)
	p.check(err)
	return n
}

func (p *parser) primary() Number {
	switch p.tok {
	case scanner.Int:
		text := p.s.TokenText()
		i, ok := new(big.Int).SetString(text, 10)
		if !ok {
			p.fail("invalid integer %q", text)
			return Number{}
		}
		p.next()
		return NewInt(i)

	case scanner.Ident:
		if name := p.s.TokenText(); name != "sqrt" {
			p.fail("unknown function %q", name)
			return Number{}
		}
		p.next()
		p.expect('(')
		arg := p.expr()
		p.expect(')')
		if p.err != nil {
			return Number{}
		}
		root, err := arg.Sqrt()
		p.check(err)
		return root

	case '(':
		p.next()
		n := p.expr()
		p.expect(')')
		return n
	}

	if p.tok == scanner.EOF {
		p.fail("unexpected end of expression")
	} else {
		p.fail("unexpected %q", p.s.TokenText())
	}
	return Number{}
}
