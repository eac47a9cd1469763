package builtin

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidExpression is returned for any input the evaluator does not accept
var ErrInvalidExpression = errors.New("invalid expression")

// Evaluate computes an arithmetic expression over decimal numbers with
// + - * /, unary signs and parentheses. Nothing else is accepted: no
// identifiers, no function calls, no exponent operator.
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | primary
//	primary = number | "(" expr ")"
func Evaluate(expression string) (float64, error) {
	p := &exprParser{src: expression}
	p.skipSpace()
	if p.eof() {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidExpression)
	}

	v, err := p.expr()
	if err != nil {
		return 0, err
	}

	p.skipSpace()
	if !p.eof() {
		return 0, p.errorf("unexpected %q", p.src[p.pos])
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: result is not finite", ErrInvalidExpression)
	}
	return v, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *exprParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrInvalidExpression, p.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) expr() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) term() (float64, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, p.errorf("division by zero")
		}
		left /= right
	}
}

func (p *exprParser) unary() (float64, error) {
	p.skipSpace()
	switch p.peek() {
	case '+':
		p.pos++
		return p.unary()
	case '-':
		p.pos++
		v, err := p.unary()
		return -v, err
	}
	return p.primary()
}

func (p *exprParser) primary() (float64, error) {
	p.skipSpace()
	if p.eof() {
		return 0, p.errorf("unexpected end of input")
	}

	if p.peek() == '(' {
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, p.errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	return p.number()
}

// number scans digits with an optional fraction and exponent, e.g. 12, 1.5,
// .5, 3., 2e10, 1.2E-3
func (p *exprParser) number() (float64, error) {
	start := p.pos
	digits := p.scanDigits()
	if p.peek() == '.' {
		p.pos++
		digits += p.scanDigits()
	}
	if digits == 0 {
		return 0, p.errorf("unexpected %q", p.src[start])
	}

	if c := p.peek(); c == 'e' || c == 'E' {
		mark := p.pos
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if p.scanDigits() == 0 {
			p.pos = mark
			return 0, p.errorf("malformed exponent")
		}
	}

	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, p.errorf("bad number %q", p.src[start:p.pos])
	}
	return v, nil
}

func (p *exprParser) scanDigits() int {
	n := 0
	for !p.eof() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
		n++
	}
	return n
}
