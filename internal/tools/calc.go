package tools

import (
	"errors"
	"fmt"
	"go/scanner"
	"go/token"
	"math"
	"strconv"
	"strings"
)

const maxExpressionLen = 256

var (
	ErrUnsupportedExpression = errors.New("unsupported expression")
	ErrDivisionByZero        = errors.New("division by zero")
)

var exprReplacer = strings.NewReplacer("×", "*", "÷", "/", "**", "^")

var calcConstants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

var calcFuncs = map[string]func(float64) float64{
	"sqrt":  math.Sqrt,
	"abs":   math.Abs,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"round": math.Round,
	"ln":    math.Log,
	"log":   math.Log10,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
}

// Evaluate computes an arithmetic expression. Only numeric literals, the
// operators + - * / % ^, parentheses, unary signs, the constants pi and e and
// a fixed set of one-argument math functions are accepted; any other token is
// rejected. ^ is exponentiation: it binds tighter than * and unary minus and
// groups right to left, so -2 ^ 2 is -4 and 2 ^ 3 ^ 2 is 512.
func Evaluate(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("%w: empty", ErrUnsupportedExpression)
	}
	if len(expr) > maxExpressionLen {
		return 0, fmt.Errorf("%w: longer than %d characters", ErrUnsupportedExpression, maxExpressionLen)
	}

	toks, err := tokenize(exprReplacer.Replace(expr))
	if err != nil {
		return 0, err
	}
	p := &calcParser{toks: toks}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if tok := p.peek(); tok.tok != token.EOF {
		return 0, fmt.Errorf("%w: unexpected %s", ErrUnsupportedExpression, tok)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: result is not a finite number", ErrUnsupportedExpression)
	}
	return v, nil
}

// FormatNumber renders v without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type calcToken struct {
	tok token.Token
	lit string
}

func (t calcToken) String() string {
	if t.lit != "" {
		return strconv.Quote(t.lit)
	}
	return strconv.Quote(t.tok.String())
}

func tokenize(src string) ([]calcToken, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var scanErr error
	var s scanner.Scanner
	s.Init(file, []byte(src), func(_ token.Position, msg string) {
		if scanErr == nil {
			scanErr = fmt.Errorf("%w: %s", ErrUnsupportedExpression, msg)
		}
	}, 0)

	var toks []calcToken
	for {
		_, tok, lit := s.Scan()
		switch tok {
		case token.EOF:
			if scanErr != nil {
				return nil, scanErr
			}
			return append(toks, calcToken{tok: token.EOF}), nil
		case token.SEMICOLON:
			if lit == "\n" {
				continue
			}
			return nil, fmt.Errorf("%w: unexpected ;", ErrUnsupportedExpression)
		case token.INT, token.FLOAT, token.IDENT:
			toks = append(toks, calcToken{tok: tok, lit: lit})
		case token.ADD, token.SUB, token.MUL, token.QUO, token.REM, token.XOR, token.LPAREN, token.RPAREN:
			toks = append(toks, calcToken{tok: tok})
		default:
			if lit == "" {
				lit = tok.String()
			}
			return nil, fmt.Errorf("%w: token %q", ErrUnsupportedExpression, lit)
		}
	}
}

// calcParser is a recursive-descent evaluator:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/" | "%") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ "^" unary ]
//	primary = number | constant | func "(" expr ")" | "(" expr ")"
type calcParser struct {
	toks  []calcToken
	pos   int
	depth int
}

const maxNesting = 64

func (p *calcParser) peek() calcToken { return p.toks[p.pos] }

func (p *calcParser) next() calcToken {
	t := p.toks[p.pos]
	if t.tok != token.EOF {
		p.pos++
	}
	return t
}

func (p *calcParser) expr() (float64, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxNesting {
		return 0, fmt.Errorf("%w: nested too deeply", ErrUnsupportedExpression)
	}

	x, err := p.term()
	if err != nil {
		return 0, err
	}
	for op := p.peek().tok; op == token.ADD || op == token.SUB; op = p.peek().tok {
		p.next()
		y, err := p.term()
		if err != nil {
			return 0, err
		}
		if x, err = applyBinary(op, x, y); err != nil {
			return 0, err
		}
	}
	return x, nil
}

func (p *calcParser) term() (float64, error) {
	x, err := p.unary()
	if err != nil {
		return 0, err
	}
	for op := p.peek().tok; op == token.MUL || op == token.QUO || op == token.REM; op = p.peek().tok {
		p.next()
		y, err := p.unary()
		if err != nil {
			return 0, err
		}
		if x, err = applyBinary(op, x, y); err != nil {
			return 0, err
		}
	}
	return x, nil
}

func (p *calcParser) unary() (float64, error) {
	switch p.peek().tok {
	case token.SUB:
		p.next()
		x, err := p.unary()
		return -x, err
	case token.ADD:
		p.next()
		return p.unary()
	}
	return p.power()
}

func (p *calcParser) power() (float64, error) {
	x, err := p.primary()
	if err != nil {
		return 0, err
	}
	if p.peek().tok != token.XOR {
		return x, nil
	}
	p.next()
	// The exponent is parsed as unary so that 2 ^ -1 works and 2 ^ 3 ^ 2
	// groups to the right.
	y, err := p.unary()
	if err != nil {
		return 0, err
	}
	return applyBinary(token.XOR, x, y)
}

func (p *calcParser) primary() (float64, error) {
	t := p.next()
	switch t.tok {
	case token.INT, token.FLOAT:
		v, err := strconv.ParseFloat(t.lit, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: number %s: %v", ErrUnsupportedExpression, t.lit, err)
		}
		return v, nil

	case token.LPAREN:
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return 0, err
		}
		return v, nil

	case token.IDENT:
		name := strings.ToLower(t.lit)
		if p.peek().tok != token.LPAREN {
			if v, ok := calcConstants[name]; ok {
				return v, nil
			}
			return 0, fmt.Errorf("%w: identifier %q", ErrUnsupportedExpression, t.lit)
		}
		fn, ok := calcFuncs[name]
		if !ok {
			return 0, fmt.Errorf("%w: function %q", ErrUnsupportedExpression, t.lit)
		}
		p.next()
		arg, err := p.expr()
		if err != nil {
			return 0, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return 0, err
		}
		return fn(arg), nil
	}
	if t.tok == token.EOF {
		return 0, fmt.Errorf("%w: unexpected end of expression", ErrUnsupportedExpression)
	}
	return 0, fmt.Errorf("%w: unexpected %s", ErrUnsupportedExpression, t)
}

func (p *calcParser) expect(tok token.Token) error {
	if t := p.next(); t.tok != tok {
		return fmt.Errorf("%w: expected %s, got %s", ErrUnsupportedExpression, tok, t)
	}
	return nil
}

func applyBinary(op token.Token, x, y float64) (float64, error) {
	switch op {
	case token.ADD:
		return x + y, nil
	case token.SUB:
		return x - y, nil
	case token.MUL:
		return x * y, nil
	case token.QUO:
		if y == 0 {
			return 0, ErrDivisionByZero
		}
		return x / y, nil
	case token.REM:
		if y == 0 {
			return 0, ErrDivisionByZero
		}
		return math.Mod(x, y), nil
	case token.XOR:
		return math.Pow(x, y), nil
	}
	return 0, fmt.Errorf("%w: operator %s", ErrUnsupportedExpression, op)
}
