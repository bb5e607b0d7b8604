// Package formula parses and evaluates the configurable island-level formula.
//
// The grammar covers decimal literals, the binary operators + - * / ^,
// parentheses, unary minus, the functions sqrt, sin, cos, tan and log, and a
// single placeholder identifier "points" bound at evaluation time to the net
// point total. Trigonometric functions take degrees; log is the natural
// logarithm. Expressions are parsed once and may be evaluated concurrently.
package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Placeholder is the identifier the aggregator substitutes the net point
// total for.
const Placeholder = "points"

// ParseError describes malformed formula input.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg)
}

// Expression is a parsed formula, immutable after Parse.
type Expression struct {
	root node
	src  string
}

// Parse compiles src into an Expression. All malformed input (empty string,
// unbalanced parentheses, unknown tokens or function names, trailing input)
// is reported as a *ParseError.
func Parse(src string) (*Expression, error) {
	p := &parser{lex: lexer{src: src}}
	if err := p.next(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokEOF {
		return nil, &ParseError{Pos: 0, Msg: "empty expression"}
	}
	root, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, &ParseError{Pos: p.tok.pos, Msg: fmt.Sprintf("unexpected trailing input %q", p.tok.text)}
	}
	return &Expression{root: root, src: src}, nil
}

// Evaluate computes the expression with the placeholder bound to points.
// Division by zero, log of a non-positive argument and sqrt of a negative
// argument are evaluation errors; no partial value is ever returned.
func (e *Expression) Evaluate(points float64) (float64, error) {
	return e.root.eval(points)
}

func (e *Expression) String() string {
	return e.src
}

// Evaluate parses and evaluates a closed expression. The placeholder, if
// present, is bound to zero.
func Evaluate(src string) (float64, error) {
	expr, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return expr.Evaluate(0)
}

// --- AST ---

type node interface {
	eval(points float64) (float64, error)
}

type numberNode float64

func (n numberNode) eval(float64) (float64, error) {
	return float64(n), nil
}

type varNode struct{}

func (varNode) eval(points float64) (float64, error) {
	return points, nil
}

type unaryNode struct {
	operand node
}

func (n unaryNode) eval(points float64) (float64, error) {
	v, err := n.operand.eval(points)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

type binaryNode struct {
	op       byte
	lhs, rhs node
}

func (n binaryNode) eval(points float64) (float64, error) {
	l, err := n.lhs.eval(points)
	if err != nil {
		return 0, err
	}
	r, err := n.rhs.eval(points)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case '^':
		return math.Pow(l, r), nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

type callNode struct {
	fn  string
	arg node
}

func (n callNode) eval(points float64) (float64, error) {
	v, err := n.arg.eval(points)
	if err != nil {
		return 0, err
	}
	switch n.fn {
	case "sqrt":
		if v < 0 {
			return 0, fmt.Errorf("sqrt of negative value %g", v)
		}
		return math.Sqrt(v), nil
	case "sin":
		return math.Sin(v * math.Pi / 180), nil
	case "cos":
		return math.Cos(v * math.Pi / 180), nil
	case "tan":
		return math.Tan(v * math.Pi / 180), nil
	case "log":
		if v <= 0 {
			return 0, fmt.Errorf("log of non-positive value %g", v)
		}
		return math.Log(v), nil
	}
	return 0, fmt.Errorf("unknown function %q", n.fn)
}

// --- lexer ---

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
	num  float64
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) lex() (token, error) {
	// YAML block scalars hand us formulas with trailing newlines.
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	c := l.src[l.pos]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		for l.pos < len(l.src) && (l.src[l.pos] >= '0' && l.src[l.pos] <= '9' || l.src[l.pos] == '.') {
			l.pos++
		}
		text := l.src[start:l.pos]
		num, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, &ParseError{Pos: start, Msg: fmt.Sprintf("malformed number %q", text)}
		}
		return token{kind: tokNumber, text: text, pos: start, num: num}, nil
	case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_':
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: strings.ToLower(l.src[start:l.pos]), pos: start}, nil
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == '+' || c == '-' || c == '*' || c == '/' || c == '^':
		l.pos++
		return token{kind: tokOp, text: string(c), pos: start}, nil
	}
	return token{}, &ParseError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", string(c))}
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// --- parser ---

// Binding powers, low to high: additive, multiplicative, unary minus,
// exponentiation (right-associative). Function application and parentheses
// bind tightest as primaries.
const (
	bpAdditive = 10
	bpMultiply = 20
	bpUnary    = 30
	bpPower    = 40
)

var functions = map[string]bool{
	"sqrt": true,
	"sin":  true,
	"cos":  true,
	"tan":  true,
	"log":  true,
}

type parser struct {
	lex lexer
	tok token
}

func (p *parser) next() error {
	tok, err := p.lex.lex()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) parseExpr(minBP int) (node, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp {
		op := p.tok.text[0]
		lbp := bindingPower(op)
		if lbp <= minBP {
			break
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		// Exponentiation is right-associative; everything else binds left.
		rbp := lbp
		if op == '^' {
			rbp = lbp - 1
		}
		right, err := p.parseExpr(rbp)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, lhs: left, rhs: right}
	}
	return left, nil
}

func (p *parser) parsePrefix() (node, error) {
	tok := p.tok
	switch tok.kind {
	case tokNumber:
		if err := p.next(); err != nil {
			return nil, err
		}
		return numberNode(tok.num), nil
	case tokIdent:
		if err := p.next(); err != nil {
			return nil, err
		}
		if functions[tok.text] {
			if p.tok.kind != tokLParen {
				return nil, &ParseError{Pos: p.tok.pos, Msg: fmt.Sprintf("expected ( after function %q", tok.text)}
			}
			if err := p.next(); err != nil {
				return nil, err
			}
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if p.tok.kind != tokRParen {
				return nil, &ParseError{Pos: p.tok.pos, Msg: "unbalanced parentheses"}
			}
			if err := p.next(); err != nil {
				return nil, err
			}
			return callNode{fn: tok.text, arg: arg}, nil
		}
		if tok.text == Placeholder {
			return varNode{}, nil
		}
		return nil, &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("unknown identifier %q", tok.text)}
	case tokLParen:
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, &ParseError{Pos: p.tok.pos, Msg: "unbalanced parentheses"}
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return inner, nil
	case tokOp:
		if tok.text == "-" {
			if err := p.next(); err != nil {
				return nil, err
			}
			operand, err := p.parseExpr(bpUnary - 1)
			if err != nil {
				return nil, err
			}
			return unaryNode{operand: operand}, nil
		}
	}
	return nil, &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected token %q", tok.text)}
}

func bindingPower(op byte) int {
	switch op {
	case '+', '-':
		return bpAdditive
	case '*', '/':
		return bpMultiply
	case '^':
		return bpPower
	}
	return 0
}
