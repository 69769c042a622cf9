package expr

import (
	"fmt"
	"strconv"
)

// Parse turns src into an expression tree. The grammar is a single
// expression: arithmetic, comparisons, and/or, conditionals and calls.
// Statements, attribute access, subscripting and anything else fail here.
func Parse(src string) (Node, error) {
	toks, err := scan(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", p.peek().text, p.peek().pos)
	}
	return node, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) acceptOp(op string) bool {
	if t := p.peek(); t.kind == tokOperator && t.text == op {
		p.i++
		return true
	}
	return false
}

func (p *parser) acceptKeyword(kw string) bool {
	if t := p.peek(); t.kind == tokKeyword && t.text == kw {
		p.i++
		return true
	}
	return false
}

// conditional: or ["if" or "else" conditional]
func (p *parser) parseConditional() (Node, error) {
	body, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.acceptKeyword("if") {
		return body, nil
	}
	test, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.acceptKeyword("else") {
		return nil, fmt.Errorf("conditional missing 'else' at position %d", p.peek().pos)
	}
	orElse, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	return &CondNode{Test: test, Body: body, OrElse: orElse}, nil
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	values := []Node{first}
	for p.acceptKeyword("or") {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		values = append(values, next)
	}
	if len(values) == 1 {
		return first, nil
	}
	return &BoolNode{Op: "or", Values: values}, nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	values := []Node{first}
	for p.acceptKeyword("and") {
		next, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		values = append(values, next)
	}
	if len(values) == 1 {
		return first, nil
	}
	return &BoolNode{Op: "and", Values: values}, nil
}

var compareOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseArith()
	if err != nil {
		return nil, err
	}
	var ops []string
	var comparators []Node
	for {
		t := p.peek()
		if t.kind != tokOperator || !compareOps[t.text] {
			break
		}
		p.next()
		right, err := p.parseArith()
		if err != nil {
			return nil, err
		}
		ops = append(ops, t.text)
		comparators = append(comparators, right)
	}
	if len(ops) == 0 {
		return left, nil
	}
	return &CompareNode{Left: left, Ops: ops, Comparators: comparators}, nil
}

func (p *parser) parseArith() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.acceptOp("+"):
			op = "+"
		case p.acceptOp("-"):
			op = "-"
		default:
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.acceptOp("*"):
			op = "*"
		case p.acceptOp("/"):
			op = "/"
		case p.acceptOp("%"):
			op = "%"
		default:
			return left, nil
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
}

// factor: ("+" | "-") factor | power
func (p *parser) parseFactor() (Node, error) {
	switch {
	case p.acceptOp("+"):
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: "+", Operand: operand}, nil
	case p.acceptOp("-"):
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: "-", Operand: operand}, nil
	}
	return p.parsePower()
}

// power: primary ["**" factor]. Right-associative; "**" binds tighter than
// a unary minus on its left, so -2**2 is -(2**2).
func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.acceptOp("**") {
		return base, nil
	}
	exp, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	return &BinaryNode{Op: "**", Left: base, Right: exp}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", t.text, t.pos)
		}
		return &NumberNode{Value: v}, nil
	case tokName:
		p.next()
		if !p.acceptOp("(") {
			return &NameNode{Name: t.text}, nil
		}
		call := &CallNode{Func: t.text}
		if p.acceptOp(")") {
			return call, nil
		}
		for {
			arg, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.acceptOp(",") {
				continue
			}
			if p.acceptOp(")") {
				return call, nil
			}
			return nil, fmt.Errorf("unterminated call to %q at position %d", t.text, p.peek().pos)
		}
	case tokOperator:
		if t.text == "(" {
			p.next()
			inner, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			if !p.acceptOp(")") {
				return nil, fmt.Errorf("missing closing parenthesis at position %d", p.peek().pos)
			}
			return inner, nil
		}
	}
	return nil, fmt.Errorf("unexpected %q at position %d", t.text, t.pos)
}
