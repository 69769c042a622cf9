// Package expr evaluates the restricted arithmetic expressions used in
// tariff component calculations. Formulas are authored by non-engineers as
// part of a tariff document, so the evaluator is an allow-list interpreter
// over a closed expression tree: unknown syntax fails at parse, and a
// validation walk rejects unknown node kinds, identifiers and calls before
// anything is evaluated.
package expr

import (
	"fmt"
	"math"
)

// Error is returned for any rejected or failed expression.
type Error struct {
	Expr string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("expression %q: %s", e.Expr, e.Msg)
}

// Evaluate parses, validates and evaluates expression against vars.
// Booleans coerce to 1 and 0; every result is a float64.
func Evaluate(expression string, vars map[string]float64) (float64, error) {
	node, err := Parse(expression)
	if err != nil {
		return 0, &Error{Expr: expression, Msg: err.Error()}
	}
	if err := Validate(node, vars); err != nil {
		return 0, &Error{Expr: expression, Msg: err.Error()}
	}
	v, err := eval(node, vars)
	if err != nil {
		return 0, &Error{Expr: expression, Msg: err.Error()}
	}
	return v, nil
}

// Validate walks the tree and rejects any node outside the closed kind set,
// any name outside vars, and any call to a non-whitelisted function. It is
// a reject-unknown policy: the default branch fails.
func Validate(node Node, vars map[string]float64) error {
	switch n := node.(type) {
	case *NumberNode:
		return nil
	case *NameNode:
		if _, ok := vars[n.Name]; !ok {
			return fmt.Errorf("use of name %q not allowed", n.Name)
		}
		return nil
	case *UnaryNode:
		return Validate(n.Operand, vars)
	case *BinaryNode:
		if err := Validate(n.Left, vars); err != nil {
			return err
		}
		return Validate(n.Right, vars)
	case *CompareNode:
		if err := Validate(n.Left, vars); err != nil {
			return err
		}
		for _, c := range n.Comparators {
			if err := Validate(c, vars); err != nil {
				return err
			}
		}
		return nil
	case *BoolNode:
		for _, v := range n.Values {
			if err := Validate(v, vars); err != nil {
				return err
			}
		}
		return nil
	case *CallNode:
		fn, ok := builtins[n.Func]
		if !ok {
			return fmt.Errorf("call to %q not allowed", n.Func)
		}
		if len(n.Args) < fn.minArgs || (fn.maxArgs >= 0 && len(n.Args) > fn.maxArgs) {
			return fmt.Errorf("%s: wrong argument count %d", n.Func, len(n.Args))
		}
		for _, a := range n.Args {
			if err := Validate(a, vars); err != nil {
				return err
			}
		}
		return nil
	case *CondNode:
		if err := Validate(n.Test, vars); err != nil {
			return err
		}
		if err := Validate(n.Body, vars); err != nil {
			return err
		}
		return Validate(n.OrElse, vars)
	default:
		return fmt.Errorf("unsupported expression node %T", node)
	}
}

func truthy(v float64) bool { return v != 0 }

func eval(node Node, vars map[string]float64) (float64, error) {
	switch n := node.(type) {
	case *NumberNode:
		return n.Value, nil
	case *NameNode:
		v, ok := vars[n.Name]
		if !ok {
			return 0, fmt.Errorf("use of name %q not allowed", n.Name)
		}
		return v, nil
	case *UnaryNode:
		v, err := eval(n.Operand, vars)
		if err != nil {
			return 0, err
		}
		if n.Op == "-" {
			return -v, nil
		}
		return v, nil
	case *BinaryNode:
		left, err := eval(n.Left, vars)
		if err != nil {
			return 0, err
		}
		right, err := eval(n.Right, vars)
		if err != nil {
			return 0, err
		}
		return applyBinary(n.Op, left, right)
	case *CompareNode:
		left, err := eval(n.Left, vars)
		if err != nil {
			return 0, err
		}
		for i, op := range n.Ops {
			right, err := eval(n.Comparators[i], vars)
			if err != nil {
				return 0, err
			}
			if !compare(op, left, right) {
				return 0, nil
			}
			left = right
		}
		return 1, nil
	case *BoolNode:
		// Operands evaluate eagerly; "and" is all, "or" is any.
		any := false
		all := true
		for _, operand := range n.Values {
			v, err := eval(operand, vars)
			if err != nil {
				return 0, err
			}
			if truthy(v) {
				any = true
			} else {
				all = false
			}
		}
		if n.Op == "and" {
			return boolValue(all), nil
		}
		return boolValue(any), nil
	case *CallNode:
		fn := builtins[n.Func]
		args := make([]float64, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a, vars)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return fn.apply(args)
	case *CondNode:
		test, err := eval(n.Test, vars)
		if err != nil {
			return 0, err
		}
		if truthy(test) {
			return eval(n.Body, vars)
		}
		return eval(n.OrElse, vars)
	default:
		return 0, fmt.Errorf("unsupported expression node %T", node)
	}
}

func applyBinary(op string, left, right float64) (float64, error) {
	switch op {
	case "+":
		return left + right, nil
	case "-":
		return left - right, nil
	case "*":
		return left * right, nil
	case "/":
		if right == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return left / right, nil
	case "%":
		if right == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		// Result takes the sign of the divisor.
		m := math.Mod(left, right)
		if m != 0 && (m < 0) != (right < 0) {
			m += right
		}
		return m, nil
	case "**":
		v := math.Pow(left, right)
		if math.IsNaN(v) {
			return 0, errDomain
		}
		return v, nil
	}
	return 0, fmt.Errorf("operator %q not allowed", op)
}

func compare(op string, left, right float64) bool {
	switch op {
	case "<":
		return left < right
	case "<=":
		return left <= right
	case ">":
		return left > right
	case ">=":
		return left >= right
	case "==":
		return left == right
	case "!=":
		return left != right
	}
	return false
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
