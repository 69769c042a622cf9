package expr

import (
	"errors"
	"math"
)

// builtin is a whitelisted function. maxArgs of -1 means variadic.
type builtin struct {
	minArgs int
	maxArgs int
	apply   func(args []float64) (float64, error)
}

var errDomain = errors.New("math domain error")

// builtins is the closed set of callable functions. Tariff formulas get
// min/max/round plus a fixed selection of math helpers, nothing else.
var builtins = map[string]builtin{
	"min": {minArgs: 1, maxArgs: -1, apply: func(args []float64) (float64, error) {
		v := args[0]
		for _, a := range args[1:] {
			if a < v {
				v = a
			}
		}
		return v, nil
	}},
	"max": {minArgs: 1, maxArgs: -1, apply: func(args []float64) (float64, error) {
		v := args[0]
		for _, a := range args[1:] {
			if a > v {
				v = a
			}
		}
		return v, nil
	}},
	"round": {minArgs: 1, maxArgs: 2, apply: func(args []float64) (float64, error) {
		if len(args) == 1 {
			return math.Round(args[0]), nil
		}
		scale := math.Pow(10, math.Trunc(args[1]))
		return math.Round(args[0]*scale) / scale, nil
	}},
	"fabs":  {minArgs: 1, maxArgs: 1, apply: oneArg(math.Abs)},
	"ceil":  {minArgs: 1, maxArgs: 1, apply: oneArg(math.Ceil)},
	"floor": {minArgs: 1, maxArgs: 1, apply: oneArg(math.Floor)},
	"trunc": {minArgs: 1, maxArgs: 1, apply: oneArg(math.Trunc)},
	"exp":   {minArgs: 1, maxArgs: 1, apply: oneArg(math.Exp)},
	"sqrt": {minArgs: 1, maxArgs: 1, apply: func(args []float64) (float64, error) {
		if args[0] < 0 {
			return 0, errDomain
		}
		return math.Sqrt(args[0]), nil
	}},
	"log": {minArgs: 1, maxArgs: 1, apply: func(args []float64) (float64, error) {
		if args[0] <= 0 {
			return 0, errDomain
		}
		return math.Log(args[0]), nil
	}},
	"log10": {minArgs: 1, maxArgs: 1, apply: func(args []float64) (float64, error) {
		if args[0] <= 0 {
			return 0, errDomain
		}
		return math.Log10(args[0]), nil
	}},
	"pow": {minArgs: 2, maxArgs: 2, apply: func(args []float64) (float64, error) {
		v := math.Pow(args[0], args[1])
		if math.IsNaN(v) {
			return 0, errDomain
		}
		return v, nil
	}},
	"fmod": {minArgs: 2, maxArgs: 2, apply: func(args []float64) (float64, error) {
		if args[1] == 0 {
			return 0, errors.New("fmod by zero")
		}
		return math.Mod(args[0], args[1]), nil
	}},
}

func oneArg(f func(float64) float64) func(args []float64) (float64, error) {
	return func(args []float64) (float64, error) { return f(args[0]), nil }
}
