package strategy

import (
	"fmt"
	"math"

	"SignalDesk/internal/calculator"
)

// Operator compares the left series of a condition against its right side.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpCrossAbove   Operator = "cross_above"
	OpCrossBelow   Operator = "cross_below"
)

// Condition is one atomic rule. Right names a series; when empty, Value is used as a constant.
type Condition struct {
	Name     string   `yaml:"name" json:"name"`
	Left     string   `yaml:"left" json:"left"`
	Operator Operator `yaml:"operator" json:"operator"`
	Right    string   `yaml:"right,omitempty" json:"right,omitempty"`
	Value    float64  `yaml:"value,omitempty" json:"value,omitempty"`
	Lookback int      `yaml:"lookback,omitempty" json:"lookback,omitempty"`
}

// Outcome is either a boolean series, the name of a missing input series, or an
// invalid-condition error.
type Outcome struct {
	Signal  []bool
	Missing string
	Err     error
}

// OK reports whether the condition produced a signal.
func (o Outcome) OK() bool { return o.Missing == "" && o.Err == nil }

// Evaluate tests the condition at every bar of frame. Comparisons involving an
// undefined value are false.
func (c Condition) Evaluate(frame *calculator.Frame) Outcome {
	left, ok := frame.Lookup(c.Left)
	if !ok {
		return Outcome{Missing: c.Left}
	}
	var right calculator.Series
	if c.Right != "" {
		if right, ok = frame.Lookup(c.Right); !ok {
			return Outcome{Missing: c.Right}
		}
	}
	rhs := func(i int) float64 {
		if right == nil {
			return c.Value
		}
		return right.At(i)
	}

	n := frame.Len()
	out := make([]bool, n)
	switch c.Operator {
	case OpCrossAbove, OpCrossBelow:
		lb := c.Lookback
		if lb <= 0 {
			lb = 1
		}
		for i := lb; i < n; i++ {
			pl, pr, cl, cr := left.At(i-lb), rhs(i-lb), left.At(i), rhs(i)
			if anyNaN(pl, pr, cl, cr) {
				continue
			}
			if c.Operator == OpCrossAbove {
				out[i] = pl <= pr && cl > cr
			} else {
				out[i] = pl >= pr && cl < cr
			}
		}
	default:
		cmp, err := comparator(c.Operator)
		if err != nil {
			return Outcome{Err: fmt.Errorf("condition %s: %w", c.Name, err)}
		}
		for i := 0; i < n; i++ {
			l, r := left.At(i), rhs(i)
			if anyNaN(l, r) {
				continue
			}
			out[i] = cmp(l, r)
		}
	}
	return Outcome{Signal: out}
}

func comparator(op Operator) (func(a, b float64) bool, error) {
	switch op {
	case OpGreater:
		return func(a, b float64) bool { return a > b }, nil
	case OpLess:
		return func(a, b float64) bool { return a < b }, nil
	case OpGreaterEqual:
		return func(a, b float64) bool { return a >= b }, nil
	case OpLessEqual:
		return func(a, b float64) bool { return a <= b }, nil
	case OpEqual:
		return func(a, b float64) bool { return a == b }, nil
	case OpNotEqual:
		return func(a, b float64) bool { return a != b }, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
