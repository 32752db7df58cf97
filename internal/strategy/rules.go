package strategy

import (
	"log"

	"SignalDesk/internal/calculator"
)

// Combinator joins the outcomes of several conditions.
type Combinator string

const (
	And Combinator = "AND"
	Or  Combinator = "OR"
)

// RuleStrategy is a named set of buy and sell conditions.
type RuleStrategy struct {
	Name     string      `yaml:"name" json:"name"`
	Buy      []Condition `yaml:"buy" json:"buy"`
	BuyMode  Combinator  `yaml:"buy_mode" json:"buy_mode"`
	Sell     []Condition `yaml:"sell" json:"sell"`
	SellMode Combinator  `yaml:"sell_mode" json:"sell_mode"`
}

// SignalSet is the per-bar output of a RuleStrategy. Buy and Sell are independent;
// a bar may carry both. Strength is +1 for buy-only bars, -1 for sell-only bars, 0 otherwise.
type SignalSet struct {
	Buy      []bool
	Sell     []bool
	Strength []float64
	// Missing lists the series the conditions referenced but the frame lacked.
	Missing []string
}

// Evaluate runs the strategy over frame. A condition whose input is missing or
// invalid contributes an all-false series.
func (r RuleStrategy) Evaluate(frame *calculator.Frame) SignalSet {
	n := frame.Len()
	set := SignalSet{}
	set.Buy = r.side(frame, r.Buy, r.BuyMode, &set.Missing)
	set.Sell = r.side(frame, r.Sell, r.SellMode, &set.Missing)
	set.Strength = make([]float64, n)
	for i := 0; i < n; i++ {
		if set.Buy[i] {
			set.Strength[i]++
		}
		if set.Sell[i] {
			set.Strength[i]--
		}
	}
	return set
}

func (r RuleStrategy) side(frame *calculator.Frame, conds []Condition, mode Combinator, missing *[]string) []bool {
	n := frame.Len()
	results := make([][]bool, 0, len(conds))
	for _, c := range conds {
		o := c.Evaluate(frame)
		switch {
		case o.Err != nil:
			log.Printf("[WARN] strategy %s: %v, treating as false", r.Name, o.Err)
			results = append(results, make([]bool, n))
		case o.Missing != "":
			log.Printf("[WARN] strategy %s: condition %s references missing series %q, treating as false", r.Name, c.Name, o.Missing)
			*missing = append(*missing, o.Missing)
			results = append(results, make([]bool, n))
		default:
			results = append(results, o.Signal)
		}
	}
	return Combine(mode, results, n)
}

// Combine joins boolean series bar by bar. AND needs every series true, OR any.
// No series yields all false.
func Combine(mode Combinator, series [][]bool, n int) []bool {
	out := make([]bool, n)
	if len(series) == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		if mode == Or {
			for _, s := range series {
				if s[i] {
					out[i] = true
					break
				}
			}
			continue
		}
		out[i] = true
		for _, s := range series {
			if !s[i] {
				out[i] = false
				break
			}
		}
	}
	return out
}

// Count returns the number of true bars.
func Count(s []bool) int {
	c := 0
	for _, v := range s {
		if v {
			c++
		}
	}
	return c
}
