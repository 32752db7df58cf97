package calculator

import (
	"time"

	"SignalDesk/internal/model"
)

// State is the incremental-recompute bookkeeping shared by all indicators.
// An indicator instance and its State belong to a single analysis task.
type State struct {
	InitialRun    bool
	PreviousIndex int
	NeedRecalc    bool

	// lastTime is the timestamp of bar PreviousIndex-1 on the previous call.
	lastTime time.Time
}

func newState() State { return State{InitialRun: true} }

// begin returns the first output index to recompute for bars and whether the
// retained buffers must be discarded. The last bar seen on the previous call is
// always recomputed because it may have been a forming bar.
func (s *State) begin(bars model.BarSeries) (from int, reset bool) {
	n := len(bars)
	if s.InitialRun || s.NeedRecalc || n < s.PreviousIndex || s.PreviousIndex == 0 {
		return 0, true
	}
	if !bars[s.PreviousIndex-1].Time.Equal(s.lastTime) {
		return 0, true
	}
	return s.PreviousIndex - 1, false
}

// commit records a finished calculation over bars.
func (s *State) commit(bars model.BarSeries) {
	s.InitialRun = false
	s.NeedRecalc = false
	s.PreviousIndex = len(bars)
	if len(bars) > 0 {
		s.lastTime = bars[len(bars)-1].Time
	}
}

// Reset forces a full recompute on the next call.
func (s *State) Reset() { s.NeedRecalc = true }
