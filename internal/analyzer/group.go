package analyzer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 5

// Engine fans the Analyzer out across the enabled symbols of a group.
type Engine struct {
	analyzer *Analyzer
	workers  int
	metrics  *metrics.Metrics
}

// NewEngine creates a group engine with a pool of workers goroutines.
func NewEngine(a *Analyzer, workers int, m *metrics.Metrics) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Engine{analyzer: a, workers: workers, metrics: m}
}

// Analyzer returns the symbol analyzer the engine dispatches to.
func (e *Engine) Analyzer() *Analyzer { return e.analyzer }

// AnalyzeGroup analyzes every enabled symbol of g and waits for all of them.
// The result has one entry per enabled symbol, failed or not.
func (e *Engine) AnalyzeGroup(ctx context.Context, g model.Group) *model.GroupAnalysisResult {
	start := time.Now()
	symbols := g.EnabledSymbols()
	slots := make([]*model.SymbolAnalysisResult, len(symbols))

	var eg errgroup.Group
	eg.SetLimit(e.workers)
	for i, cfg := range symbols {
		i, cfg := i, cfg
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[ERROR] group %s: task %s panicked: %v", g.ID, cfg.Key(), r)
					slots[i] = model.FailedResult(cfg, fmt.Errorf("panic: %v", r))
				}
			}()
			slots[i] = e.analyzer.Analyze(ctx, cfg)
			return nil
		})
	}
	_ = eg.Wait()

	res := &model.GroupAnalysisResult{
		RunID:     uuid.NewString(),
		GroupID:   g.ID,
		GroupName: g.Name,
		StartedAt: start,
		Results:   make(map[string]*model.SymbolAnalysisResult, len(slots)),
		Total:     len(slots),
	}
	for i, r := range slots {
		if r == nil {
			r = model.FailedResult(symbols[i], fmt.Errorf("no result"))
		}
		key := r.Key
		for n := 2; ; n++ {
			if _, dup := res.Results[key]; !dup {
				break
			}
			key = fmt.Sprintf("%s#%d", r.Key, n)
		}
		res.Results[key] = r
		if !r.Success {
			res.Failed++
			continue
		}
		res.Succeeded++
		res.Tally.Add(r.Tally)
	}
	res.Sentiment = res.Tally.Sentiment()
	elapsed := time.Since(start)
	res.ExecutionTime = elapsed.Seconds()

	e.metrics.ObserveGroup(g.ID, elapsed)
	log.Printf("[INFO] group %s analyzed: %d ok, %d failed, sentiment %s in %.2fs",
		g.ID, res.Succeeded, res.Failed, res.Sentiment, res.ExecutionTime)
	return res
}

// AnalyzeGroups runs the enabled groups one after another.
func (e *Engine) AnalyzeGroups(ctx context.Context, groups []model.Group) []*model.GroupAnalysisResult {
	out := make([]*model.GroupAnalysisResult, 0, len(groups))
	for _, g := range groups {
		if !g.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			log.Printf("[WARN] stopping group analysis: %v", err)
			break
		}
		out = append(out, e.AnalyzeGroup(ctx, g))
	}
	return out
}
