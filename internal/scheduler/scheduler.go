package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"SignalDesk/internal/alert"
	"SignalDesk/internal/export"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/notifier"
	"SignalDesk/internal/recorder"
)

// ErrUnknownGroup is returned for a group id that is not configured.
var ErrUnknownGroup = errors.New("unknown group")

// ErrGroupDisabled is returned when a disabled group is asked to run.
var ErrGroupDisabled = errors.New("group disabled")

// GroupRunner analyzes one group.
type GroupRunner interface {
	AnalyzeGroup(ctx context.Context, g model.Group) *model.GroupAnalysisResult
}

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Options carries the optional collaborators of a Scheduler. Nil fields are skipped.
type Options struct {
	Recorder    recorder.Recorder
	Notifier    Sender
	Alerts      *alert.Checker
	Exporter    *export.Exporter
	Metrics     *metrics.Metrics
	DefaultCron string
}

// Scheduler runs group analyses on cron schedules and on demand.
type Scheduler struct {
	Cron   *cron.Cron
	Engine GroupRunner
	Ctx    context.Context

	opts   Options
	groups map[string]model.Group
	order  []string
	store  *Store

	// one lock per group so a manual run never overlaps a scheduled one
	runMu map[string]*sync.Mutex

	subMu       sync.RWMutex
	subscribers []func(*model.GroupAnalysisResult)
}

// NewScheduler creates a scheduler for groups. Nothing is registered until RegisterAll.
func NewScheduler(ctx context.Context, engine GroupRunner, groups []model.Group, opts Options) *Scheduler {
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	s := &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		Engine: engine,
		Ctx:    ctx,
		opts:   opts,
		groups: make(map[string]model.Group, len(groups)),
		store:  NewStore(),
		runMu:  make(map[string]*sync.Mutex, len(groups)),
	}
	for _, g := range groups {
		s.groups[g.ID] = g
		s.order = append(s.order, g.ID)
		s.runMu[g.ID] = &sync.Mutex{}
	}
	return s
}

// RegisterAll adds one cron entry per enabled group.
func (s *Scheduler) RegisterAll() error {
	for _, id := range s.order {
		id := id
		g := s.groups[id]
		if !g.Enabled {
			continue
		}
		spec := g.Cron
		if spec == "" {
			spec = s.opts.DefaultCron
		}
		if spec == "" {
			return fmt.Errorf("group %s: no cron schedule", id)
		}
		if _, err := s.Cron.AddFunc(spec, func() { s.runScheduled(id) }); err != nil {
			return fmt.Errorf("register group %s (%q): %w", id, spec, err)
		}
		log.Printf("[INFO] group %s scheduled at %q", id, spec)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// Groups returns the configured groups in configuration order.
func (s *Scheduler) Groups() []model.Group {
	out := make([]model.Group, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.groups[id])
	}
	return out
}

// Group looks up a configured group.
func (s *Scheduler) Group(id string) (model.Group, bool) {
	g, ok := s.groups[id]
	return g, ok
}

// Subscribe registers fn to receive every finished group run.
func (s *Scheduler) Subscribe(fn func(*model.GroupAnalysisResult)) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

// Latest returns the most recent run of a group, from memory or from the recorder.
func (s *Scheduler) Latest(ctx context.Context, groupID string) (*model.GroupAnalysisResult, error) {
	if _, ok := s.groups[groupID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	if res, ok := s.store.Get(groupID); ok {
		return res, nil
	}
	if lr, ok := s.opts.Recorder.(recorder.LatestReader); ok {
		return lr.LatestRun(ctx, groupID)
	}
	return nil, fmt.Errorf("group %s: %w", groupID, recorder.ErrNotFound)
}

// RunNow analyzes a group immediately and runs the full post-processing chain.
func (s *Scheduler) RunNow(ctx context.Context, groupID string) (*model.GroupAnalysisResult, error) {
	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	if !g.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrGroupDisabled, groupID)
	}
	mu := s.runMu[groupID]
	mu.Lock()
	defer mu.Unlock()
	return s.run(ctx, g), nil
}

// RunAll runs every enabled group in order, for RUN_ON_START.
func (s *Scheduler) RunAll(ctx context.Context) {
	for _, id := range s.order {
		if !s.groups[id].Enabled {
			continue
		}
		if _, err := s.RunNow(ctx, id); err != nil {
			log.Printf("[ERROR] run group %s: %v", id, err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Scheduler) runScheduled(groupID string) {
	mu := s.runMu[groupID]
	if !mu.TryLock() {
		log.Printf("[WARN] group %s still running, skipping scheduled run", groupID)
		return
	}
	defer mu.Unlock()
	log.Printf("[INFO] running scheduled analysis for group %s", groupID)
	s.run(s.Ctx, s.groups[groupID])
}

func (s *Scheduler) run(ctx context.Context, g model.Group) *model.GroupAnalysisResult {
	res := s.Engine.AnalyzeGroup(ctx, g)

	if err := s.opts.Recorder.RecordGroup(ctx, res); err != nil {
		log.Printf("[ERROR] record group %s: %v", g.ID, err)
	}
	if s.opts.Exporter != nil {
		if paths, err := s.opts.Exporter.WriteGroup(res); err != nil {
			log.Printf("[ERROR] export group %s: %v", g.ID, err)
		} else if len(paths) > 0 {
			log.Printf("[INFO] exported %d frames for group %s", len(paths), g.ID)
		}
	}
	s.store.Put(res)

	s.subMu.RLock()
	subs := append([]func(*model.GroupAnalysisResult){}, s.subscribers...)
	s.subMu.RUnlock()
	for _, fn := range subs {
		fn(res)
	}

	s.trySend(ctx, notifier.FormatGroupSummary(res))

	if s.opts.Alerts != nil {
		alerts := s.opts.Alerts.CheckGroup(res)
		for _, a := range alerts {
			s.opts.Metrics.ObserveAlert(a.Condition)
		}
		if len(alerts) > 0 {
			log.Printf("[INFO] group %s: %d alerts", g.ID, len(alerts))
			s.trySend(ctx, notifier.FormatAlerts(g.Name, alerts))
		}
	}
	return res
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "/groups":
		var b strings.Builder
		for _, g := range s.Groups() {
			state := "on"
			if !g.Enabled {
				state = "off"
			}
			fmt.Fprintf(&b, "• %s (%s) %d symbols [%s]\n", g.ID, g.Name, len(g.Symbols), state)
		}
		return b.String()
	case "/latest":
		if len(fields) < 2 {
			return "usage: /latest <group>"
		}
		res, err := s.Latest(ctx, fields[1])
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatGroupSummary(res)
	case "/run":
		if len(fields) < 2 {
			return "usage: /run <group>"
		}
		// RunNow already sends the summary.
		if _, err := s.RunNow(ctx, fields[1]); err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return ""
	default:
		return "Commands:\n• /groups\n• /latest &lt;group&gt;\n• /run &lt;group&gt;"
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.opts.Notifier == nil || text == "" {
		return
	}
	if err := s.opts.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

// Store keeps the latest run of each group in memory.
type Store struct {
	mu     sync.RWMutex
	latest map[string]*model.GroupAnalysisResult
}

func NewStore() *Store {
	return &Store{latest: make(map[string]*model.GroupAnalysisResult)}
}

func (st *Store) Put(res *model.GroupAnalysisResult) {
	st.mu.Lock()
	st.latest[res.GroupID] = res
	st.mu.Unlock()
}

func (st *Store) Get(groupID string) (*model.GroupAnalysisResult, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	res, ok := st.latest[groupID]
	return res, ok
}

// IDs returns the groups that have a stored run, sorted.
func (st *Store) IDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]string, 0, len(st.latest))
	for id := range st.latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
