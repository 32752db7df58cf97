package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"SignalDesk/internal/model"
)

func sampleRun(runID string, started time.Time) *model.GroupAnalysisResult {
	return &model.GroupAnalysisResult{
		RunID:         runID,
		GroupID:       "tech",
		GroupName:     "Tech",
		StartedAt:     started,
		ExecutionTime: 1.25,
		Total:         2,
		Succeeded:     1,
		Failed:        1,
		Tally:         model.SignalTally{Buy: 3, Sell: 1, Neutral: 4},
		Sentiment:     model.Bullish,
		Results: map[string]*model.SymbolAnalysisResult{
			"AAPL_1d": {
				Key: "AAPL_1d", Symbol: "AAPL", Strategy: "default-check-single-timeframe",
				Success: true, Price: model.PriceStats{Latest: 190.5},
				Tally:     model.SignalTally{Buy: 3, Sell: 1, Neutral: 4},
				Sentiment: model.Bullish,
			},
			"BAD_1d": {Key: "BAD_1d", Symbol: "BAD", Error: "no data"},
		},
	}
}

func TestSQLRecorderRoundTrip(t *testing.T) {
	r, err := NewSQLRecorder(DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	ctx := context.Background()

	if _, err := r.LatestRun(ctx, "tech"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty db: got %v, want ErrNotFound", err)
	}

	t0 := time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC)
	if err := r.RecordGroup(ctx, sampleRun("run-1", t0)); err != nil {
		t.Fatalf("record run-1: %v", err)
	}
	if err := r.RecordGroup(ctx, sampleRun("run-2", t0.Add(24*time.Hour))); err != nil {
		t.Fatalf("record run-2: %v", err)
	}

	n, err := r.CountRuns(ctx, "tech")
	if err != nil || n != 2 {
		t.Fatalf("CountRuns = %d, %v; want 2", n, err)
	}

	got, err := r.LatestRun(ctx, "tech")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.RunID != "run-2" {
		t.Errorf("RunID = %s, want run-2", got.RunID)
	}
	if got.ExecutionTime != 1.25 {
		t.Errorf("ExecutionTime = %v, want 1.25 from the floating-point column", got.ExecutionTime)
	}
	if got.Tally != (model.SignalTally{Buy: 3, Sell: 1, Neutral: 4}) || got.Sentiment != model.Bullish {
		t.Errorf("tally/sentiment = %+v %s", got.Tally, got.Sentiment)
	}
	if len(got.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(got.Results))
	}
	if aapl := got.Results["AAPL_1d"]; aapl == nil || !aapl.Success || aapl.Price.Latest != 190.5 {
		t.Errorf("AAPL result = %+v", aapl)
	}
	if bad := got.Results["BAD_1d"]; bad == nil || bad.Success || bad.Error != "no data" {
		t.Errorf("BAD result = %+v", bad)
	}
}

func TestSQLRecorderDuplicateRunID(t *testing.T) {
	r, err := NewSQLRecorder(DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	ctx := context.Background()
	run := sampleRun("dup", time.Now())
	if err := r.RecordGroup(ctx, run); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := r.RecordGroup(ctx, run); err == nil {
		t.Fatal("expected unique constraint error on second insert")
	}
	// The failed transaction must not leave partial symbol rows behind.
	got, err := r.LatestRun(ctx, "tech")
	if err != nil || len(got.Results) != 2 {
		t.Fatalf("latest after failed insert = %v, %v", got, err)
	}
}

func TestUnsupportedDialect(t *testing.T) {
	if _, err := NewSQLRecorder("mysql", "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLRecorder{dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &SQLRecorder{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

type fakeRedis struct {
	data      map[string]string
	ttl       map[string]time.Duration
	published map[string][]string
	setErr    error
	closed    bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}, published: map[string][]string{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *goredis.StatusCmd {
	if f.setErr != nil {
		return goredis.NewStatusResult("", f.setErr)
	}
	f.data[key] = string(value.([]byte))
	f.ttl[key] = exp
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Publish(_ context.Context, ch string, msg interface{}) *goredis.IntCmd {
	f.published[ch] = append(f.published[ch], string(msg.([]byte)))
	return goredis.NewIntResult(1, nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisRecorder(t *testing.T) {
	fake := newFakeRedis()
	r := &RedisRecorder{client: fake, channel: "signaldesk:results", ttl: time.Hour}
	ctx := context.Background()

	if _, err := r.LatestRun(ctx, "tech"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key: got %v, want ErrNotFound", err)
	}
	if err := r.RecordGroup(ctx, sampleRun("run-1", time.Now())); err != nil {
		t.Fatalf("record: %v", err)
	}
	key := LatestKey("tech")
	if key != "signaldesk:group:tech:latest" {
		t.Errorf("key = %s", key)
	}
	if fake.ttl[key] != time.Hour {
		t.Errorf("ttl = %v", fake.ttl[key])
	}
	if len(fake.published["signaldesk:results"]) != 1 {
		t.Errorf("published = %v", fake.published)
	}
	got, err := r.LatestRun(ctx, "tech")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.RunID != "run-1" || len(got.Results) != 2 {
		t.Errorf("latest = %+v", got)
	}
	if err := r.Close(); err != nil || !fake.closed {
		t.Errorf("close: %v closed=%v", err, fake.closed)
	}
}

func TestMultiRecorder(t *testing.T) {
	failing := newFakeRedis()
	failing.setErr = errors.New("connection refused")
	ok := newFakeRedis()

	m := Multi{
		NewNoopRecorder(),
		&RedisRecorder{client: failing, ttl: time.Minute},
		&RedisRecorder{client: ok, ttl: time.Minute},
	}
	ctx := context.Background()
	err := m.RecordGroup(ctx, sampleRun("run-1", time.Now()))
	if err == nil {
		t.Fatal("expected joined error from failing recorder")
	}
	if _, stored := ok.data[LatestKey("tech")]; !stored {
		t.Error("healthy recorder skipped after failure")
	}

	got, err := m.LatestRun(ctx, "tech")
	if err != nil || got.RunID != "run-1" {
		t.Fatalf("LatestRun = %v, %v", got, err)
	}
	if _, err := m.LatestRun(ctx, "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other group: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
