package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"SignalDesk/internal/model"
)

// Dialect names accepted by NewSQLRecorder.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// SQLRecorder persists runs to SQLite or PostgreSQL. One group_runs row is written
// per run and one symbol_results row per symbol, holding the full result as JSON.
type SQLRecorder struct {
	db      *sql.DB
	dialect string
	mu      sync.Mutex
}

// NewSQLRecorder opens the database and runs migrations.
func NewSQLRecorder(dialect, dsn string) (*SQLRecorder, error) {
	var driver string
	switch dialect {
	case DialectSQLite:
		driver = "sqlite"
	case DialectPostgres:
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// A single connection keeps :memory: databases alive and serializes writers.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	} else if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &SQLRecorder{db: db, dialect: dialect}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] %s recorder opened", dialect)
	return r, nil
}

// rebind rewrites ? placeholders as $1, $2... for postgres.
func (r *SQLRecorder) rebind(q string) string {
	if r.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *SQLRecorder) migrate() error {
	id, realType := "INTEGER PRIMARY KEY AUTOINCREMENT", "REAL"
	if r.dialect == DialectPostgres {
		id, realType = "BIGSERIAL PRIMARY KEY", "DOUBLE PRECISION"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS group_runs (
			id             ` + id + `,
			run_id         TEXT NOT NULL UNIQUE,
			group_id       TEXT NOT NULL,
			group_name     TEXT,
			started_at     BIGINT NOT NULL,
			execution_time ` + realType + `,
			total          INTEGER,
			succeeded      INTEGER,
			failed         INTEGER,
			buy_count      INTEGER,
			sell_count     INTEGER,
			neutral_count  INTEGER,
			sentiment      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_group_runs_group ON group_runs(group_id, started_at)`,

		`CREATE TABLE IF NOT EXISTS symbol_results (
			id            ` + id + `,
			run_id        TEXT NOT NULL,
			symbol_key    TEXT NOT NULL,
			symbol        TEXT,
			strategy      TEXT,
			success       INTEGER,
			error         TEXT,
			latest_price  ` + realType + `,
			sentiment     TEXT,
			signal        TEXT,
			buy_count     INTEGER,
			sell_count    INTEGER,
			neutral_count INTEGER,
			payload       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_symbol_results_run ON symbol_results(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLRecorder) RecordGroup(ctx context.Context, res *model.GroupAnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, r.rebind(`INSERT INTO group_runs
		(run_id, group_id, group_name, started_at, execution_time,
		 total, succeeded, failed, buy_count, sell_count, neutral_count, sentiment)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`),
		res.RunID, res.GroupID, res.GroupName, res.StartedAt.UnixMilli(), res.ExecutionTime,
		res.Total, res.Succeeded, res.Failed,
		res.Tally.Buy, res.Tally.Sell, res.Tally.Neutral, string(res.Sentiment),
	)
	if err != nil {
		return fmt.Errorf("insert group run: %w", err)
	}

	insert := r.rebind(`INSERT INTO symbol_results
		(run_id, symbol_key, symbol, strategy, success, error, latest_price,
		 sentiment, signal, buy_count, sell_count, neutral_count, payload)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	for key, s := range res.Results {
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		success := 0
		if s.Success {
			success = 1
		}
		_, err = tx.ExecContext(ctx, insert,
			res.RunID, key, s.Symbol, s.Strategy, success, s.Error, s.Price.Latest,
			string(s.Sentiment), string(s.Signal), s.Tally.Buy, s.Tally.Sell, s.Tally.Neutral,
			string(payload),
		)
		if err != nil {
			return fmt.Errorf("insert symbol result %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// LatestRun loads the most recent run of groupID with all its symbol results.
func (r *SQLRecorder) LatestRun(ctx context.Context, groupID string) (*model.GroupAnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &model.GroupAnalysisResult{GroupID: groupID}
	var started int64
	var sentiment string
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT run_id, group_name, started_at, execution_time,
		total, succeeded, failed, buy_count, sell_count, neutral_count, sentiment
		FROM group_runs WHERE group_id = ? ORDER BY started_at DESC, id DESC LIMIT 1`), groupID).
		Scan(&res.RunID, &res.GroupName, &started, &res.ExecutionTime,
			&res.Total, &res.Succeeded, &res.Failed,
			&res.Tally.Buy, &res.Tally.Sell, &res.Tally.Neutral, &sentiment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query group run: %w", err)
	}
	res.StartedAt = time.UnixMilli(started)
	res.Sentiment = model.Sentiment(sentiment)

	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT symbol_key, payload FROM symbol_results WHERE run_id = ?`), res.RunID)
	if err != nil {
		return nil, fmt.Errorf("query symbol results: %w", err)
	}
	defer rows.Close()

	res.Results = make(map[string]*model.SymbolAnalysisResult)
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("scan symbol result: %w", err)
		}
		s := &model.SymbolAnalysisResult{}
		if err := json.Unmarshal([]byte(payload), s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		res.Results[key] = s
	}
	return res, rows.Err()
}

// CountRuns returns how many runs were recorded for groupID.
func (r *SQLRecorder) CountRuns(ctx context.Context, groupID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM group_runs WHERE group_id = ?`), groupID).Scan(&n)
	return n, err
}

func (r *SQLRecorder) Close() error {
	log.Printf("[INFO] closing %s recorder", r.dialect)
	return r.db.Close()
}
