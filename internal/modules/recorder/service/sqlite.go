package service

import (
	"context"
	"database/sql"
	"math"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"backtest_bot/internal/models"
)

// SQLiteRecorder: локальная история прогонов в одном файле.
type SQLiteRecorder struct {
	db  *sql.DB
	log *zap.Logger
	mu  sync.Mutex
}

// NewSQLiteRecorder открывает (или создаёт) базу и прогоняет миграции.
func NewSQLiteRecorder(path string, log *zap.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	log.Info("sqlite recorder opened", zap.String("path", path))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id          TEXT PRIMARY KEY,
			symbol          TEXT NOT NULL,
			source          TEXT,
			started_at      INTEGER NOT NULL,
			finished_at     INTEGER NOT NULL,
			steps           INTEGER,
			entries         INTEGER,
			total_trades    INTEGER,
			win_rate        REAL,
			profit_factor   REAL,
			sharpe_ratio    REAL,
			max_drawdown    REAL,
			total_return    REAL,
			initial_balance REAL,
			final_balance   REAL,
			summary         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			seq        INTEGER NOT NULL,
			side       TEXT,
			qty        REAL,
			entry      REAL,
			exit       REAL,
			entry_time INTEGER,
			exit_time  INTEGER,
			pnl        REAL,
			return_pct REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id)`,

		`CREATE TABLE IF NOT EXISTS equity (
			run_id TEXT NOT NULL,
			seq    INTEGER NOT NULL,
			ts     INTEGER,
			equity REAL,
			PRIMARY KEY (run_id, seq)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

func (r *SQLiteRecorder) Record(ctx context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary, err := sonic.MarshalString(NewSummary(report))
	if err != nil {
		return errors.Wrap(err, "marshal summary")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	m := report.Metrics
	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, symbol, source, started_at, finished_at, steps, entries,
		 total_trades, win_rate, profit_factor, sharpe_ratio, max_drawdown, total_return,
		 initial_balance, final_balance, summary)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		report.RunID, report.Symbol, report.Source,
		report.StartedAt.Unix(), report.FinishedAt.Unix(), report.Steps, report.Entries,
		m.TotalTrades, round(m.WinRate, 4), nullFloat(m.ProfitFactor), round(m.SharpeRatio, 6),
		round(m.MaxDrawdown, 4), round(m.TotalReturn, 4),
		round(m.InitialBalance, pricePlaces), round(m.FinalBalance, pricePlaces), summary,
	)
	if err != nil {
		return errors.Wrap(err, "insert run")
	}

	tradeStmt, err := tx.PrepareContext(ctx, `INSERT INTO trades
		(run_id, seq, side, qty, entry, exit, entry_time, exit_time, pnl, return_pct)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return errors.Wrap(err, "prepare trades")
	}
	defer tradeStmt.Close()
	for i, t := range report.Trades {
		if _, err := tradeStmt.ExecContext(ctx, report.RunID, i, t.Side.String(),
			round(t.Qty, pricePlaces), round(t.Entry, pricePlaces), round(t.Exit, pricePlaces),
			t.EntryTime.Unix(), t.ExitTime.Unix(),
			round(t.PnL, pricePlaces), round(t.ReturnPct, pricePlaces),
		); err != nil {
			return errors.Wrapf(err, "insert trade %d", i)
		}
	}

	eqStmt, err := tx.PrepareContext(ctx, `INSERT INTO equity (run_id, seq, ts, equity) VALUES (?,?,?,?)`)
	if err != nil {
		return errors.Wrap(err, "prepare equity")
	}
	defer eqStmt.Close()
	for i, p := range report.Equity {
		if _, err := eqStmt.ExecContext(ctx, report.RunID, i, unixOrNull(p.Time), round(p.Equity, pricePlaces)); err != nil {
			return errors.Wrapf(err, "insert equity %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	r.log.Info("run recorded", zap.String("run_id", report.RunID), zap.String("store", "sqlite"))
	return nil
}

// RunCount: сколько прогонов в базе.
func (r *SQLiteRecorder) RunCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: round(v, 6), Valid: true}
}

func unixOrNull(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
