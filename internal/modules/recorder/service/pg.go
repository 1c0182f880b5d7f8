package service

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"backtest_bot/internal/models"
	"backtest_bot/pkg/db"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id          uuid PRIMARY KEY,
	symbol          text NOT NULL,
	source          text NOT NULL,
	started_at      timestamptz NOT NULL,
	finished_at     timestamptz NOT NULL,
	steps           integer NOT NULL,
	entries         integer NOT NULL,
	total_trades    integer NOT NULL,
	win_rate        numeric,
	profit_factor   numeric,
	sharpe_ratio    numeric,
	max_drawdown    numeric,
	total_return    numeric,
	initial_balance numeric,
	final_balance   numeric,
	summary         jsonb NOT NULL
);
CREATE TABLE IF NOT EXISTS backtest_trades (
	run_id     uuid NOT NULL REFERENCES backtest_runs(run_id) ON DELETE CASCADE,
	seq        integer NOT NULL,
	side       text NOT NULL,
	qty        numeric,
	entry      numeric,
	exit       numeric,
	entry_time timestamptz,
	exit_time  timestamptz,
	pnl        numeric,
	return_pct numeric,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS backtest_equity (
	run_id uuid NOT NULL REFERENCES backtest_runs(run_id) ON DELETE CASCADE,
	seq    integer NOT NULL,
	ts     timestamptz,
	equity numeric,
	PRIMARY KEY (run_id, seq)
);`

// PgRecorder пишет прогон в Postgres одной транзакцией.
type PgRecorder struct {
	tx  db.TxManager
	log *zap.Logger
}

func NewPgRecorder(ctx context.Context, tx db.TxManager, log *zap.Logger) (*PgRecorder, error) {
	if _, err := tx.Conn().Exec(ctx, pgSchema); err != nil {
		return nil, errors.Wrap(err, "migrate backtest tables")
	}
	return &PgRecorder{tx: tx, log: log}, nil
}

func (r *PgRecorder) Record(ctx context.Context, report *models.Report) error {
	runID, err := uuid.Parse(report.RunID)
	if err != nil {
		return errors.Wrapf(err, "run id %q", report.RunID)
	}
	summary, err := sonic.Marshal(NewSummary(report))
	if err != nil {
		return errors.Wrap(err, "marshal summary")
	}

	err = r.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		m := report.Metrics
		if _, err := tx.Exec(ctxTx, `
			INSERT INTO backtest_runs
				(run_id, symbol, source, started_at, finished_at, steps, entries, total_trades,
				 win_rate, profit_factor, sharpe_ratio, max_drawdown, total_return,
				 initial_balance, final_balance, summary)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
				$9::text::numeric, $10::text::numeric, $11::text::numeric, $12::text::numeric, $13::text::numeric,
				$14::text::numeric, $15::text::numeric, $16::jsonb)`,
			[16]byte(runID), report.Symbol, report.Source, report.StartedAt, report.FinishedAt,
			report.Steps, report.Entries, m.TotalTrades,
			numeric(m.WinRate), numeric(m.ProfitFactor), numeric(m.SharpeRatio),
			numeric(m.MaxDrawdown), numeric(m.TotalReturn),
			numeric(m.InitialBalance), numeric(m.FinalBalance), string(summary),
		); err != nil {
			return errors.Wrap(err, "insert run")
		}

		batch := &pgx.Batch{}
		for i, t := range report.Trades {
			batch.Queue(`
				INSERT INTO backtest_trades
					(run_id, seq, side, qty, entry, exit, entry_time, exit_time, pnl, return_pct)
				VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric, $7, $8, $9::text::numeric, $10::text::numeric)`,
				[16]byte(runID), i, t.Side.String(),
				numeric(t.Qty), numeric(t.Entry), numeric(t.Exit),
				t.EntryTime, t.ExitTime, numeric(t.PnL), numeric(t.ReturnPct),
			)
		}
		for i, p := range report.Equity {
			batch.Queue(`INSERT INTO backtest_equity (run_id, seq, ts, equity) VALUES ($1, $2, $3, $4::text::numeric)`,
				[16]byte(runID), i, timeOrNil(p.Time), numeric(p.Equity))
		}
		if batch.Len() == 0 {
			return nil
		}
		return errors.Wrap(tx.SendBatch(ctxTx, batch).Close(), "insert trades and equity")
	})
	if err != nil {
		return err
	}

	r.log.Info("run recorded", zap.String("run_id", report.RunID), zap.String("store", "postgres"))
	return nil
}

func (r *PgRecorder) Close() error { return nil }

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
