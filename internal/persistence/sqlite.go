package persistence

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteRepository implements Repository using SQLite. Adapted from the
// teacher's SQLiteRepository: WAL mode and migration-on-open are kept;
// the schema is rebuilt around run records instead of
// positions/orders/equity snapshots, with capital and metric values
// stored in REAL columns.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if necessary) a SQLite database at path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, nil
}

// Migrate runs database migrations.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at DATETIME NOT NULL,
			strategy_name TEXT NOT NULL,
			params_json TEXT NOT NULL,
			initial_capital REAL NOT NULL,
			total_return_pct REAL NOT NULL,
			num_trades INTEGER NOT NULL,
			winrate_pct REAL NOT NULL,
			profit_factor REAL NOT NULL,
			max_drawdown_pct REAL NOT NULL,
			sharpe_ratio REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_runs_strategy ON backtest_runs(strategy_name)`,

		`CREATE TABLE IF NOT EXISTS optimization_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at DATETIME NOT NULL,
			strategy_name TEXT NOT NULL,
			metric TEXT NOT NULL,
			tried INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			filtered_out INTEGER NOT NULL,
			best_params_json TEXT NOT NULL,
			best_metrics_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_optimization_runs_strategy ON optimization_runs(strategy_name)`,
	}

	for _, m := range migrations {
		if _, err := r.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// SaveBacktestRun persists one backtest outcome.
func (r *SQLiteRepository) SaveBacktestRun(ctx context.Context, run BacktestRunRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO backtest_runs (
			created_at, strategy_name, params_json, initial_capital,
			total_return_pct, num_trades, winrate_pct, profit_factor,
			max_drawdown_pct, sharpe_ratio
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt, run.StrategyName, run.ParamsJSON, run.InitialCapital,
		run.TotalReturnPct, run.NumTrades, run.WinratePct, run.ProfitFactor,
		run.MaxDrawdownPct, run.SharpeRatio,
	)
	if err != nil {
		return fmt.Errorf("save backtest run: %w", err)
	}
	return nil
}

// GetBacktestRuns returns the most recent backtest runs, newest first.
func (r *SQLiteRepository) GetBacktestRuns(ctx context.Context, limit int) ([]BacktestRunRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, strategy_name, params_json, initial_capital,
			total_return_pct, num_trades, winrate_pct, profit_factor,
			max_drawdown_pct, sharpe_ratio
		FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query backtest runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []BacktestRunRecord
	for rows.Next() {
		var rec BacktestRunRecord
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.StrategyName, &rec.ParamsJSON,
			&rec.InitialCapital, &rec.TotalReturnPct, &rec.NumTrades, &rec.WinratePct,
			&rec.ProfitFactor, &rec.MaxDrawdownPct, &rec.SharpeRatio); err != nil {
			return nil, fmt.Errorf("scan backtest run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveOptimizationRun persists one optimizer outcome.
func (r *SQLiteRepository) SaveOptimizationRun(ctx context.Context, run OptimizationRunRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO optimization_runs (
			created_at, strategy_name, metric, tried, skipped, filtered_out,
			best_params_json, best_metrics_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt, run.StrategyName, run.Metric, run.Tried, run.Skipped,
		run.FilteredOut, run.BestParamsJSON, run.BestMetricsJSON,
	)
	if err != nil {
		return fmt.Errorf("save optimization run: %w", err)
	}
	return nil
}

// GetOptimizationRuns returns the most recent optimization runs, newest first.
func (r *SQLiteRepository) GetOptimizationRuns(ctx context.Context, limit int) ([]OptimizationRunRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, strategy_name, metric, tried, skipped, filtered_out,
			best_params_json, best_metrics_json
		FROM optimization_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query optimization runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []OptimizationRunRecord
	for rows.Next() {
		var rec OptimizationRunRecord
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.StrategyName, &rec.Metric,
			&rec.Tried, &rec.Skipped, &rec.FilteredOut, &rec.BestParamsJSON,
			&rec.BestMetricsJSON); err != nil {
			return nil, fmt.Errorf("scan optimization run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
