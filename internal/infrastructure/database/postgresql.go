package database

import (
	"context"
	"fmt"
	"time"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/errors"
	"delta-hedge/internal/infrastructure/config"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgreSQLHedgeRepository реализует репозиторий аудита решений для PostgreSQL
type PostgreSQLHedgeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLHedgeRepository создает новый экземпляр репозитория
func NewPostgreSQLHedgeRepository(ctx context.Context, config *config.Config) (*PostgreSQLHedgeRepository, error) {
	return connect(ctx, config.GetDatabaseConnectionString())
}

// connect открывает пул соединений и создает таблицы
func connect(ctx context.Context, connString string) (*PostgreSQLHedgeRepository, error) {
	pool, err := pgxpool.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	repo := &PostgreSQLHedgeRepository{pool: pool}

	// Инициализируем таблицы
	if err := repo.initTables(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return repo, nil
}

// Close закрывает соединение с базой данных
func (r *PostgreSQLHedgeRepository) Close() {
	r.pool.Close()
}

// initTables создает необходимые таблицы
func (r *PostgreSQLHedgeRepository) initTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS hedge_decisions (
			id BIGSERIAL PRIMARY KEY,
			cycle_id UUID NOT NULL,
			token TEXT NOT NULL,
			pool TEXT NOT NULL DEFAULT '',
			market_maker TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

			-- Решение
			target_delta NUMERIC NOT NULL DEFAULT 0,
			current_hedge NUMERIC NOT NULL DEFAULT 0,
			spot NUMERIC NOT NULL DEFAULT 0,
			trade_hedge NUMERIC NOT NULL DEFAULT 0,
			trade_value NUMERIC NOT NULL DEFAULT 0,
			direction TEXT NOT NULL,

			-- Итог
			outcome TEXT NOT NULL,
			error_kind TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',

			-- Отправленная сделка
			token_in TEXT NOT NULL DEFAULT '',
			amount_in TEXT NOT NULL DEFAULT '',
			tx_hash TEXT NOT NULL DEFAULT '',
			tx_status TEXT NOT NULL DEFAULT '',
			last_status_check TIMESTAMP
		)`

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return err
	}

	indexQueries := []string{
		"CREATE INDEX IF NOT EXISTS hedge_decisions_pending_idx ON hedge_decisions (market_maker) WHERE tx_status = 'PENDING'",
		"CREATE INDEX IF NOT EXISTS hedge_decisions_created_idx ON hedge_decisions (created_at DESC)",
	}
	for _, indexQuery := range indexQueries {
		if _, err := r.pool.Exec(ctx, indexQuery); err != nil {
			return err
		}
	}

	return nil
}

// SaveHedgeRecord сохраняет решение о хедже
func (r *PostgreSQLHedgeRepository) SaveHedgeRecord(ctx context.Context, record *entities.HedgeRecord) error {
	query := `
		INSERT INTO hedge_decisions
		(cycle_id, token, pool, market_maker, created_at,
		 target_delta, current_hedge, spot, trade_hedge, trade_value, direction,
		 outcome, error_kind, error,
		 token_in, amount_in, tx_hash, tx_status, last_status_check)
		VALUES ($1, $2, $3, $4, $5,
		        $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11,
		        $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		record.CycleID.String(),
		record.Token,
		record.Pool,
		record.MarketMaker,
		record.CreatedAt,
		record.TargetDelta.String(),
		record.CurrentHedge.String(),
		record.Spot.String(),
		record.TradeHedge.String(),
		record.TradeValue.String(),
		string(record.Direction),
		string(record.Outcome),
		record.ErrorKind,
		record.Error,
		record.TokenIn,
		record.AmountIn,
		record.TxHash,
		record.TxStatus.String(),
		record.LastStatusCheck,
	).Scan(&record.ID)

	if err != nil {
		return fmt.Errorf("ошибка сохранения решения о хедже: %w", err)
	}

	return nil
}

// HasPendingTrade проверяет, есть ли у маркет-мейкера неподтвержденная сделка
func (r *PostgreSQLHedgeRepository) HasPendingTrade(ctx context.Context, marketMaker string) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM hedge_decisions WHERE market_maker = $1 AND tx_status = $2",
		marketMaker, entities.TradeStatusPending.String()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки незавершенных сделок: %w", err)
	}
	return count > 0, nil
}

// GetPendingTrades получает все сделки, ожидающие квитанции
func (r *PostgreSQLHedgeRepository) GetPendingTrades(ctx context.Context) ([]*entities.HedgeRecord, error) {
	return r.queryRecords(ctx, selectRecords+" WHERE tx_status = $1 ORDER BY created_at", entities.TradeStatusPending.String())
}

// UpdateTradeStatus обновляет статус отправленной сделки
func (r *PostgreSQLHedgeRepository) UpdateTradeStatus(ctx context.Context, txHash string, status entities.TradeStatus, checkedAt time.Time) error {
	query := `
		UPDATE hedge_decisions
		SET tx_status = $1, last_status_check = $2,
		    outcome = CASE WHEN $1 = 'CONFIRMED' THEN 'CONFIRMED'
		                   WHEN $1 IN ('REVERTED', 'DROPPED') THEN 'FAILED'
		                   ELSE outcome END,
		    error_kind = CASE WHEN $1 = 'REVERTED' THEN $4
		                      WHEN $1 = 'DROPPED' THEN $5
		                      ELSE error_kind END
		WHERE tx_hash = $3`

	_, err := r.pool.Exec(ctx, query, status.String(), checkedAt, txHash,
		errors.ErrorTypeTradeRejected.String(), errors.ErrorTypeTradeDropped.String())
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса сделки: %w", err)
	}

	return nil
}

// selectRecords общая часть выборки решений
const selectRecords = `
	SELECT id, cycle_id::text, token, pool, market_maker, created_at,
	       target_delta::text, current_hedge::text, spot::text, trade_hedge::text, trade_value::text, direction,
	       outcome, error_kind, error,
	       token_in, amount_in, tx_hash, tx_status, last_status_check
	FROM hedge_decisions`

// queryRecords выполняет выборку и сканирует решения
func (r *PostgreSQLHedgeRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*entities.HedgeRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения решений: %w", err)
	}
	defer rows.Close()

	var records []*entities.HedgeRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования решения: %w", err)
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по результатам: %w", err)
	}

	return records, nil
}

func scanRecord(rows pgx.Rows) (*entities.HedgeRecord, error) {
	record := &entities.HedgeRecord{}
	var (
		cycleID                                               string
		targetDelta, currentHedge, spot, tradeHedge, tradeVal string
		direction, outcome, txStatus                          string
	)

	err := rows.Scan(
		&record.ID,
		&cycleID,
		&record.Token,
		&record.Pool,
		&record.MarketMaker,
		&record.CreatedAt,
		&targetDelta,
		&currentHedge,
		&spot,
		&tradeHedge,
		&tradeVal,
		&direction,
		&outcome,
		&record.ErrorKind,
		&record.Error,
		&record.TokenIn,
		&record.AmountIn,
		&record.TxHash,
		&txStatus,
		&record.LastStatusCheck)
	if err != nil {
		return nil, err
	}

	if record.CycleID, err = uuid.Parse(cycleID); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&record.TargetDelta, targetDelta},
		{&record.CurrentHedge, currentHedge},
		{&record.Spot, spot},
		{&record.TradeHedge, tradeHedge},
		{&record.TradeValue, tradeVal},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, err
		}
	}

	record.Direction = entities.TradeDirection(direction)
	record.Outcome = entities.HedgeOutcome(outcome)
	record.TxStatus = entities.TradeStatusFromString(txStatus)
	return record, nil
}
