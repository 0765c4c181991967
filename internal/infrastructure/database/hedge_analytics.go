package database

import (
	"context"
	"fmt"

	"delta-hedge/internal/domain/entities"
)

// GetHedgeRecords получает последние решения (limit <= 0 - без ограничения)
func (r *PostgreSQLHedgeRepository) GetHedgeRecords(ctx context.Context, limit int) ([]*entities.HedgeRecord, error) {
	if limit <= 0 {
		return r.queryRecords(ctx, selectRecords+" ORDER BY created_at DESC, id DESC")
	}
	return r.queryRecords(ctx, selectRecords+" ORDER BY created_at DESC, id DESC LIMIT $1", limit)
}

// GetOutcomeCounts получает количество решений по итогам
func (r *PostgreSQLHedgeRepository) GetOutcomeCounts(ctx context.Context) (map[entities.HedgeOutcome]int, error) {
	rows, err := r.pool.Query(ctx, "SELECT outcome, COUNT(*) FROM hedge_decisions GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	defer rows.Close()

	counts := make(map[entities.HedgeOutcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		counts[entities.HedgeOutcome(outcome)] = count
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по строкам: %w", err)
	}

	return counts, nil
}
