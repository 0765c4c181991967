package repositories

import (
	"context"
	"time"

	"delta-hedge/internal/domain/entities"
)

// HedgeRepository отвечает только за аудит решений и статусы отправленных сделок
type HedgeRepository interface {
	// SaveHedgeRecord сохраняет решение о хедже
	SaveHedgeRecord(ctx context.Context, record *entities.HedgeRecord) error

	// HasPendingTrade проверяет, есть ли у маркет-мейкера неподтвержденная сделка
	HasPendingTrade(ctx context.Context, marketMaker string) (bool, error)

	// GetPendingTrades получает все сделки, ожидающие квитанции
	GetPendingTrades(ctx context.Context) ([]*entities.HedgeRecord, error)

	// UpdateTradeStatus обновляет статус отправленной сделки
	UpdateTradeStatus(ctx context.Context, txHash string, status entities.TradeStatus, checkedAt time.Time) error

	// GetHedgeRecords получает последние решения (limit <= 0 - без ограничения)
	GetHedgeRecords(ctx context.Context, limit int) ([]*entities.HedgeRecord, error)

	// GetOutcomeCounts получает количество решений по итогам
	GetOutcomeCounts(ctx context.Context) (map[entities.HedgeOutcome]int, error)
}
