package repositories

import (
	"context"
	"time"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/repositories"
	"delta-hedge/internal/infrastructure/database"
)

var _ repositories.HedgeRepository = (*HedgeRepositoryAdapter)(nil)

// HedgeRepositoryAdapter адаптер для репозитория решений в PostgreSQL
type HedgeRepositoryAdapter struct {
	dbRepo *database.PostgreSQLHedgeRepository
}

// NewHedgeRepositoryAdapter создает новый адаптер репозитория
func NewHedgeRepositoryAdapter(
	dbRepo *database.PostgreSQLHedgeRepository,
) *HedgeRepositoryAdapter {
	return &HedgeRepositoryAdapter{
		dbRepo: dbRepo,
	}
}

// SaveHedgeRecord сохраняет решение о хедже
func (r *HedgeRepositoryAdapter) SaveHedgeRecord(ctx context.Context, record *entities.HedgeRecord) error {
	return r.dbRepo.SaveHedgeRecord(ctx, record)
}

// HasPendingTrade проверяет, есть ли у маркет-мейкера неподтвержденная сделка
func (r *HedgeRepositoryAdapter) HasPendingTrade(ctx context.Context, marketMaker string) (bool, error) {
	return r.dbRepo.HasPendingTrade(ctx, marketMaker)
}

// GetPendingTrades получает все сделки, ожидающие квитанции
func (r *HedgeRepositoryAdapter) GetPendingTrades(ctx context.Context) ([]*entities.HedgeRecord, error) {
	return r.dbRepo.GetPendingTrades(ctx)
}

// UpdateTradeStatus обновляет статус отправленной сделки
func (r *HedgeRepositoryAdapter) UpdateTradeStatus(ctx context.Context, txHash string, status entities.TradeStatus, checkedAt time.Time) error {
	return r.dbRepo.UpdateTradeStatus(ctx, txHash, status, checkedAt)
}

// GetHedgeRecords получает последние решения
func (r *HedgeRepositoryAdapter) GetHedgeRecords(ctx context.Context, limit int) ([]*entities.HedgeRecord, error) {
	return r.dbRepo.GetHedgeRecords(ctx, limit)
}

// GetOutcomeCounts получает количество решений по итогам
func (r *HedgeRepositoryAdapter) GetOutcomeCounts(ctx context.Context) (map[entities.HedgeOutcome]int, error) {
	return r.dbRepo.GetOutcomeCounts(ctx)
}
