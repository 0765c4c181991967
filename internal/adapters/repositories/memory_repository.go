package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/errors"
	"delta-hedge/internal/domain/repositories"
)

var _ repositories.HedgeRepository = (*MemoryHedgeRepository)(nil)

// MemoryHedgeRepository хранит решения в памяти процесса (база данных отключена)
type MemoryHedgeRepository struct {
	mu      sync.RWMutex
	nextID  int64
	records []*entities.HedgeRecord
}

// NewMemoryHedgeRepository создает репозиторий в памяти
func NewMemoryHedgeRepository() *MemoryHedgeRepository {
	return &MemoryHedgeRepository{}
}

// SaveHedgeRecord сохраняет копию решения
func (r *MemoryHedgeRepository) SaveHedgeRecord(_ context.Context, record *entities.HedgeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	record.ID = r.nextID
	stored := *record
	r.records = append(r.records, &stored)
	return nil
}

// HasPendingTrade проверяет, есть ли у маркет-мейкера неподтвержденная сделка
func (r *MemoryHedgeRepository) HasPendingTrade(_ context.Context, marketMaker string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.IsPending() && strings.EqualFold(rec.MarketMaker, marketMaker) {
			return true, nil
		}
	}
	return false, nil
}

// GetPendingTrades получает все сделки, ожидающие квитанции
func (r *MemoryHedgeRepository) GetPendingTrades(_ context.Context) ([]*entities.HedgeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*entities.HedgeRecord
	for _, rec := range r.records {
		if rec.IsPending() {
			c := *rec
			pending = append(pending, &c)
		}
	}
	return pending, nil
}

// UpdateTradeStatus обновляет статус отправленной сделки
func (r *MemoryHedgeRepository) UpdateTradeStatus(_ context.Context, txHash string, status entities.TradeStatus, checkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.TxHash != txHash {
			continue
		}
		checked := checkedAt
		rec.TxStatus = status
		rec.LastStatusCheck = &checked
		switch status {
		case entities.TradeStatusConfirmed:
			rec.Outcome = entities.HedgeOutcomeConfirmed
		case entities.TradeStatusReverted:
			rec.Outcome = entities.HedgeOutcomeFailed
			rec.ErrorKind = errors.ErrorTypeTradeRejected.String()
		case entities.TradeStatusDropped:
			rec.Outcome = entities.HedgeOutcomeFailed
			rec.ErrorKind = errors.ErrorTypeTradeDropped.String()
		}
	}
	return nil
}

// GetHedgeRecords получает последние решения, новые первыми
func (r *MemoryHedgeRepository) GetHedgeRecords(_ context.Context, limit int) ([]*entities.HedgeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*entities.HedgeRecord, 0, len(r.records))
	for _, rec := range r.records {
		c := *rec
		records = append(records, &c)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].ID > records[j].ID })

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// GetOutcomeCounts получает количество решений по итогам
func (r *MemoryHedgeRepository) GetOutcomeCounts(_ context.Context) (map[entities.HedgeOutcome]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[entities.HedgeOutcome]int)
	for _, rec := range r.records {
		counts[rec.Outcome]++
	}
	return counts, nil
}
