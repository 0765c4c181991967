package usecases

import (
	"context"
	"fmt"
	"time"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/repositories"
	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

// StatusCheckerUseCase отвечает за проверку квитанций отправленных хеджирующих сделок
type StatusCheckerUseCase struct {
	hedgeRepo repositories.HedgeRepository
	registry  services.ContractRegistry
	metrics   services.HedgeMetrics

	// pendingTTL сколько сделка может ждать квитанцию до пометки DROPPED; 0 отключает
	pendingTTL time.Duration
	now        func() time.Time
}

// NewStatusCheckerUseCase создает новый use case для проверки статусов
func NewStatusCheckerUseCase(
	hedgeRepo repositories.HedgeRepository,
	registry services.ContractRegistry,
	metrics services.HedgeMetrics,
	pendingTTL time.Duration,
) *StatusCheckerUseCase {
	return &StatusCheckerUseCase{
		hedgeRepo:  hedgeRepo,
		registry:   registry,
		metrics:    metrics,
		pendingTTL: pendingTTL,
		now:        time.Now,
	}
}

// CheckPendingTrades проверяет квитанции всех сделок в статусе PENDING
func (s *StatusCheckerUseCase) CheckPendingTrades(ctx context.Context) error {
	logger.LogWithTime("🔍 Проверка статусов отправленных сделок...")

	// 1. Получаем все сделки, ожидающие квитанции
	pendingTrades, err := s.hedgeRepo.GetPendingTrades(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения отправленных сделок: %w", err)
	}

	if len(pendingTrades) == 0 {
		logger.LogWithTime("✅ Неподтвержденных сделок не найдено")
		return nil
	}

	logger.LogWithTime("📊 Найдено %d неподтвержденных сделок", len(pendingTrades))

	// 2. Проверяем квитанцию каждой сделки
	updatedCount := 0
	for _, record := range pendingTrades {
		updated, err := s.checkSingleTrade(ctx, record)
		if err != nil {
			logger.LogWithTime("❌ Ошибка проверки сделки %s (%s): %v", record.TxHash, record.Token, err)
			continue
		}

		if updated {
			updatedCount++
		}
	}

	logger.LogWithTime("✅ Проверка завершена. Обновлено статусов: %d из %d", updatedCount, len(pendingTrades))
	return nil
}

// checkSingleTrade проверяет квитанцию одной сделки
func (s *StatusCheckerUseCase) checkSingleTrade(ctx context.Context, record *entities.HedgeRecord) (bool, error) {
	status, err := s.registry.TradeStatus(ctx, common.HexToHash(record.TxHash))
	if err != nil {
		return false, fmt.Errorf("ошибка получения квитанции: %w", err)
	}

	now := s.now()

	if status == entities.TradeStatusPending {
		reason := s.staleReason(ctx, record, now)

		// Квитанции еще нет, обновляем только время последней проверки
		if reason == "" {
			if err := s.hedgeRepo.UpdateTradeStatus(ctx, record.TxHash, record.TxStatus, now); err != nil {
				return false, fmt.Errorf("ошибка обновления времени проверки: %w", err)
			}
			return false, nil
		}

		logger.LogWarn("⚠️ Сделка %s (%s) без квитанции: %s, маркет-мейкер снова доступен для хеджирования",
			record.TxHash, record.Token, reason)
		status = entities.TradeStatusDropped
	}

	logger.LogWithTime("🔄 Сделка %s (%s, пул %s): %s → %s",
		record.TxHash, record.Token, record.Pool, record.TxStatus, status)

	if status == entities.TradeStatusReverted {
		logger.LogWithTime("❌ Сделка %s откатилась, требуется ручная проверка", record.TxHash)
	}

	if err := s.hedgeRepo.UpdateTradeStatus(ctx, record.TxHash, status, now); err != nil {
		return false, fmt.Errorf("ошибка обновления статуса в БД: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTradeStatus(status)
	}
	return true, nil
}

// staleReason возвращает причину, по которой сделка без квитанции больше не ждет, или пустую строку
func (s *StatusCheckerUseCase) staleReason(ctx context.Context, record *entities.HedgeRecord, now time.Time) string {
	replaced, err := s.registry.TradeReplaced(ctx, common.HexToHash(record.TxHash))
	if err != nil {
		logger.LogPlain("⚠️ Не удалось сверить nonce сделки %s: %v", record.TxHash, err)
	}
	if replaced {
		return "nonce аккаунта уже занят другой транзакцией"
	}

	if s.pendingTTL > 0 && now.Sub(record.CreatedAt) > s.pendingTTL {
		return fmt.Sprintf("истек pending_ttl %s", s.pendingTTL)
	}
	return ""
}
