package controllers

import (
	"context"
	"errors"

	"delta-hedge/internal/domain/entities"
	domainErrors "delta-hedge/internal/domain/errors"
	"delta-hedge/internal/pkg/logger"
	"delta-hedge/internal/usecases"
)

// HedgeController контроллер для выполнения цикла хеджирования
type HedgeController struct {
	hedgeUseCase *usecases.HedgeStrategyUseCase
}

// NewHedgeController создает новый контроллер
func NewHedgeController(hedgeUseCase *usecases.HedgeStrategyUseCase) *HedgeController {
	return &HedgeController{
		hedgeUseCase: hedgeUseCase,
	}
}

// ExecuteHedgeStrategy выполняет цикл хеджирования с выводом результатов.
// Возвращает ошибку только если цикл прерван целиком.
func (h *HedgeController) ExecuteHedgeStrategy(ctx context.Context) error {
	logger.LogWithTime("🚀 Запуск цикла дельта-хеджирования")

	report, err := h.hedgeUseCase.ExecuteHedgeStrategy(ctx)
	if err != nil {
		logger.LogError("❌ Цикл прерван: %v", err)
		return err
	}

	summary := make(map[entities.HedgeOutcome]int)
	for _, record := range report.Records() {
		summary[record.Outcome]++
	}

	for _, tr := range report.Tokens {
		if tr == nil || tr.Err == nil {
			continue
		}
		var hedgeErr *domainErrors.HedgeError
		if errors.As(tr.Err, &hedgeErr) && hedgeErr.IsExpected() {
			logger.LogWarn("⚠️ [%s] %v. Повтор в следующем цикле", tr.Token, tr.Err)
			continue
		}
		logger.LogError("❌ [%s] %v", tr.Token, tr.Err)
	}

	logger.LogWithTime("📊 Итоги цикла %s: сделок %d, dry-run %d, ниже порога %d, пропущено %d, ошибок %d",
		report.CycleID,
		summary[entities.HedgeOutcomeSubmitted]+summary[entities.HedgeOutcomeConfirmed],
		summary[entities.HedgeOutcomeDryRun],
		summary[entities.HedgeOutcomeBelowThreshold],
		summary[entities.HedgeOutcomePendingTrade],
		summary[entities.HedgeOutcomeFailed])

	return nil
}
