package controllers

import (
	"context"
	"time"

	"delta-hedge/internal/pkg/logger"
	"delta-hedge/internal/usecases"
)

// SchedulerController контроллер для периодического выполнения цикла
type SchedulerController struct {
	hedgeController      *HedgeController
	statusCheckerUseCase *usecases.StatusCheckerUseCase
	interval             time.Duration
}

// NewSchedulerController создает новый scheduler контроллер
func NewSchedulerController(hedgeController *HedgeController, statusCheckerUseCase *usecases.StatusCheckerUseCase, interval time.Duration) *SchedulerController {
	return &SchedulerController{
		hedgeController:      hedgeController,
		statusCheckerUseCase: statusCheckerUseCase,
		interval:             interval,
	}
}

// RunOnce выполняет одну итерацию: квитанции, затем цикл хеджирования
func (s *SchedulerController) RunOnce(ctx context.Context) error {
	logger.LogWithTime("⏰ Проверка позиций...")

	// 1. Сначала проверяем квитанции ранее отправленных сделок
	if err := s.statusCheckerUseCase.CheckPendingTrades(ctx); err != nil {
		logger.LogError("❌ Ошибка проверки статусов сделок: %v", err)
	}

	// 2. Затем хеджируем
	return s.hedgeController.ExecuteHedgeStrategy(ctx)
}

// Start запускает периодическое выполнение до отмены контекста
func (s *SchedulerController) Start(ctx context.Context) {
	logger.LogWithTime("🕒 Запуск периодической проверки каждые %v", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Выполняем сразу при запуске
	_ = s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.LogWithTime("🛑 Получен сигнал остановки")
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		}
	}
}
