package controllers

import (
	"context"
	"fmt"

	"delta-hedge/internal/pkg/logger"
	"delta-hedge/internal/usecases"
)

// ExpiryController контроллер режима экспирации
type ExpiryController struct {
	expiryUseCase *usecases.ExpiryKeeperUseCase
}

// NewExpiryController создает контроллер экспирации
func NewExpiryController(expiryUseCase *usecases.ExpiryKeeperUseCase) *ExpiryController {
	return &ExpiryController{expiryUseCase: expiryUseCase}
}

// ExpireOptions экспирирует истекшие опционы. Ошибка, если прерван запуск или упал хотя бы один пул.
func (e *ExpiryController) ExpireOptions(ctx context.Context) error {
	logger.LogWithTime("⌛ Запуск экспирации опционов")

	report, err := e.expiryUseCase.ExpireOptions(ctx)
	if err != nil {
		logger.LogError("❌ Экспирация прервана: %v", err)
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("пулов с ошибками экспирации: %d", report.Failed)
	}
	return nil
}
