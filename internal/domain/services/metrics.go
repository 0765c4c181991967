package services

import (
	"time"

	"delta-hedge/internal/domain/entities"
)

// HedgeMetrics приемник метрик цикла хеджирования
type HedgeMetrics interface {
	// RecordDecision учитывает одно решение по пулу
	RecordDecision(record *entities.HedgeRecord)

	// RecordCycle учитывает завершенный цикл
	RecordCycle(duration time.Duration, tokens, failedTokens int)

	// RecordTradeStatus учитывает подтвержденный статус отправленной сделки
	RecordTradeStatus(status entities.TradeStatus)
}
