package entities

// TradeStatus представляет статус отправленной on-chain сделки
type TradeStatus string

const (
	// TradeStatusNone сделка не отправлялась
	TradeStatusNone TradeStatus = ""

	// TradeStatusPending транзакция отправлена, квитанции еще нет
	TradeStatusPending TradeStatus = "PENDING"

	// TradeStatusConfirmed транзакция включена в блок и успешна
	TradeStatusConfirmed TradeStatus = "CONFIRMED"

	// TradeStatusReverted транзакция включена в блок, но откатилась
	TradeStatusReverted TradeStatus = "REVERTED"

	// TradeStatusDropped квитанции нет, а транзакция выпала из мемпула или заменена
	TradeStatusDropped TradeStatus = "DROPPED"

	// TradeStatusUnknown неизвестный статус
	TradeStatusUnknown TradeStatus = "UNKNOWN"
)

// IsCompleted проверяет, завершена ли сделка (успешно или неуспешно)
func (s TradeStatus) IsCompleted() bool {
	return s == TradeStatusConfirmed || s == TradeStatusReverted || s == TradeStatusDropped
}

// IsSuccessful проверяет, успешно ли исполнена сделка
func (s TradeStatus) IsSuccessful() bool {
	return s == TradeStatusConfirmed
}

// String возвращает строковое представление статуса
func (s TradeStatus) String() string {
	return string(s)
}

// TradeStatusFromString создает TradeStatus из строки
func TradeStatusFromString(status string) TradeStatus {
	switch status {
	case "":
		return TradeStatusNone
	case "PENDING", "pending":
		return TradeStatusPending
	case "CONFIRMED", "confirmed", "SUCCESS", "success":
		return TradeStatusConfirmed
	case "REVERTED", "reverted", "FAILED", "failed":
		return TradeStatusReverted
	case "DROPPED", "dropped":
		return TradeStatusDropped
	default:
		return TradeStatusUnknown
	}
}
