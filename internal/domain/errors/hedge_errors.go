package errors

import (
	stderrors "errors"
	"fmt"
)

// HedgeError базовый тип для ошибок цикла хеджирования
type HedgeError struct {
	Type    ErrorType
	Token   string
	Message string
	Err     error
}

// ErrorType тип ошибки хеджирования
type ErrorType int

const (
	// ErrorTypeOracleUnavailable оракул не ответил или откатил вызов
	ErrorTypeOracleUnavailable ErrorType = iota
	// ErrorTypeUnsupportedTenor тенор не настроен в кривой волатильности
	ErrorTypeUnsupportedTenor
	// ErrorTypeQuoteUnavailable агрегатор не вернул котировку
	ErrorTypeQuoteUnavailable
	// ErrorTypeTradeRejected сделка отклонена в сети
	ErrorTypeTradeRejected
	// ErrorTypeInsufficientAllowance недостаточный approve фондирующего токена
	ErrorTypeInsufficientAllowance
	// ErrorTypeLedgerUnavailable реестр опционов недоступен
	ErrorTypeLedgerUnavailable
	// ErrorTypeUnsupportedDecimals точность токена больше 18
	ErrorTypeUnsupportedDecimals
	// ErrorTypeTradeDropped отправленная сделка так и не попала в блок
	ErrorTypeTradeDropped
)

// String возвращает имя типа ошибки для логов и БД
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeOracleUnavailable:
		return "OracleUnavailable"
	case ErrorTypeUnsupportedTenor:
		return "UnsupportedTenor"
	case ErrorTypeQuoteUnavailable:
		return "QuoteUnavailable"
	case ErrorTypeTradeRejected:
		return "TradeRejected"
	case ErrorTypeInsufficientAllowance:
		return "InsufficientAllowance"
	case ErrorTypeLedgerUnavailable:
		return "LedgerUnavailable"
	case ErrorTypeUnsupportedDecimals:
		return "UnsupportedDecimals"
	case ErrorTypeTradeDropped:
		return "TradeDropped"
	default:
		return "Unknown"
	}
}

// Error реализует интерфейс error
func (e *HedgeError) Error() string {
	prefix := e.Type.String()
	if e.Token != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, e.Token)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap возвращает исходную ошибку
func (e *HedgeError) Unwrap() error {
	return e.Err
}

// IsExpected проверяет, является ли ошибка ожидаемой (токен пропускается до следующего цикла)
func (e *HedgeError) IsExpected() bool {
	return e.Type == ErrorTypeOracleUnavailable ||
		e.Type == ErrorTypeQuoteUnavailable ||
		e.Type == ErrorTypeLedgerUnavailable
}

// IsRetryable проверяет, будет ли операция повторена следующим циклом автоматически
func (e *HedgeError) IsRetryable() bool {
	return e.IsExpected() || e.Type == ErrorTypeInsufficientAllowance || e.Type == ErrorTypeTradeDropped
}

// RequiresOperator проверяет, нужна ли ручная проверка оператором
func (e *HedgeError) RequiresOperator() bool {
	return e.Type == ErrorTypeTradeRejected ||
		e.Type == ErrorTypeUnsupportedTenor ||
		e.Type == ErrorTypeUnsupportedDecimals
}

// KindOf возвращает имя типа ошибки или "Unknown" для нетипизированных ошибок
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var hedgeErr *HedgeError
	if stderrors.As(err, &hedgeErr) {
		return hedgeErr.Type.String()
	}
	return "Unknown"
}

// Is проверяет тип ошибки в цепочке
func Is(err error, t ErrorType) bool {
	var hedgeErr *HedgeError
	return stderrors.As(err, &hedgeErr) && hedgeErr.Type == t
}

// NewOracleUnavailableError создает ошибку недоступности оракула
func NewOracleUnavailableError(token string, err error) *HedgeError {
	return &HedgeError{
		Type:    ErrorTypeOracleUnavailable,
		Token:   token,
		Message: "оракул цены/волатильности недоступен",
		Err:     err,
	}
}

// NewUnsupportedTenorError создает ошибку ненастроенного тенора
func NewUnsupportedTenorError(token string, tenor uint64) *HedgeError {
	return &HedgeError{
		Type:    ErrorTypeUnsupportedTenor,
		Token:   token,
		Message: fmt.Sprintf("тенор %d с не настроен в кривой волатильности", tenor),
	}
}

// NewQuoteUnavailableError создает ошибку недоступности котировки
func NewQuoteUnavailableError(token string, err error) *HedgeError {
	return &HedgeError{
		Type:    ErrorTypeQuoteUnavailable,
		Token:   token,
		Message: "агрегатор не вернул котировку",
		Err:     err,
	}
}

// NewTradeRejectedError создает ошибку отклоненной сделки
func NewTradeRejectedError(token, instruction string, err error) *HedgeError {
	return &HedgeError{
		Type:    ErrorTypeTradeRejected,
		Token:   token,
		Message: fmt.Sprintf("сделка отклонена: %s", instruction),
		Err:     err,
	}
}

// NewInsufficientAllowanceError создает ошибку недостаточного approve
func NewInsufficientAllowanceError(token, required, available string) *HedgeError {
	return &HedgeError{
		Type:    ErrorTypeInsufficientAllowance,
		Token:   token,
		Message: fmt.Sprintf("недостаточный approve: требуется %s, выдано %s", required, available),
	}
}

// NewLedgerUnavailableError создает ошибку недоступности реестра опционов
func NewLedgerUnavailableError(token string, err error) *HedgeError {
	return &HedgeError{
		Type:    ErrorTypeLedgerUnavailable,
		Token:   token,
		Message: "реестр опционов недоступен",
		Err:     err,
	}
}

// NewUnsupportedDecimalsError создает ошибку неподдерживаемой точности токена
func NewUnsupportedDecimalsError(token string, err error) *HedgeError {
	return &HedgeError{
		Type:    ErrorTypeUnsupportedDecimals,
		Token:   token,
		Message: "неподдерживаемая точность токена",
		Err:     err,
	}
}
