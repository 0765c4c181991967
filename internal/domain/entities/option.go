package entities

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// OptionSide сторона опциона с точки зрения пула
type OptionSide uint8

const (
	// OptionSideLong купленный пулом опцион
	OptionSideLong OptionSide = 0
	// OptionSideShort выписанный пулом опцион
	OptionSideShort OptionSide = 1
)

// String возвращает строковое представление стороны
func (s OptionSide) String() string {
	if s == OptionSideLong {
		return "long"
	}
	return "short"
}

// OptionType тип опциона
type OptionType uint8

const (
	OptionTypeCall OptionType = 0
	OptionTypePut  OptionType = 1
)

// String возвращает строковое представление типа
func (t OptionType) String() string {
	if t == OptionTypeCall {
		return "call"
	}
	return "put"
}

// OptionStatus статус опциона в реестре
type OptionStatus uint8

const (
	OptionStatusActive  OptionStatus = 0
	OptionStatusExpired OptionStatus = 1
)

// secondsPerYear год по конвенции 365 дней
const secondsPerYear = 365 * 24 * 3600

// OptionPosition снимок позиции из реестра опционов (только чтение)
type OptionPosition struct {
	ID       *big.Int
	Pool     string
	Side     OptionSide
	Type     OptionType
	Strike   decimal.Decimal // 18-знаковая фиксированная точка, уже переведена
	Amount   decimal.Decimal // номинал в базовом активе
	Maturity time.Time
	Status   OptionStatus
}

// SecondsToExpiry возвращает max(0, maturity - now) в целых секундах
func (o *OptionPosition) SecondsToExpiry(now time.Time) int64 {
	secs := o.Maturity.Unix() - now.Unix()
	if secs < 0 {
		return 0
	}
	return secs
}

// YearsToExpiry переводит срок до экспирации в годы (365 дней)
func (o *OptionPosition) YearsToExpiry(now time.Time) float64 {
	return float64(o.SecondsToExpiry(now)) / secondsPerYear
}

// IsLive проверяет, участвует ли опцион в расчете дельты
func (o *OptionPosition) IsLive(now time.Time) bool {
	return o.Status == OptionStatusActive && o.SecondsToExpiry(now) > 0
}

// TenorToYears переводит тенор в секундах в годы
func TenorToYears(seconds uint64) float64 {
	return float64(seconds) / secondsPerYear
}
