package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeDirection направление хеджирующей сделки
type TradeDirection string

const (
	TradeDirectionNone           TradeDirection = "NONE"
	TradeDirectionBuyUnderlying  TradeDirection = "BUY_UNDERLYING"
	TradeDirectionSellUnderlying TradeDirection = "SELL_UNDERLYING"
)

// TradeInstruction решение о ребалансировке на один цикл, не сохраняется
type TradeInstruction struct {
	TargetDelta    decimal.Decimal // целевая дельта в базовом активе
	CurrentHedge   decimal.Decimal // текущий баланс базового актива у маркет-мейкера
	Spot           decimal.Decimal
	TradeHedge     decimal.Decimal // target - current, со знаком
	TradeValue     decimal.Decimal // TradeHedge * Spot в фондирующей валюте, со знаком
	Threshold      decimal.Decimal
	AboveThreshold bool
	Direction      TradeDirection
}

// ShouldTrade проверяет, нужно ли отправлять сделку
func (t *TradeInstruction) ShouldTrade() bool {
	return t.AboveThreshold && t.Direction != TradeDirectionNone
}

// DecideHedge чистая функция решения о хедже.
// При |tradeValue| <= threshold сделка не выполняется.
func DecideHedge(targetDelta, currentHedge, spot, threshold decimal.Decimal) TradeInstruction {
	tradeHedge := targetDelta.Sub(currentHedge)
	tradeValue := tradeHedge.Mul(spot)

	instr := TradeInstruction{
		TargetDelta:  targetDelta,
		CurrentHedge: currentHedge,
		Spot:         spot,
		TradeHedge:   tradeHedge,
		TradeValue:   tradeValue,
		Threshold:    threshold,
		Direction:    TradeDirectionNone,
	}

	if tradeValue.Abs().LessThanOrEqual(threshold) {
		return instr
	}

	instr.AboveThreshold = true
	switch tradeHedge.Sign() {
	case 1:
		instr.Direction = TradeDirectionBuyUnderlying
	case -1:
		instr.Direction = TradeDirectionSellUnderlying
	}
	return instr
}

// HedgeOutcome итог обработки пула в цикле
type HedgeOutcome string

const (
	HedgeOutcomeBelowThreshold HedgeOutcome = "SKIPPED_BELOW_THRESHOLD"
	HedgeOutcomePendingTrade   HedgeOutcome = "SKIPPED_PENDING_TRADE"
	HedgeOutcomeDryRun         HedgeOutcome = "DRY_RUN"
	HedgeOutcomeSubmitted      HedgeOutcome = "SUBMITTED"
	HedgeOutcomeConfirmed      HedgeOutcome = "CONFIRMED"
	HedgeOutcomeFailed         HedgeOutcome = "FAILED"
)

// HedgeRecord запись аудита одного решения о хедже
type HedgeRecord struct {
	ID          int64
	CycleID     uuid.UUID
	Token       string
	Pool        string
	MarketMaker string
	CreatedAt   time.Time

	TargetDelta  decimal.Decimal
	CurrentHedge decimal.Decimal
	Spot         decimal.Decimal
	TradeHedge   decimal.Decimal
	TradeValue   decimal.Decimal
	Direction    TradeDirection

	Outcome   HedgeOutcome
	ErrorKind string // пусто, если ошибки не было
	Error     string

	// Заполняются только для отправленных сделок
	TokenIn         string
	AmountIn        string // нативные единицы токена
	TxHash          string
	TxStatus        TradeStatus
	LastStatusCheck *time.Time
}

// NewHedgeRecord создает запись аудита по решению
func NewHedgeRecord(cycleID uuid.UUID, token, pool, marketMaker string, instr TradeInstruction) *HedgeRecord {
	return &HedgeRecord{
		CycleID:      cycleID,
		Token:        token,
		Pool:         pool,
		MarketMaker:  marketMaker,
		CreatedAt:    time.Now(),
		TargetDelta:  instr.TargetDelta,
		CurrentHedge: instr.CurrentHedge,
		Spot:         instr.Spot,
		TradeHedge:   instr.TradeHedge,
		TradeValue:   instr.TradeValue,
		Direction:    instr.Direction,
	}
}

// IsPending проверяет, ожидает ли сделка подтверждения в сети
func (r *HedgeRecord) IsPending() bool {
	return r.TxHash != "" && r.TxStatus == TradeStatusPending
}
