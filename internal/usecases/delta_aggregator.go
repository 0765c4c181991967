package usecases

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/errors"
	"delta-hedge/internal/domain/pricing"
	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/pkg/fixedpoint"
	"delta-hedge/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DeltaAggregatorConfig настройки расчета дельты пула
type DeltaAggregatorConfig struct {
	UseContractFormula bool // сначала calculateAggregateDelta реестра
	IncludeExpiring    bool

	// FallbackOnContractError при ошибке формулы реестра пересчитывает дельту локально,
	// иначе пул пропускается с LedgerUnavailable
	FallbackOnContractError bool
}

// DeltaAggregator считает агрегированную дельту пула в единицах базового актива
type DeltaAggregator struct {
	ledger services.OptionLedger
	config DeltaAggregatorConfig
	now    func() time.Time
}

// NewDeltaAggregator создает агрегатор дельты
func NewDeltaAggregator(ledger services.OptionLedger, config DeltaAggregatorConfig) *DeltaAggregator {
	return &DeltaAggregator{
		ledger: ledger,
		config: config,
		now:    time.Now,
	}
}

// AggregateDelta возвращает целевую дельту пула.
// Если формула реестра недоступна и FallbackOnContractError включен,
// дельта пересчитывается по активным опционам.
func (a *DeltaAggregator) AggregateDelta(ctx context.Context, token string, pool common.Address, oracle *OracleReader, spotWad *big.Int) (decimal.Decimal, error) {
	spot := fixedpoint.FromWad(spotWad)
	if !a.config.UseContractFormula {
		delta, _, err := a.recompute(ctx, token, pool, oracle, spot)
		return delta, err
	}

	raw, err := a.ledger.CalculateAggregateDelta(ctx, pool, spotWad, a.config.IncludeExpiring)
	if err == nil && raw != nil {
		return fixedpoint.FromWad(raw), nil
	}
	if err == nil {
		err = fmt.Errorf("calculateAggregateDelta вернул пустой ответ")
	}
	if !a.config.FallbackOnContractError {
		return decimal.Zero, errors.NewLedgerUnavailableError(token, err)
	}

	delta, shortCalls, rerr := a.recompute(ctx, token, pool, oracle, spot)
	if rerr != nil {
		return decimal.Zero, rerr
	}

	// локальная формула считает выписанный call как -номинал, формула реестра может расходиться
	logger.L().Warn("contract aggregate delta unavailable, using local recomputation",
		zap.String("token", token),
		zap.String("pool", pool.Hex()),
		zap.String("local_delta", delta.StringFixed(6)),
		zap.String("short_call_notional", shortCalls.StringFixed(6)),
		zap.Error(err))
	return delta, nil
}

// recompute суммирует дельты активных опционов пула и номинал выписанных call
func (a *DeltaAggregator) recompute(ctx context.Context, token string, pool common.Address, oracle *OracleReader, spot decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	ids, err := a.ledger.GetActiveOptions(ctx, pool)
	if err != nil {
		return decimal.Zero, decimal.Zero, errors.NewLedgerUnavailableError(token, err)
	}

	total := decimal.Zero
	shortCalls := decimal.Zero
	now := a.now()

	for _, id := range ids {
		option, err := a.ledger.GetOption(ctx, id)
		if err != nil {
			// опцион исключается, остальная экспозиция хеджируется
			logger.L().Warn("option excluded from aggregation",
				zap.String("token", token),
				zap.String("pool", pool.Hex()),
				zap.String("option_id", id.String()),
				zap.Error(err))
			continue
		}
		option.Pool = pool.Hex()

		delta, err := a.OptionDelta(ctx, option, oracle, spot, now)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		total = total.Add(delta)
		if option.IsLive(now) && option.Side != entities.OptionSideLong && option.Type == entities.OptionTypeCall {
			shortCalls = shortCalls.Add(option.Amount)
		}
	}

	logger.LogPlain("📐 [%s] Пул %s: %d активных опционов, дельта %s", token, pool.Hex(), len(ids), total.StringFixed(6))
	return total, shortCalls, nil
}

// OptionDelta вклад одного опциона в дельту пула.
// Купленный опцион: дельта Black-Scholes * номинал. Выписанный call: -номинал.
// Выписанный put и истекшие опционы дают ноль.
func (a *DeltaAggregator) OptionDelta(ctx context.Context, option *entities.OptionPosition, oracle *OracleReader, spot decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !option.IsLive(now) {
		return decimal.Zero, nil
	}

	switch {
	case option.Side == entities.OptionSideLong:
		tenor := oracle.NearestTenor(option.SecondsToExpiry(now))
		vol, err := oracle.AnnualizedVol(ctx, tenor)
		if err != nil {
			return decimal.Zero, err
		}

		delta := pricing.Delta(option.Type, pricing.BlackScholesInput{
			S: spot.InexactFloat64(),
			K: option.Strike.InexactFloat64(),
			T: option.YearsToExpiry(now),
			V: vol,
		})
		return decimal.NewFromFloat(delta).Mul(option.Amount), nil

	case option.Type == entities.OptionTypeCall:
		return option.Amount.Neg(), nil

	default:
		return decimal.Zero, nil
	}
}
