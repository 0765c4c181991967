package usecases

import (
	"context"
	"fmt"
	"math/big"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/errors"
	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/domain/valueobjects"
	"delta-hedge/internal/pkg/fixedpoint"
	"delta-hedge/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SwapExecutorConfig настройки исполнения свопов
type SwapExecutorConfig struct {
	AllowTrade bool            // false = dry-run, сделка только логируется
	Slippage   decimal.Decimal // проценты
	GasLimit   *big.Int
}

// HedgeMarket маркет-мейкер пула и его пара токенов
type HedgeMarket struct {
	Token       string
	Pool        common.Address
	MarketMaker services.MarketMaker
	Pair        *valueobjects.TokenPair
}

// SwapExecutor переводит решение о хедже в своп через агрегатор и trade() маркет-мейкера
type SwapExecutor struct {
	registry   services.ContractRegistry
	aggregator services.SwapAggregator
	config     SwapExecutorConfig
}

// NewSwapExecutor создает исполнителя свопов
func NewSwapExecutor(registry services.ContractRegistry, aggregator services.SwapAggregator, config SwapExecutorConfig) *SwapExecutor {
	return &SwapExecutor{
		registry:   registry,
		aggregator: aggregator,
		config:     config,
	}
}

// LoadMarket читает токены маркет-мейкера и их точность
func (e *SwapExecutor) LoadMarket(ctx context.Context, token string, pool, marketMaker common.Address) (*HedgeMarket, error) {
	mm := e.registry.MarketMaker(marketMaker)

	underlying, err := mm.Underlying(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения underlying маркет-мейкера %s: %w", marketMaker.Hex(), err)
	}
	funding, err := mm.Funding(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения funding маркет-мейкера %s: %w", marketMaker.Hex(), err)
	}

	underlyingDecimals, err := e.readDecimals(ctx, token, underlying)
	if err != nil {
		return nil, err
	}
	fundingDecimals, err := e.readDecimals(ctx, token, funding)
	if err != nil {
		return nil, err
	}

	return &HedgeMarket{
		Token:       token,
		Pool:        pool,
		MarketMaker: mm,
		Pair:        valueobjects.NewTokenPair(underlying, funding, underlyingDecimals, fundingDecimals),
	}, nil
}

func (e *SwapExecutor) readDecimals(ctx context.Context, token string, address common.Address) (uint8, error) {
	decimals, err := e.registry.Token(address).Decimals(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения decimals %s: %w", address.Hex(), err)
	}
	if _, err := fixedpoint.ScaleFactor(decimals); err != nil {
		return 0, errors.NewUnsupportedDecimalsError(token, err)
	}
	return decimals, nil
}

// CurrentHedge возвращает баланс базового актива маркет-мейкера
func (e *SwapExecutor) CurrentHedge(ctx context.Context, market *HedgeMarket) (*entities.Balance, error) {
	owner := market.MarketMaker.Address()
	raw, err := e.registry.Token(market.Pair.Underlying).BalanceOf(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения баланса маркет-мейкера: %w", err)
	}

	amount, err := fixedpoint.FromTokenUnits(raw, market.Pair.UnderlyingDecimals)
	if err != nil {
		return nil, errors.NewUnsupportedDecimalsError(market.Token, err)
	}

	return &entities.Balance{
		Token:    market.Pair.Underlying.Hex(),
		Owner:    owner.Hex(),
		Raw:      raw,
		Decimals: market.Pair.UnderlyingDecimals,
		Amount:   amount,
	}, nil
}

// Execute исполняет решение о хедже.
// Покупка тратит |tradeValue| фондирующего токена, продажа - |tradeHedge| базового.
func (e *SwapExecutor) Execute(ctx context.Context, instr entities.TradeInstruction, market *HedgeMarket) (*entities.SwapResult, error) {
	if !instr.ShouldTrade() {
		return nil, fmt.Errorf("решение не требует сделки: %s", instr.Direction)
	}

	tokenIn, tokenOut, decimalsIn, err := market.Pair.Route(instr.Direction)
	if err != nil {
		return nil, err
	}

	amountIn := instr.TradeValue.Abs()
	if instr.Direction == entities.TradeDirectionSellUnderlying {
		amountIn = instr.TradeHedge.Abs()
	}

	amount, err := fixedpoint.ToTokenUnits(amountIn, decimalsIn)
	if err != nil {
		return nil, errors.NewUnsupportedDecimalsError(market.Token, err)
	}
	if amount.Sign() <= 0 {
		return nil, errors.NewTradeRejectedError(market.Token, string(instr.Direction),
			fmt.Errorf("сумма %s округляется до нуля при точности %d", amountIn, decimalsIn))
	}

	spender, err := e.aggregator.Spender(ctx)
	if err != nil {
		return nil, errors.NewQuoteUnavailableError(market.Token, err)
	}

	quote, err := e.aggregator.Swap(ctx, services.SwapRequest{
		FromToken:   tokenIn,
		ToToken:     tokenOut,
		Amount:      amount,
		FromAddress: market.MarketMaker.Address(),
		Slippage:    e.config.Slippage,
	})
	if err != nil {
		return nil, errors.NewQuoteUnavailableError(market.Token, err)
	}

	order := &entities.SwapOrder{
		MarketMaker: market.MarketMaker.Address().Hex(),
		TokenIn:     tokenIn.Hex(),
		TokenOut:    tokenOut.Hex(),
		Amount:      amount,
		Spender:     spender.Hex(),
		CallData:    quote.CallData,
		GasLimit:    e.config.GasLimit,
	}
	result := &entities.SwapResult{Order: order}

	if !e.config.AllowTrade {
		logger.LogWithTime("🧪 [%s] DRY-RUN, сделка не отправлена: %s", market.Token, order)
		return result, nil
	}

	txHash, err := market.MarketMaker.Trade(ctx, tokenIn, amount, spender, quote.CallData, e.config.GasLimit)
	if err != nil {
		return result, errors.NewTradeRejectedError(market.Token, order.String(), err)
	}
	result.TxHash = txHash.Hex()
	result.Executed = true
	result.Status = entities.TradeStatusPending
	logger.LogWithTime("📤 [%s] Сделка отправлена: %s", market.Token, result.TxHash)

	status, err := e.registry.WaitForTrade(ctx, txHash)
	if err != nil {
		// квитанцию добирает проверка статусов в следующем цикле
		logger.LogWarn("⚠️ [%s] Не удалось получить квитанцию %s: %v", market.Token, result.TxHash, err)
		return result, nil
	}
	result.Status = status

	if status == entities.TradeStatusReverted {
		return result, errors.NewTradeRejectedError(market.Token, order.String(),
			fmt.Errorf("транзакция %s откатилась", result.TxHash))
	}
	return result, nil
}
