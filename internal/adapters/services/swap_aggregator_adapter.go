package services

import (
	"context"

	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/infrastructure/clients"
	"delta-hedge/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

var _ services.SwapAggregator = (*SwapAggregatorAdapter)(nil)

// SwapAggregatorAdapter адаптер для DEX-агрегатора
type SwapAggregatorAdapter struct {
	oneInchClient *clients.OneInchClient
}

// NewSwapAggregatorAdapter создает новый адаптер агрегатора
func NewSwapAggregatorAdapter(oneInchClient *clients.OneInchClient) *SwapAggregatorAdapter {
	return &SwapAggregatorAdapter{
		oneInchClient: oneInchClient,
	}
}

// Spender возвращает адрес роутера агрегатора
func (a *SwapAggregatorAdapter) Spender(ctx context.Context) (common.Address, error) {
	return a.oneInchClient.Spender(ctx)
}

// Swap запрашивает calldata свопа
func (a *SwapAggregatorAdapter) Swap(ctx context.Context, req services.SwapRequest) (*services.SwapQuote, error) {
	logger.LogPlain("🔁 Запрос свопа: %s %s -> %s (slippage %s%%)",
		req.Amount, req.FromToken.Hex(), req.ToToken.Hex(), req.Slippage)

	quote, err := a.oneInchClient.Swap(ctx, req)
	if err != nil {
		return nil, err
	}

	if quote.ToAmount != nil {
		logger.LogPlain("🔁 Котировка: ожидается %s %s", quote.ToAmount, req.ToToken.Hex())
	}
	return quote, nil
}
