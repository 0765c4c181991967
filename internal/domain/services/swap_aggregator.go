package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SwapRequest параметры запроса свопа у агрегатора
type SwapRequest struct {
	FromToken   common.Address
	ToToken     common.Address
	Amount      *big.Int        // нативные единицы FromToken
	FromAddress common.Address  // адрес, исполняющий своп (маркет-мейкер)
	Slippage    decimal.Decimal // максимальное проскальзывание в процентах
}

// SwapQuote котировка и calldata для исполнения свопа
type SwapQuote struct {
	ToAmount *big.Int // ожидаемое количество ToToken (может быть nil)
	To       common.Address
	CallData []byte
}

// SwapAggregator внешний DEX-агрегатор (1inch-совместимый API)
type SwapAggregator interface {
	// Spender возвращает адрес контракта, которому выдается approve
	Spender(ctx context.Context) (common.Address, error)

	// Swap возвращает calldata свопа
	Swap(ctx context.Context, req SwapRequest) (*SwapQuote, error)
}
