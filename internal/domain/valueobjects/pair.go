package valueobjects

import (
	"fmt"

	"delta-hedge/internal/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// TokenPair представляет пару базовый/фондирующий токен маркет-мейкера
type TokenPair struct {
	Underlying         common.Address
	Funding            common.Address
	UnderlyingDecimals uint8
	FundingDecimals    uint8
}

// NewTokenPair создает новую пару
func NewTokenPair(underlying, funding common.Address, underlyingDecimals, fundingDecimals uint8) *TokenPair {
	return &TokenPair{
		Underlying:         underlying,
		Funding:            funding,
		UnderlyingDecimals: underlyingDecimals,
		FundingDecimals:    fundingDecimals,
	}
}

// String возвращает строковое представление пары
func (tp *TokenPair) String() string {
	return fmt.Sprintf("%s/%s", tp.Underlying.Hex(), tp.Funding.Hex())
}

// Route возвращает входящий и исходящий токен свопа и точность входящего.
// Покупка базового актива тратит фондирующий токен, продажа - базовый.
func (tp *TokenPair) Route(direction entities.TradeDirection) (tokenIn, tokenOut common.Address, decimalsIn uint8, err error) {
	switch direction {
	case entities.TradeDirectionBuyUnderlying:
		return tp.Funding, tp.Underlying, tp.FundingDecimals, nil
	case entities.TradeDirectionSellUnderlying:
		return tp.Underlying, tp.Funding, tp.UnderlyingDecimals, nil
	default:
		return common.Address{}, common.Address{}, 0, fmt.Errorf("нет маршрута для направления %s", direction)
	}
}
