package entities

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Balance представляет баланс токена на адресе
type Balance struct {
	Token    string          // адрес токена
	Owner    string          // адрес владельца
	Raw      *big.Int        // нативные единицы
	Decimals uint8           // точность токена
	Amount   decimal.Decimal // в целых единицах токена
}

// HasSufficientBalance проверяет, достаточно ли средств
func (b *Balance) HasSufficientBalance(required decimal.Decimal) bool {
	return b.Amount.GreaterThanOrEqual(required)
}

// String возвращает строковое представление баланса
func (b *Balance) String() string {
	return fmt.Sprintf("%s @ %s: %s (decimals %d)", b.Token, b.Owner, b.Amount.String(), b.Decimals)
}
