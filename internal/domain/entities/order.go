package entities

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// SwapOrder аргументы вызова trade(tokenIn, amount, spender, calldata, gasLimit)
// у контракта маркет-мейкера
type SwapOrder struct {
	MarketMaker string
	TokenIn     string
	TokenOut    string
	Amount      *big.Int // нативные единицы tokenIn
	Spender     string
	CallData    []byte
	GasLimit    *big.Int
}

// String возвращает описание ордера для логов ручного разбора
func (o *SwapOrder) String() string {
	return fmt.Sprintf("trade(tokenIn=%s, amount=%s, spender=%s, calldata=0x%s, gasLimit=%s) on %s -> %s",
		o.TokenIn, o.Amount, o.Spender, hex.EncodeToString(o.CallData), o.GasLimit, o.MarketMaker, o.TokenOut)
}

// SwapResult результат исполнения ордера
type SwapResult struct {
	Order    *SwapOrder
	TxHash   string
	Status   TradeStatus
	Executed bool // false для dry-run
}
