package services

import (
	"context"
	"math/big"

	"delta-hedge/internal/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// Protocol корневой контракт протокола (Moret)
type Protocol interface {
	// Broker возвращает адрес реестра пулов
	Broker(ctx context.Context) (common.Address, error)

	// GetVolatilityChain возвращает адрес оракула для токена
	GetVolatilityChain(ctx context.Context, token common.Address) (common.Address, error)
}

// OptionExchange контракт биржи опционов
type OptionExchange interface {
	Address() common.Address

	// Vault возвращает адрес реестра опционов
	Vault(ctx context.Context) (common.Address, error)

	// ExpireOption экспирирует опцион, выплата получателю
	ExpireOption(ctx context.Context, optionID *big.Int, payTo common.Address) (common.Hash, error)
}

// PoolBroker реестр пулов ликвидности
type PoolBroker interface {
	// GetAllPools возвращает все пулы базового токена
	GetAllPools(ctx context.Context, token common.Address) ([]common.Address, error)

	// Funding возвращает адрес фондирующего токена
	Funding(ctx context.Context) (common.Address, error)
}

// OptionLedger реестр опционов (Vault)
type OptionLedger interface {
	// GetActiveOptions возвращает идентификаторы активных опционов пула
	GetActiveOptions(ctx context.Context, pool common.Address) ([]*big.Int, error)

	// GetOption возвращает снимок опциона
	GetOption(ctx context.Context, optionID *big.Int) (*entities.OptionPosition, error)

	// CalculateAggregateDelta возвращает агрегированную дельту пула (18 знаков, со знаком)
	CalculateAggregateDelta(ctx context.Context, pool common.Address, spot *big.Int, includeExpiring bool) (*big.Int, error)

	// AnyOptionExpiring проверяет, есть ли у пула опционы к экспирации
	AnyOptionExpiring(ctx context.Context, pool common.Address) (bool, error)

	// GetExpiringOptionID возвращает идентификатор опциона к экспирации
	GetExpiringOptionID(ctx context.Context, pool common.Address) (*big.Int, error)
}

// VolatilityOracle оракул цены и кривой волатильности
type VolatilityOracle interface {
	// QueryPrice возвращает спот (18 знаков)
	QueryPrice(ctx context.Context) (*big.Int, error)

	// QueryVol возвращает волатильность тенора (18 знаков)
	QueryVol(ctx context.Context, tenorSeconds uint64) (*big.Int, error)

	// GetSqrtRatio возвращает sqrt(tenor / год) (18 знаков)
	GetSqrtRatio(ctx context.Context, tenorSeconds uint64) (*big.Int, error)
}

// LiquidityPool пул ликвидности
type LiquidityPool interface {
	// MarketMaker возвращает адрес маркет-мейкера пула
	MarketMaker(ctx context.Context) (common.Address, error)
}

// MarketMaker контракт, хранящий хедж пула
type MarketMaker interface {
	Address() common.Address

	Underlying(ctx context.Context) (common.Address, error)
	Funding(ctx context.Context) (common.Address, error)

	// Trade выполняет approve и своп атомарно в сети
	Trade(ctx context.Context, tokenIn common.Address, amount *big.Int, spender common.Address, callData []byte, gasLimit *big.Int) (common.Hash, error)
}

// Token ERC20 токен
type Token interface {
	Address() common.Address

	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Decimals(ctx context.Context) (uint8, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error)
}

// ContractRegistry единая точка получения типизированных контрактов по адресу
type ContractRegistry interface {
	// Account возвращает адрес подписывающего аккаунта
	Account() common.Address

	Protocol(address common.Address) Protocol
	Exchange(address common.Address) OptionExchange
	Broker(address common.Address) PoolBroker
	Ledger(address common.Address) OptionLedger
	Oracle(address common.Address) VolatilityOracle
	Pool(address common.Address) LiquidityPool
	MarketMaker(address common.Address) MarketMaker
	Token(address common.Address) Token

	// WaitForTrade ждет квитанцию транзакции не дольше таймаута из конфигурации.
	// Возвращает TradeStatusPending, если квитанции еще нет.
	WaitForTrade(ctx context.Context, txHash common.Hash) (entities.TradeStatus, error)

	// TradeStatus возвращает текущий статус транзакции без ожидания
	TradeStatus(ctx context.Context, txHash common.Hash) (entities.TradeStatus, error)

	// TradeReplaced сообщает, что nonce транзакции уже занят другой
	// включенной в блок транзакцией аккаунта, а своей квитанции нет
	TradeReplaced(ctx context.Context, txHash common.Hash) (bool, error)
}
