package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/pkg/fixedpoint"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Проверка реализации интерфейсов
var (
	_ services.ContractRegistry = (*Client)(nil)
	_ services.Protocol         = (*protocolContract)(nil)
	_ services.OptionExchange   = (*exchangeContract)(nil)
	_ services.PoolBroker       = (*brokerContract)(nil)
	_ services.OptionLedger     = (*ledgerContract)(nil)
	_ services.VolatilityOracle = (*oracleContract)(nil)
	_ services.LiquidityPool    = (*poolContract)(nil)
	_ services.MarketMaker      = (*marketMakerContract)(nil)
	_ services.Token            = (*tokenContract)(nil)
)

// boundContract общая часть всех оберток
type boundContract struct {
	client   *Client
	address  common.Address
	contract *bind.BoundContract
}

func (c *Client) newBound(address common.Address, parsed abi.ABI) boundContract {
	return boundContract{client: c, address: address, contract: c.contract(address, parsed)}
}

// Address возвращает адрес контракта
func (b *boundContract) Address() common.Address {
	return b.address
}

func (b *boundContract) callAddress(ctx context.Context, method string, params ...interface{}) (common.Address, error) {
	out, err := b.client.call(ctx, b.contract, method, params...)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (b *boundContract) callBigInt(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	out, err := b.client.call(ctx, b.contract, method, params...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (b *boundContract) callBool(ctx context.Context, method string, params ...interface{}) (bool, error) {
	out, err := b.client.call(ctx, b.contract, method, params...)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (b *boundContract) transact(ctx context.Context, method string, params ...interface{}) (common.Hash, error) {
	return b.client.transact(ctx, b.contract, method, params...)
}

// Protocol

type protocolContract struct{ boundContract }

// Protocol возвращает обертку корневого контракта
func (c *Client) Protocol(address common.Address) services.Protocol {
	return &protocolContract{c.newBound(address, moretABI)}
}

func (p *protocolContract) Broker(ctx context.Context) (common.Address, error) {
	return p.callAddress(ctx, "broker")
}

func (p *protocolContract) GetVolatilityChain(ctx context.Context, token common.Address) (common.Address, error) {
	return p.callAddress(ctx, "getVolatilityChain", token)
}

// Exchange

type exchangeContract struct{ boundContract }

// Exchange возвращает обертку биржи опционов
func (c *Client) Exchange(address common.Address) services.OptionExchange {
	return &exchangeContract{c.newBound(address, exchangeABI)}
}

func (e *exchangeContract) Vault(ctx context.Context) (common.Address, error) {
	return e.callAddress(ctx, "vault")
}

func (e *exchangeContract) ExpireOption(ctx context.Context, optionID *big.Int, payTo common.Address) (common.Hash, error) {
	return e.transact(ctx, "expireOption", optionID, payTo)
}

// Broker

type brokerContract struct{ boundContract }

// Broker возвращает обертку реестра пулов
func (c *Client) Broker(address common.Address) services.PoolBroker {
	return &brokerContract{c.newBound(address, brokerABI)}
}

func (b *brokerContract) GetAllPools(ctx context.Context, token common.Address) ([]common.Address, error) {
	out, err := b.client.call(ctx, b.contract, "getAllPools", token)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

func (b *brokerContract) Funding(ctx context.Context) (common.Address, error) {
	return b.callAddress(ctx, "funding")
}

// Ledger

// optionTuple раскладка структуры опциона в ответе getOption
type optionTuple struct {
	PoType        uint8
	Side          uint8
	Status        uint8
	Holder        common.Address
	Id            *big.Int
	CreateTime    *big.Int
	EffectiveTime *big.Int
	Tenor         *big.Int
	Maturity      *big.Int
	ExerciseTime  *big.Int
	Amount        *big.Int
	Spot          *big.Int
	Strike        *big.Int
	Premium       *big.Int
	Collateral    *big.Int
}

type ledgerContract struct{ boundContract }

// Ledger возвращает обертку реестра опционов
func (c *Client) Ledger(address common.Address) services.OptionLedger {
	return &ledgerContract{c.newBound(address, vaultABI)}
}

func (l *ledgerContract) GetActiveOptions(ctx context.Context, pool common.Address) ([]*big.Int, error) {
	out, err := l.client.call(ctx, l.contract, "getActiveOptions", pool)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (l *ledgerContract) GetOption(ctx context.Context, optionID *big.Int) (*entities.OptionPosition, error) {
	out, err := l.client.call(ctx, l.contract, "getOption", optionID)
	if err != nil {
		return nil, err
	}

	raw := *abi.ConvertType(out[0], new(optionTuple)).(*optionTuple)
	if raw.Maturity == nil || raw.Amount == nil || raw.Strike == nil {
		return nil, fmt.Errorf("опцион %s: неполный ответ getOption", optionID)
	}

	return &entities.OptionPosition{
		ID:       optionID,
		Side:     entities.OptionSide(raw.Side),
		Type:     entities.OptionType(raw.PoType),
		Strike:   fixedpoint.FromWad(raw.Strike),
		Amount:   fixedpoint.FromWad(raw.Amount),
		Maturity: time.Unix(raw.Maturity.Int64(), 0).UTC(),
		Status:   entities.OptionStatus(raw.Status),
	}, nil
}

func (l *ledgerContract) CalculateAggregateDelta(ctx context.Context, pool common.Address, spot *big.Int, includeExpiring bool) (*big.Int, error) {
	return l.callBigInt(ctx, "calculateAggregateDelta", pool, spot, includeExpiring)
}

func (l *ledgerContract) AnyOptionExpiring(ctx context.Context, pool common.Address) (bool, error) {
	return l.callBool(ctx, "anyOptionExpiring", pool)
}

func (l *ledgerContract) GetExpiringOptionID(ctx context.Context, pool common.Address) (*big.Int, error) {
	return l.callBigInt(ctx, "getExpiringOptionId", pool)
}

// Oracle

type oracleContract struct{ boundContract }

// Oracle возвращает обертку оракула волатильности
func (c *Client) Oracle(address common.Address) services.VolatilityOracle {
	return &oracleContract{c.newBound(address, volatilityChainABI)}
}

func (o *oracleContract) QueryPrice(ctx context.Context) (*big.Int, error) {
	return o.callBigInt(ctx, "queryPrice")
}

func (o *oracleContract) QueryVol(ctx context.Context, tenorSeconds uint64) (*big.Int, error) {
	return o.callBigInt(ctx, "queryVol", new(big.Int).SetUint64(tenorSeconds))
}

func (o *oracleContract) GetSqrtRatio(ctx context.Context, tenorSeconds uint64) (*big.Int, error) {
	return o.callBigInt(ctx, "getSqrtRatio", new(big.Int).SetUint64(tenorSeconds))
}

// Pool

type poolContract struct{ boundContract }

// Pool возвращает обертку пула ликвидности
func (c *Client) Pool(address common.Address) services.LiquidityPool {
	return &poolContract{c.newBound(address, poolABI)}
}

func (p *poolContract) MarketMaker(ctx context.Context) (common.Address, error) {
	return p.callAddress(ctx, "marketMaker")
}

// MarketMaker

type marketMakerContract struct{ boundContract }

// MarketMaker возвращает обертку маркет-мейкера
func (c *Client) MarketMaker(address common.Address) services.MarketMaker {
	return &marketMakerContract{c.newBound(address, marketMakerABI)}
}

func (m *marketMakerContract) Underlying(ctx context.Context) (common.Address, error) {
	return m.callAddress(ctx, "underlying")
}

func (m *marketMakerContract) Funding(ctx context.Context) (common.Address, error) {
	return m.callAddress(ctx, "funding")
}

func (m *marketMakerContract) Trade(ctx context.Context, tokenIn common.Address, amount *big.Int, spender common.Address, callData []byte, gasLimit *big.Int) (common.Hash, error) {
	return m.transact(ctx, "trade", tokenIn, amount, spender, callData, gasLimit)
}

// Token

type tokenContract struct{ boundContract }

// Token возвращает обертку ERC20
func (c *Client) Token(address common.Address) services.Token {
	return &tokenContract{c.newBound(address, erc20ABI)}
}

func (t *tokenContract) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return t.callBigInt(ctx, "balanceOf", owner)
}

func (t *tokenContract) Decimals(ctx context.Context) (uint8, error) {
	out, err := t.client.call(ctx, t.contract, "decimals")
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

func (t *tokenContract) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.callBigInt(ctx, "allowance", owner, spender)
}

func (t *tokenContract) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	return t.transact(ctx, "approve", spender, amount)
}
