package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/pkg/fixedpoint"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	testAccount  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testMoret    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	testExchange = common.HexToAddress("0x0000000000000000000000000000000000000002")
	testBroker   = common.HexToAddress("0x0000000000000000000000000000000000000003")
	testVault    = common.HexToAddress("0x0000000000000000000000000000000000000004")
	testFunding  = common.HexToAddress("0x0000000000000000000000000000000000000005")
	testSpender  = common.HexToAddress("0x1111111254fb6c44bAC0beD2854e76F90643097d")
)

// monthTenor 30 дней в секундах
const monthTenor = 30 * 24 * 3600

var errBoom = errors.New("boom")

func wad(v float64) *big.Int {
	return fixedpoint.ToWad(decimal.NewFromFloat(v))
}

func tokenUnits(v float64, decimals uint8) *big.Int {
	amount, err := fixedpoint.ToTokenUnits(decimal.NewFromFloat(v), decimals)
	if err != nil {
		panic(err)
	}
	return amount
}

// fakeOracle кривая с одной годовой волатильностью для всех теноров
type fakeOracle struct {
	mu       sync.Mutex
	price    *big.Int
	priceErr error
	vols     map[uint64]*big.Int
	ratios   map[uint64]*big.Int
	volCalls int
	ratioErr error
}

func newFakeOracle(spot, annualVol float64, tenors ...uint64) *fakeOracle {
	o := &fakeOracle{
		price:  wad(spot),
		vols:   make(map[uint64]*big.Int),
		ratios: make(map[uint64]*big.Int),
	}
	for _, tenor := range tenors {
		ratio := math.Sqrt(entities.TenorToYears(tenor))
		o.ratios[tenor] = wad(ratio)
		o.vols[tenor] = wad(annualVol * ratio)
	}
	return o
}

func (o *fakeOracle) QueryPrice(context.Context) (*big.Int, error) {
	return o.price, o.priceErr
}

func (o *fakeOracle) QueryVol(_ context.Context, tenor uint64) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volCalls++
	if v, ok := o.vols[tenor]; ok {
		return v, nil
	}
	return big.NewInt(0), nil
}

func (o *fakeOracle) GetSqrtRatio(_ context.Context, tenor uint64) (*big.Int, error) {
	if o.ratioErr != nil {
		return nil, o.ratioErr
	}
	if v, ok := o.ratios[tenor]; ok {
		return v, nil
	}
	return big.NewInt(0), nil
}

type tradeCall struct {
	marketMaker common.Address
	tokenIn     common.Address
	amount      *big.Int
	spender     common.Address
	callData    []byte
}

// fakeChain реестр контрактов в памяти
type fakeChain struct {
	mu sync.Mutex

	brokerErr error

	volChains    map[common.Address]common.Address   // токен -> оракул
	oracles      map[common.Address]*fakeOracle      // адрес -> оракул
	pools        map[common.Address][]common.Address // токен -> пулы
	poolsErr     error
	marketMakers map[common.Address]common.Address    // пул -> маркет-мейкер
	mmTokens     map[common.Address][2]common.Address // маркет-мейкер -> underlying, funding
	decimals     map[common.Address]uint8
	balances     map[common.Address]map[common.Address]*big.Int
	allowance    *big.Int
	approvals    []*big.Int

	active     map[common.Address][]*big.Int
	options    map[string]*entities.OptionPosition
	aggDelta   map[common.Address]*big.Int
	aggErr     error
	expiring   map[common.Address][]*big.Int
	expireErr  error
	expiredIDs []string

	trades     []tradeCall
	tradeErr   error
	receipt    entities.TradeStatus
	receiptErr error
	statuses   map[common.Hash]entities.TradeStatus
	replaced   map[common.Hash]bool
	replaceErr error
	txCounter  int64
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		volChains:    make(map[common.Address]common.Address),
		oracles:      make(map[common.Address]*fakeOracle),
		pools:        make(map[common.Address][]common.Address),
		marketMakers: make(map[common.Address]common.Address),
		mmTokens:     make(map[common.Address][2]common.Address),
		decimals:     map[common.Address]uint8{testFunding: 6},
		balances:     make(map[common.Address]map[common.Address]*big.Int),
		allowance:    fixedpoint.MaxUint256(),
		active:       make(map[common.Address][]*big.Int),
		options:      make(map[string]*entities.OptionPosition),
		aggDelta:     make(map[common.Address]*big.Int),
		expiring:     make(map[common.Address][]*big.Int),
		receipt:      entities.TradeStatusConfirmed,
		statuses:     make(map[common.Hash]entities.TradeStatus),
		replaced:     make(map[common.Hash]bool),
	}
}

// addMarket регистрирует токен с одним пулом и маркет-мейкером
func (c *fakeChain) addMarket(token, pool, mm, oracleAddr common.Address, oracle *fakeOracle, underlyingDecimals uint8) {
	c.volChains[token] = oracleAddr
	c.oracles[oracleAddr] = oracle
	c.pools[token] = append(c.pools[token], pool)
	c.marketMakers[pool] = mm
	c.mmTokens[mm] = [2]common.Address{token, testFunding}
	c.decimals[token] = underlyingDecimals
}

func (c *fakeChain) setBalance(token, owner common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balances[token] == nil {
		c.balances[token] = make(map[common.Address]*big.Int)
	}
	c.balances[token][owner] = amount
}

func (c *fakeChain) addOption(pool common.Address, option *entities.OptionPosition) {
	c.active[pool] = append(c.active[pool], option.ID)
	c.options[option.ID.String()] = option
}

// addBrokenOption регистрирует активный опцион, который реестр не может вернуть
func (c *fakeChain) addBrokenOption(pool common.Address, id int64) {
	c.active[pool] = append(c.active[pool], big.NewInt(id))
}

func (c *fakeChain) nextTx() common.Hash {
	c.txCounter++
	return common.BigToHash(big.NewInt(c.txCounter))
}

func (c *fakeChain) tradeCalls() []tradeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tradeCall(nil), c.trades...)
}

func (c *fakeChain) Account() common.Address { return testAccount }

func (c *fakeChain) Protocol(common.Address) services.Protocol { return fakeProtocol{c} }
func (c *fakeChain) Exchange(a common.Address) services.OptionExchange {
	return fakeExchange{c, a}
}
func (c *fakeChain) Broker(common.Address) services.PoolBroker   { return fakeBroker{c} }
func (c *fakeChain) Ledger(common.Address) services.OptionLedger { return fakeLedger{c} }
func (c *fakeChain) Oracle(a common.Address) services.VolatilityOracle {
	if o, ok := c.oracles[a]; ok {
		return o
	}
	return &fakeOracle{priceErr: fmt.Errorf("нет оракула %s", a.Hex())}
}
func (c *fakeChain) Pool(a common.Address) services.LiquidityPool { return fakePool{c, a} }
func (c *fakeChain) MarketMaker(a common.Address) services.MarketMaker {
	return fakeMarketMaker{c, a}
}
func (c *fakeChain) Token(a common.Address) services.Token { return fakeToken{c, a} }

func (c *fakeChain) WaitForTrade(_ context.Context, txHash common.Hash) (entities.TradeStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.receiptErr != nil {
		return entities.TradeStatusPending, c.receiptErr
	}
	c.statuses[txHash] = c.receipt
	return c.receipt, nil
}

func (c *fakeChain) TradeStatus(_ context.Context, txHash common.Hash) (entities.TradeStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status, ok := c.statuses[txHash]; ok {
		return status, nil
	}
	return entities.TradeStatusPending, nil
}

func (c *fakeChain) TradeReplaced(_ context.Context, txHash common.Hash) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.replaceErr != nil {
		return false, c.replaceErr
	}
	return c.replaced[txHash], nil
}

type fakeProtocol struct{ c *fakeChain }

func (p fakeProtocol) Broker(context.Context) (common.Address, error) {
	if p.c.brokerErr != nil {
		return common.Address{}, p.c.brokerErr
	}
	return testBroker, nil
}

func (p fakeProtocol) GetVolatilityChain(_ context.Context, token common.Address) (common.Address, error) {
	return p.c.volChains[token], nil
}

type fakeExchange struct {
	c    *fakeChain
	addr common.Address
}

func (e fakeExchange) Address() common.Address { return e.addr }

func (e fakeExchange) Vault(context.Context) (common.Address, error) { return testVault, nil }

func (e fakeExchange) ExpireOption(_ context.Context, optionID *big.Int, _ common.Address) (common.Hash, error) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if e.c.expireErr != nil {
		return common.Hash{}, e.c.expireErr
	}
	if e.c.receipt == entities.TradeStatusConfirmed {
		for pool, ids := range e.c.expiring {
			for i, id := range ids {
				if id.Cmp(optionID) == 0 {
					e.c.expiring[pool] = append(ids[:i:i], ids[i+1:]...)
					break
				}
			}
		}
	}
	e.c.expiredIDs = append(e.c.expiredIDs, optionID.String())
	return e.c.nextTx(), nil
}

type fakeBroker struct{ c *fakeChain }

func (b fakeBroker) GetAllPools(_ context.Context, token common.Address) ([]common.Address, error) {
	if b.c.poolsErr != nil {
		return nil, b.c.poolsErr
	}
	return b.c.pools[token], nil
}

func (b fakeBroker) Funding(context.Context) (common.Address, error) { return testFunding, nil }

type fakeLedger struct{ c *fakeChain }

func (l fakeLedger) GetActiveOptions(_ context.Context, pool common.Address) ([]*big.Int, error) {
	return l.c.active[pool], nil
}

func (l fakeLedger) GetOption(_ context.Context, optionID *big.Int) (*entities.OptionPosition, error) {
	option, ok := l.c.options[optionID.String()]
	if !ok {
		return nil, fmt.Errorf("опцион %s не найден", optionID)
	}
	copied := *option
	return &copied, nil
}

func (l fakeLedger) CalculateAggregateDelta(_ context.Context, pool common.Address, _ *big.Int, _ bool) (*big.Int, error) {
	if l.c.aggErr != nil {
		return nil, l.c.aggErr
	}
	if v, ok := l.c.aggDelta[pool]; ok {
		return v, nil
	}
	return big.NewInt(0), nil
}

func (l fakeLedger) AnyOptionExpiring(_ context.Context, pool common.Address) (bool, error) {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	return len(l.c.expiring[pool]) > 0, nil
}

func (l fakeLedger) GetExpiringOptionID(_ context.Context, pool common.Address) (*big.Int, error) {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	ids := l.c.expiring[pool]
	if len(ids) == 0 {
		return nil, errors.New("нет истекших опционов")
	}
	return ids[0], nil
}

type fakePool struct {
	c    *fakeChain
	addr common.Address
}

func (p fakePool) MarketMaker(context.Context) (common.Address, error) {
	mm, ok := p.c.marketMakers[p.addr]
	if !ok {
		return common.Address{}, fmt.Errorf("пул %s не найден", p.addr.Hex())
	}
	return mm, nil
}

type fakeMarketMaker struct {
	c    *fakeChain
	addr common.Address
}

func (m fakeMarketMaker) Address() common.Address { return m.addr }

func (m fakeMarketMaker) Underlying(context.Context) (common.Address, error) {
	return m.c.mmTokens[m.addr][0], nil
}

func (m fakeMarketMaker) Funding(context.Context) (common.Address, error) {
	return m.c.mmTokens[m.addr][1], nil
}

func (m fakeMarketMaker) Trade(_ context.Context, tokenIn common.Address, amount *big.Int, spender common.Address, callData []byte, _ *big.Int) (common.Hash, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	if m.c.tradeErr != nil {
		return common.Hash{}, m.c.tradeErr
	}
	m.c.trades = append(m.c.trades, tradeCall{
		marketMaker: m.addr,
		tokenIn:     tokenIn,
		amount:      amount,
		spender:     spender,
		callData:    callData,
	})
	return m.c.nextTx(), nil
}

type fakeToken struct {
	c    *fakeChain
	addr common.Address
}

func (t fakeToken) Address() common.Address { return t.addr }

func (t fakeToken) BalanceOf(_ context.Context, owner common.Address) (*big.Int, error) {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if b, ok := t.c.balances[t.addr][owner]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (t fakeToken) Decimals(context.Context) (uint8, error) {
	d, ok := t.c.decimals[t.addr]
	if !ok {
		return 0, fmt.Errorf("неизвестный токен %s", t.addr.Hex())
	}
	return d, nil
}

func (t fakeToken) Allowance(context.Context, common.Address, common.Address) (*big.Int, error) {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.c.allowance, nil
}

func (t fakeToken) Approve(_ context.Context, _ common.Address, amount *big.Int) (common.Hash, error) {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.c.approvals = append(t.c.approvals, amount)
	t.c.allowance = amount
	return t.c.nextTx(), nil
}

// fakeAggregator агрегатор, возвращающий фиксированную calldata
type fakeAggregator struct {
	mu         sync.Mutex
	spenderErr error
	swapErr    error
	requests   []services.SwapRequest
}

func (a *fakeAggregator) Spender(context.Context) (common.Address, error) {
	if a.spenderErr != nil {
		return common.Address{}, a.spenderErr
	}
	return testSpender, nil
}

func (a *fakeAggregator) Swap(_ context.Context, req services.SwapRequest) (*services.SwapQuote, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.swapErr != nil {
		return nil, a.swapErr
	}
	return &services.SwapQuote{CallData: []byte{0xde, 0xad, 0xbe, 0xef}}, nil
}

func (a *fakeAggregator) calls() []services.SwapRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]services.SwapRequest(nil), a.requests...)
}
