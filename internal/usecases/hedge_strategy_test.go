package usecases

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"delta-hedge/internal/adapters/repositories"
	"delta-hedge/internal/domain/entities"
	domainErrors "delta-hedge/internal/domain/errors"
	"delta-hedge/internal/pkg/fixedpoint"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeMetrics struct {
	mu        sync.Mutex
	decisions []*entities.HedgeRecord
	cycles    int
	failed    int
	statuses  []entities.TradeStatus
}

func (m *fakeMetrics) RecordDecision(record *entities.HedgeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, record)
}

func (m *fakeMetrics) RecordCycle(_ time.Duration, _, failedTokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
	m.failed = failedTokens
}

func (m *fakeMetrics) RecordTradeStatus(status entities.TradeStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

type strategyFixture struct {
	chain      *fakeChain
	aggregator *fakeAggregator
	repo       *repositories.MemoryHedgeRepository
	metrics    *fakeMetrics
	config     *HedgeStrategyConfig
	allowTrade bool
}

func newStrategyFixture() *strategyFixture {
	chain := newFakeChain()
	chain.addMarket(testUnderlying, testPool, testMarketMaker, testOracleAddr, newFakeOracle(2000, 0.8, 86400, monthTenor), 18)

	return &strategyFixture{
		chain:      chain,
		aggregator: &fakeAggregator{},
		repo:       repositories.NewMemoryHedgeRepository(),
		metrics:    &fakeMetrics{},
		allowTrade: true,
		config: &HedgeStrategyConfig{
			Tokens:                  []string{"ETH"},
			TokenAddresses:          map[string]common.Address{"ETH": testUnderlying},
			MoretAddress:            testMoret,
			ExchangeAddress:         testExchange,
			HedgeThreshold:          decimal.NewFromInt(100),
			MaxAmount:               fixedpoint.MaxUint256(),
			ApproveCheckAmount:      big.NewInt(1000000),
			VolTenors:               []uint64{86400, monthTenor},
			FallbackOnContractError: true,
			MaxParallel:             4,
			TokenTimeout:            10 * time.Second,
		},
	}
}

func (f *strategyFixture) useCase() *HedgeStrategyUseCase {
	executor := NewSwapExecutor(f.chain, f.aggregator, SwapExecutorConfig{
		AllowTrade: f.allowTrade,
		Slippage:   decimal.NewFromInt(1),
		GasLimit:   big.NewInt(500000),
	})
	return NewHedgeStrategyUseCase(f.chain, executor, f.repo, f.metrics, f.config)
}

func (f *strategyFixture) run(t *testing.T) *CycleReport {
	t.Helper()
	report, err := f.useCase().ExecuteHedgeStrategy(context.Background())
	if err != nil {
		t.Fatalf("unexpected cycle error: %v", err)
	}
	return report
}

func tokenReport(t *testing.T, report *CycleReport, token string) *TokenReport {
	t.Helper()
	for _, tr := range report.Tokens {
		if tr != nil && tr.Token == token {
			return tr
		}
	}
	t.Fatalf("no report for %s", token)
	return nil
}

func TestHedgeStrategy_BelowThresholdNoTrade(t *testing.T) {
	f := newStrategyFixture()
	maturity := time.Now().Add(30 * 24 * time.Hour)
	f.chain.addOption(testPool, testOption(1, entities.OptionSideLong, entities.OptionTypeCall, 2000, 1, maturity))
	f.chain.addOption(testPool, testOption(2, entities.OptionSideShort, entities.OptionTypeCall, 2400, 0.5, maturity))

	report := f.run(t)

	records := report.Records()
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Outcome != entities.HedgeOutcomeBelowThreshold {
		t.Errorf("got outcome %s (%s), want below threshold", rec.Outcome, rec.Error)
	}
	// 0.5457 - 0.5 = 0.0457 базового актива, около 91 в фондирующей валюте
	if v := rec.TradeValue.InexactFloat64(); v < 85 || v > 95 {
		t.Errorf("got trade value %f, want about 91", v)
	}
	if len(f.aggregator.calls()) != 0 || len(f.chain.tradeCalls()) != 0 {
		t.Error("below threshold must not reach the aggregator")
	}

	saved, _ := f.repo.GetHedgeRecords(context.Background(), 0)
	if len(saved) != 1 || saved[0].CycleID != report.CycleID {
		t.Errorf("decision must be persisted with the cycle id, got %d records", len(saved))
	}
	if len(f.metrics.decisions) != 1 || f.metrics.cycles != 1 {
		t.Errorf("metrics not recorded: %d decisions, %d cycles", len(f.metrics.decisions), f.metrics.cycles)
	}
}

func TestHedgeStrategy_BuysUnderlying(t *testing.T) {
	f := newStrategyFixture()
	f.config.UseContractFormula = true
	f.chain.aggDelta[testPool] = wad(1)

	report := f.run(t)

	rec := report.Records()[0]
	if rec.Direction != entities.TradeDirectionBuyUnderlying || !rec.TradeValue.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("got %s %s, want buy for 2000", rec.Direction, rec.TradeValue)
	}
	if rec.Outcome != entities.HedgeOutcomeConfirmed || rec.TxHash == "" {
		t.Errorf("got outcome %s tx %q, want confirmed trade", rec.Outcome, rec.TxHash)
	}

	requests := f.aggregator.calls()
	if len(requests) != 1 || requests[0].Amount.Cmp(big.NewInt(2000000000)) != 0 {
		t.Fatalf("got swap requests %+v, want one for 2000000000", requests)
	}
	if rec.AmountIn != "2000000000" || rec.TokenIn != testFunding.Hex() {
		t.Errorf("got audit input %s %s", rec.AmountIn, rec.TokenIn)
	}
}

func TestHedgeStrategy_DryRun(t *testing.T) {
	f := newStrategyFixture()
	f.allowTrade = false
	f.config.UseContractFormula = true
	f.chain.aggDelta[testPool] = wad(-1)
	f.chain.setBalance(testUnderlying, testMarketMaker, tokenUnits(1, 18))

	rec := f.run(t).Records()[0]
	if rec.Outcome != entities.HedgeOutcomeDryRun || rec.Direction != entities.TradeDirectionSellUnderlying {
		t.Errorf("got %s %s, want dry-run sell", rec.Outcome, rec.Direction)
	}
	if len(f.chain.tradeCalls()) != 0 {
		t.Error("dry run must not submit")
	}
}

func TestHedgeStrategy_TokensAreIsolated(t *testing.T) {
	var (
		btc     = common.HexToAddress("0x00000000000000000000000000000000000000e2")
		btcPool = common.HexToAddress("0x00000000000000000000000000000000000000b2")
		btcMM   = common.HexToAddress("0x00000000000000000000000000000000000000c2")
		btcOrc  = common.HexToAddress("0x00000000000000000000000000000000000000d2")
		sol     = common.HexToAddress("0x00000000000000000000000000000000000000e3")
		solPool = common.HexToAddress("0x00000000000000000000000000000000000000b3")
		solMM   = common.HexToAddress("0x00000000000000000000000000000000000000c3")
		solOrc  = common.HexToAddress("0x00000000000000000000000000000000000000d3")
	)

	f := newStrategyFixture()
	f.config.UseContractFormula = true
	f.config.Tokens = []string{"ETH", "BTC", "SOL"}
	f.config.TokenAddresses["BTC"] = btc
	f.config.TokenAddresses["SOL"] = sol

	brokenOracle := newFakeOracle(30000, 0.6, monthTenor)
	brokenOracle.priceErr = errBoom
	f.chain.addMarket(btc, btcPool, btcMM, btcOrc, brokenOracle, 8)
	f.chain.addMarket(sol, solPool, solMM, solOrc, newFakeOracle(150, 1.2, monthTenor), 9)

	// ETH требует сделки, но агрегатор недоступен
	f.chain.aggDelta[testPool] = wad(1)
	f.aggregator.swapErr = errBoom

	report := f.run(t)

	eth := tokenReport(t, report, "ETH")
	if eth.Err != nil || len(eth.Records) != 1 {
		t.Fatalf("ETH: got err %v, %d records", eth.Err, len(eth.Records))
	}
	if eth.Records[0].Outcome != entities.HedgeOutcomeFailed || eth.Records[0].ErrorKind != domainErrors.ErrorTypeQuoteUnavailable.String() {
		t.Errorf("ETH: got %s/%s, want FAILED/QuoteUnavailable", eth.Records[0].Outcome, eth.Records[0].ErrorKind)
	}

	btcReport := tokenReport(t, report, "BTC")
	if !domainErrors.Is(btcReport.Err, domainErrors.ErrorTypeOracleUnavailable) {
		t.Errorf("BTC: got %v, want OracleUnavailable", btcReport.Err)
	}

	solReport := tokenReport(t, report, "SOL")
	if solReport.Err != nil || solReport.Records[0].Outcome != entities.HedgeOutcomeBelowThreshold {
		t.Errorf("SOL must be processed normally, got %+v", solReport)
	}

	if got := report.FailedTokens(); got != 2 {
		t.Errorf("got %d failed tokens, want 2", got)
	}
	if f.metrics.failed != 2 {
		t.Errorf("metrics got %d failed tokens, want 2", f.metrics.failed)
	}
}

func TestHedgeStrategy_SkipsPendingTrade(t *testing.T) {
	f := newStrategyFixture()
	f.config.UseContractFormula = true
	f.chain.aggDelta[testPool] = wad(5)

	pending := entities.NewHedgeRecord(uuid.New(), "ETH", testPool.Hex(), testMarketMaker.Hex(), entities.TradeInstruction{})
	pending.Outcome = entities.HedgeOutcomeSubmitted
	pending.TxHash = common.BigToHash(big.NewInt(999)).Hex()
	pending.TxStatus = entities.TradeStatusPending
	if err := f.repo.SaveHedgeRecord(context.Background(), pending); err != nil {
		t.Fatal(err)
	}

	rec := f.run(t).Records()[0]
	if rec.Outcome != entities.HedgeOutcomePendingTrade {
		t.Errorf("got %s, want pending trade skip", rec.Outcome)
	}
	if len(f.aggregator.calls()) != 0 {
		t.Error("pending market maker must not be traded")
	}
}

func TestHedgeStrategy_FatalRootResolution(t *testing.T) {
	f := newStrategyFixture()
	f.chain.brokerErr = errBoom

	uc := f.useCase()
	report, err := uc.ExecuteHedgeStrategy(context.Background())
	if err == nil || report != nil {
		t.Fatalf("got report %v err %v, want fatal error", report, err)
	}
	if uc.LastReport() != nil {
		t.Error("aborted cycle must not replace the last report")
	}
}

func TestHedgeStrategy_TopsUpAllowance(t *testing.T) {
	f := newStrategyFixture()
	f.chain.allowance = big.NewInt(10)

	uc := f.useCase()
	if _, err := uc.ExecuteHedgeStrategy(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.chain.approvals) != 1 || f.chain.approvals[0].Cmp(fixedpoint.MaxUint256()) != 0 {
		t.Errorf("got approvals %v, want one max approve", f.chain.approvals)
	}

	// второй цикл: approve уже достаточен
	if _, err := uc.ExecuteHedgeStrategy(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.chain.approvals) != 1 {
		t.Errorf("got %d approvals, want 1", len(f.chain.approvals))
	}
	if uc.LastReport() == nil {
		t.Error("last report must be kept")
	}
}
