package usecases

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/errors"
	"delta-hedge/internal/domain/repositories"
	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HedgeStrategyConfig конфигурация цикла хеджирования
type HedgeStrategyConfig struct {
	Tokens          []string
	TokenAddresses  map[string]common.Address
	PoolAddresses   map[string][]common.Address // пусто = пулы из брокера
	OracleAddresses map[string]common.Address   // пусто = оракул из Moret

	MoretAddress    common.Address
	ExchangeAddress common.Address

	HedgeThreshold     decimal.Decimal
	MaxAmount          *big.Int // потолок approve
	ApproveCheckAmount *big.Int // минимальный рабочий approve
	VolTenors          []uint64

	UseContractFormula      bool
	FallbackOnContractError bool
	IncludeExpiring         bool

	MaxParallel  int
	TokenTimeout time.Duration
}

// TokenReport итог обработки одного токена
type TokenReport struct {
	Token   string
	Records []*entities.HedgeRecord
	Err     error // ошибка уровня токена (оракул, список пулов)
}

// CycleReport итог одного цикла хеджирования
type CycleReport struct {
	CycleID    uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Tokens     []*TokenReport
}

// Records возвращает все решения цикла
func (r *CycleReport) Records() []*entities.HedgeRecord {
	var records []*entities.HedgeRecord
	for _, t := range r.Tokens {
		records = append(records, t.Records...)
	}
	return records
}

// FailedTokens возвращает число токенов с ошибкой хотя бы в одном пуле
func (r *CycleReport) FailedTokens() int {
	failed := 0
	for _, t := range r.Tokens {
		if t.Err != nil {
			failed++
			continue
		}
		for _, rec := range t.Records {
			if rec.Outcome == entities.HedgeOutcomeFailed {
				failed++
				break
			}
		}
	}
	return failed
}

// HedgeStrategyUseCase один цикл динамического дельта-хеджирования по всем токенам
type HedgeStrategyUseCase struct {
	registry  services.ContractRegistry
	executor  *SwapExecutor
	hedgeRepo repositories.HedgeRepository
	metrics   services.HedgeMetrics
	config    *HedgeStrategyConfig

	// один цикл за раз: планировщик и ручной запуск из веб-интерфейса
	runMu      sync.Mutex
	mu         sync.RWMutex
	lastReport *CycleReport
}

// NewHedgeStrategyUseCase создает новый экземпляр use case
func NewHedgeStrategyUseCase(
	registry services.ContractRegistry,
	executor *SwapExecutor,
	hedgeRepo repositories.HedgeRepository,
	metrics services.HedgeMetrics,
	config *HedgeStrategyConfig,
) *HedgeStrategyUseCase {
	return &HedgeStrategyUseCase{
		registry:  registry,
		executor:  executor,
		hedgeRepo: hedgeRepo,
		metrics:   metrics,
		config:    config,
	}
}

// LastReport возвращает отчет последнего завершенного цикла
func (h *HedgeStrategyUseCase) LastReport() *CycleReport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastReport
}

// ExecuteHedgeStrategy выполняет один цикл хеджирования.
// Ошибка возвращается только для фатальных ситуаций уровня цикла,
// ошибки отдельных токенов попадают в отчет.
func (h *HedgeStrategyUseCase) ExecuteHedgeStrategy(ctx context.Context) (*CycleReport, error) {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	report := &CycleReport{
		CycleID:   uuid.New(),
		StartedAt: time.Now(),
	}

	// 1. Корневые контракты
	roots, err := ResolveRoots(ctx, h.registry, h.config.MoretAddress, h.config.ExchangeAddress)
	if err != nil {
		return nil, err
	}

	// 2. Approve фондирующего токена бирже
	if err := h.EnsureAllowance(ctx, roots); err != nil {
		logger.LogError("❌ Не удалось пополнить approve: %v", err)
	}

	// 3. Токены обрабатываются параллельно и независимо
	report.Tokens = make([]*TokenReport, len(h.config.Tokens))

	g := new(errgroup.Group)
	if h.config.MaxParallel > 0 {
		g.SetLimit(h.config.MaxParallel)
	}

	for i, token := range h.config.Tokens {
		g.Go(func() error {
			tokenCtx, cancel := ctx, context.CancelFunc(func() {})
			if h.config.TokenTimeout > 0 {
				tokenCtx, cancel = context.WithTimeout(ctx, h.config.TokenTimeout)
			}
			defer cancel()

			report.Tokens[i] = h.hedgeToken(tokenCtx, report.CycleID, roots, token)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now()
	failed := report.FailedTokens()
	if h.metrics != nil {
		h.metrics.RecordCycle(report.FinishedAt.Sub(report.StartedAt), len(report.Tokens), failed)
	}

	logger.LogWithTime("🏁 Цикл %s завершен за %v: токенов %d, с ошибками %d",
		report.CycleID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond), len(report.Tokens), failed)

	h.mu.Lock()
	h.lastReport = report
	h.mu.Unlock()

	return report, nil
}

// EnsureAllowance поднимает approve фондирующего токена до max_amount,
// если текущий ниже approve_check_amount
func (h *HedgeStrategyUseCase) EnsureAllowance(ctx context.Context, roots *ProtocolRoots) error {
	account := h.registry.Account()
	spender := roots.Exchange.Address()
	funding := h.registry.Token(roots.Funding)

	allowance, err := funding.Allowance(ctx, account, spender)
	if err != nil {
		return fmt.Errorf("ошибка чтения approve: %w", err)
	}
	if allowance.Cmp(h.config.ApproveCheckAmount) >= 0 {
		return nil
	}

	logger.LogWithTime("🔓 Approve %s для %s ниже порога (%s < %s), выдаем %s",
		roots.Funding.Hex(), spender.Hex(), allowance, h.config.ApproveCheckAmount, h.config.MaxAmount)

	txHash, err := funding.Approve(ctx, spender, h.config.MaxAmount)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.NewInsufficientAllowanceError("", h.config.ApproveCheckAmount.String(), allowance.String()), err)
	}

	status, err := h.registry.WaitForTrade(ctx, txHash)
	if err != nil {
		return fmt.Errorf("ошибка ожидания approve %s: %w", txHash.Hex(), err)
	}
	if status == entities.TradeStatusReverted {
		return errors.NewInsufficientAllowanceError("", h.config.ApproveCheckAmount.String(), allowance.String())
	}

	logger.LogWithTime("✅ Approve отправлен: %s (%s)", txHash.Hex(), status)
	return nil
}

// hedgeToken обрабатывает все пулы одного токена
func (h *HedgeStrategyUseCase) hedgeToken(ctx context.Context, cycleID uuid.UUID, roots *ProtocolRoots, token string) *TokenReport {
	tr := &TokenReport{Token: token}

	fail := func(err error) *TokenReport {
		tr.Err = err
		record := entities.NewHedgeRecord(cycleID, token, "", "", entities.TradeInstruction{Direction: entities.TradeDirectionNone})
		h.finish(ctx, markFailed(record, err))
		tr.Records = append(tr.Records, record)
		return tr
	}

	tokenAddr, ok := h.config.TokenAddresses[token]
	if !ok {
		return fail(fmt.Errorf("адрес токена %s не настроен", token))
	}

	oracleAddr, err := h.oracleAddress(ctx, roots, token, tokenAddr)
	if err != nil {
		return fail(err)
	}

	oracle := NewOracleReader(token, h.registry.Oracle(oracleAddr), h.config.VolTenors)
	spotWad, spot, err := oracle.Spot(ctx)
	if err != nil {
		return fail(err)
	}

	pools, err := h.pools(ctx, roots, token, tokenAddr)
	if err != nil {
		return fail(err)
	}
	if len(pools) == 0 {
		logger.LogWithTime("ℹ️ [%s] Пулов не найдено", token)
		return tr
	}

	aggregator := NewDeltaAggregator(roots.Ledger, DeltaAggregatorConfig{
		UseContractFormula:      h.config.UseContractFormula,
		FallbackOnContractError: h.config.FallbackOnContractError,
		IncludeExpiring:         h.config.IncludeExpiring,
	})

	// пулы одного токена идут последовательно: они делят кэш волатильности
	for _, pool := range pools {
		record := h.hedgePool(ctx, cycleID, token, pool, oracle, aggregator, spotWad, spot)
		h.finish(ctx, record)
		tr.Records = append(tr.Records, record)
	}

	return tr
}

func (h *HedgeStrategyUseCase) oracleAddress(ctx context.Context, roots *ProtocolRoots, token string, tokenAddr common.Address) (common.Address, error) {
	if addr, ok := h.config.OracleAddresses[token]; ok {
		return addr, nil
	}
	addr, err := roots.Protocol.GetVolatilityChain(ctx, tokenAddr)
	if err != nil {
		return common.Address{}, errors.NewOracleUnavailableError(token, err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, errors.NewOracleUnavailableError(token, fmt.Errorf("оракул для %s не зарегистрирован", tokenAddr.Hex()))
	}
	return addr, nil
}

func (h *HedgeStrategyUseCase) pools(ctx context.Context, roots *ProtocolRoots, token string, tokenAddr common.Address) ([]common.Address, error) {
	if pools, ok := h.config.PoolAddresses[token]; ok && len(pools) > 0 {
		return pools, nil
	}
	pools, err := roots.Broker.GetAllPools(ctx, tokenAddr)
	if err != nil {
		return nil, errors.NewLedgerUnavailableError(token, err)
	}
	return pools, nil
}

// hedgePool выполняет цепочку оракул -> дельта -> решение -> своп для одного пула
func (h *HedgeStrategyUseCase) hedgePool(
	ctx context.Context,
	cycleID uuid.UUID,
	token string,
	pool common.Address,
	oracle *OracleReader,
	aggregator *DeltaAggregator,
	spotWad *big.Int,
	spot decimal.Decimal,
) *entities.HedgeRecord {
	empty := entities.TradeInstruction{Spot: spot, Direction: entities.TradeDirectionNone}

	mmAddr, err := h.registry.Pool(pool).MarketMaker(ctx)
	if err != nil {
		record := entities.NewHedgeRecord(cycleID, token, pool.Hex(), "", empty)
		return markFailed(record, fmt.Errorf("ошибка получения маркет-мейкера пула: %w", err))
	}

	// Незавершенная сделка: баланс маркет-мейкера еще не окончательный
	pending, err := h.hedgeRepo.HasPendingTrade(ctx, mmAddr.Hex())
	if err != nil {
		logger.LogWarn("⚠️ [%s] Не удалось проверить незавершенные сделки %s: %v", token, mmAddr.Hex(), err)
	}
	if pending {
		record := entities.NewHedgeRecord(cycleID, token, pool.Hex(), mmAddr.Hex(), empty)
		record.Outcome = entities.HedgeOutcomePendingTrade
		return record
	}

	market, err := h.executor.LoadMarket(ctx, token, pool, mmAddr)
	if err != nil {
		return markFailed(entities.NewHedgeRecord(cycleID, token, pool.Hex(), mmAddr.Hex(), empty), err)
	}

	targetDelta, err := aggregator.AggregateDelta(ctx, token, pool, oracle, spotWad)
	if err != nil {
		return markFailed(entities.NewHedgeRecord(cycleID, token, pool.Hex(), mmAddr.Hex(), empty), err)
	}

	balance, err := h.executor.CurrentHedge(ctx, market)
	if err != nil {
		record := entities.NewHedgeRecord(cycleID, token, pool.Hex(), mmAddr.Hex(), entities.TradeInstruction{
			TargetDelta: targetDelta,
			Spot:        spot,
			Direction:   entities.TradeDirectionNone,
		})
		return markFailed(record, err)
	}

	instr := entities.DecideHedge(targetDelta, balance.Amount, spot, h.config.HedgeThreshold)
	record := entities.NewHedgeRecord(cycleID, token, pool.Hex(), mmAddr.Hex(), instr)

	if !instr.ShouldTrade() {
		record.Outcome = entities.HedgeOutcomeBelowThreshold
		return record
	}

	if instr.Direction == entities.TradeDirectionSellUnderlying && !balance.HasSufficientBalance(instr.TradeHedge.Abs()) {
		logger.LogWarn("⚠️ [%s] Продажа %s превышает баланс маркет-мейкера %s", token, instr.TradeHedge.Abs(), balance)
	}

	result, err := h.executor.Execute(ctx, instr, market)
	if result != nil {
		record.TokenIn = result.Order.TokenIn
		record.AmountIn = result.Order.Amount.String()
		if result.Executed {
			record.TxHash = result.TxHash
			record.TxStatus = result.Status
		}
	}
	if err != nil {
		return markFailed(record, err)
	}

	switch {
	case !result.Executed:
		record.Outcome = entities.HedgeOutcomeDryRun
	case result.Status == entities.TradeStatusConfirmed:
		record.Outcome = entities.HedgeOutcomeConfirmed
	default:
		record.Outcome = entities.HedgeOutcomeSubmitted
	}
	return record
}

func markFailed(record *entities.HedgeRecord, err error) *entities.HedgeRecord {
	record.Outcome = entities.HedgeOutcomeFailed
	record.ErrorKind = errors.KindOf(err)
	record.Error = err.Error()
	return record
}

// finish пишет строку решения в лог, сохраняет запись аудита и метрики
func (h *HedgeStrategyUseCase) finish(ctx context.Context, record *entities.HedgeRecord) {
	fields := []zap.Field{
		zap.String("cycle_id", record.CycleID.String()),
		zap.String("token", record.Token),
		zap.String("pool", record.Pool),
		zap.String("market_maker", record.MarketMaker),
		zap.String("target_delta", record.TargetDelta.String()),
		zap.String("current_hedge", record.CurrentHedge.String()),
		zap.String("spot", record.Spot.String()),
		zap.String("trade_hedge", record.TradeHedge.String()),
		zap.String("trade_value", record.TradeValue.String()),
		zap.String("direction", string(record.Direction)),
		zap.String("outcome", string(record.Outcome)),
		zap.String("error_kind", record.ErrorKind),
		zap.String("tx_hash", record.TxHash),
	}

	switch {
	case record.Outcome != entities.HedgeOutcomeFailed:
		logger.L().Info("hedge decision", fields...)
	case record.ErrorKind == errors.ErrorTypeTradeRejected.String():
		// для ручного разбора пишем полную инструкцию
		logger.L().Error("hedge decision", append(fields, zap.String("error", record.Error))...)
	default:
		logger.L().Warn("hedge decision", append(fields, zap.String("error", record.Error))...)
	}

	// запись аудита не должна теряться из-за истекшего бюджета токена
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := h.hedgeRepo.SaveHedgeRecord(saveCtx, record); err != nil {
		logger.LogError("❌ Ошибка сохранения решения [%s] %s: %v", record.Token, record.Pool, err)
	}

	if h.metrics != nil {
		h.metrics.RecordDecision(record)
	}
}
