package usecases

import (
	"context"
	"fmt"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

// maxExpiriesPerPool ограничивает число экспираций пула за один запуск
const maxExpiriesPerPool = 50

// ExpiryKeeperUseCase экспирирует истекшие опционы во всех пулах настроенных токенов
type ExpiryKeeperUseCase struct {
	registry services.ContractRegistry
	config   *HedgeStrategyConfig
}

// ExpiryReport итог запуска
type ExpiryReport struct {
	Expired []string // идентификаторы экспирированных опционов
	Failed  int      // пулы с ошибкой
}

// NewExpiryKeeperUseCase создает use case экспирации
func NewExpiryKeeperUseCase(registry services.ContractRegistry, config *HedgeStrategyConfig) *ExpiryKeeperUseCase {
	return &ExpiryKeeperUseCase{
		registry: registry,
		config:   config,
	}
}

// ExpireOptions проходит по всем пулам и экспирирует опционы, пока реестр сообщает об истекших
func (k *ExpiryKeeperUseCase) ExpireOptions(ctx context.Context) (*ExpiryReport, error) {
	roots, err := ResolveRoots(ctx, k.registry, k.config.MoretAddress, k.config.ExchangeAddress)
	if err != nil {
		return nil, err
	}

	report := &ExpiryReport{}
	payTo := k.registry.Account()

	for _, token := range k.config.Tokens {
		tokenAddr, ok := k.config.TokenAddresses[token]
		if !ok {
			logger.LogError("❌ [%s] Адрес токена не настроен", token)
			report.Failed++
			continue
		}

		pools := k.config.PoolAddresses[token]
		if len(pools) == 0 {
			pools, err = roots.Broker.GetAllPools(ctx, tokenAddr)
			if err != nil {
				logger.LogError("❌ [%s] Ошибка получения пулов: %v", token, err)
				report.Failed++
				continue
			}
		}

		for _, pool := range pools {
			expired, err := k.expirePool(ctx, roots, pool, payTo)
			report.Expired = append(report.Expired, expired...)
			if err != nil {
				logger.LogError("❌ [%s] Пул %s: %v", token, pool.Hex(), err)
				report.Failed++
			}
		}
	}

	logger.LogWithTime("🏁 Экспирировано опционов: %d, пулов с ошибками: %d", len(report.Expired), report.Failed)
	return report, nil
}

func (k *ExpiryKeeperUseCase) expirePool(ctx context.Context, roots *ProtocolRoots, pool, payTo common.Address) ([]string, error) {
	var expired []string

	for i := 0; i < maxExpiriesPerPool; i++ {
		expiring, err := roots.Ledger.AnyOptionExpiring(ctx, pool)
		if err != nil {
			return expired, fmt.Errorf("ошибка проверки истекших опционов: %w", err)
		}
		if !expiring {
			return expired, nil
		}

		optionID, err := roots.Ledger.GetExpiringOptionID(ctx, pool)
		if err != nil {
			return expired, fmt.Errorf("ошибка получения истекшего опциона: %w", err)
		}

		txHash, err := roots.Exchange.ExpireOption(ctx, optionID, payTo)
		if err != nil {
			return expired, fmt.Errorf("ошибка экспирации опциона %s: %w", optionID, err)
		}

		status, err := k.registry.WaitForTrade(ctx, txHash)
		if err != nil {
			return expired, fmt.Errorf("ошибка ожидания экспирации %s: %w", txHash.Hex(), err)
		}
		if status != entities.TradeStatusConfirmed {
			// без подтверждения реестр вернет тот же опцион снова
			return expired, fmt.Errorf("экспирация опциона %s: транзакция %s в статусе %s", optionID, txHash.Hex(), status)
		}

		logger.LogWithTime("⌛ Опцион %s пула %s экспирирован: %s", optionID, pool.Hex(), txHash.Hex())
		expired = append(expired, optionID.String())
	}

	return expired, nil
}
