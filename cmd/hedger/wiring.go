package main

import (
	"fmt"
	"math/big"

	"delta-hedge/internal/infrastructure/config"
	"delta-hedge/internal/pkg/fixedpoint"
	"delta-hedge/internal/usecases"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// buildStrategyConfig переводит YAML конфигурацию в настройки цикла
func buildStrategyConfig(cfg *config.Config) (*usecases.HedgeStrategyConfig, error) {
	maxAmount, err := fixedpoint.ParseBigInt(cfg.Strategy.MaxAmount)
	if err != nil {
		return nil, fmt.Errorf("max_amount: %w", err)
	}
	approveCheck, err := fixedpoint.ParseBigInt(cfg.Strategy.ApproveCheckAmount)
	if err != nil {
		return nil, fmt.Errorf("approve_check_amount: %w", err)
	}

	sc := &usecases.HedgeStrategyConfig{
		Tokens:                  cfg.Strategy.Tokens,
		TokenAddresses:          make(map[string]common.Address, len(cfg.Contracts.TokenAddresses)),
		PoolAddresses:           make(map[string][]common.Address, len(cfg.Contracts.PoolAddresses)),
		OracleAddresses:         make(map[string]common.Address, len(cfg.Contracts.OracleAddresses)),
		MoretAddress:            common.HexToAddress(cfg.Contracts.MoretAddress),
		ExchangeAddress:         common.HexToAddress(cfg.Contracts.ExchangeAddress),
		HedgeThreshold:          decimal.NewFromFloat(cfg.Strategy.HedgeThreshold),
		MaxAmount:               maxAmount,
		ApproveCheckAmount:      approveCheck,
		VolTenors:               cfg.Strategy.VolTenors,
		UseContractFormula:      cfg.Strategy.UseContractFormula,
		FallbackOnContractError: cfg.Strategy.FallbackOnContractError,
		IncludeExpiring:         cfg.Strategy.IncludeExpiring,
		MaxParallel:             cfg.Strategy.MaxParallel,
		TokenTimeout:            cfg.Strategy.TokenTimeoutDuration(),
	}

	for token, addr := range cfg.Contracts.TokenAddresses {
		sc.TokenAddresses[token] = common.HexToAddress(addr)
	}
	for token, pools := range cfg.Contracts.PoolAddresses {
		for _, pool := range pools {
			sc.PoolAddresses[token] = append(sc.PoolAddresses[token], common.HexToAddress(pool))
		}
	}
	for token, addr := range cfg.Contracts.OracleAddresses {
		sc.OracleAddresses[token] = common.HexToAddress(addr)
	}

	return sc, nil
}

// buildExecutorConfig настройки исполнения свопов
func buildExecutorConfig(cfg *config.Config) usecases.SwapExecutorConfig {
	return usecases.SwapExecutorConfig{
		AllowTrade: cfg.Strategy.AllowTrade,
		Slippage:   decimal.NewFromFloat(cfg.Aggregator.Slippage),
		GasLimit:   new(big.Int).SetUint64(cfg.Strategy.DefaultGas),
	}
}
