package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"delta-hedge/internal/pkg/fixedpoint"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Chain      ChainConfig      `yaml:"chain"`
	Contracts  ContractsConfig  `yaml:"contracts"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Database   DatabaseConfig   `yaml:"database"`
	WebUI      WebUIConfig      `yaml:"webui"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ChainConfig конфигурация подключения к сети
type ChainConfig struct {
	RPCURL         string `yaml:"rpc_url"`
	ChainID        int64  `yaml:"chain_id"`
	PrivateKey     string `yaml:"private_key"`
	RPCTimeout     int    `yaml:"rpc_timeout"`     // Таймаут одного RPC вызова в секундах
	ReceiptTimeout int    `yaml:"receipt_timeout"` // Сколько ждать квитанцию сделки в секундах
}

// ContractsConfig адреса контрактов протокола
type ContractsConfig struct {
	MoretAddress    string              `yaml:"moret_address"`
	ExchangeAddress string              `yaml:"exchange_address"`
	TokenAddresses  map[string]string   `yaml:"token_addresses"`  // символ -> адрес базового токена
	PoolAddresses   map[string][]string `yaml:"pool_addresses"`   // символ -> пулы (иначе из брокера)
	OracleAddresses map[string]string   `yaml:"oracle_addresses"` // символ -> оракул (иначе из Moret)
}

// AggregatorConfig конфигурация DEX-агрегатора
type AggregatorConfig struct {
	BaseURL  string  `yaml:"base_url"`
	APIKey   string  `yaml:"api_key"`
	Slippage float64 `yaml:"slippage"` // Максимальное проскальзывание в процентах
	Timeout  int     `yaml:"timeout"`  // Таймаут HTTP запроса в секундах
}

// StrategyConfig конфигурация хеджирования
type StrategyConfig struct {
	Tokens             []string `yaml:"tokens"`
	HedgeThreshold     float64  `yaml:"hedge_threshold"` // Минимальная стоимость сделки в фондирующей валюте
	DefaultGas         uint64   `yaml:"default_gas"`
	MaxAmount          string   `yaml:"max_amount"`           // Потолок approve (целое, нативные единицы)
	ApproveCheckAmount string   `yaml:"approve_check_amount"` // Минимальный рабочий approve (целое, нативные единицы)
	AllowTrade         bool     `yaml:"allow_trade"`          // false = dry-run
	UseContractFormula bool     `yaml:"use_contract_formula"`
	// При ошибке calculateAggregateDelta считать дельту локально (false = пул пропускается)
	FallbackOnContractError bool     `yaml:"fallback_on_contract_error"`
	IncludeExpiring         bool     `yaml:"include_expiring"`
	VolTenors               []uint64 `yaml:"vol_tenors"`     // Настроенные точки кривой в секундах
	CheckInterval           int      `yaml:"check_interval"` // Интервал в секундах (0 = одноразовое выполнение)
	MaxParallel             int      `yaml:"max_parallel"`
	// Бюджет времени на один токен в секундах. Пулы токена торгуют последовательно,
	// и каждый может ждать квитанцию до chain.receipt_timeout, поэтому бюджет
	// должен покрывать receipt_timeout на каждый торгующий пул.
	TokenTimeout int `yaml:"token_timeout"`
	PendingTTL   int `yaml:"pending_ttl"` // Сколько сделка ждет квитанцию до пометки DROPPED, в секундах (0 = без ограничения)
}

// DatabaseConfig конфигурация базы данных
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// WebUIConfig конфигурация веб-интерфейса
type WebUIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Host    string `yaml:"host"`
}

// LoggingConfig конфигурация логирования
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json или console
}

// MetricsConfig конфигурация метрик
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"` // Пусто = не отправлять
	Job            string `yaml:"job"`
}

// LoadConfig загружает конфигурацию из YAML файла с поддержкой переменных окружения
func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	// Устанавливаем значения по умолчанию
	config.setDefaults()

	// Загружаем из файла (если существует)
	if _, err := os.Stat(path); err == nil {
		if err := config.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("ошибка загрузки из файла: %w", err)
		}
	}

	// Переопределяем переменными окружения
	config.loadFromEnv()

	// Валидируем конфигурацию
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return config, nil
}

// setDefaults устанавливает значения по умолчанию
func (c *Config) setDefaults() {
	c.Chain.ChainID = 137
	c.Chain.RPCTimeout = 15
	c.Chain.ReceiptTimeout = 60

	c.Aggregator.BaseURL = "https://api.1inch.io/v4.0/137/"
	c.Aggregator.Slippage = 1.0
	c.Aggregator.Timeout = 15

	c.Strategy.HedgeThreshold = 100.0
	c.Strategy.DefaultGas = 500000
	c.Strategy.MaxAmount = fixedpoint.MaxUint256().String()
	c.Strategy.ApproveCheckAmount = "1000000"
	c.Strategy.AllowTrade = false
	c.Strategy.UseContractFormula = true
	c.Strategy.FallbackOnContractError = true
	c.Strategy.VolTenors = []uint64{86400, 604800, 2592000}
	c.Strategy.CheckInterval = 0
	c.Strategy.MaxParallel = 4
	c.Strategy.TokenTimeout = 120
	c.Strategy.PendingTTL = 1800

	c.Database.Enabled = false
	c.Database.Host = "localhost"
	c.Database.Port = 5432
	c.Database.User = "postgres"
	c.Database.DBName = "delta_hedge"
	c.Database.SSLMode = "disable"

	c.WebUI.Enabled = false
	c.WebUI.Host = "localhost"
	c.WebUI.Port = 8081

	c.Logging.Level = "info"
	c.Logging.Format = "json"

	c.Metrics.Job = "delta_hedger"
}

// loadFromFile загружает конфигурацию из YAML файла
func (c *Config) loadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("ошибка парсинга YAML: %w", err)
	}

	return nil
}

// loadFromEnv загружает настройки из переменных окружения
func (c *Config) loadFromEnv() {
	// Chain
	if v := os.Getenv("HEDGER_RPC_URL"); v != "" {
		c.Chain.RPCURL = v
	}
	if v := os.Getenv("HEDGER_CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Chain.ChainID = id
		}
	}
	if v := os.Getenv("HEDGER_PRIVATE_KEY"); v != "" {
		c.Chain.PrivateKey = v
	}

	// Contracts
	if v := os.Getenv("HEDGER_MORET_ADDRESS"); v != "" {
		c.Contracts.MoretAddress = v
	}
	if v := os.Getenv("HEDGER_EXCHANGE_ADDRESS"); v != "" {
		c.Contracts.ExchangeAddress = v
	}

	// Aggregator
	if v := os.Getenv("HEDGER_AGGREGATOR_URL"); v != "" {
		c.Aggregator.BaseURL = v
	}
	if v := os.Getenv("HEDGER_AGGREGATOR_API_KEY"); v != "" {
		c.Aggregator.APIKey = v
	}
	if v := os.Getenv("HEDGER_SLIPPAGE"); v != "" {
		if slippage, err := strconv.ParseFloat(v, 64); err == nil {
			c.Aggregator.Slippage = slippage
		}
	}

	// Strategy
	if v := os.Getenv("HEDGER_TOKENS"); v != "" {
		var tokens []string
		for _, token := range strings.Split(v, ",") {
			if token = strings.TrimSpace(token); token != "" {
				tokens = append(tokens, token)
			}
		}
		c.Strategy.Tokens = tokens
	}
	if v := os.Getenv("HEDGER_HEDGE_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			c.Strategy.HedgeThreshold = threshold
		}
	}
	if v := os.Getenv("HEDGER_ALLOW_TRADE"); v != "" {
		c.Strategy.AllowTrade = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("HEDGER_CHECK_INTERVAL"); v != "" {
		if interval, err := strconv.Atoi(v); err == nil {
			c.Strategy.CheckInterval = interval
		}
	}
	if v := os.Getenv("HEDGER_PENDING_TTL"); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil {
			c.Strategy.PendingTTL = ttl
		}
	}

	// Database
	if v := os.Getenv("DB_ENABLED"); v != "" {
		c.Database.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.DBName = v
	}
	if v := os.Getenv("DB_SSL_MODE"); v != "" {
		c.Database.SSLMode = v
	}

	// WebUI
	if v := os.Getenv("WEBUI_ENABLED"); v != "" {
		c.WebUI.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("WEBUI_HOST"); v != "" {
		c.WebUI.Host = v
	}
	if v := os.Getenv("WEBUI_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.WebUI.Port = port
		}
	}

	// Logging / Metrics
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	// Валидация Chain
	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		return fmt.Errorf("chain.rpc_url не может быть пустым")
	}
	if _, err := url.Parse(c.Chain.RPCURL); err != nil {
		return fmt.Errorf("chain.rpc_url содержит некорректный URL: %w", err)
	}
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("chain.chain_id должен быть положительным, получен: %d", c.Chain.ChainID)
	}
	if strings.TrimSpace(c.Chain.PrivateKey) == "" {
		return fmt.Errorf("chain.private_key не может быть пустым")
	}
	if c.Chain.RPCTimeout <= 0 {
		return fmt.Errorf("chain.rpc_timeout должен быть положительным, получен: %d", c.Chain.RPCTimeout)
	}
	if c.Chain.ReceiptTimeout < 0 {
		return fmt.Errorf("chain.receipt_timeout не может быть отрицательным, получен: %d", c.Chain.ReceiptTimeout)
	}

	// Валидация Contracts
	addresses := map[string]string{
		"contracts.moret_address":    c.Contracts.MoretAddress,
		"contracts.exchange_address": c.Contracts.ExchangeAddress,
	}
	for name, address := range addresses {
		if !common.IsHexAddress(address) {
			return fmt.Errorf("%s содержит некорректный адрес: %q", name, address)
		}
	}

	// Валидация Strategy
	if len(c.Strategy.Tokens) == 0 {
		return fmt.Errorf("strategy.tokens не может быть пустым")
	}
	for _, token := range c.Strategy.Tokens {
		address, ok := c.Contracts.TokenAddresses[token]
		if !ok {
			return fmt.Errorf("contracts.token_addresses не содержит адрес для %s", token)
		}
		if !common.IsHexAddress(address) {
			return fmt.Errorf("contracts.token_addresses[%s] содержит некорректный адрес: %q", token, address)
		}
		for _, pool := range c.Contracts.PoolAddresses[token] {
			if !common.IsHexAddress(pool) {
				return fmt.Errorf("contracts.pool_addresses[%s] содержит некорректный адрес: %q", token, pool)
			}
		}
		if oracle, ok := c.Contracts.OracleAddresses[token]; ok && !common.IsHexAddress(oracle) {
			return fmt.Errorf("contracts.oracle_addresses[%s] содержит некорректный адрес: %q", token, oracle)
		}
	}
	if c.Strategy.HedgeThreshold < 0 {
		return fmt.Errorf("strategy.hedge_threshold не может быть отрицательным, получен: %.2f", c.Strategy.HedgeThreshold)
	}
	if c.Strategy.DefaultGas == 0 {
		return fmt.Errorf("strategy.default_gas должен быть положительным")
	}
	if _, err := fixedpoint.ParseBigInt(c.Strategy.MaxAmount); err != nil {
		return fmt.Errorf("strategy.max_amount: %w", err)
	}
	if _, err := fixedpoint.ParseBigInt(c.Strategy.ApproveCheckAmount); err != nil {
		return fmt.Errorf("strategy.approve_check_amount: %w", err)
	}
	if len(c.Strategy.VolTenors) == 0 {
		return fmt.Errorf("strategy.vol_tenors не может быть пустым")
	}
	if c.Strategy.CheckInterval < 0 {
		return fmt.Errorf("strategy.check_interval не может быть отрицательным, получен: %d", c.Strategy.CheckInterval)
	}
	if c.Strategy.MaxParallel <= 0 {
		return fmt.Errorf("strategy.max_parallel должен быть положительным, получен: %d", c.Strategy.MaxParallel)
	}
	if c.Strategy.TokenTimeout <= 0 {
		return fmt.Errorf("strategy.token_timeout должен быть положительным, получен: %d", c.Strategy.TokenTimeout)
	}
	if c.Chain.ReceiptTimeout > 0 {
		for _, token := range c.Strategy.Tokens {
			// пулы из брокера заранее неизвестны, считаем хотя бы один
			pools := len(c.Contracts.PoolAddresses[token])
			if pools == 0 {
				pools = 1
			}
			if c.Strategy.TokenTimeout <= c.Chain.ReceiptTimeout*pools {
				return fmt.Errorf("strategy.token_timeout (%d) должен превышать chain.receipt_timeout (%d) × число пулов %s (%d)",
					c.Strategy.TokenTimeout, c.Chain.ReceiptTimeout, token, pools)
			}
		}
	}
	if c.Strategy.PendingTTL < 0 {
		return fmt.Errorf("strategy.pending_ttl не может быть отрицательным, получен: %d", c.Strategy.PendingTTL)
	}

	// Валидация Aggregator
	if strings.TrimSpace(c.Aggregator.BaseURL) == "" {
		return fmt.Errorf("aggregator.base_url не может быть пустым")
	}
	if _, err := url.Parse(c.Aggregator.BaseURL); err != nil {
		return fmt.Errorf("aggregator.base_url содержит некорректный URL: %w", err)
	}
	if c.Aggregator.Slippage <= 0 || c.Aggregator.Slippage >= 50 {
		return fmt.Errorf("aggregator.slippage должен быть в диапазоне (0, 50), получен: %.2f", c.Aggregator.Slippage)
	}
	if c.Aggregator.Timeout <= 0 {
		return fmt.Errorf("aggregator.timeout должен быть положительным, получен: %d", c.Aggregator.Timeout)
	}

	// Валидация Database
	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.Host) == "" {
			return fmt.Errorf("database.host не может быть пустым")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("database.port должен быть в диапазоне 1-65535, получен: %d", c.Database.Port)
		}
		if strings.TrimSpace(c.Database.User) == "" {
			return fmt.Errorf("database.user не может быть пустым")
		}
		if strings.TrimSpace(c.Database.DBName) == "" {
			return fmt.Errorf("database.dbname не может быть пустым")
		}
	}

	// Валидация WebUI
	if c.WebUI.Enabled {
		if c.WebUI.Port < 1 || c.WebUI.Port > 65535 {
			return fmt.Errorf("webui.port должен быть в диапазоне 1-65535, получен: %d", c.WebUI.Port)
		}
		if strings.TrimSpace(c.WebUI.Host) == "" {
			return fmt.Errorf("webui.host не может быть пустым")
		}
	}

	// Валидация Logging
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format должен быть json или console, получен: %q", c.Logging.Format)
	}

	return nil
}

// GetDatabaseConnectionString возвращает строку подключения к базе данных
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode)
}

// RPCTimeoutDuration возвращает таймаут одного RPC вызова
func (c *ChainConfig) RPCTimeoutDuration() time.Duration {
	return time.Duration(c.RPCTimeout) * time.Second
}

// ReceiptTimeoutDuration возвращает время ожидания квитанции
func (c *ChainConfig) ReceiptTimeoutDuration() time.Duration {
	return time.Duration(c.ReceiptTimeout) * time.Second
}

// TimeoutDuration возвращает таймаут HTTP запроса к агрегатору
func (c *AggregatorConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// CheckIntervalDuration возвращает интервал между циклами
func (c *StrategyConfig) CheckIntervalDuration() time.Duration {
	return time.Duration(c.CheckInterval) * time.Second
}

// TokenTimeoutDuration возвращает бюджет времени на один токен
func (c *StrategyConfig) TokenTimeoutDuration() time.Duration {
	return time.Duration(c.TokenTimeout) * time.Second
}

// PendingTTLDuration возвращает срок ожидания квитанции до пометки DROPPED
func (c *StrategyConfig) PendingTTLDuration() time.Duration {
	return time.Duration(c.PendingTTL) * time.Second
}
