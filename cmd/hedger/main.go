package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delta-hedge/internal/adapters/controllers"
	"delta-hedge/internal/adapters/repositories"
	"delta-hedge/internal/adapters/services"
	"delta-hedge/internal/adapters/webui"
	domainRepos "delta-hedge/internal/domain/repositories"
	"delta-hedge/internal/infrastructure/blockchain"
	"delta-hedge/internal/infrastructure/clients"
	"delta-hedge/internal/infrastructure/config"
	"delta-hedge/internal/infrastructure/database"
	"delta-hedge/internal/infrastructure/metrics"
	"delta-hedge/internal/pkg/logger"
	"delta-hedge/internal/usecases"

	"github.com/joho/godotenv"
)

const (
	modeHedge  = "hedge"
	modeExpire = "expire"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	mode := flag.String("mode", modeHedge, "режим работы: hedge или expire")
	flag.Parse()

	// .env необязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "❌ Ошибка чтения .env: %v\n", err)
		return 1
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Ошибка загрузки конфигурации: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runMode(ctx, cfg, *mode); err != nil {
		logger.LogError("❌ %v", err)
		return 1
	}
	return 0
}

func runMode(ctx context.Context, cfg *config.Config, mode string) error {
	strategyConfig, err := buildStrategyConfig(cfg)
	if err != nil {
		return fmt.Errorf("ошибка конфигурации стратегии: %w", err)
	}

	chain, err := blockchain.NewClient(ctx, &cfg.Chain)
	if err != nil {
		return err
	}
	defer chain.Close()

	switch mode {
	case modeExpire:
		expiry := controllers.NewExpiryController(usecases.NewExpiryKeeperUseCase(chain, strategyConfig))
		return expiry.ExpireOptions(ctx)
	case modeHedge:
		return runHedge(ctx, cfg, chain, strategyConfig)
	default:
		return fmt.Errorf("неизвестный режим %q", mode)
	}
}

func runHedge(ctx context.Context, cfg *config.Config, chain *blockchain.Client, strategyConfig *usecases.HedgeStrategyConfig) error {
	hedgeRepo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	hedgeMetrics := metrics.NewMetrics()
	aggregator := services.NewSwapAggregatorAdapter(clients.NewOneInchClient(&cfg.Aggregator))
	executor := usecases.NewSwapExecutor(chain, aggregator, buildExecutorConfig(cfg))

	hedgeUseCase := usecases.NewHedgeStrategyUseCase(chain, executor, hedgeRepo, hedgeMetrics, strategyConfig)
	statusChecker := usecases.NewStatusCheckerUseCase(hedgeRepo, chain, hedgeMetrics, cfg.Strategy.PendingTTLDuration())
	scheduler := controllers.NewSchedulerController(controllers.NewHedgeController(hedgeUseCase), statusChecker, cfg.Strategy.CheckIntervalDuration())

	if !cfg.Strategy.AllowTrade {
		logger.LogWarn("🧪 allow_trade выключен: сделки только логируются")
	}

	// Одноразовый запуск (cron)
	if cfg.Strategy.CheckInterval == 0 {
		cycleErr := scheduler.RunOnce(ctx)

		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := hedgeMetrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			logger.LogWarn("⚠️ %v", err)
		}
		return cycleErr
	}

	if cfg.WebUI.Enabled {
		server := webui.NewServer(&cfg.WebUI, hedgeRepo, hedgeUseCase, statusChecker, hedgeMetrics.Handler())
		go func() {
			if err := server.Start(ctx); err != nil {
				logger.LogError("❌ Ошибка остановки веб-сервера: %v", err)
			}
		}()
	}

	scheduler.Start(ctx)
	return nil
}

// openRepository выбирает хранилище решений: PostgreSQL или память процесса
func openRepository(ctx context.Context, cfg *config.Config) (domainRepos.HedgeRepository, func(), error) {
	if !cfg.Database.Enabled {
		logger.LogWithTime("💾 База данных отключена, решения хранятся в памяти")
		return repositories.NewMemoryHedgeRepository(), func() {}, nil
	}

	dbRepo, err := database.NewPostgreSQLHedgeRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.LogWithTime("✅ Подключение к PostgreSQL установлено")
	return repositories.NewHedgeRepositoryAdapter(dbRepo), dbRepo.Close, nil
}
