package webui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"delta-hedge/internal/domain/repositories"
	"delta-hedge/internal/infrastructure/config"
	"delta-hedge/internal/pkg/logger"
	"delta-hedge/internal/usecases"
)

// Server веб-сервер для мониторинга
type Server struct {
	webUIConfig          *config.WebUIConfig
	hedgeRepo            repositories.HedgeRepository
	hedgeUseCase         *usecases.HedgeStrategyUseCase
	statusCheckerUseCase *usecases.StatusCheckerUseCase
	metricsHandler       http.Handler
	handler              http.Handler
	server               *http.Server
}

// NewServer создает новый веб-сервер. metricsHandler может быть nil.
func NewServer(
	webUIConfig *config.WebUIConfig,
	hedgeRepo repositories.HedgeRepository,
	hedgeUseCase *usecases.HedgeStrategyUseCase,
	statusCheckerUseCase *usecases.StatusCheckerUseCase,
	metricsHandler http.Handler,
) *Server {
	s := &Server{
		webUIConfig:          webUIConfig,
		hedgeRepo:            hedgeRepo,
		hedgeUseCase:         hedgeUseCase,
		statusCheckerUseCase: statusCheckerUseCase,
		metricsHandler:       metricsHandler,
	}

	// Настраиваем роуты
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	s.handler = mux

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", webUIConfig.Host, webUIConfig.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // /api/execute ждет окончания цикла
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes настраивает маршруты
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/decisions", s.handleAPIDecisions)
	mux.HandleFunc("/api/status", s.handleAPIStatus)
	mux.HandleFunc("/api/execute", s.handleAPIExecute)
	mux.HandleFunc("/api/check-status", s.handleAPICheckStatus)

	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.metricsHandler)
	}
}

// Handler возвращает обработчик маршрутов
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start запускает веб-сервер и блокируется до отмены контекста
func (s *Server) Start(ctx context.Context) error {
	logger.LogWithTime("🌐 Запуск веб-интерфейса на http://%s:%d", s.webUIConfig.Host, s.webUIConfig.Port)

	// Запускаем сервер в горутине
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError("❌ Ошибка веб-сервера: %v", err)
		}
	}()

	// Ждем сигнала остановки
	<-ctx.Done()

	logger.LogWithTime("🛑 Остановка веб-сервера...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
