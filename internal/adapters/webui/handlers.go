package webui

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/usecases"
)

// defaultDecisionsLimit сколько решений отдавать без параметра limit
const defaultDecisionsLimit = 100

// APIResponse универсальный ответ API
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Updated int         `json:"updated,omitempty"`
}

// DecisionView представление решения для веб-интерфейса
type DecisionView struct {
	ID              int64      `json:"id"`
	CycleID         string     `json:"cycle_id"`
	Token           string     `json:"token"`
	Pool            string     `json:"pool"`
	MarketMaker     string     `json:"market_maker"`
	CreatedAt       time.Time  `json:"created_at"`
	TargetDelta     string     `json:"target_delta"`
	CurrentHedge    string     `json:"current_hedge"`
	Spot            string     `json:"spot"`
	TradeHedge      string     `json:"trade_hedge"`
	TradeValue      string     `json:"trade_value"`
	Direction       string     `json:"direction"`
	Outcome         string     `json:"outcome"`
	ErrorKind       string     `json:"error_kind,omitempty"`
	Error           string     `json:"error,omitempty"`
	TxHash          string     `json:"tx_hash,omitempty"`
	TxStatus        string     `json:"tx_status,omitempty"`
	LastStatusCheck *time.Time `json:"last_status_check,omitempty"`
}

// CycleView краткое представление последнего цикла
type CycleView struct {
	CycleID      string            `json:"cycle_id"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Tokens       int               `json:"tokens"`
	FailedTokens int               `json:"failed_tokens"`
	TokenErrors  map[string]string `json:"token_errors,omitempty"`
	Decisions    []DecisionView    `json:"decisions"`
}

// StatusView состояние хеджера
type StatusView struct {
	LastCycle *CycleView     `json:"last_cycle,omitempty"`
	Outcomes  map[string]int `json:"outcomes"`
	Time      time.Time      `json:"time"`
}

// handleAPIDecisions API для получения последних решений
func (s *Server) handleAPIDecisions(w http.ResponseWriter, r *http.Request) {
	limit := defaultDecisionsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			s.sendError(w, "Некорректный параметр limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := s.hedgeRepo.GetHedgeRecords(r.Context(), limit)
	if err != nil {
		s.sendError(w, "Ошибка получения решений", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, APIResponse{
		Success: true,
		Data:    convertToDecisionViews(records),
	})
}

// handleAPIStatus API для получения статуса системы
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.hedgeRepo.GetOutcomeCounts(r.Context())
	if err != nil {
		s.sendError(w, "Ошибка получения статистики", http.StatusInternalServerError)
		return
	}

	status := StatusView{
		LastCycle: convertToCycleView(s.hedgeUseCase.LastReport()),
		Outcomes:  make(map[string]int, len(counts)),
		Time:      time.Now(),
	}
	for outcome, count := range counts {
		status.Outcomes[string(outcome)] = count
	}

	s.sendJSON(w, APIResponse{
		Success: true,
		Data:    status,
	})
}

// handleAPIExecute API для внеочередного запуска цикла
func (s *Server) handleAPIExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Метод не поддерживается", http.StatusMethodNotAllowed)
		return
	}

	report, err := s.hedgeUseCase.ExecuteHedgeStrategy(r.Context())
	if err != nil {
		s.sendJSON(w, APIResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	s.sendJSON(w, APIResponse{
		Success: true,
		Message: "Цикл хеджирования выполнен",
		Data:    convertToCycleView(report),
	})
}

// handleAPICheckStatus API для проверки квитанций отправленных сделок
func (s *Server) handleAPICheckStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Метод не поддерживается", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	before, _ := s.hedgeRepo.GetPendingTrades(ctx)

	if err := s.statusCheckerUseCase.CheckPendingTrades(ctx); err != nil {
		s.sendJSON(w, APIResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	after, _ := s.hedgeRepo.GetPendingTrades(ctx)

	updated := len(before) - len(after)
	if updated < 0 {
		updated = 0
	}

	s.sendJSON(w, APIResponse{
		Success: true,
		Message: "Статусы сделок проверены",
		Updated: updated,
	})
}

func convertToDecisionViews(records []*entities.HedgeRecord) []DecisionView {
	views := make([]DecisionView, len(records))
	for i, rec := range records {
		views[i] = DecisionView{
			ID:              rec.ID,
			CycleID:         rec.CycleID.String(),
			Token:           rec.Token,
			Pool:            rec.Pool,
			MarketMaker:     rec.MarketMaker,
			CreatedAt:       rec.CreatedAt,
			TargetDelta:     rec.TargetDelta.String(),
			CurrentHedge:    rec.CurrentHedge.String(),
			Spot:            rec.Spot.String(),
			TradeHedge:      rec.TradeHedge.String(),
			TradeValue:      rec.TradeValue.String(),
			Direction:       string(rec.Direction),
			Outcome:         string(rec.Outcome),
			ErrorKind:       rec.ErrorKind,
			Error:           rec.Error,
			TxHash:          rec.TxHash,
			LastStatusCheck: rec.LastStatusCheck,
		}
		if rec.TxHash != "" {
			views[i].TxStatus = rec.TxStatus.String()
		}
	}
	return views
}

func convertToCycleView(report *usecases.CycleReport) *CycleView {
	if report == nil {
		return nil
	}

	view := &CycleView{
		CycleID:      report.CycleID.String(),
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
		Tokens:       len(report.Tokens),
		FailedTokens: report.FailedTokens(),
		Decisions:    convertToDecisionViews(report.Records()),
	}
	for _, tr := range report.Tokens {
		if tr != nil && tr.Err != nil {
			if view.TokenErrors == nil {
				view.TokenErrors = make(map[string]string)
			}
			view.TokenErrors[tr.Token] = tr.Err.Error()
		}
	}
	return view
}

// sendJSON отправляет JSON ответ
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Ошибка кодирования JSON", http.StatusInternalServerError)
	}
}

// sendError отправляет ошибку в JSON формате
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	response := APIResponse{
		Success: false,
		Message: message,
	}

	_ = json.NewEncoder(w).Encode(response)
}
