package webui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"delta-hedge/internal/adapters/repositories"
	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/infrastructure/config"
	"delta-hedge/internal/usecases"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T) (*httptest.Server, *repositories.MemoryHedgeRepository) {
	t.Helper()

	repo := repositories.NewMemoryHedgeRepository()
	hedgeUseCase := usecases.NewHedgeStrategyUseCase(nil, nil, repo, nil, &usecases.HedgeStrategyConfig{})
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "hedger_cycle_tokens 1\n")
	})

	s := NewServer(&config.WebUIConfig{Host: "localhost", Port: 8081}, repo, hedgeUseCase, nil, metricsHandler)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestServer_Decisions(t *testing.T) {
	srv, repo := newTestServer(t)

	instr := entities.DecideHedge(decimal.NewFromInt(1), decimal.Zero, decimal.NewFromInt(2000), decimal.NewFromInt(100))
	rec := entities.NewHedgeRecord(uuid.New(), "ETH", "0xpool", "0xmm", instr)
	rec.Outcome = entities.HedgeOutcomeDryRun
	if err := repo.SaveHedgeRecord(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/api/decisions?limit=10")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool           `json:"success"`
		Data    []DecisionView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || len(body.Data) != 1 {
		t.Fatalf("got %+v", body)
	}
	got := body.Data[0]
	if got.Direction != "BUY_UNDERLYING" || got.TradeValue != "2000" || got.Outcome != "DRY_RUN" {
		t.Errorf("got %+v", got)
	}
}

func TestServer_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/decisions?limit=abc")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/execute")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET execute: got %d, want 405", resp.StatusCode)
	}
}

func TestServer_StatusAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Success bool       `json:"success"`
		Data    StatusView `json:"data"`
	}
	err = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Data.LastCycle != nil {
		t.Errorf("got %+v, want no cycle yet", body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(raw), "hedger_cycle_tokens") {
		t.Errorf("metrics not served: %q", raw)
	}
}
