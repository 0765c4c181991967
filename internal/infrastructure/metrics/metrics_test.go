package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"delta-hedge/internal/domain/entities"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestMetrics_RecordDecision(t *testing.T) {
	m := NewMetrics()

	rec := entities.NewHedgeRecord(uuid.New(), "ETH", "0xpool", "0xmm", entities.DecideHedge(
		decimal.NewFromInt(2), decimal.Zero, decimal.NewFromInt(1000), decimal.NewFromInt(500)))
	rec.Outcome = entities.HedgeOutcomeDryRun
	m.RecordDecision(rec)

	if got := testutil.ToFloat64(m.Decisions.WithLabelValues("ETH", "DRY_RUN", "")); got != 1 {
		t.Errorf("got %f decisions, want 1", got)
	}
	if got := testutil.ToFloat64(m.TargetDelta.WithLabelValues("ETH", "0xpool")); got != 2 {
		t.Errorf("got target delta %f, want 2", got)
	}

	failed := entities.NewHedgeRecord(uuid.New(), "BTC", "", "", entities.TradeInstruction{})
	failed.Outcome = entities.HedgeOutcomeFailed
	failed.ErrorKind = "OracleUnavailable"
	m.RecordDecision(failed)

	if got := testutil.ToFloat64(m.Decisions.WithLabelValues("BTC", "FAILED", "OracleUnavailable")); got != 1 {
		t.Errorf("got %f failures, want 1", got)
	}
}

func TestMetrics_HandlerAndPush(t *testing.T) {
	m := NewMetrics()
	m.RecordCycle(1500*time.Millisecond, 3, 1)
	m.RecordTradeStatus(entities.TradeStatusConfirmed)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	for _, want := range []string{"hedger_cycle_failed_tokens 1", `hedger_trade_receipts_total{status="CONFIRMED"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	var pushed bool
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/metrics/job/delta_hedger") {
			pushed = true
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	if err := m.Push(context.Background(), gateway.URL, "delta_hedger"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if !pushed {
		t.Error("pushgateway was not called")
	}
	if err := m.Push(context.Background(), "", "delta_hedger"); err != nil {
		t.Errorf("empty url must be a no-op, got %v", err)
	}
}
