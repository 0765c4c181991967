package clients

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"delta-hedge/internal/domain/services"
	"delta-hedge/internal/infrastructure/config"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const routerAddress = "0x1111111254fb6c44bAC0beD2854e76F90643097d"

func newTestClient(t *testing.T, handler http.HandlerFunc) *OneInchClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOneInchClient(&config.AggregatorConfig{
		BaseURL:  srv.URL + "/v4.0/137/",
		APIKey:   "secret",
		Slippage: 1,
		Timeout:  5,
	})
}

func TestOneInchClient_SpenderIsCached(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/v4.0/137/approve/spender" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("got auth header %q", got)
		}
		w.Write([]byte(`{"address":"` + routerAddress + `"}`))
	})

	for i := 0; i < 3; i++ {
		spender, err := client.Spender(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if spender != common.HexToAddress(routerAddress) {
			t.Errorf("got spender %s", spender.Hex())
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("spender requested %d times, want 1", calls)
	}
}

func TestOneInchClient_Swap(t *testing.T) {
	from := common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	to := common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	mm := common.HexToAddress("0xE896ad64c88042F4f397DE14f3B034957969616C")

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/swap") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("amount") != "2000000000" {
			t.Errorf("got amount %s", q.Get("amount"))
		}
		if q.Get("fromAddress") != mm.Hex() || q.Get("disableEstimate") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("slippage") != "1" {
			t.Errorf("got slippage %s", q.Get("slippage"))
		}
		w.Write([]byte(`{"toTokenAmount":"1000000000000000000","tx":{"to":"` + routerAddress + `","data":"0x12aa3caf00ff"}}`))
	})

	quote, err := client.Swap(context.Background(), services.SwapRequest{
		FromToken:   from,
		ToToken:     to,
		Amount:      big.NewInt(2_000_000_000),
		FromAddress: mm,
		Slippage:    decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quote.CallData) != 6 || quote.CallData[0] != 0x12 {
		t.Errorf("got calldata %x", quote.CallData)
	}
	if quote.ToAmount == nil || quote.ToAmount.String() != "1000000000000000000" {
		t.Errorf("got to amount %v", quote.ToAmount)
	}
}

func TestOneInchClient_SwapErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error", http.StatusBadRequest, `{"statusCode":400,"error":"Bad Request","description":"insufficient liquidity"}`, "insufficient liquidity"},
		{"server down", http.StatusBadGateway, `oops`, "502"},
		{"no calldata", http.StatusOK, `{"tx":{"to":"` + routerAddress + `"}}`, "calldata"},
		{"bad calldata", http.StatusOK, `{"tx":{"data":"zz"}}`, "calldata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := client.Swap(context.Background(), services.SwapRequest{Amount: big.NewInt(1)})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestOneInchClient_SwapRejectsZeroAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})
	if _, err := client.Swap(context.Background(), services.SwapRequest{Amount: big.NewInt(0)}); err == nil {
		t.Error("expected error for zero amount")
	}
}
