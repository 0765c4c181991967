package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestHedgeError_WrapAndClassify(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("цикл: %w", NewQuoteUnavailableError("ETH", cause))

	if !Is(err, ErrorTypeQuoteUnavailable) {
		t.Fatal("wrapped error must still be QuoteUnavailable")
	}
	if !stderrors.Is(err, cause) {
		t.Error("cause must be reachable through Unwrap")
	}
	if got := KindOf(err); got != "QuoteUnavailable" {
		t.Errorf("got %q, want %q", got, "QuoteUnavailable")
	}
}

func TestHedgeError_Policy(t *testing.T) {
	tests := []struct {
		err       *HedgeError
		expected  bool
		operator  bool
		retryable bool
	}{
		{NewOracleUnavailableError("ETH", nil), true, false, true},
		{NewQuoteUnavailableError("ETH", nil), true, false, true},
		{NewUnsupportedTenorError("ETH", 3600), false, true, false},
		{NewTradeRejectedError("ETH", "trade(...)", nil), false, true, false},
		{NewInsufficientAllowanceError("USDC", "1", "0"), false, false, true},
		{&HedgeError{Type: ErrorTypeTradeDropped, Token: "ETH"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.err.Type.String(), func(t *testing.T) {
			if tt.err.IsExpected() != tt.expected {
				t.Errorf("IsExpected() = %v, want %v", tt.err.IsExpected(), tt.expected)
			}
			if tt.err.RequiresOperator() != tt.operator {
				t.Errorf("RequiresOperator() = %v, want %v", tt.err.RequiresOperator(), tt.operator)
			}
			if tt.err.IsRetryable() != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", tt.err.IsRetryable(), tt.retryable)
			}
		})
	}
}

func TestKindOf_Untyped(t *testing.T) {
	if KindOf(nil) != "" {
		t.Error("nil error must have empty kind")
	}
	if KindOf(stderrors.New("x")) != "Unknown" {
		t.Error("untyped error must be Unknown")
	}
}
