package gateway

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestChargeAlwaysApproves(t *testing.T) {
	p := NewSimulatedProcessorWithRates(1, 1, 42, zap.NewNop())

	result, err := p.Charge(context.Background(), 56, "Credit Card")
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if !result.Success {
		t.Fatal("expected approval at rate 1")
	}
	if !strings.HasPrefix(result.TransactionID, "txn_") {
		t.Errorf("TransactionID = %q, want txn_ prefix", result.TransactionID)
	}
}

func TestChargeAlwaysDeclines(t *testing.T) {
	p := NewSimulatedProcessorWithRates(0, 0, 42, zap.NewNop())

	result, err := p.Charge(context.Background(), 56, "Credit Card")
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if result.Success {
		t.Fatal("expected decline at rate 0")
	}
	if result.Message == "" {
		t.Error("declined charge must carry a reason")
	}
	if result.TransactionID != "" {
		t.Error("declined charge must not carry a transaction id")
	}
}

func TestRefundOutcomes(t *testing.T) {
	approve := NewSimulatedProcessorWithRates(1, 1, 7, zap.NewNop())
	result, err := approve.Refund(context.Background(), "txn_abc", 56)
	if err != nil {
		t.Fatalf("Refund failed: %v", err)
	}
	if !result.Success || !strings.HasPrefix(result.RefundID, "ref_") {
		t.Errorf("unexpected refund result: %+v", result)
	}

	reject := NewSimulatedProcessorWithRates(1, 0, 7, zap.NewNop())
	result, err = reject.Refund(context.Background(), "txn_abc", 56)
	if err != nil {
		t.Fatalf("Refund failed: %v", err)
	}
	if result.Success || result.Message == "" {
		t.Errorf("expected rejection with reason, got %+v", result)
	}
}

func TestChargeHonorsCancelledContext(t *testing.T) {
	p := NewSimulatedProcessorWithRates(1, 1, 1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Charge(ctx, 56, "Credit Card"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
