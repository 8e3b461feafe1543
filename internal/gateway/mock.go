package gateway

import "context"

// MockProcessor is a scriptable Processor for testing.
type MockProcessor struct {
	ChargeResult *ChargeResult
	ChargeErr    error
	RefundResult *RefundResult
	RefundErr    error

	ChargeCalls []float64
	RefundCalls []string
}

func (m *MockProcessor) Charge(ctx context.Context, amount float64, method string) (*ChargeResult, error) {
	m.ChargeCalls = append(m.ChargeCalls, amount)
	if m.ChargeErr != nil {
		return nil, m.ChargeErr
	}
	if m.ChargeResult != nil {
		return m.ChargeResult, nil
	}
	return &ChargeResult{Success: true, TransactionID: "txn_test"}, nil
}

func (m *MockProcessor) Refund(ctx context.Context, transactionID string, amount float64) (*RefundResult, error) {
	m.RefundCalls = append(m.RefundCalls, transactionID)
	if m.RefundErr != nil {
		return nil, m.RefundErr
	}
	if m.RefundResult != nil {
		return m.RefundResult, nil
	}
	return &RefundResult{Success: true, RefundID: "ref_test"}, nil
}
