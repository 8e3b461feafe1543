// Package gateway abstracts the external card processor. The simulated
// implementation stands in for a real acquirer during development and load
// testing.
package gateway

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChargeResult is the outcome of a charge attempt. Declined charges come
// back with Success false and a reason, not an error; errors are reserved
// for the gateway itself being unusable.
type ChargeResult struct {
	Success       bool
	TransactionID string
	Message       string
}

// RefundResult is the outcome of a refund attempt.
type RefundResult struct {
	Success  bool
	RefundID string
	Message  string
}

// Processor is the card processor the payment service charges and refunds
// through.
type Processor interface {
	Charge(ctx context.Context, amount float64, method string) (*ChargeResult, error)
	Refund(ctx context.Context, transactionID string, amount float64) (*RefundResult, error)
}

const (
	defaultChargeSuccessRate = 0.90
	defaultRefundSuccessRate = 0.95
)

var declineMessages = []string{
	"Card declined by issuing bank",
	"Insufficient funds",
	"Card reported lost or stolen",
	"Transaction flagged by fraud screening",
}

// SimulatedProcessor approves charges and refunds at fixed rates. The random
// source is injectable so tests can force either outcome.
type SimulatedProcessor struct {
	chargeSuccessRate float64
	refundSuccessRate float64
	logger            *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedProcessor creates a processor with the default approval rates.
func NewSimulatedProcessor(logger *zap.Logger) *SimulatedProcessor {
	return &SimulatedProcessor{
		chargeSuccessRate: defaultChargeSuccessRate,
		refundSuccessRate: defaultRefundSuccessRate,
		logger:            logger,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSimulatedProcessorWithRates creates a processor with explicit approval
// rates and a seeded random source. Rates of 1 and 0 make outcomes
// deterministic.
func NewSimulatedProcessorWithRates(chargeRate, refundRate float64, seed int64, logger *zap.Logger) *SimulatedProcessor {
	return &SimulatedProcessor{
		chargeSuccessRate: chargeRate,
		refundSuccessRate: refundRate,
		logger:            logger,
		rng:               rand.New(rand.NewSource(seed)),
	}
}

func (p *SimulatedProcessor) roll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

// Charge simulates a charge attempt against the card network.
func (p *SimulatedProcessor) Charge(ctx context.Context, amount float64, method string) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.roll() < p.chargeSuccessRate {
		txnID := "txn_" + uuid.New().String()
		p.logger.Info("charge approved",
			zap.String("transaction_id", txnID),
			zap.Float64("amount", amount),
			zap.String("method", method))
		return &ChargeResult{Success: true, TransactionID: txnID}, nil
	}

	msg := declineMessages[int(p.roll()*float64(len(declineMessages)))%len(declineMessages)]
	p.logger.Info("charge declined",
		zap.Float64("amount", amount),
		zap.String("reason", msg))
	return &ChargeResult{Success: false, Message: msg}, nil
}

// Refund simulates a refund of a previously captured transaction.
func (p *SimulatedProcessor) Refund(ctx context.Context, transactionID string, amount float64) (*RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.roll() < p.refundSuccessRate {
		refundID := "ref_" + uuid.New().String()
		p.logger.Info("refund approved",
			zap.String("transaction_id", transactionID),
			zap.String("refund_id", refundID),
			zap.Float64("amount", amount))
		return &RefundResult{Success: true, RefundID: refundID}, nil
	}

	p.logger.Info("refund rejected",
		zap.String("transaction_id", transactionID),
		zap.Float64("amount", amount))
	return &RefundResult{Success: false, Message: "Refund rejected by processor"}, nil
}
