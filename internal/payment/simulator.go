package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Charge struct {
	UserID string
	Method string
	Amount decimal.Decimal
}

type Receipt struct {
	ID         string
	Method     string
	Amount     decimal.Decimal
	ApprovedAt time.Time
}

// Simulator stands in for a card/UPI gateway. It waits a fixed delay and
// always approves.
type Simulator struct {
	delay  time.Duration
	logger *zap.Logger
}

func NewSimulator(delay time.Duration, logger *zap.Logger) *Simulator {
	return &Simulator{delay: delay, logger: logger}
}

func (s *Simulator) Authorize(ctx context.Context, charge Charge) (*Receipt, error) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.logger.Warn("payment authorization abandoned",
			zap.String("userId", charge.UserID),
			zap.Error(ctx.Err()),
		)
		return nil, ctx.Err()
	case <-timer.C:
	}

	receipt := &Receipt{
		ID:         uuid.NewString(),
		Method:     charge.Method,
		Amount:     charge.Amount,
		ApprovedAt: time.Now().UTC(),
	}

	s.logger.Info("payment approved",
		zap.String("receiptId", receipt.ID),
		zap.String("userId", charge.UserID),
		zap.String("method", charge.Method),
		zap.String("amount", charge.Amount.String()),
	)

	return receipt, nil
}
