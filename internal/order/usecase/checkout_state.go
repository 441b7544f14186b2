package usecase

import (
	"fmt"
	"time"

	"bazaar/internal/dto"
	apperrors "bazaar/internal/errors"

	"go.uber.org/zap"
)

var transitions = map[dto.CheckoutState][]dto.CheckoutState{
	dto.CheckoutValidating: {dto.CheckoutCreating, dto.CheckoutRejected, dto.CheckoutFailed},
	dto.CheckoutCreating:   {dto.CheckoutCommitting, dto.CheckoutFailed},
	dto.CheckoutCommitting: {dto.CheckoutCompleted, dto.CheckoutFailed},
}

func CanTransition(from, to dto.CheckoutState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkoutTracker follows one checkout through its states and refuses
// moves the state machine does not allow.
type checkoutTracker struct {
	state   dto.CheckoutState
	history []dto.CheckoutState
	started time.Time
	logger  *zap.Logger
}

func newCheckoutTracker(logger *zap.Logger, now time.Time) *checkoutTracker {
	return &checkoutTracker{
		state:   dto.CheckoutValidating,
		history: []dto.CheckoutState{dto.CheckoutValidating},
		started: now,
		logger:  logger,
	}
}

func (t *checkoutTracker) State() dto.CheckoutState {
	return t.state
}

func (t *checkoutTracker) History() []dto.CheckoutState {
	out := make([]dto.CheckoutState, len(t.history))
	copy(out, t.history)
	return out
}

func (t *checkoutTracker) advance(next dto.CheckoutState) error {
	if !CanTransition(t.state, next) {
		t.logger.Error("illegal checkout transition",
			zap.String("from", string(t.state)),
			zap.String("to", string(next)),
		)
		return apperrors.NewInternalError(fmt.Sprintf("illegal checkout transition %s -> %s", t.state, next), nil)
	}

	t.logger.Debug("checkout state changed",
		zap.String("from", string(t.state)),
		zap.String("to", string(next)),
	)
	t.state = next
	t.history = append(t.history, next)
	return nil
}

// settle moves to the terminal state matching err: Rejected for
// user-correctable rejections seen while validating, Failed otherwise.
func (t *checkoutTracker) settle(err error) {
	next := dto.CheckoutFailed
	if t.state == dto.CheckoutValidating && apperrors.IsRejection(err) {
		next = dto.CheckoutRejected
	}
	_ = t.advance(next)
}
