package payments

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// BreakerSettings tunes the circuit breaker around the payment gateway.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerGateway stops calling the wrapped gateway after consecutive outages
// and fails fast with a dependency error while open.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[CheckoutSession]
}

func NewBreakerGateway(next Gateway, settings BreakerSettings, logg *logger.Logger) *BreakerGateway {
	if logg == nil {
		logg = logger.Nop()
	}
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := settings.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[CheckoutSession](gobreaker.Settings{
		Name:        "payments.checkout_session",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Rejected requests say nothing about gateway health.
		IsSuccessful: func(err error) bool {
			return err == nil || pkgerrors.Classify(err) != pkgerrors.KindTransient
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "payments.breaker_state_changed")
		},
	})
	return &BreakerGateway{next: next, cb: cb}
}

func (b *BreakerGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	session, err := b.cb.Execute(func() (CheckoutSession, error) {
		return b.next.CreateCheckoutSession(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return CheckoutSession{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider temporarily unavailable")
	}
	return session, err
}

// State exposes the breaker state for health reporting.
func (b *BreakerGateway) State() string {
	return b.cb.State().String()
}
