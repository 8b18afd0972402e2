package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// Request is what a Gateway is asked to authorize.
type Request struct {
	OrderID string
	UserID  string
	Amount  decimal.Decimal
	Method  payment.Method
}

// Decision is a Gateway's answer.
type Decision struct {
	Approved bool
	// Reason explains a decline.
	Reason string
}

// Gateway decides whether a settlement attempt succeeds.
type Gateway interface {
	Authorize(ctx context.Context, req Request) (Decision, error)
}

var _ Gateway = ApproveAll{}

// ApproveAll approves every request after Latency, or fails early when ctx
// is done.
type ApproveAll struct {
	Latency time.Duration
}

func (g ApproveAll) Authorize(ctx context.Context, _ Request) (Decision, error) {
	if g.Latency <= 0 {
		return Decision{Approved: true}, ctx.Err()
	}

	timer := time.NewTimer(g.Latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case <-timer.C:
		return Decision{Approved: true}, nil
	}
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, req Request) (Decision, error)

func (f GatewayFunc) Authorize(ctx context.Context, req Request) (Decision, error) {
	return f(ctx, req)
}
