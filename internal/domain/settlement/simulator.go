// Package settlement simulates payment settlement against placed orders.
//
// Each Settle call is an independent attempt that moves from Initiated to
// Succeeded or Failed. A failed attempt leaves the order untouched, so the
// caller may settle the same order again. Nothing here creates orders.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/apperr"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// State of a settlement attempt.
type State string

const (
	StateInitiated State = "INITIATED"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
)

// Result is the ephemeral outcome of one attempt.
type Result struct {
	OrderID       string
	Method        payment.Method
	Amount        decimal.Decimal
	State         State
	Success       bool
	Message       string
	TransactionID string
	// BankAccounts is set for bank transfers.
	BankAccounts []BankAccount
	// QRISPayload is set for QRIS payments.
	QRISPayload string
	At          time.Time
}

// Notifier receives fire-and-forget settlement events.
type Notifier interface {
	Settled(ctx context.Context, r *Result)
}

type nopNotifier struct{}

func (nopNotifier) Settled(context.Context, *Result) {}

// Config holds display settings for the simulator.
type Config struct {
	Merchant      string
	AccountHolder string
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithGateway replaces the default approve-all gateway.
func WithGateway(g Gateway) Option {
	return func(s *Simulator) { s.gateway = g }
}

// WithNotifier sets the settlement event sink.
func WithNotifier(n Notifier) Option {
	return func(s *Simulator) { s.notifier = n }
}

// WithMeterProvider sets the meter provider for settlement metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Simulator) { s.meterProvider = mp }
}

// Simulator settles payments for PENDING orders.
type Simulator struct {
	orders   order.Reader
	gateway  Gateway
	notifier Notifier
	cfg      Config
	now      func() time.Time

	meterProvider metric.MeterProvider
	attempts      metric.Int64Counter
}

// NewSimulator creates a Simulator reading orders from orders.
func NewSimulator(orders order.Reader, cfg Config, opts ...Option) (*Simulator, error) {
	if cfg.Merchant == "" {
		cfg.Merchant = "AlmaStore"
	}
	if cfg.AccountHolder == "" {
		cfg.AccountHolder = cfg.Merchant + " Indonesia"
	}
	s := &Simulator{
		orders:        orders,
		gateway:       ApproveAll{},
		notifier:      nopNotifier{},
		cfg:           cfg,
		now:           time.Now,
		meterProvider: metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	s.attempts, err = s.meterProvider.
		Meter("github.com/xenking/storefront-checkout/internal/domain/settlement").
		Int64Counter("checkout.settlements", metric.WithDescription("Settlement attempts by outcome"))
	if err != nil {
		return nil, errors.Wrap(err, "settlements counter")
	}
	return s, nil
}

// Settle runs one settlement attempt. The returned Result is never nil.
// When the attempt fails the error carries the apperr kind: NotFound for an
// unknown order, Conflict for an order that is no longer PENDING,
// Validation for a bad method or amount, Settlement for a decline.
func (s *Simulator) Settle(ctx context.Context, orderID string, amount decimal.Decimal, method payment.Method) (*Result, error) {
	res := &Result{
		OrderID: orderID,
		Method:  method,
		Amount:  amount,
		State:   StateInitiated,
	}
	lg := zctx.From(ctx).With(zap.String("order_id", orderID), zap.String("method", string(method)))

	err := s.settle(ctx, res)
	res.At = s.now().UTC()
	if err != nil {
		res.State = StateFailed
		res.Success = false
		if res.Message == "" {
			res.Message = apperr.MetadataFor(apperr.KindOf(err)).PublicMessage
		}
		lg.Info("Settlement failed", zap.String("reason", res.Message), zap.Error(err))
	} else {
		res.State = StateSucceeded
		res.Success = true
		lg.Info("Settlement succeeded", zap.String("transaction_id", res.TransactionID))
	}

	s.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(method)),
		attribute.String("state", string(res.State)),
	))
	s.notifier.Settled(ctx, res)
	return res, err
}

func (s *Simulator) settle(ctx context.Context, res *Result) error {
	if !res.Method.Valid() {
		res.Message = "invalid payment method"
		return apperr.New(apperr.KindValidation, res.Message)
	}

	o, err := s.orders.Get(ctx, res.OrderID)
	switch {
	case errors.Is(err, order.ErrNotFound):
		res.Message = "order not found"
		return apperr.Wrap(err, apperr.KindNotFound, res.Message)
	case err != nil:
		return apperr.Wrap(errors.Wrap(err, "get order"), apperr.KindInternal, "could not load order")
	}

	if o.Status != order.StatusPending {
		res.Message = fmt.Sprintf("cannot pay for order with status: %s", o.Status)
		return apperr.New(apperr.KindConflict, res.Message)
	}
	if !res.Amount.Equal(o.TotalAmount) {
		res.Message = fmt.Sprintf("amount %s does not match order total %s", res.Amount, o.TotalAmount)
		return apperr.New(apperr.KindValidation, res.Message)
	}

	decision, err := s.gateway.Authorize(ctx, Request{
		OrderID: o.ID,
		UserID:  o.UserID,
		Amount:  o.TotalAmount,
		Method:  res.Method,
	})
	if err != nil {
		res.Message = "payment processing failed"
		return apperr.Wrap(err, apperr.KindSettlement, res.Message)
	}
	if !decision.Approved {
		res.Message = decision.Reason
		if res.Message == "" {
			res.Message = "payment was declined"
		}
		return apperr.New(apperr.KindSettlement, res.Message)
	}

	res.TransactionID = payment.TransactionID(res.Method, o.ID)
	switch res.Method {
	case payment.MethodCOD:
		res.Message = "order placed, pay with cash upon delivery"
	case payment.MethodQRIS:
		res.Message = "scan the QRIS code to complete payment"
		res.QRISPayload = QRISPayload(s.cfg.Merchant, o.ID, o.TotalAmount, s.now())
	case payment.MethodBankTransfer:
		res.Message = "transfer to one of the following bank accounts"
		res.BankAccounts = BankAccounts(s.cfg.AccountHolder, o.TotalAmount)
	case payment.MethodEWallet:
		res.Message = "continue in your e-wallet app"
	case payment.MethodCard:
		res.Message = "card payment authorized"
	case payment.MethodCrypto:
		res.Message = "send the crypto payment to complete your order"
	}
	return nil
}
