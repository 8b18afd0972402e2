package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/storefront-checkout/internal/domain/address"
	"github.com/xenking/storefront-checkout/internal/domain/apperr"
	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/voucher"
)

const instrumentationName = "github.com/xenking/storefront-checkout/internal/domain/order"

// Placement failures.
var (
	// ErrOrderPlacementFailed means the outcome of the write is unknown. The
	// caller must check order history before resubmitting.
	ErrOrderPlacementFailed = apperr.New(apperr.KindTransaction, "order could not be confirmed")
	// ErrVoucherRejected means the applied voucher no longer passes the
	// ledger's rules.
	ErrVoucherRejected = apperr.New(apperr.KindValidation, "the applied voucher no longer applies, review your order")
)

// Drafter prices a checkout session.
type Drafter interface {
	Draft(ctx context.Context, s *checkout.Session) (*checkout.Draft, error)
}

// CartRemover removes purchased products from a user's cart.
type CartRemover interface {
	RemoveItems(ctx context.Context, userID string, productIDs []string) error
}

// Notifier receives fire-and-forget order events. Implementations must not
// block.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order)
}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(context.Context, *Order) {}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the order event sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMeterProvider sets the meter provider for placement metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for placement spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithPlacementTimeout bounds a single placement attempt. Zero disables the
// bound and leaves timeouts to the database client.
func WithPlacementTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// Service places orders from checkout sessions.
type Service struct {
	drafts    Drafter
	addresses address.Book
	vouchers  voucher.Validator
	orders    Repository
	carts     CartRemover
	notifier  Notifier
	timeout   time.Duration
	now       func() time.Time

	inflight singleflight.Group

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	placed         metric.Int64Counter
	failed         metric.Int64Counter
	duration       metric.Float64Histogram
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	drafts Drafter,
	addresses address.Book,
	vouchers voucher.Validator,
	orders Repository,
	carts CartRemover,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		drafts:         drafts,
		addresses:      addresses,
		vouchers:       vouchers,
		orders:         orders,
		carts:          carts,
		notifier:       nopNotifier{},
		now:            time.Now,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	meter := s.meterProvider.Meter(instrumentationName)
	s.tracer = s.tracerProvider.Tracer(instrumentationName)

	var err error
	if s.placed, err = meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders committed"),
	); err != nil {
		return nil, errors.Wrap(err, "placed counter")
	}
	if s.failed, err = meter.Int64Counter("checkout.orders.failed",
		metric.WithDescription("Order placements that ended in an error"),
	); err != nil {
		return nil, errors.Wrap(err, "failed counter")
	}
	if s.duration, err = meter.Float64Histogram("checkout.orders.placement.duration",
		metric.WithDescription("Order placement latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, errors.Wrap(err, "duration histogram")
	}

	return s, nil
}

// PlaceOrder commits the session's draft as a PENDING order and removes the
// purchased items from the cart.
//
// Overlapping calls for the same session share one attempt and observe the
// same result. The attempt is detached from the caller's cancellation so a
// client that goes away does not leave the write half-observed. A failed or
// timed out write is reported as ErrOrderPlacementFailed and never retried.
func (s *Service) PlaceOrder(ctx context.Context, sess *checkout.Session) (*Order, error) {
	v, err, shared := s.inflight.Do(sess.ID, func() (any, error) {
		return s.place(context.WithoutCancel(ctx), sess)
	})
	if shared {
		zctx.From(ctx).Debug("Order placement coalesced", zap.String("session_id", sess.ID))
	}
	if err != nil {
		return nil, err
	}
	return v.(*Order), nil
}

func (s *Service) place(ctx context.Context, sess *checkout.Session) (_ *Order, rerr error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "order.Place",
		trace.WithAttributes(attribute.String("checkout.session_id", sess.ID)),
	)
	start := s.now()
	defer func() {
		s.duration.Record(ctx, s.now().Sub(start).Seconds())
		if rerr != nil {
			kind := apperr.KindOf(rerr)
			s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
			span.RecordError(rerr)
			span.SetStatus(codes.Error, string(kind))
		}
		span.End()
	}()

	lg := zctx.From(ctx).With(zap.String("session_id", sess.ID), zap.String("user_id", sess.UserID))

	draft, err := s.drafts.Draft(ctx, sess)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "could not load checkout")
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	sel := draft.Selection

	addr, err := s.addresses.GetAddress(ctx, sel.AddressID)
	if err == nil && addr.UserID != sess.UserID {
		// Another user's address is reported exactly like a missing one.
		err = address.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return nil, apperr.Wrap(&AddressNotFoundError{AddressID: sel.AddressID},
				apperr.KindNotFound, "shipping address not found")
		}
		return nil, apperr.Wrap(errors.Wrap(err, "get address"), apperr.KindInternal, "could not load shipping address")
	}

	if draft.Voucher != nil {
		if err := s.revalidateVoucher(ctx, sess.UserID, draft); err != nil {
			return nil, err
		}
	}

	o := &Order{
		ID:              uuid.NewString(),
		UserID:          sess.UserID,
		Status:          StatusPending,
		Items:           make([]Item, len(draft.Items)),
		Subtotal:        draft.Subtotal,
		DeliveryFee:     draft.DeliveryFee,
		Discount:        draft.Discount,
		TotalAmount:     draft.Total,
		DeliveryMethod:  sel.DeliveryMethod,
		PaymentMethod:   string(sel.PaymentMethod),
		ShippingAddress: address.Snapshot(addr),
		CreatedAt:       s.now().UTC(),
	}
	for i, it := range draft.Items {
		o.Items[i] = Item{
			ProductID:       it.ProductID,
			Name:            it.Name,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.UnitPrice(),
		}
	}
	if draft.Voucher != nil {
		o.VoucherID = draft.Voucher.ID
		o.VoucherCode = draft.Voucher.Code
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	if err := s.orders.CreateWithItems(ctx, o); err != nil {
		lg.Error("Order write failed", zap.String("order_id", o.ID), zap.Error(err))
		return nil, apperr.Wrap(err, apperr.KindTransaction, ErrOrderPlacementFailed.Message())
	}

	// The order is committed from here on; cart cleanup cannot undo it.
	if err := s.carts.RemoveItems(ctx, sess.UserID, draft.ProductIDs()); err != nil {
		lg.Warn("Remove purchased items from cart",
			zap.String("order_id", o.ID),
			zap.Strings("product_ids", draft.ProductIDs()),
			zap.Error(err),
		)
	}

	sess.Reset()
	s.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("delivery_method", o.DeliveryMethod),
		attribute.String("payment_method", o.PaymentMethod),
	))
	s.notifier.OrderPlaced(ctx, o)

	lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.Stringer("total", o.TotalAmount),
		zap.Int("items", len(o.Items)),
	)
	return o, nil
}

// revalidateVoucher checks the draft's voucher against the ledger, including
// the user's claim, right before the write.
func (s *Service) revalidateVoucher(ctx context.Context, userID string, draft *checkout.Draft) error {
	res, err := s.vouchers.Validate(ctx, draft.Voucher.Code, draft.Subtotal, userID)
	if err != nil {
		return apperr.Wrap(errors.Wrap(err, "revalidate voucher"), apperr.KindInternal, "could not check voucher")
	}
	if !res.Valid {
		return errors.Wrap(ErrVoucherRejected, res.Message)
	}
	if !res.Discount.Equal(draft.Discount) {
		return errors.Wrapf(ErrVoucherRejected, "discount changed from %s to %s", draft.Discount, res.Discount)
	}
	return nil
}
