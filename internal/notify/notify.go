// Package notify emits fire-and-forget checkout events.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/settlement"
)

// Event types, sent in the "type" message header.
const (
	TypeOrderPlaced = "order.placed"
	TypeSettled     = "payment.settled"
)

// Notifier receives order and settlement events.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *order.Order)
	Settled(ctx context.Context, r *settlement.Result)
}

var (
	_ Notifier = (*KafkaEmitter)(nil)
	_ Notifier = Log{}
)

// MessageWriter is the subset of *kafka.Writer used by KafkaEmitter.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ParseBrokers splits a comma-separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewWriter returns a kafka writer that keys messages by order id so all
// events of one order land on the same partition.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// KafkaEmitter publishes events to Kafka in the background. Publish
// failures are logged and dropped.
type KafkaEmitter struct {
	w       MessageWriter
	timeout time.Duration
	lg      *zap.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// NewKafkaEmitter creates an emitter writing through w. Each publish is
// bounded by timeout.
func NewKafkaEmitter(w MessageWriter, timeout time.Duration, lg *zap.Logger) *KafkaEmitter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaEmitter{w: w, timeout: timeout, lg: lg, now: time.Now}
}

func (e *KafkaEmitter) OrderPlaced(ctx context.Context, o *order.Order) {
	at := e.now().UTC()
	enc := jx.GetEncoder()
	enc.Obj(func(enc *jx.Encoder) {
		enc.Field("type", func(enc *jx.Encoder) { enc.Str(TypeOrderPlaced) })
		enc.Field("orderId", func(enc *jx.Encoder) { enc.Str(o.ID) })
		enc.Field("userId", func(enc *jx.Encoder) { enc.Str(o.UserID) })
		enc.Field("status", func(enc *jx.Encoder) { enc.Str(string(o.Status)) })
		enc.Field("totalAmount", func(enc *jx.Encoder) { enc.RawStr(o.TotalAmount.String()) })
		enc.Field("itemCount", func(enc *jx.Encoder) { enc.Int(len(o.Items)) })
		enc.Field("paymentMethod", func(enc *jx.Encoder) { enc.Str(o.PaymentMethod) })
		if o.VoucherCode != "" {
			enc.Field("voucherCode", func(enc *jx.Encoder) { enc.Str(o.VoucherCode) })
		}
		enc.Field("occurredAt", func(enc *jx.Encoder) { enc.Str(at.Format(time.RFC3339Nano)) })
	})
	e.publish(ctx, TypeOrderPlaced, o.ID, enc)
}

func (e *KafkaEmitter) Settled(ctx context.Context, r *settlement.Result) {
	enc := jx.GetEncoder()
	enc.Obj(func(enc *jx.Encoder) {
		enc.Field("type", func(enc *jx.Encoder) { enc.Str(TypeSettled) })
		enc.Field("orderId", func(enc *jx.Encoder) { enc.Str(r.OrderID) })
		enc.Field("method", func(enc *jx.Encoder) { enc.Str(string(r.Method)) })
		enc.Field("state", func(enc *jx.Encoder) { enc.Str(string(r.State)) })
		enc.Field("success", func(enc *jx.Encoder) { enc.Bool(r.Success) })
		enc.Field("amount", func(enc *jx.Encoder) { enc.RawStr(r.Amount.String()) })
		if r.TransactionID != "" {
			enc.Field("transactionId", func(enc *jx.Encoder) { enc.Str(r.TransactionID) })
		}
		enc.Field("message", func(enc *jx.Encoder) { enc.Str(r.Message) })
		enc.Field("occurredAt", func(enc *jx.Encoder) { enc.Str(r.At.Format(time.RFC3339Nano)) })
	})
	e.publish(ctx, TypeSettled, r.OrderID, enc)
}

func (e *KafkaEmitter) publish(ctx context.Context, eventType, key string, enc *jx.Encoder) {
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   append([]byte(nil), enc.Bytes()...),
		Time:    e.now().UTC(),
		Headers: []kafka.Header{{Key: "type", Value: []byte(eventType)}},
	}
	jx.PutEncoder(enc)

	// Detach from the request: the caller never waits for delivery.
	ctx = context.WithoutCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		if err := e.w.WriteMessages(ctx, msg); err != nil {
			e.lg.Warn("Publish event",
				zap.String("type", eventType),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}()
}

// Close waits for in-flight publishes and closes the writer.
func (e *KafkaEmitter) Close() error {
	e.wg.Wait()
	return e.w.Close()
}

// Log writes events to the request logger. It is used when no broker is
// configured.
type Log struct{}

func (Log) OrderPlaced(ctx context.Context, o *order.Order) {
	zctx.From(ctx).Info("Event",
		zap.String("type", TypeOrderPlaced),
		zap.String("order_id", o.ID),
		zap.Stringer("total", o.TotalAmount),
	)
}

func (Log) Settled(ctx context.Context, r *settlement.Result) {
	zctx.From(ctx).Info("Event",
		zap.String("type", TypeSettled),
		zap.String("order_id", r.OrderID),
		zap.String("state", string(r.State)),
		zap.String("transaction_id", r.TransactionID),
	)
}
