package consumer

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

// Keys the payment consumer binds to.
var PaymentKeys = []string{domain.RKPaymentPaid, domain.RKPaymentRefunded, domain.RKPaymentPending}

var paymentStatusByKey = map[string]domain.PaymentStatus{
	domain.RKPaymentPaid:     domain.PaymentSuccess,
	domain.RKPaymentRefunded: domain.PaymentRefunded,
	domain.RKPaymentPending:  domain.PaymentPending,
}

// Action tells the delivery loop how to settle a message.
type Action int

const (
	Ack Action = iota
	// DeadLetter rejects without requeue so the broker routes it to the DLX.
	DeadLetter
	Requeue
)

func (a Action) String() string {
	switch a {
	case Ack:
		return "ack"
	case DeadLetter:
		return "dead-letter"
	default:
		return "requeue"
	}
}

// Source yields deliveries. *mq.Consumer satisfies it.
type Source interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

type PaymentConsumer struct {
	scope domain.TransactionScope
	src   Source
	log   *zap.Logger
}

func NewPaymentConsumer(scope domain.TransactionScope, src Source, log *zap.Logger) *PaymentConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentConsumer{scope: scope, src: src, log: log.Named("payment-consumer")}
}

// Run consumes until ctx is cancelled or the channel closes.
func (pc *PaymentConsumer) Run(ctx context.Context) error {
	msgs, err := pc.src.Deliveries(ctx)
	if err != nil {
		return err
	}
	for d := range msgs {
		switch pc.Handle(ctx, d.RoutingKey, d.MessageId, d.Body) {
		case Ack:
			_ = d.Ack(false)
		case DeadLetter:
			_ = d.Nack(false, false)
		case Requeue:
			_ = d.Nack(false, true)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("payment deliveries closed")
}

// Handle applies one payment event. The event id is recorded in the same
// transaction as the status change, so redelivery is a no-op.
func (pc *PaymentConsumer) Handle(ctx context.Context, key, msgID string, body []byte) Action {
	to, ok := paymentStatusByKey[key]
	if !ok {
		pc.log.Debug("ignoring routing key", zap.String("key", key))
		return Ack
	}
	evt, err := domain.Decode[domain.PaymentEvent](body)
	if err != nil {
		pc.log.Warn("malformed payment event", zap.String("key", key), zap.Error(err))
		return DeadLetter
	}
	if evt.Data.BookingID == "" || (msgID == "" && evt.Data.PaymentID == "") {
		pc.log.Warn("payment event without booking or event id", zap.String("key", key))
		return DeadLetter
	}
	eventID := msgID
	if eventID == "" {
		eventID = evt.Data.PaymentID + ":" + key
	}

	log := pc.log.With(
		zap.String("event_id", eventID),
		zap.String("key", key),
		zap.String("booking_id", evt.Data.BookingID))

	applied := false
	err = pc.scope.Execute(ctx, func(st domain.Stores) error {
		fresh, err := st.Events.MarkConsumed(ctx, eventID, key)
		if err != nil || !fresh {
			return err
		}
		applied = true
		return st.Bookings.UpdatePaymentStatus(ctx, evt.Data.BookingID, to)
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.Warn("payment event for unknown booking dropped")
		return Ack
	case err != nil:
		log.Error("apply payment event failed", zap.Error(err))
		return Requeue
	case !applied:
		log.Debug("duplicate payment event")
		return Ack
	}
	log.Info("payment status updated", zap.String("payment_status", string(to)))
	return Ack
}
