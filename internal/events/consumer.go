package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	CheckoutTopic = "checkout-outbox"
	ConsumerGroup = "cart-service-consumer"
)

// CartDeleter removes a user's cart.
type CartDeleter interface {
	DeleteCart(ctx context.Context, userID string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// checkoutCompleted is the part of the checkout outbox payload the cart cares about.
type checkoutCompleted struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// CheckoutConsumer empties a user's cart once their checkout completes.
type CheckoutConsumer struct {
	carts   CartDeleter
	reader  messageReader
	log     *zap.Logger
	backoff time.Duration
}

func NewCheckoutConsumer(carts CartDeleter, log *zap.Logger, brokers ...string) *CheckoutConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    CheckoutTopic,
		GroupID:  ConsumerGroup,
		MaxBytes: 10e6, // 10MB
	})
	return newCheckoutConsumer(carts, reader, log)
}

func newCheckoutConsumer(carts CartDeleter, reader messageReader, log *zap.Logger) *CheckoutConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutConsumer{
		carts:   carts,
		reader:  reader,
		log:     log.With(zap.String("topic", CheckoutTopic)),
		backoff: time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (c *CheckoutConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("read checkout message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		if err := c.handleMessage(ctx, m); err != nil {
			c.log.Warn("skipping checkout message",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
	}
}

func (c *CheckoutConsumer) Close() error {
	return c.reader.Close()
}

func (c *CheckoutConsumer) handleMessage(ctx context.Context, m kafka.Message) error {
	var event checkoutCompleted
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("parse message: %w", err)
	}
	if event.UserID == "" {
		return errors.New("missing user_id")
	}

	err := c.carts.DeleteCart(ctx, event.UserID)
	switch {
	case err == nil:
		c.log.Info("cart cleared after checkout",
			zap.String("user_id", event.UserID),
			zap.String("checkout_id", event.CheckoutID))
		return nil
	case errors.Is(err, domain.ErrNotFound):
		c.log.Debug("no cart to clear after checkout", zap.String("user_id", event.UserID))
		return nil
	default:
		return fmt.Errorf("delete cart for %s: %w", event.UserID, err)
	}
}
