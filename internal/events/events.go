package events

import (
	"context"
	"time"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/google/uuid"
)

type Type string

const (
	ItemAdded       Type = "cart.item_added"
	ItemRemoved     Type = "cart.item_removed"
	QuantityUpdated Type = "cart.quantity_updated"
	CartDeleted     Type = "cart.deleted"
)

// Event describes a committed cart change. Cart is nil for CartDeleted.
// For snapshot events OccurredAt is the cart's LastUpdated, stamped when the change
// was committed, so it orders snapshots of one cart even when they are published late.
type Event struct {
	ID         string       `json:"id"`
	Type       Type         `json:"type"`
	UserID     string       `json:"userId"`
	Cart       *domain.Cart `json:"cart,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}

func NewEvent(t Type, userID string, cart *domain.Cart, at time.Time) Event {
	if cart != nil && !cart.LastUpdated.IsZero() {
		at = cart.LastUpdated
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		Cart:       cart,
		OccurredAt: at.UTC(),
	}
}

// Publisher delivers cart events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
