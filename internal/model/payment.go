package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.completed"
	EventSubscriptionRenewed EventType = "subscription.renewed"
	EventLeadCreated         EventType = "lead.created"
)

var ErrMalformedEvent = errors.New("malformed payment event")

// PaymentEvent is the payload delivered by the payment processor webhook.
type PaymentEvent struct {
	EventID        string    `json:"event_id"`
	EventType      EventType `json:"event_type"`
	WorkspaceID    uuid.UUID `json:"workspace_id"`
	CustomerID     string    `json:"customer_id"`
	ClickID        string    `json:"click_id,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	RecurringMonth int       `json:"recurring_month,omitempty"`
	GrossAmount    int64     `json:"gross_amount"`
	Currency       string    `json:"currency"`
}

func (e *PaymentEvent) Source() (CommissionSource, bool) {
	switch e.EventType {
	case EventCheckoutCompleted:
		return CommissionSourceSale, true
	case EventSubscriptionRenewed:
		return CommissionSourceRecurring, true
	case EventLeadCreated:
		return CommissionSourceLead, true
	}
	return "", false
}

func (e *PaymentEvent) Validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("%w: event_id is required", ErrMalformedEvent)
	}
	source, ok := e.Source()
	if !ok {
		return fmt.Errorf("%w: unknown event_type %q", ErrMalformedEvent, e.EventType)
	}
	if e.WorkspaceID == uuid.Nil {
		return fmt.Errorf("%w: workspace_id is required", ErrMalformedEvent)
	}
	if e.CustomerID == "" && e.ClickID == "" {
		return fmt.Errorf("%w: customer_id or click_id is required", ErrMalformedEvent)
	}
	if e.GrossAmount < 0 {
		return fmt.Errorf("%w: gross_amount must not be negative", ErrMalformedEvent)
	}
	if source == CommissionSourceRecurring {
		if e.SubscriptionID == "" {
			return fmt.Errorf("%w: subscription_id is required for renewals", ErrMalformedEvent)
		}
		if e.RecurringMonth < 1 {
			return fmt.Errorf("%w: recurring_month must be at least 1", ErrMalformedEvent)
		}
	}
	return nil
}

// UnattributedEvent keeps an event that no seller could be resolved for,
// so it can be replayed once the attribution is repaired.
type UnattributedEvent struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	EventID    string     `json:"event_id" db:"event_id"`
	EventType  EventType  `json:"event_type" db:"event_type"`
	ClickID    *string    `json:"click_id,omitempty" db:"click_id"`
	CustomerID *string    `json:"customer_id,omitempty" db:"customer_id"`
	LinkID     *uuid.UUID `json:"link_id,omitempty" db:"link_id"`
	Reason     string     `json:"reason" db:"reason"`
	Payload    []byte     `json:"payload" db:"payload"`
	ReplayedAt *time.Time `json:"replayed_at,omitempty" db:"replayed_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
