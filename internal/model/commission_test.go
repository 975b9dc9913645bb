package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCommissionTransitions(t *testing.T) {
	tests := []struct {
		from, to CommissionStatus
		ok       bool
	}{
		{CommissionStatusPending, CommissionStatusProceed, true},
		{CommissionStatusProceed, CommissionStatusComplete, true},
		{CommissionStatusPending, CommissionStatusComplete, false},
		{CommissionStatusProceed, CommissionStatusPending, false},
		{CommissionStatusComplete, CommissionStatusProceed, false},
		{CommissionStatusComplete, CommissionStatusPending, false},
		{CommissionStatusPending, CommissionStatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestCommissionMature(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := &Commission{Status: CommissionStatusPending, HoldDays: 30, CreatedAt: created}

	if err := c.Mature(created.Add(29 * 24 * time.Hour)); !errors.Is(err, ErrHoldNotElapsed) {
		t.Fatalf("expected ErrHoldNotElapsed, got %v", err)
	}
	if c.Status != CommissionStatusPending || c.MaturedAt != nil {
		t.Fatal("failed maturation must not change the commission")
	}

	at := created.Add(30 * 24 * time.Hour)
	if err := c.Mature(at); err != nil {
		t.Fatalf("Mature: %v", err)
	}
	if c.Status != CommissionStatusProceed || c.MaturedAt == nil || !c.MaturedAt.Equal(at) {
		t.Fatalf("unexpected state after Mature: %+v", c)
	}

	if err := c.Mature(at.Add(time.Hour)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second Mature should fail with ErrInvalidTransition, got %v", err)
	}
	if !c.MaturedAt.Equal(at) {
		t.Fatal("matured_at must be set exactly once")
	}
}

func TestCommissionComplete(t *testing.T) {
	now := time.Now()
	c := &Commission{Status: CommissionStatusPending, HoldDays: 0, CreatedAt: now}

	if err := c.Complete(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("PENDING -> COMPLETE must be rejected, got %v", err)
	}
	if err := c.Mature(now); err != nil {
		t.Fatalf("zero hold should mature immediately: %v", err)
	}
	if err := c.Complete(now); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.PaidAt == nil || c.Status != CommissionStatusComplete {
		t.Fatalf("unexpected state after Complete: %+v", c)
	}
	if err := c.Complete(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("COMPLETE -> COMPLETE must be rejected, got %v", err)
	}
}

func TestComputeSellerBalance(t *testing.T) {
	id := uuid.New()
	b := ComputeSellerBalance(id, StatusTotals{
		CommissionStatusPending:  100,
		CommissionStatusProceed:  250,
		CommissionStatusComplete: 900,
	}, -50)

	if b.Pending != 100 || b.Due != 250 || b.PaidTotal != 900 {
		t.Fatalf("unexpected totals: %+v", b)
	}
	if b.Balance != 200 {
		t.Fatalf("balance = %d, want due plus adjustments (200)", b.Balance)
	}
	if b.SellerID != id {
		t.Fatal("seller id not carried")
	}
}

func TestMissionRewardFor(t *testing.T) {
	m := &Mission{SaleEnabled: true, RecurringEnabled: true}
	m.SaleReward.Kind = "PERCENTAGE"

	r, ok := m.RewardFor(CommissionSourceRecurring)
	if !ok || r.Kind != "PERCENTAGE" {
		t.Fatalf("recurring should fall back to sale terms, got %+v %v", r, ok)
	}
	if _, ok := m.RewardFor(CommissionSourceLead); ok {
		t.Fatal("lead is disabled")
	}
}

func TestPaymentEventValidate(t *testing.T) {
	ws := uuid.New()
	valid := PaymentEvent{EventID: "evt_1", EventType: EventCheckoutCompleted, WorkspaceID: ws, CustomerID: "cus_1", GrossAmount: 100}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	renewal := valid
	renewal.EventType = EventSubscriptionRenewed
	renewal.SubscriptionID = "sub_1"
	if err := renewal.Validate(); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("renewal without month should be malformed, got %v", err)
	}
	renewal.RecurringMonth = 1
	if err := renewal.Validate(); err != nil {
		t.Fatalf("renewal rejected: %v", err)
	}

	unknown := valid
	unknown.EventType = "refund.created"
	if err := unknown.Validate(); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("unknown type should be malformed, got %v", err)
	}
}
