package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/config"
	"github.com/traaaction/backend/internal/fees"
	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/reward"
	"github.com/traaaction/backend/internal/service"
	"github.com/traaaction/backend/internal/testutil"
)

type env struct {
	t         *testing.T
	ctx       context.Context
	store     *testutil.MemStore
	cache     *testutil.ClickCache
	locker    *testutil.Locker
	publisher *testutil.Publisher
	notifier  *testutil.Notifier
	clock     *testutil.Clock

	settings    *service.SettingsService
	attribution *service.AttributionService
	commissions *service.CommissionService
	catalog     *service.CatalogService
	maturation  *service.MaturationService
	payouts     *service.PayoutService
	balances    *service.BalanceService
	repair      *service.RepairService

	workspace uuid.UUID
	events    int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		t:         t,
		ctx:       context.Background(),
		store:     testutil.NewMemStore(),
		cache:     testutil.NewClickCache(),
		locker:    testutil.NewLocker(),
		publisher: &testutil.Publisher{},
		notifier:  testutil.NewNotifier(),
		clock:     testutil.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		workspace: uuid.New(),
	}

	sched := fees.DefaultSchedule()
	defaults := config.CommissionConfig{
		DefaultHoldDays:     30,
		TaxRate:             sched.TaxRate,
		ProcessorFeePercent: sched.ProcessorFeePercent,
		ProcessorFeeFixed:   sched.ProcessorFeeFixed,
		PlatformFeePercent:  sched.PlatformFeePercent,
		SweepBatchSize:      2,
		ClickTTL:            config.DefaultClickTTL,
	}

	e.settings = service.NewSettingsService(e.store, e.store, defaults)
	e.attribution = service.NewAttributionService(e.store, e.cache)
	e.commissions = service.NewCommissionService(e.store, e.attribution, e.settings, e.publisher)
	e.commissions.SetClock(e.clock.Now)
	e.catalog = service.NewCatalogService(e.store, e.cache, defaults.ClickTTL)

	e.maturation = service.NewMaturationService(e.store, defaults.SweepBatchSize)
	e.maturation.SetLocker(e.locker)
	e.maturation.SetPublisher(e.publisher)
	e.maturation.SetNotifier(e.notifier)
	e.maturation.SetClock(e.clock.Now)

	e.payouts = service.NewPayoutService(e.store, e.publisher)
	e.payouts.SetNotifier(e.notifier)
	e.payouts.SetClock(e.clock.Now)

	e.balances = service.NewBalanceService(e.store, e.publisher)
	e.repair = service.NewRepairService(e.store, e.commissions)
	return e
}

func (e *env) seller(name string) *model.Seller {
	e.t.Helper()
	email := name + "@example.com"
	s, err := e.catalog.CreateSeller(e.ctx, name, &email)
	if err != nil {
		e.t.Fatal(err)
	}
	return s
}

func (e *env) mission(terms model.MissionTerms) *model.Mission {
	e.t.Helper()
	m, err := e.catalog.CreateMission(e.ctx, e.workspace, nil, terms)
	if err != nil {
		e.t.Fatal(err)
	}
	return m
}

func saleTerms(percent string) model.MissionTerms {
	return model.MissionTerms{
		Title:               "Launch",
		SaleEnabled:         true,
		SaleRewardAmount:    percent,
		SaleRewardStructure: reward.Percentage,
	}
}

func (e *env) enroll(m *model.Mission, s *model.Seller) *model.Link {
	e.t.Helper()
	_, link, err := e.catalog.Enroll(e.ctx, m.ID, &s.ID, nil, "", "https://shop.example.com")
	if err != nil {
		e.t.Fatal(err)
	}
	return link
}

func (e *env) click(link *model.Link) string {
	e.t.Helper()
	_, click, err := e.catalog.TrackClick(e.ctx, link.Slug)
	if err != nil {
		e.t.Fatal(err)
	}
	return click.ID
}

func (e *env) sale(clickID, customerID string, gross int64) *service.Outcome {
	e.t.Helper()
	e.events++
	return e.send(&model.PaymentEvent{
		EventID:     fmt.Sprintf("evt_%d", e.events),
		EventType:   model.EventCheckoutCompleted,
		WorkspaceID: e.workspace,
		CustomerID:  customerID,
		ClickID:     clickID,
		GrossAmount: gross,
		Currency:    "eur",
	})
}

func (e *env) send(ev *model.PaymentEvent) *service.Outcome {
	e.t.Helper()
	out, err := e.commissions.HandlePaymentEvent(e.ctx, ev, nil)
	if err != nil {
		e.t.Fatalf("event %s: %v", ev.EventID, err)
	}
	return out
}

// assertBalanced checks conservation and ledger consistency for a seller.
func (e *env) assertBalanced(sellerID uuid.UUID) *model.Reconciliation {
	e.t.Helper()
	rec, err := e.balances.CheckReconciliation(e.ctx, sellerID)
	if err != nil {
		e.t.Fatal(err)
	}
	if !rec.Consistent {
		e.t.Fatalf("balance not consistent: %+v", rec)
	}

	var total int64
	for _, c := range e.store.Commissions() {
		if c.SellerID == sellerID {
			total += c.CommissionAmount
		}
	}
	b := rec.Cached
	if b.Pending+b.Due+b.PaidTotal != total {
		e.t.Fatalf("pending %d + due %d + paid %d != commissions %d", b.Pending, b.Due, b.PaidTotal, total)
	}
	return rec
}
