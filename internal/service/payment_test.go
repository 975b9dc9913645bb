package service_test

import (
	"errors"
	"testing"
	"testing/quick"
	"time"

	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/events"
	"github.com/traaaction/backend/internal/fees"
	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/reward"
	"github.com/traaaction/backend/internal/service"
)

func TestSaleThroughSellerLink(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	m := e.mission(saleTerms("10"))
	link := e.enroll(m, seller)

	out := e.sale(e.click(link), "cus_1", 10000)
	if out.Status != service.OutcomeCreated {
		t.Fatalf("expected created, got %+v", out)
	}
	c := out.Commission
	if c.SellerID != seller.ID || c.AttributedSellerID != seller.ID {
		t.Fatalf("commission paid to %s, want %s", c.SellerID, seller.ID)
	}
	if c.CommissionAmount != 833 {
		t.Fatalf("commission amount %d, want 833", c.CommissionAmount)
	}
	if c.GrossAmount != 10000 || c.TaxAmount != 1667 || c.ProcessorFee != 320 || c.NetAmount != 8013 || c.PlatformFee != 1249 {
		t.Fatalf("unexpected fee breakdown: %+v", c)
	}
	if c.Status != model.CommissionStatusPending || c.Source != model.CommissionSourceSale {
		t.Fatalf("status %s source %s", c.Status, c.Source)
	}
	if c.CommissionRate != "10%" || c.Currency != "EUR" || c.HoldDays != 30 {
		t.Fatalf("rate %q currency %q hold %d", c.CommissionRate, c.Currency, c.HoldDays)
	}
	if e.publisher.Count(events.CommissionCreated) != 1 {
		t.Fatal("commission.created not published")
	}

	b, err := e.balances.GetBalance(e.ctx, seller.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Pending != 833 || b.Due != 0 || b.Balance != 0 {
		t.Fatalf("unexpected balance %+v", b)
	}
	e.assertBalanced(seller.ID)
}

func TestLeadPaysFixedAmount(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	m := e.mission(model.MissionTerms{Title: "Signups", LeadEnabled: true, LeadRewardAmount: 500})
	link := e.enroll(m, seller)

	out := e.send(&model.PaymentEvent{
		EventID:     "lead_1",
		EventType:   model.EventLeadCreated,
		WorkspaceID: e.workspace,
		ClickID:     e.click(link),
	})
	if out.Status != service.OutcomeCreated {
		t.Fatalf("expected created, got %+v", out)
	}
	c := out.Commission
	if c.CommissionAmount != 500 || c.Source != model.CommissionSourceLead || c.GrossAmount != 0 {
		t.Fatalf("unexpected lead commission %+v", c)
	}
	if c.CommissionType != reward.Fixed {
		t.Fatalf("commission type %s", c.CommissionType)
	}
}

func TestDisabledEventIsSkipped(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	m := e.mission(model.MissionTerms{Title: "Signups", LeadEnabled: true, LeadRewardAmount: 500})
	link := e.enroll(m, seller)

	out := e.sale(e.click(link), "", 10000)
	if out.Status != service.OutcomeSkipped || out.Reason != service.SkipEventDisabled {
		t.Fatalf("expected skip, got %+v", out)
	}
	if len(e.store.Commissions()) != 0 {
		t.Fatal("no commission expected")
	}
}

func TestGroupSalePaysCreator(t *testing.T) {
	e := newEnv(t)
	creator := e.seller("alice")
	member := e.seller("bob")
	group, err := e.catalog.CreateSellerGroup(e.ctx, creator.ID, "Crew")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.catalog.AddGroupMember(e.ctx, group.ID, member.ID); err != nil {
		t.Fatal(err)
	}

	m := e.mission(saleTerms("10"))
	enrollment, groupLink, err := e.catalog.Enroll(e.ctx, m.ID, nil, &group.ID, "crew", "https://shop.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if *groupLink.AffiliateID != creator.ID {
		t.Fatalf("group link attributed to %s", *groupLink.AffiliateID)
	}
	memberLink, err := e.catalog.CreateMemberLink(e.ctx, enrollment.ID, member.ID, "crew-bob", "https://shop.example.com")
	if err != nil {
		t.Fatal(err)
	}

	out := e.sale(e.click(memberLink), "", 10000)
	if out.Status != service.OutcomeCreated {
		t.Fatalf("expected created, got %+v", out)
	}
	c := out.Commission
	if c.SellerID != creator.ID {
		t.Fatalf("group commission paid to %s, want creator %s", c.SellerID, creator.ID)
	}
	if c.AttributedSellerID != member.ID {
		t.Fatalf("attributed seller %s, want member %s", c.AttributedSellerID, member.ID)
	}
	if c.GroupID == nil || *c.GroupID != group.ID {
		t.Fatal("group id not recorded")
	}

	outsider := e.seller("eve")
	if _, err := e.catalog.CreateMemberLink(e.ctx, enrollment.ID, outsider.ID, "", "https://shop.example.com"); !errors.Is(err, service.ErrNotGroupMember) {
		t.Fatalf("expected ErrNotGroupMember, got %v", err)
	}
}

func TestOrganizationMissionKeepsIndividualPayee(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	org := uuid.New()
	m, err := e.catalog.CreateMission(e.ctx, e.workspace, &org, saleTerms("10"))
	if err != nil {
		t.Fatal(err)
	}
	link := e.enroll(m, seller)

	c := e.sale(e.click(link), "", 10000).Commission
	if c.SellerID != seller.ID {
		t.Fatalf("paid %s", c.SellerID)
	}
	if c.OrganizationMissionID == nil || *c.OrganizationMissionID != m.ID {
		t.Fatal("organization mission not recorded")
	}
}

func TestUnresolvedClickCreatesNothing(t *testing.T) {
	e := newEnv(t)
	e.seller("ada")

	out := e.sale("unknown-click", "", 10000)
	if out.Status != service.OutcomeUnattributed || out.Reason != service.ReasonClickNotFound {
		t.Fatalf("expected unattributed, got %+v", out)
	}
	if n := len(e.store.Commissions()); n != 0 {
		t.Fatalf("%d commissions created", n)
	}
	recorded := e.store.Unattributed()
	if len(recorded) != 1 || recorded[0].Reason != service.ReasonClickNotFound {
		t.Fatalf("unattributed events: %+v", recorded)
	}
}

func TestMalformedEvent(t *testing.T) {
	e := newEnv(t)
	_, err := e.commissions.HandlePaymentEvent(e.ctx, &model.PaymentEvent{EventType: model.EventCheckoutCompleted}, nil)
	if !errors.Is(err, model.ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
}

func TestDuplicateSaleIsIdempotent(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	link := e.enroll(e.mission(saleTerms("10")), seller)

	ev := &model.PaymentEvent{
		EventID:     "evt_dup",
		EventType:   model.EventCheckoutCompleted,
		WorkspaceID: e.workspace,
		ClickID:     e.click(link),
		GrossAmount: 10000,
	}
	first := e.send(ev)
	second := e.send(ev)
	if first.Status != service.OutcomeCreated || second.Status != service.OutcomeDuplicate {
		t.Fatalf("statuses %s, %s", first.Status, second.Status)
	}
	if second.Commission.ID != first.Commission.ID {
		t.Fatal("duplicate returned a different commission")
	}
	if n := len(e.store.Commissions()); n != 1 {
		t.Fatalf("%d commissions, want 1", n)
	}
	b, _ := e.balances.GetBalance(e.ctx, seller.ID)
	if b.Pending != 833 {
		t.Fatalf("pending %d after replay", b.Pending)
	}
}

func TestRecurringWindow(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	months := 2
	terms := saleTerms("10")
	terms.RecurringEnabled = true
	terms.RecurringDurationMonths = &months
	link := e.enroll(e.mission(terms), seller)
	clickID := e.click(link)

	renewal := func(eventID string, month int) *service.Outcome {
		return e.send(&model.PaymentEvent{
			EventID:        eventID,
			EventType:      model.EventSubscriptionRenewed,
			WorkspaceID:    e.workspace,
			ClickID:        clickID,
			SubscriptionID: "sub_1",
			RecurringMonth: month,
			GrossAmount:    10000,
		})
	}

	first := renewal("inv_1", 1)
	if first.Status != service.OutcomeCreated {
		t.Fatalf("month 1: %+v", first)
	}
	c := first.Commission
	if c.Source != model.CommissionSourceRecurring || *c.RecurringMonth != 1 || *c.RecurringMax != 2 {
		t.Fatalf("unexpected recurring commission %+v", c)
	}
	// Recurring terms fall back to the sale reward.
	if c.CommissionAmount != 833 {
		t.Fatalf("amount %d", c.CommissionAmount)
	}

	if out := renewal("inv_1_retry", 1); out.Status != service.OutcomeDuplicate {
		t.Fatalf("same subscription month should be a duplicate, got %s", out.Status)
	}
	if out := renewal("inv_2", 2); out.Status != service.OutcomeCreated {
		t.Fatalf("month 2: %s", out.Status)
	}
	out := renewal("inv_3", 3)
	if out.Status != service.OutcomeSkipped || out.Reason != service.SkipRecurringWindow {
		t.Fatalf("month 3 should be outside the window, got %+v", out)
	}
	if n := len(e.store.Commissions()); n != 2 {
		t.Fatalf("%d commissions, want 2", n)
	}
}

func TestCustomerAttributionIsFrozen(t *testing.T) {
	e := newEnv(t)
	first := e.seller("ada")
	second := e.seller("grace")
	m := e.mission(saleTerms("10"))
	firstLink := e.enroll(m, first)
	secondLink := e.enroll(m, second)

	if c := e.sale(e.click(firstLink), "cus_42", 10000).Commission; c.SellerID != first.ID {
		t.Fatalf("first sale paid %s", c.SellerID)
	}
	// A later click through another seller's link does not steal the customer.
	c := e.sale(e.click(secondLink), "cus_42", 10000).Commission
	if c.SellerID != first.ID {
		t.Fatalf("second sale paid %s, want first-touch seller %s", c.SellerID, first.ID)
	}
	if c.LinkID != firstLink.ID {
		t.Fatal("second sale should keep the frozen link")
	}

	// Without a click the frozen binding still resolves.
	if c := e.sale("", "cus_42", 5000).Commission; c == nil || c.SellerID != first.ID {
		t.Fatal("customer-only event not attributed to the frozen seller")
	}
}

func TestSettingsOverrideAppliesToNewCommissions(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	link := e.enroll(e.mission(saleTerms("10")), seller)

	before := e.sale(e.click(link), "", 10000).Commission
	if err := e.settings.Set(e.ctx, "ops", service.SettingTaxRate, "0"); err != nil {
		t.Fatal(err)
	}
	after := e.sale(e.click(link), "", 10000).Commission

	if before.CommissionAmount != 833 || after.CommissionAmount != 1000 {
		t.Fatalf("amounts %d, %d", before.CommissionAmount, after.CommissionAmount)
	}
	stored, _ := e.store.GetCommission(e.ctx, before.ID)
	if stored.CommissionAmount != 833 {
		t.Fatal("existing commission was recomputed")
	}

	if err := e.settings.Set(e.ctx, "ops", service.SettingTaxRate, "1.5"); !errors.Is(err, service.ErrInvalidSetting) {
		t.Fatalf("expected ErrInvalidSetting, got %v", err)
	}
	if err := e.settings.Set(e.ctx, "ops", "bonus", "1"); !errors.Is(err, service.ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
}

func TestPercentageCommissionNeverExceedsNet(t *testing.T) {
	seller := uuid.New()
	mission := &model.Mission{ID: uuid.New(), SaleEnabled: true, SaleReward: reward.Parse("10%")}
	attr := &model.Attribution{SellerID: seller, AttributedSellerID: seller, MissionID: mission.ID}
	sched := fees.DefaultSchedule()

	f := func(gross uint32) bool {
		ev := &model.PaymentEvent{EventID: "e", EventType: model.EventCheckoutCompleted, GrossAmount: int64(gross)}
		c, _ := service.BuildCommission(ev, attr, mission, sched, 30, time.Now())
		b := sched.Split(int64(gross))
		return c != nil &&
			c.CommissionAmount == b.NetOfTax/10 &&
			c.CommissionAmount <= c.GrossAmount &&
			c.CommissionAmount >= 0
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
