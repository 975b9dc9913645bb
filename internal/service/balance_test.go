package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/events"
	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/service"
)

const day = 24 * time.Hour

func TestMaturationHonoursHoldPeriod(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	link := e.enroll(e.mission(saleTerms("10")), seller)
	for i := 0; i < 3; i++ {
		e.sale(e.click(link), "", 10000)
	}

	res, err := e.maturation.Sweep(e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Matured != 0 {
		t.Fatalf("matured %d before the hold elapsed", res.Matured)
	}

	e.clock.Advance(29 * day)
	if res, _ := e.maturation.Sweep(e.ctx); res.Matured != 0 {
		t.Fatal("matured a day early")
	}

	e.clock.Advance(day)
	res, err = e.maturation.Sweep(e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Batch size is 2, so this takes two passes.
	if res.Matured != 3 || res.Credited != 3*833 || res.Sellers != 1 {
		t.Fatalf("unexpected sweep result %+v", res)
	}
	for _, c := range e.store.Commissions() {
		if c.Status != model.CommissionStatusProceed || c.MaturedAt == nil {
			t.Fatalf("commission %s is %s", c.ID, c.Status)
		}
	}

	again, err := e.maturation.Sweep(e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Matured != 0 {
		t.Fatal("second sweep matured commissions again")
	}

	totals, _ := e.store.GetLedgerTotals(e.ctx, seller.ID)
	if totals.Credits != 3*833 || totals.Debits != 0 {
		t.Fatalf("ledger totals %+v", totals)
	}
	if e.publisher.Count(events.CommissionMatured) != 3 || e.publisher.Count(events.LedgerEntry) != 3 {
		t.Fatal("maturation events not published once per commission")
	}
	if e.notifier.Matured[seller.ID] != 3 {
		t.Fatalf("notified %d commissions", e.notifier.Matured[seller.ID])
	}

	rec := e.assertBalanced(seller.ID)
	if rec.Cached.Due != 3*833 || rec.Cached.Balance != 3*833 || rec.Cached.Pending != 0 {
		t.Fatalf("balance after maturation %+v", rec.Cached)
	}
}

func TestMissionHoldDaysOverride(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	hold := 0
	terms := saleTerms("10")
	terms.HoldDays = &hold
	link := e.enroll(e.mission(terms), seller)
	e.sale(e.click(link), "", 10000)

	res, err := e.maturation.Sweep(e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Matured != 1 {
		t.Fatalf("zero hold should mature immediately, matured %d", res.Matured)
	}
}

func TestMaturationWorkerSweepsOnStart(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	hold := 0
	terms := saleTerms("10")
	terms.HoldDays = &hold
	e.sale(e.click(e.enroll(e.mission(terms), seller)), "", 10000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	service.NewMaturationWorker(e.maturation, time.Hour).Start(ctx)

	b, err := e.balances.GetBalance(e.ctx, seller.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Due != 833 {
		t.Fatalf("due %d after worker start, want 833", b.Due)
	}

	// disabled worker returns without sweeping
	service.NewMaturationWorker(e.maturation, 0).Start(context.Background())
}

func TestSweepSkipsWhileLocked(t *testing.T) {
	e := newEnv(t)
	unlock, ok, _ := e.locker.TryLock(context.Background(), "maturation-sweep", time.Minute)
	if !ok {
		t.Fatal("lock not acquired")
	}
	res, err := e.maturation.Sweep(e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Fatal("sweep ran while another held the lock")
	}
	unlock()
	if res, _ := e.maturation.Sweep(e.ctx); res.Skipped {
		t.Fatal("sweep skipped after unlock")
	}
}

func TestPayoutLifecycleConservesBalance(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	link := e.enroll(e.mission(saleTerms("10")), seller)
	e.sale(e.click(link), "", 10000)
	e.sale(e.click(link), "", 20000)
	e.assertBalanced(seller.ID)

	if _, err := e.payouts.CreateBatch(e.ctx, "ops", seller.ID); err == nil {
		t.Fatal("pending commissions must not be batched")
	}

	e.clock.Advance(30 * day)
	if _, err := e.maturation.Sweep(e.ctx); err != nil {
		t.Fatal(err)
	}
	e.assertBalanced(seller.ID)

	// Arrives after the sweep and stays pending through the payout.
	e.sale(e.click(link), "", 10000)

	batch, err := e.payouts.CreateBatch(e.ctx, "ops", seller.ID)
	if err != nil {
		t.Fatal(err)
	}
	due := int64(833 + 1666)
	if batch.Amount != due || batch.CommissionCount != 2 {
		t.Fatalf("unexpected batch %+v", batch)
	}

	res, err := e.payouts.Confirm(e.ctx, "ops", model.PayoutConfirmation{BatchID: &batch.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Payouts) != 1 || res.Payouts[0].Amount != due || res.Skipped != 0 {
		t.Fatalf("unexpected payout result %+v", res)
	}
	if e.notifier.Paid[seller.ID] != due {
		t.Fatal("payout notification missing")
	}

	rec := e.assertBalanced(seller.ID)
	if rec.Cached.PaidTotal != due || rec.Cached.Due != 0 || rec.Cached.Balance != 0 || rec.Cached.Pending != 833 {
		t.Fatalf("balance after payout %+v", rec.Cached)
	}

	replay, err := e.payouts.Confirm(e.ctx, "ops", model.PayoutConfirmation{BatchID: &batch.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(replay.Payouts) != 0 || replay.Skipped != 2 {
		t.Fatalf("replayed confirmation paid again: %+v", replay)
	}
	totals, _ := e.store.GetLedgerTotals(e.ctx, seller.ID)
	if totals.Debits != due {
		t.Fatalf("debits %d, want %d", totals.Debits, due)
	}

	if _, err := e.payouts.Confirm(e.ctx, "ops", model.PayoutConfirmation{}); !errors.Is(err, service.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestConfirmByCommissionIDsSkipsUnmatured(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	link := e.enroll(e.mission(saleTerms("10")), seller)
	matured := e.sale(e.click(link), "", 10000).Commission
	e.clock.Advance(30 * day)
	if _, err := e.maturation.Sweep(e.ctx); err != nil {
		t.Fatal(err)
	}
	pending := e.sale(e.click(link), "", 10000).Commission

	res, err := e.payouts.Confirm(e.ctx, "ops", model.PayoutConfirmation{
		CommissionIDs: []uuid.UUID{matured.ID, pending.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || len(res.Payouts) != 1 || res.Payouts[0].Amount != 833 {
		t.Fatalf("unexpected result %+v", res)
	}
	stored, _ := e.store.GetCommission(e.ctx, pending.ID)
	if stored.Status != model.CommissionStatusPending {
		t.Fatal("pending commission was paid")
	}
	e.assertBalanced(seller.ID)
}

func TestConfirmSelectionRules(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	link := e.enroll(e.mission(saleTerms("10")), seller)
	c := e.sale(e.click(link), "", 10000).Commission
	e.clock.Advance(30 * day)
	if _, err := e.maturation.Sweep(e.ctx); err != nil {
		t.Fatal(err)
	}

	batchID := uuid.New()
	_, err := e.payouts.Confirm(e.ctx, "ops", model.PayoutConfirmation{
		BatchID:       &batchID,
		CommissionIDs: []uuid.UUID{c.ID},
	})
	if !errors.Is(err, model.ErrMixedPayoutSelection) {
		t.Fatalf("expected ErrMixedPayoutSelection, got %v", err)
	}

	res, err := e.payouts.Confirm(e.ctx, "ops", model.PayoutConfirmation{
		CommissionIDs: []uuid.UUID{c.ID, c.ID, c.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 0 || len(res.Payouts) != 1 || res.Payouts[0].Amount != 833 {
		t.Fatalf("repeated ids: %+v", res)
	}
	e.assertBalanced(seller.ID)
}

func TestAdjustmentsAndReconciliation(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	link := e.enroll(e.mission(saleTerms("10")), seller)
	e.sale(e.click(link), "", 10000)
	e.clock.Advance(30 * day)
	if _, err := e.maturation.Sweep(e.ctx); err != nil {
		t.Fatal(err)
	}

	entry, balance, err := e.balances.AdjustBalance(e.ctx, "ops", seller.ID, 250, "goodwill")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Type != model.EntryTypeCredit || entry.BalanceBefore != 833 || entry.BalanceAfter != 1083 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if balance.Balance != 1083 || balance.Due != 833 {
		t.Fatalf("unexpected balance %+v", balance)
	}
	e.assertBalanced(seller.ID)

	entry, _, err = e.balances.AdjustBalance(e.ctx, "ops", seller.ID, -1000, "")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Type != model.EntryTypeDebit || entry.Amount != 1000 || entry.BalanceAfter != 83 {
		t.Fatalf("unexpected debit %+v", entry)
	}
	e.assertBalanced(seller.ID)

	if _, _, err := e.balances.AdjustBalance(e.ctx, "ops", seller.ID, 0, ""); !errors.Is(err, service.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	e.store.CorruptBalance(seller.ID, 5)
	rec, err := e.balances.CheckReconciliation(e.ctx, seller.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Consistent {
		t.Fatal("drift not detected")
	}

	diverged, err := e.balances.ReconcileAll(e.ctx, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if len(diverged) != 1 || diverged[0] != seller.ID {
		t.Fatalf("diverged %v", diverged)
	}
	e.assertBalanced(seller.ID)

	fixed, err := e.balances.ReconcileSeller(e.ctx, "ops", seller.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !fixed.Consistent {
		t.Fatal("reconciled balance still inconsistent")
	}

	logs, _ := e.repair.GetAdminLogs(e.ctx, 0, 0)
	if len(logs) < 3 {
		t.Fatalf("expected admin logs for adjustments and reconciliation, got %d", len(logs))
	}
}

func TestLedgerListingNewestFirst(t *testing.T) {
	e := newEnv(t)
	seller := e.seller("ada")
	for _, amount := range []int64{100, 200, 300} {
		if _, _, err := e.balances.AdjustBalance(e.ctx, "ops", seller.ID, amount, ""); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := e.balances.GetTransactions(e.ctx, seller.ID, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Amount != 300 || entries[0].BalanceAfter != 600 {
		t.Fatalf("unexpected entries %+v", entries)
	}

	bad := model.CommissionStatus("LOST")
	if _, err := e.balances.ListCommissions(e.ctx, seller.ID, model.CommissionFilter{Status: &bad}); !errors.Is(err, service.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
