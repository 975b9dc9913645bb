package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traaaction/backend/internal/events"
	"github.com/traaaction/backend/internal/model"
)

const (
	maturationLockKey = "maturation-sweep"
	maturationLockTTL = 5 * time.Minute
	defaultSweepBatch = 500
)

// SweepResult summarises one maturation run.
type SweepResult struct {
	Matured  int   `json:"matured"`
	Credited int64 `json:"credited"`
	Sellers  int   `json:"sellers"`
	// Skipped is set when another process held the sweep lock.
	Skipped bool `json:"skipped,omitempty"`
}

// MaturationService moves commissions out of their hold period.
type MaturationService struct {
	store     Store
	locker    Locker
	publisher Publisher
	notifier  Notifier
	batchSize int
	now       func() time.Time
}

func NewMaturationService(store Store, batchSize int) *MaturationService {
	if batchSize <= 0 {
		batchSize = defaultSweepBatch
	}
	return &MaturationService{
		store:     store,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// SetLocker sets the cross-process lock (to keep concurrent sweeps apart)
func (s *MaturationService) SetLocker(locker Locker) {
	s.locker = locker
}

func (s *MaturationService) SetPublisher(publisher Publisher) {
	s.publisher = publisher
}

func (s *MaturationService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

func (s *MaturationService) SetClock(now func() time.Time) {
	s.now = now
}

// Sweep matures every PENDING commission whose hold has elapsed. Running it
// twice, or from two processes at once, never credits a commission twice:
// the status guard in the store decides, the lock only saves work.
func (s *MaturationService) Sweep(ctx context.Context) (*SweepResult, error) {
	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, maturationLockKey, maturationLockTTL)
		switch {
		case err != nil:
			log.WithError(err).Warn("[Maturation] Lock unavailable, sweeping without it")
		case !ok:
			log.Info("[Maturation] Another sweep is running, skipping")
			return &SweepResult{Skipped: true}, nil
		default:
			defer unlock()
		}
	}

	now := s.now()
	result := &SweepResult{}
	bySeller := make(map[uuid.UUID][]model.Commission)

	for {
		batch, err := s.store.MatureDue(ctx, now, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to mature commissions: %w", err)
		}
		for _, c := range batch.Commissions {
			result.Matured++
			result.Credited += c.CommissionAmount
			bySeller[c.SellerID] = append(bySeller[c.SellerID], c)
			publish(ctx, s.publisher, events.CommissionMatured, c.SellerID, c)
		}
		for _, e := range batch.Entries {
			publish(ctx, s.publisher, events.LedgerEntry, e.SellerID, e)
		}
		if len(batch.Commissions) < s.batchSize {
			break
		}
	}
	result.Sellers = len(bySeller)

	if result.Matured > 0 {
		log.WithFields(log.Fields{
			"matured":  result.Matured,
			"credited": result.Credited,
			"sellers":  result.Sellers,
		}).Info("[Maturation] Commissions matured")
	}

	s.notify(ctx, bySeller)
	return result, nil
}

func (s *MaturationService) notify(ctx context.Context, bySeller map[uuid.UUID][]model.Commission) {
	if s.notifier == nil {
		return
	}
	for sellerID, commissions := range bySeller {
		seller, err := s.store.GetSeller(ctx, sellerID)
		if err != nil {
			log.WithError(err).WithField("seller_id", sellerID).Warn("[Maturation] Failed to load seller for notification")
			continue
		}
		if err := s.notifier.CommissionsMatured(ctx, seller, commissions); err != nil {
			log.WithError(err).WithField("seller_id", sellerID).Warn("[Maturation] Failed to notify seller")
		}
	}
}

// MaturationWorker runs Sweep on a fixed interval.
type MaturationWorker struct {
	svc      *MaturationService
	interval time.Duration
}

func NewMaturationWorker(svc *MaturationService, interval time.Duration) *MaturationWorker {
	return &MaturationWorker{svc: svc, interval: interval}
}

// Start blocks until ctx is done. A zero interval disables the worker and
// leaves maturation to the cron endpoint.
func (w *MaturationWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info("[Maturation Worker] Disabled")
		return
	}
	log.Infof("[Maturation Worker] Started, sweeping every %v", w.interval)

	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("[Maturation Worker] Stopped")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *MaturationWorker) run(ctx context.Context) {
	if _, err := w.svc.Sweep(ctx); err != nil {
		log.WithError(err).Error("[Maturation Worker] Sweep failed")
	}
}
