package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/model"
)

// ClickCache is an in-memory click cache without expiry.
type ClickCache struct {
	mu    sync.Mutex
	links map[string]uuid.UUID
}

func NewClickCache() *ClickCache {
	return &ClickCache{links: make(map[string]uuid.UUID)}
}

func (c *ClickCache) SetClick(ctx context.Context, clickID string, linkID uuid.UUID, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links[clickID] = linkID
	return nil
}

func (c *ClickCache) GetClickLink(ctx context.Context, clickID string) (uuid.UUID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.links[clickID]
	return id, ok, nil
}

// Locker grants each key to one holder at a time.
type Locker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]bool)}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, true, nil
}

type Message struct {
	Type    string
	Key     string
	Payload []byte
}

// Publisher records published events.
type Publisher struct {
	mu       sync.Mutex
	Messages []Message
}

func (p *Publisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, Message{Type: eventType, Key: partitionKey, Payload: payload})
	return nil
}

// Count returns how many events of the type were published.
func (p *Publisher) Count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.Messages {
		if m.Type == eventType {
			n++
		}
	}
	return n
}

// Notifier records notifications per seller.
type Notifier struct {
	mu      sync.Mutex
	Matured map[uuid.UUID]int
	Paid    map[uuid.UUID]int64
}

func NewNotifier() *Notifier {
	return &Notifier{Matured: make(map[uuid.UUID]int), Paid: make(map[uuid.UUID]int64)}
}

func (n *Notifier) CommissionsMatured(ctx context.Context, seller *model.Seller, commissions []model.Commission) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Matured[seller.ID] += len(commissions)
	return nil
}

func (n *Notifier) PayoutCompleted(ctx context.Context, seller *model.Seller, payout model.SellerPayout) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Paid[seller.ID] += payout.Amount
	return nil
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
