package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/model"
)

// The stores below are implemented by *repository.Repository and by the
// in-memory store in internal/testutil. Multi-row writes are atomic: each
// method commits or rolls back as a whole.

type CatalogStore interface {
	CreateSeller(ctx context.Context, seller *model.Seller) error
	GetSeller(ctx context.Context, id uuid.UUID) (*model.Seller, error)
	CreateSellerGroup(ctx context.Context, group *model.SellerGroup) error
	GetSellerGroup(ctx context.Context, id uuid.UUID) (*model.SellerGroup, error)
	AddGroupMember(ctx context.Context, member *model.SellerGroupMember) error
	IsGroupMember(ctx context.Context, groupID, sellerID uuid.UUID) (bool, error)

	CreateMission(ctx context.Context, mission *model.Mission) error
	GetMission(ctx context.Context, id uuid.UUID) (*model.Mission, error)
	// UpdateMissionTerms fails with repository.ErrMissionHasEnrollments
	// once the mission has any enrollment.
	UpdateMissionTerms(ctx context.Context, mission *model.Mission) error

	// CreateEnrollment stores the enrollment and its first link together.
	CreateEnrollment(ctx context.Context, enrollment *model.Enrollment, link *model.Link) error
	GetEnrollment(ctx context.Context, id uuid.UUID) (*model.Enrollment, error)
	CreateLink(ctx context.Context, link *model.Link) error
	GetLink(ctx context.Context, id uuid.UUID) (*model.Link, error)
	GetLinkBySlug(ctx context.Context, slug string) (*model.Link, error)
	// SetLinkAffiliate fails with repository.ErrLinkAlreadyAttributed when the
	// link points at a different seller and force is false.
	SetLinkAffiliate(ctx context.Context, linkID, sellerID uuid.UUID, force bool) (*model.Link, error)

	CreateClick(ctx context.Context, click *model.Click) error
	GetClick(ctx context.Context, id string) (*model.Click, error)
}

type AttributionStore interface {
	GetCustomer(ctx context.Context, workspaceID uuid.UUID, externalID string) (*model.Customer, error)
	// FreezeCustomer records first-touch attribution. An existing binding is
	// kept and returned unchanged.
	FreezeCustomer(ctx context.Context, customer *model.Customer) (*model.Customer, error)
	GetClick(ctx context.Context, id string) (*model.Click, error)
	GetLink(ctx context.Context, id uuid.UUID) (*model.Link, error)
	GetEnrollment(ctx context.Context, id uuid.UUID) (*model.Enrollment, error)
	GetSellerGroup(ctx context.Context, id uuid.UUID) (*model.SellerGroup, error)
	GetMission(ctx context.Context, id uuid.UUID) (*model.Mission, error)
}

type CommissionStore interface {
	// CreateCommission inserts the commission unless its sale id or
	// (subscription id, month) already exists, and refreshes the seller's
	// cached balance in the same transaction. It returns the stored row and
	// whether it was newly created.
	CreateCommission(ctx context.Context, c *model.Commission) (*model.Commission, bool, error)
	GetCommission(ctx context.Context, id uuid.UUID) (*model.Commission, error)
	ListSellerCommissions(ctx context.Context, sellerID uuid.UUID, filter model.CommissionFilter) ([]model.Commission, error)
	// MatureDue moves up to limit PENDING commissions whose hold has elapsed
	// at now to PROCEED, credits the ledger once per commission and
	// refreshes the affected balances.
	MatureDue(ctx context.Context, now time.Time, limit int) (*model.MaturationResult, error)
}

type PayoutStore interface {
	// CreatePayoutBatch assigns every unbatched PROCEED commission of the
	// seller to a new OPEN batch. Fails with repository.ErrNothingToPay.
	CreatePayoutBatch(ctx context.Context, sellerID uuid.UUID) (*model.PayoutBatch, error)
	GetPayoutBatch(ctx context.Context, id uuid.UUID) (*model.PayoutBatch, error)
	// ConfirmPayout moves the selected PROCEED commissions to COMPLETE, books
	// one ledger debit per seller and refreshes the balances.
	ConfirmPayout(ctx context.Context, sel model.PayoutConfirmation, now time.Time) (*model.PayoutResult, error)
}

type LedgerStore interface {
	GetSellerBalance(ctx context.Context, sellerID uuid.UUID) (*model.SellerBalance, error)
	// ComputeSellerBalance derives the balance without writing it.
	ComputeSellerBalance(ctx context.Context, sellerID uuid.UUID) (*model.SellerBalance, error)
	// RecomputeSellerBalance derives the balance and overwrites the cache.
	RecomputeSellerBalance(ctx context.Context, sellerID uuid.UUID) (*model.SellerBalance, error)
	GetLedgerTotals(ctx context.Context, sellerID uuid.UUID) (model.LedgerTotals, error)
	ListLedgerEntries(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.LedgerEntry, error)
	// AppendAdjustment books a manual ADJUSTMENT entry (credit when amount is
	// positive, debit when negative) and refreshes the balance.
	AppendAdjustment(ctx context.Context, sellerID uuid.UUID, amount int64, description string) (*model.LedgerEntry, *model.SellerBalance, error)
	ListBalanceSellerIDs(ctx context.Context) ([]uuid.UUID, error)
}

type UnattributedStore interface {
	RecordUnattributed(ctx context.Context, event *model.UnattributedEvent) error
	ListUnattributedByLink(ctx context.Context, linkID uuid.UUID) ([]model.UnattributedEvent, error)
	MarkReplayed(ctx context.Context, id uuid.UUID, at time.Time) error
}

type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetAllSettings(ctx context.Context) (map[string]string, error)
}

type AuditStore interface {
	LogAdminAction(ctx context.Context, actor, action string, targetID *string, details interface{}) error
	GetAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, error)
}

// Store is everything the services need from persistence.
type Store interface {
	CatalogStore
	AttributionStore
	CommissionStore
	PayoutStore
	LedgerStore
	UnattributedStore
	SettingsStore
	AuditStore
	Ping(ctx context.Context) error
}

// ClickCache maps click ids to link ids for the attribution window.
type ClickCache interface {
	SetClick(ctx context.Context, clickID string, linkID uuid.UUID, ttl time.Duration) error
	GetClickLink(ctx context.Context, clickID string) (uuid.UUID, bool, error)
}

// Locker is a best-effort mutual exclusion across processes. Correctness
// never depends on it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// Notifier sends seller-facing notifications (implemented by notify.Mailer).
type Notifier interface {
	CommissionsMatured(ctx context.Context, seller *model.Seller, commissions []model.Commission) error
	PayoutCompleted(ctx context.Context, seller *model.Seller, payout model.SellerPayout) error
}

// Publisher matches events.Publisher.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
