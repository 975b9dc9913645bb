// Package testutil provides in-memory stand-ins for the Postgres, Redis,
// Kafka and SMTP backed dependencies of the services.
package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/repository"
)

// MemStore implements service.Store in memory. One mutex stands in for the
// database transactions, and every method returns the same sentinel errors
// as the repository.
type MemStore struct {
	mu sync.Mutex

	sellers      map[uuid.UUID]model.Seller
	groups       map[uuid.UUID]model.SellerGroup
	members      map[uuid.UUID]map[uuid.UUID]bool
	missions     map[uuid.UUID]model.Mission
	enrollments  map[uuid.UUID]model.Enrollment
	links        map[uuid.UUID]model.Link
	clicks       map[string]model.Click
	customers    map[string]model.Customer
	commissions  map[uuid.UUID]model.Commission
	order        []uuid.UUID
	ledger       []model.LedgerEntry
	balances     map[uuid.UUID]model.SellerBalance
	batches      map[uuid.UUID]model.PayoutBatch
	unattributed map[string]model.UnattributedEvent
	settings     map[string]string
	adminLogs    []model.AdminLog

	// Err, when set, is returned by every write.
	Err error
}

func NewMemStore() *MemStore {
	return &MemStore{
		sellers:      make(map[uuid.UUID]model.Seller),
		groups:       make(map[uuid.UUID]model.SellerGroup),
		members:      make(map[uuid.UUID]map[uuid.UUID]bool),
		missions:     make(map[uuid.UUID]model.Mission),
		enrollments:  make(map[uuid.UUID]model.Enrollment),
		links:        make(map[uuid.UUID]model.Link),
		clicks:       make(map[string]model.Click),
		customers:    make(map[string]model.Customer),
		commissions:  make(map[uuid.UUID]model.Commission),
		balances:     make(map[uuid.UUID]model.SellerBalance),
		batches:      make(map[uuid.UUID]model.PayoutBatch),
		unattributed: make(map[string]model.UnattributedEvent),
		settings:     make(map[string]string),
	}
}

func (s *MemStore) Ping(ctx context.Context) error {
	return nil
}

// --- sellers ---

func (s *MemStore) CreateSeller(ctx context.Context, seller *model.Seller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	seller.CreatedAt = time.Now()
	s.sellers[seller.ID] = *seller
	return nil
}

func (s *MemStore) GetSeller(ctx context.Context, id uuid.UUID) (*model.Seller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seller, ok := s.sellers[id]
	if !ok {
		return nil, repository.ErrSellerNotFound
	}
	return &seller, nil
}

func (s *MemStore) CreateSellerGroup(ctx context.Context, group *model.SellerGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	group.CreatedAt = time.Now()
	s.groups[group.ID] = *group
	s.members[group.ID] = map[uuid.UUID]bool{group.CreatorID: true}
	return nil
}

func (s *MemStore) GetSellerGroup(ctx context.Context, id uuid.UUID) (*model.SellerGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[id]
	if !ok {
		return nil, repository.ErrGroupNotFound
	}
	return &group, nil
}

func (s *MemStore) AddGroupMember(ctx context.Context, member *model.SellerGroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	members, ok := s.members[member.GroupID]
	if !ok {
		return repository.ErrGroupNotFound
	}
	if members[member.SellerID] {
		return repository.ErrAlreadyMember
	}
	members[member.SellerID] = true
	member.JoinedAt = time.Now()
	return nil
}

func (s *MemStore) IsGroupMember(ctx context.Context, groupID, sellerID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[groupID][sellerID], nil
}

// --- missions ---

func (s *MemStore) CreateMission(ctx context.Context, m *model.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	s.missions[m.ID] = *m
	return nil
}

func (s *MemStore) GetMission(ctx context.Context, id uuid.UUID) (*model.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return nil, repository.ErrMissionNotFound
	}
	return &m, nil
}

func (s *MemStore) UpdateMissionTerms(ctx context.Context, m *model.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.missions[m.ID]; !ok {
		return repository.ErrMissionNotFound
	}
	for _, e := range s.enrollments {
		if e.MissionID == m.ID {
			return repository.ErrMissionHasEnrollments
		}
	}
	m.UpdatedAt = time.Now()
	s.missions[m.ID] = *m
	return nil
}

// --- enrollments and links ---

func (s *MemStore) CreateEnrollment(ctx context.Context, e *model.Enrollment, link *model.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.missions[e.MissionID]; !ok {
		return repository.ErrMissionNotFound
	}
	for _, other := range s.enrollments {
		if other.MissionID != e.MissionID || other.Status != model.EnrollmentStatusActive {
			continue
		}
		if sameID(other.SellerID, e.SellerID) || sameID(other.GroupID, e.GroupID) {
			return repository.ErrAlreadyEnrolled
		}
	}
	if s.slugTaken(link.Slug) {
		return repository.ErrSlugTaken
	}
	e.CreatedAt = time.Now()
	s.enrollments[e.ID] = *e
	s.putLink(link)
	return nil
}

func (s *MemStore) GetEnrollment(ctx context.Context, id uuid.UUID) (*model.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, repository.ErrEnrollmentNotFound
	}
	return &e, nil
}

func (s *MemStore) CreateLink(ctx context.Context, link *model.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.slugTaken(link.Slug) {
		return repository.ErrSlugTaken
	}
	s.putLink(link)
	return nil
}

func (s *MemStore) slugTaken(slug string) bool {
	for _, l := range s.links {
		if l.Slug == slug {
			return true
		}
	}
	return false
}

func (s *MemStore) putLink(link *model.Link) {
	link.CreatedAt = time.Now()
	link.UpdatedAt = link.CreatedAt
	s.links[link.ID] = *link
}

func (s *MemStore) GetLink(ctx context.Context, id uuid.UUID) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	return &l, nil
}

func (s *MemStore) GetLinkBySlug(ctx context.Context, slug string) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.Slug == slug {
			return &l, nil
		}
	}
	return nil, repository.ErrLinkNotFound
}

func (s *MemStore) SetLinkAffiliate(ctx context.Context, linkID, sellerID uuid.UUID, force bool) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	l, ok := s.links[linkID]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	if l.AffiliateID != nil && *l.AffiliateID != sellerID && !force {
		return nil, repository.ErrLinkAlreadyAttributed
	}
	l.AffiliateID = &sellerID
	l.UpdatedAt = time.Now()
	s.links[linkID] = l
	return &l, nil
}

// ClearLinkAffiliate simulates a link created without an owner.
func (s *MemStore) ClearLinkAffiliate(linkID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.links[linkID]
	l.AffiliateID = nil
	s.links[linkID] = l
}

func (s *MemStore) CreateClick(ctx context.Context, click *model.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	click.CreatedAt = time.Now()
	s.clicks[click.ID] = *click
	return nil
}

func (s *MemStore) GetClick(ctx context.Context, id string) (*model.Click, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clicks[id]
	if !ok {
		return nil, repository.ErrClickNotFound
	}
	return &c, nil
}

// --- customers ---

func customerKey(workspaceID uuid.UUID, externalID string) string {
	return workspaceID.String() + "/" + externalID
}

func (s *MemStore) GetCustomer(ctx context.Context, workspaceID uuid.UUID, externalID string) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerKey(workspaceID, externalID)]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	return &c, nil
}

func (s *MemStore) FreezeCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	key := customerKey(c.WorkspaceID, c.ExternalID)
	if existing, ok := s.customers[key]; ok && existing.AffiliateID != nil {
		return &existing, nil
	} else if ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = time.Now()
	}
	s.customers[key] = *c
	stored := *c
	return &stored, nil
}

// --- commissions ---

func (s *MemStore) CreateCommission(ctx context.Context, c *model.Commission) (*model.Commission, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, false, s.Err
	}
	for _, id := range s.order {
		existing := s.commissions[id]
		if c.SaleID != nil && existing.SaleID != nil && *existing.SaleID == *c.SaleID {
			return &existing, false, nil
		}
		if c.SubscriptionID != nil && c.RecurringMonth != nil &&
			existing.SubscriptionID != nil && existing.RecurringMonth != nil &&
			*existing.SubscriptionID == *c.SubscriptionID && *existing.RecurringMonth == *c.RecurringMonth {
			return &existing, false, nil
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.commissions[c.ID] = *c
	s.order = append(s.order, c.ID)
	s.refresh(c.SellerID)
	stored := *c
	return &stored, true, nil
}

func (s *MemStore) GetCommission(ctx context.Context, id uuid.UUID) (*model.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commissions[id]
	if !ok {
		return nil, repository.ErrCommissionNotFound
	}
	return &c, nil
}

func (s *MemStore) ListSellerCommissions(ctx context.Context, sellerID uuid.UUID, f model.CommissionFilter) ([]model.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Commission
	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.commissions[s.order[i]]
		if c.SellerID != sellerID || (f.Status != nil && c.Status != *f.Status) {
			continue
		}
		out = append(out, c)
	}
	return page(out, f.Limit, f.Offset), nil
}

// Commissions returns every stored commission in creation order.
func (s *MemStore) Commissions() []model.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Commission, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.commissions[id])
	}
	return out
}

func (s *MemStore) MatureDue(ctx context.Context, now time.Time, limit int) (*model.MaturationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	result := &model.MaturationResult{}
	for _, id := range s.order {
		if len(result.Commissions) >= limit {
			break
		}
		c := s.commissions[id]
		if c.Status != model.CommissionStatusPending || !c.IsMature(now) {
			continue
		}
		if err := c.Mature(now); err != nil {
			return nil, err
		}
		s.commissions[id] = c
		result.Commissions = append(result.Commissions, c)
	}

	bySeller := map[uuid.UUID][]model.Commission{}
	for _, c := range result.Commissions {
		bySeller[c.SellerID] = append(bySeller[c.SellerID], c)
	}
	for _, sellerID := range sortedKeys(bySeller) {
		for _, c := range bySeller[sellerID] {
			id := c.ID
			result.Entries = append(result.Entries, s.append(model.LedgerEntry{
				SellerID:     sellerID,
				Type:         model.EntryTypeCredit,
				Reason:       model.EntryReasonMaturation,
				Amount:       c.CommissionAmount,
				CommissionID: &id,
			}))
		}
		s.refresh(sellerID)
	}
	return result, nil
}

// --- payouts ---

func (s *MemStore) CreatePayoutBatch(ctx context.Context, sellerID uuid.UUID) (*model.PayoutBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	batch := model.PayoutBatch{
		ID:        uuid.New(),
		SellerID:  sellerID,
		Status:    model.PayoutBatchOpen,
		CreatedAt: time.Now(),
	}
	var assigned []uuid.UUID
	for _, id := range s.order {
		c := s.commissions[id]
		if c.SellerID == sellerID && c.Status == model.CommissionStatusProceed && c.PayoutBatchID == nil {
			assigned = append(assigned, id)
			batch.Amount += c.CommissionAmount
			batch.CommissionCount++
		}
	}
	if batch.CommissionCount == 0 {
		return nil, repository.ErrNothingToPay
	}
	for _, id := range assigned {
		c := s.commissions[id]
		batchID := batch.ID
		c.PayoutBatchID = &batchID
		s.commissions[id] = c
	}
	s.batches[batch.ID] = batch
	return &batch, nil
}

func (s *MemStore) GetPayoutBatch(ctx context.Context, id uuid.UUID) (*model.PayoutBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, repository.ErrPayoutBatchNotFound
	}
	return &b, nil
}

func (s *MemStore) ConfirmPayout(ctx context.Context, sel model.PayoutConfirmation, now time.Time) (*model.PayoutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	var selected []uuid.UUID
	if sel.BatchID != nil {
		batch, ok := s.batches[*sel.BatchID]
		if !ok {
			return nil, repository.ErrPayoutBatchNotFound
		}
		for _, id := range s.order {
			if c := s.commissions[id]; c.PayoutBatchID != nil && *c.PayoutBatchID == batch.ID {
				selected = append(selected, id)
			}
		}
		batch.Status = model.PayoutBatchPaid
		if batch.PaidAt == nil {
			batch.PaidAt = &now
		}
		s.batches[batch.ID] = batch
	} else {
		selected = sel.UniqueCommissionIDs()
	}

	result := &model.PayoutResult{}
	bySeller := map[uuid.UUID][]model.Commission{}
	paid := 0
	for _, id := range selected {
		c, ok := s.commissions[id]
		if !ok || c.Status != model.CommissionStatusProceed {
			continue
		}
		if err := c.Complete(now); err != nil {
			return nil, err
		}
		s.commissions[id] = c
		bySeller[c.SellerID] = append(bySeller[c.SellerID], c)
		paid++
	}
	result.Skipped = len(selected) - paid

	for _, sellerID := range sortedKeys(bySeller) {
		var amount int64
		for _, c := range bySeller[sellerID] {
			amount += c.CommissionAmount
		}
		entry := s.append(model.LedgerEntry{
			SellerID:      sellerID,
			Type:          model.EntryTypeDebit,
			Reason:        model.EntryReasonPayout,
			Amount:        amount,
			PayoutBatchID: sel.BatchID,
		})
		s.refresh(sellerID)
		result.Payouts = append(result.Payouts, model.SellerPayout{
			SellerID:    sellerID,
			Amount:      amount,
			Commissions: bySeller[sellerID],
			Entry:       entry,
		})
	}
	return result, nil
}

// --- ledger and balances ---

// append chains the entry onto the seller's last balance_after. Callers
// hold s.mu.
func (s *MemStore) append(e model.LedgerEntry) model.LedgerEntry {
	var last int64
	for i := len(s.ledger) - 1; i >= 0; i-- {
		if s.ledger[i].SellerID == e.SellerID {
			last = s.ledger[i].BalanceAfter
			break
		}
	}
	e.ID = uuid.New()
	e.Seq = int64(len(s.ledger) + 1)
	e.BalanceBefore = last
	e.BalanceAfter = last + e.Signed()
	e.CreatedAt = time.Now()
	s.ledger = append(s.ledger, e)
	return e
}

func (s *MemStore) compute(sellerID uuid.UUID) model.SellerBalance {
	totals := model.StatusTotals{}
	for _, c := range s.commissions {
		if c.SellerID == sellerID {
			totals[c.Status] += c.CommissionAmount
		}
	}
	var adjustments int64
	for _, e := range s.ledger {
		if e.SellerID == sellerID && e.Reason == model.EntryReasonAdjustment {
			adjustments += e.Signed()
		}
	}
	return model.ComputeSellerBalance(sellerID, totals, adjustments)
}

func (s *MemStore) refresh(sellerID uuid.UUID) model.SellerBalance {
	b := s.compute(sellerID)
	b.UpdatedAt = time.Now()
	s.balances[sellerID] = b
	return b
}

func (s *MemStore) GetSellerBalance(ctx context.Context, sellerID uuid.UUID) (*model.SellerBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[sellerID]
	if !ok {
		b = model.SellerBalance{SellerID: sellerID}
	}
	return &b, nil
}

// CorruptBalance overwrites the cached row to simulate drift.
func (s *MemStore) CorruptBalance(sellerID uuid.UUID, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.balances[sellerID]
	b.SellerID = sellerID
	b.Balance = balance
	s.balances[sellerID] = b
}

func (s *MemStore) ComputeSellerBalance(ctx context.Context, sellerID uuid.UUID) (*model.SellerBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.compute(sellerID)
	return &b, nil
}

func (s *MemStore) RecomputeSellerBalance(ctx context.Context, sellerID uuid.UUID) (*model.SellerBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	b := s.refresh(sellerID)
	return &b, nil
}

func (s *MemStore) GetLedgerTotals(ctx context.Context, sellerID uuid.UUID) (model.LedgerTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t model.LedgerTotals
	for _, e := range s.ledger {
		if e.SellerID != sellerID {
			continue
		}
		if e.Type == model.EntryTypeCredit {
			t.Credits += e.Amount
		} else {
			t.Debits += e.Amount
		}
	}
	return t, nil
}

func (s *MemStore) ListLedgerEntries(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LedgerEntry
	for i := len(s.ledger) - 1; i >= 0; i-- {
		if s.ledger[i].SellerID == sellerID {
			out = append(out, s.ledger[i])
		}
	}
	return page(out, limit, offset), nil
}

func (s *MemStore) AppendAdjustment(ctx context.Context, sellerID uuid.UUID, amount int64, description string) (*model.LedgerEntry, *model.SellerBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, nil, s.Err
	}
	e := model.LedgerEntry{
		SellerID:    sellerID,
		Type:        model.EntryTypeCredit,
		Reason:      model.EntryReasonAdjustment,
		Amount:      amount,
		Description: &description,
	}
	if amount < 0 {
		e.Type = model.EntryTypeDebit
		e.Amount = -amount
	}
	e = s.append(e)
	b := s.refresh(sellerID)
	return &e, &b, nil
}

func (s *MemStore) ListBalanceSellerIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[uuid.UUID][]model.Commission{}
	for id := range s.balances {
		seen[id] = nil
	}
	for _, c := range s.commissions {
		seen[c.SellerID] = nil
	}
	return sortedKeys(seen), nil
}

// --- unattributed events ---

func (s *MemStore) RecordUnattributed(ctx context.Context, e *model.UnattributedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if existing, ok := s.unattributed[e.EventID]; ok {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	} else {
		e.ID = uuid.New()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now()
		}
	}
	if !json.Valid(e.Payload) {
		e.Payload = []byte("{}")
	}
	s.unattributed[e.EventID] = *e
	return nil
}

// Unattributed returns every recorded unattributed event.
func (s *MemStore) Unattributed() []model.UnattributedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.UnattributedEvent, 0, len(s.unattributed))
	for _, e := range s.unattributed {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

func (s *MemStore) ListUnattributedByLink(ctx context.Context, linkID uuid.UUID) ([]model.UnattributedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.UnattributedEvent
	for _, e := range s.unattributed {
		if e.LinkID != nil && *e.LinkID == linkID && e.ReplayedAt == nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) MarkReplayed(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.unattributed {
		if e.ID == id {
			e.ReplayedAt = &at
			s.unattributed[k] = e
		}
	}
	return nil
}

// --- settings and audit ---

func (s *MemStore) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	if !ok {
		return "", repository.ErrSettingNotFound
	}
	return v, nil
}

func (s *MemStore) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.settings[key] = value
	return nil
}

func (s *MemStore) GetAllSettings(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

func (s *MemStore) LogAdminAction(ctx context.Context, actor, action string, targetID *string, details interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminLogs = append(s.adminLogs, model.AdminLog{
		ID:        uuid.New(),
		Actor:     actor,
		Action:    action,
		TargetID:  targetID,
		Details:   payload,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *MemStore) GetAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AdminLog, 0, len(s.adminLogs))
	for i := len(s.adminLogs) - 1; i >= 0; i-- {
		out = append(out, s.adminLogs[i])
	}
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sameID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

func sortedKeys(m map[uuid.UUID][]model.Commission) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
