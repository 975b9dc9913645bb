package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/traaaction/backend/internal/config"
	"github.com/traaaction/backend/internal/fees"
	"github.com/traaaction/backend/internal/handler"
	"github.com/traaaction/backend/internal/middleware"
	"github.com/traaaction/backend/internal/model"
	"github.com/traaaction/backend/internal/service"
	"github.com/traaaction/backend/internal/testutil"
)

const (
	adminSecret   = "admin-secret"
	cronSecret    = "cron-secret"
	webhookSecret = "whsec_test"
)

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

type server struct {
	t         *testing.T
	app       *fiber.App
	store     *testutil.MemStore
	workspace uuid.UUID
}

func newServer(t *testing.T, db handler.Pinger) *server {
	t.Helper()
	store := testutil.NewMemStore()
	cache := testutil.NewClickCache()
	publisher := &testutil.Publisher{}

	sched := fees.DefaultSchedule()
	cfg := &config.Config{
		Commission: config.CommissionConfig{
			DefaultHoldDays:     30,
			TaxRate:             sched.TaxRate,
			ProcessorFeePercent: sched.ProcessorFeePercent,
			ProcessorFeeFixed:   sched.ProcessorFeeFixed,
			PlatformFeePercent:  sched.PlatformFeePercent,
			SweepBatchSize:      100,
			ClickTTL:            config.DefaultClickTTL,
		},
	}

	settingsSvc := service.NewSettingsService(store, store, cfg.Commission)
	attributionSvc := service.NewAttributionService(store, cache)
	commissionSvc := service.NewCommissionService(store, attributionSvc, settingsSvc, publisher)
	catalogSvc := service.NewCatalogService(store, cache, cfg.Commission.ClickTTL)
	maturationSvc := service.NewMaturationService(store, cfg.Commission.SweepBatchSize)
	maturationSvc.SetPublisher(publisher)
	payoutSvc := service.NewPayoutService(store, publisher)
	balanceSvc := service.NewBalanceService(store, publisher)
	repairSvc := service.NewRepairService(store, commissionSvc)

	h := handler.New(cfg, db, catalogSvc, commissionSvc, maturationSvc, payoutSvc, balanceSvc, repairSvc, settingsSvc)
	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler})
	h.Register(app,
		middleware.WebhookSignature(webhookSecret),
		middleware.BearerSecret(cronSecret),
		middleware.BearerSecret(adminSecret),
	)

	return &server{t: t, app: app, store: store, workspace: uuid.New()}
}

func (s *server) do(req *http.Request) (*http.Response, []byte) {
	s.t.Helper()
	resp, err := s.app.Test(req, -1)
	if err != nil {
		s.t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.t.Fatal(err)
	}
	return resp, body
}

// admin sends an authenticated operator request and decodes the answer into out.
func (s *server) admin(method, path string, in, out interface{}, wantStatus int) {
	s.t.Helper()
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			s.t.Fatal(err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminSecret)
	req.Header.Set(middleware.ActorHeader, "ops@traaaction.com")

	resp, raw := s.do(req)
	if resp.StatusCode != wantStatus {
		s.t.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			s.t.Fatalf("%s %s: %v", method, path, err)
		}
	}
}

func (s *server) webhook(path string, payload []byte) (*http.Response, []byte) {
	s.t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.SignatureHeader, "t="+ts+",v1="+middleware.Sign(webhookSecret, ts, payload))
	return s.do(req)
}

func (s *server) sale(eventID, clickID string, gross int64) (*http.Response, []byte) {
	s.t.Helper()
	payload, err := json.Marshal(model.PaymentEvent{
		EventID:     eventID,
		EventType:   model.EventCheckoutCompleted,
		WorkspaceID: s.workspace,
		CustomerID:  "cus_" + eventID,
		ClickID:     clickID,
		GrossAmount: gross,
		Currency:    "eur",
	})
	if err != nil {
		s.t.Fatal(err)
	}
	return s.webhook("/webhooks/payments", payload)
}

// setup creates a seller enrolled in a 10% sale mission with no hold and
// returns the seller id and a fresh click id on its link.
func (s *server) setup() (uuid.UUID, string) {
	s.t.Helper()
	var seller model.Seller
	s.admin(http.MethodPost, "/api/sellers", fiber.Map{"name": "Ada"}, &seller, fiber.StatusCreated)

	hold := 0
	var mission model.Mission
	s.admin(http.MethodPost, "/api/missions", fiber.Map{
		"workspace_id":          s.workspace,
		"title":                 "Launch",
		"sale_enabled":          true,
		"sale_reward_amount":    "10",
		"sale_reward_structure": "PERCENTAGE",
		"hold_days":             hold,
	}, &mission, fiber.StatusCreated)

	var enrolled struct {
		Link model.Link `json:"link"`
	}
	s.admin(http.MethodPost, "/api/missions/"+mission.ID.String()+"/enroll", fiber.Map{
		"seller_id":       seller.ID,
		"slug":            "ada-launch",
		"destination_url": "https://shop.example.com/pricing?plan=pro",
	}, &enrolled, fiber.StatusCreated)

	resp, _ := s.do(httptest.NewRequest(http.MethodGet, "/r/"+enrolled.Link.Slug, nil))
	if resp.StatusCode != fiber.StatusFound {
		s.t.Fatalf("redirect status %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "https://shop.example.com/pricing?") || !strings.Contains(loc, "plan=pro") {
		s.t.Fatalf("unexpected location %q", loc)
	}
	var clickID string
	for _, ck := range resp.Cookies() {
		if ck.Name == "trac_click_id" {
			clickID = ck.Value
		}
	}
	if clickID == "" || !strings.Contains(loc, "trac_click_id="+clickID) {
		s.t.Fatalf("click id missing: cookie %q, location %q", clickID, loc)
	}
	return seller.ID, clickID
}

func TestHealth(t *testing.T) {
	resp, _ := newServer(t, pinger{}).do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("healthy: status %d", resp.StatusCode)
	}

	resp, _ = newServer(t, pinger{err: errors.New("down")}).do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("db down: status %d", resp.StatusCode)
	}
}

func TestCommissionLifecycle(t *testing.T) {
	s := newServer(t, pinger{})
	sellerID, clickID := s.setup()

	resp, body := s.sale("evt_1", clickID, 10000)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("sale: status %d: %s", resp.StatusCode, body)
	}
	var out service.Outcome
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Commission == nil || out.Commission.CommissionAmount != 833 {
		t.Fatalf("unexpected outcome %s", body)
	}

	resp, body = s.sale("evt_1", clickID, 10000)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), `"duplicate"`) {
		t.Fatalf("replayed sale: status %d: %s", resp.StatusCode, body)
	}

	req := httptest.NewRequest(http.MethodPost, "/internal/cron/mature", nil)
	req.Header.Set("Authorization", "Bearer "+cronSecret)
	resp, body = s.do(req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("cron: status %d: %s", resp.StatusCode, body)
	}
	var sweep service.SweepResult
	if err := json.Unmarshal(body, &sweep); err != nil {
		t.Fatal(err)
	}
	if sweep.Matured != 1 || sweep.Credited != 833 {
		t.Fatalf("sweep %+v", sweep)
	}

	var balance model.SellerBalance
	s.admin(http.MethodGet, "/api/sellers/"+sellerID.String()+"/balance", nil, &balance, fiber.StatusOK)
	if balance.Due != 833 || balance.Pending != 0 {
		t.Fatalf("after maturation %+v", balance)
	}

	var batch model.PayoutBatch
	s.admin(http.MethodPost, "/api/payouts/batches", fiber.Map{"seller_id": sellerID}, &batch, fiber.StatusCreated)
	if batch.Amount != 833 || batch.CommissionCount != 1 {
		t.Fatalf("batch %+v", batch)
	}
	s.admin(http.MethodPost, "/api/payouts/batches", fiber.Map{"seller_id": sellerID}, nil, fiber.StatusConflict)

	mixed, err := json.Marshal(model.PayoutConfirmation{BatchID: &batch.ID, CommissionIDs: []uuid.UUID{uuid.New()}})
	if err != nil {
		t.Fatal(err)
	}
	if resp, body := s.webhook("/webhooks/payouts", mixed); resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("mixed payout selection: status %d: %s", resp.StatusCode, body)
	}

	confirm, err := json.Marshal(model.PayoutConfirmation{BatchID: &batch.ID})
	if err != nil {
		t.Fatal(err)
	}
	resp, body = s.webhook("/webhooks/payouts", confirm)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("payout webhook: status %d: %s", resp.StatusCode, body)
	}

	s.admin(http.MethodGet, "/api/sellers/"+sellerID.String()+"/balance", nil, &balance, fiber.StatusOK)
	if balance.Due != 0 || balance.PaidTotal != 833 || balance.Balance != 0 {
		t.Fatalf("after payout %+v", balance)
	}

	var rec model.Reconciliation
	s.admin(http.MethodGet, "/api/admin/reconcile/"+sellerID.String(), nil, &rec, fiber.StatusOK)
	if !rec.Consistent {
		t.Fatalf("reconciliation %+v", rec)
	}

	var listing struct {
		Commissions []model.Commission `json:"commissions"`
	}
	s.admin(http.MethodGet, "/api/sellers/"+sellerID.String()+"/commissions?status=complete", nil, &listing, fiber.StatusOK)
	if len(listing.Commissions) != 1 {
		t.Fatalf("completed commissions %d", len(listing.Commissions))
	}
	s.admin(http.MethodGet, "/api/sellers/"+sellerID.String()+"/commissions?status=lost", nil, nil, fiber.StatusBadRequest)
}

func TestPaymentWebhookResponses(t *testing.T) {
	s := newServer(t, pinger{})
	_, clickID := s.setup()

	tests := []struct {
		name    string
		payload string
		signed  bool
		status  int
	}{
		{"unsigned", `{"event_id":"evt_x"}`, false, fiber.StatusUnauthorized},
		{"not json", `{"event_id":`, true, fiber.StatusBadRequest},
		{"missing event id", `{"event_type":"checkout.completed","workspace_id":"` + s.workspace.String() + `","click_id":"x"}`, true, fiber.StatusBadRequest},
		{"unknown click", `{"event_id":"evt_u","event_type":"checkout.completed","workspace_id":"` + s.workspace.String() + `","click_id":"nope","gross_amount":1000}`, true, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.signed {
				resp, _ = s.webhook("/webhooks/payments", []byte(tt.payload))
			} else {
				req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(tt.payload))
				req.Header.Set("Content-Type", "application/json")
				resp, _ = s.do(req)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}

	if n := len(s.store.Unattributed()); n != 1 {
		t.Fatalf("unattributed events %d, want 1", n)
	}

	s.store.Err = errors.New("connection reset")
	resp, body := s.sale("evt_fail", clickID, 10000)
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("storage failure: status %d: %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "connection reset") {
		t.Fatalf("internal error leaked: %s", body)
	}
}

func TestAdminAuth(t *testing.T) {
	s := newServer(t, pinger{})

	resp, _ := s.do(httptest.NewRequest(http.MethodGet, "/api/admin/settings", nil))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("no token: status %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodPost, "/internal/cron/mature", nil)
	req.Header.Set("Authorization", "Bearer "+adminSecret)
	resp, _ = s.do(req)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("admin token on cron: status %d", resp.StatusCode)
	}
}

func TestAdminOperations(t *testing.T) {
	s := newServer(t, pinger{})
	sellerID, _ := s.setup()

	s.admin(http.MethodPost, "/api/admin/settings", fiber.Map{"key": "nope", "value": "1"}, nil, fiber.StatusBadRequest)

	var adjusted struct {
		Balance model.SellerBalance `json:"balance"`
	}
	s.admin(http.MethodPost, "/api/admin/sellers/"+sellerID.String()+"/adjust",
		fiber.Map{"amount": 250, "description": "goodwill"}, &adjusted, fiber.StatusOK)
	if adjusted.Balance.Balance != 250 {
		t.Fatalf("adjusted balance %+v", adjusted.Balance)
	}
	s.admin(http.MethodPost, "/api/admin/sellers/"+sellerID.String()+"/adjust",
		fiber.Map{"amount": 0}, nil, fiber.StatusBadRequest)

	s.store.CorruptBalance(sellerID, 99999)
	var repaired struct {
		Repaired []uuid.UUID `json:"repaired"`
	}
	s.admin(http.MethodPost, "/api/admin/reconcile", nil, &repaired, fiber.StatusOK)
	if len(repaired.Repaired) != 1 || repaired.Repaired[0] != sellerID {
		t.Fatalf("repaired %v", repaired.Repaired)
	}

	var logs struct {
		Logs []model.AdminLog `json:"logs"`
	}
	s.admin(http.MethodGet, "/api/admin/logs", nil, &logs, fiber.StatusOK)
	if len(logs.Logs) == 0 || logs.Logs[0].Actor != "ops@traaaction.com" {
		t.Fatalf("logs %+v", logs.Logs)
	}

	s.admin(http.MethodGet, "/api/missions/not-a-uuid", nil, nil, fiber.StatusBadRequest)
	s.admin(http.MethodGet, "/api/missions/"+uuid.NewString(), nil, nil, fiber.StatusNotFound)
	s.admin(http.MethodGet, "/api/commissions/"+uuid.NewString(), nil, nil, fiber.StatusNotFound)
	s.admin(http.MethodPost, "/api/admin/links/"+uuid.NewString()+"/reattribute",
		fiber.Map{"seller_id": sellerID}, nil, fiber.StatusNotFound)
}

func TestRedirectUnknownSlug(t *testing.T) {
	resp, _ := newServer(t, pinger{}).do(httptest.NewRequest(http.MethodGet, "/r/missing", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
