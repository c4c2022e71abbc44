package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"wagelink-backend/core"
	"wagelink-backend/middleware"
	"wagelink-backend/payout"
	"wagelink-backend/services"
	"wagelink-backend/storage/auth"
	"wagelink-backend/storage/ledger"
)

type stubTransfer struct {
	calls int
	fail  bool
}

func (t *stubTransfer) Transfer(ctx context.Context, destination string, amount int64, idempotencyKey string) (payout.TransferResult, error) {
	t.calls++
	if t.fail {
		return payout.TransferResult{}, payout.ErrRejected
	}
	return payout.TransferResult{Reference: "tx-ref-1"}, nil
}

type apiFixture struct {
	store      *ledger.MemoryStore
	identity   *services.IdentityService
	ledgerSvc  *services.LedgerService
	settlement *services.SettlementService
	transfer   *stubTransfer
	apiKey     string
	auth       func(http.Handler) http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := ledger.NewMemoryStore()
	identity := services.NewIdentityService(store, nil)
	ledgerSvc := services.NewLedgerService(store, identity)
	transfer := &stubTransfer{}
	settlement := services.NewSettlementService(store, ledgerSvc, transfer, 0)

	keys := auth.NewAPIKeyStore()
	issued, err := keys.Issue("contractor@example.com", "contractor-1", "test")
	if err != nil {
		t.Fatalf("issue api key: %v", err)
	}

	return &apiFixture{
		store:      store,
		identity:   identity,
		ledgerSvc:  ledgerSvc,
		settlement: settlement,
		transfer:   transfer,
		apiKey:     issued.Key,
		auth:       middleware.APIAuth(keys),
	}
}

// registerFundedWorker registers a worker with a provisioned payout address
// and opens a 30-day assignment for it.
func (f *apiFixture) registerFundedWorker(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	if _, err := f.identity.Register(ctx, testNationalID, "Asha", "9876543210"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.identity.SetPayoutAddress(ctx, testNationalID, "0xabc123abc123abc123abc123abc123abc123abc1"); err != nil {
		t.Fatalf("set payout address: %v", err)
	}
	a, err := f.ledgerSvc.Create(ctx, "contractor-1", testNationalID, 30, 50_000)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	return a.AssignmentID
}

func (f *apiFixture) do(handler http.HandlerFunc, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("X-API-Key", f.apiKey)
	}
	rr := httptest.NewRecorder()
	f.auth(handler).ServeHTTP(rr, req)
	return rr
}

func TestProcessPayment(t *testing.T) {
	f := newAPIFixture(t)
	id := f.registerFundedWorker(t)
	h := NewPaymentHandler(f.settlement)

	rr := f.do(h.HandleProcessPayment, http.MethodPost, "/api/process-payment", map[string]int64{"assignment_id": id}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if f.transfer.calls != 1 {
		t.Fatalf("expected 1 transfer call, got %d", f.transfer.calls)
	}

	a, err := f.ledgerSvc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if a.Status != core.StatusPaid {
		t.Fatalf("expected paid, got %s", a.Status)
	}
}

func TestProcessPaymentTwice(t *testing.T) {
	f := newAPIFixture(t)
	id := f.registerFundedWorker(t)
	h := NewPaymentHandler(f.settlement)
	body := map[string]int64{"assignment_id": id}

	if rr := f.do(h.HandleProcessPayment, http.MethodPost, "/api/process-payment", body, true); rr.Code != http.StatusOK {
		t.Fatalf("first payment: expected 200, got %d", rr.Code)
	}
	if rr := f.do(h.HandleProcessPayment, http.MethodPost, "/api/process-payment", body, true); rr.Code != http.StatusConflict {
		t.Fatalf("second payment: expected 409, got %d", rr.Code)
	}
	if f.transfer.calls != 1 {
		t.Fatalf("expected exactly 1 transfer call, got %d", f.transfer.calls)
	}
}

func TestProcessPaymentTransferFailure(t *testing.T) {
	f := newAPIFixture(t)
	id := f.registerFundedWorker(t)
	f.transfer.fail = true
	h := NewPaymentHandler(f.settlement)

	rr := f.do(h.HandleProcessPayment, http.MethodPost, "/api/process-payment", map[string]int64{"assignment_id": id}, true)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rr.Code, rr.Body.String())
	}

	// Assignment stays unpaid so the contractor may retry.
	a, err := f.ledgerSvc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if a.Status != core.StatusUnpaid {
		t.Fatalf("expected unpaid after failed transfer, got %s", a.Status)
	}
}

func TestProcessPaymentRequiresAPIKey(t *testing.T) {
	f := newAPIFixture(t)
	id := f.registerFundedWorker(t)
	h := NewPaymentHandler(f.settlement)

	rr := f.do(h.HandleProcessPayment, http.MethodPost, "/api/process-payment", map[string]int64{"assignment_id": id}, false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if f.transfer.calls != 0 {
		t.Fatal("transfer must not run without authentication")
	}
}

func TestAssignWorkAndListing(t *testing.T) {
	f := newAPIFixture(t)
	if _, err := f.identity.Register(context.Background(), testNationalID, "Asha", "9876543210"); err != nil {
		t.Fatalf("register: %v", err)
	}
	h := NewAssignmentHandler(f.ledgerSvc)

	rr := f.do(h.HandleAssignWork, http.MethodPost, "/api/assign-work", map[string]interface{}{
		"national_id": testNationalID,
		"days":        14,
		"payment":     25_000,
	}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("assign: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = f.do(h.HandleContractorAssignments, http.MethodGet, "/api/contractor-assignments", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data struct {
			Total int `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if resp.Data.Total != 1 {
		t.Fatalf("expected 1 assignment, got %d", resp.Data.Total)
	}
}

func TestAssignWorkRejectsBadWindow(t *testing.T) {
	f := newAPIFixture(t)
	if _, err := f.identity.Register(context.Background(), testNationalID, "Asha", "9876543210"); err != nil {
		t.Fatalf("register: %v", err)
	}
	h := NewAssignmentHandler(f.ledgerSvc)

	rr := f.do(h.HandleAssignWork, http.MethodPost, "/api/assign-work", map[string]interface{}{
		"national_id": testNationalID,
		"days":        0,
		"payment":     25_000,
	}, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRaiseDisputeAsContractor(t *testing.T) {
	f := newAPIFixture(t)
	id := f.registerFundedWorker(t)
	disputes := services.NewDisputeService(f.store, f.ledgerSvc)
	h := NewDisputeHandler(disputes)

	rr := f.do(h.HandleRaiseDispute, http.MethodPost, "/api/raise-dispute", map[string]int64{"assignment_id": id}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	a, err := f.ledgerSvc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if a.Status != core.StatusDisputed {
		t.Fatalf("expected disputed, got %s", a.Status)
	}
}
