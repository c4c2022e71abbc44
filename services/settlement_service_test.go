package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wagelink-backend/core"
	"wagelink-backend/payout"
	"wagelink-backend/storage/ledger"
)

// fakeTransfer is a controllable transfer capability.
type fakeTransfer struct {
	calls     atomic.Int64
	reject    bool
	delay     time.Duration
	reference string
	lastKey   string
	mu        sync.Mutex
}

func (f *fakeTransfer) Transfer(ctx context.Context, destination string, amount int64, idempotencyKey string) (payout.TransferResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastKey = idempotencyKey
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return payout.TransferResult{}, ctx.Err()
		}
	}
	if f.reject {
		return payout.TransferResult{}, fmt.Errorf("%w: node said no", payout.ErrRejected)
	}
	ref := f.reference
	if ref == "" {
		ref = "0xref"
	}
	return payout.TransferResult{Reference: ref}, nil
}

type settlementFixture struct {
	store      *ledger.MemoryStore
	identity   *IdentityService
	ledger     *LedgerService
	settlement *SettlementService
	transfer   *fakeTransfer
	clock      *testClock
}

func newSettlementFixture(t *testing.T, transfer *fakeTransfer) *settlementFixture {
	t.Helper()
	store := ledger.NewMemoryStore()
	clock := &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	identity := NewIdentityService(store, nil).WithClock(clock.Now)
	ledgerSvc := NewLedgerService(store, identity).WithClock(clock.Now)
	settlement := NewSettlementService(store, ledgerSvc, transfer, time.Second).WithClock(clock.Now)

	ctx := context.Background()
	if _, err := identity.Register(ctx, validID, "Asha", "9876543210"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := identity.SetPayoutAddress(ctx, validID, "0xfeedbeef"); err != nil {
		t.Fatalf("provision address: %v", err)
	}
	return &settlementFixture{
		store:      store,
		identity:   identity,
		ledger:     ledgerSvc,
		settlement: settlement,
		transfer:   transfer,
		clock:      clock,
	}
}

func (f *settlementFixture) createAssignment(t *testing.T, days int, amount int64) core.Assignment {
	t.Helper()
	a, err := f.ledger.Create(context.Background(), "contractor-1", validID, days, amount)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	return a
}

func TestSettleHappyPath(t *testing.T) {
	transfer := &fakeTransfer{reference: "0xsettled"}
	f := newSettlementFixture(t, transfer)
	a := f.createAssignment(t, 5, 500)

	rec, err := f.settlement.Settle(context.Background(), a.AssignmentID, "contractor-1")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if rec.Amount != 500 {
		t.Fatalf("expected amount 500, got %d", rec.Amount)
	}
	if rec.TransferReference != "0xsettled" {
		t.Fatalf("unexpected reference %s", rec.TransferReference)
	}

	got, err := f.ledger.Get(context.Background(), a.AssignmentID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != core.StatusPaid {
		t.Fatalf("expected paid, got %s", got.Status)
	}
	if n := transfer.calls.Load(); n != 1 {
		t.Fatalf("expected one transfer invocation, got %d", n)
	}
	if transfer.lastKey != fmt.Sprintf("assignment-%d", a.AssignmentID) {
		t.Fatalf("idempotency key not derived from assignment id: %s", transfer.lastKey)
	}
}

func TestSettleByWrongContractorIsUnauthorized(t *testing.T) {
	transfer := &fakeTransfer{}
	f := newSettlementFixture(t, transfer)
	a := f.createAssignment(t, 5, 500)

	if _, err := f.settlement.Settle(context.Background(), a.AssignmentID, "contractor-2"); err != core.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if n := transfer.calls.Load(); n != 0 {
		t.Fatalf("transfer must not run for unauthorized caller, got %d calls", n)
	}
	got, _ := f.ledger.Get(context.Background(), a.AssignmentID)
	if got.Status != core.StatusUnpaid {
		t.Fatalf("state changed on unauthorized settle: %s", got.Status)
	}
}

func TestSettleExpiredAssignmentFails(t *testing.T) {
	transfer := &fakeTransfer{}
	f := newSettlementFixture(t, transfer)
	a := f.createAssignment(t, 1, 500)

	f.clock.Advance(25 * time.Hour)
	_, err := f.settlement.Settle(context.Background(), a.AssignmentID, "contractor-1")
	if err != core.ErrInvalidState {
		t.Fatalf("expected ErrInvalidState on expired assignment, got %v", err)
	}
	if n := transfer.calls.Load(); n != 0 {
		t.Fatalf("transfer must not run for expired assignment, got %d calls", n)
	}
	got, _ := f.ledger.Get(context.Background(), a.AssignmentID)
	if got.Status != core.StatusDisputed {
		t.Fatalf("expected auto-disputed, got %s", got.Status)
	}
}

func TestSettleUnprovisionedPayee(t *testing.T) {
	transfer := &fakeTransfer{}
	store := ledger.NewMemoryStore()
	clock := &testClock{now: time.Now()}
	identity := NewIdentityService(store, nil).WithClock(clock.Now)
	ledgerSvc := NewLedgerService(store, identity).WithClock(clock.Now)
	settlement := NewSettlementService(store, ledgerSvc, transfer, time.Second)

	ctx := context.Background()
	if _, err := identity.Register(ctx, validID, "Asha", "9876543210"); err != nil {
		t.Fatalf("register: %v", err)
	}
	a, err := ledgerSvc.Create(ctx, "contractor-1", validID, 5, 500)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := settlement.Settle(ctx, a.AssignmentID, "contractor-1"); !errors.Is(err, core.ErrPayeeUnresolved) {
		t.Fatalf("expected ErrPayeeUnresolved, got %v", err)
	}
	if n := transfer.calls.Load(); n != 0 {
		t.Fatalf("transfer must not run without payout address, got %d calls", n)
	}
}

func TestSettleTransferFailureIsRetryable(t *testing.T) {
	transfer := &fakeTransfer{reject: true}
	f := newSettlementFixture(t, transfer)
	a := f.createAssignment(t, 5, 500)

	_, err := f.settlement.Settle(context.Background(), a.AssignmentID, "contractor-1")
	if !errors.Is(err, core.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	got, _ := f.ledger.Get(context.Background(), a.AssignmentID)
	if got.Status != core.StatusUnpaid {
		t.Fatalf("failed transfer must leave assignment unpaid, got %s", got.Status)
	}

	// The caller corrects the condition and retries.
	transfer.reject = false
	if _, err := f.settlement.Settle(context.Background(), a.AssignmentID, "contractor-1"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestSettleTimeoutIsIndeterminate(t *testing.T) {
	transfer := &fakeTransfer{delay: 5 * time.Second}
	f := newSettlementFixture(t, transfer)
	f.settlement = NewSettlementService(f.store, f.ledger, transfer, 50*time.Millisecond).WithClock(f.clock.Now)
	a := f.createAssignment(t, 5, 500)

	_, err := f.settlement.Settle(context.Background(), a.AssignmentID, "contractor-1")
	if !errors.Is(err, core.ErrTransferIndeterminate) {
		t.Fatalf("expected ErrTransferIndeterminate, got %v", err)
	}
	if n := transfer.calls.Load(); n != 1 {
		t.Fatalf("expected exactly one transfer attempt, got %d", n)
	}
	got, _ := f.ledger.Get(context.Background(), a.AssignmentID)
	if got.Status != core.StatusUnpaid {
		t.Fatalf("indeterminate outcome must leave assignment unpaid, got %s", got.Status)
	}
}

func TestSettleTwiceFailsWithAlreadySettled(t *testing.T) {
	transfer := &fakeTransfer{}
	f := newSettlementFixture(t, transfer)
	a := f.createAssignment(t, 5, 500)

	if _, err := f.settlement.Settle(context.Background(), a.AssignmentID, "contractor-1"); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	if _, err := f.settlement.Settle(context.Background(), a.AssignmentID, "contractor-1"); err != core.ErrAlreadySettled {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
	if n := transfer.calls.Load(); n != 1 {
		t.Fatalf("second settle must not re-invoke transfer, got %d calls", n)
	}
}

func TestConcurrentSettlesInvokeTransferOnce(t *testing.T) {
	transfer := &fakeTransfer{delay: 20 * time.Millisecond}
	f := newSettlementFixture(t, transfer)
	a := f.createAssignment(t, 5, 500)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.settlement.Settle(context.Background(), a.AssignmentID, "contractor-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, core.ErrAlreadySettled), errors.Is(err, core.ErrInvalidState):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful settle, got %d", wins)
	}
	if n := transfer.calls.Load(); n != 1 {
		t.Fatalf("expected exactly one transfer invocation, got %d", n)
	}

	records, err := f.store.ListSettlementsByWorker(context.Background(), mustWorkerID(t, f))
	if err != nil {
		t.Fatalf("list settlements: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one settlement record, got %d", len(records))
	}
}

func mustWorkerID(t *testing.T, f *settlementFixture) string {
	t.Helper()
	w, err := f.identity.Lookup(context.Background(), validID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	return w.WorkerID
}

// failingStore wraps the memory store but refuses to record settlements,
// simulating a crash between the transfer and the ledger write.
type failingStore struct {
	*ledger.MemoryStore
}

func (s *failingStore) RecordSettlement(ctx context.Context, rec core.SettlementRecord) (core.SettlementRecord, error) {
	return core.SettlementRecord{}, fmt.Errorf("disk on fire")
}

func TestRecordingFailureAfterTransferIsFatal(t *testing.T) {
	base := ledger.NewMemoryStore()
	store := &failingStore{MemoryStore: base}
	clock := &testClock{now: time.Now()}
	identity := NewIdentityService(store, nil).WithClock(clock.Now)
	ledgerSvc := NewLedgerService(store, identity).WithClock(clock.Now)
	transfer := &fakeTransfer{reference: "0xmoved"}
	settlement := NewSettlementService(store, ledgerSvc, transfer, time.Second)

	ctx := context.Background()
	if _, err := identity.Register(ctx, validID, "Asha", "9876543210"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := identity.SetPayoutAddress(ctx, validID, "0xfeed"); err != nil {
		t.Fatalf("provision: %v", err)
	}
	a, err := ledgerSvc.Create(ctx, "contractor-1", validID, 5, 500)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = settlement.Settle(ctx, a.AssignmentID, "contractor-1")
	if !errors.Is(err, core.ErrPostTransferRecordingFailed) {
		t.Fatalf("expected ErrPostTransferRecordingFailed, got %v", err)
	}
	// The error must carry enough context for manual reconciliation.
	msg := err.Error()
	if !strings.Contains(msg, fmt.Sprintf("assignment=%d", a.AssignmentID)) || !strings.Contains(msg, "0xmoved") {
		t.Fatalf("reconciliation detail missing from error: %s", msg)
	}
	if n := transfer.calls.Load(); n != 1 {
		t.Fatalf("expected one transfer, got %d", n)
	}
}

func TestPaymentHistoryNewestFirst(t *testing.T) {
	transfer := &fakeTransfer{}
	f := newSettlementFixture(t, transfer)

	first := f.createAssignment(t, 5, 100)
	second := f.createAssignment(t, 5, 200)

	if _, err := f.settlement.Settle(context.Background(), first.AssignmentID, "contractor-1"); err != nil {
		t.Fatalf("settle first: %v", err)
	}
	f.clock.Advance(time.Minute)
	if _, err := f.settlement.Settle(context.Background(), second.AssignmentID, "contractor-1"); err != nil {
		t.Fatalf("settle second: %v", err)
	}

	history, err := f.settlement.PaymentHistory(context.Background(), validID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(history))
	}
	if history[0].AssignmentID != second.AssignmentID {
		t.Fatal("payment history not newest-first")
	}
}
