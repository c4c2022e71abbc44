package services

import (
	"context"
	"testing"

	"wagelink-backend/core"
	"wagelink-backend/storage/ledger"
)

const validID = "123456789012"

func newIdentity(t *testing.T) (*IdentityService, *ledger.MemoryStore) {
	t.Helper()
	store := ledger.NewMemoryStore()
	return NewIdentityService(store, nil), store
}

func TestRegisterRejectsMalformedID(t *testing.T) {
	svc, _ := newIdentity(t)

	cases := []string{"", "12345", "1234567890123", "12345678901a", "12345678901 "}
	for _, id := range cases {
		if _, err := svc.Register(context.Background(), id, "Asha", "9876543210"); err != core.ErrInvalidIdentity {
			t.Fatalf("id %q: expected ErrInvalidIdentity, got %v", id, err)
		}
	}
}

func TestRegisterThenLookupReturnsSameWorker(t *testing.T) {
	svc, _ := newIdentity(t)

	created, err := svc.Register(context.Background(), validID, "Asha", "9876543210")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.WorkerID == "" {
		t.Fatal("expected a worker id")
	}
	if created.PayoutAddress != core.PlaceholderAddress {
		t.Fatalf("expected placeholder payout address, got %s", created.PayoutAddress)
	}

	found, err := svc.Lookup(context.Background(), validID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.WorkerID != created.WorkerID {
		t.Fatalf("lookup returned different worker: %s vs %s", found.WorkerID, created.WorkerID)
	}
}

func TestRegisterTwiceFailsWithDuplicateIdentity(t *testing.T) {
	svc, _ := newIdentity(t)

	first, err := svc.Register(context.Background(), validID, "Asha", "9876543210")
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), validID, "Asha Again", "0000000000"); err != core.ErrDuplicateIdentity {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}

	found, err := svc.Lookup(context.Background(), validID)
	if err != nil {
		t.Fatalf("lookup after duplicate attempt: %v", err)
	}
	if found.WorkerID != first.WorkerID {
		t.Fatalf("worker id changed after failed re-register: %s vs %s", found.WorkerID, first.WorkerID)
	}
}

func TestLookupUnknownWorker(t *testing.T) {
	svc, _ := newIdentity(t)
	if _, err := svc.Lookup(context.Background(), "999999999999"); err != core.ErrWorkerNotFound {
		t.Fatalf("expected ErrWorkerNotFound, got %v", err)
	}
}

func TestRawIDNeverPersisted(t *testing.T) {
	svc, store := newIdentity(t)

	if _, err := svc.Register(context.Background(), validID, "Asha", "9876543210"); err != nil {
		t.Fatalf("register: %v", err)
	}
	rec, err := store.GetWorkerByHash(context.Background(), SHA256Hash(validID))
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if rec.IDHash == validID {
		t.Fatal("raw national id stored as hash")
	}
	if len(rec.IDHash) != 64 {
		t.Fatalf("expected 64-char hex digest, got %d chars", len(rec.IDHash))
	}
}

func TestResolveHandleAcceptsRawIDOrHash(t *testing.T) {
	svc, _ := newIdentity(t)

	hash := SHA256Hash(validID)
	if got := svc.ResolveHandle(validID); got != hash {
		t.Fatalf("raw id not hashed: %s", got)
	}
	if got := svc.ResolveHandle(hash); got != hash {
		t.Fatalf("hash should pass through unchanged: %s", got)
	}
}

func TestUpdateProfileAndPayoutAddress(t *testing.T) {
	svc, _ := newIdentity(t)

	if _, err := svc.Register(context.Background(), validID, "Asha", "9876543210"); err != nil {
		t.Fatalf("register: %v", err)
	}
	updated, err := svc.UpdateProfile(context.Background(), validID, "Asha Kumari", "")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.DisplayName != "Asha Kumari" || updated.Phone != "9876543210" {
		t.Fatalf("unexpected profile after update: %+v", updated)
	}

	if _, err := svc.SetPayoutAddress(context.Background(), validID, ""); err == nil {
		t.Fatal("empty payout address should be rejected")
	}
	provisioned, err := svc.SetPayoutAddress(context.Background(), validID, "0xfeed")
	if err != nil {
		t.Fatalf("set payout address: %v", err)
	}
	if !provisioned.HasPayoutAddress() {
		t.Fatal("payout address not provisioned")
	}
}
