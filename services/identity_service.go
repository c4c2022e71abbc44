package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"wagelink-backend/authority"
	"wagelink-backend/core"
	"wagelink-backend/storage/ledger"
)

// HashFn derives the persisted lookup key from a raw national ID. It must be
// deterministic and one-way; the raw ID never reaches the store.
type HashFn func(rawID string) string

// SHA256Hash is the default identity hash.
func SHA256Hash(rawID string) string {
	sum := sha256.Sum256([]byte(rawID))
	return hex.EncodeToString(sum[:])
}

const nationalIDLength = 12

// ValidateNationalID checks the caller-supplied id before it is ever hashed.
func ValidateNationalID(nationalID string) error {
	if len(nationalID) != nationalIDLength {
		return core.ErrInvalidIdentity
	}
	for _, c := range nationalID {
		if c < '0' || c > '9' {
			return core.ErrInvalidIdentity
		}
	}
	return nil
}

// IdentityService handles worker registration and pseudonymous lookup.
type IdentityService struct {
	store    ledger.Store
	hash     HashFn
	verifier authority.Verifier
	now      func() time.Time
}

// NewIdentityService creates an identity service. verifier may be nil when no
// external registry is configured; ExternalVerify then fails closed.
func NewIdentityService(store ledger.Store, verifier authority.Verifier) *IdentityService {
	return &IdentityService{
		store:    store,
		hash:     SHA256Hash,
		verifier: verifier,
		now:      time.Now,
	}
}

// WithClock overrides the time source.
func (s *IdentityService) WithClock(now func() time.Time) *IdentityService {
	s.now = now
	return s
}

// HashID exposes the identity hash for collaborating services.
func (s *IdentityService) HashID(nationalID string) string {
	return s.hash(nationalID)
}

// Register creates a new worker record. Registration is not idempotent: a
// second call with the same national ID fails with ErrDuplicateIdentity.
func (s *IdentityService) Register(ctx context.Context, nationalID, displayName, phone string) (core.WorkerRecord, error) {
	if err := ValidateNationalID(nationalID); err != nil {
		return core.WorkerRecord{}, err
	}
	rec := core.WorkerRecord{
		IDHash:        s.hash(nationalID),
		DisplayName:   displayName,
		Phone:         phone,
		PayoutAddress: core.PlaceholderAddress,
		CreatedAt:     s.now(),
	}
	return s.store.CreateWorker(ctx, rec)
}

// Lookup resolves a worker by recomputing the identity hash.
func (s *IdentityService) Lookup(ctx context.Context, nationalID string) (core.WorkerRecord, error) {
	if err := ValidateNationalID(nationalID); err != nil {
		return core.WorkerRecord{}, err
	}
	return s.store.GetWorkerByHash(ctx, s.hash(nationalID))
}

// ResolveHandle accepts either a raw 12-digit national ID or an already
// derived identity hash and returns the hash. Listing endpoints take both.
func (s *IdentityService) ResolveHandle(handle string) string {
	if ValidateNationalID(handle) == nil {
		return s.hash(handle)
	}
	return handle
}

// ExternalVerify checks registration details against the citizen registry.
// Pure lookup: no mutation on either side.
func (s *IdentityService) ExternalVerify(ctx context.Context, nationalID, name, phone, dateOfBirth string) (bool, error) {
	if err := ValidateNationalID(nationalID); err != nil {
		return false, err
	}
	if s.verifier == nil {
		return false, fmt.Errorf("no citizen registry configured")
	}
	return s.verifier.Verify(ctx, nationalID, name, phone, dateOfBirth)
}

// UpdateProfile mutates the worker-owned contact fields.
func (s *IdentityService) UpdateProfile(ctx context.Context, nationalID, displayName, phone string) (core.WorkerRecord, error) {
	if err := ValidateNationalID(nationalID); err != nil {
		return core.WorkerRecord{}, err
	}
	return s.store.UpdateWorkerProfile(ctx, s.hash(nationalID), displayName, phone)
}

// SetPayoutAddress provisions the worker's transfer destination.
func (s *IdentityService) SetPayoutAddress(ctx context.Context, nationalID, address string) (core.WorkerRecord, error) {
	if err := ValidateNationalID(nationalID); err != nil {
		return core.WorkerRecord{}, err
	}
	if address == "" || address == core.PlaceholderAddress {
		return core.WorkerRecord{}, fmt.Errorf("payout address required")
	}
	return s.store.SetPayoutAddress(ctx, s.hash(nationalID), address)
}
