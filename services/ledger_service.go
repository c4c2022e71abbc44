package services

import (
	"context"
	"time"

	"wagelink-backend/core"
	"wagelink-backend/storage/ledger"
)

// LedgerService handles assignment lifecycle business logic.
//
// Expiration is enforced lazily: there is no background sweep, so every read
// or mutation first applies the unpaid-past-expiry -> disputed transition
// before trusting the stored status.
type LedgerService struct {
	store    ledger.Store
	identity *IdentityService
	now      func() time.Time
}

// NewLedgerService creates a ledger service.
func NewLedgerService(store ledger.Store, identity *IdentityService) *LedgerService {
	return &LedgerService{
		store:    store,
		identity: identity,
		now:      time.Now,
	}
}

// WithClock overrides the time source.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// Create opens a new unpaid assignment for a resolvable worker.
func (s *LedgerService) Create(ctx context.Context, contractorID, nationalID string, days int, amount int64) (core.Assignment, error) {
	if days <= 0 {
		return core.Assignment{}, core.ErrInvalidDuration
	}
	if amount <= 0 {
		return core.Assignment{}, core.ErrInvalidAmount
	}
	worker, err := s.identity.Lookup(ctx, nationalID)
	if err != nil {
		return core.Assignment{}, err
	}

	createdAt := s.now()
	return s.store.CreateAssignment(ctx, core.Assignment{
		ContractorID:  contractorID,
		WorkerIDHash:  worker.IDHash,
		PaymentAmount: amount,
		CreatedAt:     createdAt,
		ExpiresAt:     createdAt.AddDate(0, 0, days),
	})
}

// Get returns an assignment with the lazy expiration check applied.
func (s *LedgerService) Get(ctx context.Context, id int64) (core.Assignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return core.Assignment{}, err
	}
	return s.expireIfDue(ctx, a)
}

// ListByContractor returns a contractor's assignments newest-created-first.
func (s *LedgerService) ListByContractor(ctx context.Context, contractorID string) ([]core.Assignment, error) {
	return s.list(ctx, core.AssignmentFilter{ContractorID: contractorID})
}

// ListByWorker returns a worker's assignments newest-created-first. The
// handle may be a raw national ID or an identity hash.
func (s *LedgerService) ListByWorker(ctx context.Context, handle string) ([]core.Assignment, error) {
	return s.list(ctx, core.AssignmentFilter{WorkerIDHash: s.identity.ResolveHandle(handle)})
}

func (s *LedgerService) list(ctx context.Context, filter core.AssignmentFilter) ([]core.Assignment, error) {
	assignments, err := s.store.ListAssignments(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i, a := range assignments {
		expired, err := s.expireIfDue(ctx, a)
		if err != nil {
			return nil, err
		}
		assignments[i] = expired
	}
	return assignments, nil
}

// expireIfDue applies the auto-expire transition when the settlement window
// has elapsed on a still-unpaid assignment.
func (s *LedgerService) expireIfDue(ctx context.Context, a core.Assignment) (core.Assignment, error) {
	if a.Status != core.StatusUnpaid || !a.Expired(s.now()) {
		return a, nil
	}
	disputed, err := s.store.MarkDisputed(ctx, a.AssignmentID)
	if err == core.ErrInvalidTransition {
		// Lost the race to a settlement; re-read the committed state.
		return s.store.GetAssignment(ctx, a.AssignmentID)
	}
	if err != nil {
		return core.Assignment{}, err
	}
	return disputed, nil
}
