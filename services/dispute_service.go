package services

import (
	"context"
	"time"

	"wagelink-backend/core"
	"wagelink-backend/storage/ledger"
)

// DisputeService applies the manual and automatic transitions into the
// disputed state.
type DisputeService struct {
	store  ledger.Store
	ledger *LedgerService
	now    func() time.Time
}

// NewDisputeService creates a dispute resolver.
func NewDisputeService(store ledger.Store, ledgerSvc *LedgerService) *DisputeService {
	return &DisputeService{
		store:  store,
		ledger: ledgerSvc,
		now:    time.Now,
	}
}

// WithClock overrides the time source.
func (s *DisputeService) WithClock(now func() time.Time) *DisputeService {
	s.now = now
	return s
}

// Raise freezes an assignment. Either party may raise; settling is
// contractor-only, but freezing pending review is not. Raising on an
// already-disputed assignment is a no-op success. A paid assignment cannot
// be reopened.
func (s *DisputeService) Raise(ctx context.Context, assignmentID int64, callerID string) (core.Assignment, error) {
	a, err := s.ledger.Get(ctx, assignmentID)
	if err != nil {
		return core.Assignment{}, err
	}

	if a.ContractorID != callerID {
		worker, werr := s.store.GetWorkerByHash(ctx, a.WorkerIDHash)
		if werr != nil || worker.WorkerID != callerID {
			return core.Assignment{}, core.ErrUnauthorized
		}
	}

	if a.Status == core.StatusPaid {
		return core.Assignment{}, core.ErrInvalidState
	}
	// For an expired assignment the lazy check in Get already disputed it;
	// MarkDisputed then just returns the terminal state. The result is the
	// same whichever transition "caused" it.
	return s.store.MarkDisputed(ctx, assignmentID)
}
