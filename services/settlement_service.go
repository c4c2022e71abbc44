package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"wagelink-backend/core"
	"wagelink-backend/payout"
	"wagelink-backend/storage/ledger"
)

// DefaultTransferTimeout bounds how long a settlement waits on the payout
// node before declaring the outcome indeterminate.
const DefaultTransferTimeout = 30 * time.Second

// SettlementService orchestrates the two-phase transfer-then-record sequence.
//
// The per-assignment lock serializes the whole sequence so that concurrent
// settle calls for one assignment invoke the transfer capability at most
// once: the loser re-reads state after the winner commits and observes
// ErrAlreadySettled instead of paying twice.
type SettlementService struct {
	store           ledger.Store
	ledger          *LedgerService
	transfer        payout.TransferCapability
	transferTimeout time.Duration
	locks           sync.Map // assignmentID -> *sync.Mutex
	now             func() time.Time
}

// NewSettlementService creates a settlement coordinator.
func NewSettlementService(store ledger.Store, ledgerSvc *LedgerService, transfer payout.TransferCapability, transferTimeout time.Duration) *SettlementService {
	if transferTimeout <= 0 {
		transferTimeout = DefaultTransferTimeout
	}
	return &SettlementService{
		store:           store,
		ledger:          ledgerSvc,
		transfer:        transfer,
		transferTimeout: transferTimeout,
		now:             time.Now,
	}
}

// WithClock overrides the time source.
func (s *SettlementService) WithClock(now func() time.Time) *SettlementService {
	s.now = now
	return s
}

func (s *SettlementService) lockFor(assignmentID int64) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(assignmentID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Settle pays an assignment's wage and records the settlement.
func (s *SettlementService) Settle(ctx context.Context, assignmentID int64, contractorID string) (core.SettlementRecord, error) {
	mu := s.lockFor(assignmentID)
	mu.Lock()
	defer mu.Unlock()

	// Lazy expire runs before any precondition: an assignment whose window
	// just elapsed must not be settleable.
	a, err := s.ledger.Get(ctx, assignmentID)
	if err != nil {
		return core.SettlementRecord{}, err
	}
	if a.ContractorID != contractorID {
		return core.SettlementRecord{}, core.ErrUnauthorized
	}
	switch a.Status {
	case core.StatusPaid:
		return core.SettlementRecord{}, core.ErrAlreadySettled
	case core.StatusDisputed:
		return core.SettlementRecord{}, core.ErrInvalidState
	}

	worker, err := s.store.GetWorkerByHash(ctx, a.WorkerIDHash)
	if err != nil {
		return core.SettlementRecord{}, fmt.Errorf("%w: %v", core.ErrPayeeUnresolved, err)
	}
	if !worker.HasPayoutAddress() {
		return core.SettlementRecord{}, core.ErrPayeeUnresolved
	}

	// Phase one: the external transfer. The assignment id doubles as the
	// idempotency key so the payout node can deduplicate a manual retry
	// after an indeterminate outcome.
	tctx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()
	idempotencyKey := fmt.Sprintf("assignment-%d", assignmentID)
	res, err := s.transfer.Transfer(tctx, worker.PayoutAddress, a.PaymentAmount, idempotencyKey)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Printf("settlement indeterminate: assignment=%d key=%s: %v", assignmentID, idempotencyKey, err)
			return core.SettlementRecord{}, fmt.Errorf("%w (assignment %d)", core.ErrTransferIndeterminate, assignmentID)
		}
		return core.SettlementRecord{}, fmt.Errorf("%w: %v", core.ErrTransferFailed, err)
	}

	// Phase two: record the settlement. Funds have moved, so recording must
	// not be abandoned just because the caller went away.
	rec := core.SettlementRecord{
		AssignmentID:      assignmentID,
		PayerID:           contractorID,
		PayeeWorkerID:     worker.WorkerID,
		Amount:            a.PaymentAmount,
		TransferReference: res.Reference,
		SettledAt:         s.now(),
	}
	stored, err := s.store.RecordSettlement(context.WithoutCancel(ctx), rec)
	if err != nil {
		log.Printf("RECONCILE: transfer confirmed but settlement not recorded: assignment=%d transfer_reference=%s amount=%d: %v",
			assignmentID, res.Reference, a.PaymentAmount, err)
		return core.SettlementRecord{}, fmt.Errorf("%w: assignment=%d transfer_reference=%s: %v",
			core.ErrPostTransferRecordingFailed, assignmentID, res.Reference, err)
	}
	return stored, nil
}

// PaymentHistory returns a worker's settlements newest-first.
func (s *SettlementService) PaymentHistory(ctx context.Context, nationalID string) ([]core.SettlementRecord, error) {
	worker, err := s.ledger.identity.Lookup(ctx, nationalID)
	if err != nil {
		return nil, err
	}
	return s.store.ListSettlementsByWorker(ctx, worker.WorkerID)
}
