package ledger

import (
	"context"

	"wagelink-backend/core"
)

// Store abstracts persistence for workers, assignments, and settlements.
//
// Implementations must provide read-after-write consistency per assignment:
// once a terminal status commits, every subsequent read observes it. The
// conditional operations (MarkDisputed, RecordSettlement) are atomic
// check-and-set transitions; a caller losing a race never corrupts state, it
// gets a business-rule error back.
type Store interface {
	// CreateWorker inserts a new worker record. Fails with
	// core.ErrDuplicateIdentity when a record with the same IDHash exists.
	CreateWorker(ctx context.Context, rec core.WorkerRecord) (core.WorkerRecord, error)
	GetWorkerByHash(ctx context.Context, idHash string) (core.WorkerRecord, error)
	GetWorkerByID(ctx context.Context, workerID string) (core.WorkerRecord, error)
	// UpdateWorkerProfile mutates the worker-owned contact fields only.
	UpdateWorkerProfile(ctx context.Context, idHash, displayName, phone string) (core.WorkerRecord, error)
	SetPayoutAddress(ctx context.Context, idHash, address string) (core.WorkerRecord, error)

	// CreateAssignment persists a new unpaid assignment and allocates a
	// monotonically increasing assignment id.
	CreateAssignment(ctx context.Context, a core.Assignment) (core.Assignment, error)
	GetAssignment(ctx context.Context, id int64) (core.Assignment, error)
	// ListAssignments returns matches ordered newest-created-first.
	ListAssignments(ctx context.Context, filter core.AssignmentFilter) ([]core.Assignment, error)

	// MarkDisputed transitions unpaid -> disputed. Re-marking an already
	// disputed assignment is a no-op success; a paid assignment fails with
	// core.ErrInvalidTransition.
	MarkDisputed(ctx context.Context, id int64) (core.Assignment, error)

	// RecordSettlement atomically flips the assignment unpaid -> paid and
	// inserts the settlement record. Fails with core.ErrAlreadySettled when a
	// record already exists for the assignment, or core.ErrInvalidState when
	// the assignment is not unpaid. Partial application is never visible.
	RecordSettlement(ctx context.Context, rec core.SettlementRecord) (core.SettlementRecord, error)
	GetSettlement(ctx context.Context, assignmentID int64) (core.SettlementRecord, error)
	// ListSettlementsByWorker returns a worker's settlements newest-first.
	ListSettlementsByWorker(ctx context.Context, workerID string) ([]core.SettlementRecord, error)

	Close()
}
