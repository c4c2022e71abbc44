package core

// Err is a simple string error helper.
type Err string

func (e Err) Error() string { return string(e) }

// Validation errors: rejected before any lookup or mutation.
var (
	ErrInvalidIdentity = Err("national id must be a 12-digit number")
	ErrInvalidAmount   = Err("payment amount must be positive")
	ErrInvalidDuration = Err("assignment duration must be a positive number of days")
)

// Business-rule rejections.
var (
	ErrWorkerNotFound     = Err("worker not found")
	ErrAssignmentNotFound = Err("assignment not found")
	ErrDuplicateIdentity  = Err("a worker with this national id is already registered")
	ErrAlreadySettled     = Err("assignment has already been settled")
	ErrInvalidTransition  = Err("assignment is in a terminal state")
	ErrInvalidState       = Err("assignment is not in a settleable state")
	ErrUnauthorized       = Err("caller is not a party entitled to perform this action")
)

// External-dependency errors.
var (
	// ErrPayeeUnresolved means the worker has no provisioned payout address.
	ErrPayeeUnresolved = Err("worker payout address is not provisioned")
	// ErrTransferFailed means the transfer capability reported failure; the
	// assignment is unchanged and the settlement may be retried.
	ErrTransferFailed = Err("fund transfer failed")
	// ErrTransferIndeterminate means the transfer capability did not respond
	// within the deadline. The outcome is unknown: the assignment is left
	// unpaid and no automatic retry is ever attempted.
	ErrTransferIndeterminate = Err("fund transfer outcome unknown, manual reconciliation required")
)

// ErrPostTransferRecordingFailed means funds moved but the ledger could not
// record the settlement. This is the one condition requiring human
// reconciliation; callers must surface it with the assignment id and
// transfer reference attached.
var ErrPostTransferRecordingFailed = Err("transfer confirmed but settlement could not be recorded")
