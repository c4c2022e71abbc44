package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wagelink-backend/core"
)

// PGStore persists ledger state in Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects and initializes the schema.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS workers (
  worker_id TEXT PRIMARY KEY,
  id_hash TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  phone TEXT,
  payout_address TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS assignments (
  assignment_id BIGSERIAL PRIMARY KEY,
  contractor_id TEXT NOT NULL,
  worker_id_hash TEXT NOT NULL REFERENCES workers(id_hash),
  payment_amount BIGINT NOT NULL CHECK (payment_amount > 0),
  status TEXT NOT NULL DEFAULT 'unpaid',
  created_at TIMESTAMPTZ NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS settlements (
  assignment_id BIGINT PRIMARY KEY REFERENCES assignments(assignment_id),
  payer_id TEXT NOT NULL,
  payee_worker_id TEXT NOT NULL,
  amount BIGINT NOT NULL,
  transfer_reference TEXT NOT NULL,
  settled_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assignments_contractor ON assignments(contractor_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_assignments_worker ON assignments(worker_id_hash, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_settlements_payee ON settlements(payee_worker_id, settled_at DESC);
`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateWorker inserts a new worker, allocating its worker id.
func (s *PGStore) CreateWorker(ctx context.Context, rec core.WorkerRecord) (core.WorkerRecord, error) {
	id, err := generateWorkerID()
	if err != nil {
		return core.WorkerRecord{}, err
	}
	rec.WorkerID = id
	_, err = s.pool.Exec(ctx, `
INSERT INTO workers (worker_id, id_hash, display_name, phone, payout_address, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, rec.WorkerID, rec.IDHash, rec.DisplayName, rec.Phone, rec.PayoutAddress, rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.WorkerRecord{}, core.ErrDuplicateIdentity
		}
		return core.WorkerRecord{}, fmt.Errorf("insert worker: %w", err)
	}
	return rec, nil
}

func scanWorker(row pgx.Row) (core.WorkerRecord, error) {
	var rec core.WorkerRecord
	err := row.Scan(&rec.WorkerID, &rec.IDHash, &rec.DisplayName, &rec.Phone, &rec.PayoutAddress, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.WorkerRecord{}, core.ErrWorkerNotFound
	}
	if err != nil {
		return core.WorkerRecord{}, fmt.Errorf("scan worker: %w", err)
	}
	return rec, nil
}

const workerColumns = `worker_id, id_hash, display_name, phone, payout_address, created_at`

func (s *PGStore) GetWorkerByHash(ctx context.Context, idHash string) (core.WorkerRecord, error) {
	return scanWorker(s.pool.QueryRow(ctx,
		`SELECT `+workerColumns+` FROM workers WHERE id_hash=$1`, idHash))
}

func (s *PGStore) GetWorkerByID(ctx context.Context, workerID string) (core.WorkerRecord, error) {
	return scanWorker(s.pool.QueryRow(ctx,
		`SELECT `+workerColumns+` FROM workers WHERE worker_id=$1`, workerID))
}

// UpdateWorkerProfile mutates contact fields only.
func (s *PGStore) UpdateWorkerProfile(ctx context.Context, idHash, displayName, phone string) (core.WorkerRecord, error) {
	return scanWorker(s.pool.QueryRow(ctx, `
UPDATE workers
SET display_name = COALESCE(NULLIF($2, ''), display_name),
    phone = COALESCE(NULLIF($3, ''), phone)
WHERE id_hash = $1
RETURNING `+workerColumns, idHash, displayName, phone))
}

func (s *PGStore) SetPayoutAddress(ctx context.Context, idHash, address string) (core.WorkerRecord, error) {
	return scanWorker(s.pool.QueryRow(ctx, `
UPDATE workers SET payout_address = $2 WHERE id_hash = $1
RETURNING `+workerColumns, idHash, address))
}

// CreateAssignment persists a new unpaid assignment.
func (s *PGStore) CreateAssignment(ctx context.Context, a core.Assignment) (core.Assignment, error) {
	a.Status = core.StatusUnpaid
	err := s.pool.QueryRow(ctx, `
INSERT INTO assignments (contractor_id, worker_id_hash, payment_amount, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING assignment_id
`, a.ContractorID, a.WorkerIDHash, a.PaymentAmount, a.Status, a.CreatedAt, a.ExpiresAt).Scan(&a.AssignmentID)
	if err != nil {
		return core.Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	return a, nil
}

const assignmentColumns = `assignment_id, contractor_id, worker_id_hash, payment_amount, status, created_at, expires_at`

func scanAssignment(row pgx.Row) (core.Assignment, error) {
	var a core.Assignment
	err := row.Scan(&a.AssignmentID, &a.ContractorID, &a.WorkerIDHash, &a.PaymentAmount, &a.Status, &a.CreatedAt, &a.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Assignment{}, core.ErrAssignmentNotFound
	}
	if err != nil {
		return core.Assignment{}, fmt.Errorf("scan assignment: %w", err)
	}
	return a, nil
}

func (s *PGStore) GetAssignment(ctx context.Context, id int64) (core.Assignment, error) {
	return scanAssignment(s.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE assignment_id=$1`, id))
}

// ListAssignments returns matches newest-created-first.
func (s *PGStore) ListAssignments(ctx context.Context, filter core.AssignmentFilter) ([]core.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE 1=1`
	args := []interface{}{}
	if filter.ContractorID != "" {
		args = append(args, filter.ContractorID)
		query += fmt.Sprintf(" AND contractor_id=$%d", len(args))
	}
	if filter.WorkerIDHash != "" {
		args = append(args, filter.WorkerIDHash)
		query += fmt.Sprintf(" AND worker_id_hash=$%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	query += " ORDER BY created_at DESC, assignment_id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := make([]core.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkDisputed transitions unpaid -> disputed with a conditional update.
func (s *PGStore) MarkDisputed(ctx context.Context, id int64) (core.Assignment, error) {
	a, err := scanAssignment(s.pool.QueryRow(ctx, `
UPDATE assignments SET status='disputed'
WHERE assignment_id=$1 AND status='unpaid'
RETURNING `+assignmentColumns, id))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, core.ErrAssignmentNotFound) {
		return core.Assignment{}, err
	}

	// Zero rows updated: either missing, already disputed, or paid.
	a, err = s.GetAssignment(ctx, id)
	if err != nil {
		return core.Assignment{}, err
	}
	switch a.Status {
	case core.StatusDisputed:
		return a, nil
	case core.StatusPaid:
		return core.Assignment{}, core.ErrInvalidTransition
	}
	return core.Assignment{}, core.ErrInvalidState
}

// RecordSettlement flips unpaid -> paid and inserts the settlement record in
// one transaction, row-locked on the assignment.
func (s *PGStore) RecordSettlement(ctx context.Context, rec core.SettlementRecord) (core.SettlementRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.SettlementRecord{}, fmt.Errorf("begin settlement tx: %w", err)
	}
	defer tx.Rollback(ctx)

	a, err := scanAssignment(tx.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE assignment_id=$1 FOR UPDATE`, rec.AssignmentID))
	if err != nil {
		return core.SettlementRecord{}, err
	}

	var existing int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM settlements WHERE assignment_id=$1`, rec.AssignmentID).Scan(&existing); err != nil {
		return core.SettlementRecord{}, fmt.Errorf("check settlement: %w", err)
	}
	if existing > 0 {
		return core.SettlementRecord{}, core.ErrAlreadySettled
	}
	if a.Status != core.StatusUnpaid {
		return core.SettlementRecord{}, core.ErrInvalidState
	}

	if _, err := tx.Exec(ctx,
		`UPDATE assignments SET status='paid' WHERE assignment_id=$1`, rec.AssignmentID); err != nil {
		return core.SettlementRecord{}, fmt.Errorf("mark paid: %w", err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO settlements (assignment_id, payer_id, payee_worker_id, amount, transfer_reference, settled_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, rec.AssignmentID, rec.PayerID, rec.PayeeWorkerID, rec.Amount, rec.TransferReference, rec.SettledAt); err != nil {
		if isUniqueViolation(err) {
			return core.SettlementRecord{}, core.ErrAlreadySettled
		}
		return core.SettlementRecord{}, fmt.Errorf("insert settlement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return core.SettlementRecord{}, fmt.Errorf("commit settlement: %w", err)
	}
	return rec, nil
}

const settlementColumns = `assignment_id, payer_id, payee_worker_id, amount, transfer_reference, settled_at`

func scanSettlement(row pgx.Row) (core.SettlementRecord, error) {
	var rec core.SettlementRecord
	err := row.Scan(&rec.AssignmentID, &rec.PayerID, &rec.PayeeWorkerID, &rec.Amount, &rec.TransferReference, &rec.SettledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.SettlementRecord{}, core.ErrAssignmentNotFound
	}
	if err != nil {
		return core.SettlementRecord{}, fmt.Errorf("scan settlement: %w", err)
	}
	return rec, nil
}

func (s *PGStore) GetSettlement(ctx context.Context, assignmentID int64) (core.SettlementRecord, error) {
	return scanSettlement(s.pool.QueryRow(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE assignment_id=$1`, assignmentID))
}

// ListSettlementsByWorker returns a worker's settlements newest-first.
func (s *PGStore) ListSettlementsByWorker(ctx context.Context, workerID string) ([]core.SettlementRecord, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+settlementColumns+` FROM settlements
WHERE payee_worker_id=$1
ORDER BY settled_at DESC, assignment_id DESC`, workerID)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	out := make([]core.SettlementRecord, 0)
	for rows.Next() {
		rec, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *PGStore) Close() { s.pool.Close() }
