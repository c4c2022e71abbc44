package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"wagelink-backend/core"
)

// MemoryStore holds ledger data in memory with proper concurrency control.
// The single mutex makes every conditional transition a true check-and-set
// across the assignment and settlement maps, which is what the
// at-most-one-settlement invariant hangs on.
type MemoryStore struct {
	mu           sync.RWMutex
	workers      map[string]core.WorkerRecord // keyed by idHash
	workersByID  map[string]string            // workerID -> idHash
	assignments  map[int64]core.Assignment
	settlements  map[int64]core.SettlementRecord // keyed by assignmentID
	nextAssignID int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workers:      make(map[string]core.WorkerRecord),
		workersByID:  make(map[string]string),
		assignments:  make(map[int64]core.Assignment),
		settlements:  make(map[int64]core.SettlementRecord),
		nextAssignID: 1,
	}
}

func generateWorkerID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate worker id: %w", err)
	}
	return "WKR-" + hex.EncodeToString(b), nil
}

// CreateWorker inserts a new worker, allocating its worker id.
func (s *MemoryStore) CreateWorker(ctx context.Context, rec core.WorkerRecord) (core.WorkerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workers[rec.IDHash]; exists {
		return core.WorkerRecord{}, core.ErrDuplicateIdentity
	}
	id, err := generateWorkerID()
	if err != nil {
		return core.WorkerRecord{}, err
	}
	rec.WorkerID = id
	s.workers[rec.IDHash] = rec
	s.workersByID[id] = rec.IDHash
	return rec, nil
}

func (s *MemoryStore) GetWorkerByHash(ctx context.Context, idHash string) (core.WorkerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.workers[idHash]
	if !ok {
		return core.WorkerRecord{}, core.ErrWorkerNotFound
	}
	return rec, nil
}

func (s *MemoryStore) GetWorkerByID(ctx context.Context, workerID string) (core.WorkerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hash, ok := s.workersByID[workerID]
	if !ok {
		return core.WorkerRecord{}, core.ErrWorkerNotFound
	}
	return s.workers[hash], nil
}

// UpdateWorkerProfile mutates contact fields only.
func (s *MemoryStore) UpdateWorkerProfile(ctx context.Context, idHash, displayName, phone string) (core.WorkerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.workers[idHash]
	if !ok {
		return core.WorkerRecord{}, core.ErrWorkerNotFound
	}
	if displayName != "" {
		rec.DisplayName = displayName
	}
	if phone != "" {
		rec.Phone = phone
	}
	s.workers[idHash] = rec
	return rec, nil
}

func (s *MemoryStore) SetPayoutAddress(ctx context.Context, idHash, address string) (core.WorkerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.workers[idHash]
	if !ok {
		return core.WorkerRecord{}, core.ErrWorkerNotFound
	}
	rec.PayoutAddress = address
	s.workers[idHash] = rec
	return rec, nil
}

// CreateAssignment persists a new assignment with the next monotonic id.
func (s *MemoryStore) CreateAssignment(ctx context.Context, a core.Assignment) (core.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.AssignmentID = s.nextAssignID
	s.nextAssignID++
	a.Status = core.StatusUnpaid
	s.assignments[a.AssignmentID] = a
	return a, nil
}

func (s *MemoryStore) GetAssignment(ctx context.Context, id int64) (core.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[id]
	if !ok {
		return core.Assignment{}, core.ErrAssignmentNotFound
	}
	return a, nil
}

// ListAssignments returns matches newest-created-first.
func (s *MemoryStore) ListAssignments(ctx context.Context, filter core.AssignmentFilter) ([]core.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Assignment, 0)
	for _, a := range s.assignments {
		if filter.ContractorID != "" && a.ContractorID != filter.ContractorID {
			continue
		}
		if filter.WorkerIDHash != "" && a.WorkerIDHash != filter.WorkerIDHash {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].AssignmentID > out[j].AssignmentID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []core.Assignment{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// MarkDisputed transitions unpaid -> disputed. Already-disputed is a no-op.
func (s *MemoryStore) MarkDisputed(ctx context.Context, id int64) (core.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[id]
	if !ok {
		return core.Assignment{}, core.ErrAssignmentNotFound
	}
	switch a.Status {
	case core.StatusDisputed:
		return a, nil
	case core.StatusPaid:
		return core.Assignment{}, core.ErrInvalidTransition
	}
	a.Status = core.StatusDisputed
	s.assignments[id] = a
	return a, nil
}

// RecordSettlement flips unpaid -> paid and stores the settlement record in
// one critical section.
func (s *MemoryStore) RecordSettlement(ctx context.Context, rec core.SettlementRecord) (core.SettlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[rec.AssignmentID]
	if !ok {
		return core.SettlementRecord{}, core.ErrAssignmentNotFound
	}
	if _, exists := s.settlements[rec.AssignmentID]; exists {
		return core.SettlementRecord{}, core.ErrAlreadySettled
	}
	if a.Status != core.StatusUnpaid {
		return core.SettlementRecord{}, core.ErrInvalidState
	}
	a.Status = core.StatusPaid
	s.assignments[rec.AssignmentID] = a
	s.settlements[rec.AssignmentID] = rec
	return rec, nil
}

func (s *MemoryStore) GetSettlement(ctx context.Context, assignmentID int64) (core.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.settlements[assignmentID]
	if !ok {
		return core.SettlementRecord{}, core.ErrAssignmentNotFound
	}
	return rec, nil
}

// ListSettlementsByWorker returns a worker's settlements newest-first.
func (s *MemoryStore) ListSettlementsByWorker(ctx context.Context, workerID string) ([]core.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.SettlementRecord, 0)
	for _, rec := range s.settlements {
		if rec.PayeeWorkerID == workerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SettledAt.Equal(out[j].SettledAt) {
			return out[i].AssignmentID > out[j].AssignmentID
		}
		return out[i].SettledAt.After(out[j].SettledAt)
	})
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}
