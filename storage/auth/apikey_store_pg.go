package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// hashKey produces the at-rest digest of an API key. Raw keys are never
// persisted; lookups recompute the digest.
func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// PGAPIKeyStore persists API keys in Postgres.
type PGAPIKeyStore struct {
	pool *pgxpool.Pool
}

// NewPGAPIKeyStore connects and initializes schema.
func NewPGAPIKeyStore(ctx context.Context, dsn string) (*PGAPIKeyStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PGAPIKeyStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGAPIKeyStore) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS api_keys (
  key_hash TEXT PRIMARY KEY,
  email TEXT,
  contractor_id TEXT NOT NULL,
  source TEXT,
  created_at TIMESTAMPTZ DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_api_keys_contractor ON api_keys(contractor_id);
`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Validate implements APIKeyValidator.
func (s *PGAPIKeyStore) Validate(key string) bool {
	if key == "" {
		return false
	}
	var exists bool
	err := s.pool.QueryRow(context.Background(),
		"SELECT true FROM api_keys WHERE key_hash=$1",
		hashKey(key)).Scan(&exists)
	return err == nil && exists
}

// Get returns the API key record for the provided key.
func (s *PGAPIKeyStore) Get(key string) (APIKey, bool) {
	if key == "" {
		return APIKey{}, false
	}
	rec := APIKey{Key: key}
	err := s.pool.QueryRow(context.Background(),
		"SELECT COALESCE(email, ''), contractor_id, COALESCE(source, ''), created_at FROM api_keys WHERE key_hash=$1",
		hashKey(key),
	).Scan(&rec.Email, &rec.ContractorID, &rec.Source, &rec.CreatedAt)
	if err != nil {
		return APIKey{}, false
	}
	return rec, true
}

// Issue implements APIKeyIssuer.
func (s *PGAPIKeyStore) Issue(email, contractorID, source string) (APIKey, error) {
	if strings.TrimSpace(contractorID) == "" {
		return APIKey{}, fmt.Errorf("contractor_id required")
	}
	key, err := generateKey()
	if err != nil {
		return APIKey{}, err
	}
	rec := APIKey{
		Key:          key,
		Email:        email,
		ContractorID: contractorID,
		Source:       source,
		CreatedAt:    time.Now(),
	}
	_, err = s.pool.Exec(context.Background(),
		"INSERT INTO api_keys (key_hash, email, contractor_id, source, created_at) VALUES ($1,$2,$3,$4,$5)",
		hashKey(key), rec.Email, rec.ContractorID, rec.Source, rec.CreatedAt)
	if err != nil {
		return APIKey{}, err
	}
	return rec, nil
}

// Seed inserts a provided key if not empty.
func (s *PGAPIKeyStore) Seed(key, contractorID, source string) {
	if key == "" || contractorID == "" {
		return
	}
	_, _ = s.pool.Exec(context.Background(),
		"INSERT INTO api_keys (key_hash, contractor_id, source, created_at) VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING",
		hashKey(key), contractorID, source, time.Now())
}

// Close releases the connection pool.
func (s *PGAPIKeyStore) Close() { s.pool.Close() }
