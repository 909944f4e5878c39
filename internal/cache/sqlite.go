package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/rinku/internal/localstate"
	"github.com/mycelian/rinku/internal/types"
)

// SQLite stores partition snapshots in the RecordPartitions table.
type SQLite struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ types.RecordCache = (*SQLite)(nil)

// OpenSQLite opens the cache database at path, creating it if needed.
func OpenSQLite(path string, log zerolog.Logger) (*SQLite, error) {
	db, err := localstate.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open record cache: %w", err)
	}
	log.Debug().Str("path", path).Msg("record cache opened")
	return &SQLite{db: db, log: log}, nil
}

func (s *SQLite) Load(ctx context.Context, key string) []types.LovedOne {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT Payload FROM RecordPartitions WHERE PartitionKey = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []types.LovedOne{}
	}
	if err != nil {
		s.log.Warn().Err(err).Str("partition", key).Msg("record cache read failed")
		return []types.LovedOne{}
	}
	return decode(s.log, key, payload)
}

func (s *SQLite) Save(ctx context.Context, key string, records []types.LovedOne) error {
	payload, err := encode(records)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO RecordPartitions (PartitionKey, Payload, UpdatedAt) VALUES (?, ?, ?)
        ON CONFLICT(PartitionKey) DO UPDATE SET Payload = excluded.Payload, UpdatedAt = excluded.UpdatedAt`,
		key, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save partition %s: %w", key, err)
	}
	return nil
}

// PutRaw stores payload verbatim.
func (s *SQLite) PutRaw(key string, payload []byte) error {
	_, err := s.db.Exec(`INSERT INTO RecordPartitions (PartitionKey, Payload, UpdatedAt) VALUES (?, ?, ?)
        ON CONFLICT(PartitionKey) DO UPDATE SET Payload = excluded.Payload, UpdatedAt = excluded.UpdatedAt`,
		key, payload, time.Now().UTC())
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
