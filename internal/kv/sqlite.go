package kv

import (
	"database/sql"
	"errors"

	"github.com/debemdeboas/postdesk/internal/db"
	"github.com/debemdeboas/postdesk/internal/util"
	"github.com/debemdeboas/postdesk/internal/util/compression"
)

// SQLiteStore keeps compressed values in the kv_entries table.
type SQLiteStore struct {
	db         db.DB
	compressor compression.Compressor
}

func NewSQLiteStore(database db.DB, compressor compression.Compressor) *SQLiteStore {
	if compressor == nil {
		compressor = compression.None{}
	}
	return &SQLiteStore{db: database, compressor: compressor}
}

func (s *SQLiteStore) Get(key string) ([]byte, bool) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&compressed)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			kvLogger.Error().Err(err).Str("key", key).Msg("Error reading value row")
		}
		return nil, false
	}

	value, err := s.compressor.Decompress(compressed)
	if err != nil {
		kvLogger.Warn().Err(err).Str("key", key).Msg("Error decompressing value")
		return nil, false
	}
	return value, true
}

func (s *SQLiteStore) Set(key string, value []byte) error {
	compressed, err := s.compressor.Compress(value)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
INSERT INTO kv_entries (key, value, content_hash, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, content_hash = excluded.content_hash, updated_at = excluded.updated_at`,
		key, compressed, util.ContentHash(value),
	)
	if err != nil {
		return err
	}

	kvLogger.Debug().Interface("result", res).Str("key", key).Msg("Value stored")
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv_entries WHERE key = ?`, key)
	return err
}

// ContentHash returns the hash of the uncompressed value stored under key.
func (s *SQLiteStore) ContentHash(key string) (string, bool) {
	var hash string
	if err := s.db.QueryRow(`SELECT content_hash FROM kv_entries WHERE key = ?`, key).Scan(&hash); err != nil {
		return "", false
	}
	return hash, true
}
