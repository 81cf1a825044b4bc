package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

const responseCachePrefix = "rocbot:response_cache:"

// ResponseCacheStorage persists first-turn answers in Badger.
// Entries use Badger's native TTL, so expired answers are never read back.
type ResponseCacheStorage struct {
	db     *BadgerDB
	ttl    time.Duration
	logger arbor.ILogger
}

// NewResponseCacheStorage creates a persistent response cache. ttl 0 keeps entries forever.
func NewResponseCacheStorage(db *BadgerDB, ttl time.Duration, logger arbor.ILogger) interfaces.ResponseCache {
	return &ResponseCacheStorage{
		db:     db,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *ResponseCacheStorage) key(fingerprint string) []byte {
	return []byte(responseCachePrefix + fingerprint)
}

func (s *ResponseCacheStorage) Get(ctx context.Context, fingerprint string) (*models.AnswerResult, bool) {
	var result models.AnswerResult

	err := s.db.Store().Badger().View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(fingerprint))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("Failed to read cached answer")
		}
		return nil, false
	}

	return &result, true
}

func (s *ResponseCacheStorage) Put(ctx context.Context, fingerprint string, result *models.AnswerResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode cached answer: %w", err)
	}

	return s.db.Store().Badger().Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(s.key(fingerprint), data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Prune is a no-op: Badger drops expired entries during compaction
func (s *ResponseCacheStorage) Prune(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *ResponseCacheStorage) Len(ctx context.Context) int {
	count := 0
	_ = s.db.Store().Badger().View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(responseCachePrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}
