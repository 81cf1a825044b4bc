package badger

import (
	"time"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
)

// Manager owns the Badger connection and the storages built on it
type Manager struct {
	db       *BadgerDB
	document interfaces.DocumentStorage
	kv       interfaces.KeyValueStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		document: NewDocumentStorage(db, logger),
		kv:       NewKVStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// ResponseCacheStorage returns a persistent response cache sharing this connection
func (m *Manager) ResponseCacheStorage(ttl time.Duration) interfaces.ResponseCache {
	return NewResponseCacheStorage(m.db, ttl, m.logger)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
