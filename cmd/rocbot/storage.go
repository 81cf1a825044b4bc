package main

import (
	"fmt"

	"github.com/madhura1396/rocbot/internal/storage/badger"
)

// openStorage opens the document store for commands that do not need generation
func openStorage() (*badger.Manager, error) {
	manager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return manager, nil
}
