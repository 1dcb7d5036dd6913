// Package storage provides the top-level StorageManager that coordinates
// the 3 storage areas: internaldb, ledgerdb, and insightdb.
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/storage/insightdb"
	"github.com/budgetme/finsight/internal/storage/internaldb"
	"github.com/budgetme/finsight/internal/storage/ledgerdb"
)

// Manager implements interfaces.StorageManager using 3 storage areas.
type Manager struct {
	internal *internaldb.Store
	ledger   *ledgerdb.Store
	insight  *insightdb.Store
	dataPath string
	logger   *common.Logger
}

// NewManager creates a new StorageManager with the 3 storage areas.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	internalStore, err := internaldb.NewStore(logger, config.Storage.Internal.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create internal store: %w", err)
	}

	ledgerStore, err := ledgerdb.NewStore(logger, config.Storage.Ledger.Path)
	if err != nil {
		internalStore.Close()
		return nil, fmt.Errorf("failed to create ledger store: %w", err)
	}

	insightStore, err := insightdb.NewStore(logger, config.Storage.Insight.Path)
	if err != nil {
		internalStore.Close()
		ledgerStore.Close()
		return nil, fmt.Errorf("failed to create insight store: %w", err)
	}

	logger.Info().
		Str("internal", config.Storage.Internal.Path).
		Str("ledger", config.Storage.Ledger.Path).
		Str("insight", config.Storage.Insight.Path).
		Msg("Storage manager initialized (3 areas)")

	return &Manager{
		internal: internalStore,
		ledger:   ledgerStore,
		insight:  insightStore,
		dataPath: filepath.Dir(config.Storage.Ledger.Path),
		logger:   logger,
	}, nil
}

func (m *Manager) InternalStore() interfaces.InternalStore {
	return m.internal
}

func (m *Manager) LedgerStore() interfaces.LedgerStore {
	return m.ledger
}

func (m *Manager) InsightStore() interfaces.InsightStore {
	return m.insight
}

func (m *Manager) DataPath() string {
	return m.dataPath
}

func (m *Manager) Close() error {
	var firstErr error
	if err := m.internal.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.ledger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.insight.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Compile-time interface check
var _ interfaces.StorageManager = (*Manager)(nil)
