// Package internaldb implements InternalStore using BadgerHold.
// It manages system-level KV (API keys, operational flags).
package internaldb

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/models"
)

// Store implements interfaces.InternalStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore creates a new InternalStore backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create internal db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open internal db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("InternalDB opened")
	return &Store{db: db, logger: logger}, nil
}

// GetSystemKV returns the value for key, or "" when the key is absent.
func (s *Store) GetSystemKV(_ context.Context, key string) (string, error) {
	var kv models.KVEntry
	if err := s.db.Get(key, &kv); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to get system kv '%s': %w", key, err)
	}
	return kv.Value, nil
}

func (s *Store) SetSystemKV(_ context.Context, key, value string) error {
	version := 1
	var existing models.KVEntry
	if err := s.db.Get(key, &existing); err == nil {
		version = existing.Version + 1
	}

	kv := &models.KVEntry{
		Key:      key,
		Value:    value,
		Version:  version,
		DateTime: time.Now(),
	}
	if err := s.db.Upsert(key, kv); err != nil {
		return fmt.Errorf("failed to set system kv '%s': %w", key, err)
	}
	s.logger.Debug().Str("key", key).Int("version", version).Msg("System KV saved")
	return nil
}

func (s *Store) DeleteSystemKV(_ context.Context, key string) error {
	if err := s.db.Delete(key, models.KVEntry{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete system kv '%s': %w", key, err)
	}
	return nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
