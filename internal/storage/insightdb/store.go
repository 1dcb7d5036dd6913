// Package insightdb implements InsightStore using BadgerHold.
// It is the TTL cache for generated insight batches. Entries are written
// once and superseded by newer entries; expiry is enforced on read and by
// the periodic purge.
package insightdb

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/models"
)

// Store implements interfaces.InsightStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore creates a new InsightStore backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create insight db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open insight db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("InsightDB opened")
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Insert(_ context.Context, entry *models.InsightCacheEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("insight cache entry requires ID")
	}
	if err := s.db.Insert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to insert insight entry '%s': %w", entry.ID, err)
	}
	s.logger.Debug().
		Str("entry_id", entry.ID).
		Str("user_id", entry.UserID).
		Str("report_kind", string(entry.ReportKind)).
		Bool("fallback", entry.Fallback).
		Msg("Insight entry cached")
	return nil
}

// QueryLatestUnexpired returns the newest live entry for the
// (user, report kind, granularity) key, or nil when none exists. Expired
// entries are skipped, not deleted; the purge pass reclaims them.
func (s *Store) QueryLatestUnexpired(_ context.Context, userID string, kind models.ReportKind, g models.Granularity, now time.Time) (*models.InsightCacheEntry, error) {
	var all []models.InsightCacheEntry
	if err := s.db.Find(&all, badgerhold.Where("UserID").Eq(userID).Index("UserID")); err != nil {
		return nil, fmt.Errorf("failed to query insight entries for user '%s': %w", userID, err)
	}

	var latest *models.InsightCacheEntry
	for i := range all {
		e := &all[i]
		if e.ReportKind != kind || e.Granularity != g || !e.Live(now) {
			continue
		}
		if latest == nil || e.GeneratedAt.After(latest.GeneratedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	entry := *latest
	return &entry, nil
}

func (s *Store) IncrementAccess(_ context.Context, entryID string, now time.Time) error {
	var entry models.InsightCacheEntry
	if err := s.db.Get(entryID, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("insight entry '%s' not found", entryID)
		}
		return fmt.Errorf("failed to get insight entry '%s': %w", entryID, err)
	}
	entry.AccessCount++
	entry.LastAccessedAt = now
	if err := s.db.Update(entryID, &entry); err != nil {
		return fmt.Errorf("failed to update insight entry '%s': %w", entryID, err)
	}
	return nil
}

// PurgeExpired deletes entries past their expiry, returning the count.
func (s *Store) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	var all []models.InsightCacheEntry
	if err := s.db.Find(&all, nil); err != nil {
		return 0, fmt.Errorf("failed to scan insight entries: %w", err)
	}
	count := 0
	for i := range all {
		if all[i].Live(now) {
			continue
		}
		if err := s.db.Delete(all[i].ID, models.InsightCacheEntry{}); err != nil && err != badgerhold.ErrNotFound {
			return count, fmt.Errorf("failed to delete insight entry '%s': %w", all[i].ID, err)
		}
		count++
	}
	if count > 0 {
		s.logger.Info().Int("count", count).Msg("Expired insight entries purged")
	}
	return count, nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
