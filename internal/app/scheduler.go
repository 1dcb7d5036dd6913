package app

import (
	"context"
	"time"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
)

// insightGCInterval is how often expired insight cache entries are reclaimed.
// Expired entries are already invisible to lookups; this only bounds disk use.
const insightGCInterval = 6 * time.Hour

// startInsightGC purges expired insight cache entries on a fixed interval.
func startInsightGC(ctx context.Context, store interfaces.InsightStore, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Insight GC: stopped")
			return
		case <-ticker.C:
			count, err := store.PurgeExpired(ctx, time.Now())
			if err != nil {
				logger.Warn().Err(err).Msg("Insight GC: purge failed")
				continue
			}
			if count > 0 {
				logger.Info().Int("count", count).Msg("Insight GC: expired entries purged")
			}
		}
	}
}
