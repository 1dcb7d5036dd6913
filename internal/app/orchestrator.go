package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/budgetme/finsight/internal/common"
	"github.com/budgetme/finsight/internal/interfaces"
	"github.com/budgetme/finsight/internal/models"
)

// ErrGenerationInFlight is returned when an insight generation for the same
// (user, report kind, granularity) key is already running. Callers retry or
// fall back to the cached batch; running two generations for one key would
// race on the cache write.
var ErrGenerationInFlight = errors.New("insight generation already in progress")

// Orchestrator reacts to ledger change notifications by recomputing derived
// aggregates, and serializes insight generation per cache key. A change or
// explicit re-request supersedes any in-flight generation; superseded
// results are discarded in favor of the newest cache entry.
type Orchestrator struct {
	ledgerStore interfaces.LedgerStore
	reports     interfaces.ReportService
	logger      *common.Logger

	mu       sync.Mutex
	seq      uint64
	inflight map[string]bool

	changes     chan struct{}
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewOrchestrator creates an orchestrator over the given ledger store and
// report facade.
func NewOrchestrator(ledgerStore interfaces.LedgerStore, reports interfaces.ReportService, logger *common.Logger) *Orchestrator {
	return &Orchestrator{
		ledgerStore: ledgerStore,
		reports:     reports,
		logger:      logger,
		inflight:    make(map[string]bool),
		changes:     make(chan struct{}, 1),
	}
}

// Start subscribes to ledger changes for the user and launches the
// recompute loop. Notifications coalesce; re-running aggregation is
// idempotent over the same snapshot, so last write wins.
func (o *Orchestrator) Start(userID string) {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	o.unsubscribe = o.ledgerStore.Subscribe(userID, func() {
		o.mu.Lock()
		o.seq++
		o.mu.Unlock()
		select {
		case o.changes <- struct{}{}:
		default:
		}
	})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-o.changes:
				o.recompute(ctx, userID)
			}
		}
	}()
	o.logger.Info().Str("user_id", userID).Msg("Orchestrator started")
}

// Stop unsubscribes and waits for the recompute loop to drain.
func (o *Orchestrator) Stop() {
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.wg.Wait()
	o.logger.Info().Msg("Orchestrator stopped")
}

// recompute refreshes the derived aggregates after a ledger change.
func (o *Orchestrator) recompute(ctx context.Context, userID string) {
	start := time.Now()
	ctx = common.WithUserContext(ctx, &common.UserContext{UserID: userID})

	for _, kind := range []models.ReportKind{models.ReportSpending, models.ReportSavings, models.ReportTrends} {
		if _, err := o.reports.BuildReportData(ctx, kind, models.GranularityMonth); err != nil {
			o.logger.Warn().Err(err).Str("report_kind", string(kind)).Msg("Recompute failed")
		}
	}
	o.logger.Debug().Dur("elapsed", time.Since(start)).Msg("Derived data recomputed")
}

// GetOrGenerateInsights serves insights through the report facade with two
// guards the facade itself does not provide: at most one generation in
// flight per key, and discard of results superseded by a newer ledger
// change (the cache keeps the newest entry, so a follow-up read is safe).
func (o *Orchestrator) GetOrGenerateInsights(ctx context.Context, kind models.ReportKind, g models.Granularity, refresh bool) (*interfaces.InsightResult, error) {
	key := fmt.Sprintf("%s\x00%s\x00%s", common.ResolveUserID(ctx), kind, g)

	o.mu.Lock()
	if o.inflight[key] {
		o.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	o.inflight[key] = true
	token := o.seq
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inflight, key)
		o.mu.Unlock()
	}()

	result, err := o.reports.GetInsights(ctx, kind, g, refresh)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	superseded := o.seq != token
	o.mu.Unlock()

	// The token check guards what this call returns, not what was written:
	// a superseded generation has already persisted its batch. That is safe
	// because the cache is append-only and reads always pick the entry with
	// the newest GeneratedAt, so the follow-up read below wins.
	if superseded && !result.Cached {
		o.logger.Debug().
			Str("report_kind", string(kind)).
			Str("granularity", string(g)).
			Msg("Insight generation superseded, serving latest entry")
		return o.reports.GetInsights(ctx, kind, g, false)
	}
	return result, nil
}
