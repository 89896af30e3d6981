package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/cache"
	"github.com/bygghuset-as/procurement-api/internal/domain"
)

// CacheRefreshJobName is the name of the periodic cache refresh job
const CacheRefreshJobName = "cache_refresh"

// DefaultRefreshTimeout bounds one refresh run across all partitions
const DefaultRefreshTimeout = 5 * time.Minute

// PartitionSource lists the (corporation, document type) pairs that hold
// cached data and therefore need refreshing.
type PartitionSource interface {
	Partitions(ctx context.Context) ([]cache.Partition, error)
}

// PageRefresher refetches one remote page into the cache. Both document
// stores implement it.
type PageRefresher interface {
	RefreshPage(ctx context.Context, corporationUUID string, page int) error
}

// CacheRefreshJob re-fetches the first page for every cached corporation so
// the fallback copy served on remote failures stays reasonably fresh. A
// refresh failure for one partition is logged and does not stop the run.
type CacheRefreshJob struct {
	partitions     PartitionSource
	purchaseOrders PageRefresher
	changeOrders   PageRefresher
	logger         *zap.Logger
	timeout        time.Duration
}

func NewCacheRefreshJob(partitions PartitionSource, purchaseOrders, changeOrders PageRefresher, logger *zap.Logger, timeout time.Duration) *CacheRefreshJob {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &CacheRefreshJob{
		partitions:     partitions,
		purchaseOrders: purchaseOrders,
		changeOrders:   changeOrders,
		logger:         logger,
		timeout:        timeout,
	}
}

// Run executes one refresh pass. Called by the scheduler.
func (j *CacheRefreshJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	parts, err := j.partitions.Partitions(ctx)
	if err != nil {
		j.logger.Error("failed to list cache partitions", zap.Error(err))
		return
	}

	refreshed, failed := 0, 0
	for _, part := range parts {
		var refresher PageRefresher
		switch domain.DocumentType(part.DocType) {
		case domain.DocTypePurchaseOrder:
			refresher = j.purchaseOrders
		case domain.DocTypeChangeOrder:
			refresher = j.changeOrders
		default:
			continue
		}

		if err := refresher.RefreshPage(ctx, part.CorporationUUID, 1); err != nil {
			failed++
			j.logger.Warn("cache refresh failed for partition",
				zap.String("corporationUUID", part.CorporationUUID),
				zap.String("docType", part.DocType),
				zap.Error(err))
			continue
		}
		refreshed++
	}

	j.logger.Info("cache refresh run completed",
		zap.Int("refreshed", refreshed),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
}
