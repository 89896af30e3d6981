package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/cache"
)

type fakePartitionSource struct {
	parts []cache.Partition
	err   error
}

func (f *fakePartitionSource) Partitions(ctx context.Context) ([]cache.Partition, error) {
	return f.parts, f.err
}

type fakeRefresher struct {
	mu        sync.Mutex
	refreshed []string
	err       error
}

func (f *fakeRefresher) RefreshPage(ctx context.Context, corporationUUID string, page int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.refreshed = append(f.refreshed, corporationUUID)
	return nil
}

func TestCacheRefreshJob_RefreshesEachPartition(t *testing.T) {
	partitions := &fakePartitionSource{parts: []cache.Partition{
		{CorporationUUID: "corp-1", DocType: "purchase_order"},
		{CorporationUUID: "corp-2", DocType: "purchase_order"},
		{CorporationUUID: "corp-1", DocType: "change_order"},
		{CorporationUUID: "corp-1", DocType: "unknown"},
	}}
	pos := &fakeRefresher{}
	cos := &fakeRefresher{}

	job := NewCacheRefreshJob(partitions, pos, cos, zap.NewNop(), time.Minute)
	job.Run()

	assert.Equal(t, []string{"corp-1", "corp-2"}, pos.refreshed)
	assert.Equal(t, []string{"corp-1"}, cos.refreshed)
}

func TestCacheRefreshJob_PartitionFailureDoesNotStopRun(t *testing.T) {
	partitions := &fakePartitionSource{parts: []cache.Partition{
		{CorporationUUID: "corp-1", DocType: "purchase_order"},
		{CorporationUUID: "corp-2", DocType: "change_order"},
	}}
	pos := &fakeRefresher{err: errors.New("remote down")}
	cos := &fakeRefresher{}

	job := NewCacheRefreshJob(partitions, pos, cos, zap.NewNop(), time.Minute)
	job.Run()

	assert.Empty(t, pos.refreshed)
	assert.Equal(t, []string{"corp-2"}, cos.refreshed)
}

func TestCacheRefreshJob_PartitionListingFailure(t *testing.T) {
	partitions := &fakePartitionSource{err: errors.New("cache unavailable")}
	pos := &fakeRefresher{}

	job := NewCacheRefreshJob(partitions, pos, pos, zap.NewNop(), 0)
	job.Run()

	assert.Empty(t, pos.refreshed)
}
