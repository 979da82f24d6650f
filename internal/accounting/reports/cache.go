package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keystone-pos/keystone-pos/internal/shared"
)

// SnapshotCache stores generated balance sheets in Redis so repeated reads
// of the same reporting date skip the aggregation query. Keys are tracked
// in a set per cache so a period transition can invalidate by date range.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache constructs a cache with the given TTL.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

const snapshotIndexKey = "reports:bs:index"

func snapshotKey(asOf time.Time) string {
	return fmt.Sprintf("reports:bs:%s", asOf.Format("2006-01-02"))
}

// Get returns a cached snapshot, or shared.ErrNotFound on a miss.
func (c *SnapshotCache) Get(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	raw, err := c.client.Get(ctx, snapshotKey(asOf)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return BalanceSheet{}, shared.ErrNotFound
		}
		return BalanceSheet{}, err
	}
	var sheet BalanceSheet
	if err := json.Unmarshal(raw, &sheet); err != nil {
		return BalanceSheet{}, err
	}
	return sheet, nil
}

// Put stores a snapshot and records its date in the index.
func (c *SnapshotCache) Put(ctx context.Context, sheet BalanceSheet) error {
	raw, err := json.Marshal(sheet)
	if err != nil {
		return err
	}
	key := snapshotKey(sheet.AsOf)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, raw, c.ttl)
	pipe.SAdd(ctx, snapshotIndexKey, sheet.AsOf.Format("2006-01-02"))
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateRange drops every cached snapshot dated inside [from, to].
// Called when a period closes or locks; its numbers just became final.
func (c *SnapshotCache) InvalidateRange(ctx context.Context, from, to time.Time) error {
	dates, err := c.client.SMembers(ctx, snapshotIndexKey).Result()
	if err != nil {
		return err
	}
	for _, d := range dates {
		asOf, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		if asOf.Before(from) || asOf.After(to) {
			continue
		}
		pipe := c.client.TxPipeline()
		pipe.Del(ctx, snapshotKey(asOf))
		pipe.SRem(ctx, snapshotIndexKey, d)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
