package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Digital-Creators-Team/round-engine/db/redis"
	apperrors "github.com/Digital-Creators-Team/round-engine/errors"
)

const (
	entryKeyFmt  = "roundengine:result:%s:%d" // key, periodID
	streamKeyFmt = "roundengine:results:%s"   // key
	entryTTL     = 7 * 24 * time.Hour
)

// Redis is a Store backed by the shared Redis client: one capped list per
// clock for Recent plus one keyed entry per period for Get. Survives
// process restarts, which the in-memory ring does not.
type Redis struct {
	client *redis.Client
	maxLen int64
}

// NewRedis creates a Redis-backed store keeping up to maxLen recent
// entries per clock
func NewRedis(client *redis.Client, maxLen int) *Redis {
	if maxLen <= 0 {
		maxLen = 100
	}
	return &Redis{client: client, maxLen: int64(maxLen)}
}

// Append implements Store
func (r *Redis) Append(ctx context.Context, e *Entry) error {
	if e == nil || e.Outcome == nil {
		return fmt.Errorf("archive entry must carry an outcome")
	}
	key := Key{Family: e.Family, IntervalSec: e.IntervalSec}

	entryKey := fmt.Sprintf(entryKeyFmt, key, e.Outcome.PeriodID)
	written, err := r.client.SetNXJSON(ctx, entryKey, e, entryTTL)
	if err != nil {
		return err
	}
	if !written {
		// append-only: re-delivered period keeps its first entry
		return nil
	}
	return r.client.LPushJSON(ctx, fmt.Sprintf(streamKeyFmt, key), e, r.maxLen)
}

// Get implements Store
func (r *Redis) Get(ctx context.Context, key Key, periodID int64) (*Entry, error) {
	var e Entry
	entryKey := fmt.Sprintf(entryKeyFmt, key, periodID)
	if err := r.client.GetJSON(ctx, entryKey, &e); err != nil {
		return nil, apperrors.NewWithDebug(apperrors.ErrNotFound, "result not found",
			fmt.Sprintf("%s period %d", key, periodID))
	}
	return &e, nil
}

// Recent implements Store, most-recent-first
func (r *Redis) Recent(ctx context.Context, key Key, limit int) ([]*Entry, error) {
	if limit <= 0 || int64(limit) > r.maxLen {
		limit = int(r.maxLen)
	}
	raw, err := r.client.LRangeRaw(ctx, fmt.Sprintf(streamKeyFmt, key), 0, int64(limit)-1)
	if err != nil {
		return nil, err
	}
	out := make([]*Entry, 0, len(raw))
	for _, v := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("corrupt archive entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, nil
}

var _ Store = (*Redis)(nil)
