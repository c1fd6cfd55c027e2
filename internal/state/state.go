// Package state persists the per-job execution cursor while a validator
// verdict is outstanding. The cursor lives in the same Redis instance as the
// queues, under one key per correlation id, so any worker in the fleet can
// resume a suspended job.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

const (
	// KeyPrefix namespaces pending-state keys in the shared store.
	KeyPrefix = "ocr:pending:"
	// deadlinesKey indexes logical expiry times for the sweeper.
	deadlinesKey = "ocr:pending:deadlines"
)

// Pending is the suspended cursor for one job awaiting a validator verdict.
type Pending struct {
	CorrelationID    string               `json:"correlation_id"`
	OriginalJob      domain.JobEnvelope   `json:"original_job"`
	ImageIndex       int                  `json:"current_image_index"`
	TierIndex        int                  `json:"current_tier_index"`
	Tiers            []domain.Tier        `json:"tiers"`
	CandidateText    string               `json:"candidate_text"`
	CandidateLen     int                  `json:"candidate_text_len"`
	NativeConfidence *float64             `json:"native_confidence,omitempty"`
	Results          []domain.ImageResult `json:"results"`
	Attempt          int                  `json:"attempt"`
	CreatedAt        string               `json:"created_at"`
}

// Tier returns the tier whose candidate is awaiting a verdict.
func (p *Pending) Tier() domain.Tier {
	if p.TierIndex < 0 || p.TierIndex >= len(p.Tiers) {
		return ""
	}
	return p.Tiers[p.TierIndex]
}

// Commands is the slice of the Redis API the store needs.
type Commands interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
}

// Store saves, takes, and sweeps pending validation states.
type Store struct {
	rdb Commands
	ttl time.Duration
	now func() time.Time
}

// New creates a store with the given logical TTL.
func New(rdb Commands, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, now: time.Now}
}

func stateKey(correlationID string) string {
	return KeyPrefix + correlationID
}

// Save writes the pending state under its correlation key and registers the
// sweep deadline. The physical key TTL is twice the logical TTL so a key
// never outlives 2×TTL even if no sweeper runs.
func (s *Store) Save(ctx context.Context, p *Pending) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending state: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(p.CorrelationID), raw, 2*s.ttl).Err(); err != nil {
		return fmt.Errorf("save pending state %s: %w", p.CorrelationID, err)
	}
	deadline := s.now().Add(s.ttl)
	if err := s.rdb.ZAdd(ctx, deadlinesKey, redis.Z{
		Score:  float64(deadline.Unix()),
		Member: p.CorrelationID,
	}).Err(); err != nil {
		return fmt.Errorf("register deadline %s: %w", p.CorrelationID, err)
	}
	return nil
}

// Take atomically loads and deletes the pending state. Exactly one caller
// wins; everyone else gets domain.ErrStateNotFound. This is the
// single-writer discipline: whoever takes the state owns the resumption.
func (s *Store) Take(ctx context.Context, correlationID string) (*Pending, error) {
	raw, err := s.rdb.GetDel(ctx, stateKey(correlationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// The key may have hit its physical TTL with the deadline entry
			// still behind; drop it so the sweeper stops rescanning it.
			_ = s.rdb.ZRem(ctx, deadlinesKey, correlationID).Err()
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("take pending state %s: %w", correlationID, err)
	}
	if err := s.rdb.ZRem(ctx, deadlinesKey, correlationID).Err(); err != nil {
		return nil, fmt.Errorf("drop deadline %s: %w", correlationID, err)
	}
	var p Pending
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode pending state %s: %w", correlationID, err)
	}
	return &p, nil
}

// Expired returns correlation ids whose logical deadline has passed. Callers
// race on Take for each id; losers see ErrStateNotFound and move on.
func (s *Store) Expired(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, deadlinesKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", s.now().Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scan deadlines: %w", err)
	}
	return ids, nil
}
