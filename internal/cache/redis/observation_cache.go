package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omniarb/omniarbbot/internal/domain"
)

// indexKey is the set holding every written observation key, so List can
// enumerate without a blocking SCAN.
const indexKey = "obs:index"

// ObservationCache implements domain.ObservationCache using Redis hashes.
// Each (venue, pair) slot is stored at key "obs:{venue}:{pair}" with fields
// "venue", "pair", "price", "liquidity" and "ts" (Unix nanosecond timestamp).
type ObservationCache struct {
	rdb *redis.Client
}

// NewObservationCache creates an ObservationCache backed by the given Client.
func NewObservationCache(c *Client) *ObservationCache {
	return &ObservationCache{rdb: c.Underlying()}
}

func obsKey(venue, pair string) string {
	return "obs:" + domain.ObservationKey(venue, pair)
}

// Put stores obs, overwriting any prior observation for the same slot, and
// registers the slot in the index set.
func (oc *ObservationCache) Put(ctx context.Context, obs domain.Observation) error {
	key := obsKey(obs.Venue, obs.Pair)
	fields := map[string]interface{}{
		"venue":     obs.Venue,
		"pair":      obs.Pair,
		"price":     strconv.FormatFloat(obs.Price, 'f', -1, 64),
		"liquidity": strconv.FormatFloat(obs.Liquidity, 'f', -1, 64),
		"ts":        strconv.FormatInt(obs.Timestamp.UnixNano(), 10),
	}

	if err := oc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: put observation %s: %w", obs.Key(), err)
	}
	if err := oc.rdb.SAdd(ctx, indexKey, key).Err(); err != nil {
		return fmt.Errorf("redis: index observation %s: %w", obs.Key(), err)
	}
	return nil
}

// Get retrieves the latest observation for (venue, pair). It returns
// domain.ErrNotFound when the slot has never been written.
func (oc *ObservationCache) Get(ctx context.Context, venue, pair string) (domain.Observation, error) {
	vals, err := oc.rdb.HGetAll(ctx, obsKey(venue, pair)).Result()
	if err != nil {
		return domain.Observation{}, fmt.Errorf("redis: get observation %s: %w", domain.ObservationKey(venue, pair), err)
	}
	if len(vals) == 0 {
		return domain.Observation{}, domain.ErrNotFound
	}

	obs, err := parseObservation(vals)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("redis: observation %s: %w", domain.ObservationKey(venue, pair), err)
	}
	return obs, nil
}

// List returns every cached observation using a pipeline over the index set.
// Slots that vanished between the index read and the hash read are skipped.
func (oc *ObservationCache) List(ctx context.Context) ([]domain.Observation, error) {
	keys, err := oc.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list observations: %w", err)
	}
	if len(keys) == 0 {
		return []domain.Observation{}, nil
	}

	pipe := oc.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, pipe.HGetAll(ctx, key))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: list observations pipeline: %w", err)
	}

	out := make([]domain.Observation, 0, len(keys))
	for _, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		obs, err := parseObservation(vals)
		if err != nil {
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}

// parseObservation rebuilds an observation from its stored hash fields.
func parseObservation(vals map[string]string) (domain.Observation, error) {
	price, err := strconv.ParseFloat(vals["price"], 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("parse price: %w", err)
	}
	liquidity, err := strconv.ParseFloat(vals["liquidity"], 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("parse liquidity: %w", err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("parse ts: %w", err)
	}

	return domain.Observation{
		Venue:     vals["venue"],
		Pair:      vals["pair"],
		Price:     price,
		Liquidity: liquidity,
		Timestamp: time.Unix(0, tsNano),
	}, nil
}

// Compile-time interface check.
var _ domain.ObservationCache = (*ObservationCache)(nil)
