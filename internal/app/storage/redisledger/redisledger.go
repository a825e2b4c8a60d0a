// Package redisledger keeps the hourly usage buckets in Redis so multiple
// instances can share one ledger.
package redisledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-redis/redis/v8"
	"github.com/holiman/uint256"

	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
)

const (
	bridgeKeyPrefix = "bridge:usage:"
	chainKeyPrefix  = "chain:usage:"

	// txRetries bounds how often an optimistic MULTI/EXEC add is retried
	// when the watched bucket changes under it.
	txRetries = 5
)

// Store implements storage.UsageStore on a Redis instance. Bucket values are
// decimal strings so full 256-bit volumes survive round trips.
type Store struct {
	client *redis.Client
}

var _ storage.UsageStore = (*Store)(nil)

// New wraps an existing Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Open dials the Redis instance and verifies it is reachable.
func Open(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(client), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func bridgeKey(tok common.Address, hour int64) string {
	return fmt.Sprintf("%s%s:%d", bridgeKeyPrefix, tok.Hex(), hour)
}

func chainKey(hour int64) string {
	return fmt.Sprintf("%s%d", chainKeyPrefix, hour)
}

func (s *Store) AddBridgeUsage(ctx context.Context, tok common.Address, hour int64, amount *uint256.Int) (*uint256.Int, error) {
	return s.addAmount(ctx, bridgeKey(tok, hour), amount)
}

func (s *Store) BridgeUsage(ctx context.Context, tok common.Address, hour int64) (*uint256.Int, error) {
	return s.readAmount(ctx, bridgeKey(tok, hour))
}

func (s *Store) AddChainUsage(ctx context.Context, hour int64, amount *uint256.Int) (*uint256.Int, error) {
	return s.addAmount(ctx, chainKey(hour), amount)
}

func (s *Store) ChainUsage(ctx context.Context, hour int64) (*uint256.Int, error) {
	return s.readAmount(ctx, chainKey(hour))
}

// PruneUsageBefore deletes every bucket older than the cutoff hour and
// reports how many were removed.
func (s *Store) PruneUsageBefore(ctx context.Context, cutoff int64) (int64, error) {
	var removed int64
	for _, prefix := range []string{bridgeKeyPrefix, chainKeyPrefix} {
		n, err := s.prunePrefix(ctx, prefix, cutoff)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (s *Store) readAmount(ctx context.Context, key string) (*uint256.Int, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse bucket %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) addAmount(ctx context.Context, key string, amount *uint256.Int) (*uint256.Int, error) {
	var total *uint256.Int
	add := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		sum := uint256.NewInt(0)
		if raw != "" {
			current, err := uint256.FromDecimal(raw)
			if err != nil {
				return fmt.Errorf("parse bucket %s: %w", key, err)
			}
			sum.Set(current)
		}
		if amount != nil {
			sum.Add(sum, amount)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, sum.Dec(), 0)
			return nil
		})
		if err == nil {
			total = sum
		}
		return err
	}

	for i := 0; i < txRetries; i++ {
		err := s.client.Watch(ctx, add, key)
		if err == nil {
			return total, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("bucket %s: too many concurrent updates", key)
}

func (s *Store) prunePrefix(ctx context.Context, prefix string, cutoff int64) (int64, error) {
	var stale []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		idx := strings.LastIndexByte(key, ':')
		if idx < 0 {
			continue
		}
		hour, err := strconv.ParseInt(key[idx+1:], 10, 64)
		if err != nil {
			continue
		}
		if hour < cutoff {
			stale = append(stale, key)
		}
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}

	var removed int64
	for len(stale) > 0 {
		batch := stale
		if len(batch) > 100 {
			batch = batch[:100]
		}
		n, err := s.client.Del(ctx, batch...).Result()
		removed += n
		if err != nil {
			return removed, err
		}
		stale = stale[len(batch):]
	}
	return removed, nil
}
