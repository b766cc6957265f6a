package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/replicate/rsmq/queue"
)

// check that Store implements queue.Store
var _ queue.Store = new(Store)

// Store executes queue commands against Redis.
type Store struct {
	rdb redis.Cmdable
}

func NewStore(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) HMGet(ctx context.Context, key string, fields ...string) (map[string]queue.Field, error) {
	values, err := s.rdb.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, err
	}
	if len(values) != len(fields) {
		return nil, fmt.Errorf("incorrect number of values from redis: got %d, expected %d", len(values), len(fields))
	}

	result := make(map[string]queue.Field, len(fields))
	for i, v := range values {
		if v == nil {
			result[fields[i]] = queue.Field{}
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unable to interpret redis value as string: %v", v)
		}
		result[fields[i]] = queue.Field{Value: str, Present: true}
	}
	return result, nil
}

func (s *Store) Time(ctx context.Context) (queue.Timestamp, error) {
	t, err := s.rdb.Time(ctx).Result()
	if err != nil {
		return queue.Timestamp{}, err
	}
	return queue.Timestamp{
		Seconds:      t.Unix(),
		Microseconds: int64(t.Nanosecond() / 1000),
	}, nil
}

// Atomic runs the batch built by build in a MULTI/EXEC transaction.
func (s *Store) Atomic(ctx context.Context, build func(queue.Batch)) ([]int64, error) {
	b := &batch{ctx: ctx, pipe: s.rdb.TxPipeline()}
	build(b)

	if len(b.replies) == 0 {
		return []int64{}, nil
	}

	if _, err := b.pipe.Exec(ctx); err != nil {
		return nil, err
	}

	replies := make([]int64, len(b.replies))
	for i, reply := range b.replies {
		v, err := reply()
		if err != nil {
			return nil, err
		}
		replies[i] = v
	}
	return replies, nil
}

func (s *Store) Publish(ctx context.Context, channel, message string) (int64, error) {
	return s.rdb.Publish(ctx, channel, message).Result()
}

// Connected reports whether Redis answers a PING.
func (s *Store) Connected(ctx context.Context) bool {
	return s.rdb.Ping(ctx).Err() == nil
}

type batch struct {
	ctx     context.Context
	pipe    redis.Pipeliner
	replies []func() (int64, error)
}

func (b *batch) HSetNX(key, field string, value any) {
	cmd := b.pipe.HSetNX(b.ctx, key, field, value)
	b.replies = append(b.replies, func() (int64, error) {
		ok, err := cmd.Result()
		if ok {
			return 1, err
		}
		return 0, err
	})
}

func (b *batch) HSet(key, field string, value any) {
	b.addInt(b.pipe.HSet(b.ctx, key, field, value))
}

func (b *batch) HIncrBy(key, field string, incr int64) {
	b.addInt(b.pipe.HIncrBy(b.ctx, key, field, incr))
}

func (b *batch) SAdd(key string, member string) {
	b.addInt(b.pipe.SAdd(b.ctx, key, member))
}

func (b *batch) ZAdd(key string, score int64, member string) {
	b.addInt(b.pipe.ZAdd(b.ctx, key, redis.Z{Score: float64(score), Member: member}))
}

func (b *batch) ZCard(key string) {
	b.addInt(b.pipe.ZCard(b.ctx, key))
}

func (b *batch) addInt(cmd *redis.IntCmd) {
	b.replies = append(b.replies, cmd.Result)
}
