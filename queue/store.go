package queue

import "context"

// Field is a single value read from a hash. Present is false if the field
// does not exist, which is distinct from any stored value.
type Field struct {
	Value   string
	Present bool
}

// Batch queues commands for atomic execution. Commands are executed in the
// order they were issued, with no interleaving from other clients, and their
// integer replies are returned by Store.Atomic in the same order.
type Batch interface {
	// HSetNX sets field in the hash at key only if it does not exist. Its reply
	// is 1 if the field was set and 0 if it already existed.
	HSetNX(key, field string, value any)
	HSet(key, field string, value any)
	HIncrBy(key, field string, incr int64)
	SAdd(key string, member string)
	ZAdd(key string, score int64, member string)
	ZCard(key string)
}

// Store is the subset of Redis used by a Queue. Implementations must report
// context cancelation and connectivity loss as errors.
type Store interface {
	HMGet(ctx context.Context, key string, fields ...string) (map[string]Field, error)
	Time(ctx context.Context) (Timestamp, error)
	// Atomic calls build with a Batch, then executes the queued commands as a
	// single transaction. If it returns an error, no reply is returned.
	Atomic(ctx context.Context, build func(Batch)) ([]int64, error)
	Publish(ctx context.Context, channel, message string) (int64, error)
	Connected(ctx context.Context) bool
}
