package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicate/rsmq/queue"
)

func TestStoreHMGetMarksMissingFields(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewStore(client)

	mock.ExpectHMGet("nsTest:test:Q", "vt", "delay", "maxsize").SetVal([]any{"50", nil, "1024"})

	fields, err := store.HMGet(ctx, "nsTest:test:Q", "vt", "delay", "maxsize")

	require.NoError(t, err)
	assert.Equal(t, map[string]queue.Field{
		"vt":      {Value: "50", Present: true},
		"delay":   {},
		"maxsize": {Value: "1024", Present: true},
	}, fields)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreHMGetReturnsRedisErrors(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewStore(client)

	mock.ExpectHMGet("q", "vt").SetErr(errors.New("kaboom"))

	_, err := store.HMGet(ctx, "q", "vt")

	assert.ErrorContains(t, err, "kaboom")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreTime(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewStore(client)

	mock.ExpectTime().SetVal(time.Unix(1506053999, 291216*1000))

	ts, err := store.Time(ctx)

	require.NoError(t, err)
	assert.Equal(t, queue.Timestamp{Seconds: 1506053999, Microseconds: 291216}, ts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreAtomicRunsTransaction(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewStore(client)

	mock.ExpectTxPipeline()
	mock.ExpectZAdd("nsTest:test", redis.Z{Score: 1506054069291, Member: "abc"}).SetVal(1)
	mock.ExpectHSet("nsTest:test:Q", "abc", "fooBar").SetVal(1)
	mock.ExpectHIncrBy("nsTest:test:Q", "totalsent", 1).SetVal(3)
	mock.ExpectZCard("nsTest:test").SetVal(2)
	mock.ExpectTxPipelineExec()

	replies, err := store.Atomic(ctx, func(b queue.Batch) {
		b.ZAdd("nsTest:test", 1506054069291, "abc")
		b.HSet("nsTest:test:Q", "abc", "fooBar")
		b.HIncrBy("nsTest:test:Q", "totalsent", 1)
		b.ZCard("nsTest:test")
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 3, 2}, replies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreAtomicReportsHSetNXAsInteger(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewStore(client)

	mock.ExpectTxPipeline()
	mock.ExpectHSetNX("rsmq:q:Q", "vt", 30).SetVal(true)
	mock.ExpectHSetNX("rsmq:q:Q", "delay", 0).SetVal(false)
	mock.ExpectSAdd("rsmq:QUEUES", "q").SetVal(1)
	mock.ExpectTxPipelineExec()

	replies, err := store.Atomic(ctx, func(b queue.Batch) {
		b.HSetNX("rsmq:q:Q", "vt", 30)
		b.HSetNX("rsmq:q:Q", "delay", 0)
		b.SAdd("rsmq:QUEUES", "q")
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 0, 1}, replies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreAtomicReturnsRedisErrors(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewStore(client)

	mock.ExpectTxPipeline()
	mock.ExpectZCard("q").SetErr(errors.New("kaboom"))
	mock.ExpectTxPipelineExec()

	replies, err := store.Atomic(ctx, func(b queue.Batch) {
		b.ZCard("q")
	})

	assert.ErrorContains(t, err, "kaboom")
	assert.Nil(t, replies)
}

func TestStoreAtomicWithEmptyBatch(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewStore(client)

	replies, err := store.Atomic(ctx, func(queue.Batch) {})

	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePublish(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewStore(client)

	mock.ExpectPublish("nsTest:rt:test", "1").SetVal(2)

	n, err := store.Publish(ctx, "nsTest:rt:test", "1")

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreConnected(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewStore(client)

	mock.ExpectPing().SetVal("PONG")
	assert.True(t, store.Connected(ctx))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	assert.False(t, store.Connected(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}
