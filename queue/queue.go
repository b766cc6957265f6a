// Package queue implements the producer side of an RSMQ-compatible message
// queue stored in Redis.
//
// Each queue is made of two keys. A hash at "<ns>:<name>:Q" holds the queue's
// attributes (vt, delay, maxsize, created, modified, totalsent) and one field
// per pending message mapping its id to its payload. A sorted set at
// "<ns>:<name>" maps each pending message id to the time in milliseconds at
// which it becomes visible. Queue names are also added to the set
// "<ns>:QUEUES".
//
// Multiple producers may declare and write to the same queue concurrently. All
// writes happen in MULTI/EXEC transactions. Creation is not locked: it uses
// HSETNX for every attribute and reports ErrQueueExists if any attribute was
// already present, in which case calling New again adopts the existing queue.
//
// Realtime queues additionally publish the number of pending messages to
// "<ns>:rt:<name>" after every send. The notification is best effort: it is
// sent after the transaction commits and a failure to publish does not fail
// the send.
package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/replicate/rsmq/logging"
	"github.com/replicate/rsmq/telemetry"
)

var (
	logger = logging.New("queue")
	tracer = telemetry.Tracer("rsmq", "queue")
)

const (
	fieldVisibilityTimeout = "vt"
	fieldDelay             = "delay"
	fieldMaxSize           = "maxsize"
	fieldCreated           = "created"
	fieldModified          = "modified"
	fieldTotalSent         = "totalsent"
)

// Queue is a handle on a queue which has been reconciled with Redis.
type Queue struct {
	config Config
	store  Store

	allowCreate bool
}

// Option configures New.
type Option func(*Queue)

// WithAllowCreate controls whether New creates the queue if it does not exist
// yet. Creation is allowed by default.
func WithAllowCreate(allow bool) Option {
	return func(q *Queue) {
		q.allowCreate = allow
	}
}

// New reconciles cfg with the queue stored in Redis. If the queue does not
// exist it is created from cfg, or ErrQueueNotFound is returned when creation
// is disallowed. If it exists, its stored attributes take precedence over the
// ones in cfg.
//
// New returns ErrQueueExists if it lost a creation race with another client.
// It is safe to call New again in that case. A cfg that was not built by
// NewConfig is rejected with ErrValidation before Redis is contacted.
func New(ctx context.Context, cfg Config, store Store, opts ...Option) (*Queue, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	q := &Queue{
		config:      cfg,
		store:       store,
		allowCreate: true,
	}
	for _, o := range opts {
		o(q)
	}

	ctx, span := tracer.Start(ctx, "queue.sync", trace.WithAttributes(spanAttributes(cfg)...))
	defer span.End()

	if err := q.sync(ctx); err != nil {
		recordError(ctx, err)
		return nil, err
	}
	return q, nil
}

// Config returns the queue's attributes as last read from Redis.
func (q *Queue) Config() Config {
	return q.config
}

func (q *Queue) sync(ctx context.Context) error {
	log := logger.With(logging.GetFields(ctx)...).Sugar()
	cfg := q.config

	fields, err := q.store.HMGet(ctx, cfg.QueueKey(), fieldVisibilityTimeout, fieldDelay, fieldMaxSize)
	if err != nil {
		return storeError("read queue attributes", err)
	}

	vt, hasVT := fields[fieldVisibilityTimeout]
	delay, hasDelay := fields[fieldDelay]
	maxSize, hasMaxSize := fields[fieldMaxSize]
	if !hasVT || !vt.Present || !hasDelay || !delay.Present || !hasMaxSize || !maxSize.Present {
		if !q.allowCreate {
			return fmt.Errorf("%w: %s", ErrQueueNotFound, cfg.QualifiedName())
		}
		return q.create(ctx)
	}

	stored := make([]int, 3)
	for i, f := range []Field{vt, delay, maxSize} {
		n, err := strconv.Atoi(f.Value)
		if err != nil {
			return storeError("read queue attributes", fmt.Errorf("malformed attribute in %s: %w", cfg.QueueKey(), err))
		}
		stored[i] = n
	}

	if stored[0] == cfg.vt && stored[1] == cfg.delay && stored[2] == cfg.maxSize {
		return nil
	}

	adopted, err := cfg.withAttributes(stored[0], stored[1], stored[2])
	if err != nil {
		return fmt.Errorf("queue %s has invalid stored attributes: %w", cfg.QualifiedName(), err)
	}

	log.Infow(
		"adopting stored queue attributes",
		"queue", cfg.QualifiedName(),
		"vt", adopted.vt,
		"delay", adopted.delay,
		"maxsize", adopted.maxSize,
	)
	q.config = adopted

	return nil
}

func (q *Queue) create(ctx context.Context) error {
	log := logger.With(logging.GetFields(ctx)...).Sugar()
	cfg := q.config

	ctx, span := tracer.Start(ctx, "queue.create", trace.WithAttributes(spanAttributes(cfg)...))
	defer span.End()

	ts, err := q.store.Time(ctx)
	if err != nil {
		return storeError("read server time", err)
	}

	replies, err := q.store.Atomic(ctx, func(b Batch) {
		key := cfg.QueueKey()
		b.HSetNX(key, fieldVisibilityTimeout, cfg.vt)
		b.HSetNX(key, fieldDelay, cfg.delay)
		b.HSetNX(key, fieldMaxSize, cfg.maxSize)
		b.HSetNX(key, fieldCreated, ts.Seconds)
		b.HSetNX(key, fieldModified, ts.Seconds)
		b.SAdd(cfg.QueuesKey(), cfg.name)
	})
	if err != nil {
		return storeError("create queue", err)
	}
	if len(replies) != 6 {
		return storeError("create queue", fmt.Errorf("expected 6 replies, got %d", len(replies)))
	}

	// The SADD reply is not checked: the name may already be registered
	// without the hash existing.
	for _, r := range replies[:5] {
		if r == 0 {
			return fmt.Errorf("%w: %s", ErrQueueExists, cfg.QualifiedName())
		}
	}

	log.Infow(
		"created queue",
		"queue", cfg.QualifiedName(),
		"vt", cfg.vt,
		"delay", cfg.delay,
		"maxsize", cfg.maxSize,
		"realtime", cfg.realtime,
	)

	return nil
}

// Send adds m to the queue and returns its id.
func (q *Queue) Send(ctx context.Context, m *Message) (string, error) {
	cfg := q.config

	if m == nil {
		return "", fmt.Errorf("%w: message cannot be nil", ErrValidation)
	}
	if cfg.maxSize != UnlimitedSize && !m.CheckSize(cfg.maxSize) {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrMessageTooLarge, len(m.payload), cfg.maxSize)
	}

	ctx, span := tracer.Start(ctx, "queue.send", trace.WithAttributes(spanAttributes(cfg)...))
	defer span.End()

	ts, err := q.store.Time(ctx)
	if err != nil {
		err = storeError("read server time", err)
		recordError(ctx, err)
		return "", err
	}

	id, err := m.GenerateID(ts)
	if err != nil {
		recordError(ctx, err)
		return "", err
	}
	score := m.GenerateScore(ts.Millis(), cfg.delay)
	span.SetAttributes(messageIDKey.String(id))

	replies, err := q.store.Atomic(ctx, func(b Batch) {
		b.ZAdd(cfg.QualifiedName(), score, id)
		b.HSet(cfg.QueueKey(), id, m.payload)
		b.HIncrBy(cfg.QueueKey(), fieldTotalSent, 1)
		if cfg.realtime {
			b.ZCard(cfg.QualifiedName())
		}
	})
	if err != nil {
		err = storeError("send message", err)
		recordError(ctx, err)
		return "", err
	}

	if cfg.realtime {
		if len(replies) != 4 {
			q.notifyFailed(ctx, fmt.Errorf("expected 4 replies, got %d", len(replies)))
		} else {
			q.notify(ctx, replies[3])
		}
	}

	return id, nil
}

func (q *Queue) notify(ctx context.Context, pending int64) {
	_, err := q.store.Publish(ctx, q.config.PublishKey(), strconv.FormatInt(pending, 10))
	if err != nil {
		q.notifyFailed(ctx, err)
	}
}

func (q *Queue) notifyFailed(ctx context.Context, err error) {
	log := logger.With(logging.GetFields(ctx)...).Sugar()

	err = fmt.Errorf("failed to publish realtime notification for %s: %w", q.config.QualifiedName(), err)
	trace.SpanFromContext(ctx).RecordError(err)
	sentry.CaptureException(err)
	log.Warnw("realtime notification not sent", "queue", q.config.QualifiedName(), "error", err)
}

func recordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
