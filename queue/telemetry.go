package queue

import (
	"go.opentelemetry.io/otel/attribute"
)

var (
	queueNameKey      = attribute.Key("queue.name")
	queueNamespaceKey = attribute.Key("queue.namespace")
	queueRealtimeKey  = attribute.Key("queue.realtime")
	messageIDKey      = attribute.Key("queue.message_id")
)

func spanAttributes(cfg Config) []attribute.KeyValue {
	return []attribute.KeyValue{
		queueNameKey.String(cfg.name),
		queueNamespaceKey.String(cfg.namespace),
		queueRealtimeKey.Bool(cfg.realtime),
	}
}
