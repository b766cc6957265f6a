package queue

import (
	"regexp"
	"strings"
)

const (
	separator = ":"

	// UnlimitedSize disables the payload size check when used as a queue's
	// max size.
	UnlimitedSize = -1

	DefaultNamespace         = "rsmq"
	DefaultVisibilityTimeout = 30
	DefaultMaxSize           = 65536

	maxNameLength = 160
	maxSeconds    = 9_999_999
	minMaxSize    = 1024
	maxMaxSize    = 65536
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Config describes a queue's identity and attributes. A Config is immutable
// once constructed: the only way to obtain one is through NewConfig, which
// validates every field.
type Config struct {
	namespace string
	name      string
	realtime  bool
	vt        int
	delay     int
	maxSize   int
}

// ConfigOption overrides one of the defaults applied by NewConfig.
type ConfigOption interface {
	apply(*Config)
}

type configOptionFunc func(*Config)

func (fn configOptionFunc) apply(c *Config) {
	fn(c)
}

// WithNamespace sets the key prefix shared by all queues of one deployment.
func WithNamespace(namespace string) ConfigOption {
	return configOptionFunc(func(c *Config) {
		c.namespace = namespace
	})
}

// WithRealtime controls whether a notification is published on every send.
func WithRealtime(realtime bool) ConfigOption {
	return configOptionFunc(func(c *Config) {
		c.realtime = realtime
	})
}

// WithVisibilityTimeout sets the number of seconds a received message stays
// hidden from other consumers.
func WithVisibilityTimeout(seconds int) ConfigOption {
	return configOptionFunc(func(c *Config) {
		c.vt = seconds
	})
}

// WithDelay sets the number of seconds new messages are delayed by when they
// do not carry a delay of their own.
func WithDelay(seconds int) ConfigOption {
	return configOptionFunc(func(c *Config) {
		c.delay = seconds
	})
}

// WithMaxSize sets the maximum payload size in bytes, or UnlimitedSize.
func WithMaxSize(bytes int) ConfigOption {
	return configOptionFunc(func(c *Config) {
		c.maxSize = bytes
	})
}

// NewConfig returns a validated Config for the named queue. Unless overridden,
// the queue lives in DefaultNamespace, is realtime, has a visibility timeout of
// DefaultVisibilityTimeout, no delay and a max size of DefaultMaxSize.
func NewConfig(name string, opts ...ConfigOption) (Config, error) {
	c := Config{
		namespace: DefaultNamespace,
		name:      name,
		realtime:  true,
		vt:        DefaultVisibilityTimeout,
		delay:     0,
		maxSize:   DefaultMaxSize,
	}
	for _, o := range opts {
		o.apply(&c)
	}

	c.name = strings.TrimSpace(c.name)
	c.namespace = strings.TrimSpace(c.namespace)

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch {
	case c.name == "":
		return ErrEmptyName
	case len(c.name) > maxNameLength:
		return ErrNameTooLong
	case !validName.MatchString(c.name):
		return ErrNameCharacters
	case c.namespace == "":
		return ErrEmptyNamespace
	case strings.HasSuffix(c.namespace, separator):
		return ErrNamespaceSeparator
	case c.vt < 0 || c.vt > maxSeconds:
		return ErrVisibilityRange
	case c.delay < 0 || c.delay > maxSeconds:
		return ErrDelayRange
	case c.maxSize != UnlimitedSize && (c.maxSize < minMaxSize || c.maxSize > maxMaxSize):
		return ErrMaxSizeRange
	}
	return nil
}

// withAttributes returns a copy of c carrying the given attributes. Identity
// and realtime mode are preserved.
func (c Config) withAttributes(vt, delay, maxSize int) (Config, error) {
	return NewConfig(
		c.name,
		WithNamespace(c.namespace),
		WithRealtime(c.realtime),
		WithVisibilityTimeout(vt),
		WithDelay(delay),
		WithMaxSize(maxSize),
	)
}

// Accessors for the queue's attributes. VisibilityTimeout and Delay are in
// seconds, MaxSize is in bytes or UnlimitedSize.
func (c Config) Name() string           { return c.name }
func (c Config) Namespace() string      { return c.namespace }
func (c Config) Realtime() bool         { return c.realtime }
func (c Config) VisibilityTimeout() int { return c.vt }
func (c Config) Delay() int             { return c.delay }
func (c Config) MaxSize() int           { return c.maxSize }

// NamespaceKey prefixes key with the queue's namespace.
func (c Config) NamespaceKey(key string) string {
	return c.namespace + separator + key
}

// QualifiedName is the namespaced queue name. It is also the key of the
// sorted set used to schedule the queue's messages.
func (c Config) QualifiedName() string {
	return c.NamespaceKey(c.name)
}

// QueueKey is the key of the hash holding the queue's attributes and message
// payloads.
func (c Config) QueueKey() string {
	return c.QualifiedName() + ":Q"
}

// QueuesKey is the key of the set of all queue names in the namespace.
func (c Config) QueuesKey() string {
	return c.NamespaceKey("QUEUES")
}

// PublishKey is the channel on which realtime notifications are published.
func (c Config) PublishKey() string {
	return c.namespace + ":rt:" + c.name
}
