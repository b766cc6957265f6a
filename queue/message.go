package queue

import (
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
)

const (
	idAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idSuffixLength = 22

	// Largest multiple of len(idAlphabet) that fits in a byte. Random bytes at
	// or above this are rejected so that every character is equally likely.
	idRejectAbove = 256 - 256%len(idAlphabet)
)

// Timestamp is a server time as reported by the Redis TIME command.
type Timestamp struct {
	Seconds      int64
	Microseconds int64 // in [0, 999999]
}

// Micros returns the timestamp as the decimal concatenation of the seconds and
// the zero-padded 6-digit microseconds, i.e. microseconds since the epoch.
func (t Timestamp) Micros() int64 {
	return t.Seconds*1_000_000 + t.Microseconds
}

// Millis returns the timestamp truncated to milliseconds since the epoch.
func (t Timestamp) Millis() int64 {
	return t.Seconds*1000 + t.Microseconds/1000
}

// Message is a payload to be sent to a queue, together with an optional delay
// which overrides the queue's default.
type Message struct {
	payload  string
	delay    int
	hasDelay bool

	random io.Reader // test seam
}

// NewMessage returns a message carrying payload which uses the queue's
// default delay.
func NewMessage(payload string) *Message {
	return &Message{payload: payload}
}

// Payload returns the message body as it will be stored in Redis.
func (m *Message) Payload() string {
	return m.payload
}

// Delay returns the message's own delay in seconds, and false if the queue's
// default delay applies.
func (m *Message) Delay() (int, bool) {
	return m.delay, m.hasDelay
}

// SetDelay sets a delay in seconds for this message only.
func (m *Message) SetDelay(seconds int) error {
	if seconds < 0 || seconds > maxSeconds {
		return ErrDelayRange
	}
	m.delay = seconds
	m.hasDelay = true
	return nil
}

// ClearDelay reverts the message to the queue's default delay.
func (m *Message) ClearDelay() {
	m.delay = 0
	m.hasDelay = false
}

// CheckSize reports whether the payload fits within maxSize bytes. Callers
// must not pass UnlimitedSize.
func (m *Message) CheckSize(maxSize int) bool {
	return len(m.payload) <= maxSize
}

// GenerateID returns a new message id for a message sent at ts. The id is the
// base-36 encoding of ts.Micros() followed by 22 random alphanumerics, so ids
// sort by send time.
func (m *Message) GenerateID(ts Timestamp) (string, error) {
	suffix, err := m.randomSuffix()
	if err != nil {
		return "", fmt.Errorf("rsmq: failed to generate message id: %w", err)
	}
	return strconv.FormatInt(ts.Micros(), 36) + suffix, nil
}

// GenerateScore returns the scheduling score for a message sent at
// timestampMillis: the time in milliseconds at which it becomes visible.
func (m *Message) GenerateScore(timestampMillis int64, defaultDelay int) int64 {
	delay := defaultDelay
	if m.hasDelay {
		delay = m.delay
	}
	return timestampMillis + int64(delay)*1000
}

func (m *Message) randomSuffix() (string, error) {
	r := m.random
	if r == nil {
		r = rand.Reader
	}

	out := make([]byte, 0, idSuffixLength)
	buf := make([]byte, idSuffixLength+idSuffixLength/2)
	for len(out) < idSuffixLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= idRejectAbove {
				continue
			}
			out = append(out, idAlphabet[int(b)%len(idAlphabet)])
			if len(out) == idSuffixLength {
				break
			}
		}
	}
	return string(out), nil
}
