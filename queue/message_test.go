package queue

import (
	"bytes"
	"errors"
	"sort"
	"strconv"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp(t *testing.T) {
	ts := Timestamp{Seconds: 1506053999, Microseconds: 291216}
	assert.Equal(t, int64(1506053999291216), ts.Micros())
	assert.Equal(t, int64(1506053999291), ts.Millis())

	// microseconds are zero-padded to six digits
	ts = Timestamp{Seconds: 1506053999, Microseconds: 42}
	assert.Equal(t, int64(1506053999000042), ts.Micros())
	assert.Equal(t, int64(1506053999000), ts.Millis())
}

func TestMessageDelay(t *testing.T) {
	m := NewMessage("fooBar")
	assert.Equal(t, "fooBar", m.Payload())

	_, ok := m.Delay()
	assert.False(t, ok)

	require.NoError(t, m.SetDelay(0))
	d, ok := m.Delay()
	assert.True(t, ok)
	assert.Equal(t, 0, d)

	require.NoError(t, m.SetDelay(9_999_999))
	d, _ = m.Delay()
	assert.Equal(t, 9_999_999, d)

	assert.ErrorIs(t, m.SetDelay(-1), ErrDelayRange)
	assert.ErrorIs(t, m.SetDelay(10_000_000), ErrValidation)
	d, _ = m.Delay()
	assert.Equal(t, 9_999_999, d)

	m.ClearDelay()
	_, ok = m.Delay()
	assert.False(t, ok)
}

func TestMessageCheckSize(t *testing.T) {
	m := NewMessage(strings.Repeat("a", 1024))
	assert.True(t, m.CheckSize(1024))
	assert.True(t, m.CheckSize(2048))
	assert.False(t, m.CheckSize(1023))

	// size is measured in bytes, not characters
	m = NewMessage(strings.Repeat("é", 512))
	assert.True(t, m.CheckSize(1024))
	assert.False(t, m.CheckSize(1000))
}

func TestMessageGenerateScore(t *testing.T) {
	m := NewMessage("x")
	assert.Equal(t, int64(1506053999291), m.GenerateScore(1506053999291, 0))
	assert.Equal(t, int64(1506054069291), m.GenerateScore(1506053999291, 70))

	require.NoError(t, m.SetDelay(5))
	assert.Equal(t, int64(1506054004291), m.GenerateScore(1506053999291, 70))

	require.NoError(t, m.SetDelay(0))
	assert.Equal(t, int64(1506053999291), m.GenerateScore(1506053999291, 70))
}

func TestMessageGenerateID(t *testing.T) {
	ts := Timestamp{Seconds: 1506053999, Microseconds: 291216}
	prefix := strconv.FormatInt(1506053999291216, 36)

	id, err := NewMessage("x").GenerateID(ts)
	require.NoError(t, err)

	require.Len(t, id, len(prefix)+22)
	assert.True(t, strings.HasPrefix(id, prefix))
	for _, c := range id[len(prefix):] {
		assert.Contains(t, idAlphabet, string(c))
	}
}

func TestMessageGenerateIDIsUnique(t *testing.T) {
	ts := Timestamp{Seconds: 1506053999, Microseconds: 291216}
	m := NewMessage("x")

	seen := make(map[string]struct{})
	for range 10000 {
		id, err := m.GenerateID(ts)
		require.NoError(t, err)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 10000)
}

func TestMessageGenerateIDSortsByTime(t *testing.T) {
	m := NewMessage("x")

	var ids []string
	ts := Timestamp{Seconds: 1506053999, Microseconds: 999990}
	for range 50 {
		id, err := m.GenerateID(ts)
		require.NoError(t, err)
		ids = append(ids, id)

		ts.Microseconds += 3
		if ts.Microseconds > 999999 {
			ts.Seconds++
			ts.Microseconds -= 1_000_000
		}
	}

	prefixes := make([]string, len(ids))
	for i, id := range ids {
		prefixes[i] = id[:len(id)-22]
	}
	assert.True(t, sort.StringsAreSorted(prefixes))
}

func TestMessageGenerateIDRejectsBiasedBytes(t *testing.T) {
	// 248 and above would skew the distribution and must be skipped; 62 maps
	// back to the start of the alphabet.
	random := append(bytes.Repeat([]byte{255, 248}, 10), 0, 1, 61, 62)
	random = append(random, bytes.Repeat([]byte{25}, 80)...)

	m := NewMessage("x")
	m.random = bytes.NewReader(random)

	id, err := m.GenerateID(Timestamp{Seconds: 1, Microseconds: 0})
	require.NoError(t, err)

	prefix := strconv.FormatInt(1_000_000, 36)
	assert.Equal(t, prefix+"AB9A"+strings.Repeat("Z", 18), id)
}

func TestMessageGenerateIDReturnsRandomErrors(t *testing.T) {
	m := NewMessage("x")
	m.random = iotest.ErrReader(errors.New("kaboom"))

	_, err := m.GenerateID(Timestamp{Seconds: 1})
	assert.ErrorContains(t, err, "kaboom")
}
