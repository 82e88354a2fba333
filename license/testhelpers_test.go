package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("license-secret-license-secret-01")

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func newPair(t *testing.T, clock *testClock, opts ...Option) (*Generator, *Validator) {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	gen, err := NewGenerator(testSecret, opts...)
	require.NoError(t, err)
	val, err := NewValidator(testSecret, opts...)
	require.NoError(t, err)
	return gen, val
}
