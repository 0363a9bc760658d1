package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckRejectsReplay(t *testing.T) {
	s := New(time.Minute)
	defer s.Close()

	assert.True(t, s.Check("nonce-1"))
	assert.False(t, s.Check("nonce-1"))
	assert.True(t, s.Check("nonce-2"))
}

func TestCheckForgetsAfterTTL(t *testing.T) {
	s := &Store{seen: make(map[string]time.Time), ttl: 10 * time.Millisecond, done: make(chan struct{})}

	assert.True(t, s.Check("nonce-1"))
	time.Sleep(20 * time.Millisecond)
	s.evict(time.Now())
	assert.True(t, s.Check("nonce-1"), "nonce should be forgotten once its TTL has elapsed")
}

func TestNewDefaultsInvalidTTL(t *testing.T) {
	s := New(0)
	defer s.Close()
	assert.Equal(t, DefaultTTL, s.ttl)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New(time.Minute)
	s.Close()
	assert.NotPanics(t, func() { s.Close() })
}
