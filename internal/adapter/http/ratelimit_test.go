package http

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestClientLimiter_PerClientBuckets(t *testing.T) {
	l := newClientLimiter(2, clockwork.NewFakeClock())

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))

	// Another client has its own burst.
	assert.True(t, l.allow("10.0.0.2"))
	assert.True(t, l.allow("10.0.0.2"))
	assert.False(t, l.allow("10.0.0.2"))
}

func TestClientLimiter_Refills(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := newClientLimiter(1, fc)

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))

	fc.Advance(time.Second)
	assert.True(t, l.allow("10.0.0.1"))
}

func TestClientLimiter_EvictsIdleClients(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := newClientLimiter(5, fc)

	l.allow("10.0.0.1")
	l.allow("10.0.0.2")
	assert.Equal(t, 2, l.tracked())

	fc.Advance(clientIdleTTL / 2)
	l.allow("10.0.0.2")

	fc.Advance(clientIdleTTL / 2)
	l.allow("10.0.0.3")

	// 10.0.0.1 was idle for the full TTL; 10.0.0.2 was seen half a TTL ago.
	assert.Equal(t, 2, l.tracked())
}

func TestClientLimiter_MinimumRate(t *testing.T) {
	l := newClientLimiter(0, clockwork.NewFakeClock())
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
}
