package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientMetadata(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, UserAgent(ctx))

	ctx = WithClientMetadata(ctx, "203.0.113.7", "curl/8.0")
	assert.Equal(t, "203.0.113.7", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
}

func TestNowFallsBackToWallClock(t *testing.T) {
	before := time.Now()
	got := Now(context.Background())
	assert.False(t, got.Before(before))

	fixed := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
}

func TestRequestIDAndSubject(t *testing.T) {
	ctx := WithSubject(WithRequestID(context.Background(), "req-1"), "admin")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "admin", Subject(ctx))
}
