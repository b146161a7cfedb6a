package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
}

func TestSessionStoreUnreachable(t *testing.T) {
	c := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer c.Close()

	store := NewSessionStore(c, time.Hour)
	ctx := context.Background()

	assert.Error(t, store.Create(ctx, "token"))

	ok, err := store.Exists(ctx, "token")
	assert.Error(t, err)
	assert.False(t, ok)

	assert.Error(t, store.Delete(ctx, "token"))
}
