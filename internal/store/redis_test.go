package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		timeout  time.Duration
		wantAddr string
		wantDB   int
		wantRead time.Duration
		wantDial time.Duration
	}{
		{"host port", "localhost:6379", 5 * time.Second, "localhost:6379", 0, time.Second, 2 * time.Second},
		{"url with db", "redis://:secret@cache:6380/2", 5 * time.Second, "cache:6380", 2, time.Second, 2 * time.Second},
		{"short store timeout", "localhost:6379", 300 * time.Millisecond, "localhost:6379", 0, 300 * time.Millisecond, 300 * time.Millisecond},
		{"zero timeout", "localhost:6379", 0, "localhost:6379", 0, time.Second, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := redisOptions(tt.addr, tt.timeout)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, opts.Addr)
			assert.Equal(t, tt.wantDB, opts.DB)
			assert.Equal(t, tt.wantRead, opts.ReadTimeout)
			assert.Equal(t, tt.wantRead, opts.WriteTimeout)
			assert.Equal(t, tt.wantDial, opts.DialTimeout)
		})
	}
}

func TestRedisOptions_BadURL(t *testing.T) {
	_, err := redisOptions("redis://cache:6379/notadb", time.Second)
	assert.Error(t, err)
}

func TestRedis_NilIsUnhealthy(t *testing.T) {
	var r *Redis
	assert.False(t, r.Healthy(context.Background()))
	assert.NoError(t, r.Close())
}
