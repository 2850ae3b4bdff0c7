package acquire

import (
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", []byte("v"), time.Minute)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	c.Set("k", []byte("v"), 10*time.Millisecond)

	_, ok := c.Get("k")
	assert.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "expired entries must read as misses")
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache()
	c.Set("k", []byte("v"), 0)

	time.Sleep(15 * time.Millisecond)
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestMemoryCache_CopiesValue(t *testing.T) {
	c := NewMemoryCache()
	val := []byte("original")
	c.Set("k", val, time.Minute)
	val[0] = 'X'

	got, _ := c.Get("k")
	assert.Equal(t, []byte("original"), got, "cached value must not alias the caller's slice")
}

func TestRedisCache_SetGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client)

	mock.ExpectSet("acquire:BTC-USD:technical", []byte("payload"), time.Minute).SetVal("OK")
	c.Set("acquire:BTC-USD:technical", []byte("payload"), time.Minute)

	mock.ExpectGet("acquire:BTC-USD:technical").SetVal("payload")
	got, ok := c.Get("acquire:BTC-USD:technical")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_MissAndErrorDegrade(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client)

	mock.ExpectGet("missing").RedisNil()
	_, ok := c.Get("missing")
	assert.False(t, ok, "a redis nil is a plain miss")

	mock.ExpectGet("broken").SetErr(assert.AnError)
	_, ok = c.Get("broken")
	assert.False(t, ok, "a redis error degrades to a miss, never an abort")
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "acquire:BTC-USD:flow", cacheKey("BTC-USD", "flow"))
}
