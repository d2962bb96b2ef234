package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/northstar/internal/ai/provider"
)

func result(content string) *provider.CompletionResult {
	return &provider.CompletionResult{Content: content, Model: "mock-v1", FinishReason: "stop"}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("prompt", "model", 100, 0.5)
	b := Fingerprint("prompt", "model", 100, 0.5)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32) // 128-bit digest, hex encoded
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint("prompt", "model", 100, 0.5)
	assert.NotEqual(t, base, Fingerprint("prompt!", "model", 100, 0.5))
	assert.NotEqual(t, base, Fingerprint("prompt", "other", 100, 0.5))
	assert.NotEqual(t, base, Fingerprint("prompt", "model", 101, 0.5))
	assert.NotEqual(t, base, Fingerprint("prompt", "model", 100, 0.7))
}

func TestCacheGetSet(t *testing.T) {
	c := New(time.Hour)

	_, ok := c.Get("fp")
	assert.False(t, ok)

	c.Set("fp", result("hello"))
	res, ok := c.Get("fp")
	require.True(t, ok)
	assert.Equal(t, "hello", res.Content)
}

func TestCacheExpiry(t *testing.T) {
	c := New(time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("fp", result("hello"))

	now = now.Add(59 * time.Minute)
	_, ok := c.Get("fp")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("fp")
	assert.False(t, ok)
	// Expired entry was removed on access
	assert.Equal(t, 0, c.Len())
}

func TestCacheSweepIdempotent(t *testing.T) {
	c := New(time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", result("a"))
	c.Set("b", result("b"))
	now = now.Add(2 * time.Hour)
	c.Set("c", result("c"))

	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 0, c.Sweep())
	assert.Equal(t, 1, c.Len())
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c := New(time.Hour)
	var calls int64

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, _, err := c.GetOrCompute("fp", func() (*provider.CompletionResult, error) {
				atomic.AddInt64(&calls, 1)
				time.Sleep(10 * time.Millisecond)
				return result("computed"), nil
			})
			require.NoError(t, err)
			assert.Equal(t, "computed", res.Content)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestGetOrComputeCacheHit(t *testing.T) {
	c := New(time.Hour)

	_, hit, err := c.GetOrCompute("fp", func() (*provider.CompletionResult, error) {
		return result("first"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)

	res, hit, err := c.GetOrCompute("fp", func() (*provider.CompletionResult, error) {
		t.Fatal("compute should not run on cache hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "first", res.Content)
}
