package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	s, err := NewMemory(8)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreSetNX(t *testing.T) {
	s, err := NewMemory(8)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "k", []byte("first"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(ctx, "k", []byte("second"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	got, _ := s.Get(ctx, "k")
	assert.Equal(t, "first", string(got))

	now = now.Add(2 * time.Minute)
	ok, err = s.SetNX(ctx, "k", []byte("third"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ = s.Get(ctx, "k")
	assert.Equal(t, "third", string(got))
}

func TestMemoryStoreSetNXConcurrent(t *testing.T) {
	s, err := NewMemory(8)
	require.NoError(t, err)
	ctx := context.Background()

	var (
		won   atomic.Int32
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := s.SetNX(ctx, "k", []byte("v"), time.Minute); ok {
				won.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
}

func TestMemoryStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s, err := NewMemory(2)
	require.NoError(t, err)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "b", []byte("2"), 0)
	_, _ = s.Get(ctx, "a")
	_ = s.Set(ctx, "c", []byte("3"), 0)

	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = s.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryStoreDeletePrefix(t *testing.T) {
	s, _ := NewMemory(16)
	ctx := context.Background()

	for _, k := range []string{"orders:1", "orders:customer:9", "products:all"} {
		_ = s.Set(ctx, k, []byte("x"), time.Minute)
	}
	require.NoError(t, s.DeletePrefix(ctx, "orders:"))

	_, err := s.Get(ctx, "orders:1")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = s.Get(ctx, "products:all")
	assert.NoError(t, err)
}

func TestRememberCachesLoaderResult(t *testing.T) {
	s, _ := NewMemory(16)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	v1, err := Remember(ctx, s, "list", time.Minute, load)
	require.NoError(t, err)
	v2, err := Remember(ctx, s, "list", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, v1)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)

	Forget(ctx, s, []string{"list"})
	_, _ = Remember(ctx, s, "list", time.Minute, load)
	assert.Equal(t, 2, calls)
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	s, _ := NewMemory(16)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Remember(ctx, s, "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := Remember(ctx, s, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestRememberWithoutStore(t *testing.T) {
	v, err := Remember[int](context.Background(), nil, "k", time.Minute, func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "orders:customer:42", Key("orders", "customer", 42))
}
