package ocr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bnema/operate-cli/internal/ports"
	"github.com/bnema/operate-cli/internal/ports/mocks"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingFactory struct {
	mu    sync.Mutex
	calls map[string]int
	t     *testing.T
}

func (f *countingFactory) build(_ context.Context, languages []string) (ports.OCRReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[Key(languages)]++
	return mocks.NewMockOCRReader(f.t), nil
}

func TestKeyNormalizesLanguages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "eng", Key(nil))
	assert.Equal(t, "eng", Key([]string{" ", ""}))
	assert.Equal(t, "deu_eng_fra", Key([]string{"fra", "ENG", "deu", "eng"}))
}

func TestPoolReusesReaderPerLanguageSet(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	factory := &countingFactory{calls: map[string]int{}, t: t}
	pool := NewPool(factory.build, clock, zaptest.NewLogger(t))

	first, err := pool.Reader(context.Background(), []string{"fra", "eng"})
	require.NoError(t, err)
	second, err := pool.Reader(context.Background(), []string{"eng", "fra", "eng"})
	require.NoError(t, err)
	other, err := pool.Reader(context.Background(), nil)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
	assert.Equal(t, map[string]int{"eng_fra": 1, "eng": 1}, factory.calls)

	stats := pool.Stats()
	assert.Equal(t, 2, stats.TotalReaders)
	assert.Equal(t, 3, stats.TotalUses)
	require.Len(t, stats.Readers, 2)
	assert.Equal(t, "eng", stats.Readers[0].Key)
	assert.Equal(t, "eng_fra", stats.Readers[1].Key)
	assert.Equal(t, 2, stats.Readers[1].Uses)
}

func TestPoolConcurrentCallersShareOneReader(t *testing.T) {
	t.Parallel()

	factory := &countingFactory{calls: map[string]int{}, t: t}
	pool := NewPool(factory.build, nil, nil)

	var wg sync.WaitGroup
	readers := make([]ports.OCRReader, 16)
	for i := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reader, err := pool.Reader(context.Background(), []string{"eng"})
			assert.NoError(t, err)
			readers[i] = reader
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, factory.calls["eng"])
	for _, reader := range readers {
		assert.Same(t, readers[0], reader)
	}
	assert.Equal(t, 16, pool.Stats().TotalUses)
}

func TestPoolEvictIdleAndReset(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	factory := &countingFactory{calls: map[string]int{}, t: t}
	pool := NewPool(factory.build, clock, nil)

	_, err := pool.Reader(context.Background(), []string{"eng"})
	require.NoError(t, err)
	clock.advance(4 * time.Minute)
	_, err = pool.Reader(context.Background(), []string{"fra"})
	require.NoError(t, err)
	clock.advance(2 * time.Minute)

	assert.Equal(t, []string{"eng"}, pool.EvictIdle(5*time.Minute))
	assert.Equal(t, 1, pool.Stats().TotalReaders)

	_, err = pool.Reader(context.Background(), []string{"eng"})
	require.NoError(t, err)
	assert.Equal(t, 2, factory.calls["eng"])

	pool.Reset()
	assert.Zero(t, pool.Stats().TotalReaders)
}

func TestPoolFactoryErrorIsNotCached(t *testing.T) {
	t.Parallel()

	calls := 0
	pool := NewPool(func(context.Context, []string) (ports.OCRReader, error) {
		calls++
		return nil, errors.New("tesseract missing")
	}, nil, nil)

	_, err := pool.Reader(context.Background(), nil)
	require.ErrorContains(t, err, "tesseract missing")
	_, err = pool.Reader(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Zero(t, pool.Stats().TotalReaders)
}

func TestPoolCanceledContext(t *testing.T) {
	t.Parallel()

	pool := NewPool(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Reader(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
}
