package ocr

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/operate-cli/internal/ports"
)

var defaultLanguages = []string{"eng"}

// ReaderFactory builds a reader for an already normalized language set.
type ReaderFactory func(ctx context.Context, languages []string) (ports.OCRReader, error)

type entry struct {
	reader    ports.OCRReader
	createdIn time.Duration
	uses      int
	lastUsed  time.Time
}

// Pool caches one reader per language set. Readers are built lazily and the
// whole lookup, including creation, happens under a single mutex so two
// callers never build the same reader twice.
type Pool struct {
	factory ReaderFactory
	clock   ports.Clock
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

var _ ports.OCRReaderProvider = (*Pool)(nil)

func NewPool(factory ReaderFactory, clock ports.Clock, logger *zap.Logger) *Pool {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		factory: factory,
		clock:   clock,
		logger:  logger.With(zap.String("component", "ocr_pool")),
		entries: map[string]*entry{},
	}
}

// Key normalizes a language list into the pool key: sorted, de-duplicated and
// joined with "_". An empty list means English.
func Key(languages []string) string {
	return strings.Join(normalizeLanguages(languages), "_")
}

func (p *Pool) Reader(ctx context.Context, languages []string) (ports.OCRReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := normalizeLanguages(languages)
	key := strings.Join(normalized, "_")

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	if cached, ok := p.entries[key]; ok {
		cached.uses++
		cached.lastUsed = now
		p.logger.Debug("reusing ocr reader", zap.String("languages", key), zap.Int("uses", cached.uses))
		return cached.reader, nil
	}

	reader, err := p.factory(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("create ocr reader for %s: %w", key, err)
	}

	finished := p.clock.Now()
	p.entries[key] = &entry{
		reader:    reader,
		createdIn: finished.Sub(now),
		uses:      1,
		lastUsed:  finished,
	}
	p.logger.Debug("created ocr reader", zap.String("languages", key), zap.Duration("took", finished.Sub(now)))

	return reader, nil
}

type ReaderStats struct {
	Key       string        `json:"key"`
	CreatedIn time.Duration `json:"created_in"`
	Uses      int           `json:"uses"`
	LastUsed  time.Time     `json:"last_used"`
}

type Stats struct {
	TotalReaders        int           `json:"total_readers"`
	TotalCreationTime   time.Duration `json:"total_creation_time"`
	AverageCreationTime time.Duration `json:"average_creation_time"`
	TotalUses           int           `json:"total_uses"`
	Readers             []ReaderStats `json:"readers"`
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{Readers: make([]ReaderStats, 0, len(p.entries))}
	for key, cached := range p.entries {
		stats.TotalReaders++
		stats.TotalCreationTime += cached.createdIn
		stats.TotalUses += cached.uses
		stats.Readers = append(stats.Readers, ReaderStats{
			Key:       key,
			CreatedIn: cached.createdIn,
			Uses:      cached.uses,
			LastUsed:  cached.lastUsed,
		})
	}
	if stats.TotalReaders > 0 {
		stats.AverageCreationTime = stats.TotalCreationTime / time.Duration(stats.TotalReaders)
	}
	slices.SortFunc(stats.Readers, func(a, b ReaderStats) int {
		return strings.Compare(a.Key, b.Key)
	})

	return stats
}

// EvictIdle drops readers unused for longer than maxAge and returns their keys.
func (p *Pool) EvictIdle(maxAge time.Duration) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	var evicted []string
	for key, cached := range p.entries {
		if now.Sub(cached.lastUsed) > maxAge {
			delete(p.entries, key)
			evicted = append(evicted, key)
		}
	}
	slices.Sort(evicted)

	if len(evicted) > 0 {
		p.logger.Debug("evicted idle ocr readers", zap.Strings("languages", evicted))
	}

	return evicted
}

func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.entries)
}

func normalizeLanguages(languages []string) []string {
	normalized := make([]string, 0, len(languages))
	for _, language := range languages {
		language = strings.ToLower(strings.TrimSpace(language))
		if language != "" {
			normalized = append(normalized, language)
		}
	}
	if len(normalized) == 0 {
		return slices.Clone(defaultLanguages)
	}

	slices.Sort(normalized)
	return slices.Compact(normalized)
}
