package preprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/cmsfreq/internal/model"
)

// CorpusVersion is the preprocessor schema version recorded in corpus metadata.
const CorpusVersion = "1.0"

// DefaultWorkers bounds concurrent artifact reads. Artifact files are
// small JSON documents, so a modest pool saturates disk without
// overwhelming the file descriptor budget.
const DefaultWorkers = 8

// Query selects which index entries participate in a corpus build.
type Query struct {
	// Range filters entries by capture timestamp.
	Range model.DateRange

	// ForceReload bypasses the cache lookup and rebuilds the corpus.
	// The rebuilt corpus still replaces the cache entry.
	ForceReload bool
}

// queryKey is the structural cache key derived from a query.
// Using a comparable value type instead of a formatted string avoids
// key-collision bugs between similar-looking queries.
type queryKey struct {
	start    int64
	end      int64
	lastDays int
}

func keyFor(q Query) queryKey {
	k := queryKey{lastDays: q.Range.LastDays}
	if !q.Range.Start.IsZero() {
		k.start = q.Range.Start.UnixNano()
	}
	if !q.Range.End.IsZero() {
		k.end = q.Range.End.UnixNano()
	}
	return k
}

// CacheStats reports cache effectiveness for one preprocessor instance.
type CacheStats struct {
	// Entries is the number of cached corpora.
	Entries int

	// Hits is the number of loads served from cache.
	Hits int

	// Misses is the number of loads that rebuilt the corpus after a
	// failed cache lookup.
	Misses int

	// Reloads is the number of loads that rebuilt the corpus because the
	// query forced a reload. No cache lookup happens on that path, so
	// these are not misses.
	Reloads int
}

// Preprocessor loads crawl artifacts into analysis corpora.
// Loads are idempotent and cached per query signature; cache entries are
// immutable once inserted and invalidated only by ClearCache or a
// force-reload query.
type Preprocessor struct {
	indexPath string
	baseDir   string
	workers   int
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	cache   map[queryKey]*model.Corpus
	hits    int
	misses  int
	reloads int
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Preprocessor) {
		p.logger = logger
	}
}

// WithWorkers sets the artifact-read concurrency.
func WithWorkers(n int) Option {
	return func(p *Preprocessor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithClock overrides the time source used for trailing-window date
// filtering. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(p *Preprocessor) {
		p.now = now
	}
}

// New creates a Preprocessor for the given index file. Artifact paths in
// the index resolve relative to the index file's directory.
func New(indexPath string, opts ...Option) *Preprocessor {
	p := &Preprocessor{
		indexPath: indexPath,
		baseDir:   filepath.Dir(indexPath),
		workers:   DefaultWorkers,
		logger:    slog.Default(),
		now:       time.Now,
		cache:     make(map[queryKey]*model.Corpus),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load builds (or returns the cached) corpus for the query.
// A missing or malformed index is fatal; individual artifact failures are
// tallied as filtering stats and skipped.
func (p *Preprocessor) Load(ctx context.Context, q Query) (*model.Corpus, error) {
	key := keyFor(q)

	if q.ForceReload {
		p.mu.Lock()
		p.reloads++
		p.mu.Unlock()
	} else {
		p.mu.Lock()
		if corpus, ok := p.cache[key]; ok {
			p.hits++
			p.mu.Unlock()
			return corpus, nil
		}
		p.misses++
		p.mu.Unlock()
	}

	entries, err := p.readIndex()
	if err != nil {
		return nil, err
	}

	now := p.now()
	selected := make([]IndexEntry, 0, len(entries))
	for _, entry := range entries {
		if q.Range.Contains(entry.CapturedAt(), now) {
			selected = append(selected, entry)
		}
	}

	corpus, err := p.buildCorpus(ctx, selected)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[key] = corpus
	p.mu.Unlock()

	p.logger.Info("corpus loaded",
		"sites", corpus.TotalSites,
		"filtered", corpus.FilteringStats.FilteredCount,
		"index_entries", len(entries),
	)
	return corpus, nil
}

// ClearCache drops all cached corpora.
func (p *Preprocessor) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[queryKey]*model.Corpus)
}

// Stats returns cache statistics.
func (p *Preprocessor) Stats() CacheStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return CacheStats{Entries: len(p.cache), Hits: p.hits, Misses: p.misses, Reloads: p.reloads}
}

// readIndex reads and parses the crawl index file.
func (p *Preprocessor) readIndex() ([]IndexEntry, error) {
	data, err := os.ReadFile(p.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, p.indexPath)
		}
		return nil, fmt.Errorf("read crawl index: %w", err)
	}

	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexMalformed, err)
	}
	return entries, nil
}

// buildCorpus reads artifacts with a bounded worker pool, filters and
// normalizes each capture, and deduplicates by normalized URL keeping the
// highest-confidence record.
func (p *Preprocessor) buildCorpus(ctx context.Context, entries []IndexEntry) (*model.Corpus, error) {
	var (
		mu     sync.Mutex
		stats  model.FilteringStats
		loaded []*model.SiteRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, entry := range entries {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			site, reason := p.loadOne(entry)

			mu.Lock()
			defer mu.Unlock()
			if reason != model.FilterReasonNone {
				stats.Add(reason)
				return nil
			}
			loaded = append(loaded, site)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic dedup: order candidates so the highest-confidence
	// record per normalized URL wins, with the original URL as a stable
	// tie-break independent of worker scheduling.
	sort.Slice(loaded, func(i, j int) bool {
		a, b := loaded[i], loaded[j]
		if a.NormalizedURL != b.NormalizedURL {
			return a.NormalizedURL < b.NormalizedURL
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.URL < b.URL
	})

	sites := make(map[string]*model.SiteRecord, len(loaded))
	for _, site := range loaded {
		if _, exists := sites[site.NormalizedURL]; exists {
			continue
		}
		sites[site.NormalizedURL] = site
	}

	return &model.Corpus{
		Sites:          sites,
		TotalSites:     len(sites),
		FilteringStats: stats,
		Metadata: model.CorpusMetadata{
			Version:     CorpusVersion,
			GeneratedAt: p.now(),
		},
	}, nil
}

// loadOne reads, classifies, and normalizes a single index entry.
// It returns either a built site record or the filter reason.
func (p *Preprocessor) loadOne(entry IndexEntry) (*model.SiteRecord, model.FilterReason) {
	path := entry.FilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.baseDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		p.logger.Debug("artifact unreadable", "url", entry.URL, "path", path, "error", err)
		return nil, model.FilterReasonUnreadable
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		p.logger.Debug("artifact malformed", "url", entry.URL, "path", path, "error", err)
		return nil, model.FilterReasonUnreadable
	}

	if reason, filtered := Classify(entry.URL, &artifact); filtered {
		return nil, reason
	}

	site, err := BuildSiteRecord(entry, &artifact)
	if err != nil {
		// Classify accepts only parseable HTTP URLs, so this is a
		// normalization failure on an edge-case URL form.
		p.logger.Debug("site normalization failed", "url", entry.URL, "error", err)
		return nil, model.FilterReasonInvalidURL
	}
	return site, model.FilterReasonNone
}
