package preprocess

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/cmsfreq/internal/model"
)

// testArtifact is a healthy artifact body that survives every filter.
func testArtifact(t *testing.T, extraHeaders map[string]string) []byte {
	t.Helper()

	headers := map[string]any{"server": "nginx"}
	for k, v := range extraHeaders {
		headers[k] = v
	}
	body := map[string]any{
		"httpHeaders": headers,
		"metaTags":    map[string]any{"generator": "WordPress 6.4"},
		"htmlContent": "<html><body>" + longBody() + "</body></html>",
		"statusCode":  200,
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	return data
}

func longBody() string {
	b := make([]byte, 200)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

// writeCorpus writes an index file plus artifact files into dir and
// returns the index path.
func writeCorpus(t *testing.T, dir string, entries []IndexEntry, artifacts map[string][]byte) string {
	t.Helper()

	for name, data := range artifacts {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
			t.Fatalf("write artifact %s: %v", name, err)
		}
	}

	indexPath := filepath.Join(dir, "index.json")
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal index: %v", err)
	}
	if err := os.WriteFile(indexPath, data, 0600); err != nil {
		t.Fatalf("write index: %v", err)
	}
	return indexPath
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPreprocessorLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	indexPath := writeCorpus(t, dir,
		[]IndexEntry{
			{URL: "https://www.example.com/", Timestamp: "2024-01-15T10:00:00Z", CMS: "WordPress", Confidence: 0.6, FilePath: "site1.json"},
			{URL: "http://example.com", Timestamp: "2024-01-16T10:00:00Z", CMS: "WordPress", Confidence: 0.9, FilePath: "site2.json"},
			{URL: "https://other.example.org/", Timestamp: "2024-01-17T10:00:00Z", CMS: "Drupal", Confidence: 0.8, FilePath: "site3.json"},
		},
		map[string][]byte{
			"site1.json": testArtifact(t, map[string]string{"x-powered-by": "PHP/8.1"}),
			"site2.json": testArtifact(t, map[string]string{"x-powered-by": "PHP/8.2"}),
			"site3.json": testArtifact(t, nil),
		},
	)

	pre := New(indexPath, WithLogger(quietLogger()), WithWorkers(2))
	corpus, err := pre.Load(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	// Both example.com entries normalize to the same key; the
	// higher-confidence record wins.
	if corpus.TotalSites != 2 {
		t.Fatalf("TotalSites = %d, want 2", corpus.TotalSites)
	}
	site, ok := corpus.Sites["example.com/"]
	if !ok {
		t.Fatalf("corpus missing example.com/: %v", corpus.Sites)
	}
	if site.Confidence != 0.9 {
		t.Errorf("dedup kept confidence %v, want 0.9", site.Confidence)
	}
	if site.URL != "http://example.com" {
		t.Errorf("dedup kept URL %q, want the higher-confidence entry", site.URL)
	}
	if corpus.Metadata.Version != CorpusVersion {
		t.Errorf("Metadata.Version = %q, want %q", corpus.Metadata.Version, CorpusVersion)
	}
}

func TestPreprocessorCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	indexPath := writeCorpus(t, dir,
		[]IndexEntry{
			{URL: "https://example.com/", Timestamp: "2024-01-15T10:00:00Z", CMS: "WordPress", Confidence: 0.9, FilePath: "site1.json"},
		},
		map[string][]byte{"site1.json": testArtifact(t, nil)},
	)

	pre := New(indexPath, WithLogger(quietLogger()))
	ctx := context.Background()

	first, err := pre.Load(ctx, Query{})
	if err != nil {
		t.Fatalf("first Load() error: %v", err)
	}
	second, err := pre.Load(ctx, Query{})
	if err != nil {
		t.Fatalf("second Load() error: %v", err)
	}
	if first != second {
		t.Error("second Load() rebuilt the corpus, want cached instance")
	}

	stats := pre.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, 1 entry", stats)
	}

	// Force reload bypasses the cache but refreshes the entry. It counts
	// as a reload, not a miss: no lookup happened.
	third, err := pre.Load(ctx, Query{ForceReload: true})
	if err != nil {
		t.Fatalf("force-reload Load() error: %v", err)
	}
	if third == second {
		t.Error("force-reload returned the cached instance, want a rebuild")
	}
	if stats := pre.Stats(); stats.Misses != 1 || stats.Reloads != 1 {
		t.Errorf("Stats() after force reload = %+v, want 1 miss and 1 reload", stats)
	}

	pre.ClearCache()
	if stats := pre.Stats(); stats.Entries != 0 {
		t.Errorf("Stats().Entries = %d after ClearCache, want 0", stats.Entries)
	}
}

func TestPreprocessorDateFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	indexPath := writeCorpus(t, dir,
		[]IndexEntry{
			{URL: "https://recent.example.com/", Timestamp: "2024-03-10T00:00:00Z", CMS: "WordPress", Confidence: 0.9, FilePath: "recent.json"},
			{URL: "https://stale.example.com/", Timestamp: "2023-06-01T00:00:00Z", CMS: "Drupal", Confidence: 0.9, FilePath: "stale.json"},
			{URL: "https://undated.example.com/", Timestamp: "not-a-date", CMS: "Joomla", Confidence: 0.9, FilePath: "undated.json"},
		},
		map[string][]byte{
			"recent.json":  testArtifact(t, nil),
			"stale.json":   testArtifact(t, nil),
			"undated.json": testArtifact(t, nil),
		},
	)

	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	pre := New(indexPath, WithLogger(quietLogger()), WithClock(func() time.Time { return now }))

	corpus, err := pre.Load(context.Background(), Query{Range: model.DateRange{LastDays: 30}})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if _, ok := corpus.Sites["recent.example.com/"]; !ok {
		t.Error("corpus missing recent site inside the window")
	}
	if _, ok := corpus.Sites["stale.example.com/"]; ok {
		t.Error("corpus contains stale site outside the window")
	}
	// Unparsable timestamps pass the date filter.
	if _, ok := corpus.Sites["undated.example.com/"]; !ok {
		t.Error("corpus missing site with unparsable timestamp")
	}
}

func TestPreprocessorFiltering(t *testing.T) {
	t.Parallel()

	errorPage, err := json.Marshal(map[string]any{
		"httpHeaders": map[string]any{"server": "nginx"},
		"htmlContent": "<html>" + longBody() + "</html>",
		"statusCode":  404,
	})
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}

	dir := t.TempDir()
	indexPath := writeCorpus(t, dir,
		[]IndexEntry{
			{URL: "https://ok.example.com/", CMS: "WordPress", Confidence: 0.9, FilePath: "ok.json"},
			{URL: "https://broken.example.com/", CMS: "Drupal", Confidence: 0.9, FilePath: "missing.json"},
			{URL: "https://notfound.example.com/", CMS: "Joomla", Confidence: 0.9, FilePath: "error.json"},
		},
		map[string][]byte{
			"ok.json":    testArtifact(t, nil),
			"error.json": errorPage,
		},
	)

	pre := New(indexPath, WithLogger(quietLogger()))
	corpus, err := pre.Load(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if corpus.TotalSites != 1 {
		t.Errorf("TotalSites = %d, want 1", corpus.TotalSites)
	}
	stats := corpus.FilteringStats
	if stats.FilteredCount != 2 {
		t.Errorf("FilteredCount = %d, want 2", stats.FilteredCount)
	}
	if got := stats.Reasons[model.FilterReasonUnreadable]; got != 1 {
		t.Errorf("Reasons[unreadable] = %d, want 1", got)
	}
	if got := stats.Reasons[model.FilterReasonErrorPage]; got != 1 {
		t.Errorf("Reasons[error-page] = %d, want 1", got)
	}
}

func TestPreprocessorIndexErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing index", func(t *testing.T) {
		t.Parallel()

		pre := New(filepath.Join(t.TempDir(), "nope.json"), WithLogger(quietLogger()))
		if _, err := pre.Load(context.Background(), Query{}); !errors.Is(err, ErrIndexNotFound) {
			t.Errorf("Load() error = %v, want ErrIndexNotFound", err)
		}
	})

	t.Run("malformed index", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		indexPath := filepath.Join(dir, "index.json")
		if err := os.WriteFile(indexPath, []byte("{not json"), 0600); err != nil {
			t.Fatalf("write index: %v", err)
		}

		pre := New(indexPath, WithLogger(quietLogger()))
		if _, err := pre.Load(context.Background(), Query{}); !errors.Is(err, ErrIndexMalformed) {
			t.Errorf("Load() error = %v, want ErrIndexMalformed", err)
		}
	})
}

func TestIndexEntryCapturedAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ts       string
		wantZero bool
	}{
		{name: "rfc3339", ts: "2024-01-15T10:00:00Z"},
		{name: "rfc3339 nano", ts: "2024-01-15T10:00:00.123456789Z"},
		{name: "no zone", ts: "2024-01-15T10:00:00"},
		{name: "date only", ts: "2024-01-15"},
		{name: "empty", ts: "", wantZero: true},
		{name: "garbage", ts: "yesterday", wantZero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := IndexEntry{Timestamp: tt.ts}.CapturedAt()
			if got.IsZero() != tt.wantZero {
				t.Errorf("CapturedAt(%q).IsZero() = %v, want %v", tt.ts, got.IsZero(), tt.wantZero)
			}
		})
	}
}
