package search

import (
	"regexp"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/symdex/internal/corpus"
)

// DefaultPatternCacheSize is the number of compiled patterns kept by a Searcher.
const DefaultPatternCacheSize = 128

// Operation names reported to a Recorder.
const (
	OpBroad      = "broad"
	OpResolve    = "resolve"
	OpReferences = "references"
)

// Recorder receives one event per completed query.
type Recorder interface {
	RecordQuery(op, query string, results int, latency time.Duration)
}

// Searcher runs queries against whatever corpus its holder currently
// holds. Each call loads the corpus pointer once, so a concurrent swap is
// seen either entirely or not at all.
type Searcher struct {
	holder   *corpus.Holder
	patterns *lru.Cache[string, *regexp.Regexp]
	recorder Recorder
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithPatternCacheSize overrides the compiled-pattern cache size.
func WithPatternCacheSize(size int) SearcherOption {
	return func(s *Searcher) {
		if size <= 0 {
			return
		}
		cache, _ := lru.New[string, *regexp.Regexp](size)
		s.patterns = cache
	}
}

// WithRecorder sends per-query telemetry to r.
func WithRecorder(r Recorder) SearcherOption {
	return func(s *Searcher) {
		s.recorder = r
	}
}

// NewSearcher creates a Searcher over holder.
func NewSearcher(holder *corpus.Holder, opts ...SearcherOption) *Searcher {
	cache, _ := lru.New[string, *regexp.Regexp](DefaultPatternCacheSize)
	s := &Searcher{holder: holder, patterns: cache}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Corpus returns the snapshot the next query would use.
func (s *Searcher) Corpus() *corpus.Corpus {
	return s.holder.Load()
}

// BroadSearch is the package-level BroadSearch with pattern caching and
// module exclusion.
func (s *Searcher) BroadSearch(pattern string, opts BroadSearchOptions) ([]SearchHit, error) {
	start := time.Now()
	re, err := s.compile(pattern)
	if err != nil {
		return nil, err
	}
	hits := Scan(s.holder.Load(), re, opts)
	s.record(OpBroad, pattern, len(hits), start)
	return hits, nil
}

// ResolveClear is the package-level ResolveClear over the current corpus.
func (s *Searcher) ResolveClear(identifier string) Resolution {
	start := time.Now()
	res := ResolveClear(s.holder.Load(), identifier)
	if res.Status != StatusBadRequest {
		n := len(res.Candidates)
		if res.Status == StatusOK {
			n = 1
		}
		s.record(OpResolve, res.Identifier, n, start)
	}
	return res
}

// FindTypeReferences is the package-level FindTypeReferences over the
// current corpus.
func (s *Searcher) FindTypeReferences(identifier string, maxResults int) (*ReferenceResult, error) {
	start := time.Now()
	res, err := FindTypeReferences(s.holder.Load(), identifier, maxResults)
	if err != nil {
		return nil, err
	}
	s.record(OpReferences, res.Identifier, len(res.Hits), start)
	return res, nil
}

func (s *Searcher) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := s.patterns.Get(pattern); ok {
		return re, nil
	}
	re, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	s.patterns.Add(pattern, re)
	return re, nil
}

func (s *Searcher) record(op, query string, results int, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordQuery(op, query, results, time.Since(start))
	}
}
