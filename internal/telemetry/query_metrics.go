// Package telemetry records local query metrics for a running server.
// Nothing is reported externally; metrics live in memory and can be
// flushed to a SQLite file.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP1    LatencyBucket = "p1"    // <1ms
	BucketP10   LatencyBucket = "p10"   // 1-10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP1000 LatencyBucket = "p1000" // >=100ms
)

// LatencyToBucket converts a duration to its histogram bucket. Queries are
// in-memory scans, so the buckets are finer than for network services.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Millisecond:
		return BucketP1
	case d < 10*time.Millisecond:
		return BucketP10
	case d < 50*time.Millisecond:
		return BucketP50
	case d < 100*time.Millisecond:
		return BucketP100
	default:
		return BucketP1000
	}
}

// =============================================================================
// Query Event
// =============================================================================

// QueryEvent is one completed query.
type QueryEvent struct {
	// Operation is "broad", "resolve", or "references".
	Operation   string
	Query       string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult returns true if the query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// ZeroResultQuery is a query that found nothing.
type ZeroResultQuery struct {
	Operation string    `json:"operation"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int
	size  int
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{items: make([]T, capacity)}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, 0, b.size)
	start := (b.head - b.size + len(b.items)) % len(b.items)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(start+i)%len(b.items)])
	}
	return out
}

// Size returns the number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// =============================================================================
// Term Extraction
// =============================================================================

// ExtractTerms splits a query or regex pattern into lowercase identifier
// words of at least three characters. "Player.*Health" gives
// ["player", "health"].
func ExtractTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	var terms []string
	for _, w := range words {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// =============================================================================
// Snapshot
// =============================================================================

// QueryMetricsSnapshot is a point-in-time copy of the metrics.
type QueryMetricsSnapshot struct {
	OperationCounts     map[string]int64        `json:"operation_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []ZeroResultQuery       `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// =============================================================================
// Store
// =============================================================================

// QueryMetricsStore persists flushed metrics.
type QueryMetricsStore interface {
	// AddOperationCounts adds per-operation counts to a day's totals.
	AddOperationCounts(date string, counts map[string]int64) error

	// GetOperationCounts sums per-operation counts over [from, to].
	GetOperationCounts(from, to string) (map[string]int64, error)

	// UpsertTermCounts adds term frequencies.
	UpsertTermCounts(terms map[string]int64) error

	// GetTopTerms returns the most frequent terms.
	GetTopTerms(limit int) ([]TermCount, error)

	// AddZeroResultQueries appends zero-result queries.
	AddZeroResultQueries(queries []ZeroResultQuery) error

	// GetZeroResultQueries returns the most recent zero-result queries.
	GetZeroResultQueries(limit int) ([]ZeroResultQuery, error)

	// AddLatencyCounts adds histogram counts to a day's totals.
	AddLatencyCounts(date string, counts map[LatencyBucket]int64) error

	// GetLatencyCounts sums histogram counts over [from, to].
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)

	Close() error
}

// =============================================================================
// Query Metrics
// =============================================================================

// QueryMetricsConfig configures the collector.
type QueryMetricsConfig struct {
	TopTermsCapacity      int           // Max terms tracked (default: 100)
	ZeroResultsCapacity   int           // Max zero-result queries kept (default: 100)
	RecentQueriesCapacity int           // Window for repeat detection (default: 500)
	FlushInterval         time.Duration // Auto-flush period (default: 60s, 0 = none)
}

// DefaultQueryMetricsConfig returns the default configuration.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
		FlushInterval:         60 * time.Second,
	}
}

// QueryMetrics aggregates query events. It is safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	operations      map[string]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[ZeroResultQuery]
	latencies       map[LatencyBucket]int64
	recentQueries   *lru.Cache[string, struct{}]
	totalQueries    int64
	zeroResultCount int64
	exactRepeats    int64
	startTime       time.Time

	// Deltas since the last flush.
	pendingOps     map[string]int64
	pendingTerms   map[string]int64
	pendingLatency map[LatencyBucket]int64
	pendingZero    []ZeroResultQuery

	store  QueryMetricsStore
	stopCh chan struct{}
	done   chan struct{}
	closed bool
}

// NewQueryMetrics creates a collector with the default configuration.
// A nil store keeps metrics in memory only.
func NewQueryMetrics(store QueryMetricsStore) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a collector with cfg.
func NewQueryMetricsWithConfig(store QueryMetricsStore, cfg QueryMetricsConfig) *QueryMetrics {
	defaults := DefaultQueryMetricsConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = defaults.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = defaults.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = defaults.RecentQueriesCapacity
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	m := &QueryMetrics{
		operations:     make(map[string]int64),
		topTerms:       topTerms,
		zeroResults:    NewCircularBuffer[ZeroResultQuery](cfg.ZeroResultsCapacity),
		latencies:      make(map[LatencyBucket]int64),
		recentQueries:  recent,
		startTime:      time.Now(),
		pendingOps:     make(map[string]int64),
		pendingTerms:   make(map[string]int64),
		pendingLatency: make(map[LatencyBucket]int64),
		store:          store,
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.stopCh = make(chan struct{})
		m.done = make(chan struct{})
		go m.flushLoop(cfg.FlushInterval)
	}
	return m
}

func (m *QueryMetrics) flushLoop(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record adds one event.
func (m *QueryMetrics) Record(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.totalQueries++
	m.operations[event.Operation]++
	m.pendingOps[event.Operation]++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
		m.pendingTerms[term]++
	}

	if event.IsZeroResult() {
		zr := ZeroResultQuery{Operation: event.Operation, Query: event.Query, Timestamp: event.Timestamp}
		m.zeroResults.Add(zr)
		m.pendingZero = append(m.pendingZero, zr)
		m.zeroResultCount++
	}

	bucket := LatencyToBucket(event.Latency)
	m.latencies[bucket]++
	m.pendingLatency[bucket]++

	key := hashQuery(event.Operation, event.Query)
	if _, seen := m.recentQueries.Get(key); seen {
		m.exactRepeats++
	}
	m.recentQueries.Add(key, struct{}{})
}

// RecordQuery adapts Record to the search.Recorder interface.
func (m *QueryMetrics) RecordQuery(op, query string, results int, latency time.Duration) {
	m.Record(QueryEvent{Operation: op, Query: query, ResultCount: results, Latency: latency})
}

func hashQuery(op, query string) string {
	sum := sha256.Sum256([]byte(op + "\x00" + strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:16])
}

// Snapshot returns a copy of the current metrics. Top terms are sorted by
// count descending, then term.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make(map[string]int64, len(m.operations))
	for k, v := range m.operations {
		ops[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	terms := make([]TermCount, 0, m.topTerms.Len())
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			terms = append(terms, TermCount{Term: key, Count: count})
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})

	return &QueryMetricsSnapshot{
		OperationCounts:     ops,
		TopTerms:            terms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		ExactRepeatCount:    m.exactRepeats,
		Since:               m.startTime,
	}
}

// Flush writes the changes since the previous flush to the store. It is a
// no-op without a store. On failure the pending changes are kept so the
// next flush retries them.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	ops, terms, latency, zero := m.pendingOps, m.pendingTerms, m.pendingLatency, m.pendingZero
	m.pendingOps = make(map[string]int64)
	m.pendingTerms = make(map[string]int64)
	m.pendingLatency = make(map[LatencyBucket]int64)
	m.pendingZero = nil
	m.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	err := m.store.AddOperationCounts(today, ops)
	if err == nil {
		err = m.store.UpsertTermCounts(terms)
	}
	if err == nil {
		err = m.store.AddLatencyCounts(today, latency)
	}
	if err == nil {
		err = m.store.AddZeroResultQueries(zero)
	}
	if err != nil {
		m.restorePending(ops, terms, latency, zero)
	}
	return err
}

func (m *QueryMetrics) restorePending(ops, terms map[string]int64, latency map[LatencyBucket]int64, zero []ZeroResultQuery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range ops {
		m.pendingOps[k] += v
	}
	for k, v := range terms {
		m.pendingTerms[k] += v
	}
	for k, v := range latency {
		m.pendingLatency[k] += v
	}
	m.pendingZero = append(zero, m.pendingZero...)
}

// Close stops auto-flush, flushes once more, and closes the store.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.stopCh != nil {
		close(m.stopCh)
		<-m.done
	}

	err := m.Flush()
	if m.store != nil {
		if cerr := m.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
