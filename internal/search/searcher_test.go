package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/errors"
)

type recordedQuery struct {
	op      string
	query   string
	results int
}

type fakeRecorder struct {
	mu      sync.Mutex
	queries []recordedQuery
}

func (f *fakeRecorder) RecordQuery(op, query string, results int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, recordedQuery{op, query, results})
}

func TestSearcher_CachesCompiledPatterns(t *testing.T) {
	s := NewSearcher(corpus.NewHolder(gameCorpus()), WithPatternCacheSize(4))

	_, err := s.BroadSearch("player", BroadSearchOptions{})
	require.NoError(t, err)
	first, ok := s.patterns.Get("player")
	require.True(t, ok)

	_, err = s.BroadSearch("player", BroadSearchOptions{})
	require.NoError(t, err)
	second, _ := s.patterns.Get("player")
	assert.Same(t, first, second)
}

func TestSearcher_InvalidPatternNotCached(t *testing.T) {
	s := NewSearcher(corpus.NewHolder(gameCorpus()))

	_, err := s.BroadSearch("[", BroadSearchOptions{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidPattern, errors.GetCode(err))
	assert.Equal(t, 0, s.patterns.Len())
}

func TestSearcher_SeesSwappedCorpus(t *testing.T) {
	holder := corpus.NewHolder(corpus.Empty())
	s := NewSearcher(holder)

	hits, err := s.BroadSearch("player", BroadSearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	holder.Swap(gameCorpus())

	hits, err = s.BroadSearch("player", BroadSearchOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
	assert.Equal(t, 4, s.Corpus().Stats().Types)
}

func TestSearcher_RecordsQueries(t *testing.T) {
	rec := &fakeRecorder{}
	s := NewSearcher(corpus.NewHolder(gameCorpus()), WithRecorder(rec))

	_, err := s.BroadSearch("heal", BroadSearchOptions{MaxResults: 5})
	require.NoError(t, err)
	s.ResolveClear("Game.UI.Hud")
	s.ResolveClear("")
	_, err = s.FindTypeReferences("Player", 0)
	require.NoError(t, err)

	assert.Equal(t, []recordedQuery{
		{OpBroad, "heal", 2},
		{OpResolve, "Game.UI.Hud", 1},
		{OpReferences, "Player", 2},
	}, rec.queries)
}
