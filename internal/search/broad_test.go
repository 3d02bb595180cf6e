package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/errors"
)

func kinds(hits []SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = fmt.Sprintf("%s:%s", h.Kind, h.Name)
	}
	return out
}

func TestClampMaxResults(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 500}, {-3, 500}, {1, 1}, {42, 42}, {500, 500}, {501, 500}, {10000, 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampMaxResults(tt.in), "input %d", tt.in)
	}
}

func TestBroadSearch_ScanOrder(t *testing.T) {
	hits, err := BroadSearch(gameCorpus(), "player", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"type:Player",
		"member:health",
		"member:Attack",
		"member:Heal",
		"member:Level",
		"member:Spotted",
		"member:target",
	}, kinds(hits))
}

func TestBroadSearch_CaseInsensitive(t *testing.T) {
	lower, err := BroadSearch(gameCorpus(), "game\\.ui", 0)
	require.NoError(t, err)
	upper, err := BroadSearch(gameCorpus(), "GAME\\.UI", 0)
	require.NoError(t, err)

	assert.Equal(t, lower, upper)
	require.NotEmpty(t, lower)
	assert.Equal(t, HitModule, lower[0].Kind)
}

func TestBroadSearch_ModuleHitFields(t *testing.T) {
	hits, err := BroadSearch(gameCorpus(), "Version=1", 0)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, SearchHit{
		Kind:         HitModule,
		Name:         "Game.Core",
		FullName:     "Game.Core, Version=1.0.0.0",
		ModuleName:   "Game.Core",
		AssemblyPath: "/bin/Game.Core.dll",
	}, hits[0])
}

func TestBroadSearch_MemberMatchesSignature(t *testing.T) {
	hits, err := BroadSearch(gameCorpus(), `Heal\(int\)`, 0)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, HitMember, hits[0].Kind)
	assert.Equal(t, "void Heal(int)", hits[0].Signature)
	assert.Equal(t, "Game.Core.Player.Heal", hits[0].FullName)
}

func TestBroadSearch_FullNameFallsBackToName(t *testing.T) {
	c := corpus.New([]*corpus.Module{{Name: "M", Types: []*corpus.Type{{Name: "Orphan"}}}})

	hits, err := BroadSearch(c, "orphan", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Orphan", hits[0].FullName)
}

func TestBroadSearch_CapIsPrefix(t *testing.T) {
	c := gameCorpus()
	all, err := BroadSearch(c, "game", 0)
	require.NoError(t, err)
	require.Greater(t, len(all), 5)

	for k := 1; k <= len(all)+3; k++ {
		got, err := BroadSearch(c, "game", k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), k)
		assert.Equal(t, all[:min(k, len(all))], got, "cap %d", k)
	}
}

func TestBroadSearch_StopsMidMember(t *testing.T) {
	hits, err := BroadSearch(gameCorpus(), "player", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"type:Player", "member:health", "member:Attack"}, kinds(hits))
}

func TestBroadSearch_InvalidPattern(t *testing.T) {
	_, err := BroadSearch(gameCorpus(), "(unclosed", 10)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidPattern, errors.GetCode(err))
	assert.Contains(t, err.Error(), "invalid regex: ")
	assert.Contains(t, err.Error(), "missing closing )")
}

func TestCompilePattern_ErrorQuotesCallerPattern(t *testing.T) {
	_, err := CompilePattern("(")

	require.Error(t, err)
	var se *errors.SymdexError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "invalid regex: error parsing regexp: missing closing ): `(`", se.Message)
	assert.NotContains(t, err.Error(), "(?i)")

	_, err = CompilePattern("a[")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "(?i)")
}

func TestBroadSearch_EmptyCorpus(t *testing.T) {
	c, _ := corpus.Load([]byte(`{"unexpected": true}`))

	hits, err := BroadSearch(c, "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = BroadSearch(nil, "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBroadSearch_EmptyOptionalFieldsDoNotMatch(t *testing.T) {
	hits, err := BroadSearch(gameCorpus(), "^$", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestScan_ExcludeModules(t *testing.T) {
	re, err := CompilePattern("game")
	require.NoError(t, err)

	hits := Scan(gameCorpus(), re, BroadSearchOptions{ExcludeModules: []string{" core ", ""}})

	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Equal(t, "Game.UI", h.ModuleName)
	}
}

func TestBroadSearch_Deterministic(t *testing.T) {
	c := gameCorpus()
	first, err := BroadSearch(c, "a", 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := BroadSearch(c, "a", 0)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
