package search

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/errors"
)

func hitNames(hits []SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.FullName
	}
	return out
}

func TestFindTypeReferences_ExcludesTargetItself(t *testing.T) {
	res, err := FindTypeReferences(gameCorpus(), "Player", 0)
	require.NoError(t, err)

	assert.Equal(t, "Player", res.Identifier)
	assert.Equal(t, []string{"Game.Core.Enemy", "Game.UI.Hud"}, hitNames(res.Hits))

	enemy := res.Hits[0]
	assert.Equal(t, HitTypeRef, enemy.Kind)
	assert.Equal(t, []string{"event Spotted sig=Action<Game.Core.Player>"}, enemy.Reasons)
	assert.Equal(t, []string{"field target sig=Game.Core.Player"}, res.Hits[1].Reasons)
	assert.Equal(t, "/bin/Game.UI.dll", res.Hits[1].AssemblyPath)
}

func TestFindTypeReferences_BaseType(t *testing.T) {
	res, err := FindTypeReferences(gameCorpus(), "Game.Core.Entity", 0)
	require.NoError(t, err)

	require.Len(t, res.Hits, 2)
	assert.Equal(t, "Game.Core.Player", res.Hits[0].FullName)
	assert.Equal(t, "src/Player.cs", res.Hits[0].SourcePath)
	assert.Equal(t, []string{"baseType=Game.Core.Entity"}, res.Hits[0].Reasons)
	assert.Equal(t, "Game.Core.Enemy", res.Hits[1].FullName)
}

func TestFindTypeReferences_MaxResults(t *testing.T) {
	res, err := FindTypeReferences(gameCorpus(), "entity", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Game.Core.Player"}, hitNames(res.Hits))
}

func TestFindTypeReferences_RawIdentifierParticipates(t *testing.T) {
	// No type is named "Action<" yet the token still drives the scan.
	res, err := FindTypeReferences(gameCorpus(), "Action<", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Game.Core.Enemy"}, hitNames(res.Hits))
}

func TestFindTypeReferences_FullNameReason(t *testing.T) {
	c := corpus.New([]*corpus.Module{{
		Name: "M",
		Types: []*corpus.Type{
			{Name: "Widget", FullName: "N.Widget"},
			{
				Name:     "Factory",
				FullName: "N.Factory",
				Methods:  []*corpus.Member{member(corpus.KindMethod, "MakeWidget", "N.Factory.MakeWidget", "")},
			},
		},
	}})

	res, err := FindTypeReferences(c, "widget", 0)
	require.NoError(t, err)

	require.Len(t, res.Hits, 1)
	assert.Equal(t, []string{"method MakeWidget fullName=N.Factory.MakeWidget"}, res.Hits[0].Reasons)
}

func TestFindTypeReferences_ReasonCap(t *testing.T) {
	var methods []*corpus.Member
	for i := 0; i < 15; i++ {
		name := fmt.Sprintf("Use%d", i)
		methods = append(methods, member(corpus.KindMethod, name, "N.User."+name, "void "+name+"(N.Target)"))
	}
	c := corpus.New([]*corpus.Module{{
		Name: "M",
		Types: []*corpus.Type{
			{Name: "Target", FullName: "N.Target"},
			{Name: "User", FullName: "N.User", BaseType: "N.Target", Methods: methods},
		},
	}})

	res, err := FindTypeReferences(c, "Target", 0)
	require.NoError(t, err)

	require.Len(t, res.Hits, 1)
	reasons := res.Hits[0].Reasons
	assert.Len(t, reasons, ReasonLimit)
	assert.Equal(t, "baseType=N.Target", reasons[0])
	assert.Equal(t, "method Use8 sig=void Use8(N.Target)", reasons[ReasonLimit-1])
}

func TestFindTypeReferences_EmptyIdentifier(t *testing.T) {
	_, err := FindTypeReferences(gameCorpus(), "   ", 10)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestFindTypeReferences_NoHitsIsEmptySlice(t *testing.T) {
	res, err := FindTypeReferences(corpus.Empty(), "Nothing", 10)
	require.NoError(t, err)
	assert.NotNil(t, res.Hits)
	assert.Empty(t, res.Hits)
}

func TestTokenSet(t *testing.T) {
	found := targets{
		names:   []string{"Player", "player"},
		ordered: []string{"Game.Core.Player"},
	}
	assert.Equal(t, []string{"player", "game.core.player"}, tokenSet("PLAYER", found))
}

func TestSearchHit_JSONSourcePath(t *testing.T) {
	res, err := FindTypeReferences(gameCorpus(), "Player", 0)
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)

	data, err := json.Marshal(res.Hits[1])
	require.NoError(t, err)
	var hud map[string]any
	require.NoError(t, json.Unmarshal(data, &hud))
	assert.Equal(t, "Game.UI.Hud", hud["fullName"])
	assert.Contains(t, hud, "sourcePath")
	assert.Equal(t, "", hud["sourcePath"])

	data, err = json.Marshal(SearchHit{Kind: HitType, Name: "Player"})
	require.NoError(t, err)
	var plain map[string]any
	require.NoError(t, json.Unmarshal(data, &plain))
	assert.NotContains(t, plain, "sourcePath")

	var back SearchHit
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, SearchHit{Kind: HitType, Name: "Player"}, back)
}
