package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/symdex/internal/errors"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", `  {"a":1}  `, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```\n", `{"a":1}`},
		{"unterminated", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestParseSuggestion_Tree(t *testing.T) {
	raw := "```json\n" + `{
		"assistant_message": "Looking at the player stats.",
		"search_keywords": ["Player", " ", 3, "Health"],
		"excluded_modules": ["System", "", null],
		"keywords": [
			{"keyword": "Player", "parent": null, "layer": 0},
			{"keyword": "PlayerHealth", "parent": "Player", "layer": 1},
			"junk"
		]
	}` + "\n```"

	s, err := ParseSuggestion(raw)
	require.NoError(t, err)

	assert.Equal(t, "Looking at the player stats.", s.AssistantMessage)
	assert.Equal(t, []string{"Player", "Health"}, s.SearchKeywords)
	assert.Equal(t, []string{"System"}, s.ExcludedModules)
	assert.Len(t, s.Keywords, 2)
	assert.Equal(t, []string{"Player Health"}, s.Phrases)
}

func TestParseSuggestion_FlatFallback(t *testing.T) {
	s, err := ParseSuggestion(`{"search_keywords": ["health", "Player"], "keywords": "oops"}`)
	require.NoError(t, err)

	assert.Empty(t, s.AssistantMessage)
	assert.Empty(t, s.ExcludedModules)
	assert.Equal(t, []string{"Player", "Player health"}, s.Phrases)
}

func TestParseSuggestion_NotJSON(t *testing.T) {
	_, err := ParseSuggestion("sorry, I cannot help with that")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestFallbackKeywords(t *testing.T) {
	got := FallbackKeywords(`Where is "Player.Health" set? (player, health) Player.Health again`)
	assert.Equal(t, []string{"where", "is", "player.health", "set?", "player", "health", "again"}, got)

	many := FallbackKeywords("a b c d e f g h i j")
	assert.Len(t, many, MaxFallbackKeywords)
	assert.Equal(t, "h", many[7])

	assert.Empty(t, FallbackKeywords("  ... ,, "))
}

func TestInterpret(t *testing.T) {
	// Given: a usable reply
	s := Interpret(`{"assistant_message":"ok","search_keywords":["Player","Health"]}`, "ignored")
	assert.Equal(t, "ok", s.AssistantMessage)
	assert.Equal(t, []string{"Player", "Player Health"}, s.Phrases)

	// Given: a reply that is not JSON
	s = Interpret("sorry, I cannot help", "Where is the Player health?")
	assert.Equal(t, FallbackMessage, s.AssistantMessage)
	assert.Equal(t, []string{"where", "is", "the", "player", "health?"}, s.SearchKeywords)
	assert.Empty(t, s.ExcludedModules)

	// Given: no reply at all
	s = Interpret("", "player")
	assert.Equal(t, []string{"player"}, s.Phrases)
}
