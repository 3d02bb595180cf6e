package search

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/Aman-CERP/symdex/internal/corpus"
)

const (
	// DefaultSuggestionLimit is the number of "did you mean" names
	// attached to a not_found resolution.
	DefaultSuggestionLimit = 5

	// SuggestionThreshold is the minimum Jaro-Winkler similarity between
	// the identifier and a type's short name.
	SuggestionThreshold = 0.7
)

type scored struct {
	fullName string
	score    float32
}

// Suggest returns up to limit type full names whose short name is similar
// to identifier, best first. Ties are broken by full name.
func Suggest(c *corpus.Corpus, identifier string, limit int) []string {
	if limit <= 0 || c.IsEmpty() {
		return nil
	}

	query := strings.ToLower(shortName(identifier))
	if query == "" {
		return nil
	}

	best := make(map[string]float32)
	for _, t := range c.Types() {
		if t.FullName == "" {
			continue
		}
		name := strings.ToLower(fallback(t.Name, shortName(t.FullName)))
		score, err := edlib.StringsSimilarity(query, name, edlib.JaroWinkler)
		if err != nil || score < SuggestionThreshold {
			continue
		}
		if prev, ok := best[t.FullName]; !ok || score > prev {
			best[t.FullName] = score
		}
	}

	ranked := make([]scored, 0, len(best))
	for name, score := range best {
		ranked = append(ranked, scored{fullName: name, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].fullName < ranked[j].fullName
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.fullName
	}
	return out
}

// shortName returns the segment after the last '.', '+' or '/'.
func shortName(fullName string) string {
	if i := strings.LastIndexAny(fullName, ".+/"); i >= 0 {
		return fullName[i+1:]
	}
	return fullName
}
