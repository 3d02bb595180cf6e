package search

import (
	"strings"

	"github.com/Aman-CERP/symdex/internal/corpus"
)

// Status discriminates the outcome of ResolveClear.
type Status string

const (
	StatusOK         Status = "ok"
	StatusAmbiguous  Status = "ambiguous"
	StatusNotFound   Status = "not_found"
	StatusBadRequest Status = "bad_request"
)

// Candidate is one type matched by ResolveClear.
type Candidate struct {
	ModuleName   string `json:"moduleName"`
	AssemblyPath string `json:"assemblyPath"`
	TypeFullName string `json:"typeFullName"`
	SourcePath   string `json:"sourcePath"`
}

// Resolution is the result of ResolveClear. For StatusOK the single match
// is flattened into the top level; for StatusAmbiguous every match is in
// Candidates.
type Resolution struct {
	Status     Status `json:"status"`
	Identifier string `json:"identifier,omitempty"`
	*Candidate
	Candidates  []Candidate `json:"candidates,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// NormalizeIdentifier trims surrounding whitespace and then one leading and
// one trailing double quote.
func NormalizeIdentifier(identifier string) string {
	s := strings.TrimSpace(identifier)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return s
}

// ResolveClear resolves identifier to a type full name.
//
// Exact matches (ordinary string equality on the full name) take
// precedence: if any exist, partial matches are ignored. Otherwise types
// whose full name contains the identifier case-insensitively are used.
// One match is StatusOK, several are StatusAmbiguous.
func ResolveClear(c *corpus.Corpus, identifier string) Resolution {
	ident := NormalizeIdentifier(identifier)
	if ident == "" {
		return Resolution{Status: StatusBadRequest, Error: "empty identifier"}
	}

	lowered := strings.ToLower(ident)
	var exact, partial []Candidate

	for mod, t := range c.Types() {
		switch {
		case t.FullName == ident:
			exact = append(exact, candidateFor(mod, t))
		case t.FullName != "" && strings.Contains(strings.ToLower(t.FullName), lowered):
			partial = append(partial, candidateFor(mod, t))
		}
	}

	matches := exact
	if len(matches) == 0 {
		matches = partial
	}

	switch len(matches) {
	case 0:
		return Resolution{
			Status:      StatusNotFound,
			Identifier:  ident,
			Suggestions: Suggest(c, ident, DefaultSuggestionLimit),
		}
	case 1:
		m := matches[0]
		return Resolution{Status: StatusOK, Identifier: ident, Candidate: &m}
	default:
		return Resolution{Status: StatusAmbiguous, Identifier: ident, Candidates: matches}
	}
}

func candidateFor(mod *corpus.Module, t *corpus.Type) Candidate {
	return Candidate{
		ModuleName:   mod.Name,
		AssemblyPath: mod.AssemblyPath,
		TypeFullName: t.FullName,
		SourcePath:   t.SourcePath,
	}
}
