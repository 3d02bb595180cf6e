package search

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/errors"
)

// ReferenceResult is the output of FindTypeReferences.
type ReferenceResult struct {
	Identifier string      `json:"identifier"`
	Hits       []SearchHit `json:"hits"`
}

// targets holds the names discovered in the first pass.
type targets struct {
	names     []string
	fullNames map[string]struct{}
	ordered   []string
}

// FindTypeReferences lists types whose base type, member signatures, or
// member full names mention the type named by identifier.
//
// The first pass discovers target types: name equal to the identifier
// (case-insensitive), full name equal to it, or full name containing it
// (case-insensitive). The identifier together with every target name and
// full name forms the token set. The second pass scans every other type
// for case-insensitive containment of any token. Types whose full name is
// exactly a target full name are never reported.
func FindTypeReferences(c *corpus.Corpus, identifier string, maxResults int) (*ReferenceResult, error) {
	ident := strings.TrimSpace(identifier)
	if ident == "" {
		return nil, errors.ValidationError("empty identifier", nil).
			WithSuggestion("pass the short or full name of a type")
	}

	limit := ClampMaxResults(maxResults)
	found := discoverTargets(c, ident)
	tokens := tokenSet(ident, found)

	result := &ReferenceResult{Identifier: ident, Hits: []SearchHit{}}
	for mod, t := range c.Types() {
		if _, self := found.fullNames[t.FullName]; self {
			continue
		}

		reasons := collectReasons(t, tokens)
		if len(reasons) == 0 {
			continue
		}

		result.Hits = append(result.Hits, SearchHit{
			Kind:         HitTypeRef,
			Name:         t.Name,
			FullName:     fallback(t.FullName, t.Name),
			ModuleName:   mod.Name,
			AssemblyPath: mod.AssemblyPath,
			SourcePath:   t.SourcePath,
			Reasons:      reasons,
		})
		if len(result.Hits) >= limit {
			break
		}
	}
	return result, nil
}

func discoverTargets(c *corpus.Corpus, ident string) targets {
	lowered := strings.ToLower(ident)
	found := targets{fullNames: make(map[string]struct{})}
	seenNames := make(map[string]struct{})

	for _, t := range c.Types() {
		isTarget := strings.EqualFold(t.Name, ident) ||
			t.FullName == ident ||
			(t.FullName != "" && strings.Contains(strings.ToLower(t.FullName), lowered))
		if !isTarget {
			continue
		}

		if t.Name != "" {
			if _, ok := seenNames[t.Name]; !ok {
				seenNames[t.Name] = struct{}{}
				found.names = append(found.names, t.Name)
			}
		}
		if t.FullName != "" {
			if _, ok := found.fullNames[t.FullName]; !ok {
				found.fullNames[t.FullName] = struct{}{}
				found.ordered = append(found.ordered, t.FullName)
			}
		}
	}
	return found
}

// tokenSet returns the lowercased, de-duplicated containment vocabulary.
// The identifier is always first.
func tokenSet(ident string, found targets) []string {
	seen := make(map[string]struct{})
	var tokens []string
	add := func(s string) {
		s = strings.ToLower(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		tokens = append(tokens, s)
	}

	add(ident)
	for _, n := range found.names {
		add(n)
	}
	for _, n := range found.ordered {
		add(n)
	}
	return tokens
}

// collectReasons records up to ReasonLimit mentions of a token in t.
func collectReasons(t *corpus.Type, tokens []string) []string {
	var reasons []string

	if containsAny(t.BaseType, tokens) {
		reasons = append(reasons, "baseType="+t.BaseType)
	}

	for m := range corpus.Members(t) {
		if len(reasons) >= ReasonLimit {
			break
		}
		switch {
		case containsAny(m.Signature, tokens):
			reasons = append(reasons, fmt.Sprintf("%s %s sig=%s", m.Kind, m.Name, m.Signature))
		case containsAny(m.FullName, tokens):
			reasons = append(reasons, fmt.Sprintf("%s %s fullName=%s", m.Kind, m.Name, m.FullName))
		}
	}
	return reasons
}

func containsAny(s string, tokens []string) bool {
	if s == "" {
		return false
	}
	lowered := strings.ToLower(s)
	for _, tok := range tokens {
		if strings.Contains(lowered, tok) {
			return true
		}
	}
	return false
}
