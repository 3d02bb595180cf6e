package mcp

import (
	"time"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/search"
)

// BroadSearchInput defines the input schema for the broad_search tool.
type BroadSearchInput struct {
	Pattern    string   `json:"pattern" jsonschema:"case-insensitive RE2 regular expression matched against module, type, and member names and signatures"`
	MaxResults int      `json:"max_results,omitempty" jsonschema:"maximum number of hits, default and upper bound 500"`
	Exclude    []string `json:"exclude,omitempty" jsonschema:"skip modules whose name contains any of these substrings"`
}

// SearchOutput defines the output schema for broad_search and find_type_references.
type SearchOutput struct {
	Identifier string      `json:"identifier,omitempty" jsonschema:"normalized identifier for reference searches"`
	Hits       []HitOutput `json:"hits" jsonschema:"matching modules, types, and members in corpus order"`
}

// HitOutput is a single search hit.
type HitOutput struct {
	Kind         string   `json:"kind" jsonschema:"module, type, member, or typeRef"`
	Name         string   `json:"name"`
	FullName     string   `json:"full_name"`
	ModuleName   string   `json:"module_name"`
	AssemblyPath string   `json:"assembly_path"`
	Signature    string   `json:"signature,omitempty"`
	SourcePath   string   `json:"source_path,omitempty"`
	Reasons      []string `json:"reasons,omitempty" jsonschema:"why a type references the target"`
}

// IdentifierInput defines the input schema for resolve_type.
type IdentifierInput struct {
	Identifier string `json:"identifier" jsonschema:"type name or fully qualified type name, surrounding quotes are ignored"`
}

// ReferencesInput defines the input schema for find_type_references.
type ReferencesInput struct {
	Identifier string `json:"identifier" jsonschema:"type name or fully qualified type name"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of referencing types, default 500"`
}

// ResolveOutput defines the output schema for resolve_type.
type ResolveOutput struct {
	Status      string            `json:"status" jsonschema:"ok, ambiguous, not_found, or bad_request"`
	Identifier  string            `json:"identifier,omitempty"`
	Match       *CandidateOutput  `json:"match,omitempty" jsonschema:"the single match when status is ok"`
	Candidates  []CandidateOutput `json:"candidates,omitempty" jsonschema:"every match when status is ambiguous"`
	Suggestions []string          `json:"suggestions,omitempty" jsonschema:"near-miss type names when status is not_found"`
	Error       string            `json:"error,omitempty"`
}

// CandidateOutput is one resolved type.
type CandidateOutput struct {
	ModuleName   string `json:"module_name"`
	AssemblyPath string `json:"assembly_path"`
	TypeFullName string `json:"type_full_name"`
	SourcePath   string `json:"source_path,omitempty"`
}

// KeywordPathsInput defines the input schema for build_keyword_paths.
type KeywordPathsInput struct {
	Keywords []string           `json:"keywords,omitempty" jsonschema:"flat keyword list, used when tree is empty"`
	Tree     []KeywordNodeInput `json:"tree,omitempty" jsonschema:"parent-linked keyword tree"`
}

// KeywordNodeInput is one node of a keyword tree.
type KeywordNodeInput struct {
	Keyword string `json:"keyword"`
	Parent  string `json:"parent,omitempty" jsonschema:"parent keyword, empty for a root"`
	Layer   int    `json:"layer,omitempty"`
}

// KeywordPathsOutput defines the output schema for build_keyword_paths.
type KeywordPathsOutput struct {
	Paths []string `json:"paths"`
}

// CorpusStatusInput defines the input schema for corpus_status (no parameters).
type CorpusStatusInput struct{}

// CorpusStatusOutput defines the output schema for corpus_status.
type CorpusStatusOutput struct {
	Modules     int      `json:"modules"`
	Types       int      `json:"types"`
	Members     int      `json:"members"`
	Source      string   `json:"source,omitempty"`
	LoadedAt    string   `json:"loaded_at,omitempty" jsonschema:"RFC 3339 load time"`
	ModuleNames []string `json:"module_names"`
	Empty       bool     `json:"empty" jsonschema:"true when no snapshot is loaded or it was unreadable"`
}

// ToHitOutputs converts search hits to the tool output format.
func ToHitOutputs(hits []search.SearchHit) []HitOutput {
	out := make([]HitOutput, 0, len(hits))
	for _, h := range hits {
		out = append(out, HitOutput{
			Kind:         string(h.Kind),
			Name:         h.Name,
			FullName:     h.FullName,
			ModuleName:   h.ModuleName,
			AssemblyPath: h.AssemblyPath,
			Signature:    h.Signature,
			SourcePath:   h.SourcePath,
			Reasons:      h.Reasons,
		})
	}
	return out
}

// ToResolveOutput converts a resolution to the tool output format.
func ToResolveOutput(res search.Resolution) ResolveOutput {
	out := ResolveOutput{
		Status:      string(res.Status),
		Identifier:  res.Identifier,
		Suggestions: res.Suggestions,
		Error:       res.Error,
	}
	if res.Candidate != nil {
		c := toCandidateOutput(*res.Candidate)
		out.Match = &c
	}
	for _, c := range res.Candidates {
		out.Candidates = append(out.Candidates, toCandidateOutput(c))
	}
	return out
}

func toCandidateOutput(c search.Candidate) CandidateOutput {
	return CandidateOutput{
		ModuleName:   c.ModuleName,
		AssemblyPath: c.AssemblyPath,
		TypeFullName: c.TypeFullName,
		SourcePath:   c.SourcePath,
	}
}

// ToCorpusStatusOutput summarizes c.
func ToCorpusStatusOutput(c *corpus.Corpus) CorpusStatusOutput {
	stats := c.Stats()
	out := CorpusStatusOutput{
		Modules:     stats.Modules,
		Types:       stats.Types,
		Members:     stats.Members,
		Source:      stats.Source,
		ModuleNames: c.ModuleNames(),
		Empty:       c.IsEmpty(),
	}
	if out.ModuleNames == nil {
		out.ModuleNames = []string{}
	}
	if !stats.LoadedAt.IsZero() {
		out.LoadedAt = stats.LoadedAt.Format(time.RFC3339)
	}
	return out
}
