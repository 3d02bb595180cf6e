// Package search implements the three query classes over a corpus:
// regex pattern search, identifier resolution, and type-reference lookup.
//
// Every query function is pure over the *corpus.Corpus it is given and
// may run concurrently with any other query.
package search

import "encoding/json"

// Result caps shared by pattern and reference search.
const (
	// MaxResultsLimit is the upper bound and the default for maxResults.
	MaxResultsLimit = 500

	// ReasonLimit bounds the reasons recorded for one referencing type.
	ReasonLimit = 10
)

// HitKind classifies a search hit.
type HitKind string

const (
	HitModule  HitKind = "module"
	HitType    HitKind = "type"
	HitMember  HitKind = "member"
	HitTypeRef HitKind = "typeRef"
)

// SearchHit is one match from BroadSearch or FindTypeReferences.
type SearchHit struct {
	Kind         HitKind  `json:"kind"`
	Name         string   `json:"name"`
	FullName     string   `json:"fullName"`
	ModuleName   string   `json:"moduleName"`
	AssemblyPath string   `json:"assemblyPath"`
	Signature    string   `json:"signature"`
	SourcePath   string   `json:"sourcePath,omitempty"`
	Reasons      []string `json:"reasons,omitempty"`
}

// MarshalJSON keeps sourcePath on typeRef hits even when it is empty.
// Other kinds omit it.
func (h SearchHit) MarshalJSON() ([]byte, error) {
	type hit SearchHit
	if h.Kind != HitTypeRef {
		return json.Marshal(hit(h))
	}
	return json.Marshal(struct {
		hit
		SourcePath string `json:"sourcePath"`
	}{hit(h), h.SourcePath})
}

// ClampMaxResults maps a requested cap onto [1, MaxResultsLimit].
// Zero and negative values select the default.
func ClampMaxResults(n int) int {
	if n <= 0 || n > MaxResultsLimit {
		return MaxResultsLimit
	}
	return n
}

func fallback(primary, secondary string) string {
	if primary != "" {
		return primary
	}
	return secondary
}
