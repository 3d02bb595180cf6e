package keywords

import (
	"encoding/json"
	"strings"

	"github.com/Aman-CERP/symdex/internal/errors"
)

// MaxFallbackKeywords bounds the output of FallbackKeywords.
const MaxFallbackKeywords = 8

// Suggestion is a structured keyword reply from an LLM.
type Suggestion struct {
	AssistantMessage string        `json:"assistant_message"`
	SearchKeywords   []string      `json:"search_keywords"`
	ExcludedModules  []string      `json:"excluded_modules"`
	Keywords         []KeywordNode `json:"keywords"`

	// Phrases is BuildPaths(Keywords, SearchKeywords).
	Phrases []string `json:"phrases"`
}

// ParseSuggestion decodes an LLM reply. A surrounding markdown code fence
// is removed first. List entries that are not non-empty strings are
// dropped, and Phrases is filled in.
func ParseSuggestion(raw string) (*Suggestion, error) {
	body := StripCodeFence(raw)

	var doc struct {
		AssistantMessage json.RawMessage `json:"assistant_message"`
		SearchKeywords   json.RawMessage `json:"search_keywords"`
		ExcludedModules  json.RawMessage `json:"excluded_modules"`
		Keywords         json.RawMessage `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "suggestion is not a JSON object", err)
	}

	s := &Suggestion{
		SearchKeywords:  stringList(doc.SearchKeywords),
		ExcludedModules: stringList(doc.ExcludedModules),
		Keywords:        nodeList(doc.Keywords),
	}
	_ = json.Unmarshal(doc.AssistantMessage, &s.AssistantMessage)
	s.Phrases = BuildPaths(s.Keywords, s.SearchKeywords)
	return s, nil
}

// FallbackMessage is the assistant message of a suggestion built by
// Interpret when the reply could not be used.
const FallbackMessage = "Using a local keyword heuristic because no structured suggestion was available."

// Interpret returns the parsed reply, or, when the reply is empty or not a
// JSON object, a suggestion whose search keywords are FallbackKeywords of
// question.
func Interpret(reply, question string) *Suggestion {
	if strings.TrimSpace(reply) != "" {
		if s, err := ParseSuggestion(reply); err == nil {
			return s
		}
	}
	kws := FallbackKeywords(question)
	return &Suggestion{
		AssistantMessage: FallbackMessage,
		SearchKeywords:   kws,
		ExcludedModules:  []string{},
		Phrases:          BuildFlatPaths(kws),
	}
}

// StripCodeFence removes a leading ``` line and the last ``` of text.
// Text without a leading fence is only trimmed.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// FallbackKeywords extracts up to MaxFallbackKeywords lowercase tokens from
// free text, for use when no structured suggestion is available.
func FallbackKeywords(text string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, field := range strings.Fields(text) {
		tok := strings.ToLower(strings.Trim(field, `.,;:()[]{}<>"'`))
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) == MaxFallbackKeywords {
			break
		}
	}
	return out
}

func stringList(raw json.RawMessage) []string {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nodeList(raw json.RawMessage) []KeywordNode {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]KeywordNode, 0, len(items))
	for _, item := range items {
		var n KeywordNode
		if json.Unmarshal(item, &n) != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
