// Package keywords turns keyword suggestions into search phrases.
//
// Suggestions arrive either as a flat list ("Player", "Health") or as a
// parent/child tree. Both forms are flattened into space-joined phrases
// that can be fed back into pattern search.
package keywords

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// KeywordNode is one node of a keyword tree. A nil or empty Parent marks a
// root. Layer is carried through but not used.
type KeywordNode struct {
	Keyword string  `json:"keyword"`
	Parent  *string `json:"parent"`
	Layer   int     `json:"layer,omitempty"`
}

// UnmarshalJSON decodes a node permissively: a non-string keyword becomes
// empty and a non-string parent becomes nil.
func (n *KeywordNode) UnmarshalJSON(data []byte) error {
	var raw struct {
		Keyword json.RawMessage `json:"keyword"`
		Parent  json.RawMessage `json:"parent"`
		Layer   json.RawMessage `json:"layer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = KeywordNode{}
	_ = json.Unmarshal(raw.Keyword, &n.Keyword)

	var parent string
	if json.Unmarshal(raw.Parent, &parent) == nil && len(raw.Parent) > 0 && raw.Parent[0] == '"' {
		n.Parent = &parent
	}

	var layer float64
	if json.Unmarshal(raw.Layer, &layer) == nil {
		n.Layer = int(layer)
	}
	return nil
}

// Node is a convenience constructor. An empty parent makes a root.
func Node(keyword, parent string) KeywordNode {
	if parent == "" {
		return KeywordNode{Keyword: keyword}
	}
	return KeywordNode{Keyword: keyword, Parent: &parent}
}

func (n KeywordNode) parent() string {
	if n.Parent == nil {
		return ""
	}
	return *n.Parent
}

// BuildFlatPaths builds phrases from a flat keyword list.
//
// A list that already contains a phrase (any keyword with a space) is
// returned unchanged. Otherwise the root is the first keyword starting with
// an upper-case letter, or the first keyword; the result is the root on its
// own followed by "<root> <keyword>" for every other keyword.
func BuildFlatPaths(keywords []string) []string {
	if len(keywords) == 0 {
		return []string{}
	}

	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			return keywords
		}
	}

	root := keywords[0]
	for _, kw := range keywords {
		if r, _ := utf8.DecodeRuneInString(kw); unicode.IsUpper(r) {
			root = kw
			break
		}
	}

	paths := []string{root}
	for _, kw := range keywords {
		if kw == root {
			continue
		}
		paths = append(paths, root+" "+kw)
	}
	return paths
}

// BuildTreePaths builds one phrase per root-to-leaf path of the tree.
//
// Roots are visited in order of first appearance. Nodes with an empty
// keyword are dropped; when no node is a root, every node is treated as
// one. A child whose keyword starts with its parent's keyword
// (case-insensitive) contributes only the remainder, minus any leading
// '_', ' ' or '.', so "Attack" -> "AttackSpeed" reads "Attack Speed".
func BuildTreePaths(nodes []KeywordNode) []string {
	var valid []KeywordNode
	for _, n := range nodes {
		n.Keyword = strings.TrimSpace(n.Keyword)
		if n.Keyword != "" {
			valid = append(valid, n)
		}
	}
	if len(valid) == 0 {
		return []string{}
	}

	children := make(map[string][]string)
	parentOf := make(map[string]string)
	var roots []string
	for _, n := range valid {
		p := n.parent()
		if p == "" {
			roots = append(roots, n.Keyword)
		} else {
			children[p] = append(children[p], n.Keyword)
		}
		parentOf[n.Keyword] = p
	}
	if len(roots) == 0 {
		for _, n := range valid {
			roots = append(roots, n.Keyword)
		}
	}

	w := &treeWalker{children: children, onPath: make(map[string]bool)}
	for _, root := range roots {
		w.walk(root, parentOf[root], nil)
	}
	return w.paths
}

type treeWalker struct {
	children map[string][]string
	onPath   map[string]bool
	paths    []string
}

func (w *treeWalker) walk(keyword, parent string, acc []string) {
	acc = append(acc[:len(acc):len(acc)], displayKeyword(keyword, parent))
	w.onPath[keyword] = true
	defer delete(w.onPath, keyword)

	descended := false
	for _, child := range w.children[keyword] {
		if w.onPath[child] {
			continue
		}
		descended = true
		w.walk(child, keyword, acc)
	}
	if !descended {
		w.paths = append(w.paths, strings.Join(acc, " "))
	}
}

func displayKeyword(keyword, parent string) string {
	if parent == "" || len(keyword) < len(parent) || !strings.EqualFold(keyword[:len(parent)], parent) {
		return keyword
	}
	trimmed := strings.TrimLeft(keyword[len(parent):], "_ .")
	if trimmed == "" {
		return keyword
	}
	return trimmed
}

// BuildPaths prefers the tree form and falls back to the flat form when
// the tree yields no phrases.
func BuildPaths(tree []KeywordNode, flat []string) []string {
	if paths := BuildTreePaths(tree); len(paths) > 0 {
		return paths
	}
	return BuildFlatPaths(flat)
}
