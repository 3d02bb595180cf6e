// Package corpus holds the in-memory snapshot of a decompiled project:
// modules, their types, and the members of each type.
//
// A Corpus is immutable once constructed. Reloading produces a new Corpus
// which replaces the old one through a Holder.
package corpus

import "time"

// MemberKind identifies the role sequence a member belongs to.
type MemberKind string

const (
	KindField    MemberKind = "field"
	KindMethod   MemberKind = "method"
	KindProperty MemberKind = "property"
	KindEvent    MemberKind = "event"
)

// Member is a field, method, property, or event of a type.
type Member struct {
	Name      string
	FullName  string
	Signature string
	Kind      MemberKind
}

// Type is a class, struct, interface, or enum declared in a module.
type Type struct {
	Name       string
	FullName   string
	Namespace  string
	BaseType   string
	SourcePath string

	Fields     []*Member
	Methods    []*Member
	Properties []*Member
	Events     []*Member
}

// MemberCount returns the number of members across all roles.
func (t *Type) MemberCount() int {
	return len(t.Fields) + len(t.Methods) + len(t.Properties) + len(t.Events)
}

// Module is one assembly or compilation unit of the project.
type Module struct {
	Name             string
	AssemblyFullName string
	// AssemblyPath is the first non-empty of the analyzer's assembly path,
	// module file path, and file name fields.
	AssemblyPath string

	Types []*Type
}

// Stats summarizes the size of a corpus.
type Stats struct {
	Modules  int       `json:"modules"`
	Types    int       `json:"types"`
	Members  int       `json:"members"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loadedAt"`
}

// Corpus is a loaded snapshot. The zero value is an empty corpus.
type Corpus struct {
	Modules []*Module

	source   string
	loadedAt time.Time
	types    int
	members  int
}

// New builds a corpus over modules. The slice is retained, not copied;
// callers must not modify it afterwards.
func New(modules []*Module) *Corpus {
	c := &Corpus{Modules: modules, loadedAt: time.Now()}
	for _, m := range modules {
		c.types += len(m.Types)
		for _, t := range m.Types {
			c.members += t.MemberCount()
		}
	}
	return c
}

// Empty returns a corpus with zero modules.
func Empty() *Corpus {
	return New(nil)
}

// WithSource records where the snapshot came from (file path or "stdin").
func (c *Corpus) WithSource(source string) *Corpus {
	c.source = source
	return c
}

// IsEmpty reports whether the corpus has no modules.
func (c *Corpus) IsEmpty() bool {
	return c == nil || len(c.Modules) == 0
}

// Stats returns module, type, and member counts.
func (c *Corpus) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Modules:  len(c.Modules),
		Types:    c.types,
		Members:  c.members,
		Source:   c.source,
		LoadedAt: c.loadedAt,
	}
}

// ModuleNames returns module names in declaration order.
func (c *Corpus) ModuleNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Modules))
	for _, m := range c.Modules {
		names = append(names, m.Name)
	}
	return names
}
