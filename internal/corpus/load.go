package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/symdex/internal/errors"
)

// Snapshot documents come from an external analyzer, so every field is
// decoded as raw JSON and converted permissively: a value of the wrong JSON
// type is treated as absent rather than failing the whole load.

type rawDocument struct {
	Modules json.RawMessage
	Project json.RawMessage
}

type rawProject struct {
	Modules json.RawMessage
}

type rawModule struct {
	Name             json.RawMessage
	AssemblyFullName json.RawMessage
	AssemblyPath     json.RawMessage
	ModuleFilePath   json.RawMessage
	FileName         json.RawMessage
	Types            json.RawMessage
}

type rawType struct {
	Name           json.RawMessage
	FullName       json.RawMessage
	Namespace      json.RawMessage
	BaseType       json.RawMessage
	SourceFilePath json.RawMessage
	Fields         json.RawMessage
	Methods        json.RawMessage
	Properties     json.RawMessage
	Events         json.RawMessage
}

type rawMember struct {
	Name      json.RawMessage
	FullName  json.RawMessage
	Signature json.RawMessage
}

// Load decodes a snapshot document. Two shapes are accepted:
// {"Modules": [...]} and {"Project": {"Modules": [...]}}.
//
// Load always returns a usable corpus. Empty or whitespace-only input gives
// an empty corpus and no error. A malformed or unrecognized document gives
// an empty corpus together with an ERR_206_UNRECOGNIZED_SNAPSHOT error,
// which callers log and otherwise ignore.
func Load(data []byte) (*Corpus, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Empty(), nil
	}

	modules, err := decodeModules(data)
	if err != nil {
		return Empty(), err
	}
	return New(modules), nil
}

// LoadReader reads r fully and decodes it with Load.
func LoadReader(r io.Reader) (*Corpus, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Empty(), errors.New(errors.ErrCodeFileNotFound, "failed to read snapshot", err)
	}
	return Load(data)
}

// LoadFile decodes the snapshot at path. A missing or unreadable file is
// returned as an IO error along with an empty corpus.
func LoadFile(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.ErrCodeFileNotFound
		if os.IsPermission(err) {
			code = errors.ErrCodeFilePermission
		}
		return Empty(), errors.New(code, fmt.Sprintf("failed to read snapshot %s", path), err).
			WithDetail("path", path)
	}

	c, err := Load(data)
	c.WithSource(path)
	if se, ok := err.(*errors.SymdexError); ok {
		se.WithDetail("path", path)
	}
	return c, err
}

// LoadStdin decodes a snapshot piped on f. An interactive terminal is
// never read and yields an empty corpus.
func LoadStdin(f *os.File) (*Corpus, error) {
	if f == nil || isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return Empty(), nil
	}
	c, err := LoadReader(f)
	c.WithSource("stdin")
	return c, err
}

func decodeModules(data []byte) ([]*Module, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.UnrecognizedSnapshot("snapshot is not a JSON object", err)
	}

	list := doc.Modules
	if isAbsent(list) {
		if isAbsent(doc.Project) {
			return nil, errors.UnrecognizedSnapshot("snapshot has neither Modules nor Project.Modules", nil)
		}
		var proj rawProject
		if err := json.Unmarshal(doc.Project, &proj); err != nil || isAbsent(proj.Modules) {
			return nil, errors.UnrecognizedSnapshot("snapshot Project has no Modules", err)
		}
		list = proj.Modules
	}

	items, ok := objects(list)
	if !ok {
		return nil, errors.UnrecognizedSnapshot("snapshot Modules is not an array", nil)
	}

	modules := make([]*Module, 0, len(items))
	for _, item := range items {
		var rm rawModule
		if json.Unmarshal(item, &rm) != nil {
			continue
		}
		modules = append(modules, rm.build())
	}
	return modules, nil
}

func (rm rawModule) build() *Module {
	m := &Module{
		Name:             str(rm.Name),
		AssemblyFullName: str(rm.AssemblyFullName),
		AssemblyPath:     firstNonEmpty(str(rm.AssemblyPath), str(rm.ModuleFilePath), str(rm.FileName)),
	}

	items, _ := objects(rm.Types)
	m.Types = make([]*Type, 0, len(items))
	for _, item := range items {
		var rt rawType
		if json.Unmarshal(item, &rt) != nil {
			continue
		}
		m.Types = append(m.Types, rt.build())
	}
	return m
}

func (rt rawType) build() *Type {
	return &Type{
		Name:       str(rt.Name),
		FullName:   str(rt.FullName),
		Namespace:  str(rt.Namespace),
		BaseType:   str(rt.BaseType),
		SourcePath: str(rt.SourceFilePath),
		Fields:     members(rt.Fields, KindField),
		Methods:    members(rt.Methods, KindMethod),
		Properties: members(rt.Properties, KindProperty),
		Events:     members(rt.Events, KindEvent),
	}
}

func members(raw json.RawMessage, kind MemberKind) []*Member {
	items, _ := objects(raw)
	out := make([]*Member, 0, len(items))
	for _, item := range items {
		var rm rawMember
		if json.Unmarshal(item, &rm) != nil {
			continue
		}
		out = append(out, &Member{
			Name:      str(rm.Name),
			FullName:  str(rm.FullName),
			Signature: str(rm.Signature),
			Kind:      kind,
		})
	}
	return out
}

// objects splits a JSON array into its object elements, dropping anything
// that is not an object. ok is false when raw is not an array.
func objects(raw json.RawMessage) ([]json.RawMessage, bool) {
	if isAbsent(raw) {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	out := elems[:0]
	for _, e := range elems {
		if t := bytes.TrimSpace(e); len(t) > 0 && t[0] == '{' {
			out = append(out, e)
		}
	}
	return out, true
}

func isAbsent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// str returns the trimmed string value of raw, or "" if raw is not a string.
func str(raw json.RawMessage) string {
	if isAbsent(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
