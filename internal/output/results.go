package output

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/search"
)

// kindWidth aligns hit names after the kind column.
const kindWidth = 8

// Hits writes broad-search hits.
func (w *Writer) Hits(hits []search.SearchHit) error {
	if w.format == FormatJSON {
		if hits == nil {
			hits = []search.SearchHit{}
		}
		return w.JSON(hits)
	}

	if len(hits) == 0 {
		w.Status("", "No matches.")
		return nil
	}
	for _, h := range hits {
		w.hitLine(h)
	}
	w.Newline()
	_, _ = fmt.Fprintln(w.out, w.styles.Label.Render(plural(len(hits), "hit", "hits")))
	return nil
}

func (w *Writer) hitLine(h search.SearchHit) {
	var b strings.Builder
	b.WriteString(w.styles.Kind.Render(string(h.Kind)))
	b.WriteString(strings.Repeat(" ", max(1, kindWidth-len(h.Kind))))
	b.WriteString(w.styles.Name.Render(h.FullName))
	if h.Signature != "" {
		b.WriteString("  ")
		b.WriteString(h.Signature)
	}
	if h.Kind != search.HitModule {
		b.WriteString("  ")
		b.WriteString(w.styles.Dim.Render("(" + h.ModuleName + ")"))
	}
	_, _ = fmt.Fprintln(w.out, b.String())
}

// Resolution writes the outcome of an identifier lookup.
func (w *Writer) Resolution(res search.Resolution) error {
	if w.format == FormatJSON {
		return w.JSON(res)
	}

	switch res.Status {
	case search.StatusOK:
		w.Success(w.styles.Name.Render(res.TypeFullName))
		w.candidateDetails(*res.Candidate)
	case search.StatusAmbiguous:
		w.Warningf("%s match %q:", plural(len(res.Candidates), "type", "types"), res.Identifier)
		for _, c := range res.Candidates {
			w.Status("", w.styles.Name.Render(c.TypeFullName)+"  "+w.styles.Dim.Render("("+c.ModuleName+")"))
		}
	case search.StatusNotFound:
		w.Errorf("No type matches %q", res.Identifier)
		if len(res.Suggestions) > 0 {
			w.Status("", w.styles.Label.Render("Did you mean: ")+strings.Join(res.Suggestions, ", "))
		}
	default:
		w.Error(res.Error)
	}
	return nil
}

func (w *Writer) candidateDetails(c search.Candidate) {
	w.Status("", w.styles.Label.Render("module:   ")+c.ModuleName)
	w.Status("", w.styles.Label.Render("assembly: ")+c.AssemblyPath)
	if c.SourcePath != "" {
		w.Status("", w.styles.Label.Render("source:   ")+c.SourcePath)
	}
}

// References writes the types that reference an identifier, each with
// the reasons it matched.
func (w *Writer) References(res *search.ReferenceResult) error {
	if w.format == FormatJSON {
		return w.JSON(res)
	}

	if len(res.Hits) == 0 {
		w.Statusf("", "No types reference %q.", res.Identifier)
		return nil
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(
		fmt.Sprintf("%s referencing %s", plural(len(res.Hits), "type", "types"), res.Identifier)))
	for _, h := range res.Hits {
		_, _ = fmt.Fprintln(w.out, w.styles.Name.Render(h.FullName)+"  "+w.styles.Dim.Render("("+h.ModuleName+")"))
		for _, reason := range h.Reasons {
			_, _ = fmt.Fprintf(w.out, "  - %s\n", reason)
		}
	}
	return nil
}

// Paths writes keyword phrases, one per line.
func (w *Writer) Paths(paths []string) error {
	if w.format == FormatJSON {
		if paths == nil {
			paths = []string{}
		}
		return w.JSON(struct {
			Paths []string `json:"paths"`
		}{paths})
	}
	for _, p := range paths {
		_, _ = fmt.Fprintln(w.out, p)
	}
	return nil
}

// Stats writes corpus counts.
func (w *Writer) Stats(stats corpus.Stats) error {
	if w.format == FormatJSON {
		return w.JSON(stats)
	}
	source := stats.Source
	if source == "" {
		source = "(none)"
	}
	w.Status("", w.styles.Label.Render("source:  ")+source)
	w.Status("", w.styles.Label.Render("modules: ")+fmt.Sprint(stats.Modules))
	w.Status("", w.styles.Label.Render("types:   ")+fmt.Sprint(stats.Types))
	w.Status("", w.styles.Label.Render("members: ")+fmt.Sprint(stats.Members))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
