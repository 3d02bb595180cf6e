package search

import (
	stderrors "errors"
	"regexp"
	"regexp/syntax"
	"strings"

	"github.com/Aman-CERP/symdex/internal/corpus"
	"github.com/Aman-CERP/symdex/internal/errors"
)

// BroadSearchOptions narrows a pattern search.
type BroadSearchOptions struct {
	// MaxResults caps the number of hits; see ClampMaxResults.
	MaxResults int

	// ExcludeModules skips every module whose name contains one of these
	// substrings (case-insensitive). Empty entries are ignored.
	ExcludeModules []string
}

// caseInsensitive is prepended to every pattern before compiling.
const caseInsensitive = "(?i)"

// CompilePattern compiles pattern as a case-insensitive RE2 expression.
// A compile failure is returned as ERR_403_INVALID_PATTERN and quotes the
// pattern as the caller wrote it.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(caseInsensitive + pattern)
	if err != nil {
		var se *syntax.Error
		if stderrors.As(err, &se) {
			err = &syntax.Error{Code: se.Code, Expr: strings.TrimPrefix(se.Expr, caseInsensitive)}
		}
		return nil, errors.InvalidPattern(pattern, err)
	}
	return re, nil
}

// BroadSearch matches pattern against module, type, and member names.
//
// Hits come in scan order: per module, the module itself (name or assembly
// full name), then each type (full name, else name), with that type's
// members (full name, else name, else signature) right after it. The scan
// stops as soon as maxResults hits have been collected, so a smaller cap
// always yields a prefix of a larger one.
func BroadSearch(c *corpus.Corpus, pattern string, maxResults int) ([]SearchHit, error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return Scan(c, re, BroadSearchOptions{MaxResults: maxResults}), nil
}

// Scan runs the broad-search walk with an already compiled expression.
func Scan(c *corpus.Corpus, re *regexp.Regexp, opts BroadSearchOptions) []SearchHit {
	limit := ClampMaxResults(opts.MaxResults)
	exclude := lowerNonEmpty(opts.ExcludeModules)
	hits := make([]SearchHit, 0, min(limit, 64))

	if c == nil {
		return hits
	}

	for _, mod := range c.Modules {
		if excluded(mod.Name, exclude) {
			continue
		}

		if re.MatchString(mod.Name) || matchNonEmpty(re, mod.AssemblyFullName) {
			hits = append(hits, SearchHit{
				Kind:         HitModule,
				Name:         mod.Name,
				FullName:     fallback(mod.AssemblyFullName, mod.Name),
				ModuleName:   mod.Name,
				AssemblyPath: mod.AssemblyPath,
			})
			if len(hits) >= limit {
				return hits
			}
		}

		for _, t := range mod.Types {
			if re.MatchString(t.FullName) || matchNonEmpty(re, t.Name) {
				hits = append(hits, SearchHit{
					Kind:         HitType,
					Name:         t.Name,
					FullName:     fallback(t.FullName, t.Name),
					ModuleName:   mod.Name,
					AssemblyPath: mod.AssemblyPath,
				})
				if len(hits) >= limit {
					return hits
				}
			}

			for m := range corpus.Members(t) {
				if !re.MatchString(m.FullName) && !matchNonEmpty(re, m.Name) && !matchNonEmpty(re, m.Signature) {
					continue
				}
				hits = append(hits, SearchHit{
					Kind:         HitMember,
					Name:         m.Name,
					FullName:     fallback(m.FullName, m.Name),
					ModuleName:   mod.Name,
					AssemblyPath: mod.AssemblyPath,
					Signature:    m.Signature,
				})
				if len(hits) >= limit {
					return hits
				}
			}
		}
	}
	return hits
}

// matchNonEmpty reports whether s is non-empty and matches re.
func matchNonEmpty(re *regexp.Regexp, s string) bool {
	return s != "" && re.MatchString(s)
}

func lowerNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func excluded(moduleName string, lowered []string) bool {
	if len(lowered) == 0 {
		return false
	}
	name := strings.ToLower(moduleName)
	for _, s := range lowered {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}
