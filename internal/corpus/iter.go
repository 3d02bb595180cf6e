package corpus

import "iter"

// Types yields every (module, type) pair in module-then-type declaration
// order. The sequence can be ranged over any number of times.
func (c *Corpus) Types() iter.Seq2[*Module, *Type] {
	return func(yield func(*Module, *Type) bool) {
		if c == nil {
			return
		}
		for _, m := range c.Modules {
			for _, t := range m.Types {
				if !yield(m, t) {
					return
				}
			}
		}
	}
}

// Members yields the members of t: fields, then methods, then properties,
// then events, each in declaration order.
func Members(t *Type) iter.Seq[*Member] {
	return func(yield func(*Member) bool) {
		if t == nil {
			return
		}
		for _, role := range [...][]*Member{t.Fields, t.Methods, t.Properties, t.Events} {
			for _, m := range role {
				if !yield(m) {
					return
				}
			}
		}
	}
}
