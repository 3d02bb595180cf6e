package corpus

import "sync/atomic"

// Holder owns the current corpus. Readers call Load once per query and
// work against that pointer; a reload swaps in a whole new corpus so an
// in-flight query never observes a partial update.
type Holder struct {
	current atomic.Pointer[Corpus]
}

// NewHolder returns a holder seeded with c, or with an empty corpus if c is nil.
func NewHolder(c *Corpus) *Holder {
	h := &Holder{}
	h.Store(c)
	return h
}

// Load returns the current corpus. It never returns nil.
func (h *Holder) Load() *Corpus {
	if c := h.current.Load(); c != nil {
		return c
	}
	return Empty()
}

// Store replaces the current corpus.
func (h *Holder) Store(c *Corpus) {
	if c == nil {
		c = Empty()
	}
	h.current.Store(c)
}

// Swap replaces the current corpus and returns the previous one.
func (h *Holder) Swap(c *Corpus) *Corpus {
	if c == nil {
		c = Empty()
	}
	return h.current.Swap(c)
}
