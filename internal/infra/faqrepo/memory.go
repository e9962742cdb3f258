package faqrepo

import (
	"context"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

// MemorySource serves a fixed corpus for tests/dev.
type MemorySource struct {
	entries []faq.Entry
}

// NewMemorySource constructs a source over entries.
func NewMemorySource(entries []faq.Entry) *MemorySource {
	return &MemorySource{entries: append([]faq.Entry(nil), entries...)}
}

// Load returns a copy of the entries.
func (s *MemorySource) Load(context.Context) ([]faq.Entry, error) {
	return append([]faq.Entry(nil), s.entries...), nil
}

var _ faq.CorpusSource = (*MemorySource)(nil)
