package sink

import (
	"context"
	"fmt"
	"log/slog"

	"rolling-paper/contract"
	"rolling-paper/search"
)

// SearchSink keeps the bluge index in step with the store: upsert on create
// and edit, drop on delete. Likes carry no indexed text.
type SearchSink struct {
	index *search.Index
	store contract.MessageStore
	log   *slog.Logger
}

func NewSearchSink(index *search.Index, store contract.MessageStore, log *slog.Logger) *SearchSink {
	return &SearchSink{index: index, store: store, log: log}
}

func (s *SearchSink) Consume(_ context.Context, c contract.Change) error {
	switch c.Op {
	case contract.OpLike:
		return nil
	case contract.OpDelete:
		return s.index.Delete(c.ID)
	default:
		m, err := s.store.GetByID(c.ID)
		if err != nil {
			return fmt.Errorf("resolving %s for indexing: %w", c.ID, err)
		}
		return s.index.Index(m)
	}
}
