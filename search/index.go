// Package search maintains a bluge full-text index over board messages so
// long boards stay searchable by author or content.
package search

import (
	"context"
	"fmt"

	"github.com/blugelabs/bluge"

	"rolling-paper/domain"
)

type Index struct {
	writer *bluge.Writer
}

// Open creates or reopens the index at the given directory.
func Open(path string) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}
	return &Index{writer: writer}, nil
}

// OpenInMemory is used by tests and by deployments that accept rebuilding
// the index on restart.
func OpenInMemory() (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer}, nil
}

// Index upserts a message. Private content never enters the index: a search
// hit would leak what the list view blanks. The author remains searchable.
func (i *Index) Index(m domain.Message) error {
	doc := bluge.NewDocument(m.ID).
		AddField(bluge.NewTextField("author", m.Author)).
		AddField(bluge.NewKeywordField("group", string(m.Group)))
	if !m.IsPrivate {
		doc.AddField(bluge.NewTextField("content", m.Content))
	}
	return i.writer.Update(doc.ID(), doc)
}

func (i *Index) Delete(id string) error {
	return i.writer.Delete(bluge.Identifier(id))
}

// Search returns the ids of the best matching messages. Callers resolve the
// ids against the store so results always reflect current state.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]string, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	q := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(query).SetField("content")).
		AddShould(bluge.NewMatchQuery(query).SetField("author")).
		SetMinShould(1)

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var ids []string
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}
