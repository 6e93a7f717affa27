// Package sink holds the change-feed consumers that keep derived views in
// step with the store. Every output here is regenerable, so sink failures
// are logged and never fail the originating mutation.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"rolling-paper/contract"
	"rolling-paper/domain"
	"rolling-paper/projection"
)

// TranscriptSink rewrites the per-group transcript files from current store
// state. Likes don't change any transcript line, so they are skipped; every
// other mutation triggers a full rewrite of all groups, which keeps the
// files correct after edits and deletes without tracking which group
// changed.
type TranscriptSink struct {
	store contract.MessageStore
	dir   string
	log   *slog.Logger
}

func NewTranscriptSink(store contract.MessageStore, dir string, log *slog.Logger) (*TranscriptSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating transcript directory: %w", err)
	}
	return &TranscriptSink{store: store, dir: dir, log: log}, nil
}

func (t *TranscriptSink) Consume(_ context.Context, c contract.Change) error {
	if c.Op == contract.OpLike {
		return nil
	}

	messages, err := t.store.ListAll()
	if err != nil {
		return err
	}
	transcripts := projection.Transcripts(messages)

	for group, text := range transcripts {
		if err = t.writeFile(group, text); err != nil {
			return err
		}
	}
	return t.removeStale(transcripts)
}

func (t *TranscriptSink) writeFile(group domain.Group, text string) error {
	tmp, err := os.CreateTemp(t.dir, "transcript-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), t.path(group))
}

// removeStale deletes transcript files for groups that no longer have any
// message, e.g. after the last note of a group was deleted.
func (t *TranscriptSink) removeStale(current map[domain.Group]string) error {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		group := domain.Group(strings.TrimSuffix(name, ".txt"))
		if _, ok := current[group]; ok {
			continue
		}
		if err = os.Remove(filepath.Join(t.dir, name)); err != nil {
			t.log.Warn("Failed to remove stale transcript", "group", group, "error", err)
		}
	}
	return nil
}

func (t *TranscriptSink) path(group domain.Group) string {
	return filepath.Join(t.dir, fmt.Sprintf("%s.txt", group))
}
