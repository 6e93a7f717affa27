// Package export assembles the per-group transcripts into one downloadable
// archive, gated by the static download secret.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"sort"

	"rolling-paper/domain"
	"rolling-paper/errors"
)

// TranscriptSource yields fresh transcripts from the authoritative store;
// the builder never reads the possibly stale on-disk files.
type TranscriptSource interface {
	Transcripts(ctx context.Context) (map[domain.Group]string, error)
}

type Builder struct {
	source TranscriptSource
	secret string
	log    *slog.Logger
}

func NewBuilder(source TranscriptSource, secret string, log *slog.Logger) *Builder {
	return &Builder{source: source, secret: secret, log: log}
}

// Build returns the complete zip archive, one "{GROUP}.txt" entry per group.
// The archive is assembled fully in memory before anything is handed to the
// transport, so an entry failure can never leave a caller holding a
// truncated archive.
func (b *Builder) Build(ctx context.Context, password string) ([]byte, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(b.secret)) != 1 {
		return nil, errors.ErrUnauthorized
	}

	transcripts, err := b.source.Transcripts(ctx)
	if err != nil {
		return nil, err
	}
	if len(transcripts) == 0 {
		return nil, fmt.Errorf("%w: no messages to export", errors.ErrNotFound)
	}

	groups := make([]domain.Group, 0, len(transcripts))
	for group := range transcripts {
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, group := range groups {
		entry, err := zw.Create(fmt.Sprintf("%s.txt", group))
		if err != nil {
			return nil, fmt.Errorf("creating archive entry for %s: %w", group, err)
		}
		if _, err = entry.Write([]byte(transcripts[group])); err != nil {
			return nil, fmt.Errorf("writing archive entry for %s: %w", group, err)
		}
	}
	if err = zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
