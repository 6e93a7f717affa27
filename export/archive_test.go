package export

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"rolling-paper/domain"
	"rolling-paper/errors"
)

type staticSource struct {
	transcripts map[domain.Group]string
	err         error
}

func (s staticSource) Transcripts(context.Context) (map[domain.Group]string, error) {
	return s.transcripts, s.err
}

func Test_Build_Produces_One_Entry_Per_Group(t *testing.T) {
	req := require.New(t)
	builder := NewBuilder(staticSource{transcripts: map[domain.Group]string{
		"ESD": "Alice : hello\n",
		"FDM": "Bob : bye\n",
	}}, "dl-secret", slog.Default())

	payload, err := builder.Build(context.Background(), "dl-secret")
	req.NoError(err)

	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	req.NoError(err)
	req.Len(zr.File, 2)
	req.Equal("ESD.txt", zr.File[0].Name)
	req.Equal("FDM.txt", zr.File[1].Name)

	entry, err := zr.File[0].Open()
	req.NoError(err)
	defer entry.Close()
	content, err := io.ReadAll(entry)
	req.NoError(err)
	req.Equal("Alice : hello\n", string(content))
}

func Test_Build_Rejects_Wrong_Secret(t *testing.T) {
	req := require.New(t)
	builder := NewBuilder(staticSource{transcripts: map[domain.Group]string{"ESD": "x\n"}}, "dl-secret", slog.Default())

	_, err := builder.Build(context.Background(), "guess")
	req.ErrorIs(err, errors.ErrUnauthorized)
}

func Test_Build_Empty_Board_Is_NotFound(t *testing.T) {
	req := require.New(t)
	builder := NewBuilder(staticSource{transcripts: map[domain.Group]string{}}, "dl-secret", slog.Default())

	_, err := builder.Build(context.Background(), "dl-secret")
	req.ErrorIs(err, errors.ErrNotFound)
}
