package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rolling-paper/domain"
)

func Test_Events_Sends_Snapshot_First_Then_Heartbeats(t *testing.T) {
	req := require.New(t)
	server := newTestServerWithHeartbeat(t, 50*time.Millisecond)
	created := createMessage(t, server, map[string]any{"author": "Alice", "group": "ESD", "content": "hi"})

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	streamReq, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	req.NoError(err)

	resp, err := ts.Client().Do(streamReq)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("text/event-stream", resp.Header.Get("Content-Type"))

	// The first data frame must be the current list, before any mutation
	// happens; the comment heartbeat follows on the configured interval.
	var firstData string
	sawHeartbeat := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if firstData == "" && strings.HasPrefix(line, "data: ") {
			firstData = strings.TrimPrefix(line, "data: ")
			continue
		}
		if line == ": ping" {
			sawHeartbeat = true
			break
		}
	}

	req.NotEmpty(firstData, "stream ended before the snapshot frame")
	var listed []domain.Message
	req.NoError(json.Unmarshal([]byte(firstData), &listed))
	req.Len(listed, 1)
	req.Equal(created.ID, listed[0].ID)
	req.True(sawHeartbeat, "stream ended before a heartbeat comment")
}
