package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// events serves the live-update stream. Each frame's data payload is the
// full sanitized message list; comment-only heartbeats keep the connection
// alive through proxies. The channel is removed from the broadcast set as
// soon as the client goes away, and removal is idempotent.
func (s *Server) events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Subscribe before reading the snapshot: a mutation landing in between
	// then shows up on the channel instead of falling into a gap where the
	// client would stay stale until the next change.
	subscriberID := uuid.NewString()
	frames := s.broadcaster.Subscribe(subscriberID)
	defer s.broadcaster.Unsubscribe(subscriberID)
	s.log.Debug("Live channel opened", "subscriber", subscriberID)

	// Snapshot first so a fresh client never waits for the next mutation.
	messages, err := s.service.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	snapshot, err := json.Marshal(messages)
	if err != nil {
		s.fail(c, err)
		return
	}

	if !s.writeFrame(c, "data: %s\n\n", snapshot) {
		return
	}

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			s.log.Debug("Live channel closed", "subscriber", subscriberID)
			return
		case payload, open := <-frames:
			if !open {
				return
			}
			if !s.writeFrame(c, "data: %s\n\n", payload) {
				return
			}
		case <-heartbeat.C:
			if !s.writeFrame(c, ": ping\n\n", nil) {
				return
			}
		}
	}
}

// writeFrame reports false on any transport error, ending the stream.
func (s *Server) writeFrame(c *gin.Context, format string, payload []byte) bool {
	var err error
	if payload == nil {
		_, err = fmt.Fprint(c.Writer, format)
	} else {
		_, err = fmt.Fprintf(c.Writer, format, payload)
	}
	if err != nil {
		return false
	}
	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return true
}
