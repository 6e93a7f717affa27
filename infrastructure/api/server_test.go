package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"rolling-paper/domain"
	"rolling-paper/export"
	"rolling-paper/repositories"
	"rolling-paper/runtime"
	"rolling-paper/runtime/workers"
	"rolling-paper/services"

	boardcache "rolling-paper/cache"
)

func newTestServer(t *testing.T) *Server {
	return newTestServerWithHeartbeat(t, 30*time.Second)
}

func newTestServerWithHeartbeat(t *testing.T, heartbeat time.Duration) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.Default()

	store, err := repositories.NewLogStore(filepath.Join(t.TempDir(), "messages.jsonl"), log)
	require.NoError(t, err)

	service := services.NewBoardService(store, boardcache.Disabled{}, runtime.NewLocalNotifier(16, log), domain.NewGroupSet("ESD,FDM"), log)
	broadcaster := workers.NewBroadcaster(4, log)
	archive := export.NewBuilder(service, "dl-secret", log)
	return NewServer(service, broadcaster, archive, heartbeat, log)
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func createMessage(t *testing.T, server *Server, body map[string]any) domain.Message {
	t.Helper()
	rec := doJSON(t, server, http.MethodPost, "/api/messages", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func Test_Create_Returns_201_Without_Password_Hash(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/messages", map[string]any{
		"author": "Alice", "group": "ESD", "content": "hi", "password": "p1",
	})
	req.Equal(http.StatusCreated, rec.Code)
	req.NotContains(rec.Body.String(), "passwordHash")

	var created domain.Message
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	req.NotEmpty(created.ID)
	req.Equal("hi", created.Content)
}

func Test_Create_Private_Without_Password_Is_400(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/messages", map[string]any{
		"author": "Alice", "group": "ESD", "content": "hi", "isPrivate": true,
	})
	req.Equal(http.StatusBadRequest, rec.Code)
}

func Test_List_Blanks_Private_Content(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	createMessage(t, server, map[string]any{
		"author": "Alice", "group": "ESD", "content": "hidden", "password": "secret", "isPrivate": true,
	})

	rec := doJSON(t, server, http.MethodGet, "/api/messages", nil)
	req.Equal(http.StatusOK, rec.Code)

	var listed []domain.Message
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &listed))
	req.Len(listed, 1)
	req.Empty(listed[0].Content)
	req.NotContains(rec.Body.String(), "hidden")
}

func Test_Like_Unknown_ID_Is_404(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/messages/ghost/like", nil)
	req.Equal(http.StatusNotFound, rec.Code)
}

func Test_Update_Status_Mapping(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	locked := createMessage(t, server, map[string]any{"author": "A", "group": "ESD", "content": "hi"})
	protected := createMessage(t, server, map[string]any{"author": "B", "group": "ESD", "content": "hi", "password": "p1"})

	// No password on the message: permanently locked.
	rec := doJSON(t, server, http.MethodPut, "/api/messages/"+locked.ID, map[string]any{"password": "x", "content": "edited"})
	req.Equal(http.StatusForbidden, rec.Code)

	// Wrong password.
	rec = doJSON(t, server, http.MethodPut, "/api/messages/"+protected.ID, map[string]any{"password": "wrong", "content": "edited"})
	req.Equal(http.StatusUnauthorized, rec.Code)

	// Correct password.
	rec = doJSON(t, server, http.MethodPut, "/api/messages/"+protected.ID, map[string]any{"password": "p1", "content": "edited"})
	req.Equal(http.StatusOK, rec.Code)
	var updated domain.Message
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	req.Equal("edited", updated.Content)

	// Unknown id.
	rec = doJSON(t, server, http.MethodPut, "/api/messages/ghost", map[string]any{"password": "p1", "content": "edited"})
	req.Equal(http.StatusNotFound, rec.Code)
}

func Test_Verify_And_Private_Content(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	private := createMessage(t, server, map[string]any{
		"author": "Alice", "group": "FDM", "content": "only for you", "password": "secret", "isPrivate": true,
	})

	rec := doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/messages/%s/verify", private.ID), map[string]any{"password": "secret"})
	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`{"valid": true}`, rec.Body.String())

	rec = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/messages/%s/verify", private.ID), map[string]any{"password": "nope"})
	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`{"valid": false}`, rec.Body.String())

	rec = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/messages/%s/content", private.ID), map[string]any{"password": "secret"})
	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`{"content": "only for you"}`, rec.Body.String())

	rec = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/messages/%s/content", private.ID), map[string]any{"password": "bad"})
	req.Equal(http.StatusUnauthorized, rec.Code)
}

func Test_Delete_Then_404(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	created := createMessage(t, server, map[string]any{"author": "A", "group": "ESD", "content": "hi", "password": "p1"})

	rec := doJSON(t, server, http.MethodDelete, "/api/messages/"+created.ID, map[string]any{"password": "p1"})
	req.Equal(http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodDelete, "/api/messages/"+created.ID, map[string]any{"password": "p1"})
	req.Equal(http.StatusNotFound, rec.Code)
}

func Test_Download_Archive(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/download-txt", map[string]any{"password": "dl-secret"})
	req.Equal(http.StatusNotFound, rec.Code) // empty board

	createMessage(t, server, map[string]any{"author": "A", "group": "ESD", "content": "hi"})

	rec = doJSON(t, server, http.MethodPost, "/api/download-txt", map[string]any{"password": "wrong"})
	req.Equal(http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/api/download-txt", map[string]any{"password": "dl-secret"})
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("application/zip", rec.Header().Get("Content-Type"))
	req.NotEmpty(rec.Body.Bytes())
}

func Test_Search_Disabled_Is_404(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/api/messages/search?q=hello", nil)
	req.Equal(http.StatusNotFound, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/api/messages/search", nil)
	req.Equal(http.StatusBadRequest, rec.Code)
}
