package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testBoardLifecycleSuite struct {
	BaseHTTPSuite
}

func TestBoardLifecycleSuite(t *testing.T) {
	suite.Run(t, &testBoardLifecycleSuite{})
}

type messagePayload struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Group   string `json:"group"`
	Content string `json:"content"`
	Likes   int    `json:"likes"`
}

func (s *testBoardLifecycleSuite) TestFullMessageLifecycle() {
	author := "e2e-" + uuid.NewString()[:8]
	var created messagePayload

	s.Run("Step 1: Post a message", func() {
		s.Step("Create")
		status, body := s.Do(http.MethodPost, "/api/messages", map[string]any{
			"author": author, "group": "ESD", "content": "hello from e2e", "password": "e2e-pass",
		})
		s.Require().Equal(http.StatusCreated, status)
		s.Require().NoError(json.Unmarshal(body, &created))
		s.Require().NotEmpty(created.ID)
	})

	s.Run("Step 2: Message appears newest-first in the list", func() {
		s.Step("List")
		status, body := s.Do(http.MethodGet, "/api/messages", nil)
		s.Require().Equal(http.StatusOK, status)

		var listed []messagePayload
		s.Require().NoError(json.Unmarshal(body, &listed))
		s.Require().NotEmpty(listed)
		s.Require().Equal(created.ID, listed[0].ID, "freshly created message should lead the list")
	})

	s.Run("Step 3: Like is additive", func() {
		s.Step("Like")
		status, body := s.Do(http.MethodPost, "/api/messages/"+created.ID+"/like", nil)
		s.Require().Equal(http.StatusOK, status)

		var liked messagePayload
		s.Require().NoError(json.Unmarshal(body, &liked))
		s.Require().Equal(created.Likes+1, liked.Likes)
	})

	s.Run("Step 4: Update requires the right password", func() {
		s.Step("Update")
		status, _ := s.Do(http.MethodPut, "/api/messages/"+created.ID, map[string]any{
			"password": "wrong", "content": "tampered",
		})
		s.Require().Equal(http.StatusUnauthorized, status)

		status, body := s.Do(http.MethodPut, "/api/messages/"+created.ID, map[string]any{
			"password": "e2e-pass", "content": "edited from e2e",
		})
		s.Require().Equal(http.StatusOK, status)

		var updated messagePayload
		s.Require().NoError(json.Unmarshal(body, &updated))
		s.Require().Equal("edited from e2e", updated.Content)
	})

	s.Run("Step 5: Archive download is gated", func() {
		if s.Config.DownloadPassword == "" {
			s.T().Skip("DOWNLOAD_PASSWORD not set")
		}
		s.Step("Download")
		status, _ := s.Do(http.MethodPost, "/api/download-txt", map[string]any{"password": "not-the-secret"})
		s.Require().Equal(http.StatusUnauthorized, status)

		status, body := s.Do(http.MethodPost, "/api/download-txt", map[string]any{"password": s.Config.DownloadPassword})
		s.Require().Equal(http.StatusOK, status)
		s.Require().NotEmpty(body)
	})

	s.Run("Step 6: Delete and verify it is gone", func() {
		s.Step("Delete")
		status, _ := s.Do(http.MethodDelete, "/api/messages/"+created.ID, map[string]any{"password": "e2e-pass"})
		s.Require().Equal(http.StatusOK, status)

		status, _ = s.Do(http.MethodDelete, "/api/messages/"+created.ID, map[string]any{"password": "e2e-pass"})
		s.Require().Equal(http.StatusNotFound, status)
	})
}
