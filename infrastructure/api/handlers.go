package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rolling-paper/domain"
	apperrors "rolling-paper/errors"
)

const defaultSearchLimit = 20

type passwordRequest struct {
	Password string `json:"password"`
}

func (s *Server) list(c *gin.Context) {
	messages, err := s.service.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (s *Server) create(c *gin.Context) {
	var req domain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}
	created, err := s.service.Create(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) like(c *gin.Context) {
	liked, err := s.service.Like(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, liked)
}

func (s *Server) verify(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}
	valid, err := s.service.VerifyPassword(c.Request.Context(), c.Param("id"), req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (s *Server) privateContent(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}
	content, err := s.service.PrivateContent(c.Request.Context(), c.Param("id"), req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

func (s *Server) update(c *gin.Context) {
	var req domain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}
	updated, err := s.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) remove(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}
	if err := s.service.Delete(c.Request.Context(), c.Param("id"), req.Password); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (s *Server) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		s.fail(c, fmt.Errorf("%w: missing query parameter q", apperrors.ErrValidation))
		return
	}
	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.fail(c, fmt.Errorf("%w: invalid limit %q", apperrors.ErrValidation, raw))
			return
		}
		limit = parsed
	}
	results, err := s.service.Search(c.Request.Context(), query, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) download(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}
	payload, err := s.archive.Build(c.Request.Context(), req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="rolling-paper.zip"`)
	c.Data(http.StatusOK, "application/zip", payload)
}
