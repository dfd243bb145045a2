package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"exambank/internal/domain"
	"exambank/internal/service"
)

// ExamHandler serves the question bank API
type ExamHandler struct {
	svc *service.ExamService
	log *zap.Logger
}

// NewExamHandler creates a new handler. log may be nil.
func NewExamHandler(svc *service.ExamService, log *zap.Logger) *ExamHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExamHandler{svc: svc, log: log}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateContent):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStorageUninitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status statusFor picks; server errors are logged
func (h *ExamHandler) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Details: err.Error()})
}

// badRequest rejects a malformed request before it reaches the service
func badRequest(c *gin.Context, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

// paramID parses a positive int64 path parameter
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name, errors.New("must be a positive integer"))
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive int64 query parameter
func queryID(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name, errors.New("must be a positive integer"))
		return nil, false
	}
	return &id, true
}

// queryIDs parses a comma separated id list; the key may also repeat
func queryIDs(c *gin.Context, name string) ([]int64, bool) {
	var ids []int64
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				badRequest(c, "Invalid "+name, errors.New("must be positive integers"))
				return nil, false
			}
			ids = append(ids, id)
		}
	}
	return ids, true
}

// Question types

type typeRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListTypes returns every question type
func (h *ExamHandler) ListTypes(c *gin.Context) {
	types, err := h.svc.ListTypes(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to list types", err)
		return
	}
	c.JSON(http.StatusOK, types)
}

// GetType returns one question type
func (h *ExamHandler) GetType(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetType(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get type", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// CreateType adds a question type
func (h *ExamHandler) CreateType(c *gin.Context) {
	var req typeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	id, err := h.svc.CreateType(c.Request.Context(), req.Content)
	if err != nil {
		h.fail(c, "Failed to create type", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// UpdateType renames a question type
func (h *ExamHandler) UpdateType(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req typeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if err := h.svc.UpdateType(c.Request.Context(), id, req.Content); err != nil {
		h.fail(c, "Failed to update type", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// DeleteType removes a type, its tags and its question references
func (h *ExamHandler) DeleteType(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.DeleteType(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to delete type", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Question tags

type createTagRequest struct {
	Content string `json:"content" binding:"required"`
	TypeID  int64  `json:"type_id" binding:"required"`
}

// ListTags returns every tag, filtered by ?type_id= when given
func (h *ExamHandler) ListTags(c *gin.Context) {
	typeID, ok := queryID(c, "type_id")
	if !ok {
		return
	}
	tags, err := h.svc.ListTags(c.Request.Context(), typeID)
	if err != nil {
		h.fail(c, "Failed to list tags", err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// GetTag returns one tag
func (h *ExamHandler) GetTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tag, err := h.svc.GetTag(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get tag", err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// CreateTag adds a tag under an existing type
func (h *ExamHandler) CreateTag(c *gin.Context) {
	var req createTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	id, err := h.svc.CreateTag(c.Request.Context(), req.Content, req.TypeID)
	if err != nil {
		h.fail(c, "Failed to create tag", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// UpdateTag applies a partial update to a tag
func (h *ExamHandler) UpdateTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch domain.TagPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if err := h.svc.UpdateTag(c.Request.Context(), id, patch); err != nil {
		h.fail(c, "Failed to update tag", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// DeleteTag removes a tag and its relations
func (h *ExamHandler) DeleteTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.DeleteTag(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to delete tag", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// TagQuestions returns the questions carrying a tag
func (h *ExamHandler) TagQuestions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	questions, err := h.svc.TagQuestions(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to list tag questions", err)
		return
	}
	c.JSON(http.StatusOK, questions)
}
