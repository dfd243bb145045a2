package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"exambank/internal/codec"
	"exambank/internal/domain"
)

// GetQuestion returns one question
func (h *ExamHandler) GetQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, err := h.svc.GetQuestion(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get question", err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// CreateQuestion adds a question to an existing exam
func (h *ExamHandler) CreateQuestion(c *gin.Context) {
	var in domain.QuestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	id, err := h.svc.CreateQuestion(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "Failed to create question", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// UpdateQuestion applies a partial update to a question
func (h *ExamHandler) UpdateQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch domain.QuestionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if err := h.svc.UpdateQuestion(c.Request.Context(), id, patch); err != nil {
		h.fail(c, "Failed to update question", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// DeleteQuestion removes a question and its relations
func (h *ExamHandler) DeleteQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.DeleteQuestion(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to delete question", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// QuestionTags returns the tags attached to a question
func (h *ExamHandler) QuestionTags(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tags, err := h.svc.QuestionTags(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to list question tags", err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// Attach tags a question; repeating it is a no-op
func (h *ExamHandler) Attach(c *gin.Context) {
	questionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	tagID, ok := paramID(c, "tag_id")
	if !ok {
		return
	}
	id, err := h.svc.Attach(c.Request.Context(), questionID, tagID)
	if err != nil {
		h.fail(c, "Failed to attach tag", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relation_id": id})
}

// Detach removes a tag from a question
func (h *ExamHandler) Detach(c *gin.Context) {
	questionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	tagID, ok := paramID(c, "tag_id")
	if !ok {
		return
	}
	removed, err := h.svc.Detach(c.Request.Context(), questionID, tagID)
	if err != nil {
		h.fail(c, "Failed to detach tag", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Search returns enriched questions. Criteria come from the query string:
// exam_name, type_id, tag_ids (comma separated or repeated) and mode (any
// or all). ?format=yaml switches the body to the YAML exporter.
func (h *ExamHandler) Search(c *gin.Context) {
	typeID, ok := queryID(c, "type_id")
	if !ok {
		return
	}
	tagIDs, ok := queryIDs(c, "tag_ids")
	if !ok {
		return
	}
	criteria := domain.SearchCriteria{
		ExamName: c.Query("exam_name"),
		TypeID:   typeID,
		TagIDs:   tagIDs,
		Mode:     domain.MatchMode(c.Query("mode")),
	}
	h.search(c, criteria)
}

// SearchJSON is Search with the criteria sent as a JSON body
func (h *ExamHandler) SearchJSON(c *gin.Context) {
	var criteria domain.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	h.search(c, criteria)
}

func (h *ExamHandler) search(c *gin.Context, criteria domain.SearchCriteria) {
	format := c.DefaultQuery("format", "json")
	if format == "json" {
		questions, err := h.svc.Search(c.Request.Context(), criteria)
		if err != nil {
			h.fail(c, "Search failed", err)
			return
		}
		if questions == nil {
			questions = []domain.EnrichedQuestion{}
		}
		c.JSON(http.StatusOK, questions)
		return
	}

	exp, err := codec.ForFormat(format)
	if err != nil {
		badRequest(c, "Invalid format", err)
		return
	}
	c.Header("Content-Type", "application/yaml; charset=utf-8")
	if err := h.svc.ExportSearch(c.Request.Context(), criteria, exp, c.Writer); err != nil {
		if c.Writer.Written() {
			h.log.Error("failed to write search export", zap.Error(err))
			return
		}
		c.Writer.Header().Del("Content-Type")
		h.fail(c, "Search failed", err)
	}
}
