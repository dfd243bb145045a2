package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"exambank/internal/codec"
	"exambank/internal/domain"
)

// ListExams returns every exam, or the exams matching ?q= by name or description
func (h *ExamHandler) ListExams(c *gin.Context) {
	var (
		exams []domain.Exam
		err   error
	)
	if q, ok := c.GetQuery("q"); ok {
		exams, err = h.svc.SearchExams(c.Request.Context(), q)
	} else {
		exams, err = h.svc.ListExams(c.Request.Context())
	}
	if err != nil {
		h.fail(c, "Failed to list exams", err)
		return
	}
	c.JSON(http.StatusOK, exams)
}

// GetExam returns one exam
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	exam, err := h.svc.GetExam(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get exam", err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

// CreateExam adds an exam without questions
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var in domain.ExamInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	id, err := h.svc.CreateExam(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "Failed to create exam", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// UpdateExam applies a partial update to an exam
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch domain.ExamPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if err := h.svc.UpdateExam(c.Request.Context(), id, patch); err != nil {
		h.fail(c, "Failed to update exam", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// DeleteExam removes an exam with its questions and their relations
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.DeleteExam(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to delete exam", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExamQuestions returns the questions of one exam
func (h *ExamHandler) ExamQuestions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	questions, err := h.svc.ExamQuestions(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to list exam questions", err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// Ingest persists an analysed exam sent as an IngestRequest document
func (h *ExamHandler) Ingest(c *gin.Context) {
	var req domain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	res, err := h.svc.Ingest(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Failed to ingest exam", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// IngestRaw persists an analysis payload sent verbatim in the body. The
// exam is named by ?exam_name= and the payload format by ?format= (json
// default, or yaml).
func (h *ExamHandler) IngestRaw(c *gin.Context) {
	imp, err := codec.ForFormat(c.DefaultQuery("format", "json"))
	if err != nil {
		badRequest(c, "Invalid format", err)
		return
	}
	res, err := h.svc.IngestFrom(c.Request.Context(), c.Query("exam_name"), c.Query("description"), c.Request.Body, imp)
	if err != nil {
		h.fail(c, "Failed to ingest exam", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
