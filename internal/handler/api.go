package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires every API route. events serves the SSE stream at
// /api/events and may be nil.
func NewRouter(h *ExamHandler, events http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(h.log), gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/catalog", h.Catalog)
		api.GET("/stats", h.Stats)
		api.GET("/consistency", h.Check)
		api.POST("/consistency/repair", h.Repair)
		if events != nil {
			api.GET("/events", gin.WrapH(events))
		}

		types := api.Group("/types")
		{
			types.GET("", h.ListTypes)
			types.POST("", h.CreateType)
			types.GET("/:id", h.GetType)
			types.PUT("/:id", h.UpdateType)
			types.DELETE("/:id", h.DeleteType)
		}

		tags := api.Group("/tags")
		{
			tags.GET("", h.ListTags)
			tags.POST("", h.CreateTag)
			tags.GET("/:id", h.GetTag)
			tags.PATCH("/:id", h.UpdateTag)
			tags.DELETE("/:id", h.DeleteTag)
			tags.GET("/:id/questions", h.TagQuestions)
		}

		exams := api.Group("/exams")
		{
			exams.GET("", h.ListExams)
			exams.POST("", h.CreateExam)
			exams.POST("/ingest", h.Ingest)
			exams.POST("/ingest/raw", h.IngestRaw)
			exams.GET("/:id", h.GetExam)
			exams.PATCH("/:id", h.UpdateExam)
			exams.DELETE("/:id", h.DeleteExam)
			exams.GET("/:id/questions", h.ExamQuestions)
		}

		questions := api.Group("/questions")
		{
			questions.POST("", h.CreateQuestion)
			questions.GET("/search", h.Search)
			questions.POST("/search", h.SearchJSON)
			questions.GET("/:id", h.GetQuestion)
			questions.PATCH("/:id", h.UpdateQuestion)
			questions.DELETE("/:id", h.DeleteQuestion)
			questions.GET("/:id/tags", h.QuestionTags)
			questions.PUT("/:id/tags/:tag_id", h.Attach)
			questions.DELETE("/:id/tags/:tag_id", h.Detach)
		}
	}

	return r
}

// RequestLogger logs one line per request
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request failed", fields...)
			return
		}
		log.Debug("request", fields...)
	}
}

// Health reports that the server is up
func (h *ExamHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Catalog returns every question type with its tags
func (h *ExamHandler) Catalog(c *gin.Context) {
	catalog, err := h.svc.Catalog(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to load catalog", err)
		return
	}
	c.JSON(http.StatusOK, catalog)
}

// Stats returns row counts per store
func (h *ExamHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to load stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Check reports referential problems
func (h *ExamHandler) Check(c *gin.Context) {
	report, err := h.svc.Check(c.Request.Context())
	if err != nil {
		h.fail(c, "Consistency check failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clean": report.Clean(), "report": report})
}

// Repair fixes the problems Check reports
func (h *ExamHandler) Repair(c *gin.Context) {
	res, err := h.svc.Repair(c.Request.Context())
	if err != nil {
		h.fail(c, "Repair failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
