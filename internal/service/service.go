package service

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"exambank/internal/catalog"
	"exambank/internal/codec"
	"exambank/internal/domain"
	"exambank/internal/repository"
)

// ExamService provides the question bank operations used by the HTTP API
// and the CLI
type ExamService struct {
	repo     repository.Repository
	eventBus *EventBus
	log      *zap.Logger
}

// NewExamService creates a new exam service. bus and log may be nil.
func NewExamService(repo repository.Repository, bus *EventBus, log *zap.Logger) *ExamService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExamService{
		repo:     repo,
		eventBus: bus,
		log:      log,
	}
}

// Ingest persists an analysed exam with its questions and tag relations
func (s *ExamService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	res, err := s.repo.Ingest(ctx, req)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type:    EventExamIngested,
		Payload: map[string]any{"exam_id": res.ExamID, "total_questions": res.TotalQuestions},
	})

	return res, nil
}

// IngestFrom parses an analysis payload with imp and ingests it under examName
func (s *ExamService) IngestFrom(ctx context.Context, examName, description string, r io.Reader, imp codec.Importer) (*domain.IngestResult, error) {
	analysis, err := imp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s analysis: %w", imp.Format(), err)
	}
	return s.Ingest(ctx, domain.IngestRequest{
		ExamName:    examName,
		Description: description,
		Analysis:    *analysis,
	})
}

// Search returns enriched questions matching the criteria
func (s *ExamService) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.EnrichedQuestion, error) {
	return s.repo.Search(ctx, criteria)
}

// ExportSearch runs a search and writes the results with exp
func (s *ExamService) ExportSearch(ctx context.Context, criteria domain.SearchCriteria, exp codec.Exporter, w io.Writer) error {
	questions, err := s.repo.Search(ctx, criteria)
	if err != nil {
		return err
	}
	return exp.Export(questions, w)
}

// SearchExams matches exams by name or description
func (s *ExamService) SearchExams(ctx context.Context, keyword string) ([]domain.Exam, error) {
	return s.repo.Exams().SearchByName(ctx, keyword)
}

// Catalog lists every question type with its tags
func (s *ExamService) Catalog(ctx context.Context) ([]domain.TypeWithTags, error) {
	return s.repo.Catalog(ctx)
}

// Stats returns row counts per store
func (s *ExamService) Stats(ctx context.Context) (*domain.Stats, error) {
	return s.repo.Stats(ctx)
}

// Check reports referential problems without changing anything
func (s *ExamService) Check(ctx context.Context) (*domain.ConsistencyReport, error) {
	return s.repo.Check(ctx)
}

// Repair fixes the problems Check reports, except tag/type drift
func (s *ExamService) Repair(ctx context.Context) (*domain.RepairResult, error) {
	res, err := s.repo.Repair(ctx)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{Type: EventDataRepaired, Payload: res})
	return res, nil
}

// Reset clears every store and reseeds the catalog when cat is not nil
func (s *ExamService) Reset(ctx context.Context, cat *catalog.Catalog) error {
	if err := s.repo.Reset(ctx, cat); err != nil {
		return err
	}

	s.log.Warn("question bank reset", zap.Bool("reseeded", cat != nil))
	s.eventBus.Publish(Event{
		Type:    EventDataReset,
		Payload: map[string]bool{"reseeded": cat != nil},
	})
	return nil
}

// Question types

// ListTypes returns every question type
func (s *ExamService) ListTypes(ctx context.Context) ([]domain.QuestionType, error) {
	return s.repo.Types().GetAll(ctx)
}

// GetType retrieves a question type by id
func (s *ExamService) GetType(ctx context.Context, id int64) (*domain.QuestionType, error) {
	return s.repo.Types().Get(ctx, id)
}

// CreateType adds a question type
func (s *ExamService) CreateType(ctx context.Context, content string) (int64, error) {
	id, err := s.repo.Types().Add(ctx, content)
	if err != nil {
		return 0, err
	}

	s.eventBus.Publish(Event{Type: EventTypeCreated, Payload: map[string]int64{"type_id": id}})
	return id, nil
}

// UpdateType renames a question type
func (s *ExamService) UpdateType(ctx context.Context, id int64, content string) error {
	if _, err := s.repo.Types().Update(ctx, id, content); err != nil {
		return err
	}

	s.eventBus.Publish(Event{Type: EventTypeUpdated, Payload: map[string]int64{"type_id": id}})
	return nil
}

// DeleteType removes a type with its tags and clears it from questions
func (s *ExamService) DeleteType(ctx context.Context, id int64) (*domain.TypeCascadeResult, error) {
	res, err := s.repo.Types().Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{Type: EventTypeDeleted, Payload: res})
	return res, nil
}

// Question tags

// ListTags returns all tags, or the tags of one type when typeID is set
func (s *ExamService) ListTags(ctx context.Context, typeID *int64) ([]domain.QuestionTag, error) {
	if typeID != nil {
		return s.repo.Tags().GetByTypeID(ctx, *typeID)
	}
	return s.repo.Tags().GetAll(ctx)
}

// GetTag retrieves a tag by id
func (s *ExamService) GetTag(ctx context.Context, id int64) (*domain.QuestionTag, error) {
	return s.repo.Tags().Get(ctx, id)
}

// CreateTag adds a tag under an existing type
func (s *ExamService) CreateTag(ctx context.Context, content string, typeID int64) (int64, error) {
	id, err := s.repo.Tags().Add(ctx, content, typeID)
	if err != nil {
		return 0, err
	}

	s.eventBus.Publish(Event{
		Type:    EventTagCreated,
		Payload: map[string]int64{"tag_id": id, "type_id": typeID},
	})
	return id, nil
}

// UpdateTag applies a partial update to a tag
func (s *ExamService) UpdateTag(ctx context.Context, id int64, patch domain.TagPatch) error {
	if _, err := s.repo.Tags().Update(ctx, id, patch); err != nil {
		return err
	}

	s.eventBus.Publish(Event{Type: EventTagUpdated, Payload: map[string]int64{"tag_id": id}})
	return nil
}

// DeleteTag removes a tag and its relations
func (s *ExamService) DeleteTag(ctx context.Context, id int64) (*domain.TagCascadeResult, error) {
	res, err := s.repo.Tags().Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{Type: EventTagDeleted, Payload: res})
	return res, nil
}

// Exams

// ListExams returns every exam
func (s *ExamService) ListExams(ctx context.Context) ([]domain.Exam, error) {
	return s.repo.Exams().GetAll(ctx)
}

// GetExam retrieves an exam by id
func (s *ExamService) GetExam(ctx context.Context, id int64) (*domain.Exam, error) {
	return s.repo.Exams().Get(ctx, id)
}

// CreateExam adds an exam without questions
func (s *ExamService) CreateExam(ctx context.Context, in domain.ExamInput) (int64, error) {
	id, err := s.repo.Exams().Add(ctx, in)
	if err != nil {
		return 0, err
	}

	s.eventBus.Publish(Event{Type: EventExamCreated, Payload: map[string]int64{"exam_id": id}})
	return id, nil
}

// UpdateExam applies a partial update to an exam
func (s *ExamService) UpdateExam(ctx context.Context, id int64, patch domain.ExamPatch) error {
	if _, err := s.repo.Exams().Update(ctx, id, patch); err != nil {
		return err
	}

	s.eventBus.Publish(Event{Type: EventExamUpdated, Payload: map[string]int64{"exam_id": id}})
	return nil
}

// DeleteExam removes an exam together with its questions and their relations
func (s *ExamService) DeleteExam(ctx context.Context, id int64) (*domain.ExamCascadeResult, error) {
	res, err := s.repo.Exams().Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{Type: EventExamDeleted, Payload: res})
	return res, nil
}

// ExamQuestions returns the questions of one exam
func (s *ExamService) ExamQuestions(ctx context.Context, examID int64) ([]domain.Question, error) {
	if _, err := s.repo.Exams().Get(ctx, examID); err != nil {
		return nil, err
	}
	return s.repo.Questions().GetByExamID(ctx, examID)
}

// Questions

// GetQuestion retrieves a question by id
func (s *ExamService) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	return s.repo.Questions().Get(ctx, id)
}

// CreateQuestion adds a question to an existing exam
func (s *ExamService) CreateQuestion(ctx context.Context, in domain.QuestionInput) (int64, error) {
	id, err := s.repo.Questions().Add(ctx, in)
	if err != nil {
		return 0, err
	}

	s.eventBus.Publish(Event{
		Type:    EventQuestionCreated,
		Payload: map[string]int64{"question_id": id, "exam_id": in.ExamID},
	})
	return id, nil
}

// UpdateQuestion applies a partial update to a question
func (s *ExamService) UpdateQuestion(ctx context.Context, id int64, patch domain.QuestionPatch) error {
	if _, err := s.repo.Questions().Update(ctx, id, patch); err != nil {
		return err
	}

	s.eventBus.Publish(Event{Type: EventQuestionUpdated, Payload: map[string]int64{"question_id": id}})
	return nil
}

// DeleteQuestion removes a question and its relations
func (s *ExamService) DeleteQuestion(ctx context.Context, id int64) (*domain.QuestionCascadeResult, error) {
	res, err := s.repo.Questions().Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{Type: EventQuestionDeleted, Payload: res})
	return res, nil
}

// QuestionTags returns the tags attached to a question
func (s *ExamService) QuestionTags(ctx context.Context, questionID int64) ([]domain.QuestionTag, error) {
	if _, err := s.repo.Questions().Get(ctx, questionID); err != nil {
		return nil, err
	}
	return s.repo.Relations().TagsForQuestion(ctx, questionID)
}

// TagQuestions returns the questions carrying a tag
func (s *ExamService) TagQuestions(ctx context.Context, tagID int64) ([]domain.Question, error) {
	if _, err := s.repo.Tags().Get(ctx, tagID); err != nil {
		return nil, err
	}
	return s.repo.Relations().QuestionsForTag(ctx, tagID)
}

// Attach tags a question; attaching an existing pair returns its relation id
func (s *ExamService) Attach(ctx context.Context, questionID, tagID int64) (int64, error) {
	id, err := s.repo.Relations().Attach(ctx, questionID, tagID)
	if err != nil {
		return 0, err
	}

	s.eventBus.Publish(Event{
		Type:    EventTagAttached,
		Payload: map[string]int64{"question_id": questionID, "tag_id": tagID, "relation_id": id},
	})
	return id, nil
}

// Detach removes a tag from a question and reports whether it was attached
func (s *ExamService) Detach(ctx context.Context, questionID, tagID int64) (bool, error) {
	removed, err := s.repo.Relations().Detach(ctx, questionID, tagID)
	if err != nil {
		return false, err
	}

	if removed {
		s.eventBus.Publish(Event{
			Type:    EventTagDetached,
			Payload: map[string]int64{"question_id": questionID, "tag_id": tagID},
		})
	}
	return removed, nil
}
