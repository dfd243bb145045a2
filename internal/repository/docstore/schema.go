package docstore

import (
	"fmt"
	"time"

	"exambank/internal/catalog"
	"exambank/internal/domain"
	"exambank/internal/engine"
)

// SchemaVersion is the version written by the schema manager. Raising it
// re-runs store creation and reseeds the catalog on the next open.
const SchemaVersion = 1

const (
	storeTypes     = "question_types"
	storeTags      = "question_tags"
	storeExams     = "exams"
	storeQuestions = "questions"
	storeRelations = "question_tag_relations"
)

const (
	idxContent     = "content_idx"
	idxName        = "name_idx"
	idxTypeID      = "type_id_idx"
	idxExamID      = "exam_id_idx"
	idxQuestionID  = "question_id_idx"
	idxTagID       = "tag_id_idx"
	idxQuestionTag = "question_tag_idx"
)

var allStores = []string{storeTypes, storeTags, storeExams, storeQuestions, storeRelations}

func schema(cat *catalog.Catalog, now func() time.Time) engine.Schema {
	return engine.Schema{
		Version: SchemaVersion,
		Stores: []engine.StoreSpec{
			{Name: storeTypes, Indexes: []engine.IndexSpec{
				{Name: idxContent, Fields: []string{"content"}, Unique: true},
			}},
			{Name: storeTags, Indexes: []engine.IndexSpec{
				{Name: idxContent, Fields: []string{"content"}, Unique: true},
				{Name: idxTypeID, Fields: []string{"type_id"}},
			}},
			{Name: storeExams, Indexes: []engine.IndexSpec{
				{Name: idxName, Fields: []string{"name"}},
			}},
			{Name: storeQuestions, Indexes: []engine.IndexSpec{
				{Name: idxTypeID, Fields: []string{"type_id"}},
				{Name: idxExamID, Fields: []string{"exam_id"}},
			}},
			{Name: storeRelations, Indexes: []engine.IndexSpec{
				{Name: idxQuestionID, Fields: []string{"question_id"}},
				{Name: idxTagID, Fields: []string{"tag_id"}},
				{Name: idxQuestionTag, Fields: []string{"question_id", "tag_id"}, Unique: true},
			}},
		},
		Upgrade: func(tx *engine.Tx, _ int) error {
			return seed(tx, cat, now())
		},
	}
}

// seed replaces the contents of the type and tag stores with cat.
func seed(tx *engine.Tx, cat *catalog.Catalog, now time.Time) error {
	types := tx.Store(storeTypes)
	tags := tx.Store(storeTags)
	if err := types.Clear(); err != nil {
		return err
	}
	if err := tags.Clear(); err != nil {
		return err
	}

	for _, t := range cat.Types {
		if err := types.Put(t.ID, domain.QuestionType{ID: t.ID, Content: t.Content, CreatedAt: now}); err != nil {
			return fmt.Errorf("failed to seed type %d: %w", t.ID, err)
		}
	}
	for _, t := range cat.Types {
		for _, g := range t.Tags {
			tag := domain.QuestionTag{ID: g.ID, Content: g.Content, TypeID: t.ID, CreatedAt: now}
			if err := tags.Put(g.ID, tag); err != nil {
				return fmt.Errorf("failed to seed tag %d: %w", g.ID, err)
			}
		}
	}
	return nil
}
