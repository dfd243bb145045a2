package codec

import (
	"fmt"
	"io"
	"time"

	"exambank/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlQuestion is the YAML shape of an enriched question
type yamlQuestion struct {
	ID        int64     `yaml:"id"`
	Content   string    `yaml:"content"`
	Answer    string    `yaml:"answer,omitempty"`
	ExamID    int64     `yaml:"exam_id"`
	Exam      string    `yaml:"exam,omitempty"`
	TypeID    *int64    `yaml:"type_id"`
	Type      string    `yaml:"type,omitempty"`
	Tags      []yamlTag `yaml:"tags"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

type yamlTag struct {
	ID      int64  `yaml:"id"`
	Content string `yaml:"content"`
}

// Parse imports an analysis result from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", domain.Invalid("%v", err))
	}
	if result.Questions == nil {
		return nil, domain.Invalid("analysis has no questions list")
	}
	return &result, nil
}

// Export writes enriched questions as a YAML list
func (c *YAMLCodec) Export(questions []domain.EnrichedQuestion, w io.Writer) error {
	out := make([]yamlQuestion, 0, len(questions))
	for _, q := range questions {
		yq := yamlQuestion{
			ID:        q.ID,
			Content:   q.Content,
			Answer:    q.Answer,
			ExamID:    q.ExamID,
			TypeID:    q.TypeID,
			Tags:      make([]yamlTag, 0, len(q.Tags)),
			CreatedAt: q.CreatedAt,
			UpdatedAt: q.UpdatedAt,
		}
		if q.ExamInfo != nil {
			yq.Exam = q.ExamInfo.Name
		}
		if q.TypeInfo != nil {
			yq.Type = q.TypeInfo.Content
		}
		for _, t := range q.Tags {
			yq.Tags = append(yq.Tags, yamlTag{ID: t.ID, Content: t.Content})
		}
		out = append(out, yq)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
