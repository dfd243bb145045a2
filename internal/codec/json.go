package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"exambank/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports an analysis result from JSON. Text around the outermost
// object (prose, code fences) is ignored, as model output often carries it.
func (c *JSONCodec) Parse(r io.Reader) (*domain.AnalysisResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	start := bytes.IndexByte(data, '{')
	end := bytes.LastIndexByte(data, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("failed to parse JSON: %w", domain.Invalid("no JSON object found"))
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(data[start:end+1], &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", domain.Invalid("%v", err))
	}
	if result.Questions == nil {
		return nil, domain.Invalid("analysis has no questions list")
	}
	return &result, nil
}

// Export writes enriched questions as indented JSON
func (c *JSONCodec) Export(questions []domain.EnrichedQuestion, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if questions == nil {
		questions = []domain.EnrichedQuestion{}
	}
	if err := encoder.Encode(questions); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
