package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"exambank/internal/domain"
)

// Importer parses an analysis payload produced by the classification layer
type Importer interface {
	Parse(r io.Reader) (*domain.AnalysisResult, error)
	Format() string
}

// Exporter writes enriched search results
type Exporter interface {
	Export(questions []domain.EnrichedQuestion, w io.Writer) error
	Format() string
}

// Codec is both an Importer and an Exporter
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec registered for format ("json" or "yaml")
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// ForPath picks a codec from the file extension, defaulting to JSON
func ForPath(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLCodec()
	}
	return NewJSONCodec()
}
