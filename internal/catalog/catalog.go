// Package catalog holds the fixed reference catalog of question types and
// tags that is seeded into a fresh database.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalid is returned when a catalog fails validation.
var ErrInvalid = errors.New("invalid catalog")

// Tag is a seeded question tag.
type Tag struct {
	ID      int64  `yaml:"id" json:"id"`
	Content string `yaml:"content" json:"content"`
}

// Type is a seeded question type with the tags it owns.
type Type struct {
	ID      int64  `yaml:"id" json:"id"`
	Content string `yaml:"content" json:"content"`
	Tags    []Tag  `yaml:"tags" json:"tags"`
}

// Catalog is the full seed catalog.
type Catalog struct {
	Types []Type `yaml:"types" json:"types"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadFile reads and validates a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a catalog.
func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that the catalog is non-empty and that ids and contents
// are unique across types and across tags.
func (c *Catalog) Validate() error {
	if len(c.Types) == 0 {
		return fmt.Errorf("%w: no types", ErrInvalid)
	}
	typeIDs := make(map[int64]bool)
	typeContent := make(map[string]bool)
	tagIDs := make(map[int64]bool)
	tagContent := make(map[string]bool)

	for _, t := range c.Types {
		if t.ID <= 0 {
			return fmt.Errorf("%w: type id %d must be positive", ErrInvalid, t.ID)
		}
		if strings.TrimSpace(t.Content) == "" {
			return fmt.Errorf("%w: type %d has empty content", ErrInvalid, t.ID)
		}
		if typeIDs[t.ID] {
			return fmt.Errorf("%w: duplicate type id %d", ErrInvalid, t.ID)
		}
		if typeContent[t.Content] {
			return fmt.Errorf("%w: duplicate type content %q", ErrInvalid, t.Content)
		}
		typeIDs[t.ID] = true
		typeContent[t.Content] = true

		for _, g := range t.Tags {
			if g.ID <= 0 {
				return fmt.Errorf("%w: tag id %d must be positive", ErrInvalid, g.ID)
			}
			if strings.TrimSpace(g.Content) == "" {
				return fmt.Errorf("%w: tag %d has empty content", ErrInvalid, g.ID)
			}
			if tagIDs[g.ID] {
				return fmt.Errorf("%w: duplicate tag id %d", ErrInvalid, g.ID)
			}
			if tagContent[g.Content] {
				return fmt.Errorf("%w: duplicate tag content %q", ErrInvalid, g.Content)
			}
			tagIDs[g.ID] = true
			tagContent[g.Content] = true
		}
	}
	return nil
}

// TagCount returns the number of tags across all types.
func (c *Catalog) TagCount() int {
	n := 0
	for _, t := range c.Types {
		n += len(t.Tags)
	}
	return n
}
