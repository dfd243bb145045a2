package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Len(t, c.Types, 10)
	assert.Equal(t, 54, c.TagCount())

	ids := make([]int64, 0, len(c.Types))
	for _, typ := range c.Types {
		ids = append(ids, typ.ID)
	}
	assert.NotContains(t, ids, int64(1007))
	assert.Equal(t, int64(1001), ids[0])
	assert.Equal(t, int64(1011), ids[len(ids)-1])

	for _, typ := range c.Types {
		if typ.ID != 1006 {
			continue
		}
		assert.Equal(t, "古诗阅读与鉴赏", typ.Content)
		require.Len(t, typ.Tags, 6)
		assert.Equal(t, int64(2030), typ.Tags[0].ID)
		assert.Equal(t, int64(2035), typ.Tags[5].ID)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "types: []\n"},
		{"duplicate type id", "types:\n  - {id: 1, content: a}\n  - {id: 1, content: b}\n"},
		{"duplicate type content", "types:\n  - {id: 1, content: a}\n  - {id: 2, content: a}\n"},
		{"blank content", "types:\n  - {id: 1, content: '  '}\n"},
		{"duplicate tag id", "types:\n  - id: 1\n    content: a\n    tags: [{id: 5, content: x}, {id: 5, content: y}]\n"},
		{"duplicate tag content across types", "types:\n  - id: 1\n    content: a\n    tags: [{id: 5, content: x}]\n  - id: 2\n    content: b\n    tags: [{id: 6, content: x}]\n"},
		{"non-positive id", "types:\n  - {id: 0, content: a}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(strings.NewReader("types:\n  - {id: 1, content: a, colour: red}\n"))
	assert.Error(t, err)
}

func TestLoad_Valid(t *testing.T) {
	c, err := Load(strings.NewReader("types:\n  - id: 7\n    content: essay\n    tags:\n      - {id: 70, content: argument}\n"))
	require.NoError(t, err)
	require.Len(t, c.Types, 1)
	assert.Equal(t, []Tag{{ID: 70, Content: "argument"}}, c.Types[0].Tags)
}
