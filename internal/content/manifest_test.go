package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pages(contents map[string]string) []PageFile {
	var out []PageFile
	for rel, body := range contents {
		out = append(out, PageFile{
			Path:         "content/posts/" + rel,
			RelativePath: rel,
			Content:      []byte(body),
		})
	}
	return out
}

func TestComputeTreeHash_Deterministic(t *testing.T) {
	a := pages(map[string]string{"a.md": "one", "b.md": "two"})
	b := pages(map[string]string{"b.md": "two", "a.md": "one"})

	assert.Equal(t, ComputeTreeHash(a), ComputeTreeHash(b), "order must not matter")
	assert.NotEmpty(t, ComputeTreeHash(nil))
	assert.NotEqual(t, ComputeTreeHash(a), ComputeTreeHash(nil))
}

func TestComputeTreeHash_SeesContent(t *testing.T) {
	before := pages(map[string]string{"a.md": "one"})
	after := pages(map[string]string{"a.md": "changed"})
	assert.NotEqual(t, ComputeTreeHash(before), ComputeTreeHash(after))
}

func TestChangedFiles(t *testing.T) {
	prev := NewManifest(pages(map[string]string{"a.md": "one", "b.md": "two", "c.md": "three"}))
	next := NewManifest(pages(map[string]string{"a.md": "one", "b.md": "edited", "d.md": "new"}))

	assert.Equal(t, []string{"b.md", "c.md", "d.md"}, ChangedFiles(prev, next))
	assert.Empty(t, ChangedFiles(prev, prev))
}

func TestManifest_JSONRoundTrip(t *testing.T) {
	m := NewManifest(pages(map[string]string{"a.md": "one"}))

	data, err := m.ToJSON()
	require.NoError(t, err)

	back, err := ManifestFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, m.Hash, back.Hash)
	require.Len(t, back.Files, 1)
	assert.Equal(t, "a.md", back.Files[0].RelativePath)
	assert.Equal(t, HashBytes([]byte("one")), back.Files[0].ContentHash)
}
