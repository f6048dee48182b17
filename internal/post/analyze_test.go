package post

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordCountAndReadingTime(t *testing.T) {
	p := &Post{Body: []byte("one two three four five")}
	assert.Equal(t, 5, p.WordCount())
	assert.Equal(t, 1, p.ReadingTime())

	empty := &Post{}
	assert.Equal(t, 0, empty.WordCount())
	assert.Equal(t, 0, empty.ReadingTime())

	long := &Post{Body: []byte(strings.Repeat("word ", 401))}
	assert.Equal(t, 401, long.WordCount())
	assert.Equal(t, 3, long.ReadingTime())
}

func TestHeadings(t *testing.T) {
	body := `# Tv Maniac Journey

intro text

## Getting Started

### With *Compose* Multiplatform

done
`
	p := &Post{Body: []byte(body)}
	hs := p.Headings()
	require.Len(t, hs, 3)

	assert.Equal(t, Heading{Level: 1, Text: "Tv Maniac Journey", ID: "tv-maniac-journey"}, hs[0])
	assert.Equal(t, Heading{Level: 2, Text: "Getting Started", ID: "getting-started"}, hs[1])
	assert.Equal(t, 3, hs[2].Level)
	assert.Equal(t, "With Compose Multiplatform", hs[2].Text)
	assert.Equal(t, "with-compose-multiplatform", hs[2].ID)
}

func TestHeadings_None(t *testing.T) {
	p := &Post{Body: []byte("plain paragraph only\n")}
	assert.Empty(t, p.Headings())
}

func TestScaffold(t *testing.T) {
	now := time.Date(2023, 2, 14, 9, 30, 0, 0, time.UTC)
	name, content, err := Scaffold("Adding Swipe Refresh", ScaffoldOptions{
		Now:    now,
		Tags:   []string{"android"},
		Series: "Tv Maniac Journey",
	})
	require.NoError(t, err)
	assert.Equal(t, "adding-swipe-refresh.md", name)

	p, err := Parse(name, content)
	require.NoError(t, err)
	assert.Empty(t, p.FieldErrors)
	assert.Equal(t, "Adding Swipe Refresh", p.Meta.Title)
	assert.True(t, p.Meta.Draft, "new posts start as drafts")
	assert.False(t, p.Meta.HideToc)
	assert.Equal(t, []string{"android"}, p.Meta.Tags)
	assert.Equal(t, []string{"Tv Maniac Journey"}, p.Meta.Series)
	assert.True(t, now.Equal(p.Meta.Date))
}

func TestScaffold_Defaults(t *testing.T) {
	name, content, err := Scaffold("Hello", ScaffoldOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello.md", name)

	p, err := Parse(name, content)
	require.NoError(t, err)
	assert.NotNil(t, p.Meta.Tags)
	assert.Empty(t, p.Meta.Tags)
	assert.WithinDuration(t, time.Now(), p.Meta.Date, time.Minute)
}

func TestScaffold_BadTitle(t *testing.T) {
	_, _, err := Scaffold("", ScaffoldOptions{})
	require.Error(t, err)

	_, _, err = Scaffold("!!!", ScaffoldOptions{})
	require.Error(t, err)
}
