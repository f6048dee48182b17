package content

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postDoc(title, date string, draft bool) string {
	return fmt.Sprintf("---\ntitle: %q\ndate: %s\ndraft: %v\ntags:\n  - android\n---\nbody\n", title, date, draft)
}

func loadTestCorpus(t *testing.T) *Corpus {
	t.Helper()
	root := filepath.Join(t.TempDir(), "posts")
	writeFile(t, root, "installing-android-studio.md", postDoc("Installing Android Studio", "2021-11-02T10:00:00+03:00", false))
	writeFile(t, root, "going-modular.md", postDoc("Going Modular", "2022-05-03T21:12:33+03:00", false))
	writeFile(t, root, "battle-of-the-navigators.md", postDoc("Battle of the Navigators", "2023-01-10T08:00:00+03:00", true))
	writeFile(t, root, "battle-of-the-navigators-2.md", postDoc("battle of the navigators", "2023-01-10T17:30:00+03:00", true))
	writeFile(t, root, "kmp/sharing-code.md", postDoc("Sharing Code", "2022-01-20T09:00:00+03:00", false))
	writeFile(t, root, "broken.md", "---\ntitle: Broken\nno closing fence\n")
	writeFile(t, root, "_index.md", "")

	c, err := LoadCorpus(root)
	require.NoError(t, err)
	return c
}

func TestCorpus_LoadAndOrder(t *testing.T) {
	c := loadTestCorpus(t)

	require.Equal(t, 5, c.Len())
	require.Len(t, c.Failures(), 1)
	require.Len(t, c.SectionStubs(), 1)

	slugs := make([]string, 0, c.Len())
	for _, p := range c.Posts() {
		slugs = append(slugs, p.Slug)
	}
	// newest first, slug ascending inside the same instant
	assert.Equal(t, []string{
		"battle-of-the-navigators-2",
		"battle-of-the-navigators",
		"going-modular",
		"sharing-code",
		"installing-android-studio",
	}, slugs)
}

func TestCorpus_PublishedAndDrafts(t *testing.T) {
	c := loadTestCorpus(t)
	assert.Len(t, c.Published(), 3)
	assert.Len(t, c.Drafts(), 2)
}

func TestCorpus_Find(t *testing.T) {
	c := loadTestCorpus(t)
	p := c.Find("going-modular")
	require.NotNil(t, p)
	assert.Equal(t, "Going Modular", p.Meta.Title)
	assert.Nil(t, c.Find("missing-slug"))
}

func TestCorpus_ByYear(t *testing.T) {
	c := loadTestCorpus(t)
	byYear := c.ByYear()
	assert.Len(t, byYear[2021], 1)
	assert.Len(t, byYear[2022], 2)
	assert.Len(t, byYear[2023], 2)
}

func TestCorpus_Sections(t *testing.T) {
	c := loadTestCorpus(t)
	assert.Equal(t, []string{"", "kmp"}, c.Sections())
}

func TestCorpus_Duplicates(t *testing.T) {
	c := loadTestCorpus(t)

	dups := c.Duplicates()
	require.Len(t, dups, 1)
	group := dups[0]
	assert.Equal(t, "2023-01-10", group.Day)
	require.Len(t, group.Posts, 2)

	// case difference and time-of-day difference do not break the match
	assert.ElementsMatch(t,
		[]string{"battle-of-the-navigators", "battle-of-the-navigators-2"},
		[]string{group.Posts[0].Slug, group.Posts[1].Slug})
}

func TestCorpus_DuplicatesNeedIdentity(t *testing.T) {
	root := filepath.Join(t.TempDir(), "posts")
	// same (missing) title and date must not collide
	writeFile(t, root, "a.md", "---\ndraft: true\n---\n")
	writeFile(t, root, "b.md", "---\ndraft: true\n---\n")

	c, err := LoadCorpus(root)
	require.NoError(t, err)
	assert.Empty(t, c.Duplicates())
}
