package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/post"
)

// ListCmd implements the 'list' command.
type ListCmd struct {
	Drafts  bool   `help:"Only drafts" xor:"selection"`
	All     bool   `short:"a" help:"Published and drafts both" xor:"selection"`
	Tag     string `help:"Only posts carrying this tag"`
	Series  string `help:"Only posts in this series"`
	Section string `help:"Only posts under this section"`
	Year    int    `help:"Only posts from this year"`
	Limit   int    `short:"n" help:"Show at most N posts (0 shows all)"`
	Format  string `short:"f" default:"table" help:"Output format (table or json)" enum:"table,json"`
}

// Run executes the list command.
func (cmd *ListCmd) Run(_ *Global, root *CLI) error {
	v, err := root.loadView("")
	if err != nil {
		return err
	}

	posts := v.Corpus.Published()
	if cmd.Drafts {
		posts = v.Corpus.Drafts()
	} else if cmd.All {
		posts = v.Corpus.Posts()
	}

	var selected []*post.Post
	for _, p := range posts {
		if cmd.Tag != "" && !matchFold(p.Meta.Tags, cmd.Tag) {
			continue
		}
		if cmd.Series != "" && !matchFold(p.Meta.Series, cmd.Series) {
			continue
		}
		if cmd.Section != "" && !strings.EqualFold(p.Section, cmd.Section) {
			continue
		}
		if cmd.Year != 0 && p.Year() != cmd.Year {
			continue
		}
		selected = append(selected, p)
	}
	if cmd.Limit > 0 && len(selected) > cmd.Limit {
		selected = selected[:cmd.Limit]
	}

	dirty := dirtyPosts(v, selected)

	if cmd.Format == "json" {
		return printPostsJSON(selected, dirty)
	}
	printPostsTable(selected, dirty)
	return nil
}

// dirtyPosts maps slugs of the selected posts that carry uncommitted
// changes. Outside a repository everything counts as clean.
func dirtyPosts(v *view, posts []*post.Post) map[string]bool {
	if v.Git == nil {
		return nil
	}
	uncommitted, err := v.Git.UncommittedPaths()
	if err != nil || len(uncommitted) == 0 {
		return nil
	}

	dirty := map[string]bool{}
	for _, p := range posts {
		rel, err := v.Git.RelPath(p.Path)
		if err != nil {
			continue
		}
		if uncommitted[rel] {
			dirty[p.Slug] = true
		}
	}
	return dirty
}

type listedPost struct {
	Slug    string    `json:"slug"`
	Title   string    `json:"title"`
	Date    time.Time `json:"date,omitzero"`
	Draft   bool      `json:"draft"`
	Dirty   bool      `json:"dirty,omitempty"`
	Section string    `json:"section,omitempty"`
	Tags    []string  `json:"tags"`
	Series  []string  `json:"series,omitempty"`
	Words   int       `json:"word_count"`
}

func printPostsJSON(posts []*post.Post, dirty map[string]bool) error {
	out := make([]listedPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, listedPost{
			Slug:    p.Slug,
			Title:   p.Meta.Title,
			Date:    p.Meta.Date,
			Draft:   p.Meta.Draft,
			Dirty:   dirty[p.Slug],
			Section: p.Section,
			Tags:    p.Meta.Tags,
			Series:  p.Meta.Series,
			Words:   p.WordCount(),
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printPostsTable(posts []*post.Post, dirty map[string]bool) {
	if len(posts) == 0 {
		fmt.Println("No posts matched.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSLUG\tTITLE\tTAGS")
	for _, p := range posts {
		date := "-"
		if !p.Meta.Date.IsZero() {
			date = p.Meta.Date.Format("2006-01-02")
		}
		slug := p.Slug
		if dirty[p.Slug] {
			slug += " *"
		}
		title := p.Meta.Title
		if title == "" {
			title = "(untitled)"
		}
		if p.Meta.Draft {
			title += " [draft]"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", date, slug, title, strings.Join(p.Meta.Tags, ", "))
	}
	_ = w.Flush()

	fmt.Printf("\n%d posts", len(posts))
	if len(dirty) > 0 {
		fmt.Printf(", * = uncommitted changes")
	}
	fmt.Println()
}

func matchFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
