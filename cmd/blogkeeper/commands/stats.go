package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// StatsCmd implements the 'stats' command.
type StatsCmd struct {
	Format    string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	FromIndex bool   `name:"from-index" help:"Read the last recorded scan instead of walking the tree"`
	Index     string `help:"Index database path" default:".blogkeeper/index.db"`
}

// Run executes the stats command.
func (cmd *StatsCmd) Run(_ *Global, root *CLI) error {
	if cmd.FromIndex {
		return cmd.fromIndex()
	}
	return cmd.fromTree(root)
}

func (cmd *StatsCmd) fromIndex() error {
	ix, err := openIndex(cmd.Index)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()

	stats, err := ix.Stats(context.Background())
	if err != nil {
		return err
	}

	if cmd.Format == "json" {
		return printIndented(stats)
	}

	fmt.Printf("Last recorded scan %s (%s)\n\n", stats.ScanID, stats.ScannedAt.Format("2006-01-02 15:04"))
	fmt.Printf("  Posts:  %d (%d published, %d drafts)\n", stats.PostsTotal, stats.Published, stats.Drafts)
	fmt.Printf("  Words:  %d\n", stats.WordsTotal)
	fmt.Printf("  Tags:   %d distinct\n", len(stats.TagCounts))
	printYears(stats.ByYear)
	return nil
}

type treeStats struct {
	PostsTotal     int            `json:"posts_total"`
	Published      int            `json:"published"`
	Drafts         int            `json:"drafts"`
	Sections       []string       `json:"sections,omitempty"`
	ByYear         map[int]int    `json:"by_year"`
	Tags           int            `json:"tags"`
	Series         int            `json:"series"`
	WordsTotal     int            `json:"words_total"`
	ReadingMinutes int            `json:"reading_minutes"`
	ParseFailures  int            `json:"parse_failures"`
	TagCounts      map[string]int `json:"tag_counts"`
}

func (cmd *StatsCmd) fromTree(root *CLI) error {
	v, err := root.loadView("")
	if err != nil {
		return err
	}

	stats := treeStats{
		PostsTotal:    v.Corpus.Len(),
		Published:     len(v.Corpus.Published()),
		Drafts:        len(v.Corpus.Drafts()),
		Sections:      v.Corpus.Sections(),
		ByYear:        map[int]int{},
		Tags:          v.Taxonomy.TermCount("tags"),
		Series:        v.Taxonomy.TermCount("series"),
		ParseFailures: len(v.Corpus.Failures()),
		TagCounts:     map[string]int{},
	}
	for year, posts := range v.Corpus.ByYear() {
		stats.ByYear[year] = len(posts)
	}
	for _, p := range v.Corpus.Posts() {
		stats.WordsTotal += p.WordCount()
		stats.ReadingMinutes += p.ReadingTime()
	}
	for _, term := range v.Taxonomy.Terms("tags") {
		stats.TagCounts[term.Name] = term.Count()
	}

	if cmd.Format == "json" {
		return printIndented(stats)
	}

	fmt.Printf("Content statistics for %s\n\n", v.ContentDir)
	fmt.Printf("  Posts:    %d (%d published, %d drafts)\n", stats.PostsTotal, stats.Published, stats.Drafts)
	fmt.Printf("  Words:    %d (%d minutes of reading)\n", stats.WordsTotal, stats.ReadingMinutes)
	if len(stats.Sections) > 0 {
		fmt.Printf("  Sections: %s\n", strings.Join(stats.Sections, ", "))
	}
	fmt.Printf("  Tags:     %d distinct\n", stats.Tags)
	fmt.Printf("  Series:   %d distinct\n", stats.Series)
	if stats.ParseFailures > 0 {
		fmt.Printf("  Failures: %d\n", stats.ParseFailures)
	}
	printYears(stats.ByYear)

	if top := topTerms(stats.TagCounts, 5); len(top) > 0 {
		fmt.Printf("\n  Top tags: %s\n", strings.Join(top, ", "))
	}
	return nil
}

func printYears(byYear map[int]int) {
	if len(byYear) == 0 {
		return
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	fmt.Println("\n  By year:")
	for _, y := range years {
		label := fmt.Sprintf("%d", y)
		if y == 0 {
			label = "undated"
		}
		fmt.Printf("    %-7s %d\n", label, byYear[y])
	}
}

func topTerms(counts map[string]int, n int) []string {
	type tc struct {
		name  string
		count int
	}
	terms := make([]tc, 0, len(counts))
	for name, count := range counts {
		terms = append(terms, tc{name, count})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].name < terms[j].name
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, fmt.Sprintf("%s (%d)", t.name, t.count))
	}
	return out
}

func printIndented(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
