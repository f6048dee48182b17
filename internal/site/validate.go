package site

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/language"

	kerrors "git.home.luguber.info/inful/blogkeeper/internal/errors"
)

// Problem is one finding from config validation. Warnings are generator
// survivable; everything else would break or corrupt the built site.
type Problem struct {
	Field   string
	Message string
	Warning bool
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Field, p.Message)
}

// Problems validates the configuration and returns every finding, hard
// problems first, in a stable order.
func (c *Config) Problems() []Problem {
	var probs []Problem
	add := func(field, msg string) { probs = append(probs, Problem{Field: field, Message: msg}) }
	warn := func(field, msg string) { probs = append(probs, Problem{Field: field, Message: msg, Warning: true}) }

	switch u, err := url.Parse(c.BaseURL); {
	case c.BaseURL == "":
		add("baseURL", "is required")
	case err != nil:
		add("baseURL", fmt.Sprintf("is not a valid URL: %v", err))
	case !u.IsAbs() || u.Host == "":
		add("baseURL", fmt.Sprintf("must be absolute, got %q", c.BaseURL))
	case !strings.HasSuffix(u.Path, "/") && u.Path != "":
		warn("baseURL", "should end with a trailing slash")
	}

	if c.LanguageCode != "" {
		if _, err := language.Parse(c.LanguageCode); err != nil {
			warn("languageCode", fmt.Sprintf("%q is not a recognized language tag", c.LanguageCode))
		}
	}

	if c.Paginate <= 0 {
		add("paginate", fmt.Sprintf("must be positive, got %d", c.Paginate))
	}

	if c.Theme == "" {
		warn("theme", "is not set; the generator will need local layouts")
	}

	colorKeys := make([]string, 0, len(c.Params.Colors))
	for k := range c.Params.Colors {
		colorKeys = append(colorKeys, k)
	}
	sort.Strings(colorKeys)
	for _, k := range colorKeys {
		if v := c.Params.Colors[k]; !hexColor.MatchString(v) {
			add("params."+k, fmt.Sprintf("%q is not a #RGB or #RRGGBB color", v))
		}
	}

	probs = append(probs, menuProblems("params.menu", c.Params.Menu)...)

	for i, s := range c.Params.Social {
		field := fmt.Sprintf("params.social[%d]", i)
		if s.Name == "" {
			warn(field, "has no name")
		}
		if s.URL == "" {
			warn(field, "has no url")
		}
	}

	taxSingulars := make([]string, 0, len(c.Taxonomies))
	for singular := range c.Taxonomies {
		taxSingulars = append(taxSingulars, singular)
	}
	sort.Strings(taxSingulars)
	seenPlural := map[string]string{}
	for _, singular := range taxSingulars {
		plural := c.Taxonomies[singular]
		if singular == "" || plural == "" {
			add("taxonomies", "entries need both a singular key and a plural value")
			continue
		}
		if prev, dup := seenPlural[plural]; dup {
			add("taxonomies", fmt.Sprintf("%q and %q both map to %q", prev, singular, plural))
			continue
		}
		seenPlural[plural] = singular
	}

	sort.SliceStable(probs, func(i, j int) bool {
		return !probs[i].Warning && probs[j].Warning
	})
	return probs
}

func menuProblems(field string, entries []MenuEntry) []Problem {
	var probs []Problem
	seen := map[string]bool{}
	for i, e := range entries {
		ef := fmt.Sprintf("%s[%d]", field, i)
		if e.Name == "" {
			probs = append(probs, Problem{Field: ef, Message: "entry has no Name"})
		} else if seen[e.Name] {
			probs = append(probs, Problem{Field: ef, Message: fmt.Sprintf("duplicate menu entry %q", e.Name)})
		} else {
			seen[e.Name] = true
		}
		if e.URL == "" {
			probs = append(probs, Problem{Field: ef, Message: "entry has no URL"})
		}
		if e.HasChildren && len(e.Children) == 0 {
			probs = append(probs, Problem{Field: ef, Message: "HasChildren is true but no children are defined", Warning: true})
		}
		if !e.HasChildren && len(e.Children) > 0 {
			probs = append(probs, Problem{Field: ef, Message: "has children but HasChildren is false", Warning: true})
		}
		probs = append(probs, menuProblems(ef+".Children", e.Children)...)
	}
	return probs
}

// Validate returns an error when any hard problem exists. Warnings pass.
func (c *Config) Validate() error {
	var hard []string
	for _, p := range c.Problems() {
		if !p.Warning {
			hard = append(hard, p.String())
		}
	}
	if len(hard) > 0 {
		return kerrors.ValidationError("invalid site configuration: " + strings.Join(hard, "; "))
	}
	return nil
}
