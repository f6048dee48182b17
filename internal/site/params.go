package site

import (
	"fmt"
	"regexp"
	"strings"
)

// MenuEntry is one navigation item. The generator's theme reads the
// capitalized keys (Name, URL, HasChildren) verbatim, so that casing is the
// contract even though TOML matching here is relaxed.
type MenuEntry struct {
	Name        string
	URL         string
	HasChildren bool
	Children    []MenuEntry
}

// SocialLink is one entry of [[params.social]].
type SocialLink struct {
	Name string
	URL  string
	Icon string
}

// Params is the loosely typed [params] table: a handful of known keys the
// tooling understands, hex color values split out for validation, and
// everything else passed through untouched.
type Params struct {
	Description  string
	MainSections []string
	Menu         []MenuEntry
	Social       []SocialLink
	Colors       map[string]string
	Extra        map[string]any
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// UnmarshalTOML implements toml.Unmarshaler. [params] has no fixed schema,
// so the table arrives as a raw map and gets sorted into known fields, color
// params, and passthrough.
func (p *Params) UnmarshalTOML(data any) error {
	table, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("params: expected a table, got %T", data)
	}

	for key, value := range table {
		switch strings.ToLower(key) {
		case "description":
			if s, ok := value.(string); ok {
				p.Description = s
				continue
			}
		case "mainsections":
			if list, ok := stringOrList(value); ok {
				p.MainSections = list
				continue
			}
		case "menu":
			entries, err := menuEntries(value)
			if err != nil {
				return err
			}
			p.Menu = entries
			continue
		case "social":
			links, err := socialLinks(value)
			if err != nil {
				return err
			}
			p.Social = links
			continue
		}

		// Anything shaped like a color belongs to the palette, valid or
		// not, so validation can see the broken ones too.
		if s, ok := value.(string); ok && strings.HasPrefix(s, "#") {
			if p.Colors == nil {
				p.Colors = map[string]string{}
			}
			p.Colors[key] = s
			continue
		}

		if p.Extra == nil {
			p.Extra = map[string]any{}
		}
		p.Extra[key] = value
	}
	return nil
}

// stringOrList accepts both `mainSections = "posts"` and a proper list.
func stringOrList(value any) ([]string, bool) {
	switch v := value.(type) {
	case string:
		return []string{v}, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func menuEntries(value any) ([]MenuEntry, error) {
	items, ok := value.([]map[string]any)
	if !ok {
		// toml also hands array-of-tables over as []any
		raw, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("params.menu: expected an array of tables, got %T", value)
		}
		items = make([]map[string]any, 0, len(raw))
		for _, it := range raw {
			m, ok := it.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("params.menu: expected a table entry, got %T", it)
			}
			items = append(items, m)
		}
	}

	entries := make([]MenuEntry, 0, len(items))
	for i, item := range items {
		entry, err := menuEntry(item)
		if err != nil {
			return nil, fmt.Errorf("params.menu[%d]: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func menuEntry(item map[string]any) (MenuEntry, error) {
	var entry MenuEntry
	for key, value := range item {
		switch strings.ToLower(key) {
		case "name":
			s, ok := value.(string)
			if !ok {
				return entry, fmt.Errorf("Name must be a string, got %T", value)
			}
			entry.Name = s
		case "url":
			s, ok := value.(string)
			if !ok {
				return entry, fmt.Errorf("URL must be a string, got %T", value)
			}
			entry.URL = s
		case "haschildren":
			b, ok := value.(bool)
			if !ok {
				return entry, fmt.Errorf("HasChildren must be a boolean, got %T", value)
			}
			entry.HasChildren = b
		case "children":
			children, err := menuEntries(value)
			if err != nil {
				return entry, err
			}
			entry.Children = children
		}
	}
	return entry, nil
}

func socialLinks(value any) ([]SocialLink, error) {
	raw, ok := value.([]map[string]any)
	if !ok {
		items, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("params.social: expected an array of tables, got %T", value)
		}
		raw = make([]map[string]any, 0, len(items))
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("params.social: expected a table entry, got %T", it)
			}
			raw = append(raw, m)
		}
	}

	links := make([]SocialLink, 0, len(raw))
	for _, item := range raw {
		var link SocialLink
		for key, value := range item {
			s, _ := value.(string)
			switch strings.ToLower(key) {
			case "name":
				link.Name = s
			case "url":
				link.URL = s
			case "icon":
				link.Icon = s
			}
		}
		links = append(links, link)
	}
	return links, nil
}
