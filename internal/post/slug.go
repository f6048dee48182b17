package post

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// dateStampPrefix matches a leading YYYY-MM-DD- file date stamp.
var dateStampPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-`)

// SlugFromFilename derives a post's slug from its file name.
//
// The extension and any leading date stamp are dropped, so both
// "installing-android-studio.md" and "2022-05-03-installing-android-studio.md"
// map to "installing-android-studio".
func SlugFromFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = dateStampPrefix.ReplaceAllString(base, "")
	return strings.ToLower(base)
}

// stripMarks removes combining marks after canonical decomposition, turning
// "Café" into "Cafe".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify turns a human title into a URL-safe slug: accents folded, lowered,
// and every run of non-alphanumerics collapsed to a single hyphen.
func Slugify(title string) string {
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

var titleCaser = cases.Title(language.English)

// TitleFromSlug reverses a slug into a display title: hyphens and
// underscores become spaces and each word is title-cased.
func TitleFromSlug(slug string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	s = strings.Join(strings.Fields(s), " ")
	return titleCaser.String(s)
}
