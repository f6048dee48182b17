package frontmatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestString(t *testing.T) {
	fields := map[string]any{"title": "Post", "weight": 3, "empty": nil}

	v, ok := String(fields, "title")
	require.True(t, ok)
	require.Equal(t, "Post", v)

	_, ok = String(fields, "weight")
	require.False(t, ok)

	_, ok = String(fields, "empty")
	require.False(t, ok)

	_, ok = String(fields, "missing")
	require.False(t, ok)
}

func TestBool(t *testing.T) {
	fields := map[string]any{"draft": true, "hideToc": false, "title": "x"}

	v, ok := Bool(fields, "draft")
	require.True(t, ok)
	require.True(t, v)

	v, ok = Bool(fields, "hideToc")
	require.True(t, ok)
	require.False(t, v)

	_, ok = Bool(fields, "title")
	require.False(t, ok)
}

func TestStringList_AcceptsScalarAndList(t *testing.T) {
	cases := []struct {
		name   string
		value  any
		want   []string
		wantOK bool
	}{
		{"scalar", "Tv Maniac Journey", []string{"Tv Maniac Journey"}, true},
		{"any list", []any{"a", "b"}, []string{"a", "b"}, true},
		{"string list", []string{"a"}, []string{"a"}, true},
		{"mixed list", []any{"a", 3}, nil, false},
		{"number", 7, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := StringList(map[string]any{"series": tc.value}, "series")
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestTime_FromYAMLTimestamp(t *testing.T) {
	// Unquoted dates come out of the YAML parser as time.Time already.
	var fields map[string]any
	require.NoError(t, yaml.Unmarshal([]byte("date: 2022-05-03T10:00:00+03:00\n"), &fields))

	got, ok := Time(fields, "date")
	require.True(t, ok)
	require.Equal(t, 2022, got.Year())
	require.Equal(t, time.May, got.Month())
}

func TestTime_FromQuotedString(t *testing.T) {
	fields := map[string]any{"date": "2021-11-14"}

	got, ok := Time(fields, "date")
	require.True(t, ok)
	require.Equal(t, time.Date(2021, 11, 14, 0, 0, 0, 0, time.UTC), got)
}

func TestTime_Invalid(t *testing.T) {
	_, ok := Time(map[string]any{"date": "next tuesday"}, "date")
	require.False(t, ok)

	_, ok = Time(map[string]any{"date": 20220503}, "date")
	require.False(t, ok)

	_, ok = Time(map[string]any{}, "date")
	require.False(t, ok)
}

func TestParseTime_Layouts(t *testing.T) {
	for _, s := range []string{
		"2022-05-03",
		"2022-05-03T10:00:00+03:00",
		"2022-05-03T10:00:00Z",
		"2022-05-03 10:00:00",
	} {
		_, ok := ParseTime(s)
		require.True(t, ok, "layout for %q", s)
	}

	_, ok := ParseTime("")
	require.False(t, ok)
}

func TestHas(t *testing.T) {
	fields := map[string]any{"title": "x", "empty": nil}
	require.True(t, Has(fields, "title"))
	require.False(t, Has(fields, "empty"))
	require.False(t, Has(fields, "missing"))
}
