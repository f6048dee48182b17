package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeeperError_ErrorString(t *testing.T) {
	e := New(CategoryConfig, SeverityError, "config file missing")
	assert.Equal(t, "config (error): config file missing", e.Error())

	wrapped := Wrap(errors.New("open failed"), CategoryFileSystem, SeverityError, "cannot read post")
	assert.Equal(t, "filesystem (error): cannot read post: open failed", wrapped.Error())
}

func TestKeeperError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := Wrap(cause, CategoryNetwork, SeverityError, "request failed")

	require.ErrorIs(t, e, cause)
	require.Equal(t, cause, errors.Unwrap(e))
}

func TestKeeperError_Retryable(t *testing.T) {
	assert.True(t, IsRetryable(Retryable(CategoryNetwork, SeverityWarning, "timeout")))
	assert.True(t, IsRetryable(WrapRetryable(errors.New("conn reset"), CategoryNetwork, SeverityWarning, "flaky")))
	assert.False(t, IsRetryable(New(CategoryConfig, SeverityError, "bad config")))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}

func TestGetCategory(t *testing.T) {
	assert.Equal(t, CategoryLint, GetCategory(New(CategoryLint, SeverityWarning, "x")))
	assert.Equal(t, CategoryInternal, GetCategory(errors.New("untyped")))
}

func TestIsCategory(t *testing.T) {
	e := ConfigError("missing base url")
	assert.True(t, IsCategory(e, CategoryConfig))
	assert.False(t, IsCategory(e, CategoryGit))
	assert.False(t, IsCategory(errors.New("untyped"), CategoryConfig))
}

func TestWithContext(t *testing.T) {
	e := New(CategoryContent, SeverityError, "parse failed").
		WithContext("path", "content/posts/a.md").
		WithContext("line", 3)

	require.NotNil(t, e.Context)
	assert.Equal(t, "content/posts/a.md", e.Context["path"])
	assert.Equal(t, 3, e.Context["line"])
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	cases := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{errors.New("plain"), 1},
		{ValidationError("bad flag"), 2},
		{ConfigError("bad config"), 7},
		{New(CategoryGit, SeverityError, "clone failed"), 8},
		{New(CategoryNetwork, SeverityError, "timeout"), 8},
		{New(CategoryLint, SeverityError, "issues"), 11},
		{New(CategoryIndex, SeverityError, "db locked"), 12},
		{New(CategoryInternal, SeverityFatal, "bug"), 10},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, a.ExitCodeFor(tc.err), "err=%v", tc.err)
	}
}
