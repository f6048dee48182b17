package linkcheck

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func testChecker(t *testing.T, cache Cache, rt roundTripperFunc, resolve func(Ref) bool) *Checker {
	t.Helper()
	c := New(Options{MaxConcurrent: 4}, cache, nil, resolve)
	c.client.Transport = rt
	return c
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Status: http.StatusText(status), Body: http.NoBody}
}

func TestChecker_ReportsBrokenAndOK(t *testing.T) {
	cache := NewMemoryCache(time.Hour, time.Minute)
	c := testChecker(t, cache, func(r *http.Request) (*http.Response, error) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			return response(http.StatusNotFound), nil
		}
		return response(http.StatusOK), nil
	}, nil)

	refs := []Ref{
		{URL: "https://example.com/ok", Sources: []string{"a.md"}},
		{URL: "https://example.com/missing", Sources: []string{"a.md", "b.md"}},
	}
	report, err := c.Check(context.Background(), refs)
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, 1, report.OKCount())

	broken := report.Broken()
	require.Len(t, broken, 1)
	assert.Equal(t, "https://example.com/missing", broken[0].URL)
	assert.Equal(t, http.StatusNotFound, broken[0].Status)
	assert.Contains(t, broken[0].Error, "404")
	assert.ElementsMatch(t, []string{"a.md", "b.md"}, broken[0].Sources)

	entry, err := cache.Get(context.Background(), "https://example.com/missing")
	require.NoError(t, err)
	assert.False(t, entry.IsValid)
	assert.Equal(t, 1, entry.FailureCount)
	assert.True(t, entry.ConsecutiveFail)
}

func TestChecker_UsesCachedResults(t *testing.T) {
	cache := NewMemoryCache(time.Hour, time.Minute)
	require.NoError(t, cache.Set(context.Background(), &CacheEntry{
		URL:         "https://example.com/ok",
		Status:      http.StatusOK,
		IsValid:     true,
		LastChecked: time.Now(),
	}))

	var calls int
	var mu sync.Mutex
	c := testChecker(t, cache, func(*http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return response(http.StatusOK), nil
	}, nil)

	report, err := c.Check(context.Background(), []Ref{{URL: "https://example.com/ok"}})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].OK)
	assert.True(t, report.Results[0].Cached)
	assert.Equal(t, 0, calls, "fresh cache entries must not hit the network")
}

func TestChecker_FailureCountAccumulates(t *testing.T) {
	cache := NewMemoryCache(time.Hour, 0) // failures never fresh, always rechecked
	c := testChecker(t, cache, func(*http.Request) (*http.Response, error) {
		return response(http.StatusNotFound), nil
	}, nil)

	for range 3 {
		_, err := c.Check(context.Background(), []Ref{{URL: "https://example.com/gone"}})
		require.NoError(t, err)
	}

	entry, err := cache.Get(context.Background(), "https://example.com/gone")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.FailureCount)
	assert.False(t, entry.FirstFailedAt.IsZero())
}

func TestChecker_HeadFallsBackToGet(t *testing.T) {
	var methods []string
	var mu sync.Mutex
	c := testChecker(t, nil, func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
		if r.Method == http.MethodHead {
			return response(http.StatusMethodNotAllowed), nil
		}
		return response(http.StatusOK), nil
	}, nil)

	report, err := c.Check(context.Background(), []Ref{{URL: "https://example.com/no-head"}})
	require.NoError(t, err)

	assert.True(t, report.Results[0].OK)
	assert.Equal(t, []string{http.MethodHead, http.MethodGet}, methods)
}

func TestChecker_AuthWallsAreNotBroken(t *testing.T) {
	c := testChecker(t, nil, func(*http.Request) (*http.Response, error) {
		return response(http.StatusForbidden), nil
	}, nil)

	report, err := c.Check(context.Background(), []Ref{{URL: "https://example.com/private"}})
	require.NoError(t, err)

	assert.True(t, report.Results[0].OK)
	assert.Equal(t, http.StatusForbidden, report.Results[0].Status)
}

func TestChecker_InternalResolution(t *testing.T) {
	c := testChecker(t, nil, nil, func(ref Ref) bool {
		return ref.URL == "/posts/known/"
	})

	report, err := c.Check(context.Background(), []Ref{
		{URL: "/posts/known/", Internal: true},
		{URL: "/posts/ghost/", Internal: true, Sources: []string{"a.md"}},
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	broken := report.Broken()
	require.Len(t, broken, 1)
	assert.Equal(t, "/posts/ghost/", broken[0].URL)
}

func TestChecker_SkipsInternalWithoutResolver(t *testing.T) {
	c := testChecker(t, nil, nil, nil)

	report, err := c.Check(context.Background(), []Ref{{URL: "/posts/any/", Internal: true}})
	require.NoError(t, err)

	assert.True(t, report.Results[0].Skipped)
	assert.Empty(t, report.Broken())
}

type publishRecorder struct {
	*MemoryCache
	mu     sync.Mutex
	events []*BrokenLinkEvent
}

func (p *publishRecorder) PublishBroken(_ context.Context, event *BrokenLinkEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func TestChecker_PublishesBrokenEvents(t *testing.T) {
	rec := &publishRecorder{MemoryCache: NewMemoryCache(time.Hour, time.Minute)}
	c := testChecker(t, rec, func(*http.Request) (*http.Response, error) {
		return response(http.StatusGone), nil
	}, nil)
	c.opts.ScanID = "scan-123"

	_, err := c.Check(context.Background(), []Ref{{URL: "https://example.com/gone", Sources: []string{"a.md"}}})
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	event := rec.events[0]
	assert.Equal(t, "https://example.com/gone", event.URL)
	assert.Equal(t, http.StatusGone, event.Status)
	assert.Equal(t, "scan-123", event.ScanID)
	assert.Equal(t, []string{"a.md"}, event.Sources)
	assert.Equal(t, 1, event.FailureCount)
}

func TestChecker_SecondRunRejected(t *testing.T) {
	c := testChecker(t, nil, func(*http.Request) (*http.Response, error) {
		time.Sleep(50 * time.Millisecond)
		return response(http.StatusOK), nil
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Check(context.Background(), []Ref{{URL: "https://example.com/slow"}})
	}()

	time.Sleep(10 * time.Millisecond)
	_, err := c.Check(context.Background(), []Ref{{URL: "https://example.com/other"}})
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	<-done
}
