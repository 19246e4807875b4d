package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func servePage(t *testing.T, html string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPagePreview_OpenGraphDescription(t *testing.T) {
	server := servePage(t, `<html><head>
		<meta property="og:description" content="Attackers exploited a zero-day.">
		<meta name="description" content="generic site blurb">
	</head><body><p>`+strings.Repeat("b", 100)+`</p></body></html>`)

	got := NewFetcher().PagePreview(context.Background(), server.URL)
	assert.Equal(t, "Attackers exploited a zero-day.", got)
}

func TestPagePreview_MetaDescriptionFallback(t *testing.T) {
	server := servePage(t, `<html><head>
		<meta name="description" content="generic site blurb">
	</head><body></body></html>`)

	got := NewFetcher().PagePreview(context.Background(), server.URL)
	assert.Equal(t, "generic site blurb", got)
}

func TestPagePreview_FirstSubstantialParagraph(t *testing.T) {
	long := strings.Repeat("c", 120)
	server := servePage(t, `<html><body>
		<p>too short</p>
		<p>`+long+`</p>
	</body></html>`)

	got := NewFetcher().PagePreview(context.Background(), server.URL)
	assert.Equal(t, long, got)
}

func TestPagePreview_TruncatesLongDescription(t *testing.T) {
	server := servePage(t, `<html><head>
		<meta property="og:description" content="`+strings.Repeat("d", 700)+`">
	</head></html>`)

	got := NewFetcher().PagePreview(context.Background(), server.URL)
	assert.Len(t, []rune(got), maxSummaryLen)
}

func TestPagePreview_FailuresYieldEmpty(t *testing.T) {
	t.Run("empty link", func(t *testing.T) {
		assert.Empty(t, NewFetcher().PagePreview(context.Background(), ""))
	})

	t.Run("error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		t.Cleanup(server.Close)
		assert.Empty(t, NewFetcher().PagePreview(context.Background(), server.URL))
	})

	t.Run("unreachable host", func(t *testing.T) {
		server := httptest.NewServer(nil)
		url := server.URL
		server.Close()
		assert.Empty(t, NewFetcher().PagePreview(context.Background(), url))
	})

	t.Run("no usable content", func(t *testing.T) {
		server := servePage(t, `<html><body><p>short</p></body></html>`)
		assert.Empty(t, NewFetcher().PagePreview(context.Background(), server.URL))
	})
}
