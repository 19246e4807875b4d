package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threatscout/internal/models"
)

func TestNormalizeEntry_Defaults(t *testing.T) {
	item := normalizeEntry(&gofeed.Item{}, "somewhere", false)

	require.NotNil(t, item)
	assert.Equal(t, "Untitled", item.Title)
	assert.Equal(t, "", item.Link)
	assert.Equal(t, PlaceholderSummary, item.Summary)
	assert.Equal(t, "somewhere", item.Source)
	assert.Equal(t, models.KindNews, item.Kind)
	assert.True(t, item.Published.IsZero())
}

func TestNormalizeEntry_StripsHTMLAndDecodesEntities(t *testing.T) {
	entry := &gofeed.Item{
		Title:       "Breach report",
		Link:        "https://example.com/breach",
		Description: "<p>Attackers &amp; bots use &lt;script&gt; tags.&nbsp;More at &quot;the blog&quot;.</p>",
	}

	item := normalizeEntry(entry, "src", false)

	require.NotNil(t, item)
	assert.Equal(t, `Attackers & bots use <script> tags. More at "the blog".`, item.Summary)
}

func TestNormalizeEntry_SummaryLengthBound(t *testing.T) {
	long := strings.Repeat("a", 2000)
	item := normalizeEntry(&gofeed.Item{Title: "t", Description: long}, "src", false)

	require.NotNil(t, item)
	assert.Len(t, []rune(item.Summary), 500)
	// Pure truncation, no ellipsis marker.
	assert.False(t, strings.HasSuffix(item.Summary, "..."))
}

func TestNormalizeEntry_ContentFallback(t *testing.T) {
	item := normalizeEntry(&gofeed.Item{Title: "t", Content: "full body text"}, "src", false)

	require.NotNil(t, item)
	assert.Equal(t, "full body text", item.Summary)
}

func TestNormalizeEntry_PublishedDate(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	item := normalizeEntry(&gofeed.Item{Title: "t", PublishedParsed: &when}, "src", false)

	require.NotNil(t, item)
	assert.Equal(t, when, item.Published)
}

func TestNormalizeEntry_CVEExtraction(t *testing.T) {
	tests := []struct {
		name  string
		entry *gofeed.Item
		want  string
	}{
		{"in title", &gofeed.Item{Title: "Critical CVE-2024-12345 exploited in the wild"}, "CVE-2024-12345"},
		{"in link", &gofeed.Item{Title: "Critical bug", Link: "https://example.com/CVE-2023-99999"}, "CVE-2023-99999"},
		{"long sequence", &gofeed.Item{Title: "CVE-2024-1234567 advisory"}, "CVE-2024-1234567"},
		{"absent", &gofeed.Item{Title: "No identifier here"}, ""},
		{"too short", &gofeed.Item{Title: "CVE-2024-123 is malformed"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := normalizeEntry(tt.entry, "vulnsrc", true)
			require.NotNil(t, item)
			assert.Equal(t, models.KindVulnerability, item.Kind)
			assert.Equal(t, tt.want, item.CVEID)
		})
	}
}

func TestNormalizeEntry_NewsSourceSkipsCVEScan(t *testing.T) {
	item := normalizeEntry(&gofeed.Item{Title: "CVE-2024-12345 mentioned in passing"}, "news", false)

	require.NotNil(t, item)
	assert.Equal(t, models.KindNews, item.Kind)
	assert.Empty(t, item.CVEID)
}
