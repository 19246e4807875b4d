package feed

import (
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"threatscout/internal/models"
)

const (
	// maxSummaryLen bounds item summaries after HTML stripping. The cut is a
	// plain rune slice, no ellipsis; the rendering layer adds its own marker.
	maxSummaryLen = 500

	// PlaceholderSummary fills in for items whose feed carried no body text.
	// Consumers compare against it to decide whether a page preview is worth
	// fetching.
	PlaceholderSummary = "No description available."
)

var (
	htmlTagPattern = regexp.MustCompile(`<[^<]+?>`)
	cvePattern     = regexp.MustCompile(`CVE-\d{4}-\d{4,}`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
)

// cleanHTML strips markup tags and decodes the handful of entities that show
// up in feed summaries.
func cleanHTML(text string) string {
	if text == "" || !strings.Contains(text, "<") {
		return strings.TrimSpace(entityReplacer.Replace(text))
	}
	text = htmlTagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(entityReplacer.Replace(text))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// normalizeEntry shapes one raw feed entry into a NewsItem. A nil return means
// the entry was unusable; one bad entry never aborts its feed.
func normalizeEntry(entry *gofeed.Item, sourceName string, vulnerability bool) *models.NewsItem {
	if entry == nil {
		return nil
	}

	title := entry.Title
	if title == "" {
		title = "Untitled"
	}

	// Prefer the summary-ish field, fall back to full content, then to a
	// fixed placeholder.
	summary := firstNonEmpty(strings.TrimSpace(entry.Description), strings.TrimSpace(entry.Content), PlaceholderSummary)
	summary = truncate(cleanHTML(summary), maxSummaryLen)

	item := &models.NewsItem{
		Title:   title,
		Link:    entry.Link,
		Summary: summary,
		Source:  sourceName,
		Kind:    models.KindNews,
	}

	// Date parse failures leave the zero time; the aggregator sorts those last.
	if entry.PublishedParsed != nil {
		item.Published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		item.Published = *entry.UpdatedParsed
	}

	if vulnerability {
		item.Kind = models.KindVulnerability
		if match := cvePattern.FindString(entry.Title + " " + entry.Link); match != "" {
			item.CVEID = match
		}
	}

	return item
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
