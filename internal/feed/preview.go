package feed

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"threatscout/internal/logging"
)

// PagePreview fetches the article page behind a link and extracts a short
// description, used to fill in items whose feed carried no usable summary.
// It returns "" on any failure.
func (f *Fetcher) PagePreview(ctx context.Context, link string) string {
	if link == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "threatscout/1.0 (+feed aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		logging.Debugf("preview %s unreachable: %v", link, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	// og:description is the most reliable short form; the first real
	// paragraph is the fallback.
	if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			return truncate(desc, maxSummaryLen)
		}
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			return truncate(desc, maxSummaryLen)
		}
	}

	var paragraph string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) >= 80 {
			paragraph = text
			return false
		}
		return true
	})
	return truncate(paragraph, maxSummaryLen)
}
