// Package nvd queries the NIST National Vulnerability Database REST API for
// recently published CVE records.
package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/text/language"

	"threatscout/internal/feed"
	"threatscout/internal/logging"
	"threatscout/internal/models"
)

const (
	defaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

	// pageCap is the API-imposed maximum page size we request.
	pageCap = 20

	// lookback is the publication window queried on each call.
	lookback = 7 * 24 * time.Hour

	requestTimeout = 10 * time.Second
)

// Client talks to the NVD API. The reference deployment needs no credential;
// the API is public and rate-limited.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an NVD client. An empty baseURL uses the public endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// API response shape, trimmed to the fields we read.
type apiResponse struct {
	Vulnerabilities []struct {
		CVE cveRecord `json:"cve"`
	} `json:"vulnerabilities"`
}

type cveRecord struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics map[string][]struct {
		CVSSData struct {
			BaseScore float64 `json:"baseScore"`
		} `json:"cvssData"`
	} `json:"metrics"`
}

// metricPreference orders scoring standards newest first.
var metricPreference = []string{"cvssMetricV31", "cvssMetricV30", "cvssMetricV2"}

var englishMatcher = language.NewMatcher([]language.Tag{language.English})

// RecentVulnerabilities returns CVEs published in the trailing seven days,
// at most limit items. All failures collapse to an empty slice; the
// aggregation path treats this source like any other unreliable feed.
func (c *Client) RecentVulnerabilities(ctx context.Context, limit int) []models.NewsItem {
	if limit <= 0 {
		return nil
	}

	end := time.Now()
	start := end.Add(-lookback)

	params := url.Values{}
	params.Set("resultsPerPage", fmt.Sprintf("%d", min(limit, pageCap)))
	params.Set("pubStartDate", start.Format("2006-01-02T00:00:00.000"))
	params.Set("pubEndDate", end.Format("2006-01-02T23:59:59.999"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logging.Warnf("nvd: request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warnf("nvd: unexpected status code: %d", resp.StatusCode)
		return nil
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		logging.Warnf("nvd: decode failed: %v", err)
		return nil
	}

	items := make([]models.NewsItem, 0, limit)
	for _, vuln := range data.Vulnerabilities {
		if len(items) >= limit {
			break
		}
		items = append(items, recordToItem(vuln.CVE))
	}
	return items
}

// recordToItem shapes one NVD record into the uniform NewsItem form.
func recordToItem(rec cveRecord) models.NewsItem {
	id := rec.ID
	if id == "" {
		id = "Unknown"
	}

	description := pickDescription(rec)

	item := models.NewsItem{
		Title:   fmt.Sprintf("%s: %s", id, shorten(description, 100)),
		Link:    "https://nvd.nist.gov/vuln/detail/" + id,
		Summary: shorten(description, 500),
		Source:  "NIST NVD",
		Kind:    models.KindVulnerability,
		CVEID:   id,
	}

	if t, err := time.Parse("2006-01-02T15:04:05.000", rec.Published); err == nil {
		item.Published = t
	} else if t, err := time.Parse(time.RFC3339, rec.Published); err == nil {
		item.Published = t
	}

	for _, key := range metricPreference {
		if metrics := rec.Metrics[key]; len(metrics) > 0 {
			item.CVSSScore = metrics[0].CVSSData.BaseScore
			item.HasCVSS = true
			break
		}
	}

	return item
}

// pickDescription prefers the English-language description, falling back to
// the first one in any language.
func pickDescription(rec cveRecord) string {
	for _, desc := range rec.Descriptions {
		tag, err := language.Parse(desc.Lang)
		if err != nil {
			continue
		}
		if _, _, conf := englishMatcher.Match(tag); conf >= language.High && desc.Value != "" {
			return desc.Value
		}
	}
	if len(rec.Descriptions) > 0 && rec.Descriptions[0].Value != "" {
		return rec.Descriptions[0].Value
	}
	return feed.PlaceholderSummary
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
