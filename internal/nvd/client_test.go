package nvd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threatscout/internal/feed"
	"threatscout/internal/models"
)

func serveNVD(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func cveJSON(id, published string, descriptions, metrics string) string {
	return fmt.Sprintf(`{"cve":{"id":%q,"published":%q,"descriptions":[%s],"metrics":{%s}}}`,
		id, published, descriptions, metrics)
}

func responseJSON(records ...string) string {
	return `{"vulnerabilities":[` + strings.Join(records, ",") + `]}`
}

func TestRecentVulnerabilities_ShapesRecords(t *testing.T) {
	body := responseJSON(cveJSON(
		"CVE-2024-12345",
		"2024-05-06T14:30:00.000",
		`{"lang":"en","value":"A heap overflow in the widget parser."}`,
		`"cvssMetricV31":[{"cvssData":{"baseScore":9.8}}]`,
	))
	server := serveNVD(t, http.StatusOK, body)

	items := NewClient(server.URL).RecentVulnerabilities(context.Background(), 5)

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "CVE-2024-12345: A heap overflow in the widget parser.", item.Title)
	assert.Equal(t, "https://nvd.nist.gov/vuln/detail/CVE-2024-12345", item.Link)
	assert.Equal(t, "NIST NVD", item.Source)
	assert.Equal(t, models.KindVulnerability, item.Kind)
	assert.Equal(t, "CVE-2024-12345", item.CVEID)
	assert.True(t, item.HasCVSS)
	assert.InDelta(t, 9.8, item.CVSSScore, 0.001)
	require.False(t, item.Published.IsZero())
	assert.Equal(t, 6, item.Published.Day())
}

func TestRecentVulnerabilities_PrefersEnglishDescription(t *testing.T) {
	body := responseJSON(cveJSON(
		"CVE-2024-11111",
		"2024-05-06T14:30:00.000",
		`{"lang":"es","value":"Desbordamiento de pila."},{"lang":"en","value":"Stack overflow."}`,
		"",
	))
	server := serveNVD(t, http.StatusOK, body)

	items := NewClient(server.URL).RecentVulnerabilities(context.Background(), 5)

	require.Len(t, items, 1)
	assert.Equal(t, "Stack overflow.", items[0].Summary)
}

func TestRecentVulnerabilities_FallsBackToFirstDescription(t *testing.T) {
	body := responseJSON(cveJSON(
		"CVE-2024-22222",
		"2024-05-06T14:30:00.000",
		`{"lang":"es","value":"Desbordamiento de pila."}`,
		"",
	))
	server := serveNVD(t, http.StatusOK, body)

	items := NewClient(server.URL).RecentVulnerabilities(context.Background(), 5)

	require.Len(t, items, 1)
	assert.Equal(t, "Desbordamiento de pila.", items[0].Summary)
}

func TestRecentVulnerabilities_MetricPreferenceOrder(t *testing.T) {
	cases := []struct {
		name    string
		metrics string
		want    float64
	}{
		{
			name:    "v31 beats v2",
			metrics: `"cvssMetricV2":[{"cvssData":{"baseScore":5.0}}],"cvssMetricV31":[{"cvssData":{"baseScore":8.1}}]`,
			want:    8.1,
		},
		{
			name:    "v30 beats v2",
			metrics: `"cvssMetricV2":[{"cvssData":{"baseScore":5.0}}],"cvssMetricV30":[{"cvssData":{"baseScore":6.4}}]`,
			want:    6.4,
		},
		{
			name:    "v2 alone",
			metrics: `"cvssMetricV2":[{"cvssData":{"baseScore":5.0}}]`,
			want:    5.0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := responseJSON(cveJSON("CVE-2024-33333", "2024-05-06T14:30:00.000",
				`{"lang":"en","value":"x"}`, tc.metrics))
			server := serveNVD(t, http.StatusOK, body)

			items := NewClient(server.URL).RecentVulnerabilities(context.Background(), 5)

			require.Len(t, items, 1)
			assert.True(t, items[0].HasCVSS)
			assert.InDelta(t, tc.want, items[0].CVSSScore, 0.001)
		})
	}
}

func TestRecentVulnerabilities_MissingDescriptionUsesPlaceholder(t *testing.T) {
	body := responseJSON(cveJSON("CVE-2024-77777", "2024-05-06T14:30:00.000", "", ""))
	server := serveNVD(t, http.StatusOK, body)

	items := NewClient(server.URL).RecentVulnerabilities(context.Background(), 5)

	require.Len(t, items, 1)
	assert.Equal(t, feed.PlaceholderSummary, items[0].Summary)
	assert.Equal(t, "CVE-2024-77777: "+feed.PlaceholderSummary, items[0].Title)
}

func TestRecentVulnerabilities_MissingScore(t *testing.T) {
	body := responseJSON(cveJSON("CVE-2024-44444", "2024-05-06T14:30:00.000",
		`{"lang":"en","value":"x"}`, ""))
	server := serveNVD(t, http.StatusOK, body)

	items := NewClient(server.URL).RecentVulnerabilities(context.Background(), 5)

	require.Len(t, items, 1)
	assert.False(t, items[0].HasCVSS)
	assert.Zero(t, items[0].CVSSScore)
}

func TestRecentVulnerabilities_CapsAtLimit(t *testing.T) {
	records := make([]string, 5)
	for i := range records {
		records[i] = cveJSON(fmt.Sprintf("CVE-2024-5000%d", i), "2024-05-06T14:30:00.000",
			`{"lang":"en","value":"x"}`, "")
	}
	server := serveNVD(t, http.StatusOK, responseJSON(records...))

	items := NewClient(server.URL).RecentVulnerabilities(context.Background(), 2)

	assert.Len(t, items, 2)
}

func TestRecentVulnerabilities_FailuresYieldEmpty(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := serveNVD(t, http.StatusServiceUnavailable, "upstream sad")
		assert.Empty(t, NewClient(server.URL).RecentVulnerabilities(context.Background(), 5))
	})

	t.Run("malformed body", func(t *testing.T) {
		server := serveNVD(t, http.StatusOK, "{not json")
		assert.Empty(t, NewClient(server.URL).RecentVulnerabilities(context.Background(), 5))
	})

	t.Run("unreachable host", func(t *testing.T) {
		server := httptest.NewServer(nil)
		url := server.URL
		server.Close()
		assert.Empty(t, NewClient(url).RecentVulnerabilities(context.Background(), 5))
	})

	t.Run("zero limit", func(t *testing.T) {
		server := serveNVD(t, http.StatusOK, responseJSON())
		assert.Empty(t, NewClient(server.URL).RecentVulnerabilities(context.Background(), 0))
	})
}

func TestRecentVulnerabilities_TruncatesLongDescription(t *testing.T) {
	long := strings.Repeat("a", 600)
	body := responseJSON(cveJSON("CVE-2024-66666", "2024-05-06T14:30:00.000",
		fmt.Sprintf(`{"lang":"en","value":%q}`, long), ""))
	server := serveNVD(t, http.StatusOK, body)

	items := NewClient(server.URL).RecentVulnerabilities(context.Background(), 5)

	require.Len(t, items, 1)
	assert.Len(t, []rune(items[0].Summary), 500)
	assert.Equal(t, "CVE-2024-66666: "+strings.Repeat("a", 100), items[0].Title)
}
