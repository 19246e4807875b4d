package feed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"threatscout/internal/config"
	"threatscout/internal/logging"
	"threatscout/internal/models"
)

const fetchTimeout = 10 * time.Second

// Fetcher retrieves and normalizes one feed at a time.
type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
}

// NewFetcher creates a feed fetcher with a fixed request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
		parser: gofeed.NewParser(),
	}
}

// FetchFeed retrieves one feed and returns up to maxItems normalized items in
// the feed's native order. It never returns an error: network and parse
// failures yield an empty slice, so one dead source cannot poison a fan-out.
func (f *Fetcher) FetchFeed(ctx context.Context, source config.Source, vulnerability bool, maxItems int) []models.NewsItem {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		logging.Warnf("fetch %s: bad request: %v", source.Name, err)
		return nil
	}
	req.Header.Set("User-Agent", "threatscout/1.0 (+feed aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		// Resolution failures are routine in constrained environments and
		// would flood the log at twenty sources per request.
		if !isConnectivityError(err) {
			logging.Warnf("fetch %s failed: %v", source.Name, err)
		} else {
			logging.Debugf("fetch %s unreachable: %v", source.Name, err)
		}
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warnf("fetch %s: unexpected status code: %d", source.Name, resp.StatusCode)
		return nil
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		logging.Warnf("fetch %s: parse failed: %v", source.Name, err)
		return nil
	}

	items := make([]models.NewsItem, 0, maxItems)
	for _, entry := range parsed.Items {
		if len(items) >= maxItems {
			break
		}
		if item := normalizeEntry(entry, source.Name, vulnerability); item != nil {
			items = append(items, *item)
		}
	}
	return items
}

// isConnectivityError reports whether err is a plain reachability failure
// (DNS, refused connection, timeout) rather than something worth logging.
func isConnectivityError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
