package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"threatscout/internal/config"
	"threatscout/internal/logging"
	"threatscout/internal/models"
)

const (
	// itemsPerSource caps how much any single feed contributes to a fan-out.
	itemsPerSource = 2

	// collectTimeout is the per-task result collection ceiling. A straggling
	// fetch past it is abandoned, not cancelled; the request proceeds with
	// whatever completed.
	collectTimeout = 5 * time.Second

	// vulnFeedPause spaces sequential vulnerability-feed fetches to respect
	// their rate limits.
	vulnFeedPause = 100 * time.Millisecond

	// nvdEnrichCount is how many structured NVD records supplement a mixed
	// news request.
	nvdEnrichCount = 3
)

// Enricher supplies structured vulnerability records; the NVD client
// implements it.
type Enricher interface {
	RecentVulnerabilities(ctx context.Context, limit int) []models.NewsItem
}

// Aggregator fans out feed fetches across a bounded worker pool and merges
// the results into one ranked list. Construct one at startup and reuse it;
// it holds no request state.
type Aggregator struct {
	fetcher       *Fetcher
	enricher      Enricher
	newsSources   []config.Source
	vulnSources   []config.Source
	workers       int
	collectWindow time.Duration
	pacer         *rate.Limiter
}

// NewAggregator creates an aggregator with the given pool width. The enricher
// may be nil, in which case structured vulnerability records are skipped.
func NewAggregator(fetcher *Fetcher, enricher Enricher, newsSources, vulnSources []config.Source, workers int) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		fetcher:       fetcher,
		enricher:      enricher,
		newsSources:   newsSources,
		vulnSources:   vulnSources,
		workers:       workers,
		collectWindow: collectTimeout,
		pacer:         rate.NewLimiter(rate.Every(vulnFeedPause), 1),
	}
}

// LatestNews fetches the freshest items across all configured sources,
// descending by publish date, at most limit items. No single source failure
// is fatal; with every source down the result is simply empty.
func (a *Aggregator) LatestNews(ctx context.Context, limit int, includeVulns bool) []models.NewsItem {
	items := a.fanOut(ctx, a.newsSources, false, itemsPerSource)

	if includeVulns {
		items = append(items, a.fetchVulnFeeds(ctx, itemsPerSource)...)
		if a.enricher != nil {
			items = append(items, a.enricher.RecentVulnerabilities(ctx, nvdEnrichCount)...)
		}
	}

	sortByDate(items)
	return head(items, limit)
}

// VulnerabilitiesOnly skips the general news fan-out and returns only
// vulnerability items.
func (a *Aggregator) VulnerabilitiesOnly(ctx context.Context, limit int) []models.NewsItem {
	items := a.fetchVulnFeeds(ctx, 3)
	if a.enricher != nil {
		items = append(items, a.enricher.RecentVulnerabilities(ctx, limit)...)
	}

	sortByDate(items)
	return head(items, limit)
}

// fanOut runs one fetch per source on the worker pool and collects whatever
// completes within the per-task collection window.
func (a *Aggregator) fanOut(ctx context.Context, sources []config.Source, vulnerability bool, perSource int) []models.NewsItem {
	if len(sources) == 0 {
		return nil
	}

	jobs := make(chan config.Source)
	results := make(chan []models.NewsItem, len(sources))

	var wg sync.WaitGroup
	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				results <- a.fetcher.FetchFeed(ctx, src, vulnerability, perSource)
			}
		}()
	}

	go func() {
		for _, src := range sources {
			jobs <- src
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var items []models.NewsItem
	timer := time.NewTimer(a.collectWindow)
	defer timer.Stop()

	for remaining := len(sources); remaining > 0; remaining-- {
		select {
		case batch := <-results:
			items = append(items, batch...)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(a.collectWindow)
		case <-timer.C:
			logging.Warnf("feed fan-out: dropped %d straggling source(s)", remaining)
			return items
		case <-ctx.Done():
			return items
		}
	}
	return items
}

// fetchVulnFeeds polls the vulnerability-oriented feeds sequentially, paced
// to stay inside their rate limits.
func (a *Aggregator) fetchVulnFeeds(ctx context.Context, perSource int) []models.NewsItem {
	var items []models.NewsItem
	for _, src := range a.vulnSources {
		if err := a.pacer.Wait(ctx); err != nil {
			return items
		}
		items = append(items, a.fetcher.FetchFeed(ctx, src, true, perSource)...)
	}
	return items
}

// sortByDate orders items newest first. Items without a parseable date carry
// the zero time and therefore sink to the end; ties keep collection order.
func sortByDate(items []models.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Published.After(items[j].Published)
	})
}

func head(items []models.NewsItem, limit int) []models.NewsItem {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
