package bot

import (
	"context"
	"time"

	"threatscout/internal/feed"
	"threatscout/internal/logging"
)

const digestLimit = 5

// PostDigest fetches the current top headlines and posts them to the
// configured news channel. Wired to the cron schedule from the bootstrap;
// safe to call manually.
func (b *Bot) PostDigest() {
	if b.cfg.NewsChannelID == "" {
		logging.Warnf("digest: NEWS_CHANNEL_ID not configured, skipping")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	items := b.aggregator.LatestNews(ctx, digestLimit, true)
	if len(items) == 0 {
		logging.Warnf("digest: no items fetched, nothing to post")
		return
	}

	// Feeds that ship no body text get a page preview so the digest is not a
	// wall of placeholders.
	for idx := range items {
		if items[idx].Summary == feed.PlaceholderSummary {
			if preview := b.fetcher.PagePreview(ctx, items[idx].Link); preview != "" {
				items[idx].Summary = preview
			}
		}
	}

	header := "📰 **Daily Security Digest** (" + time.Now().Format("2006-01-02") + ")"
	if _, err := b.session.ChannelMessageSend(b.cfg.NewsChannelID, header); err != nil {
		logging.Warnf("digest: failed to send header: %v", err)
		return
	}
	for idx, item := range items {
		b.sendEmbed(b.session, b.cfg.NewsChannelID, newsItemEmbed(item, idx+1, len(items)))
	}

	if b.status != nil {
		b.status.RecordDigest(time.Now())
	}
	logging.Infof("digest: posted %d items", len(items))
}
