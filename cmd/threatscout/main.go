package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"threatscout/internal/ai"
	"threatscout/internal/bot"
	"threatscout/internal/config"
	"threatscout/internal/feed"
	"threatscout/internal/health"
	"threatscout/internal/logging"
	"threatscout/internal/nvd"
	"threatscout/internal/store"
)

const version = "1.0.0"

const sourcesPath = "config/sources.yml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "threatscout: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(sourcesPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	if err := logging.Setup(cfg.LogPath, logging.ParseLevel(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to set up logging: %v", err)
	}
	defer logging.Close()

	logging.Infof("threatscout v%s starting up", version)

	ideas, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open ideas store: %v", err)
	}
	defer ideas.Close()

	// Long-lived collaborators, one set for the process lifetime.
	fetcher := feed.NewFetcher()
	aggregator := feed.NewAggregator(fetcher, nvd.NewClient(""), cfg.NewsSources, cfg.VulnerabilitySources, cfg.FetchWorkers)
	generator := ai.NewGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if cfg.OpenAIAPIKey == "" {
		logging.Warnf("OPENAI_API_KEY not set; /ideas will report a configuration error")
	}

	status := health.NewStatus(version, len(cfg.NewsSources), len(cfg.VulnerabilitySources))

	b, err := bot.New(cfg, aggregator, fetcher, generator, ideas, status)
	if err != nil {
		return err
	}
	if err := b.Start(); err != nil {
		return err
	}
	defer b.Stop()

	if cfg.HealthAddr != "" {
		go status.Serve(cfg.HealthAddr)
	}

	var scheduler *cron.Cron
	if cfg.DigestSchedule != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.DigestSchedule, b.PostDigest); err != nil {
			return fmt.Errorf("invalid DIGEST_SCHEDULE %q: %v", cfg.DigestSchedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		logging.Infof("digest scheduled: %s", cfg.DigestSchedule)
	}

	logging.Infof("bot is running, press Ctrl+C to exit")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logging.Infof("shutting down")
	return nil
}
