package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Source is one syndication feed to poll.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Config holds the full application configuration.
type Config struct {
	// Discord
	BotToken      string
	NewsChannelID string

	// OpenAI
	OpenAIAPIKey string
	OpenAIModel  string

	// Feeds
	NewsSources          []Source
	VulnerabilitySources []Source

	// Persistence
	DatabasePath string

	// Optional surfaces
	HealthAddr     string
	DigestSchedule string

	// Permissions for /implement
	ImplementUserIDs   []string
	ImplementRoleNames []string

	// Logging
	LogPath  string
	LogLevel string

	// FetchWorkers is the feed fan-out pool width.
	FetchWorkers int
}

// defaultNewsFeeds are the built-in general security news sources.
var defaultNewsFeeds = []string{
	"https://feeds.feedburner.com/TheHackersNews",
	"https://www.bleepingcomputer.com/feed/",
	"https://krebsonsecurity.com/feed/",
	"https://threatpost.com/feed/",
	"https://www.darkreading.com/rss.xml",
	"https://www.securityweek.com/rss",
	"https://www.infosecurity-magazine.com/rss/news/",
	"https://www.csoonline.com/index.rss",
	"https://www.zdnet.com/topic/security/rss.xml",
	"https://www.wired.com/feed/tag/security/latest/rss",
	"https://feeds.feedburner.com/SecurityFocus",
	"https://www.schneier.com/feed/",
	"https://www.theregister.com/security/headlines.atom",
	"https://www.cyberscoop.com/feed/",
	"https://www.cybersecurity-insiders.com/feed/",
	"https://www.securitymagazine.com/rss/topic/219-information-security",
	"https://www.helpnetsecurity.com/feed/",
	"https://www.securityaffairs.com/feed",
	"https://www.hackread.com/feed/",
	"https://www.securitynewspaper.com/feed/",
}

// defaultVulnerabilityFeeds are the built-in CVE-oriented sources.
var defaultVulnerabilityFeeds = []string{
	"https://nvd.nist.gov/feeds/xml/cve/misc/nvd-rss-analyzed.xml",
	"https://www.securityfocus.com/vulnerabilities/rss",
}

type sourcesFile struct {
	News            []Source `yaml:"news"`
	Vulnerabilities []Source `yaml:"vulnerabilities"`
}

// Load builds the configuration from environment variables and, when present,
// a YAML source list. Callers load .env into the environment beforehand.
func Load(sourcesPath string) (*Config, error) {
	cfg := &Config{
		BotToken:       os.Getenv("DISCORD_TOKEN"),
		NewsChannelID:  os.Getenv("NEWS_CHANNEL_ID"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    envOr("OPENAI_MODEL", "gpt-4o-mini"),
		DatabasePath:   envOr("DB_PATH", "data/ideas.db"),
		HealthAddr:     os.Getenv("HEALTH_ADDR"),
		DigestSchedule: os.Getenv("DIGEST_SCHEDULE"),
		LogPath:        os.Getenv("LOG_PATH"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		FetchWorkers:   5,
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN not configured")
	}

	if v := os.Getenv("FETCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid FETCH_WORKERS %q", v)
		}
		cfg.FetchWorkers = n
	}

	cfg.ImplementUserIDs = splitList(os.Getenv("IMPLEMENT_USER_IDS"))
	cfg.ImplementRoleNames = splitList(os.Getenv("IMPLEMENT_ROLE_NAMES"))

	cfg.NewsSources = sourcesFromURLs(defaultNewsFeeds)
	cfg.VulnerabilitySources = sourcesFromURLs(defaultVulnerabilityFeeds)

	if sourcesPath != "" {
		if err := cfg.loadSources(sourcesPath); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadSources replaces the built-in feed lists with the ones from a YAML file.
// Missing file keeps the defaults.
func (c *Config) loadSources(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sources file: %v", err)
	}

	var sf sourcesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("failed to parse sources file: %v", err)
	}

	if len(sf.News) > 0 {
		c.NewsSources = fillNames(sf.News)
	}
	if len(sf.Vulnerabilities) > 0 {
		c.VulnerabilitySources = fillNames(sf.Vulnerabilities)
	}
	return nil
}

// SourceNameFromURL derives a short display name from a feed URL.
func SourceNameFromURL(url string) string {
	name := url
	if i := strings.LastIndex(name, "/"); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	} else {
		name = strings.TrimSuffix(name, "/")
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
	}
	for _, suffix := range []string{".xml", ".rss", ".atom"} {
		name = strings.TrimSuffix(name, suffix)
	}
	if name == "" {
		return url
	}
	return name
}

func sourcesFromURLs(urls []string) []Source {
	sources := make([]Source, 0, len(urls))
	for _, u := range urls {
		sources = append(sources, Source{Name: SourceNameFromURL(u), URL: u})
	}
	return sources
}

func fillNames(sources []Source) []Source {
	for i, s := range sources {
		if s.Name == "" {
			sources[i].Name = SourceNameFromURL(s.URL)
		}
	}
	return sources
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
