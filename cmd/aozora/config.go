// cmd/aozora/config.go
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds application configuration
type Config struct {
	Version string

	// Credentials
	OpenAIAPIKey    string
	SerpAPIKey      string
	BlueskyHandle   string
	BlueskyPassword string

	// Service endpoints and models
	BlueskyHost string
	OpenAIModel string

	// File paths
	SourcesPath string
	LedgerPath  string
	StatePath   string
	LogPath     string

	// Behaviour
	LogLevel           LogLevel
	DashboardPort      int
	DigestCronSchedule string
	IntervalMinutes    int
	ScheduleOnStartup  bool
	UserAgentString    string
}

// Source represents a configured RSS feed
type Source struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Paused bool   `yaml:"paused"`
}

// LoadConfig builds the configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Version:            GetEnvString("BOT_VERSION", VERSION),
		OpenAIAPIKey:       GetEnvString("OPENAI_API_KEY", ""),
		SerpAPIKey:         GetEnvString("SERPAPI_KEY", ""),
		BlueskyHandle:      GetEnvString("BSKY_HANDLE", ""),
		BlueskyPassword:    GetEnvString("BSKY_PASSWORD", ""),
		BlueskyHost:        GetEnvString("BSKY_HOST", "https://bsky.social"),
		OpenAIModel:        GetEnvString("OPENAI_MODEL", "gpt-3.5-turbo"),
		SourcesPath:        GetEnvString("SOURCES_PATH", "config/sources.yml"),
		LedgerPath:         GetEnvString("LEDGER_PATH", "data/posted_news.txt"),
		StatePath:          GetEnvString("STATE_PATH", "data/state.json"),
		LogPath:            GetEnvString("LOG_PATH", "data/logs/aozora.log"),
		LogLevel:           parseLogLevel(GetEnvString("LOG_LEVEL", "info")),
		DashboardPort:      GetEnvInt("DASHBOARD_PORT", 8080),
		DigestCronSchedule: GetEnvString("DIGEST_CRON_SCHEDULE", "0 8 * * *"),
		IntervalMinutes:    GetEnvInt("INTERVAL_MINUTES", 60),
		ScheduleOnStartup:  GetEnvBool("SCHEDULE_ON_STARTUP", false),
		UserAgentString:    GetEnvString("USER_AGENT", "AozoraNewsBot/"+VERSION),
	}
}

// Validate checks that every required credential is present. A bot with a
// missing key must refuse to start rather than fail mid-pipeline.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"OPENAI_API_KEY", c.OpenAIAPIKey},
		{"SERPAPI_KEY", c.SerpAPIKey},
		{"BSKY_HANDLE", c.BlueskyHandle},
		{"BSKY_PASSWORD", c.BlueskyPassword},
	}
	for _, r := range required {
		if r.value == "" {
			return NewConfigError(ErrConfigMissing, fmt.Sprintf("%s is required", r.name), nil)
		}
	}
	if c.IntervalMinutes <= 0 {
		return NewConfigError(ErrConfigValidation, "INTERVAL_MINUTES must be positive", nil)
	}
	return nil
}

// LoadSources reads the feed list from a YAML file
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(ErrConfigSources, fmt.Sprintf("cannot read sources file %s", path), err)
	}

	var sources []Source
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, NewConfigError(ErrConfigSources, fmt.Sprintf("cannot parse sources file %s", path), err)
	}

	for i, src := range sources {
		if src.URL == "" {
			return nil, NewConfigError(ErrConfigSources, fmt.Sprintf("source %d has no url", i), nil)
		}
	}
	return sources, nil
}

// ActiveSources filters out paused sources
func ActiveSources(sources []Source) []Source {
	var active []Source
	for _, src := range sources {
		if !src.Paused {
			active = append(active, src)
		}
	}
	return active
}
