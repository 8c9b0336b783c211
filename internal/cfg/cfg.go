// Package cfg holds the process configuration: flags with env overrides via
// go-core's cfg helpers.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Config adds hermes-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string

	FeedURLs        string
	DefaultKeywords string
	TechStacks      string

	ScanIntervalMinutes int
	RunOnStart          bool
	ReportDir           string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string

	LLMProvider  string
	OpenAIAPIKey string
	OpenAIModel  string
	ClaudeAPIKey string
	ClaudeModel  string

	MaxRetries              int
	TruncateLength          int
	ThrottleFallbackSeconds int

	SlackBotToken string
	SlackChannel  string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token for the run API (empty = auth disabled)")
	fs.StringVar(&c.FeedURLs, "feed-urls", "", "comma-separated RSS/Atom feed URLs to scan")
	fs.StringVar(&c.DefaultKeywords, "default-keywords", "", "comma-separated keywords; entries matching none are skipped (empty = all entries)")
	fs.StringVar(&c.TechStacks, "tech-stacks", "", "comma-separated tech stack names the analysis prompt targets")
	fs.IntVar(&c.ScanIntervalMinutes, "scan-interval-minutes", 60, "minutes between scheduled runs (0 = API-triggered only)")
	fs.BoolVar(&c.RunOnStart, "run-on-start", false, "trigger a run immediately at startup")
	fs.StringVar(&c.ReportDir, "report-dir", "reports", "directory PDF reports are written to")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "Redis address for the dedup ledger (empty = use database-url or in-memory)")
	fs.StringVar(&c.RedisPassword, "redis-password", "", "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "Redis database number")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for the dedup ledger (used when redis-addr is empty)")
	fs.StringVar(&c.LLMProvider, "llm-provider", "openai", "analysis provider: openai or claude")
	fs.StringVar(&c.OpenAIAPIKey, "openai-api-key", "", "API key for the OpenAI provider")
	fs.StringVar(&c.OpenAIModel, "openai-model", "gpt-4o", "OpenAI model to use")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.IntVar(&c.MaxRetries, "max-retries", 3, "total analysis calls allowed per entry when throttled (1..10)")
	fs.IntVar(&c.TruncateLength, "truncate-length", 4000, "max characters per prompt field before truncation")
	fs.IntVar(&c.ThrottleFallbackSeconds, "throttle-fallback-seconds", 30, "wait when a throttling error carries no hint (1..300)")
	fs.StringVar(&c.SlackBotToken, "slack-bot-token", "", "Slack bot token for report delivery (empty = notifications disabled)")
	fs.StringVar(&c.SlackChannel, "slack-channel", "", "Slack channel ID reports are posted to")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if len(c.Feeds()) == 0 {
		errs = append(errs, errors.New("FEED_URLS is required (at least one feed)"))
	}

	if c.ScanIntervalMinutes < 0 {
		errs = append(errs, fmt.Errorf("invalid SCAN_INTERVAL_MINUTES %d (must be >= 0)", c.ScanIntervalMinutes))
	}

	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("invalid REDIS_DB %d (must be >= 0)", c.RedisDB))
	}

	// A usable provider credential is fatal to miss: every run needs it.
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
		if c.OpenAIModel == "" {
			errs = append(errs, errors.New("OPENAI_MODEL is required"))
		}
	case "claude":
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required for the claude provider"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid LLM_PROVIDER %q (must be openai or claude)", c.LLMProvider))
	}

	if c.MaxRetries <= 0 || c.MaxRetries > 10 {
		errs = append(errs, fmt.Errorf("invalid MAX_RETRIES %d (must be 1..10)", c.MaxRetries))
	}
	if c.TruncateLength < 100 {
		errs = append(errs, fmt.Errorf("invalid TRUNCATE_LENGTH %d (must be >= 100)", c.TruncateLength))
	}
	if c.ThrottleFallbackSeconds <= 0 || c.ThrottleFallbackSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid THROTTLE_FALLBACK_SECONDS %d (must be 1..300)", c.ThrottleFallbackSeconds))
	}

	// Slack needs both halves or neither
	if (c.SlackBotToken == "") != (c.SlackChannel == "") {
		errs = append(errs, errors.New("SLACK_BOT_TOKEN and SLACK_CHANNEL must be set together"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Feeds returns the configured feed URLs.
func (c *Config) Feeds() []string { return splitList(c.FeedURLs) }

// Keywords returns the configured keyword filters.
func (c *Config) Keywords() []string { return splitList(c.DefaultKeywords) }

// Stacks returns the tech stack names for the analysis prompt.
func (c *Config) Stacks() []string { return splitList(c.TechStacks) }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
