// Package config provides YAML-based configuration loading for Spellbook.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Supported catalog import sources.
const (
	SourceCompendium = "compendium"
	SourceSRD        = "srd"
	SourceGitHub     = "github"
)

// Config is the top-level Spellbook configuration, loaded from spellbook.yaml.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Import   ImportConfig   `yaml:"import"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// DatabaseConfig selects and locates the backing store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
	Locale    string `yaml:"locale"`
}

// CacheConfig enables the Redis spell query cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// ImportConfig controls catalog ingestion.
type ImportConfig struct {
	Source     string       `yaml:"source"`
	Schedule   string       `yaml:"schedule"`
	BaseURL    string       `yaml:"base_url"`
	SRDBaseURL string       `yaml:"srd_base_url"`
	GitHub     GitHubSource `yaml:"github"`
}

// GitHubSource locates a JSON spell dump inside a GitHub repository.
type GitHubSource struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Path  string `yaml:"path"`
	Ref   string `yaml:"ref"`
	Token string `yaml:"token"`
}

// NotifyConfig holds optional chat announcement targets.
type NotifyConfig struct {
	Slack   ChatTarget `yaml:"slack"`
	Discord ChatTarget `yaml:"discord"`
}

// ChatTarget is a bot token plus the channel it posts to.
type ChatTarget struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether the target has enough settings to post.
func (t ChatTarget) Enabled() bool {
	return t.BotToken != "" && t.ChannelID != ""
}

// envOverrides are read from the process environment and win over the file.
type envOverrides struct {
	DBDriver     string `env:"SPELLBOOK_DB_DRIVER"`
	DBPath       string `env:"SPELLBOOK_DB_PATH"`
	Port         int    `env:"SPELLBOOK_PORT"`
	RedisAddr    string `env:"SPELLBOOK_REDIS_ADDR"`
	GitHubToken  string `env:"SPELLBOOK_GITHUB_TOKEN"`
	SlackToken   string `env:"SPELLBOOK_SLACK_TOKEN"`
	DiscordToken string `env:"SPELLBOOK_DISCORD_TOKEN"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config. Environment
// overrides are applied before defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	if o.DBDriver != "" {
		c.Database.Driver = o.DBDriver
	}
	if o.DBPath != "" {
		c.Database.Path = o.DBPath
	}
	if o.Port != 0 {
		c.Server.Port = o.Port
	}
	if o.RedisAddr != "" {
		c.Cache.RedisAddr = o.RedisAddr
	}
	if o.GitHubToken != "" {
		c.Import.GitHub.Token = o.GitHubToken
	}
	if o.SlackToken != "" {
		c.Notify.Slack.BotToken = o.SlackToken
	}
	if o.DiscordToken != "" {
		c.Notify.Discord.BotToken = o.DiscordToken
	}
	return nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "spellbook.db"
	}
	if c.Database.Driver == DriverMySQL {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "spellbook"
		}
	}

	if c.Server.Port == 0 {
		c.Server.Port = 5178
	}
	if c.Server.Locale == "" {
		c.Server.Locale = "en"
	}

	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}

	if c.Import.Source == "" {
		c.Import.Source = SourceCompendium
	}
	if c.Import.BaseURL == "" {
		c.Import.BaseURL = "https://dungeonedraghi.it/compendio/incantesimi/"
	}
	if c.Import.SRDBaseURL == "" {
		c.Import.SRDBaseURL = "https://www.dnd5eapi.co/api/2014/"
	}
	gh := &c.Import.GitHub
	if gh.Owner == "" {
		gh.Owner = "5e-bits"
	}
	if gh.Repo == "" {
		gh.Repo = "5e-database"
	}
	if gh.Path == "" {
		gh.Path = "src/2014/5e-SRD-Spells.json"
	}
	if gh.Ref == "" {
		gh.Ref = "main"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	switch c.Server.Locale {
	case "en", "it":
	default:
		errs = append(errs, fmt.Sprintf("server.locale %q is not supported (en, it)", c.Server.Locale))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}
	switch c.Import.Source {
	case SourceCompendium, SourceSRD, SourceGitHub:
	default:
		errs = append(errs, fmt.Sprintf("import.source %q is not supported (compendium, srd, github)", c.Import.Source))
	}
	if c.Notify.Slack.BotToken != "" && c.Notify.Slack.ChannelID == "" {
		errs = append(errs, "notify.slack.channel_id is required when a bot token is set")
	}
	if c.Notify.Discord.BotToken != "" && c.Notify.Discord.ChannelID == "" {
		errs = append(errs, "notify.discord.channel_id is required when a bot token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
