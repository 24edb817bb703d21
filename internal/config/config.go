// Package config loads settings from .env, an optional config file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Telegram settings
	TelegramToken        string
	TelegramChatID       string
	TelegramSendInterval time.Duration
	CaptionLimit         int
	CaptionMargin        int
	TextLimit            int

	// Content settings
	Topic           string
	Language        string
	SourceLinkLabel string

	// Gemini settings
	GeminiAPIKey      string
	DiscoveryModel    string
	FallbackModel     string
	ImageModel        string
	ImageAspectRatio  string
	MaxGeminiRequests int // daily discovery budget (0 = unlimited)
	MaxImageRequests  int // daily image budget (0 = unlimited)

	// OpenAI image fallback
	OpenAIAPIKey     string
	OpenAIImageModel string

	// Pipeline policy
	DiscoveryCooldown     time.Duration
	HistoryContext        int
	RequireVerifiedSource bool
	RequireImage          bool
	ResolveSources        bool

	// RSS settings
	FeedsConfigPath string
	FeedMaxAge      time.Duration

	// Schedule
	Schedule   string
	Timezone   string
	RunOnStart bool

	// State and persistence
	ArticlesCap     int
	LogsCap         int
	HistoryFilePath string
	DatabaseURL     string

	// App settings
	Port     int
	Debug    bool
	LogLevel string
	LogFile  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 10000)
	v.SetDefault("TOPIC", "solid-state batteries")
	v.SetDefault("LANGUAGE", "ru")
	v.SetDefault("SOURCE_LINK_LABEL", "Источник")
	v.SetDefault("DISCOVERY_MODEL", "gemini-2.5-flash")
	v.SetDefault("FALLBACK_MODEL", "gemini-1.5-flash")
	v.SetDefault("IMAGE_MODEL", "gemini-2.5-flash-image")
	v.SetDefault("IMAGE_ASPECT_RATIO", "16:9")
	v.SetDefault("OPENAI_IMAGE_MODEL", "dall-e-3")
	v.SetDefault("SCHEDULE", "0 * * * *")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("RUN_ON_START", false)
	v.SetDefault("DISCOVERY_COOLDOWN", 3*time.Minute)
	v.SetDefault("HISTORY_CONTEXT", 50)
	v.SetDefault("ARTICLES_CAP", 50)
	v.SetDefault("LOGS_CAP", 50)
	v.SetDefault("REQUIRE_VERIFIED_SOURCE", true)
	v.SetDefault("REQUIRE_IMAGE", false)
	v.SetDefault("RESOLVE_SOURCES", true)
	v.SetDefault("CAPTION_LIMIT", 1024)
	v.SetDefault("CAPTION_MARGIN", 80)
	v.SetDefault("TEXT_LIMIT", 4096)
	v.SetDefault("TELEGRAM_SEND_INTERVAL", 3*time.Second)
	v.SetDefault("MAX_GEMINI_REQUESTS", 0)
	v.SetDefault("MAX_IMAGE_REQUESTS", 0)
	v.SetDefault("FEEDS_CONFIG_PATH", "configs/feeds.yaml")
	v.SetDefault("FEED_MAX_AGE", 72*time.Hour)
	v.SetDefault("HISTORY_FILE_PATH", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("DEBUG", false)
}

// Load reads .env (if present), then configFile (if not empty), then the
// environment, and validates the result.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := fromViper(v)
	return cfg, cfg.Validate()
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		TelegramToken:         v.GetString("TELEGRAM_TOKEN"),
		TelegramChatID:        v.GetString("TELEGRAM_CHAT_ID"),
		TelegramSendInterval:  v.GetDuration("TELEGRAM_SEND_INTERVAL"),
		CaptionLimit:          v.GetInt("CAPTION_LIMIT"),
		CaptionMargin:         v.GetInt("CAPTION_MARGIN"),
		TextLimit:             v.GetInt("TEXT_LIMIT"),
		Topic:                 v.GetString("TOPIC"),
		Language:              v.GetString("LANGUAGE"),
		SourceLinkLabel:       v.GetString("SOURCE_LINK_LABEL"),
		GeminiAPIKey:          v.GetString("GEMINI_API_KEY"),
		DiscoveryModel:        v.GetString("DISCOVERY_MODEL"),
		FallbackModel:         v.GetString("FALLBACK_MODEL"),
		ImageModel:            v.GetString("IMAGE_MODEL"),
		ImageAspectRatio:      v.GetString("IMAGE_ASPECT_RATIO"),
		MaxGeminiRequests:     v.GetInt("MAX_GEMINI_REQUESTS"),
		MaxImageRequests:      v.GetInt("MAX_IMAGE_REQUESTS"),
		OpenAIAPIKey:          v.GetString("OPENAI_API_KEY"),
		OpenAIImageModel:      v.GetString("OPENAI_IMAGE_MODEL"),
		DiscoveryCooldown:     v.GetDuration("DISCOVERY_COOLDOWN"),
		HistoryContext:        v.GetInt("HISTORY_CONTEXT"),
		RequireVerifiedSource: v.GetBool("REQUIRE_VERIFIED_SOURCE"),
		RequireImage:          v.GetBool("REQUIRE_IMAGE"),
		ResolveSources:        v.GetBool("RESOLVE_SOURCES"),
		FeedsConfigPath:       v.GetString("FEEDS_CONFIG_PATH"),
		FeedMaxAge:            v.GetDuration("FEED_MAX_AGE"),
		Schedule:              strings.TrimSpace(v.GetString("SCHEDULE")),
		Timezone:              v.GetString("TIMEZONE"),
		RunOnStart:            v.GetBool("RUN_ON_START"),
		ArticlesCap:           v.GetInt("ARTICLES_CAP"),
		LogsCap:               v.GetInt("LOGS_CAP"),
		HistoryFilePath:       v.GetString("HISTORY_FILE_PATH"),
		DatabaseURL:           v.GetString("DATABASE_URL"),
		Port:                  v.GetInt("PORT"),
		Debug:                 v.GetBool("DEBUG"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		LogFile:               v.GetString("LOG_FILE"),
	}

	// API_KEY is the name the hosted deployment uses.
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = v.GetString("API_KEY")
	}
	return cfg
}

// Addr is the listen address for the HTTP surface.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil && c.Timezone != "" {
		return loc
	}
	return time.UTC
}

func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.Schedule == "" {
		return fmt.Errorf("SCHEDULE must not be empty")
	}
	if c.DiscoveryCooldown < 0 {
		return fmt.Errorf("DISCOVERY_COOLDOWN must not be negative")
	}
	if c.CaptionLimit <= 0 || c.TextLimit <= 0 {
		return fmt.Errorf("CAPTION_LIMIT and TEXT_LIMIT must be positive")
	}
	if c.CaptionMargin < 0 || c.CaptionMargin >= c.CaptionLimit {
		return fmt.Errorf("CAPTION_MARGIN must be in [0, CAPTION_LIMIT)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port")
	}
	return nil
}
