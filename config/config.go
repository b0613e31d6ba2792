package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sjsage522/opinionworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Site configuration
	BaseURL         string
	ReviewsPath     string
	ReviewSelector  string
	NextSelector    string
	NameSelector    string
	RecommendToken  string
	DiscourageToken string

	// Translation configuration
	SourceLang         string
	TargetLang         string
	TranslateURL       string
	TranslateRPS       int
	TranslateWorkers   int
	TranslateDisabled  bool
	SkipMalformed      bool
	FetchTimeout       time.Duration
	ExtractionDeadline time.Duration

	// Storage configuration
	DataDir string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string
	BlockTime    time.Duration

	// Worker configuration
	ProductIDs    []string
	CrawlInterval time.Duration
	FetchRetries  int
	RetryDelay    time.Duration

	// HTTP configuration
	HTTPAddr string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		BaseURL:         getEnv("SITE_BASE_URL", "https://www.ceneo.pl"),
		ReviewsPath:     getEnv("SITE_REVIEWS_PATH", "/%s#tab=reviews"),
		ReviewSelector:  getEnv("SITE_REVIEW_SELECTOR", "div.js_product-review:not(.user-post--highlight)"),
		NextSelector:    getEnv("SITE_NEXT_SELECTOR", "a.pagination__next"),
		NameSelector:    getEnv("SITE_NAME_SELECTOR", "h1.product-top__product-info__name"),
		RecommendToken:  getEnv("SITE_RECOMMEND_TOKEN", "Polecam"),
		DiscourageToken: getEnv("SITE_DISCOURAGE_TOKEN", "Nie polecam"),

		SourceLang:         getEnv("TRANSLATE_SOURCE", "pl"),
		TargetLang:         getEnv("TRANSLATE_TARGET", "en"),
		TranslateURL:       getEnv("TRANSLATE_URL", "https://translate.googleapis.com/translate_a/single"),
		TranslateRPS:       getEnvInt("TRANSLATE_RPS", 5),
		TranslateWorkers:   getEnvInt("TRANSLATE_WORKERS", 4),
		TranslateDisabled:  getEnvBool("TRANSLATE_DISABLED", false),
		SkipMalformed:      getEnvBool("SKIP_MALFORMED", true),
		FetchTimeout:       time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		ExtractionDeadline: time.Duration(getEnvInt("EXTRACTION_DEADLINE_SECONDS", 600)) * time.Second,

		DataDir: getEnv("DATA_DIR", "./data"),

		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "opinions"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),

		MemcacheAddr: getEnv("MEMCACHE_ADDR", "localhost:11211"),
		BlockTime:    time.Duration(getEnvInt("BLOCK_TIME_SECONDS", 300)) * time.Second,

		ProductIDs:    splitList(getEnv("PRODUCT_IDS", "")),
		CrawlInterval: time.Duration(getEnvInt("CRAWL_INTERVAL_SECONDS", 3600)) * time.Second,
		FetchRetries:  getEnvInt("FETCH_RETRIES", 2),
		RetryDelay:    time.Duration(getEnvInt("RETRY_DELAY_SECONDS", 30)) * time.Second,

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		Environment: getEnv("OPINION_ENVIRONMENT", "development"),
	}
}

// ProductURL returns the first review page of a product
func (c *Config) ProductURL(productID string) string {
	return strings.TrimRight(c.BaseURL, "/") + fmt.Sprintf(c.ReviewsPath, productID)
}

// Validate checks settings that cannot be defaulted away
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.NewConfiguration("SITE_BASE_URL must not be empty", nil)
	}
	if !strings.Contains(c.ReviewsPath, "%s") {
		return errors.NewConfiguration("SITE_REVIEWS_PATH must contain %s for the product id", nil)
	}
	if c.ReviewSelector == "" || c.NextSelector == "" {
		return errors.NewConfiguration("review and next-page selectors are required", nil)
	}
	if c.RecommendToken == c.DiscourageToken {
		return errors.NewConfiguration("recommend and discourage tokens must differ", nil)
	}
	if c.TranslateWorkers <= 0 {
		return errors.NewConfiguration("TRANSLATE_WORKERS must be positive", nil)
	}
	if c.RedisStreamCount <= 0 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be positive", nil)
	}
	if c.CrawlInterval <= 0 {
		return errors.NewConfiguration("CRAWL_INTERVAL_SECONDS must be positive", nil)
	}
	if c.DataDir == "" {
		return errors.NewConfiguration("DATA_DIR must not be empty", nil)
	}
	// memcache reads an expiration of 0 as "never expires"
	if c.BlockTime < time.Second {
		return errors.NewConfiguration("BLOCK_TIME_SECONDS must be at least 1", nil)
	}
	if c.FetchRetries < 0 || c.RetryDelay < 0 {
		return errors.NewConfiguration("FETCH_RETRIES and RETRY_DELAY_SECONDS must not be negative", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
