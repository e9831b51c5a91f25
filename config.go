package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	aws_pkg "github.com/DIKSHA-NCTE/sl-sunbird-service/pkg/aws"
)

// Dictionary backends.
const (
	DictionaryRedis  = "redis"
	DictionarySearch = "search"
)

// Config holds all configuration for the sunbird service.
type Config struct {
	Port string
	Env  string

	// Sunbird platform
	SunbirdURL        string
	Authorization     string
	ChannelID         string
	OrganisationID    string
	PublisherUsername string
	PublisherPassword string

	// Keycloak
	KeycloakURL          string
	KeycloakRealm        string
	KeycloakClientID     string
	KeycloakClientSecret string

	// Dictionary
	DictionaryBackend   string
	DictionaryIndex     string
	DictionarySearchURL string
	RedisURL            string

	// Blob storage
	S3Bucket        string
	S3Endpoint      string
	LinkExpiry      time.Duration
	SignedURLExpiry time.Duration

	// Keyword uploads
	ArchiveKeywordReports bool
	KeywordReportsPrefix  string
	KeywordsSNSTopicARN   string
	UploadRatePerMinute   int

	CORSAllowedOrigins []string
	MaxUploadSize      int64
}

// LoadConfig reads configuration from environment variables with optional
// Secrets Manager override.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		SunbirdURL:        strings.TrimRight(os.Getenv("SUNBIRD_URL"), "/"),
		Authorization:     os.Getenv("AUTHORIZATION"),
		ChannelID:         os.Getenv("SUNBIRD_CHANNEL_ID"),
		OrganisationID:    os.Getenv("SUNBIRD_ORGANISATION_ID"),
		PublisherUsername: os.Getenv("SUNBIRD_PUBLISHER_USERNAME"),
		PublisherPassword: os.Getenv("SUNBIRD_PUBLISHER_PASSWORD"),

		KeycloakURL:          strings.TrimRight(os.Getenv("KEYCLOAK_URL"), "/"),
		KeycloakRealm:        getEnv("KEYCLOAK_REALM", "sunbird"),
		KeycloakClientID:     getEnv("KEYCLOAK_CLIENT_ID", "admin-cli"),
		KeycloakClientSecret: os.Getenv("KEYCLOAK_CLIENT_SECRET"),

		DictionaryBackend:   strings.ToLower(getEnv("DICTIONARY_BACKEND", DictionaryRedis)),
		DictionaryIndex:     getEnv("DICTIONARY_INDEX", "dictionary"),
		DictionarySearchURL: strings.TrimRight(os.Getenv("DICTIONARY_SEARCH_URL"), "/"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),

		S3Bucket:        getEnv("AWS_S3_BUCKET", "sunbird"),
		S3Endpoint:      aws_pkg.Endpoint(),
		LinkExpiry:      time.Duration(getEnvInt("AWS_LINK_EXPIRY_TIME", 900)) * time.Second,
		SignedURLExpiry: time.Duration(getEnvInt("SIGNED_URL_EXPIRY_MINUTES", 30)) * time.Minute,

		ArchiveKeywordReports: os.Getenv("ARCHIVE_KEYWORD_REPORTS") == "true",
		KeywordReportsPrefix:  getEnv("KEYWORD_REPORTS_PREFIX", "keyword-reports"),
		KeywordsSNSTopicARN:   os.Getenv("KEYWORDS_SNS_TOPIC_ARN"),
		UploadRatePerMinute:   getEnvInt("UPLOAD_RATE_PER_MINUTE", 30),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		MaxUploadSize:      int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 50)) * 1024 * 1024,
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			cfg.applySecrets(context.Background(), aws_pkg.NewSecretsClient(awsCfg))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overrides credentials with Secrets Manager values. Missing
// secrets keep the environment values.
func (c *Config) applySecrets(ctx context.Context, sm aws_pkg.SecretGetter) {
	aws_pkg.OverrideFromSecrets(ctx, sm, "sunbird/AUTHORIZATION", &c.Authorization)
	aws_pkg.OverrideFromSecrets(ctx, sm, "sunbird/PUBLISHER_PASSWORD", &c.PublisherPassword)
	aws_pkg.OverrideFromSecrets(ctx, sm, "sunbird/KEYCLOAK_CLIENT_SECRET", &c.KeycloakClientSecret)
}

func (c *Config) validate() error {
	if c.SunbirdURL == "" {
		return fmt.Errorf("SUNBIRD_URL is required")
	}
	switch c.DictionaryBackend {
	case DictionaryRedis:
	case DictionarySearch:
		if c.DictionarySearchURL == "" {
			return fmt.Errorf("DICTIONARY_SEARCH_URL is required for the search dictionary backend")
		}
	default:
		return fmt.Errorf("DICTIONARY_BACKEND must be %q or %q, got %q", DictionaryRedis, DictionarySearch, c.DictionaryBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
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
