package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service reads from the
// environment.
type Config struct {
	Server   ServerConfig
	Slack    SlackConfig
	Mongo    MongoConfig
	Classify ClassifyConfig
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	slack, err := loadSlackConfig()
	if err != nil {
		return nil, err
	}

	classify, err := loadClassifyConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Slack:    slack,
		Mongo:    loadMongoConfig(),
		Classify: classify,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr  string
	Debug bool
}

func loadServerConfig() (ServerConfig, error) {
	debug, err := parseBoolEnv("DEBUG", false)
	if err != nil {
		return ServerConfig{}, err
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port, Debug: debug}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, Debug: debug}, nil
}

// SlackConfig carries webhook verification and Web API credentials.
type SlackConfig struct {
	SigningSecret string
	BotToken      string
}

func loadSlackConfig() (SlackConfig, error) {
	secret := strings.TrimSpace(os.Getenv("SLACK_SIGNING_SECRET"))
	if secret == "" {
		return SlackConfig{}, fmt.Errorf("SLACK_SIGNING_SECRET is required")
	}

	return SlackConfig{
		SigningSecret: secret,
		BotToken:      strings.TrimSpace(os.Getenv("SLACK_BOT_TOKEN")),
	}, nil
}

// MongoConfig describes the document store connection. An empty URI
// selects the in-memory store.
type MongoConfig struct {
	URI        string
	Database   string
	RetryCount int
}

// Enabled reports whether a MongoDB connection is configured.
func (c MongoConfig) Enabled() bool {
	return c.URI != ""
}

func loadMongoConfig() MongoConfig {
	return MongoConfig{
		URI:        strings.TrimSpace(os.Getenv("MONGO_URI")),
		Database:   getEnvOrDefault("MONGO_DB", "slackpulse"),
		RetryCount: 3,
	}
}

// ClassifyConfig holds the two-tier provider setup for the urgency
// classifier. Either tier may be absent; the classifier degrades to its
// fixed default.
type ClassifyConfig struct {
	Primary   ProviderConfig
	Secondary ProviderConfig
	Timeout   time.Duration
}

// ProviderConfig describes one Ark-backed classification model.
type ProviderConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float32
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c ProviderConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from this provider's settings.
func (c ProviderConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("provider credentials or model missing")
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadClassifyConfig() (ClassifyConfig, error) {
	primary, err := loadProviderConfig("CLASSIFY_PRIMARY")
	if err != nil {
		return ClassifyConfig{}, err
	}

	secondary, err := loadProviderConfig("CLASSIFY_SECONDARY")
	if err != nil {
		return ClassifyConfig{}, err
	}
	// The secondary tier runs at low temperature with a small output
	// budget unless overridden.
	if secondary.Temperature == nil {
		temp := float32(0.1)
		secondary.Temperature = &temp
	}
	if secondary.MaxTokens == nil {
		budget := 8
		secondary.MaxTokens = &budget
	}

	timeoutSeconds := 15
	if override, err := parseOptionalIntEnv("CLASSIFY_TIMEOUT"); err != nil {
		return ClassifyConfig{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	return ClassifyConfig{
		Primary:   primary,
		Secondary: secondary,
		Timeout:   time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

func loadProviderConfig(prefix string) (ProviderConfig, error) {
	temperature, err := parseOptionalFloat32Env(prefix + "_TEMPERATURE")
	if err != nil {
		return ProviderConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv(prefix + "_MAX_TOKENS")
	if err != nil {
		return ProviderConfig{}, err
	}

	return ProviderConfig{
		APIKey:      strings.TrimSpace(os.Getenv(prefix + "_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv(prefix + "_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv(prefix + "_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv(prefix + "_MODEL")),
		BaseURL:     getEnvOrDefault(prefix+"_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault(prefix+"_REGION", "cn-beijing"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
