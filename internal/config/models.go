package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI or a compatible endpoint
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// ExtractionConfig controls how the pipeline calls the model
type ExtractionConfig struct {
	Timeout       time.Duration
	MaxBodySize   int
	Concurrency   int
	RatePerMinute int
}

// PipelineConfig holds settings shared by every front end
type PipelineConfig struct {
	Location       *time.Location
	IgnoredDomains []string
}

// CacheConfig represents the extraction cache configuration
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	MaxEntries       int
	SQLitePath       string
	MySQLDSN         string
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	ListenAddress   string
	Mode            string
	CookieSecure    bool
	MaxBatchEmails  int
	MaxRequestBytes int64
	TrustedProxies  []string
}

// SMTPIntakeConfig represents the SMTP intake listener configuration
type SMTPIntakeConfig struct {
	Enabled         bool
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64

	// ForwardAddress, when set, receives every accepted message annotated with task headers
	ForwardAddress string
}

// OAuthConfig holds the mailbox provider's OAuth client
type OAuthConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	CredentialsFile string
}

// GmailConfig controls which messages are fetched
type GmailConfig struct {
	MaxResults int
	Query      string
}

// SessionConfig selects the session store
type SessionConfig struct {
	Store         string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetExtraction returns the extraction configuration
func (c *Config) GetExtraction() (ExtractionConfig, error) {
	timeout, err := c.GetDuration("extraction.timeout")
	if err != nil {
		return ExtractionConfig{}, err
	}
	return ExtractionConfig{
		Timeout:       timeout,
		MaxBodySize:   c.GetInt("extraction.max_body_size"),
		Concurrency:   c.GetInt("extraction.concurrency"),
		RatePerMinute: c.GetInt("extraction.rate_per_minute"),
	}, nil
}

// GetLocation returns the time zone reference instants are taken in
func (c *Config) GetLocation() (*time.Location, error) {
	tz := c.GetString("pipeline.timezone")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// GetPipeline returns the shared pipeline settings
func (c *Config) GetPipeline() (PipelineConfig, error) {
	loc, err := c.GetLocation()
	if err != nil {
		return PipelineConfig{}, err
	}
	return PipelineConfig{
		Location:       loc,
		IgnoredDomains: c.GetStringSlice("mailbox.ignored_domains"),
	}, nil
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		MaxEntries:       c.GetInt("cache.max_entries"),
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	sc := ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		Mode:            c.GetString("server.mode"),
		CookieSecure:    c.GetBool("server.cookie_secure"),
		MaxBatchEmails:  c.GetInt("server.max_batch_emails"),
		MaxRequestBytes: c.GetInt64("server.max_request_bytes"),
		TrustedProxies:  c.GetStringSlice("server.trusted_proxies"),
	}
	if sc.MaxRequestBytes <= 0 {
		// room for a full batch of bodies before truncation, plus JSON framing
		perEmail := int64(c.GetInt("extraction.max_body_size")) * requestBodySlack
		sc.MaxRequestBytes = int64(sc.MaxBatchEmails)*perEmail + requestOverheadBytes
	}
	return sc
}

const (
	requestBodySlack     = 4
	requestOverheadBytes = 64 << 10
)

// GetSMTPIntake returns the SMTP intake configuration
func (c *Config) GetSMTPIntake() SMTPIntakeConfig {
	return SMTPIntakeConfig{
		Enabled:         c.GetBool("intake.smtp.enabled"),
		ListenAddress:   c.GetString("intake.smtp.listen_address"),
		Domain:          c.GetString("intake.smtp.domain"),
		MaxMessageBytes: int64(c.GetInt("intake.smtp.max_message_bytes")),
		ForwardAddress:  c.GetString("intake.smtp.forward_address"),
	}
}

// GetOAuth returns the OAuth client configuration
func (c *Config) GetOAuth() OAuthConfig {
	return OAuthConfig{
		ClientID:        c.GetString("oauth.client_id"),
		ClientSecret:    c.GetString("oauth.client_secret"),
		RedirectURL:     c.GetString("oauth.redirect_url"),
		CredentialsFile: c.GetString("oauth.credentials_file"),
	}
}

// GetGmail returns the Gmail fetch configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		MaxResults: c.GetInt("gmail.max_results"),
		Query:      c.GetString("gmail.query"),
	}
}

// GetSession returns the session store configuration
func (c *Config) GetSession() (SessionConfig, error) {
	ttl, err := c.GetDuration("session.ttl")
	if err != nil {
		return SessionConfig{}, err
	}
	return SessionConfig{
		Store:         c.GetString("session.store"),
		TTL:           ttl,
		RedisAddr:     c.GetString("redis.addr"),
		RedisPassword: c.GetString("redis.password"),
		RedisDB:       c.GetInt("redis.db"),
	}, nil
}
