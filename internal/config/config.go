package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	SiteURL        string
	AllowedOrigins []string // CORS allowed origins
	StaticDir      string
	LogLevel       string

	StoreBackend  string // forces a backend when set: postgres|hybrid|kv|dynamo|memory
	StoreSanitize bool

	SupabaseURL   string
	SupabaseKey   string
	SupabaseDBURL string

	KVRestURL   string
	KVRestToken string
	KVURL       string
	KVKeyPrefix string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string

	EmailAPIKey  string
	EmailFrom    string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	AnthropicAPIKey string
	AnthropicModel  string

	ResetTokenTTL time.Duration
}

// DynamoTables holds the DynamoDB table name for each entity.
// Users being empty means the DynamoDB backend is not configured.
type DynamoTables struct {
	Users       string
	ResetTokens string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", getEnv("PORT", "3000")),
		AppEnv:         getEnv("APP_ENV", "development"),
		SiteURL:        strings.TrimRight(getEnv("SITE_URL", "https://edgelandings.com"), "/"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		StaticDir:      getEnv("STATIC_DIR", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", "")),
		StoreSanitize: getEnvBool("STORE_SANITIZE", true),

		SupabaseURL:   getEnv("SUPABASE_URL", ""),
		SupabaseKey:   getEnv("SUPABASE_KEY", ""),
		SupabaseDBURL: getEnv("SUPABASE_DB_URL", ""),

		KVRestURL:   getEnv("KV_REST_API_URL", ""),
		KVRestToken: getEnv("KV_REST_API_TOKEN", ""),
		KVURL:       getEnv("KV_URL", ""),
		KVKeyPrefix: getEnv("KV_KEY_PREFIX", "edge:"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:       getEnv("DYNAMO_TABLE_USERS", ""),
			ResetTokens: getEnv("DYNAMO_TABLE_RESET_TOKENS", "reset_tokens"),
		},

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		EmailAPIKey:  getEnv("EMAIL_API_KEY", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "Edge Websites <noreply@edgelandings.com>"),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),

		ResetTokenTTL: time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 60)) * time.Minute,
	}
}

// IsProduction reports whether debug-only routes must stay disabled.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RelationalConfigured reports whether the paired Supabase variables are present.
func (c *Config) RelationalConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// KVConfigured reports whether the keyed cache store has enough to connect.
func (c *Config) KVConfigured() bool {
	return c.KVURL != "" || (c.KVRestURL != "" && c.KVRestToken != "")
}

// DynamoConfigured reports whether a DynamoDB users table was named.
func (c *Config) DynamoConfigured() bool {
	return c.DynamoTables.Users != ""
}

// Warnings checks the shape of configured credentials. A warning never stops
// startup; a malformed value usually shows up later as an auth error.
func (c *Config) Warnings() []string {
	var out []string
	if c.SupabaseURL != "" {
		u, err := url.Parse(c.SupabaseURL)
		switch {
		case err != nil || u.Host == "":
			out = append(out, "SUPABASE_URL is not a valid URL")
		case u.Scheme != "https":
			out = append(out, "SUPABASE_URL must use https://")
		case !strings.HasSuffix(u.Hostname(), ".supabase.co"):
			out = append(out, "SUPABASE_URL host does not end in .supabase.co")
		}
	}
	if c.SupabaseKey != "" && !supabaseKeyLooksValid(c.SupabaseKey) {
		out = append(out, "SUPABASE_KEY does not look like a Supabase secret key (expected sb_secret_... or a service_role JWT)")
	}
	if c.KVRestURL != "" && !strings.HasPrefix(c.KVRestURL, "https://") {
		out = append(out, "KV_REST_API_URL must use https://")
	}
	if c.StripeSecretKey != "" && !strings.HasPrefix(c.StripeSecretKey, "sk_") && !strings.HasPrefix(c.StripeSecretKey, "rk_") {
		out = append(out, "STRIPE_SECRET_KEY should start with sk_ or rk_")
	}
	return out
}

func supabaseKeyLooksValid(key string) bool {
	if strings.HasPrefix(key, "sb_secret_") {
		return len(key) > len("sb_secret_")+16
	}
	return strings.HasPrefix(key, "eyJ") && len(key) >= 100 && strings.Count(key, ".") == 2
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
