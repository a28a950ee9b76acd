package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ai-content-platform/internal/pkg/validate"
)

// Storage backends for the usage-stats key/value store.
const (
	StorageDynamo = "dynamodb"
	StorageMemory = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	StorageBackend string `validate:"oneof=dynamodb memory"`
	DynamoTables   DynamoTables

	S3BucketName  string
	ArchiveImages bool
	ArchiveURLTTL time.Duration

	SNSTopicARN     string
	SNSForwardTypes []string // notification types published to SNSTopicARN

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	GoogleClientID    string

	OpenAIAPIKey      string `validate:"omitempty,openaikey"`
	OpenAIBaseURL     string
	OpenAIModel       string  `validate:"required"`
	OpenAITemperature float64 `validate:"gte=0,lte=2"`
	OpenAIMaxTokens   int     `validate:"gt=0"`

	FalKeyID     string
	FalKeySecret string
	FalBaseURL   string `validate:"required,url"`
	FalModel     string `validate:"required"`

	UpstreamTimeout time.Duration `validate:"gt=0"`

	DefaultPlan string `validate:"oneof=free pro"`
	Limits      PlanLimits

	NotificationTick time.Duration // 0 disables server-side expiry
	// Queues of users idle this long are dropped; 0 keeps them forever.
	NotificationIdleTTL time.Duration `validate:"gte=0"`

	GenerateRateLimit float64 `validate:"gt=0"`
	GenerateBurst     int     `validate:"gt=0"`
	// TrustProxyHeaders keys anonymous clients by X-Forwarded-For/X-Real-Ip.
	// Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	KV string `validate:"required"`
}

// PlanLimits caps generations per plan. A zero value disables that cap.
type PlanLimits struct {
	FreeDaily   int `validate:"gte=0"`
	FreeMonthly int `validate:"gte=0"`
	ProDaily    int `validate:"gte=0"`
	ProMonthly  int `validate:"gte=0"`
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "5000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		StorageBackend: getEnv("STORAGE_BACKEND", StorageDynamo),
		DynamoTables: DynamoTables{
			KV: getEnv("DYNAMO_TABLE_KV", "kv_store"),
		},

		S3BucketName:  getEnv("S3_BUCKET_NAME", ""),
		ArchiveImages: getEnvBool("S3_ARCHIVE_IMAGES", false),
		ArchiveURLTTL: getEnvDuration("S3_ARCHIVE_URL_TTL", 24*time.Hour),

		SNSTopicARN:     getEnv("SNS_TOPIC_ARN", ""),
		SNSForwardTypes: getEnvList("SNS_FORWARD_TYPES", "error"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		GoogleClientID:    getEnv("GOOGLE_CLIENT_ID", ""),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-3.5-turbo-0125"),
		OpenAITemperature: getEnvFloat("GPT_TEMPERATURE", 0.7),
		OpenAIMaxTokens:   getEnvInt("GPT_MAX_TOKENS", 2000),

		FalKeyID:     getEnv("FAL_KEY_ID", ""),
		FalKeySecret: getEnv("FAL_KEY_SECRET", ""),
		FalBaseURL:   getEnv("FAL_BASE_URL", "https://fal.run"),
		FalModel:     getEnv("FAL_MODEL", "fal-ai/flux/schnell"),

		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 60*time.Second),

		DefaultPlan: getEnv("DEFAULT_PLAN", "free"),
		Limits: PlanLimits{
			FreeDaily:   getEnvInt("USAGE_LIMIT_FREE_DAILY", 100),
			FreeMonthly: getEnvInt("USAGE_LIMIT_FREE_MONTHLY", 1000),
			ProDaily:    getEnvInt("USAGE_LIMIT_PRO_DAILY", 1000),
			ProMonthly:  getEnvInt("USAGE_LIMIT_PRO_MONTHLY", 10000),
		},

		NotificationTick:    getEnvDuration("NOTIFICATION_TICK", 100*time.Millisecond),
		NotificationIdleTTL: getEnvDuration("NOTIFICATION_IDLE_TTL", 30*time.Minute),

		GenerateRateLimit: getEnvFloat("GENERATE_RATE_LIMIT", 1),
		GenerateBurst:     getEnvInt("GENERATE_BURST", 5),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", "*"),
	}
}

// Validate checks the loaded values with their validate tags.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// FalConfigured reports whether both halves of the fal.ai key are present.
func (c *Config) FalConfigured() bool {
	return c.FalKeyID != "" && c.FalKeySecret != ""
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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, s := range strings.Split(getEnv(key, fallback), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
