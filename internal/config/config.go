package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	LogFile  string

	MongoURI      string
	MongoDatabase string
	MySQLDSN      string
	StoreTimeout  time.Duration

	JWTSecret          string
	AllowedEmailDomain string

	// DisplayLimit and CountScanWindow are independent: badge counts scan
	// a fixed window regardless of how many records a listing shows.
	DisplayLimit    int
	MaxDisplayLimit int
	CountScanWindow int
	PollInterval    time.Duration
	SSEHeartbeat    time.Duration

	RabbitMQURL         string
	RabbitExchange      string
	RabbitQueue         string
	RabbitRoutingKey    string
	RabbitConsumerTag   string
	RabbitPublishPrefix string

	OTELServiceName string
	OTLPEndpoint    string
	OTLPInsecure    bool
	// OTELSampleRatio is the parent-based trace sampling ratio in [0,1].
	OTELSampleRatio float64
	Environment     string
	Version         string
}

func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:            ":8080",
		LogFile:             "logs/app.log",
		MongoDatabase:       "mentor_dashboard",
		StoreTimeout:        10 * time.Second,
		DisplayLimit:        50,
		MaxDisplayLimit:     200,
		CountScanWindow:     100,
		PollInterval:        30 * time.Second,
		SSEHeartbeat:        15 * time.Second,
		RabbitExchange:      "notifications",
		RabbitQueue:         "notifications.ingest",
		RabbitRoutingKey:    "notification.*",
		RabbitConsumerTag:   "notifybell-ingest",
		RabbitPublishPrefix: "notification",
		OTELServiceName:     "notifybell",
		OTLPInsecure:        true,
		OTELSampleRatio:     1,
		Environment:         "development",
		Version:             "dev",
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	cfg.MongoURI = os.Getenv("MONGO_URI")
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.MongoDatabase = v
	}
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.StoreTimeout = durationSeconds("STORE_TIMEOUT_SECONDS", cfg.StoreTimeout)

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.AllowedEmailDomain = os.Getenv("ALLOWED_EMAIL_DOMAIN")

	cfg.DisplayLimit = positiveInt("DISPLAY_LIMIT", cfg.DisplayLimit)
	cfg.MaxDisplayLimit = positiveInt("MAX_DISPLAY_LIMIT", cfg.MaxDisplayLimit)
	cfg.CountScanWindow = positiveInt("COUNT_SCAN_WINDOW", cfg.CountScanWindow)
	cfg.PollInterval = durationSeconds("POLL_INTERVAL_SECONDS", cfg.PollInterval)
	cfg.SSEHeartbeat = durationSeconds("SSE_HEARTBEAT_SECONDS", cfg.SSEHeartbeat)

	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")
	if v := os.Getenv("RABBITMQ_EXCHANGE"); v != "" {
		cfg.RabbitExchange = v
	}
	if v := os.Getenv("RABBITMQ_QUEUE"); v != "" {
		cfg.RabbitQueue = v
	}
	if v := os.Getenv("RABBITMQ_ROUTING_KEY"); v != "" {
		cfg.RabbitRoutingKey = v
	}
	if v := os.Getenv("RABBITMQ_CONSUMER_TAG"); v != "" {
		cfg.RabbitConsumerTag = v
	}
	if v := os.Getenv("RABBITMQ_PUBLISH_PREFIX"); v != "" {
		cfg.RabbitPublishPrefix = v
	}

	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.OTELServiceName = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OTLPInsecure = b
		}
	}
	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r >= 0 && r <= 1 {
			cfg.OTELSampleRatio = r
		}
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("APP_VERSION"); v != "" {
		cfg.Version = v
	}

	return cfg
}

func positiveInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func durationSeconds(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
