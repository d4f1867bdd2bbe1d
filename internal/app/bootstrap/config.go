package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	SourceDBDSN string

	KafkaBrokers            []string
	KafkaConsumerGroup      string
	KafkaTopicNotifications string
	KafkaTopicReplicated    string
	KafkaTopicDeferred      string
	KafkaTopicRecovered     string
	KafkaTopicRetryFailed   string

	CRMBaseURL      string
	CRMClientID     string
	CRMClientSecret string
	CRMUsername     string
	CRMPassword     string
	CRMTimeout      time.Duration

	MaxDBConns           int
	ConsumerPollInterval time.Duration
	RedemptionDelay      time.Duration
	LookupCacheTTL       time.Duration

	EncryptionSeed string
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL             string   `yaml:"postgres_url"`
		RedisURL                string   `yaml:"redis_url"`
		SourceDBDSN             string   `yaml:"source_db_dsn"`
		KafkaBrokers            []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup      string   `yaml:"kafka_consumer_group"`
		KafkaTopicNotifications string   `yaml:"kafka_topic_notifications"`
		KafkaTopicReplicated    string   `yaml:"kafka_topic_replicated"`
		KafkaTopicDeferred      string   `yaml:"kafka_topic_deferred"`
		KafkaTopicRecovered     string   `yaml:"kafka_topic_recovered"`
		KafkaTopicRetryFailed   string   `yaml:"kafka_topic_retry_failed"`
	} `yaml:"dependencies"`
	CRM struct {
		BaseURL      string `yaml:"base_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
	} `yaml:"crm"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:               "crm-replicator",
		HTTPPort:                8080,
		GRPCPort:                9090,
		MaxDBConns:              20,
		KafkaConsumerGroup:      "crm-replicator",
		KafkaTopicNotifications: "crm.notifications",
		KafkaTopicReplicated:    "crm.package.replicated",
		KafkaTopicDeferred:      "crm.package.deferred",
		KafkaTopicRecovered:     "crm.package.recovered",
		KafkaTopicRetryFailed:   "crm.package.retry_failed",
		CRMTimeout:              30 * time.Second,
		ConsumerPollInterval:    2 * time.Second,
		RedemptionDelay:         4 * time.Second,
		LookupCacheTTL:          10 * time.Minute,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Dependencies.SourceDBDSN != "" {
			cfg.SourceDBDSN = f.Dependencies.SourceDBDSN
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.KafkaConsumerGroup != "" {
			cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
		}
		if f.Dependencies.KafkaTopicNotifications != "" {
			cfg.KafkaTopicNotifications = f.Dependencies.KafkaTopicNotifications
		}
		if f.Dependencies.KafkaTopicReplicated != "" {
			cfg.KafkaTopicReplicated = f.Dependencies.KafkaTopicReplicated
		}
		if f.Dependencies.KafkaTopicDeferred != "" {
			cfg.KafkaTopicDeferred = f.Dependencies.KafkaTopicDeferred
		}
		if f.Dependencies.KafkaTopicRecovered != "" {
			cfg.KafkaTopicRecovered = f.Dependencies.KafkaTopicRecovered
		}
		if f.Dependencies.KafkaTopicRetryFailed != "" {
			cfg.KafkaTopicRetryFailed = f.Dependencies.KafkaTopicRetryFailed
		}
		if f.CRM.BaseURL != "" {
			cfg.CRMBaseURL = f.CRM.BaseURL
		}
		if f.CRM.ClientID != "" {
			cfg.CRMClientID = f.CRM.ClientID
		}
		if f.CRM.ClientSecret != "" {
			cfg.CRMClientSecret = f.CRM.ClientSecret
		}
		if f.CRM.Username != "" {
			cfg.CRMUsername = f.CRM.Username
		}
		if f.CRM.Password != "" {
			cfg.CRMPassword = f.CRM.Password
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.SourceDBDSN = envOrDefault("SOURCE_DB_DSN", cfg.SourceDBDSN)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.KafkaTopicNotifications = envOrDefault("KAFKA_TOPIC_NOTIFICATIONS", cfg.KafkaTopicNotifications)
	cfg.KafkaTopicReplicated = envOrDefault("KAFKA_TOPIC_REPLICATED", cfg.KafkaTopicReplicated)
	cfg.KafkaTopicDeferred = envOrDefault("KAFKA_TOPIC_DEFERRED", cfg.KafkaTopicDeferred)
	cfg.KafkaTopicRecovered = envOrDefault("KAFKA_TOPIC_RECOVERED", cfg.KafkaTopicRecovered)
	cfg.KafkaTopicRetryFailed = envOrDefault("KAFKA_TOPIC_RETRY_FAILED", cfg.KafkaTopicRetryFailed)
	cfg.CRMBaseURL = envOrDefault("CRM_BASE_URL", cfg.CRMBaseURL)
	cfg.CRMClientID = envOrDefault("CRM_CLIENT_ID", cfg.CRMClientID)
	cfg.CRMClientSecret = envOrDefault("CRM_CLIENT_SECRET", cfg.CRMClientSecret)
	cfg.CRMUsername = envOrDefault("CRM_USERNAME", cfg.CRMUsername)
	cfg.CRMPassword = envOrDefault("CRM_PASSWORD", cfg.CRMPassword)
	cfg.EncryptionSeed = envOrDefault("ENCRYPTION_SEED", cfg.EncryptionSeed)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = envInt("DB_MAX_CONNS", cfg.MaxDBConns)
	cfg.CRMTimeout = time.Duration(envInt("CRM_TIMEOUT_SECONDS", int(cfg.CRMTimeout.Seconds()))) * time.Second
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.RedemptionDelay = time.Duration(envInt("REDEMPTION_DELAY_SECONDS", int(cfg.RedemptionDelay.Seconds()))) * time.Second
	cfg.LookupCacheTTL = time.Duration(envInt("LOOKUP_CACHE_SECONDS", int(cfg.LookupCacheTTL.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.CRMBaseURL == "" {
		return Config{}, fmt.Errorf("missing CRM_BASE_URL")
	}
	if cfg.CRMUsername == "" || cfg.CRMPassword == "" {
		return Config{}, fmt.Errorf("missing CRM_USERNAME/CRM_PASSWORD")
	}
	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	items := strings.Split(raw, ",")
	return trimNonEmpty(items)
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
