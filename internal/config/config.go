package config

import (
	"fmt"
	"os"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr               string `mapstructure:"addr"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec"`
	ReadTimeoutSec     int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec    int    `mapstructure:"write_timeout_sec"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type StorageConfig struct {
	S3Endpoint    string `mapstructure:"s3_endpoint"`
	S3AccessKey   string `mapstructure:"s3_access_key"`
	S3SecretKey   string `mapstructure:"s3_secret_key"`
	S3Bucket      string `mapstructure:"s3_bucket"`
	S3Region      string `mapstructure:"s3_region"`
	S3UseSSL      bool   `mapstructure:"s3_use_ssl"`
	PresignTTLSec int    `mapstructure:"presign_ttl_sec"`
}

type DispatchConfig struct {
	Type                 string `mapstructure:"type"`
	RedisAddr            string `mapstructure:"redis_addr"`
	RedisDB              int    `mapstructure:"redis_db"`
	PhotoQueue           string `mapstructure:"photo_queue"`
	DeleteQueue          string `mapstructure:"delete_queue"`
	KafkaBrokers         string `mapstructure:"kafka_brokers"`
	KafkaTopic           string `mapstructure:"kafka_topic"`
	ConnectRetries       int    `mapstructure:"connect_retries"`
	ConnectRetryDelaySec int    `mapstructure:"connect_retry_delay_sec"`
}

type UploadConfig struct {
	MaxFiles         int      `mapstructure:"max_files"`
	MaxTotalSizeMB   int      `mapstructure:"max_total_size_mb"`
	MaxDimension     int      `mapstructure:"max_dimension"`
	OutputQuality    int      `mapstructure:"output_quality"`
	Concurrency      int      `mapstructure:"concurrency"`
	SupportedFormats []string `mapstructure:"supported_formats"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load(path string) (*Config, error) {
	cfg := config.New()

	configPath := path
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		} else if _, err := os.Stat("/app/config.yaml"); err == nil {
			configPath = "/app/config.yaml"
		} else {
			return nil, fmt.Errorf("config.yaml not found")
		}
	}

	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = ""
	}

	if err := cfg.Load(configPath, envPath, "APP"); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appConfig := &Config{}
	if err := cfg.Unmarshal(appConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(appConfig)

	if err := validateConfig(appConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	zlog.Logger.Info().
		Str("addr", appConfig.Server.Addr).
		Str("s3_bucket", appConfig.Storage.S3Bucket).
		Str("dispatch_type", appConfig.Dispatch.Type).
		Int("max_files", appConfig.Upload.MaxFiles).
		Int("max_total_size_mb", appConfig.Upload.MaxTotalSizeMB).
		Msg("Config loaded successfully via wbf")

	return appConfig, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.PresignTTLSec == 0 {
		cfg.Storage.PresignTTLSec = 3600
	}
	if cfg.Dispatch.PhotoQueue == "" {
		cfg.Dispatch.PhotoQueue = "queue:photo_worker"
	}
	if cfg.Dispatch.DeleteQueue == "" {
		cfg.Dispatch.DeleteQueue = "queue:photo_delete_worker"
	}
	if cfg.Dispatch.ConnectRetries == 0 {
		cfg.Dispatch.ConnectRetries = 15
	}
	if cfg.Dispatch.ConnectRetryDelaySec == 0 {
		cfg.Dispatch.ConnectRetryDelaySec = 3
	}
	if cfg.Upload.MaxFiles == 0 {
		cfg.Upload.MaxFiles = 30
	}
	if cfg.Upload.MaxTotalSizeMB == 0 {
		cfg.Upload.MaxTotalSizeMB = 100
	}
	if cfg.Upload.MaxDimension == 0 {
		cfg.Upload.MaxDimension = 1920
	}
	if cfg.Upload.OutputQuality == 0 {
		cfg.Upload.OutputQuality = 85
	}
	if cfg.Upload.Concurrency == 0 {
		cfg.Upload.Concurrency = 5
	}
	if len(cfg.Upload.SupportedFormats) == 0 {
		cfg.Upload.SupportedFormats = []string{"jpg", "jpeg", "png", "gif", "webp"}
	}
}

func validateConfig(cfg *Config) error {
	// Server
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("server.shutdown_timeout_sec must be positive")
	}
	if cfg.Server.ReadTimeoutSec <= 0 {
		return fmt.Errorf("server.read_timeout_sec must be positive")
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		return fmt.Errorf("server.write_timeout_sec must be positive")
	}

	// Auth
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	// Storage
	if cfg.Storage.S3Endpoint == "" {
		return fmt.Errorf("storage.s3_endpoint is required")
	}
	if cfg.Storage.S3Bucket == "" {
		return fmt.Errorf("storage.s3_bucket is required")
	}
	if cfg.Storage.S3AccessKey == "" || cfg.Storage.S3SecretKey == "" {
		return fmt.Errorf("storage.s3_access_key and storage.s3_secret_key are required")
	}
	if cfg.Storage.PresignTTLSec <= 0 {
		return fmt.Errorf("storage.presign_ttl_sec must be positive")
	}

	// Dispatch
	switch cfg.Dispatch.Type {
	case "redis":
		if cfg.Dispatch.RedisAddr == "" {
			return fmt.Errorf("dispatch.redis_addr is required for redis dispatch")
		}
	case "kafka":
		if cfg.Dispatch.KafkaBrokers == "" {
			return fmt.Errorf("dispatch.kafka_brokers is required for kafka dispatch")
		}
		if cfg.Dispatch.KafkaTopic == "" {
			return fmt.Errorf("dispatch.kafka_topic is required for kafka dispatch")
		}
	case "":
		return fmt.Errorf("dispatch.type is required (redis|kafka)")
	default:
		return fmt.Errorf("dispatch.type must be 'redis' or 'kafka'")
	}

	// Upload
	if cfg.Upload.MaxFiles <= 0 {
		return fmt.Errorf("upload.max_files must be positive")
	}
	if cfg.Upload.MaxTotalSizeMB <= 0 {
		return fmt.Errorf("upload.max_total_size_mb must be positive")
	}
	if cfg.Upload.MaxDimension <= 0 {
		return fmt.Errorf("upload.max_dimension must be positive")
	}
	if cfg.Upload.OutputQuality <= 0 || cfg.Upload.OutputQuality > 100 {
		return fmt.Errorf("upload.output_quality must be in 1..100")
	}
	if cfg.Upload.Concurrency <= 0 {
		return fmt.Errorf("upload.concurrency must be positive")
	}

	if cfg.Logging.Level == "" {
		return fmt.Errorf("logging.level is required")
	}

	return nil
}
