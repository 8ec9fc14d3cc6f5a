package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the API server. Values are
// read from the environment; in dev a .env file is loaded first.
type Config struct {
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"json"`

	Database DatabaseConfig
	Storage  StorageConfig
	Minio    MinioConfig
	GCS      GCSConfig
	MQ       MQConfig
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"recipebox"`
	Password string `env:"DB_PASSWORD" envDefault:"password"`
	DBName   string `env:"DB_NAME" envDefault:"recipebox_db"`
	UseSSL   bool   `env:"DB_USE_SSL"`
}

// StorageConfig selects the object-storage backend for recipe images.
type StorageConfig struct {
	// Backend is "minio" or "gcs".
	Backend string `env:"STORAGE_BACKEND" envDefault:"minio"`
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"recipe-images"`
	UseSSL    bool   `env:"MINIO_USE_SSL"`
}

type GCSConfig struct {
	ProjectID       string `env:"GCS_PROJECT_ID"`
	Bucket          string `env:"GCS_BUCKET"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

// MQConfig selects the broker used for domain events.
type MQConfig struct {
	// Backend is "rabbitmq", "pubsub" or "none".
	Backend string `env:"MQ_BACKEND" envDefault:"none"`

	// EventsChannel is the queue/topic recipe events are published to.
	EventsChannel string `env:"MQ_EVENTS_CHANNEL" envDefault:"recipe.events"`
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH_COUNT"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
