package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Backend selectors for the optional event and receipt infrastructure.
// Empty means the feature is disabled.
const (
	EventsBackendPubSub   = "pubsub"
	EventsBackendRabbitMQ = "rabbitmq"

	ReceiptsBackendMinio = "minio"
	ReceiptsBackendGCS   = "gcs"
)

type Config struct {
	ServerPort      int
	Database        DatabaseConfig
	EventsBackend   string
	PubSub          PubSubConfig
	RabbitMQ        RabbitMQConfig
	ReceiptsBackend string
	Minio           MinioConfig
	GCS             GCSConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

type RabbitMQConfig struct {
	URL          string
	QueueDurable bool
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	ProjectID       string
	Bucket          string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "bookcart"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "bookcart_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	return Config{
		ServerPort:    getEnvInt("SERVER_PORT", 8080),
		Database:      dbConfig,
		EventsBackend: getEnv("EVENTS_BACKEND", ""),
		PubSub: PubSubConfig{
			ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:          getEnv("RABBITMQ_URL", ""),
			QueueDurable: getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
		},
		ReceiptsBackend: getEnv("RECEIPTS_BACKEND", ""),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "bookcart-receipts"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			Bucket:          getEnv("GCS_BUCKET", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
