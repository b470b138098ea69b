package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	instance *AppConfig
	once     sync.Once
	mu       sync.Mutex
)

// AppConfig holds the application level configuration
type AppConfig struct {
	AppPort   string
	BaseURL   string
	SecretKey string

	// Callback endpoints advertised to gateways
	ReturnURL     string
	ClientBackURL string

	// OpenSearch mirror for the callback audit trail
	EnableOpenSearch   bool
	OpenSearchURL      string
	OpenSearchUsername string
	OpenSearchPassword string

	Validator *validator.Validate
}

// App returns the singleton application config instance
func App() *AppConfig {
	once.Do(func() {
		instance = &AppConfig{
			AppPort:            GetEnv("APP_PORT", "9999"),
			BaseURL:            GetEnv("APP_URL", "http://localhost:9999"),
			SecretKey:          GetEnv("SECRET_KEY", "paygate-default-secret-key"),
			ReturnURL:          GetEnv("CALLBACK_RETURN_URL", ""),
			ClientBackURL:      GetEnv("CALLBACK_CLIENT_BACK_URL", ""),
			EnableOpenSearch:   GetBoolEnv("ENABLE_OPENSEARCH", false),
			OpenSearchURL:      GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUsername: GetEnv("OPENSEARCH_USERNAME", ""),
			OpenSearchPassword: GetEnv("OPENSEARCH_PASSWORD", ""),
			Validator:          validator.New(),
		}
	})
	return instance
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
