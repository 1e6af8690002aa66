package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database configuration
	DatabaseURL string

	// Ingestion configuration
	DefaultSiteCode string

	// POS sync configuration
	POSBridgeURL   string
	POSBridgeKey   string
	POSTimeout     time.Duration
	SyncPageSize   int
	SyncMaxWorkers int
	SyncRetryDelay time.Duration
	SyncMaxRetries int

	// Event transport configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EventChannel  string
}

// fileConfig is the optional YAML overlay (config.yaml). Environment
// variables win over file values.
type fileConfig struct {
	Port            int    `yaml:"port"`
	DatabaseURL     string `yaml:"database_url"`
	DefaultSiteCode string `yaml:"default_site_code"`
	POSBridgeURL    string `yaml:"pos_bridge_url"`
	SyncPageSize    int    `yaml:"sync_page_size"`
	SyncMaxWorkers  int    `yaml:"sync_max_workers"`
	RedisAddr       string `yaml:"redis_addr"`
	EventChannel    string `yaml:"event_channel"`
}

// LoadConfig loads the application configuration from the environment,
// with an optional .env file and an optional YAML file underneath.
func LoadConfig(configFile string) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env file. Using environment variables.")
	}

	fc, err := loadFileConfig(configFile)
	if err != nil {
		return nil, err
	}

	config := &Config{
		// Server configuration
		Port:         getEnvInt("PORT", defaultInt(fc.Port, 8080)),
		ReadTimeout:  time.Duration(getEnvInt("READ_TIMEOUT", 15)) * time.Second,
		WriteTimeout: time.Duration(getEnvInt("WRITE_TIMEOUT", 15)) * time.Second,

		// Database configuration
		DatabaseURL: getEnvString("POSTGRES_DB_URL", fc.DatabaseURL),

		// Ingestion configuration
		DefaultSiteCode: getEnvString("DEFAULT_SITE_CODE", defaultString(fc.DefaultSiteCode, "1")),

		// POS sync configuration
		POSBridgeURL:   getEnvString("POS_BRIDGE_URL", fc.POSBridgeURL),
		POSBridgeKey:   os.Getenv("POS_BRIDGE_KEY"),
		POSTimeout:     time.Duration(getEnvInt("POS_TIMEOUT", 30)) * time.Second,
		SyncPageSize:   getEnvInt("SYNC_PAGE_SIZE", defaultInt(fc.SyncPageSize, 1000)),
		SyncMaxWorkers: getEnvInt("SYNC_MAX_WORKERS", defaultInt(fc.SyncMaxWorkers, 20)),
		SyncRetryDelay: time.Duration(getEnvInt("SYNC_RETRY_DELAY", 5)) * time.Second,
		SyncMaxRetries: getEnvInt("SYNC_MAX_RETRIES", 5),

		// Event transport configuration
		RedisAddr:     getEnvString("REDIS_ADDR", fc.RedisAddr),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		EventChannel:  getEnvString("EVENT_CHANNEL", fc.EventChannel),
	}

	validateConfig(config)

	return config, nil
}

// loadFileConfig reads the YAML overlay when the file exists. A missing
// file is not an error; a malformed one is.
func loadFileConfig(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	log.Printf("Loaded configuration overlay from %s", path)

	return fc, nil
}

// validateConfig checks if critical configuration values are set and logs warnings if they're missing
func validateConfig(config *Config) {
	if config.DatabaseURL == "" {
		log.Println("Warning: No database URL provided. Persistence will fail.")
	}
	if config.POSBridgeURL == "" {
		log.Println("Warning: No POS bridge URL provided. Live sync will fail.")
	}
	if config.RedisAddr == "" {
		log.Println("No Redis address provided. Lifecycle events go to the process log.")
	}
}

// getEnvInt gets an integer from an environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvBool gets a boolean from an environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}

// getEnvString gets a string from an environment variable with a default value
func getEnvString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
