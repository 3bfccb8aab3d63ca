package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Environment   string
	Port          string
	DatabaseURL   string
	JWTSecret     string
	JWTExpiration int

	// Gemini Configuration (embeddings + assistant)
	GeminiAPIKey         string
	GeminiEmbeddingModel string
	GeminiChatModel      string

	// Route Planner Configuration
	RoutePlannerURL     string
	RoutePlannerTimeout time.Duration

	// Weather Configuration
	OpenWeatherAPIKey string

	// Collective Bargaining Configuration
	AcceptThreshold  float64       // fraction of group farmers whose accept-votes close a deal
	PinCodeProximity int           // max pin-code numeric distance still considered "nearby"
	GroupingInterval time.Duration // how often the grouping job runs

	// Rate Limiting Configuration
	RateLimitRequests int
	RateLimitWindow   int

	// CORS Configuration
	AllowedOrigins  []string
	AllowAllOrigins bool
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", "kisan.db"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiration: getEnvAsInt("JWT_EXPIRATION", 24*60*60), // 24 hours in seconds

		// Gemini Configuration
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiEmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "gemini-embedding-001"),
		GeminiChatModel:      getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),

		// Route Planner Configuration
		RoutePlannerURL:     getEnv("ROUTE_PLANNER_URL", ""),
		RoutePlannerTimeout: time.Duration(getEnvAsInt("ROUTE_PLANNER_TIMEOUT_SECONDS", 15)) * time.Second,

		// Weather Configuration
		OpenWeatherAPIKey: getEnv("OPENWEATHER_API_KEY", ""),

		// Collective Bargaining Configuration
		AcceptThreshold:  getEnvAsFloat("ACCEPT_THRESHOLD", 0.6),
		PinCodeProximity: getEnvAsInt("PIN_CODE_PROXIMITY", 100),
		GroupingInterval: time.Duration(getEnvAsInt("GROUPING_INTERVAL_MINUTES", 60)) * time.Minute,

		// Rate Limiting Configuration
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW", 60),

		// CORS Configuration
		AllowedOrigins:  getEnvAsStringSlice("ALLOWED_ORIGINS", []string{}),
		AllowAllOrigins: getEnvAsBool("ALLOW_ALL_ORIGINS", true),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.AcceptThreshold <= 0 || c.AcceptThreshold > 1 {
		return fmt.Errorf("accept threshold must be in (0, 1], got %v", c.AcceptThreshold)
	}
	if c.PinCodeProximity <= 0 {
		return fmt.Errorf("pin code proximity must be positive, got %d", c.PinCodeProximity)
	}

	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	return nil
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment: %s, Port: %s, DatabaseURL: %s}", c.Environment, c.Port, c.DatabaseURL)
}
