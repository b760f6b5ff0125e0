// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the API process needs at startup.
type Config struct {
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	JWTSecret    string
	JWTKeys      map[string]string // kid -> secret, enables rotation
	JWTActiveKid string
	TokenTTL     time.Duration

	Port         string
	HealthPort   string
	RateLimitRPM int
	CORSOrigins  []string
	NATSURL      string

	LogLevel string
	Debug    bool
}

// Load reads an optional .env file and then the process environment.
// It returns an error when a required setting is missing so the caller can
// refuse to start instead of connecting with undefined credentials.
func Load() (*Config, error) {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnv("MONGODB_URI", ""),
		MongoDatabase:     getEnv("MONGODB_DATABASE", "social_db"),
		MongoTransactions: getEnvAsBool("MONGODB_TRANSACTIONS", false),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTActiveKid:      getEnv("JWT_ACTIVE_KID", ""),
		TokenTTL:          getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		Port:              getEnv("PORT", "5000"),
		HealthPort:        os.Getenv("HEALTH_PORT"),
		RateLimitRPM:      getEnvAsInt("RATE_LIMIT_RPM", 10),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		NATSURL:           getEnv("NATS_URL", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Debug:             getEnvAsBool("DEBUG", false),
	}
	if _, set := os.LookupEnv("HEALTH_PORT"); !set {
		cfg.HealthPort = "50051"
	}

	keys, err := ParseKeys(os.Getenv("JWT_KEYS"))
	if err != nil {
		return nil, err
	}
	cfg.JWTKeys = keys

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MongoURI == "" {
		return errors.New("MONGODB_URI must be set")
	}
	if len(c.JWTKeys) == 0 && c.JWTSecret == "" {
		return errors.New("either JWT_SECRET or JWT_KEYS must be set")
	}
	if len(c.JWTKeys) > 0 && c.JWTActiveKid != "" {
		if _, ok := c.JWTKeys[c.JWTActiveKid]; !ok {
			return fmt.Errorf("JWT_ACTIVE_KID %q not present in JWT_KEYS", c.JWTActiveKid)
		}
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

// ParseKeys parses "kid:secret,kid2:secret2" into a map.
func ParseKeys(raw string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid JWT_KEYS entry: %s", p)
		}
		keys[parts[0]] = parts[1]
	}
	return keys, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil && value > 0 {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return val
	}
	return defaultVal
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
