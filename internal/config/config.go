// Package config loads the server configuration from a dotenv file and the process environment.
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

var (
	// ErrMissingValue is returned when a required variable is unset.
	ErrMissingValue = errors.New("missing required configuration value")
	// ErrInvalidValue is returned when a variable cannot be parsed.
	ErrInvalidValue = errors.New("invalid configuration value")
)

type Config struct {
	MongoURI            string
	MongoDatabase       string
	MongoWriteConcern   string // "majority", "journaled", "0" or a replica count
	MongoConnectTimeout time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	WebserverIP   string
	WebserverPort int

	RabbitMQURL        string // empty disables account events
	AccountEventsQueue string

	LogDevelopment bool
	LogDebug       bool
	LogOutput      []string

	RateLimitAuthRPS   float64
	RateLimitAuthBurst int
}

// Load reads envFile into the environment (a missing file is not an error, variables already set
// win) and builds a Config from it.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		MongoURI:            p.required("MONGO_URI"),
		MongoDatabase:       getEnv("MONGO_DATABASE", "sample_mflix"),
		MongoWriteConcern:   getEnv("MONGO_WRITE_CONCERN", "majority"),
		MongoConnectTimeout: time.Duration(p.getInt("MONGO_CONNECT_TIMEOUT_SECONDS", 15)) * time.Second,
		JWTSecret:           p.required("JWT_SECRET_KEY"),
		JWTTTL:              time.Duration(p.getInt("JWT_TTL_HOURS", 24)) * time.Hour,
		WebserverIP:         getEnv("WEBSERVER_IP", "0.0.0.0"),
		WebserverPort:       p.getInt("WEBSERVER_PORT", 5000),
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		AccountEventsQueue:  getEnv("ACCOUNT_EVENTS_QUEUE", "account-events"),
		LogDevelopment:      p.getBool("LOG_DEVELOPMENT", false),
		LogDebug:            p.getBool("LOG_DEBUG", false),
		LogOutput:           splitList(getEnv("LOG_OUTPUT", "")),
		RateLimitAuthRPS:    p.getFloat("RATE_LIMIT_AUTH_RPS", 5),
		RateLimitAuthBurst:  p.getInt("RATE_LIMIT_AUTH_BURST", 10),
	}

	if p.err != nil {
		return nil, p.err
	}
	if cfg.WebserverPort <= 0 || cfg.WebserverPort > 65535 {
		return nil, fmt.Errorf("%w: WEBSERVER_PORT=%d", ErrInvalidValue, cfg.WebserverPort)
	}
	return cfg, nil
}

// Addr is the host:port the web server listens on.
func (c *Config) Addr() string {
	return c.WebserverIP + ":" + strconv.Itoa(c.WebserverPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser keeps the first error so FromEnv can read every variable before failing.
type parser struct {
	err error
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *parser) required(key string) string {
	value := os.Getenv(key)
	if value == "" {
		p.fail(fmt.Errorf("%w: %s", ErrMissingValue, key))
	}
	return value
}

func (p *parser) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value))
		return defaultValue
	}
	return n
}

func (p *parser) getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value))
		return defaultValue
	}
	return f
}

func (p *parser) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value))
		return defaultValue
	}
	return b
}
