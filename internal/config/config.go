package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"quizgen-backend/internal/scoring"
)

const (
	WorkerModeRedis = "redis"
	WorkerModeHTTP  = "http"
)

type Config struct {
	// Server
	Port      string
	Env       string
	PublicURL string

	// Database
	DatabaseURL string
	DBMaxConns  int

	// Redis
	RedisURL string

	// Auth
	JWTSecret     string
	WebhookSecret string

	// Job worker
	WorkerMode      string
	WorkerURL       string
	JobQueue        string
	DispatchTimeout time.Duration

	// Question sets and attempts
	MaxQuestions       int
	TokenTTL           time.Duration
	SecondsPerQuestion int

	// Scoring
	PassPercent  int
	GradeBands   string
	WrongPenalty string

	// SMTP
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		Env:                getEnvOrDefault("ENV", "development"),
		PublicURL:          getEnvOrDefault("PUBLIC_URL", "http://localhost:8080"),
		DatabaseURL:        mustGetEnv("DATABASE_URL"),
		DBMaxConns:         getEnvAsIntOrDefault("DB_MAX_CONNS", 25),
		RedisURL:           mustGetEnv("REDIS_URL"),
		JWTSecret:          mustGetEnv("JWT_SECRET"),
		WebhookSecret:      getEnvOrDefault("WEBHOOK_SECRET", ""),
		WorkerMode:         strings.ToLower(getEnvOrDefault("JOB_WORKER_MODE", WorkerModeRedis)),
		WorkerURL:          getEnvOrDefault("JOB_WORKER_URL", ""),
		JobQueue:           getEnvOrDefault("JOB_QUEUE", "queue:mcq-generation"),
		DispatchTimeout:    time.Duration(getEnvAsIntOrDefault("DISPATCH_TIMEOUT_SECONDS", 10)) * time.Second,
		MaxQuestions:       getEnvAsIntOrDefault("MAX_QUESTIONS_PER_SET", 100),
		TokenTTL:           time.Duration(getEnvAsIntOrDefault("TOKEN_TTL_HOURS", 168)) * time.Hour,
		SecondsPerQuestion: getEnvAsIntOrDefault("ATTEMPT_SECONDS_PER_QUESTION", 60),
		PassPercent:        getEnvAsIntOrDefault("SCORING_PASS_PERCENT", 60),
		GradeBands:         getEnvOrDefault("SCORING_GRADE_BANDS", "A:90,B:80,C:70,D:60"),
		WrongPenalty:       getEnvOrDefault("SCORING_WRONG_PENALTY", "0.25"),
		SMTPHost:           getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:           getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:           getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:           getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom:           getEnvOrDefault("SMTP_FROM", "noreply@quizgen.app"),
		FrontendURL:        getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// DatabaseURL is for commands that only need the database.
func DatabaseURL() string {
	godotenv.Load()
	return mustGetEnv("DATABASE_URL")
}

// Validate catches settings that would only fail later at request time.
func (c *Config) Validate() error {
	switch c.WorkerMode {
	case WorkerModeRedis:
	case WorkerModeHTTP:
		if c.WorkerURL == "" {
			return fmt.Errorf("JOB_WORKER_URL is required when JOB_WORKER_MODE=%s", WorkerModeHTTP)
		}
	default:
		return fmt.Errorf("JOB_WORKER_MODE must be %q or %q, got %q", WorkerModeRedis, WorkerModeHTTP, c.WorkerMode)
	}
	if c.MaxQuestions < 1 {
		return fmt.Errorf("MAX_QUESTIONS_PER_SET must be positive")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive")
	}
	if _, err := c.ScoringPolicy(); err != nil {
		return err
	}
	return nil
}

func (c *Config) ScoringPolicy() (scoring.Policy, error) {
	p := scoring.DefaultPolicy()
	p.PassPercent = c.PassPercent

	bands, err := scoring.ParseBands(c.GradeBands)
	if err != nil {
		return p, fmt.Errorf("SCORING_GRADE_BANDS: %w", err)
	}
	p.Bands = bands

	penalty, err := decimal.NewFromString(strings.TrimSpace(c.WrongPenalty))
	if err != nil {
		return p, fmt.Errorf("SCORING_WRONG_PENALTY: %w", err)
	}
	p.WrongPenalty = penalty

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("scoring policy: %w", err)
	}
	return p, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
