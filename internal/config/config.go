package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	StatutoryFromDB   = "db"
	StatutoryFromFile = "file"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	App       AppConfig
	Redis     RedisConfig
	Audit     AuditConfig
	Statutory StatutoryConfig
	Payroll   PayrollConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Store          string
	MigrateOnStart bool
	AllowedOrigins []string
	// DemoCompanyID seeds a demo company into the memory store on start.
	DemoCompanyID string
}

// RedisConfig backs the per-employee debt lock. An empty Addr selects the in-process
// locker.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuditConfig selects the audit writer. An empty AMQPURL logs events through slog.
type AuditConfig struct {
	AMQPURL       string
	Exchange      string
	BatchSize     int
	FlushInterval time.Duration
}

type StatutoryConfig struct {
	Source        string
	File          string
	WatchInterval time.Duration
}

// PayrollConfig tunes run computation. An empty WageServiceURL selects the built-in
// structure calculator.
type PayrollConfig struct {
	WageServiceURL   string
	WageTimeout      time.Duration
	// Client-credentials auth for the wage service; enabled when WageClientID is set.
	WageTokenURL     string
	WageClientID     string
	WageClientSecret string
	WageScopes       []string
	Workers          int
	RunTimeout       time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
		slog.Debug("No .env file, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll_engine"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}
	migrate, err := getEnvBool("MIGRATE_ON_START", true)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Store:          getEnv("STORE", StorePostgres),
		MigrateOnStart: migrate,
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS"),
		DemoCompanyID:  getEnv("DEMO_COMPANY_ID", ""),
	}

	// JWT configuration
	accessExp, err := getEnvDuration("JWT_ACCESS_EXPIRATION_TIME", time.Hour)
	if err != nil {
		return nil, err
	}
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: accessExp,
	}

	// Redis configuration
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Audit configuration
	batchSize, err := getEnvInt("AUDIT_BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	flushInterval, err := getEnvDuration("AUDIT_FLUSH_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	config.Audit = AuditConfig{
		AMQPURL:       getEnv("AUDIT_AMQP_URL", ""),
		Exchange:      getEnv("AUDIT_EXCHANGE", "payroll.audit"),
		BatchSize:     batchSize,
		FlushInterval: flushInterval,
	}

	// Statutory configuration
	watchInterval, err := getEnvDuration("STATUTORY_WATCH_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	config.Statutory = StatutoryConfig{
		Source:        getEnv("STATUTORY_SOURCE", StatutoryFromDB),
		File:          getEnv("STATUTORY_FILE", "statutory.yaml"),
		WatchInterval: watchInterval,
	}

	// Payroll configuration
	workers, err := getEnvInt("WAGE_WORKERS", 8)
	if err != nil {
		return nil, err
	}
	runTimeout, err := getEnvDuration("RUN_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	wageTimeout, err := getEnvDuration("WAGE_SERVICE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	config.Payroll = PayrollConfig{
		WageServiceURL:   getEnv("WAGE_SERVICE_URL", ""),
		WageTimeout:      wageTimeout,
		WageTokenURL:     getEnv("WAGE_SERVICE_TOKEN_URL", ""),
		WageClientID:     getEnv("WAGE_SERVICE_CLIENT_ID", ""),
		WageClientSecret: getEnv("WAGE_SERVICE_CLIENT_SECRET", ""),
		WageScopes:       getEnvSlice("WAGE_SERVICE_SCOPES"),
		Workers:          workers,
		RunTimeout:       runTimeout,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.App.Store {
	case StorePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.App.Store)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch c.Statutory.Source {
	case StatutoryFromDB:
		if c.App.Store == StoreMemory && c.App.DemoCompanyID == "" {
			return fmt.Errorf("STATUTORY_SOURCE=db with STORE=memory requires DEMO_COMPANY_ID")
		}
	case StatutoryFromFile:
		if c.Statutory.File == "" {
			return fmt.Errorf("STATUTORY_FILE is required")
		}
	default:
		return fmt.Errorf("STATUTORY_SOURCE must be %q or %q, got %q", StatutoryFromDB, StatutoryFromFile, c.Statutory.Source)
	}
	if _, err := ParseLogLevel(c.App.LogLevel); err != nil {
		return err
	}
	if c.Payroll.WageClientID != "" && c.Payroll.WageTokenURL == "" {
		return fmt.Errorf("WAGE_SERVICE_TOKEN_URL is required with WAGE_SERVICE_CLIENT_ID")
	}
	if c.Payroll.Workers < 1 {
		return fmt.Errorf("WAGE_WORKERS must be at least 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
