package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default remote locations of the published CSVs.
const (
	DefaultDatasetURL = "https://raw.githubusercontent.com/Yogeswarachary/ML_Trading_Project/main/CSV%20Data/ml_trading_data.csv"
	DefaultResultsURL = "https://raw.githubusercontent.com/Yogeswarachary/ML_Trading_Project/main/streamlit%20deployment/trading_results.csv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Data sources
	Sources SourcesConfig

	// Batch runner
	Runner RunnerConfig

	// Database (run history)
	Database DatabaseConfig

	// Redis (dataset cache)
	Redis RedisConfig

	// Outgoing HTTP
	HTTP HTTPConfig

	// Dashboard
	Dashboard DashboardConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// SourcesConfig points at the remote and local CSVs
type SourcesConfig struct {
	BaseDir      string
	DatasetURL   string
	ResultsURL   string
	ResultsFile  string   // relative to BaseDir unless absolute
	SearchDirs   []string // directories scanned for the newest trading_results*.csv
	RunsDir      string   // relative to BaseDir unless absolute
	TrendPattern string   // filename substring selecting trend files
}

// RunnerConfig holds notebook batch runner settings
type RunnerConfig struct {
	LogFile      string // relative to BaseDir unless absolute
	PipelineFile string // optional YAML step list
	PapermillBin string
	Schedule     string // cron expression with seconds
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled bool
	URL     string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

// HTTPConfig holds outgoing HTTP client settings
type HTTPConfig struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables
}

// DashboardConfig holds renderer settings
type DashboardConfig struct {
	DefaultSource string
	PreviewRows   int
	WSInterval    time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()
	return fromEnv()
}

// LoadFile is Load with an explicit env file instead of the .env search.
// Variables already set in the environment win over the file.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	baseDir := getEnv("BASE_DIR", ".")

	cfg := &Config{
		Port: getEnv("PORT", "8501"),
		Env:  getEnv("ENV", "development"),

		Sources: SourcesConfig{
			BaseDir:      baseDir,
			DatasetURL:   getEnv("DATASET_URL", DefaultDatasetURL),
			ResultsURL:   getEnv("RESULTS_URL", DefaultResultsURL),
			ResultsFile:  getEnv("RESULTS_FILE", "trading_results.csv"),
			SearchDirs:   []string{"streamlit deployment", "streamlit deployement", "."},
			RunsDir:      getEnv("RUNS_DIR", "runs"),
			TrendPattern: getEnv("TREND_PATTERN", "trading_results"),
		},

		Runner: RunnerConfig{
			LogFile:      getEnv("RUN_LOG", "run_log.txt"),
			PipelineFile: getEnv("PIPELINE_FILE", ""),
			PapermillBin: getEnv("PAPERMILL_BIN", "papermill"),
			Schedule:     getEnv("RUN_SCHEDULE", "0 0 18 * * 1-5"),
		},

		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			CacheTTL: getEnvAsDuration("CACHE_TTL", "10m"),
		},

		HTTP: HTTPConfig{
			Timeout:   getEnvAsDuration("HTTP_TIMEOUT", "30s"),
			RateLimit: getEnvAsFloat("HTTP_RATE_LIMIT", 5),
		},

		Dashboard: DashboardConfig{
			DefaultSource: getEnv("DASHBOARD_SOURCE", "remote"),
			PreviewRows:   getEnvAsInt("PREVIEW_ROWS", 5),
			WSInterval:    getEnvAsDuration("WS_INTERVAL", "30s"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_ENABLED is set")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Dashboard.DefaultSource {
	case "remote", "local", "latest", "dataset":
	default:
		return fmt.Errorf("DASHBOARD_SOURCE must be one of: remote, local, latest, dataset")
	}

	return nil
}

// Path resolves p against the base directory unless it is already absolute
func (s SourcesConfig) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.BaseDir, p)
}

// ResultsPath is the resolved local results CSV
func (c *Config) ResultsPath() string { return c.Sources.Path(c.Sources.ResultsFile) }

// RunsPath is the resolved run artifact directory
func (c *Config) RunsPath() string { return c.Sources.Path(c.Sources.RunsDir) }

// LogPath is the resolved batch runner log file
func (c *Config) LogPath() string { return c.Sources.Path(c.Runner.LogFile) }

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
