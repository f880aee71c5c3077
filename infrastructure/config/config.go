package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"memgraph/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"serverAddress" validate:"required"`
	Environment   string `yaml:"environment" validate:"oneof=development staging production test"`

	// Workspace layout, relative paths resolve against WorkspaceDir
	WorkspaceDir string `yaml:"workspaceDir" validate:"required"`
	MemoryFile   string `yaml:"memoryFile" validate:"required"`
	JournalDir   string `yaml:"journalDir" validate:"required"`
	GraphFile    string `yaml:"graphFile" validate:"required"`
	MirrorFile   string `yaml:"mirrorFile" validate:"required"`
	SessionsDir  string `yaml:"sessionsDir"`

	// Chunk index
	EnableIndex bool   `yaml:"enableIndex"`
	IndexPath   string `yaml:"indexPath" validate:"required_if=EnableIndex true"`

	// Agent roster: a gateway URL wins over a roster file
	RosterFile     string        `yaml:"rosterFile"`
	GatewayURL     string        `yaml:"gatewayURL" validate:"omitempty,url"`
	RosterCacheTTL time.Duration `yaml:"rosterCacheTTL" validate:"gte=0"`

	// Timeouts
	LookupTimeout  time.Duration `yaml:"lookupTimeout" validate:"gt=0"`
	ReindexTimeout time.Duration `yaml:"reindexTimeout" validate:"gt=0"`

	// Workspace watcher
	EnableWatcher bool          `yaml:"enableWatcher"`
	WatchDebounce time.Duration `yaml:"watchDebounce" validate:"gte=0"`

	// AWS configuration
	AWSRegion      string        `yaml:"awsRegion"`
	EventBusName   string        `yaml:"eventBusName"`
	GraphTable     string        `yaml:"graphTable"`
	EventTable     string        `yaml:"eventTable"`
	EventRetention time.Duration `yaml:"eventRetention" validate:"gte=0"`

	// Lambda configuration
	IsLambda           bool   `yaml:"isLambda"`
	LambdaFunctionName string `yaml:"lambdaFunctionName"`

	// Logging
	LogLevel string `yaml:"logLevel" validate:"oneof=debug info warn error"`

	// Authentication and rate limiting
	JWTSecret      string   `yaml:"jwtSecret"`
	JWTIssuer      string   `yaml:"jwtIssuer"`
	RateLimitRPS   int      `yaml:"rateLimitRPS" validate:"gte=0"`
	RateLimitBurst int      `yaml:"rateLimitBurst" validate:"gte=0"`
	AllowedOrigins []string `yaml:"allowedOrigins"`

	// Feature flags
	EnableMetrics bool `yaml:"enableMetrics"`
	EnableTracing bool `yaml:"enableTracing"`
	EnableCORS    bool `yaml:"enableCORS"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		ServerAddress:  ":8080",
		Environment:    "development",
		WorkspaceDir:   ".",
		MemoryFile:     "MEMORY.md",
		JournalDir:     "memory",
		GraphFile:      "memory/knowledge-graph.json",
		MirrorFile:     "memory/knowledge-graph.md",
		SessionsDir:    "sessions",
		EnableIndex:    true,
		IndexPath:      "memory/index.sqlite",
		RosterFile:     "agents.yaml",
		RosterCacheTTL: 30 * time.Second,
		LookupTimeout:  1500 * time.Millisecond,
		ReindexTimeout: 30 * time.Second,
		WatchDebounce:  750 * time.Millisecond,
		AWSRegion:      "us-west-2",
		EventRetention: 30 * 24 * time.Hour,
		LogLevel:       "info",
		JWTIssuer:      "memgraph",
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		AllowedOrigins: []string{"*"},
		EnableMetrics:  true,
		EnableCORS:     true,
	}
}

// LoadConfig loads configuration from defaults, an optional YAML file named
// by CONFIG_FILE, and environment variables, in that order of precedence.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv("CONFIG_FILE"))
}

// LoadConfigFrom is LoadConfig with an explicit YAML file. An empty path
// skips the file.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.WorkspaceDir = getEnv("WORKSPACE_DIR", c.WorkspaceDir)
	c.MemoryFile = getEnv("MEMORY_FILE", c.MemoryFile)
	c.JournalDir = getEnv("JOURNAL_DIR", c.JournalDir)
	c.GraphFile = getEnv("GRAPH_FILE", c.GraphFile)
	c.MirrorFile = getEnv("MIRROR_FILE", c.MirrorFile)
	c.SessionsDir = getEnv("SESSIONS_DIR", c.SessionsDir)

	c.EnableIndex = getEnvBool("ENABLE_INDEX", c.EnableIndex)
	c.IndexPath = getEnv("INDEX_PATH", c.IndexPath)

	c.RosterFile = getEnv("ROSTER_FILE", c.RosterFile)
	c.GatewayURL = getEnv("GATEWAY_URL", c.GatewayURL)
	c.RosterCacheTTL = getEnvDuration("ROSTER_CACHE_TTL", c.RosterCacheTTL)

	c.LookupTimeout = getEnvDuration("LOOKUP_TIMEOUT", c.LookupTimeout)
	c.ReindexTimeout = getEnvDuration("REINDEX_TIMEOUT", c.ReindexTimeout)

	c.EnableWatcher = getEnvBool("ENABLE_WATCHER", c.EnableWatcher)
	c.WatchDebounce = getEnvDuration("WATCH_DEBOUNCE", c.WatchDebounce)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.GraphTable = getEnv("GRAPH_TABLE", c.GraphTable)
	c.EventTable = getEnv("EVENT_TABLE", c.EventTable)
	c.EventRetention = getEnvDuration("EVENT_RETENTION", c.EventRetention)

	c.LambdaFunctionName = getEnv("AWS_LAMBDA_FUNCTION_NAME", c.LambdaFunctionName)
	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda || c.LambdaFunctionName != "")

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.RateLimitRPS = getEnvInt("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = strings.Split(origins, ",")
	}

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesAWS reports whether any AWS-backed adapter is configured
func (c *Config) UsesAWS() bool {
	return c.EventBusName != "" || c.GraphTable != "" || c.EventTable != ""
}

// Resolve returns a workspace-relative path as an absolute-or-joined path.
// Empty paths stay empty.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkspaceDir, path)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("2s") or plain milliseconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
