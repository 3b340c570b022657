package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"productapi/internal/models"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	// Server configuration
	if port := os.Getenv("PRODUCTAPI_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if host := os.Getenv("PRODUCTAPI_HOST"); host != "" {
		config.Server.Host = host
	}

	if timeout := os.Getenv("PRODUCTAPI_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("PRODUCTAPI_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}

	if timeout := os.Getenv("PRODUCTAPI_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.IdleTimeout = d
		}
	}

	if tls := os.Getenv("PRODUCTAPI_TLS_ENABLED"); tls != "" {
		config.Server.TLSEnabled = strings.ToLower(tls) == "true"
	}

	if certFile := os.Getenv("PRODUCTAPI_TLS_CERT_FILE"); certFile != "" {
		config.Server.TLSCertFile = certFile
	}

	if keyFile := os.Getenv("PRODUCTAPI_TLS_KEY_FILE"); keyFile != "" {
		config.Server.TLSKeyFile = keyFile
	}

	// Storage configuration
	if storageType := os.Getenv("PRODUCTAPI_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}

	if dsn := os.Getenv("PRODUCTAPI_DATABASE_DSN"); dsn != "" {
		config.Storage.Database.DSN = dsn
	}

	if maxOpen := os.Getenv("PRODUCTAPI_DATABASE_MAX_OPEN_CONNS"); maxOpen != "" {
		if conns, err := strconv.Atoi(maxOpen); err == nil {
			config.Storage.Database.MaxOpenConns = conns
		}
	}

	if maxIdle := os.Getenv("PRODUCTAPI_DATABASE_MAX_IDLE_CONNS"); maxIdle != "" {
		if conns, err := strconv.Atoi(maxIdle); err == nil {
			config.Storage.Database.MaxIdleConns = conns
		}
	}

	// Security configuration
	if auth := os.Getenv("PRODUCTAPI_ENABLE_AUTH"); auth != "" {
		config.Security.EnableAuth = strings.ToLower(auth) == "true"
	}

	if ttl := os.Getenv("PRODUCTAPI_TOKEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Security.TokenTTL = d
		}
	}

	if admin := os.Getenv("PRODUCTAPI_BOOTSTRAP_ADMIN"); admin != "" {
		config.Security.BootstrapAdmin = admin
	}

	if password := os.Getenv("PRODUCTAPI_BOOTSTRAP_ADMIN_PASSWORD"); password != "" {
		config.Security.BootstrapAdminPassword = password
	}

	// Rate limit configuration
	if enabled := os.Getenv("PRODUCTAPI_RATE_LIMIT_ENABLED"); enabled != "" {
		config.Security.RateLimit.Enabled = strings.ToLower(enabled) == "true"
	}

	if limit := os.Getenv("PRODUCTAPI_RATE_LIMIT_IP_PER_MINUTE"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.Security.RateLimit.IPRequestsPerMinute = n
		}
	}

	if limit := os.Getenv("PRODUCTAPI_RATE_LIMIT_USER_PER_MINUTE"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.Security.RateLimit.UserRequestsPerMinute = n
		}
	}

	if window := os.Getenv("PRODUCTAPI_RATE_LIMIT_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			config.Security.RateLimit.Window = d
		}
	}

	if interval := os.Getenv("PRODUCTAPI_RATE_LIMIT_SWEEP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Security.RateLimit.SweepInterval = d
		}
	}

	// Logging configuration
	if level := os.Getenv("PRODUCTAPI_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("PRODUCTAPI_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("PRODUCTAPI_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	if filePath := os.Getenv("PRODUCTAPI_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	// Stats configuration
	if stats := os.Getenv("PRODUCTAPI_STATS_ENABLED"); stats != "" {
		config.Stats.Enabled = strings.ToLower(stats) == "true"
	}

	if prefix := os.Getenv("PRODUCTAPI_STATS_PREFIX"); prefix != "" {
		config.Stats.Prefix = prefix
	}

	if ttl := os.Getenv("PRODUCTAPI_STATS_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Stats.TTL = d
		}
	}

	// Redis configuration
	if addr := os.Getenv("PRODUCTAPI_REDIS_ADDR"); addr != "" {
		config.Stats.Redis.Addr = addr
	}

	if password := os.Getenv("PRODUCTAPI_REDIS_PASSWORD"); password != "" {
		config.Stats.Redis.Password = password
	}

	if db := os.Getenv("PRODUCTAPI_REDIS_DB"); db != "" {
		if dbNum, err := strconv.Atoi(db); err == nil {
			config.Stats.Redis.DB = dbNum
		}
	}

	if poolSize := os.Getenv("PRODUCTAPI_REDIS_POOL_SIZE"); poolSize != "" {
		if size, err := strconv.Atoi(poolSize); err == nil {
			config.Stats.Redis.PoolSize = size
		}
	}

	// Metrics configuration
	if metrics := os.Getenv("PRODUCTAPI_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}

	if path := os.Getenv("PRODUCTAPI_METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}

	if port := os.Getenv("PRODUCTAPI_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}

	// Observability configuration
	if name := os.Getenv("PRODUCTAPI_SERVICE_NAME"); name != "" {
		config.Observability.ServiceName = name
	}

	if tracing := os.Getenv("PRODUCTAPI_TRACING_ENABLED"); tracing != "" {
		config.Observability.Tracing.Enabled = strings.ToLower(tracing) == "true"
	}

	if exporter := os.Getenv("PRODUCTAPI_TRACING_EXPORTER"); exporter != "" {
		config.Observability.Tracing.Exporter = exporter
	}

	if endpoint := os.Getenv("PRODUCTAPI_TRACING_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
	}
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Get default config with some example values
	config := models.NewDefaultConfig()

	// Enable authentication for example
	config.Security.EnableAuth = true

	// Example database configuration
	config.Storage.Type = models.StorageTypeSQLite
	config.Storage.Database.DSN = "./data/productapi.db"

	// Example TLS configuration
	config.Server.TLSEnabled = false
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"

	// Marshal to YAML
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// Write to file
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
