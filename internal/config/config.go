package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, database connection,
// source adapters, result storage, exports and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"30s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
		// UploadDir is where images posted for EXIF scans are stored
		UploadDir string `env:"HTTP_UPLOAD_DIR" env-default:"uploads" yaml:"uploadDir"`
		// MaxUploadBytes bounds the size of a multipart scan request
		MaxUploadBytes int64 `env:"HTTP_MAX_UPLOAD_BYTES" env-default:"33554432" yaml:"maxUploadBytes"`
	} `yaml:"http"`

	// Database contains all database connection related configurations
	Database struct {
		// Username for database authentication
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DATABASE_NAME" env-default:"osint" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// Collector controls how sources are fanned out for a single scan
	Collector struct {
		// MaxWorkers is the number of sources queried at the same time
		MaxWorkers int `env:"COLLECTOR_MAX_WORKERS" env-default:"6" yaml:"maxWorkers"`
		// SourceTimeout bounds a single source lookup
		SourceTimeout time.Duration `env:"COLLECTOR_SOURCE_TIMEOUT" env-default:"30s" yaml:"sourceTimeout"`
	} `yaml:"collector"`

	// Sources configures the individual source adapters
	Sources struct {
		// HTTPTimeout is the timeout of the HTTP client shared by HTTP based sources
		HTTPTimeout time.Duration `env:"SOURCES_HTTP_TIMEOUT" env-default:"10s" yaml:"httpTimeout"`
		// ShodanKey is the Shodan API key
		ShodanKey string `env:"SHODAN_API_KEY" yaml:"shodanKey"`
		// ShodanURL overrides the Shodan API base URL
		ShodanURL string `env:"SHODAN_API_URL" yaml:"shodanURL"`
		// NumverifyKey is the numverify access key
		NumverifyKey string `env:"NUMVERIFY_API_KEY" yaml:"numverifyKey"`
		// NumverifyURL overrides the numverify API base URL
		NumverifyURL string `env:"NUMVERIFY_API_URL" yaml:"numverifyURL"`
		// Resolvers are the DNS servers queried for DNS records
		Resolvers []string `env:"SOURCES_DNS_RESOLVERS" env-separator:"," yaml:"resolvers"`
		// DNSTimeout bounds a single DNS exchange
		DNSTimeout time.Duration `env:"SOURCES_DNS_TIMEOUT" env-default:"5s" yaml:"dnsTimeout"`
		// WhoisTimeout bounds a WHOIS query
		WhoisTimeout time.Duration `env:"SOURCES_WHOIS_TIMEOUT" env-default:"15s" yaml:"whoisTimeout"`
		// WhoisSummary drops raw WHOIS text from payloads
		WhoisSummary bool `env:"SOURCES_WHOIS_SUMMARY" env-default:"false" yaml:"whoisSummary"`
		// UsernameSites are profile URL patterns containing {username}
		UsernameSites []string `env:"SOURCES_USERNAME_SITES" env-separator:"," yaml:"usernameSites"`
		// UsernameConcurrency bounds in-flight profile checks
		UsernameConcurrency int `env:"SOURCES_USERNAME_CONCURRENCY" env-default:"6" yaml:"usernameConcurrency"`
	} `yaml:"sources"`

	// Store controls scan jobs and the lifetime of results
	Store struct {
		// MaxAttempts is how many times a scan is collected before it is marked failed
		MaxAttempts int `env:"STORE_MAX_ATTEMPTS" env-default:"3" yaml:"maxAttempts"`
		// ResultTTL is how long scans are kept; zero keeps them forever
		ResultTTL time.Duration `env:"STORE_RESULT_TTL" env-default:"168h" yaml:"resultTTL"`
		// PurgeInterval is how often expired scans are removed
		PurgeInterval time.Duration `env:"STORE_PURGE_INTERVAL" env-default:"1h" yaml:"purgeInterval"`
		// CacheSize bounds the number of cached correlation outcomes
		CacheSize int `env:"STORE_CACHE_SIZE" env-default:"256" yaml:"cacheSize"`
		// CacheTTL is how long a correlation outcome stays cached
		CacheTTL time.Duration `env:"STORE_CACHE_TTL" env-default:"30m" yaml:"cacheTTL"`
		// Workers is the number of collect jobs run at the same time
		Workers int `env:"STORE_WORKERS" env-default:"20" yaml:"workers"`
	} `yaml:"store"`

	// Export controls where tabular exports are written
	Export struct {
		// Dir is the local directory used when no S3 bucket is configured
		Dir string `env:"EXPORT_DIR" env-default:"exports" yaml:"dir"`
		// S3 configures an S3 compatible bucket for exports
		S3 struct {
			Bucket    string `env:"EXPORT_S3_BUCKET" yaml:"bucket"`
			Prefix    string `env:"EXPORT_S3_PREFIX" env-default:"exports" yaml:"prefix"`
			Region    string `env:"EXPORT_S3_REGION" env-default:"us-east-1" yaml:"region"`
			Endpoint  string `env:"EXPORT_S3_ENDPOINT" yaml:"endpoint"`
			AccessKey string `env:"EXPORT_S3_ACCESS_KEY" yaml:"accessKey"`
			SecretKey string `env:"EXPORT_S3_SECRET_KEY" yaml:"secretKey"`
		} `yaml:"s3"`
	} `yaml:"export"`

	// GraphDB configures the optional Bolt graph database mirror
	GraphDB struct {
		Enabled  bool   `env:"GRAPHDB_ENABLED" env-default:"false" yaml:"enabled"`
		URI      string `env:"GRAPHDB_URI" env-default:"bolt://localhost:7687" yaml:"uri"`
		Username string `env:"GRAPHDB_USERNAME" yaml:"username"`
		Password string `env:"GRAPHDB_PASSWORD" yaml:"password"`
	} `yaml:"graphDB"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}

// LoadEnv fills a Config from the environment and defaults only. It is used
// when no config file exists.
func LoadEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("could not read environment: %w", err)
	}

	return &cfg, nil
}
