package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvDevelopment is the environment name that enables the Swagger UI.
const EnvDevelopment = "development"

// Config is the root configuration for the roster service.
type Config struct {
	Environment       string                  `mapstructure:"environment"`
	Server            ServerConfig            `mapstructure:"server"`
	Telemetry         TelemetryConfig         `mapstructure:"telemetry"`
	Database          DatabaseConfig          `mapstructure:"database"`
	ConnectionStrings ConnectionStringsConfig `mapstructure:"connection_strings"`
	Seed              SeedConfig              `mapstructure:"seed"`
	CORS              CORSConfig              `mapstructure:"cors"`
	Auth              AuthConfig              `mapstructure:"auth"`
	Cache             CacheConfig             `mapstructure:"cache"`
	Events            EventsConfig            `mapstructure:"events"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	HTTPSPort       int           `mapstructure:"https_port"`
	TLSCertFile     string        `mapstructure:"tls_cert_file"`
	TLSKeyFile      string        `mapstructure:"tls_key_file"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	ServiceName  string `mapstructure:"service_name"`
	LogLevel     string `mapstructure:"log_level"`
	// TraceSampleRatio samples root spans; 1 keeps all, 0 drops all.
	TraceSampleRatio float64       `mapstructure:"trace_sample_ratio"`
	MetricInterval   time.Duration `mapstructure:"metric_interval"`
}

// DatabaseConfig holds the URL-form target (DATABASE_URL) and the knobs
// applied to whichever connection string wins.
type DatabaseConfig struct {
	URL                    string        `mapstructure:"url"`
	TrustServerCertificate bool          `mapstructure:"trust_server_certificate"`
	RootCertFile           string        `mapstructure:"root_cert_file"`
	MaxConns               int           `mapstructure:"max_conns"`
	ConnectTimeout         time.Duration `mapstructure:"connect_timeout"`
}

type ConnectionStringsConfig struct {
	DefaultConnection string `mapstructure:"default_connection"`
}

type SeedConfig struct {
	ResetCharacters bool `mapstructure:"reset_characters"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type EventsConfig struct {
	URL    string `mapstructure:"url"`
	Stream string `mapstructure:"stream"`
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvDevelopment)
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables with the ROSTER_ prefix (e.g. ROSTER_SERVER_PORT).
// DATABASE_URL is read without the prefix.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("database.url", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("binding DATABASE_URL: %w", err)
	}
	if err := v.BindEnv("environment", "ROSTER_ENVIRONMENT", "APP_ENV"); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.https_port", 0)
	v.SetDefault("server.tls_cert_file", "")
	v.SetDefault("server.tls_key_file", "")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.service_name", "roster")
	v.SetDefault("telemetry.log_level", "info")
	v.SetDefault("telemetry.trace_sample_ratio", 1.0)
	v.SetDefault("telemetry.metric_interval", 30*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.trust_server_certificate", false)
	v.SetDefault("database.root_cert_file", "")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.connect_timeout", 10*time.Second)

	v.SetDefault("connection_strings.default_connection", "")

	v.SetDefault("seed.reset_characters", false)

	v.SetDefault("cors.allow_origins", []string{"*"})

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("events.url", "")
	v.SetDefault("events.stream", "CHARACTER_EVENTS")
}
