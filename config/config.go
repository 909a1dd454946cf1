// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

type Config struct {
	Env       string `env:"APP_ENV" envDefault:"local"`
	Server    Server
	Firebase  Firebase
	Database  Database
	Session   Session
	Telemetry Telemetry
	Client    Client
}

type Server struct {
	Port               string        `env:"SERVER_PORT" envDefault:"8080"`
	ShutdownTimeout    time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ReadHeaderTimeout  time.Duration `env:"SERVER_READ_HEADER_TIMEOUT" envDefault:"5s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

type Firebase struct {
	ProjectID       string        `env:"FIREBASE_PROJECT_ID"`
	APIKey          string        `env:"FIREBASE_API_KEY,required"`
	CredentialsPath string        `env:"FIREBASE_CREDENTIALS_PATH"`
	Endpoint        string        `env:"IDENTITY_TOOLKIT_ENDPOINT"`
	Timeout         time.Duration `env:"FIREBASE_TIMEOUT" envDefault:"10s"`
}

type Database struct {
	Driver       string        `env:"DB_DRIVER" envDefault:"sqlite"`
	Host         string        `env:"DB_HOST" envDefault:"localhost"`
	Port         string        `env:"DB_PORT" envDefault:"5432"`
	User         string        `env:"DB_USER"`
	Password     string        `env:"DB_PASSWORD"`
	Name         string        `env:"DB_NAME" envDefault:"taskboard"`
	SSLMode      string        `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"taskboard.db"`
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`
}

// PostgresDSN is the lib/pq keyword connection string.
func (d Database) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type Session struct {
	// TrustForwardedProto lets X-Forwarded-Proto mark a request as HTTPS
	// when the app runs behind a TLS terminating proxy.
	TrustForwardedProto bool          `env:"SESSION_TRUST_FORWARDED_PROTO" envDefault:"false"`
	RefreshMaxAge       time.Duration `env:"SESSION_REFRESH_MAX_AGE" envDefault:"720h"`
}

type Telemetry struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"taskboard"`
}

// Client configures the command line client.
type Client struct {
	ServerURL   string `env:"TASKBOARD_SERVER_URL" envDefault:"http://localhost:8080"`
	SessionFile string `env:"TASKBOARD_SESSION_FILE"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// FromMap parses configuration from an explicit environment, ignoring the
// process environment.
func FromMap(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateServer checks the settings only the server needs. The command
// line client talks to the provider with the API key alone.
func (c Config) ValidateServer() error {
	if strings.TrimSpace(c.Firebase.ProjectID) == "" {
		return errors.New("FIREBASE_PROJECT_ID is required to serve")
	}
	return nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverFirestore:
	default:
		return fmt.Errorf("DB_DRIVER %q: want %s, %s or %s", c.Database.Driver, DriverPostgres, DriverSQLite, DriverFirestore)
	}
	if c.Firebase.Timeout <= 0 {
		return errors.New("FIREBASE_TIMEOUT must be positive")
	}
	if c.Database.QueryTimeout <= 0 {
		return errors.New("DB_QUERY_TIMEOUT must be positive")
	}
	return nil
}
