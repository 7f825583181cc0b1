package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "KANBAN_CONFIG"

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config holds every runtime setting of the cell tracker.
type Config struct {
	PLC      PLCConfig       `yaml:"plc"`
	Scanners []ScannerConfig `yaml:"scanners"`
	Database DatabaseConfig  `yaml:"database"`
	RabbitMQ RabbitMQConfig  `yaml:"rabbitmq"`
	Operator OperatorConfig  `yaml:"operator"`
	Log      LogConfig       `yaml:"log"`
}

type PLCConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	LivenessTimeout time.Duration `yaml:"liveness_timeout"`
}

// ScannerConfig describes one barcode reader. Path "-" reads stdin.
type ScannerConfig struct {
	Name        string        `yaml:"name"`
	Station     string        `yaml:"station"`
	Path        string        `yaml:"path"`
	ReopenDelay time.Duration `yaml:"reopen_delay"`
}

// DatabaseConfig selects the archive backend. An empty driver disables it.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"tls"`
	Exchange string `yaml:"exchange"`
}

type OperatorConfig struct {
	Addr string `yaml:"addr"`
	// URL is where the dashboard reaches the operator API.
	URL          string        `yaml:"url"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration that runs a standalone cell with a local
// SQLite archive and no message broker.
func Default() Config {
	return Config{
		PLC: PLCConfig{
			Addr:            ":65432",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			LivenessTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:  DriverSQLite,
			Path:    "kanban.db",
			Port:    5432,
			SSLMode: "disable",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			VHost:    "/",
			Exchange: "kanban_events",
		},
		Operator: OperatorConfig{
			Addr:         ":8080",
			URL:          "http://localhost:8080",
			PollInterval: time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path falls back to $KANBAN_CONFIG
// and then to the defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return cfg, cfg.Validate()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Find returns the first existing config file among the usual locations.
func Find() (string, error) {
	for _, p := range []string{"config.yaml", "deploy/config.example.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}

func (c Config) Validate() error {
	var errs []error
	if c.PLC.Addr == "" {
		errs = append(errs, errors.New("plc.addr is required"))
	}
	if c.PLC.ReadTimeout < 0 || c.PLC.WriteTimeout < 0 || c.PLC.LivenessTimeout < 0 {
		errs = append(errs, errors.New("plc timeouts must not be negative"))
	}

	seen := make(map[string]bool)
	for i, s := range c.Scanners {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("scanners[%d]: name is required", i))
		} else if seen[s.Name] {
			errs = append(errs, fmt.Errorf("scanners[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
		switch strings.ToLower(s.Station) {
		case "infeed", "outfeed":
		default:
			errs = append(errs, fmt.Errorf("scanners[%d]: station must be infeed or outfeed, got %q", i, s.Station))
		}
		if s.Path == "" {
			errs = append(errs, fmt.Errorf("scanners[%d]: path is required", i))
		}
	}

	switch c.Database.Driver {
	case "":
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite3"))
		}
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			errs = append(errs, errors.New("database.host and database.database are required for pgx"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite3 or pgx, got %q", c.Database.Driver))
	}

	if c.RabbitMQ.Enabled && (c.RabbitMQ.Host == "" || c.RabbitMQ.Exchange == "") {
		errs = append(errs, errors.New("rabbitmq.host and rabbitmq.exchange are required when enabled"))
	}
	if c.Operator.PollInterval <= 0 {
		errs = append(errs, errors.New("operator.poll_interval must be positive"))
	}
	return errors.Join(errs...)
}

// DSN renders the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}
