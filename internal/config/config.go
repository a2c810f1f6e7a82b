package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Refresh policies recognized by the snapshot server.
const (
	PolicyOnDemand = "on-demand"
	PolicyInterval = "interval"
)

// Service describes one dev-stack service whose reachability is probed.
type Service struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"` // "tcp" or "redis"
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Timeout  Duration `yaml:"timeout"`
	Password string   `yaml:"password"` // redis only
	DB       int      `yaml:"db"`       // redis only
}

// Addr returns the host:port dial target for the service.
func (s Service) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SizeRule describes one source tree whose file count is measured.
// Target is the file count considered "complete" for the progress
// estimate; it is pure configuration and is never inferred from the tree.
type SizeRule struct {
	Label   string   `yaml:"label"`
	Root    string   `yaml:"root"`
	Match   []string `yaml:"match"`
	Exclude []string `yaml:"exclude"`
	Target  int      `yaml:"target"`
}

// DatabaseConfig holds catalog probe connection settings. An empty DSN
// disables the probe; the snapshot then reports connected=false.
type DatabaseConfig struct {
	Driver  string   `yaml:"driver"` // "postgres" or "sqlite"
	DSN     string   `yaml:"dsn"`
	Timeout Duration `yaml:"timeout"`
}

// Enabled reports whether a database catalog probe is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.DSN != ""
}

// RefreshConfig selects how the server refreshes its snapshot.
type RefreshConfig struct {
	Policy   string   `yaml:"policy"`
	Interval Duration `yaml:"interval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Services []Service      `yaml:"services"`
	Sizes    []SizeRule     `yaml:"sizes"`
	Database DatabaseConfig `yaml:"database"`
}

var validServiceTypes = map[string]bool{
	"tcp":   true,
	"redis": true,
}

var validDrivers = map[string]bool{
	"postgres": true,
	"sqlite":   true,
}

const defaultTimeout = 3 * time.Second

// Load reads, parses, and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates raw YAML config bytes.
func Parse(data []byte) (*Config, error) {
	// Unmarshal into a raw intermediate so duration errors can name the
	// entry that carries them instead of a bare yaml position.
	type rawService struct {
		Name     string `yaml:"name"`
		Type     string `yaml:"type"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Timeout  string `yaml:"timeout"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	}
	type rawDatabase struct {
		Driver  string `yaml:"driver"`
		DSN     string `yaml:"dsn"`
		Timeout string `yaml:"timeout"`
	}
	type rawRefresh struct {
		Policy   string `yaml:"policy"`
		Interval string `yaml:"interval"`
	}
	type rawConfig struct {
		Server   ServerConfig `yaml:"server"`
		Refresh  rawRefresh   `yaml:"refresh"`
		Services []rawService `yaml:"services"`
		Sizes    []SizeRule   `yaml:"sizes"`
		Database rawDatabase  `yaml:"database"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if raw.Server.Address == "" {
		raw.Server.Address = ":8421"
	}

	if len(raw.Services) == 0 && len(raw.Sizes) == 0 {
		return nil, fmt.Errorf("at least one service or size metric must be configured")
	}

	cfg := &Config{Server: raw.Server}

	switch raw.Refresh.Policy {
	case "":
		cfg.Refresh.Policy = PolicyOnDemand
	case PolicyOnDemand, PolicyInterval:
		cfg.Refresh.Policy = raw.Refresh.Policy
	default:
		return nil, fmt.Errorf("invalid refresh policy %q (must be %s or %s)",
			raw.Refresh.Policy, PolicyOnDemand, PolicyInterval)
	}

	if raw.Refresh.Interval == "" {
		cfg.Refresh.Interval = Duration{30 * time.Second}
	} else {
		d, err := time.ParseDuration(raw.Refresh.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid refresh interval %q: %w", raw.Refresh.Interval, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("refresh interval must be positive, got %q", raw.Refresh.Interval)
		}
		cfg.Refresh.Interval = Duration{d}
	}

	names := make(map[string]bool, len(raw.Services))
	for i, rs := range raw.Services {
		if rs.Name == "" {
			return nil, fmt.Errorf("service[%d]: name is required", i)
		}
		if names[rs.Name] {
			return nil, fmt.Errorf("duplicate service name %q", rs.Name)
		}
		names[rs.Name] = true

		if rs.Type == "" {
			rs.Type = "tcp"
		}
		if !validServiceTypes[rs.Type] {
			return nil, fmt.Errorf("service %q: invalid type %q (must be tcp or redis)", rs.Name, rs.Type)
		}
		if rs.Host == "" {
			return nil, fmt.Errorf("service %q: host is required", rs.Name)
		}
		if rs.Port < 1 || rs.Port > 65535 {
			return nil, fmt.Errorf("service %q: invalid port %d", rs.Name, rs.Port)
		}

		timeout, err := parseTimeout(rs.Timeout, fmt.Sprintf("service %q", rs.Name))
		if err != nil {
			return nil, err
		}
		cfg.Services = append(cfg.Services, Service{
			Name:     rs.Name,
			Type:     rs.Type,
			Host:     rs.Host,
			Port:     rs.Port,
			Timeout:  timeout,
			Password: rs.Password,
			DB:       rs.DB,
		})
	}

	labels := make(map[string]bool, len(raw.Sizes))
	for i, sz := range raw.Sizes {
		if sz.Label == "" {
			return nil, fmt.Errorf("sizes[%d]: label is required", i)
		}
		if labels[sz.Label] {
			return nil, fmt.Errorf("duplicate size label %q", sz.Label)
		}
		labels[sz.Label] = true

		if sz.Root == "" {
			return nil, fmt.Errorf("size %q: root is required", sz.Label)
		}
		if sz.Target <= 0 {
			return nil, fmt.Errorf("size %q: target must be positive, got %d", sz.Label, sz.Target)
		}
		if len(sz.Match) == 0 {
			sz.Match = []string{"*"}
		}
		cfg.Sizes = append(cfg.Sizes, sz)
	}

	if raw.Database.DSN != "" {
		if !validDrivers[raw.Database.Driver] {
			return nil, fmt.Errorf("database: invalid driver %q (must be postgres or sqlite)", raw.Database.Driver)
		}
		timeout, err := parseTimeout(raw.Database.Timeout, "database")
		if err != nil {
			return nil, err
		}
		cfg.Database = DatabaseConfig{
			Driver:  raw.Database.Driver,
			DSN:     raw.Database.DSN,
			Timeout: timeout,
		}
	}

	return cfg, nil
}

func parseTimeout(s, owner string) (Duration, error) {
	if s == "" {
		return Duration{defaultTimeout}, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Duration{}, fmt.Errorf("%s: invalid timeout %q: %w", owner, s, err)
	}
	if d <= 0 {
		return Duration{}, fmt.Errorf("%s: timeout must be positive, got %q", owner, s)
	}
	return Duration{d}, nil
}
