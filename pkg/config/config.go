// Package config loads the clusterscope YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cuemby/clusterscope/pkg/types"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "/etc/clusterscope/config.yaml"

// Config is the runtime configuration of clusterscope
type Config struct {
	DataDir  string          `yaml:"data_dir"`
	Log      LogConfig       `yaml:"log"`
	API      APIConfig       `yaml:"api"`
	Snapshot SnapshotConfig  `yaml:"snapshot"`
	SSH      SSHConfig       `yaml:"ssh"`
	HTTP     HTTPConfig      `yaml:"http"`
	Clusters []ClusterConfig `yaml:"clusters"`
}

// LogConfig controls the global logger
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// APIConfig controls the HTTP surface
type APIConfig struct {
	Listen string `yaml:"listen"`
}

// SnapshotConfig controls snapshot coalescing and the periodic loop.
// A zero Interval disables the periodic loop.
type SnapshotConfig struct {
	Freshness    time.Duration `yaml:"freshness"`
	Interval     time.Duration `yaml:"interval"`
	HistoryLimit int           `yaml:"history_limit"`
}

// SSHConfig bounds every remote command
type SSHConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	Burst          int           `yaml:"burst"`
	KnownHosts     string        `yaml:"known_hosts"`
}

// HTTPConfig controls vendor REST probes
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryWait  time.Duration `yaml:"retry_wait_max"`
}

// ClusterConfig declares a monitored cluster
type ClusterConfig struct {
	Name                string `yaml:"name"`
	Vendor              string `yaml:"vendor"`
	Host                string `yaml:"host"`
	Secured             bool   `yaml:"secured"`
	ManagerPort         int    `yaml:"manager_port"`
	ResourceManagerPort int    `yaml:"resource_manager_port"`

	HTTPUser     string `yaml:"http_user"`
	HTTPPassword string `yaml:"http_password"`

	SSHUser     string `yaml:"ssh_user"`
	SSHPassword string `yaml:"ssh_password"`
	SSHKeyPath  string `yaml:"ssh_key_path"`
	SSHPort     int    `yaml:"ssh_port"`

	KerberosPrincipal string `yaml:"kerberos_principal"`
	KerberosKeytab    string `yaml:"kerberos_keytab"`
	KerberosPassword  string `yaml:"kerberos_password"`
}

// ValidationError aggregates multiple configuration validation failures.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	return errors.As(target, &other)
}

// Load reads, parses, and validates a configuration from disk.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and no clusters
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./clusterscope-data"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.API.Listen == "" {
		c.API.Listen = "127.0.0.1:8090"
	}
	if c.Snapshot.Freshness == 0 {
		c.Snapshot.Freshness = time.Hour
	}
	if c.Snapshot.HistoryLimit == 0 {
		c.Snapshot.HistoryLimit = 30
	}
	if c.SSH.ConnectTimeout == 0 {
		c.SSH.ConnectTimeout = 15 * time.Second
	}
	if c.SSH.CommandTimeout == 0 {
		c.SSH.CommandTimeout = 5 * time.Minute
	}
	if c.SSH.RatePerSecond == 0 {
		c.SSH.RatePerSecond = 2
	}
	if c.SSH.Burst == 0 {
		c.SSH.Burst = 4
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.MaxRetries == 0 {
		c.HTTP.MaxRetries = 3
	}
	if c.HTTP.RetryWait == 0 {
		c.HTTP.RetryWait = 10 * time.Second
	}
	for i := range c.Clusters {
		if c.Clusters[i].SSHPort == 0 {
			c.Clusters[i].SSHPort = 22
		}
	}
}

// Validate checks for semantic correctness in the configuration.
func (c *Config) Validate() error {
	problems := make([]string, 0)

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Snapshot.Freshness < 0 {
		problems = append(problems, "snapshot.freshness must not be negative")
	}
	if c.Snapshot.Interval < 0 {
		problems = append(problems, "snapshot.interval must not be negative")
	}
	if c.SSH.Burst < 0 {
		problems = append(problems, "ssh.burst must not be negative")
	}

	seen := make(map[string]bool)
	for i := range c.Clusters {
		for _, p := range c.Clusters[i].validate() {
			problems = append(problems, fmt.Sprintf("cluster[%d]: %s", i, p))
		}
		name := c.Clusters[i].Name
		if name != "" && seen[name] {
			problems = append(problems, fmt.Sprintf("cluster[%d]: duplicate name %q", i, name))
		}
		seen[name] = true
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (cc ClusterConfig) validate() []string {
	var problems []string
	if strings.TrimSpace(cc.Name) == "" {
		problems = append(problems, "name is required")
	}
	switch types.ParseVendor(cc.Vendor) {
	case types.VendorCloudera, types.VendorHortonworks:
	default:
		problems = append(problems, fmt.Sprintf("vendor %q is not supported", cc.Vendor))
	}
	if strings.TrimSpace(cc.Host) == "" {
		problems = append(problems, "host is required")
	}
	if cc.SSHUser == "" {
		problems = append(problems, "ssh_user is required")
	}
	if cc.SSHPassword == "" && cc.SSHKeyPath == "" {
		problems = append(problems, "one of ssh_password or ssh_key_path is required")
	}
	if cc.Secured && cc.KerberosPrincipal == "" {
		problems = append(problems, "kerberos_principal is required for secured clusters")
	}
	return problems
}

// Cluster converts the declaration into the shared cluster model
func (cc ClusterConfig) Cluster() *types.Cluster {
	return &types.Cluster{
		Name:                cc.Name,
		Vendor:              types.ParseVendor(cc.Vendor),
		Host:                cc.Host,
		Secured:             cc.Secured,
		ManagerPort:         cc.ManagerPort,
		ResourceManagerPort: cc.ResourceManagerPort,
		HTTP: types.Credentials{
			Username: cc.HTTPUser,
			Password: cc.HTTPPassword,
		},
		SSH: types.SSHCredentials{
			Credentials: types.Credentials{Username: cc.SSHUser, Password: cc.SSHPassword},
			KeyPath:     cc.SSHKeyPath,
			Port:        cc.SSHPort,
		},
		Kerberos: types.KerberosCredentials{
			Principal:  cc.KerberosPrincipal,
			KeytabPath: cc.KerberosKeytab,
			Password:   cc.KerberosPassword,
		},
	}
}
