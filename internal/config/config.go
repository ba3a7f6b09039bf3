// Package config loads dbobj.yaml, the project file at the object root.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// EndpointConfig describes one database connection. Connection, when set,
// is a URI or ADO.NET connection string and the discrete fields override it.
type EndpointConfig struct {
	Connection     string `yaml:"connection,omitempty"`
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Database       string `yaml:"database,omitempty"`
	SSLMode        string `yaml:"sslmode,omitempty"`
	SSLCert        string `yaml:"sslcert,omitempty"`
	SSLKey         string `yaml:"sslkey,omitempty"`
	SSLRootCert    string `yaml:"sslrootcert,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// EnvironmentConfig groups the endpoints of one deployment environment.
// DefaultEndpoint is the application's own database.
type EnvironmentConfig struct {
	DefaultEndpoint string                    `yaml:"default_endpoint,omitempty"`
	Endpoints       map[string]EndpointConfig `yaml:"endpoints"`
}

// ApplicationConfig locates one application below the root.
type ApplicationConfig struct {
	Path        string `yaml:"path,omitempty"`
	Schema      string `yaml:"schema,omitempty"`
	TablePrefix string `yaml:"table_prefix,omitempty"`
}

// ReplicationConfig tunes publication and subscription naming.
type ReplicationConfig struct {
	PublicationPrefix  string `yaml:"publication_prefix,omitempty"`
	SubscriptionPrefix string `yaml:"subscription_prefix,omitempty"`
	Timeout            string `yaml:"timeout,omitempty"`
}

type ProjectConfig struct {
	DefaultApp   string                       `yaml:"default_app,omitempty"`
	DefaultEnv   string                       `yaml:"default_env,omitempty"`
	Applications map[string]ApplicationConfig `yaml:"applications,omitempty"`
	Environments map[string]EnvironmentConfig `yaml:"environments,omitempty"`
	Replication  ReplicationConfig            `yaml:"replication,omitempty"`
	Params       map[string]string            `yaml:"params,omitempty"`
}

const ConfigFileName = dbobj.ConfigFileName

// Load reads root/dbobj.yaml.
func Load(root string) (*ProjectConfig, error) {
	configPath := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", configPath, dbobj.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return &cfg, nil
}

// Validate checks references between sections and value formats.
func (c *ProjectConfig) Validate() error {
	var errs []error
	if c.DefaultApp != "" && len(c.Applications) > 0 {
		if _, ok := c.Applications[c.DefaultApp]; !ok {
			errs = append(errs, fmt.Errorf("default_app %q is not listed under applications", c.DefaultApp))
		}
	}
	if c.DefaultEnv != "" {
		if _, ok := c.Environments[c.DefaultEnv]; !ok {
			errs = append(errs, fmt.Errorf("default_env %q is not listed under environments", c.DefaultEnv))
		}
	}
	for _, envName := range sortedKeys(c.Environments) {
		env := c.Environments[envName]
		if env.DefaultEndpoint != "" {
			if _, ok := env.Endpoints[env.DefaultEndpoint]; !ok {
				errs = append(errs, fmt.Errorf("environment %s: default_endpoint %q is not defined", envName, env.DefaultEndpoint))
			}
		}
		for _, epName := range sortedKeys(env.Endpoints) {
			if _, err := dbobj.ParseAuthMethod(env.Endpoints[epName].AuthMethod); err != nil {
				errs = append(errs, fmt.Errorf("environment %s endpoint %s: %v", envName, epName, err))
			}
		}
	}
	if c.Replication.Timeout != "" {
		if _, err := time.ParseDuration(c.Replication.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("replication.timeout %q: %v", c.Replication.Timeout, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", dbobj.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Application returns the settings of name. An application without an entry
// lives in the directory of the same name.
func (c *ProjectConfig) Application(name string) ApplicationConfig {
	app := c.Applications[name]
	if app.Path == "" {
		app.Path = name
	}
	return app
}

// Environment returns the named environment.
func (c *ProjectConfig) Environment(name string) (EnvironmentConfig, error) {
	env, ok := c.Environments[name]
	if !ok {
		return EnvironmentConfig{}, fmt.Errorf("environment %q is not defined in %s (known: %v): %w",
			name, ConfigFileName, sortedKeys(c.Environments), dbobj.ErrInvalidConfig)
	}
	return env, nil
}

// ReplicationTimeout returns the configured timeout, or def when unset.
func (c *ProjectConfig) ReplicationTimeout(def time.Duration) time.Duration {
	if d, err := time.ParseDuration(c.Replication.Timeout); err == nil && d > 0 {
		return d
	}
	return def
}

// ApplicationNames returns configured application names in sorted order.
func (c *ProjectConfig) ApplicationNames() []string {
	return sortedKeys(c.Applications)
}

// EnvironmentNames returns configured environment names in sorted order.
func (c *ProjectConfig) EnvironmentNames() []string {
	return sortedKeys(c.Environments)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
