package db

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"github.com/jackc/pgpassfile"

	"github.com/vvka-141/dbobj/internal/config"
	"github.com/vvka-141/dbobj/internal/params"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// EnvVars holds the PostgreSQL and cloud environment variables consulted as
// fallbacks when an endpoint leaves a value unset.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST     string
	PGPORT     string
	PGUSER     string
	PGPASSWORD string
	PGDATABASE string
	PGSSLMODE  string
	PGPASSFILE string

	AWS_REGION          string
	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string

	// OSUser is the login name used when no database user is configured.
	OSUser string
}

// LoadFromEnvironment reads the variables from the process environment.
func LoadFromEnvironment() *EnvVars {
	osUser := os.Getenv("USER")
	if osUser == "" {
		osUser = os.Getenv("USERNAME")
	}
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		PGPASSFILE:          os.Getenv("PGPASSFILE"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
		OSUser:              osUser,
	}
}

// PgpassPath returns the platform-appropriate .pgpass file path.
func (e *EnvVars) PgpassPath() string {
	if e.PGPASSFILE != "" {
		return e.PGPASSFILE
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "postgresql", "pgpass.conf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pgpass")
}

// Resolver turns endpoint references into connection configurations.
type Resolver struct {
	env    config.EnvironmentConfig
	envVar *EnvVars
	params map[string]string
}

// NewResolver creates a resolver for one environment. params are expanded
// into ${name} placeholders of endpoint fields.
func NewResolver(env config.EnvironmentConfig, envVars *EnvVars, parameters map[string]string) *Resolver {
	if envVars == nil {
		envVars = &EnvVars{}
	}
	return &Resolver{env: env, envVar: envVars, params: parameters}
}

// Resolve looks ref up in the environment's endpoints map; failing that, ref
// is parsed as a connection string. An empty ref selects default_endpoint.
//
// Precedence for each value: endpoint field > connection string > PG*
// environment variable > default. The password comes from the connection
// string, then $PGPASSWORD, then the pgpass file.
func (r *Resolver) Resolve(ref string) (dbobj.Endpoint, error) {
	if ref == "" {
		ref = r.env.DefaultEndpoint
		if ref == "" {
			return dbobj.Endpoint{}, fmt.Errorf("no endpoint given and the environment has no default_endpoint: %w", dbobj.ErrInvalidConfig)
		}
	}

	if ep, ok := r.env.Endpoints[ref]; ok {
		cfg, err := r.fromEndpointConfig(ep)
		if err != nil {
			return dbobj.Endpoint{}, fmt.Errorf("endpoint %s: %w", ref, err)
		}
		return dbobj.Endpoint{Name: ref, Config: cfg}, nil
	}

	if !IsConnectionString(ref) {
		return dbobj.Endpoint{}, fmt.Errorf("unknown endpoint %q (known: %v): %w", ref, r.endpointNames(), dbobj.ErrInvalidConfig)
	}
	expanded, err := params.Expand(ref, r.params)
	if err != nil {
		return dbobj.Endpoint{}, err
	}
	cfg, err := ParseConnectionString(expanded)
	if err != nil {
		return dbobj.Endpoint{}, fmt.Errorf("invalid connection string: %v: %w", err, dbobj.ErrInvalidConfig)
	}
	if err := r.finish(cfg, config.EndpointConfig{}); err != nil {
		return dbobj.Endpoint{}, err
	}
	return dbobj.Endpoint{Config: cfg}, nil
}

func (r *Resolver) fromEndpointConfig(ep config.EndpointConfig) (*dbobj.ConnectionConfig, error) {
	if err := r.expandFields(&ep); err != nil {
		return nil, err
	}

	cfg := &dbobj.ConnectionConfig{AdditionalParams: make(map[string]string)}
	if ep.Connection != "" {
		parsed, err := ParseConnectionString(ep.Connection)
		if err != nil {
			return nil, fmt.Errorf("invalid connection string: %v: %w", err, dbobj.ErrInvalidConfig)
		}
		cfg = parsed
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Host, ep.Host)
	override(&cfg.Username, ep.Username)
	override(&cfg.Database, ep.Database)
	override(&cfg.SSLMode, ep.SSLMode)
	override(&cfg.SSLCert, ep.SSLCert)
	override(&cfg.SSLKey, ep.SSLKey)
	override(&cfg.SSLRootCert, ep.SSLRootCert)
	override(&cfg.AzureTenantID, ep.AzureTenantID)
	override(&cfg.AzureClientID, ep.AzureClientID)
	override(&cfg.AWSRegion, ep.AWSRegion)
	override(&cfg.GoogleInstance, ep.GoogleInstance)
	if ep.Port != 0 {
		cfg.Port = ep.Port
	}
	if ep.AuthMethod != "" {
		m, err := dbobj.ParseAuthMethod(ep.AuthMethod)
		if err != nil {
			return nil, err
		}
		cfg.AuthMethod = m
	}

	if err := r.finish(cfg, ep); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *Resolver) expandFields(ep *config.EndpointConfig) error {
	for _, field := range []*string{
		&ep.Connection, &ep.Host, &ep.Username, &ep.Database, &ep.SSLMode,
		&ep.SSLCert, &ep.SSLKey, &ep.SSLRootCert, &ep.AzureTenantID,
		&ep.AzureClientID, &ep.AWSRegion, &ep.GoogleInstance,
	} {
		v, err := params.Expand(*field, r.params)
		if err != nil {
			return err
		}
		*field = v
	}
	return nil
}

// finish applies environment fallbacks and defaults.
func (r *Resolver) finish(cfg *dbobj.ConnectionConfig, ep config.EndpointConfig) error {
	env := r.envVar
	first := func(values ...string) string {
		for _, v := range values {
			if v != "" {
				return v
			}
		}
		return ""
	}

	cfg.Host = first(cfg.Host, env.PGHOST, "localhost")
	if cfg.Port == 0 {
		if env.PGPORT != "" {
			port, err := strconv.Atoi(env.PGPORT)
			if err != nil {
				return fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", env.PGPORT, dbobj.ErrInvalidConfig)
			}
			cfg.Port = port
		} else {
			cfg.Port = 5432
		}
	}
	cfg.Username = first(cfg.Username, env.PGUSER, env.OSUser)
	cfg.Database = first(cfg.Database, env.PGDATABASE, dbobj.DefaultManagementDB)
	cfg.SSLMode = first(cfg.SSLMode, env.PGSSLMODE, "prefer")
	if cfg.SSLCert != "" && cfg.SSLKey != "" && ep.AuthMethod == "" && cfg.AuthMethod == dbobj.AuthMethodStandard {
		cfg.AuthMethod = dbobj.AuthMethodCertificate
	}

	switch cfg.AuthMethod {
	case dbobj.AuthMethodAWSIAM:
		cfg.AWSRegion = first(cfg.AWSRegion, env.AWS_REGION)
	case dbobj.AuthMethodAzureEntraID:
		cfg.AzureTenantID = first(cfg.AzureTenantID, env.AZURE_TENANT_ID)
		cfg.AzureClientID = first(cfg.AzureClientID, env.AZURE_CLIENT_ID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case dbobj.AuthMethodStandard, dbobj.AuthMethodCertificate:
		if cfg.Password == "" {
			cfg.Password = env.PGPASSWORD
		}
		if cfg.Password == "" {
			password, err := lookupPgpass(env.PgpassPath(), cfg)
			if err != nil {
				return err
			}
			cfg.Password = password
		}
	}
	return nil
}

// lookupPgpass returns the matching password from the pgpass file, or "" when
// the file does not exist or has no matching line.
func lookupPgpass(path string, cfg *dbobj.ConnectionConfig) (string, error) {
	if path == "" {
		return "", nil
	}
	passfile, err := pgpassfile.ReadPassfile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read pgpass file %s: %w", path, err)
	}
	return passfile.FindPassword(cfg.Host, strconv.Itoa(cfg.Port), cfg.Database, cfg.Username), nil
}

func (r *Resolver) endpointNames() []string {
	names := make([]string, 0, len(r.env.Endpoints))
	for name := range r.env.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
