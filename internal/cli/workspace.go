package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vvka-141/dbobj/internal/checksum"
	"github.com/vvka-141/dbobj/internal/config"
	"github.com/vvka-141/dbobj/internal/files/filesystem"
	"github.com/vvka-141/dbobj/internal/files/scanner"
	"github.com/vvka-141/dbobj/internal/logging"
	"github.com/vvka-141/dbobj/internal/manifest"
	"github.com/vvka-141/dbobj/internal/params"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

const (
	envPrefix = "DBOBJ"
	keyApp    = "app"
	keyEnv    = "env"
)

// newSettings layers the application and environment selection: explicit
// flags, then DBOBJ_APP and DBOBJ_ENV, then the defaults of dbobj.yaml.
func newSettings(cfg *config.ProjectConfig, flags globalFlags) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault(keyApp, cfg.DefaultApp)
	v.SetDefault(keyEnv, cfg.DefaultEnv)
	if flags.app != "" {
		v.Set(keyApp, flags.app)
	}
	if flags.env != "" {
		v.Set(keyEnv, flags.env)
	}
	return v
}

// workspace is one application of a project, resolved from the global flags.
type workspace struct {
	root      string
	app       string
	appDir    string
	config    *config.ProjectConfig
	appConfig config.ApplicationConfig
	settings  *viper.Viper
	flags     globalFlags
	fs        filesystem.FileSystemProvider
	logger    dbobj.Logger
}

// loadProject reads <root>/.env and <root>/dbobj.yaml. A missing config file
// yields an empty configuration.
func loadProject(flags globalFlags, logger dbobj.Logger) (string, *config.ProjectConfig, error) {
	root := flags.root
	if root == "" {
		root = "."
	}
	if err := godotenv.Load(filepath.Join(root, ".env")); err == nil {
		logger.Verbose("Loaded %s", filepath.Join(root, ".env"))
	}

	cfg, err := config.Load(root)
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		logger.Verbose("No %s in %s, using defaults", config.ConfigFileName, root)
		cfg = &config.ProjectConfig{}
	case err != nil:
		return "", nil, err
	}
	return root, cfg, nil
}

func loadWorkspace() (*workspace, error) {
	return loadWorkspaceWith(globals, logging.NewConsoleLogger(globals.verbose))
}

func loadWorkspaceWith(flags globalFlags, logger dbobj.Logger) (*workspace, error) {
	root, cfg, err := loadProject(flags, logger)
	if err != nil {
		return nil, err
	}
	settings := newSettings(cfg, flags)

	app := settings.GetString(keyApp)
	if app == "" {
		if names := cfg.ApplicationNames(); len(names) == 1 {
			app = names[0]
		}
	}
	if app == "" {
		return nil, fmt.Errorf("no application selected; use --app, %s_APP or default_app in %s: %w",
			envPrefix, config.ConfigFileName, dbobj.ErrInvalidConfig)
	}

	appConfig := cfg.Application(app)
	ws := &workspace{
		root:      root,
		app:       app,
		appDir:    filepath.Join(root, filepath.FromSlash(appConfig.Path)),
		config:    cfg,
		appConfig: appConfig,
		settings:  settings,
		flags:     flags,
		fs:        filesystem.NewOSFileSystem(),
		logger:    logger,
	}
	logger.Verbose("Application %s in %s", app, ws.appDir)
	return ws, nil
}

func (w *workspace) scan() (*scanner.Result, error) {
	return scanner.NewScannerWithFS(checksum.New(), w.fs).ScanApplication(w.appDir)
}

func (w *workspace) manifests() *manifest.Manager {
	return manifest.NewManager(w.fs, w.appDir, w.app, w.logger)
}

// parameters merges dbobj.yaml params, --params-file files and --param
// flags; later sources win.
func (w *workspace) parameters() (map[string]string, error) {
	fileParams, err := params.LoadEnvFiles(w.flags.paramsFiles...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dbobj.ErrInvalidConfig, err)
	}
	cliParams, err := params.ParseKeyValuePairs(w.flags.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dbobj.ErrInvalidConfig, err)
	}
	return params.Merge(w.config.Params, fileParams, cliParams), nil
}

// environment returns the selected environment. Without a selection, a
// project with a single environment uses it and any other project gets an
// empty one, which still accepts raw connection strings.
func (w *workspace) environment() (string, config.EnvironmentConfig, error) {
	name := w.settings.GetString(keyEnv)
	if name == "" {
		names := w.config.EnvironmentNames()
		if len(names) != 1 {
			return "", config.EnvironmentConfig{}, nil
		}
		name = names[0]
	}
	env, err := w.config.Environment(name)
	if err != nil {
		return "", config.EnvironmentConfig{}, err
	}
	w.logger.Verbose("Environment %s", name)
	return name, env, nil
}
