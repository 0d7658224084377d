package cmd

import (
	"os"

	"postern/internal/auth"
	"postern/internal/collection"
	"postern/internal/config"
	"postern/internal/environment"
	"postern/internal/transport"
	"postern/pkg/logging"
)

// app wires the stores and services a command needs. Commands are
// one-shot, so the environment file watcher is not started here.
type app struct {
	cfg         config.Config
	collections *collection.Store
	envs        *environment.Store
	client      *transport.Client
	service     *auth.Service
}

// newApp loads the workspace and builds the service graph. The caller
// must Close it.
func newApp(version string) (*app, error) {
	dir := configDir
	if dir == "" {
		var err error
		dir, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	envs := environment.NewStore()
	if err := envs.LoadFile(cfg.Paths.Environments); err != nil {
		return nil, err
	}

	collections := collection.NewStore()
	if err := collections.LoadFile(cfg.Paths.Collection); err != nil {
		return nil, err
	}

	surface, err := auth.NewBrowserSurface(cfg.RedirectURI())
	if err != nil {
		return nil, err
	}

	client := transport.New(cfg.Timeouts.TokenExchange.Std(), "postern/"+version)
	service := auth.NewService(collections, envs, auth.NewTokenClient(client), surface,
		auth.ServiceOptions{RedirectWait: cfg.Timeouts.RedirectWait.Std()})

	return &app{
		cfg:         cfg,
		collections: collections,
		envs:        envs,
		client:      client,
		service:     service,
	}, nil
}

// Close releases the service, its surface, and the token cache.
func (a *app) Close() {
	a.service.Stop()
}

func initLogging(verbose bool) {
	level := logging.LevelWarn
	if verbose {
		level = logging.LevelDebug
	}
	logging.InitCLI(level, os.Stderr)
}
