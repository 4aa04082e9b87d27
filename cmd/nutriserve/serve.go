// Copyright 2025 The NutriServe Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nutriserve/nutriserve/pkg/auth"
	"github.com/nutriserve/nutriserve/pkg/config"
	"github.com/nutriserve/nutriserve/pkg/config/provider"
	"github.com/nutriserve/nutriserve/pkg/observability"
	"github.com/nutriserve/nutriserve/pkg/runtime"
	"github.com/nutriserve/nutriserve/pkg/server"
)

// ServeCmd starts the A2A server.
type ServeCmd struct {
	Port  int  `help:"Override the configured port."`
	Watch bool `help:"Watch the config file for changes and hot-swap agents."`

	// onReload is invoked by the config watcher with each reloaded
	// config. Set after the server exists; nil until then.
	onReload func(*config.Config)
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, loader, err := c.loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	// The config file's logger section applies only when no flag or env
	// var already configured the logger.
	if !loggerOverridden(cli) {
		cleanup, err := initLoggerFromConfig(cfg.Logger)
		if err != nil {
			return err
		}
		if cleanup != nil {
			defer cleanup()
		}
	}

	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	var obsCfg observability.Config
	if cfg.Server.Observability != nil {
		obsCfg = *cfg.Server.Observability
	}
	obsCfg.SetDefaults()
	obs := observability.NewManager(obsCfg)
	if err := obs.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			slog.Warn("Observability shutdown error", "error", err)
		}
	}()

	// Assemble agents. The runtime is swapped wholesale on config reload,
	// so everything an agent needs lives inside it.
	var mu sync.Mutex
	rt, err := runtime.New(cfg, runtime.WithObservability(obs))
	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		if err := rt.Close(); err != nil {
			slog.Warn("Runtime close error", "error", err)
		}
	}()

	validator, err := auth.NewValidatorFromConfig(ctx, cfg.Server.Auth)
	if err != nil {
		return fmt.Errorf("failed to configure authentication: %w", err)
	}

	serverOpts := []server.HTTPServerOption{server.WithObservability(obs)}
	if validator != nil {
		serverOpts = append(serverOpts, server.WithAuthValidator(validator))
	}

	srv := server.NewHTTPServer(cfg, rt.Executors(), serverOpts...)

	// Hot reload swaps agents and cards; server-level settings (port,
	// auth) keep their startup values until restart.
	if c.Watch && loader != nil {
		c.onReload = func(newCfg *config.Config) {
			mu.Lock()
			defer mu.Unlock()

			newRT, err := runtime.New(newCfg, runtime.WithObservability(obs))
			if err != nil {
				slog.Error("Config reload failed, keeping previous agents", "error", err)
				return
			}

			srv.UpdateExecutors(newCfg, newRT.Executors())
			if err := rt.Close(); err != nil {
				slog.Warn("Error closing previous runtime", "error", err)
			}
			rt = newRT
			slog.Info("Agents reloaded", "agents", newCfg.ListAgents())
		}
		go func() {
			if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Config watch error", "error", err)
			}
		}()
	}

	c.printStartupInfo(cfg, srv, obs, validator != nil)

	// Start server (blocks until context is cancelled)
	return srv.Start(ctx)
}

// defaultConfigFile is picked up from the working directory when no
// --config flag is given.
const defaultConfigFile = "nutriserve.yaml"

// loadConfig loads the config file, or builds the default configuration
// when no file is given. The returned loader is nil in the default case.
func (c *ServeCmd) loadConfig(ctx context.Context, configPath string) (*config.Config, *config.Loader, error) {
	if configPath == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			configPath = defaultConfigFile
		}
	}
	if configPath == "" {
		cfg, err := config.Default()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build default config: %w", err)
		}
		slog.Info("No config file, using defaults and environment")
		return cfg, nil, nil
	}

	_ = config.LoadDotEnvForConfig(configPath)

	p, err := provider.NewFileProvider(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open config: %w", err)
	}

	loader := config.NewLoader(p, config.WithOnChange(func(cfg *config.Config) {
		if c.onReload != nil {
			c.onReload(cfg)
		}
	}))

	cfg, err := loader.Load(ctx)
	if err != nil {
		_ = loader.Close()
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("Loaded configuration", "path", configPath)
	return cfg, loader, nil
}

// printStartupInfo prints the endpoints the server listens on.
func (c *ServeCmd) printStartupInfo(cfg *config.Config, srv *server.HTTPServer, obs *observability.Manager, authEnabled bool) {
	greenColor := "\033[38;2;16;185;129m"
	resetColor := "\033[0m"

	fmt.Printf("\n%sNutriServe server ready!%s\n", greenColor, resetColor)
	fmt.Printf("   Agent Card:  http://%s/.well-known/agent-card.json\n", srv.Address())
	fmt.Printf("   Discovery:   http://%s/agents\n", srv.Address())
	fmt.Printf("   Health:      http://%s/health\n", srv.Address())

	if authEnabled {
		fmt.Printf("   Auth:        JWT bearer (JWKS)\n")
	}
	if obs.MetricsEnabled() {
		fmt.Printf("   Metrics:     http://%s%s\n", srv.Address(), obs.MetricsPath())
	}

	fmt.Println("\n   Agents (A2A JSON-RPC endpoints):")
	for _, name := range cfg.ListAgents() {
		fmt.Printf("     - http://%s/agents/%s\n", srv.Address(), name)
	}
	fmt.Println("\nPress Ctrl+C to stop")
}
