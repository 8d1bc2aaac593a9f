package main

import (
	"context"
	"fmt"

	"lunarmonkeys/cmd/lunar/console"
	"lunarmonkeys/cmd/lunar/ui"
	"lunarmonkeys/internal/config"
	"lunarmonkeys/internal/logging"
	"lunarmonkeys/internal/manifest"
)

// runConsole launches the interactive mission console.
func runConsole(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// File logging only; stdout belongs to the console.
	if err := logging.Initialize(cfg.GetLogsDir(), cfg.Logging.Settings()); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.CloseAll()
	defer logging.CloseAudit()
	logging.Boot("Starting console against %s", cfg.BackendURL())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	path := resolveConfigPath()
	err = config.Watch(ctx, path, func(next *config.Config) {
		if err := logging.Configure(next.Logging.Settings()); err != nil {
			logging.BootWarn("Logging reconfigure failed: %v", err)
			return
		}
		logging.Boot("Config reloaded from %s", path)
	}, func(err error) {
		logging.BootWarn("Config reload failed: %v", err)
	})
	if err != nil {
		logging.BootWarn("Config watch disabled: %v", err)
	}

	a, err := newApp(cfg, manifest.NewFileTokenStore(cfg.GetTokenPath()))
	if err != nil {
		return err
	}
	a.serveMetrics(ctx)

	return console.Run(console.Options{
		State:    a.state,
		Styles:   ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)),
		AdminURL: cfg.AdminURL(),
		Context:  ctx,
	})
}
