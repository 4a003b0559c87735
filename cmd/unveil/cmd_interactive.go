package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"unveil/cmd/unveil/app"
	"unveil/internal/config"
	"unveil/internal/logging"
)

// runInteractive starts the full-screen interface.
func runInteractive(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st := openStore(cfg)
	defer closeStore(st)

	reloads := make(chan app.ConfigReloadedMsg, 1)
	watcher, err := config.NewWatcher(resolvedConfigPath(), func(c *config.Config, err error) {
		select {
		case reloads <- app.ConfigReloadedMsg{Config: c, Err: err}:
		default:
			logging.Get(logging.CategoryConfig).Warn("Dropped config reload, previous one still pending")
		}
	})
	if err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
	} else if err := watcher.Start(ctx); err != nil {
		logger.Warn("config watcher not started", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	m := app.New(app.Options{
		Config:        cfg,
		Backend:       newClient(cfg),
		Store:         st,
		ConfigReloads: reloads,
	})
	defer m.Close()

	if cfg.Verification.Remember && st != nil {
		if err := m.Verifier().Remember(ctx, st); err != nil {
			logger.Warn("could not restore verification", zap.Error(err))
		}
	}

	logging.Boot("Starting interactive interface against %s", cfg.API.BaseURL)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
