package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/config"
	"github.com/rovshanmuradov/letscook/internal/logger"
	"github.com/rovshanmuradov/letscook/internal/session"
	"github.com/rovshanmuradov/letscook/internal/txn"
	"github.com/rovshanmuradov/letscook/internal/ui"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

// run owns every resource of the dashboard; they are released before it returns.
func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Console output belongs to the dashboard; logs go to the buffer and file.
	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging
	appLogger := logger.NewTUI(logCfg, logger.NewBuffer(1000))
	defer func() {
		_ = appLogger.Sync()
	}()

	s, err := session.Open(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			appLogger.Warn("Session close failed", zap.Error(err))
		}
	}()

	owner := s.Owner()
	if owner.IsZero() {
		return ui.ErrNoWallet
	}

	relay := ui.NewRelay(s.Bus, 256, appLogger.Logger)
	defer relay.Close()

	dir := s.Directory()
	act := func(ctx context.Context, page string, now time.Time) (*txn.Result, error) {
		v, err := s.OpenLaunch(ctx, page)
		if err != nil {
			return nil, err
		}
		defer v.Close()
		return v.Do(ctx, now, 0)
	}

	appLogger.Info("Starting tickets dashboard", zap.String("wallet", owner.String()))

	recovery := ui.NewRecoveryHandler(appLogger.Logger, func() (tea.Model, []tea.ProgramOption) {
		model := ui.NewTickets(dir, act, owner, appLogger.Logger, ui.WithRelay(relay))
		return ui.NewSafeUIWrapper(model, appLogger.Logger), []tea.ProgramOption{tea.WithAltScreen()}
	})
	if err := recovery.RunWithRecovery(); err != nil {
		appLogger.Error("TUI application failed", zap.Error(err))
		return err
	}
	return nil
}
