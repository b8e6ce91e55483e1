// cmd/cook/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/letscook/internal/config"
	"github.com/rovshanmuradov/letscook/internal/logger"
	"github.com/rovshanmuradov/letscook/internal/session"
)

// app carries what every command needs once the root pre-run has loaded
// the config.
type app struct {
	configPath string
	debug      bool

	session *session.Session
	log     *logger.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cook",
		Short:         "Let's Cook launch client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "configs/config.json", "path to config file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.stateCmd(),
		a.watchCmd(),
		a.buyCmd(),
		a.simpleActionCmd("check", "Check tickets of a finished raffle", actionCheck),
		a.simpleActionCmd("claim", "Claim tokens for winning tickets", actionClaim),
		a.simpleActionCmd("refund", "Refund tickets of a failed launch", actionRefund),
		a.actCmd(),
		a.ticketsCmd(),
		a.candlesCmd(),
		a.swapCmd(),
		a.validateLaunchCmd(),
		a.claimNFTCmd(),
		a.historyCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) open() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging || a.debug
	a.log = logger.New(logCfg)

	a.session, err = session.Open(cfg, a.log)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	return nil
}

func (a *app) close() error {
	var err error
	if a.session != nil {
		err = a.session.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}
