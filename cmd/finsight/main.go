// Finsight is a terminal personal-finance assistant. It talks to the
// finsight backend for account data, renders a spending dashboard, and
// hosts a chat assistant over the financial context.
//
// Usage:
//
//	# Start with the default config (~/.config/finsight/config.yaml)
//	finsight
//
//	# Point at a different backend
//	FINSIGHT_BACKEND_BASE_URL=http://localhost:9000/api/v1 finsight
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/finsight/internal/api"
	"github.com/fyrsmithlabs/finsight/internal/chat"
	"github.com/fyrsmithlabs/finsight/internal/config"
	"github.com/fyrsmithlabs/finsight/internal/logging"
	"github.com/fyrsmithlabs/finsight/internal/session"
	"github.com/fyrsmithlabs/finsight/internal/store"
	"github.com/fyrsmithlabs/finsight/internal/tui"
)

// Version information (set via ldflags during build)
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("finsight %s\n", version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The alternate screen owns stderr while the program runs, so logs
	// go to a file unless the config says otherwise.
	if cfg.Log.File == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return err
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cfg.Log.File = filepath.Join(home, ".config", "finsight", "finsight.log")
	}

	logger, flush, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer flush()

	logger.Info("starting finsight",
		zap.String("version", version),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("chat_provider", cfg.Chat.Provider))

	client := api.NewClient(cfg.Backend.BaseURL)
	identity := api.Identity{UserID: cfg.Identity.UserID, Email: cfg.Identity.Email}
	sess := session.New(client, identity, logger)
	st := store.New(client, logger)

	replier, err := buildReplier(cfg)
	if err != nil {
		return err
	}

	model := tui.New(*cfg, sess, st, chat.NewLog(), replier, logger)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("program exited", zap.Error(err))
		return err
	}
	return nil
}

func buildReplier(cfg *config.Config) (chat.Replier, error) {
	switch cfg.Chat.Provider {
	case config.ProviderGemini:
		replier, err := chat.NewGemini(context.Background(), cfg.Chat.Model)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini: %w", err)
		}
		return replier, nil
	default:
		return chat.NewScripted(), nil
	}
}
