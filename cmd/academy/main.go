package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/signnatural/academy-cli/internal/api"
	"github.com/signnatural/academy-cli/internal/app"
	"github.com/signnatural/academy-cli/internal/credential"
	"github.com/signnatural/academy-cli/internal/logger"
	"github.com/signnatural/academy-cli/internal/model"
	"github.com/signnatural/academy-cli/internal/session"
	"github.com/signnatural/academy-cli/internal/store"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the configuration file")
	logLevel := flag.String("log-level", "", "override the configured log level (debug, info, warn, error)")
	flag.Parse()

	if err := run(*configPath, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "academy: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	// The TUI owns stdout, so logs go to a file.
	logFile, err := logger.OpenFile(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	log := logger.New(logFile, logger.ParseLevel(cfg.Log.Level))
	slog.SetDefault(log)

	st, err := store.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer st.Close()

	sess := session.New(credential.Store{})

	client := api.NewClient(cfg.API.BaseURL, sess,
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithLogger(log),
	)

	log.Info("starting",
		slog.String("api", cfg.API.BaseURL),
		slog.String("cache", cfg.Cache.Path),
	)

	p := tea.NewProgram(app.New(sess, client, st, log), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
