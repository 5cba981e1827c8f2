package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/claimtrust/claimtrust/internal/common"
	"github.com/claimtrust/claimtrust/internal/config"
	"github.com/claimtrust/claimtrust/internal/ensemble"
	"github.com/claimtrust/claimtrust/internal/extract"
	"github.com/claimtrust/claimtrust/internal/feature"
	"github.com/claimtrust/claimtrust/internal/nlp"
	"github.com/claimtrust/claimtrust/internal/orgtrust"
	"github.com/claimtrust/claimtrust/internal/revalidate"
	"github.com/claimtrust/claimtrust/internal/storage"
)

// databasePath resolves the SQLite database location from config, defaulting
// to the XDG data directory.
func databasePath() (string, error) {
	if dbPath := viper.GetString("database.path"); dbPath != "" {
		return config.ExpandPath(dbPath), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "claimtrust", "claimtrust.db"), nil
}

// openStorage opens the configured database without running migrations.
func openStorage() (*storage.SQLiteStorage, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// newEntityExtractor builds the configured NLP backend. Without an API key
// the scorer falls back to the regex extractor on its own.
func newEntityExtractor() nlp.EntityExtractor {
	apiKey := viper.GetString("openai.api_key")
	if apiKey == "" {
		return nil
	}

	extractor, err := nlp.NewOpenAIExtractor(apiKey, viper.GetString("openai.model"))
	if err != nil {
		if !errors.Is(err, common.ErrMissingConfig) {
			slog.Warn("OpenAI extractor unavailable, using regex extraction", "error", err)
		}
		return nil
	}
	slog.Info("Using OpenAI entity extraction")
	return extractor
}

func newScorer() *ensemble.Scorer {
	return ensemble.NewScorer(config.ExpandPath(viper.GetString("models.dir")), newEntityExtractor())
}

func newOrchestrator(store *storage.SQLiteStorage, scheduler *revalidate.InProcessScheduler) *revalidate.Orchestrator {
	builder := feature.NewBuilder(feature.NewCachedStats(store))
	return revalidate.NewOrchestrator(store, builder, extract.NewExtractor(), newScorer(), revalidate.LogNotifier{}, scheduler)
}

func newAnalyzer(store *storage.SQLiteStorage) *revalidate.Analyzer {
	builder := feature.NewBuilder(feature.NewCachedStats(store))
	return revalidate.NewAnalyzer(store, builder, newScorer(), revalidate.LogNotifier{}, orgtrust.NewRecomputer(store))
}
