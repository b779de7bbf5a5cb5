package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maffers001/property/internal/engine"
	"github.com/maffers001/property/internal/export"
	"github.com/maffers001/property/internal/report"
	"github.com/maffers001/property/internal/rules"
	"github.com/maffers001/property/internal/storage"

	"github.com/spf13/viper"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (*storage.Store, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "property", "property.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEngine wires the categorization engine from config.
func initEngine(store *storage.Store) *engine.Engine {
	exportDir := viper.GetString("export.dir")
	if exportDir == "" {
		exportDir = "exports"
	}

	threshold := viper.GetFloat64("review.confidence_threshold")
	if threshold == 0 {
		threshold = rules.DefaultConfidenceThreshold
	}
	moneyMovement := viper.GetStringSlice("review.money_movement_categories")
	if len(moneyMovement) == 0 {
		moneyMovement = rules.DefaultMoneyMovementCategories()
	}

	synthThreshold := viper.GetInt("rules.synthesis_threshold")
	if synthThreshold == 0 {
		synthThreshold = rules.DefaultSynthesisThreshold
	}

	return engine.New(store, export.NewCSVWriter(exportDir),
		engine.WithReviewPolicy(rules.NewReviewPolicy(threshold, moneyMovement)),
		engine.WithSynthesizer(rules.NewRecurrenceSynthesizer(synthThreshold)),
	)
}

// initReports wires the report aggregator from config.
func initReports(store *storage.Store) *report.Aggregator {
	personal := viper.GetStringSlice("report.personal_categories")
	if len(personal) == 0 {
		personal = report.DefaultPersonalSpendingCategories()
	}
	return report.NewAggregator(store, personal)
}

// cliCaller identifies local command invocations in audit logs.
func cliCaller() engine.Caller {
	user := os.Getenv("USER")
	if user == "" {
		user = "cli"
	}
	return engine.Caller{Subject: user}
}
