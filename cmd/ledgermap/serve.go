package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oakvale/ledgermap/internal/llm"
	"github.com/oakvale/ledgermap/internal/mapper"
	"github.com/oakvale/ledgermap/internal/reference"
	"github.com/oakvale/ledgermap/internal/server"
	"github.com/oakvale/ledgermap/internal/storage"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account mapping HTTP API",
		RunE:  runServe,
	}

	cmd.Flags().String("addr", ":8000", "listen address")
	cmd.Flags().String("db", "", "SQLite session store path (empty: in-memory)")
	cmd.Flags().String("account-reference", "", "target chart reference JSON path")
	cmd.Flags().String("mapping-patterns", "", "ground-truth mapping patterns CSV path")

	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("storage.path", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("reference.chart", cmd.Flags().Lookup("account-reference"))
	_ = viper.BindPFlag("reference.patterns", cmd.Flags().Lookup("mapping-patterns"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()

	apiKey := viper.GetString("llm.api_key")
	var client llm.Client
	if apiKey == "" {
		logger.Warn("llm.api_key not set, completion calls will fail")
		client = llm.Unconfigured()
	} else {
		var err error
		client, err = llm.NewClient(llm.Config{
			APIKey:     apiKey,
			Model:      viper.GetString("llm.model"),
			MaxRetries: viper.GetInt("llm.max_retries"),
		})
		if err != nil {
			return fmt.Errorf("failed to create completion client: %w", err)
		}
	}
	defer func() { _ = client.Close() }()

	var store storage.SessionStore
	if dbPath := viper.GetString("storage.path"); dbPath != "" {
		sqliteStore, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		store = sqliteStore
	} else {
		store = storage.NewMemoryStore(0)
	}
	defer func() { _ = store.Close() }()

	ref := reference.Load(
		viper.GetString("reference.chart"),
		viper.GetString("reference.patterns"),
		logger,
	)

	m := mapper.New(client, logger, mapper.Options{
		ConfidenceThreshold: viper.GetInt("mapping.confidence_threshold"),
	})

	srv := server.New(server.Config{
		Addr:             viper.GetString("server.addr"),
		AllowOrigins:     viper.GetString("server.allow_origins"),
		APIKeyConfigured: apiKey != "",
	}, store, m, ref, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
		case <-cmd.Context().Done():
		}
		logger.Info("shutting down")
		_ = srv.Shutdown()
	}()

	logger.Info("starting server", "addr", viper.GetString("server.addr"))
	return srv.Listen()
}
