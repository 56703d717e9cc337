package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/convobot/internal/db"
	"github.com/ziadkadry99/convobot/internal/index"
	"github.com/ziadkadry99/convobot/internal/leads"
	"github.com/ziadkadry99/convobot/internal/server"
)

var serveAllowAll bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat API server",
	Long: `Loads the corpus, builds or loads the similarity index, and serves the
REST and WebSocket chat API. Completed flows are persisted as leads in
SQLite under the data directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, err := loadConfigAndCorpus()
		if err != nil {
			return err
		}

		embedder, err := createEmbedder(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		ctx := cmd.Context()

		// The index is published fully built; recognition traffic never
		// sees a partial one. A failed build degrades to always-fallback
		// recognition instead of refusing to start.
		builder := &index.Builder{Embedder: embedder, Dir: filepath.Join(cfg.DataDir, "index")}
		idx, err := builder.BuildOrLoad(ctx, c)
		if err != nil {
			log.Printf("warning: similarity index unavailable, serving fallback-only: %v", err)
			idx = nil
		}

		store, err := createSessionStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("creating session store: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "convobot.db"))
		if err != nil {
			return fmt.Errorf("opening lead database: %w", err)
		}
		defer database.Close()
		leadStore := leads.NewStore(database)

		eng := assembleEngine(cfg, c, embedder, idx, store, leadStore)

		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			AllowAll: serveAllowAll || cfg.Server.AllowAll,
		}, eng, leadStore)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
			log.Println("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}
