package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grc-backoffice/internal/database"
	"grc-backoffice/internal/framework"
	"grc-backoffice/internal/logger"
	"grc-backoffice/internal/notification"
	"grc-backoffice/internal/scorecard"
	"grc-backoffice/internal/server"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
	cleanupInterval = 24 * time.Hour
)

func serveCommand() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			if !skipMigrate {
				if err := database.Migrate(a.db); err != nil {
					return err
				}
			}
			if err := database.SeedAdmin(a.db, a.cfg.AdminUsername, a.cfg.AdminPassword, a.log); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := notification.NewHub(a.log.WithField("component", "hub"), a.cfg.AllowedOrigins...)
			go hub.Run()
			defer hub.Stop()

			api := a.api(hub)
			go cleanupLoop(ctx, api.Notifications, a)

			srv := &http.Server{
				Addr:              ":" + a.cfg.ServerPort,
				Handler:           server.NewRouter(a.cfg, api),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Infof("starting server on %s", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not run schema migration on start")
	return cmd
}

// cleanupLoop drops old read notifications once a day.
func cleanupLoop(ctx context.Context, svc *notification.Service, a *app) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.Cleanup(ctx, 0)
			if err != nil {
				a.log.WithError(err).Warn("notification cleanup failed")
				continue
			}
			a.log.WithField("deleted", n).Info("old notifications cleaned up")
		}
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and seed the admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			if err := database.Migrate(a.db); err != nil {
				return err
			}
			return database.SeedAdmin(a.db, a.cfg.AdminUsername, a.cfg.AdminPassword, a.log)
		},
	}
}

func importFrameworkCommand() *cobra.Command {
	var (
		frameworkID string
		file        string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "import-framework",
		Short: "Load a framework structure document (JSON or YAML) into requirement rows",
		Long: `Load a nested domains/categories/requirements document into a framework.

Requirements are upserted by identifier; the document is stored on the framework as-is.

Examples:
  grc-server import-framework --framework 3f0c... --file iso27001.yaml
  grc-server import-framework --framework 3f0c... --file nist.json --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(frameworkID)
			if err != nil {
				return fmt.Errorf("invalid --framework: %w", err)
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			f := framework.Format(format)
			if f == "" {
				f = framework.FormatFromName(file)
			}

			a, err := bootstrap()
			if err != nil {
				return err
			}
			svc := framework.NewService(framework.NewGormStore(a.db), a.log)
			reqs, err := svc.ImportStructure(cmd.Context(), id, data, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d requirements\n", len(reqs))
			return nil
		},
	}

	cmd.Flags().StringVar(&frameworkID, "framework", "", "Framework id")
	cmd.Flags().StringVar(&file, "file", "", "Path to the structure document")
	cmd.Flags().StringVar(&format, "format", "", "Document format (json or yaml); guessed from the file name when empty")
	_ = cmd.MarkFlagRequired("framework")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func scorecardCommand() *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "scorecard",
		Short: "Print the compliance scorecard as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			frameworkIDs := make([]uuid.UUID, 0, len(ids))
			for _, raw := range ids {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid framework id %q: %w", raw, err)
				}
				frameworkIDs = append(frameworkIDs, id)
			}

			a, err := bootstrap()
			if err != nil {
				return err
			}
			svc := scorecard.NewService(scorecard.NewGormStore(a.db), logger.Discard())
			resp, err := svc.Generate(cmd.Context(), frameworkIDs)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringSliceVar(&ids, "framework", nil, "Framework id (repeatable); all frameworks when omitted")
	return cmd
}
