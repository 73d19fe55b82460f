// Package main provides the storeviewer CLI: the viewer API server, the
// catalog importer and a terminal preview.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"storeviewer/internal/api"
	"storeviewer/internal/catalog"
	"storeviewer/internal/config"
	"storeviewer/internal/probe"
	"storeviewer/internal/server"
	"storeviewer/internal/session"
	"storeviewer/internal/storage"
	"storeviewer/internal/tui"
	"storeviewer/internal/viewer"
	"storeviewer/internal/viewer/feed"
	"storeviewer/internal/viewer/playback"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "storeviewer",
		Short:         "Full-screen review and product media viewer",
		Version:       api.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newImportCmd(&configPath))
	rootCmd.AddCommand(newPreviewCmd(&configPath))

	return rootCmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the viewer session API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger := setupLogger(cfg.Logging, os.Stdout)

			logger.Info().
				Str("version", api.Version).
				Msg("starting storeviewer server")

			store, err := storage.NewSQLiteStorage(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()

			var prober *probe.Prober
			if cfg.Probe.Enabled {
				prober = newProber(cfg, logger)
			}

			deps := session.Deps{
				Source:  store,
				Service: store,
				Prefs:   store,
				Logger:  logger,
			}
			if prober != nil {
				deps.Prober = prober
			}
			sessions := session.NewManager(session.Options{
				Viewer:            cfg.Viewer,
				MaxSessions:       cfg.Sessions.MaxSessions,
				NotificationLimit: cfg.Sessions.NotificationLimit,
			}, deps)

			srv := server.New(cfg, logger, store, sessions)
			srv.SetImporter(catalog.NewImporter(store, logger))
			if prober != nil {
				srv.SetProber(prober)
			}

			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				<-sigCh

				logger.Info().Msg("received shutdown signal")

				if err := srv.Shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown error")
				}
			}()

			if err := srv.Start(); err != nil {
				return err
			}

			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func newImportCmd(configPath *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import reviews and products from a YAML catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if file == "" {
				file = cfg.Catalog.Path
			}

			logger := setupLogger(cfg.Logging, cmd.ErrOrStderr())

			store, err := storage.NewSQLiteStorage(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()

			res, err := catalog.NewImporter(store, logger).ImportFile(cmd.Context(), file)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d reviews, %d products (%d videos, %d skipped)\n",
				res.Reviews, res.Products, res.Videos, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog file (defaults to catalog.path)")

	return cmd
}

func newPreviewCmd(configPath *string) *cobra.Command {
	var (
		userID  string
		phase   string
		slideID string
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Open the viewer over the stored catalog in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if userID == "" {
				userID = cfg.Preview.UserID
			}

			// the terminal belongs to the preview, so logs go to a file or nowhere
			logger := zerolog.Nop()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
				if err != nil {
					return err
				}
				defer f.Close()
				cfg.Logging.Pretty = false
				logger = setupLogger(cfg.Logging, f)
			}

			store, err := storage.NewSQLiteStorage(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			src, err := catalog.LoadFeed(ctx, store, userID)
			cancel()
			if err != nil {
				return err
			}

			muted := true
			if p, err := store.GetPreferences(cmd.Context(), userID); err == nil {
				muted = p.Muted
			}

			notices := &tui.Notices{}
			v := viewer.New(cfg.Viewer, viewer.Deps{
				UserID:   userID,
				Service:  store,
				Notifier: notices,
				Logger:   logger,
				Playback: []playback.Option{
					playback.WithMuted(muted),
					playback.WithMuteListener(func(m bool) {
						if err := store.SavePreferences(context.Background(), storage.Preferences{UserID: userID, Muted: m}); err != nil {
							logger.Warn().Err(err).Msg("failed to save mute preference")
						}
					}),
				},
			})

			if _, err := v.Open(src.Reviews, src.Products, feed.Start{Phase: feed.Phase(phase), SlideID: slideID}); err != nil {
				return err
			}

			p := tea.NewProgram(
				tui.New(v, notices, nil, cfg.Preview),
				tea.WithAltScreen(),
				tea.WithMouseCellMotion(),
			)
			_, err = p.Run()

			v.Close(viewer.CloseNavigation)
			v.Reactions().Wait()
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id for reactions (defaults to preview.user_id)")
	cmd.Flags().StringVar(&phase, "phase", "reviews", "start phase: reviews or products")
	cmd.Flags().StringVar(&slideID, "slide", "", "start slide id")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")

	return cmd
}

func newProber(cfg *config.Config, logger zerolog.Logger) *probe.Prober {
	return probe.New(probe.Options{
		Timeout:     cfg.Probe.Timeout,
		Concurrency: cfg.Probe.Concurrency,
		CacheSize:   cfg.Probe.CacheSize,
		CacheTTL:    cfg.Probe.CacheTTL,
	}, logger)
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Logger()
}
