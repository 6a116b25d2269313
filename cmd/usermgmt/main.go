// Command usermgmt serves the user management HTTP API.
//
//	@title			User Management API
//	@version		1.0
//	@description	Users specialised as managers or clients, with manager assignment.
//	@BasePath		/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/99minutos/user-management/internal/api"
	"github.com/99minutos/user-management/internal/core/service"
	"github.com/99minutos/user-management/internal/infrastructure/config"
	httpserver "github.com/99minutos/user-management/internal/infrastructure/http"
	"github.com/99minutos/user-management/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 10 * time.Second

// CLI flags; when set they win over the environment.
var (
	port     string
	driver   string
	dsn      string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "usermgmt",
		Short:         "User management service",
		Long:          `usermgmt manages users specialised as managers or clients and the assignment of clients to managers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Store driver: postgres, sqlite or mongo (or set DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database connection string (or set DB_DSN)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (or set LOG_LEVEL)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "HTTP server port (or set PORT)")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the store schema and indexes, then exit",
		RunE:  runMigrate,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("usermgmt %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "usermgmt:", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if port != "" {
		cfg.Port = port
	}
	if driver != "" {
		cfg.Database.Driver = driver
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		File:    cfg.LogFile,
		Service: "usermgmt",
		Version: version,
	})
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Get()
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := openDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	if cfg.Database.AutoMigrate {
		if err := deps.Migrate(ctx); err != nil {
			return err
		}
	}

	users := service.NewUserService(deps.Users, deps.Locker, logger.Component("user_service"))

	e := httpserver.NewRouter(httpserver.Options{
		Logger:      logger.Component("http"),
		CORSOrigins: cfg.CORSAllowOrigins,
		Checks:      deps.Checks,
	})
	api.Register(e, users, api.Options{
		Logger:  log,
		Swagger: !cfg.IsProduction(),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("driver", cfg.Database.Driver).
			Bool("redis_lock", deps.Locker != nil).
			Bool("enforce_user_types", cfg.EnforceUserTypes).
			Msg("starting user management API")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Get()
	defer logger.Close()

	deps, err := openDependencies(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.Migrate(cmd.Context()); err != nil {
		return err
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("schema up to date")
	return nil
}
