package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/appplaybook/backend/internal/access"
	"github.com/appplaybook/backend/internal/auth"
	"github.com/appplaybook/backend/internal/billing"
	"github.com/appplaybook/backend/internal/catalog"
	"github.com/appplaybook/backend/internal/config"
	"github.com/appplaybook/backend/internal/database"
	"github.com/appplaybook/backend/internal/logging"
	"github.com/appplaybook/backend/internal/server"
	"github.com/appplaybook/backend/internal/storage"
	"github.com/appplaybook/backend/internal/users"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "appplaybook-api",
		Short: "AppPlaybook case-study catalog backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path (empty serves an empty catalog)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("auth-jwks-url", defaults.GetString("auth.jwks_url"), "Auth provider JWKS URL")
	cmd.PersistentFlags().String("auth-issuer", defaults.GetString("auth.issuer"), "Auth provider token issuer")
	cmd.PersistentFlags().String("storage-directory", defaults.GetString("storage.directory"), "Screenshot upload directory")
	cmd.PersistentFlags().String("app-base-url", defaults.GetString("app.base_url"), "Public base URL for checkout redirects")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.jwks_url", "auth-jwks-url")
	bindFlag(cmd, "auth.issuer", "auth-issuer")
	bindFlag(cmd, "storage.directory", "storage-directory")
	bindFlag(cmd, "app.base_url", "app-base-url")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	// A missing database path is tolerated: the catalog serves empty
	// results and writes fail with typed errors.
	var db *gorm.DB
	if appConfig.DatabasePath != "" {
		db, err = database.OpenSQLite(appConfig.DatabasePath, logger)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()
	} else {
		logger.Warn("database path not configured, catalog degrades to empty results")
	}

	verifier, err := auth.NewProviderVerifier(auth.ProviderVerifierConfig{
		Issuer:     appConfig.AuthIssuer,
		Audience:   appConfig.AuthAudience,
		JWKSURL:    appConfig.AuthJWKSURL,
		CookieName: appConfig.AuthCookieName,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	userService := users.NewService(users.ServiceConfig{
		Database: db,
		Logger:   logger,
	})

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: catalog.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	evaluator := access.NewEvaluator(access.EvaluatorConfig{
		Users:  userService,
		Logger: logger,
	})

	gateway, err := billing.NewStripeGateway(appConfig.StripeSecretKey)
	if err != nil {
		return err
	}
	billingService, err := billing.NewService(billing.ServiceConfig{
		Gateway:            gateway,
		Users:              userService,
		WebhookSecret:      appConfig.StripeWebhookSecret,
		AppBaseURL:         appConfig.AppBaseURL,
		LifetimePriceCents: appConfig.LifetimePriceCents,
		MonthlyPriceCents:  appConfig.MonthlyPriceCents,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	store, err := storage.NewDiskStore(appConfig.StorageDirectory, appConfig.StoragePublicBase)
	if err != nil {
		return err
	}
	uploader, err := storage.NewUploader(storage.UploaderConfig{
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Verifier:        verifier,
		Users:           userService,
		Catalog:         catalogService,
		Access:          evaluator,
		Billing:         billingService,
		Uploader:        uploader,
		Events:          server.NewContentEventDispatcher(),
		StaticDirectory: store.Directory(),
		StaticBasePath:  appConfig.StoragePublicBase,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
