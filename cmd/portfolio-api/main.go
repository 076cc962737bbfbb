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

	"github.com/MarcoPoloResearchLab/portfolio/internal/auth"
	"github.com/MarcoPoloResearchLab/portfolio/internal/blob"
	"github.com/MarcoPoloResearchLab/portfolio/internal/cache"
	"github.com/MarcoPoloResearchLab/portfolio/internal/config"
	"github.com/MarcoPoloResearchLab/portfolio/internal/content"
	"github.com/MarcoPoloResearchLab/portfolio/internal/database"
	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	"github.com/MarcoPoloResearchLab/portfolio/internal/logging"
	"github.com/MarcoPoloResearchLab/portfolio/internal/server"
	"github.com/MarcoPoloResearchLab/portfolio/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	seedFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portfolio-api",
		Short: "Portfolio content and admin API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load portfolio content from a YAML file into empty collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), seedFile)
		},
	}
	seedCmd.Flags().StringVar(&seedFile, "file", "", "Path to the YAML content file")
	if err := seedCmd.MarkFlagRequired("file"); err != nil {
		panic(err)
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(seedCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().Int("session-ttl-minutes", defaults.GetInt("session.ttl_minutes"), "Admin session TTL in minutes")
	cmd.PersistentFlags().String("admin-emails", defaults.GetString("admin.emails"), "Comma separated admin email addresses")
	cmd.PersistentFlags().String("blob-driver", defaults.GetString("blob.driver"), "Blob storage driver (fs, s3)")
	cmd.PersistentFlags().String("blob-fs-root", defaults.GetString("blob.fs_root"), "Directory for the fs blob driver")
	cmd.PersistentFlags().Int("cache-ttl-minutes", defaults.GetInt("cache.ttl_minutes"), "Query cache retention in minutes")
	cmd.PersistentFlags().String("cors-allowed-origins", defaults.GetString("cors.allowed_origins"), "Comma separated CORS origins")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "session.signing_secret", "signing-secret")
	bindFlag(cmd, "session.ttl_minutes", "session-ttl-minutes")
	bindFlag(cmd, "admin.emails", "admin-emails")
	bindFlag(cmd, "blob.driver", "blob-driver")
	bindFlag(cmd, "blob.fs_root", "blob-fs-root")
	bindFlag(cmd, "cache.ttl_minutes", "cache-ttl-minutes")
	bindFlag(cmd, "cors.allowed_origins", "cors-allowed-origins")
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

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	idProvider := ids.NewUUIDProvider()
	blobs, err := newBlobStore(ctx, appConfig, idProvider)
	if err != nil {
		return err
	}
	mailer, err := newMailer(appConfig, logger)
	if err != nil {
		return err
	}

	repository, err := content.NewRepository(content.RepositoryConfig{
		Database:   db,
		IDProvider: idProvider,
		Blobs:      blobs,
		Cache:      cache.New(cache.Config{TTL: appConfig.CacheTTL}),
		Mailer:     mailer,
		OwnerEmail: appConfig.OwnerEmail,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	passcodes, err := auth.NewPasscodeService(auth.PasscodeConfig{
		Database:      db,
		Mailer:        mailer,
		AllowedEmails: appConfig.AdminEmails,
		Clock:         time.Now,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SessionSigningSecret),
		TokenTTL:      appConfig.SessionTTL,
	})
	if err != nil {
		return err
	}
	sessionValidator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.SessionSigningSecret),
		CookieName:    appConfig.SessionCookieName,
	})
	if err != nil {
		return err
	}

	accounts, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Clock:      time.Now,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Content:        repository,
		Passcodes:      passcodes,
		Tokens:         tokenIssuer,
		Sessions:       sessionValidator,
		Accounts:       accounts,
		Realtime:       server.NewRealtimeDispatcher(),
		IDProvider:     idProvider,
		AllowedOrigins: appConfig.CORSAllowedOrigins,
		CookieSecure:   appConfig.SessionCookieSecure,
		EditorIdleTTL:  appConfig.EditorIdleTTL,
		Clock:          time.Now,
		Logger:         logger,
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
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("blob_driver", string(blobs.Driver())))
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

func runSeed(ctx context.Context, path string) error {
	appConfig, err := config.LoadSeed(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	document, err := content.DecodeSeed(file)
	if err != nil {
		return err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	repository, err := content.NewRepository(content.RepositoryConfig{
		Database: db,
		// Seeded records reference icons by URL; nothing is uploaded.
		Blobs:  blob.NewMemory(""),
		Logger: logger,
	})
	if err != nil {
		return err
	}
	report, err := repository.Seed(ctx, document)
	if err != nil {
		return err
	}
	for collection, created := range report.Created {
		fmt.Printf("%s: created %d\n", collection, created)
	}
	for _, skipped := range report.Skipped {
		fmt.Printf("%s: skipped (not empty)\n", skipped)
	}
	return nil
}
