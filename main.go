package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"github.com/vhkhang/authcore/internal/audit"
	"github.com/vhkhang/authcore/internal/auth"
	"github.com/vhkhang/authcore/internal/config"
	"github.com/vhkhang/authcore/internal/crypto"
	"github.com/vhkhang/authcore/internal/handlers/api"
	"github.com/vhkhang/authcore/internal/mail"
	"github.com/vhkhang/authcore/internal/middlewares"
	"github.com/vhkhang/authcore/internal/store"
	"github.com/vhkhang/authcore/internal/tokens"
	"github.com/vhkhang/authcore/internal/twofactor"
	"github.com/vhkhang/authcore/internal/users"
	"github.com/vhkhang/authcore/model"
	"github.com/vhkhang/authcore/params"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

var (
	app       *cli.App
	gitCommit string
	gitDate   string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "authcore - authentication, token lifecycle and threat detection service"
	app.Flags = []cli.Flag{
		configFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
	}
	app.Action = run
}

func mustInitLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func mustInitDatabase(dbConfig config.MySQLConfig) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dbConfig.Dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: dbConfig.TablePrefix,
		},
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if len(dbConfig.ReplicaDsns) > 0 {
		replicas := make([]gorm.Dialector, 0, len(dbConfig.ReplicaDsns))
		for _, dsn := range dbConfig.ReplicaDsns {
			replicas = append(replicas, mysql.Open(dsn))
		}
		// threat-scan aggregation reads can go to replicas
		if err := db.Use(dbresolver.Register(dbresolver.Config{Replicas: replicas})); err != nil {
			slog.Error("Failed to register database replicas", "error", err)
			os.Exit(1)
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		if dbConfig.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
		}
		if dbConfig.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
		}
		if dbConfig.ConnMaxIdleTime > 0 {
			sqlDB.SetConnMaxIdleTime(time.Duration(dbConfig.ConnMaxIdleTime) * time.Second)
		}
		if dbConfig.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Second)
		}
	}

	if err := model.AutoMigrate(db); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}
	return db
}

func mustInitStorage(redisConfig config.RedisConfig) (store.Storage, redis.UniversalClient) {
	if redisConfig.URL == "" {
		slog.Warn("No redis configured, using in-process cache")
		return store.NewMemoryStorage(), nil
	}
	var rdb redis.UniversalClient
	if redisConfig.ClusterMode {
		opts, err := redis.ParseClusterURL(redisConfig.URL)
		if err != nil {
			slog.Error("Invalid redis cluster URL", "error", err)
			os.Exit(1)
		}
		if redisConfig.PoolSize > 0 {
			opts.PoolSize = redisConfig.PoolSize
		}
		rdb = redis.NewClusterClient(opts)
	} else {
		opts, err := redis.ParseURL(redisConfig.URL)
		if err != nil {
			slog.Error("Invalid redis URL", "error", err)
			os.Exit(1)
		}
		if redisConfig.PoolSize > 0 {
			opts.PoolSize = redisConfig.PoolSize
		}
		rdb = redis.NewClient(opts)
	}
	return store.NewRedisStorage(rdb), rdb
}

func mustInitMailSender(mailConfig config.MailConfig) mail.Sender {
	switch mailConfig.Backend {
	case "smtp":
		sender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     mailConfig.SMTP.Host,
			Port:     mailConfig.SMTP.Port,
			Username: mailConfig.SMTP.Username,
			Password: mailConfig.SMTP.Password,
			TLS:      mailConfig.SMTP.TLS,
			CertFile: mailConfig.SMTP.CertFile,
			KeyFile:  mailConfig.SMTP.KeyFile,
			CAFile:   mailConfig.SMTP.CAFile,
		}, mailConfig.From)
		if err != nil {
			slog.Error("Failed to initialize SMTP sender", "error", err)
			os.Exit(1)
		}
		return sender
	default:
		slog.Warn("No mail backend configured, temporary passwords will not be delivered")
		return mail.NopSender{}
	}
}

// runThreatScanLoop drives the only background-scheduled activity: the
// periodic threat scan plus blacklist pruning.
func runThreatScanLoop(ctx context.Context, detector *audit.ThreatDetector, tokenService *tokens.TokenService) {
	ticker := time.NewTicker(params.ThreatScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := detector.Scan(ctx); err != nil {
				slog.Error("Threat scan failed", "error", err)
			}
			if pruned, err := tokenService.PruneExpired(ctx); err != nil {
				slog.Error("Blacklist pruning failed", "error", err)
			} else if pruned > 0 {
				slog.Debug("Pruned expired blacklist entries", "count", pruned)
			}
		}
	}
}

func run(cliCtx *cli.Context) error {
	mustInitLogger(cliCtx.Bool(debugFlag.Name))
	cfg, err := config.LoadConfig(cliCtx.String(configFileFlag.Name))
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	encryptionKey, err := cfg.EncryptionKeyBytes()
	if err != nil {
		return err
	}
	cipher, err := crypto.NewCipher(encryptionKey)
	if err != nil {
		return err
	}

	db := mustInitDatabase(cfg.MySQL)
	storage, rdb := mustInitStorage(cfg.Redis)
	mailSender := mustInitMailSender(cfg.Mail)

	userService := users.NewUserService(
		users.NewUserRepository(db),
		users.NewPasswordHistoryRepository(db),
	)
	tokenService := tokens.NewTokenService(tokens.Config{
		SigningKey:         []byte(cfg.Token.SigningKey),
		Issuer:             cfg.Token.Issuer,
		Audience:           cfg.Token.Audience,
		AccessTokenExpiry:  cfg.Token.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.Token.RefreshTokenExpiry,
	}, tokens.NewRefreshTokenRepository(db), tokens.NewBlacklistRepository(db))
	twoFactorService := twofactor.NewTwoFactorService(
		cfg.Token.Issuer,
		cipher,
		twofactor.NewSettingsRepository(db),
		twofactor.NewRecoveryCodeRepository(db),
		userService,
	)
	recorder := audit.NewRecorder(audit.NewEventRepository(db))
	detector := audit.NewThreatDetector(
		audit.NewEventRepository(db),
		audit.NewThreatRepository(db),
		storage,
	)
	authService := auth.NewAuthService(cfg.Password, userService, twoFactorService, tokenService, recorder, detector, mailSender)

	fiberApp := fiber.New(fiber.Config{
		BodyLimit:             params.ServerBodyLimit,
		IdleTimeout:           params.ServerIdleTimeout,
		ReadTimeout:           params.ServerReadTimeout,
		WriteTimeout:          params.ServerWriteTimeout,
		ErrorHandler:          middlewares.ErrorHandler,
		DisableStartupMessage: true,
	})
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins: joinOrigins(cfg.AllowOrigins),
	}))

	authHandler := api.NewAuthHandler(authService)
	twoFactorHandler := api.NewTwoFactorHandler(twoFactorService, recorder)
	threatHandler := api.NewThreatHandler(detector, recorder)
	requireAuth := api.RequireAuth(tokenService)

	apiGroup := fiberApp.Group("/api")
	apiGroup.Post("/login", authHandler.PostLogin)
	apiGroup.Post("/token/refresh", authHandler.PostRefresh)
	apiGroup.Post("/password/reset", authHandler.PostResetPassword)
	apiGroup.Post("/logout", requireAuth, authHandler.PostLogout)
	apiGroup.Post("/password/change", requireAuth, authHandler.PostChangePassword)
	apiGroup.Post("/2fa/setup", requireAuth, twoFactorHandler.PostSetup)
	apiGroup.Post("/2fa/enable", requireAuth, twoFactorHandler.PostEnable)
	apiGroup.Post("/2fa/disable", requireAuth, twoFactorHandler.PostDisable)
	apiGroup.Post("/2fa/recovery-codes", requireAuth, twoFactorHandler.PostRegenerateRecoveryCodes)
	apiGroup.Get("/threats", requireAuth, threatHandler.GetActiveThreats)
	apiGroup.Post("/threats/:id/resolve", requireAuth, threatHandler.PostResolveThreat)

	scanCtx, cancelScan := context.WithCancel(context.Background())
	defer cancelScan()
	go runThreatScanLoop(scanCtx, detector, tokenService)
	go startHealthCheckServer(params.HealthCheckServerAddr, rdb, db)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("Shutting down")
		cancelScan()
		fiberApp.ShutdownWithTimeout(10 * time.Second)
	}()

	slog.Info("Starting authcore", "listenAddr", cfg.ListenAddr)
	return fiberApp.Listen(cfg.ListenAddr)
}

func joinOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
