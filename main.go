package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "libdesk/docs"
	"libdesk/internal/borrowing"
	"libdesk/internal/catalog"
	"libdesk/internal/dashboard"
	"libdesk/internal/libapi"
	"libdesk/internal/membership"
	"libdesk/internal/platform/auth"
	"libdesk/internal/platform/db"
	"libdesk/internal/platform/logging"
	"libdesk/internal/platform/requestid"
	"libdesk/internal/reconcile"
)

// @title        libdesk API
// @version      1.0
// @description  Librarian desk: catalog, members, borrowing ledger.
// @BasePath     /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app is the backend-facing half of the desk, shared by serve and the CLI
// commands.
type app struct {
	cfg     *db.Config
	client  *libapi.Client
	books   *catalog.Service
	members *membership.Service
	forms   *borrowing.Forms
	ledger  *borrowing.Ledger
}

func newApp(cfg *db.Config, journal borrowing.Journal) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	client := libapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout, loc)
	books := catalog.NewService(catalog.NewStore(client), client, loc)
	members := membership.NewService(membership.NewStore(client), client)
	forms := borrowing.NewForms(cfg.Auth.SessionTTL)

	ledger := borrowing.NewLedger(borrowing.Deps{
		API:     client,
		Books:   books,
		Members: members,
		Journal: journal,
		Forms:   forms,
		Policy: borrowing.Policy{
			LoanDays:        cfg.Ledger.LoanDays,
			FinePerDay:      cfg.Ledger.Fine(),
			Currency:        cfg.Ledger.CurrencySymbol,
			RestockOnReturn: cfg.Ledger.RestockOnReturn,
		},
		Location: loc,
	})
	// 貸出・返却のあとは在庫表示を取り直す
	ledger.OnChanged(func(ctx context.Context) {
		if err := books.Refresh(ctx); err != nil {
			logging.FromContext(ctx).Warn("catalog refresh after ledger change failed", "err", err)
		}
	})

	return &app{cfg: cfg, client: client, books: books, members: members, forms: forms, ledger: ledger}, nil
}

func runServe(ctx context.Context, configPath string) error {
	// 設定読み込み
	cfg, err := db.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := logging.InitLogger(cfg.LogLevel)
	logger.Info("starting libdesk", "mode", cfg.Mode, "version", cfg.Version, "backend", cfg.API.BaseURL)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := reconcile.Migrate(ctx, conn, cfg.DB.Driver); err != nil {
		return err
	}
	logger.Info("journal database ready", "driver", cfg.DB.Driver)

	journal := reconcile.NewService(conn)
	a, err := newApp(cfg, journal)
	if err != nil {
		return err
	}

	sessions, closeSessions, err := sessionStore(ctx, cfg.Auth)
	if err != nil {
		return err
	}
	defer closeSessions()
	authSvc := auth.NewService(a.client, sessions, []byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)
	authSvc.OnLogout(a.forms.Drop)

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestid.Middleware(), requestid.AccessLog())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", requestid.Header},
			ExposeHeaders:    []string{"Content-Length", "Location", requestid.Header},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		if err := conn.PingContext(c.Request.Context()); err != nil {
			c.String(http.StatusServiceUnavailable, "journal database unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterPublicRoutes(api, authSvc)

	protected := api.Group("")
	protected.Use(auth.RequireAuth(authSvc))
	auth.RegisterRoutes(protected, authSvc)
	catalog.RegisterRoutes(protected, a.books)
	membership.RegisterRoutes(protected, a.members)
	borrowing.RegisterRoutes(protected, a.ledger)
	reconcile.RegisterRoutes(protected, journal)
	dashboard.RegisterRoutes(protected, dashboard.NewService(a.books, a.members, a.ledger))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	certFile, keyFile := certPaths(cfg)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if certFile != "" {
			logger.Info("listening", "addr", "https://0.0.0.0:"+cfg.Port)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			logger.Info("listening", "addr", "http://0.0.0.0:"+cfg.Port)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// certPaths follows config/tls/<mode>/<file>. No certificate means plain HTTP.
func certPaths(cfg *db.Config) (string, string) {
	if cfg.Certificate.Cert == "" || cfg.Certificate.Key == "" {
		return "", ""
	}
	return fmt.Sprintf("config/tls/%s/%s", cfg.Mode, cfg.Certificate.Cert),
		fmt.Sprintf("config/tls/%s/%s", cfg.Mode, cfg.Certificate.Key)
}

// sessionStore uses Redis when configured and falls back to process memory.
func sessionStore(ctx context.Context, c db.AuthConfig) (auth.SessionStore, func() error, error) {
	if c.RedisAddr == "" {
		slog.Warn("auth.redisAddr not set, revoked sessions are kept in memory")
		return auth.NewMemoryStore(), func() error { return nil }, nil
	}
	rs := auth.NewRedisSessionStore(c.RedisAddr, c.RedisPassword)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rs.Ping(pctx); err != nil {
		rs.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", c.RedisAddr, err)
	}
	return rs, rs.Close, nil
}
