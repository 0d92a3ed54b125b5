package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	authhttp "github.com/lulocustoms/shop/internal/auth/httpserver"
	authrepo "github.com/lulocustoms/shop/internal/auth/repo"
	authsvc "github.com/lulocustoms/shop/internal/auth/service"
	"github.com/lulocustoms/shop/internal/auth/session"
	cataloghttp "github.com/lulocustoms/shop/internal/catalog/httpserver"
	catalogrepo "github.com/lulocustoms/shop/internal/catalog/repo"
	"github.com/lulocustoms/shop/internal/catalog/search"
	catalogsvc "github.com/lulocustoms/shop/internal/catalog/service"
	"github.com/lulocustoms/shop/internal/catalog/storage"
	"github.com/lulocustoms/shop/internal/models"
	"github.com/lulocustoms/shop/internal/notify"
	orderhttp "github.com/lulocustoms/shop/internal/order/httpserver"
	orderrepo "github.com/lulocustoms/shop/internal/order/repo"
	ordersvc "github.com/lulocustoms/shop/internal/order/service"
	paymenthttp "github.com/lulocustoms/shop/internal/payment/httpserver"
	"github.com/lulocustoms/shop/internal/payment/p24"
	paymentrepo "github.com/lulocustoms/shop/internal/payment/repo"
	paymentsvc "github.com/lulocustoms/shop/internal/payment/service"
	router "github.com/lulocustoms/shop/internal/transport/http"
	"github.com/lulocustoms/shop/pkg/config"
	pkgdb "github.com/lulocustoms/shop/pkg/db"
	"github.com/lulocustoms/shop/pkg/events"
	"github.com/lulocustoms/shop/pkg/httpx"
	"github.com/lulocustoms/shop/pkg/logging"
	loggingmw "github.com/lulocustoms/shop/pkg/middleware/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load()
	cfg.MustValid()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, pkgdb.Options{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL})
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
	}

	bootCtx := logging.IntoContext(context.Background(), logger)

	var attempts authsvc.AttemptStore = authsvc.NewMemoryStore(authsvc.LoginAttemptWindow)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url: %v", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(bootCtx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		attempts = authsvc.NewRedisStore(rdb, authsvc.LoginAttemptWindow)
	}

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		publisher = producer
	}

	var images storage.ImageStore = storage.NewLocalStore(cfg.UploadDir, cfg.UploadURL)
	uploadDir := cfg.UploadDir
	if cfg.Minio.Endpoint != "" {
		ms, err := storage.NewMinioStore(bootCtx, storage.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
			PublicURL: cfg.Minio.PublicURL,
		})
		if err != nil {
			log.Fatalf("minio: %v", err)
		}
		images = ms
		uploadDir = ""
	}

	var index catalogsvc.SearchIndex
	if cfg.ESURL != "" {
		idx, err := search.NewESIndex(search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			logger.Warn("elasticsearch_unavailable", "reason", "search falls back to database", "error", err)
		} else {
			index = idx
		}
	}

	var notifier paymentsvc.OrderNotifier
	if cfg.SMTP.Host != "" {
		notifier = notify.NewMailer(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	authService := &authsvc.AuthService{Repo: &authrepo.GormRepo{DB: db}, Attempts: attempts}
	if err := authService.EnsureAdmin(bootCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("admin bootstrap: %v", err)
	}
	if err := os.MkdirAll(cfg.SessionDir, 0o700); err != nil {
		log.Fatalf("session dir: %v", err)
	}
	if n, err := session.Sweep(cfg.SessionDir, cfg.SessionTTL, time.Now()); err != nil {
		logger.Warn("session_sweep_failed", "dir", cfg.SessionDir, "error", err)
	} else if n > 0 {
		logger.Info("session_sweep", "removed", n)
	}
	sessions := session.NewManager(cfg.SessionDir, cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)

	deps := &router.Deps{
		DB:          db,
		AuthHandler: &authhttp.AuthHTTP{Svc: authService, Sessions: sessions},
		ProductHandler: &cataloghttp.CatalogHTTP{
			Svc: &catalogsvc.CatalogService{
				Repo:   &catalogrepo.GormRepo{DB: db},
				Images: images,
				Index:  index,
				Events: publisher,
			},
			Guard: sessions,
		},
		OrderHandler: &orderhttp.OrderHTTP{
			Svc:   &ordersvc.OrderService{Repo: &orderrepo.GormRepo{DB: db}, Events: publisher},
			Guard: sessions,
		},
		PaymentHandler: &paymenthttp.PaymentHTTP{
			Svc: &paymentsvc.PaymentService{
				Repo: &paymentrepo.GormRepo{DB: db},
				Gateway: p24.NewClient(cfg.P24.APIURL, p24.Credentials{
					MerchantID: cfg.P24.MerchantID,
					PosID:      cfg.P24.PosID,
					CRC:        cfg.P24.CRC,
					APIKey:     cfg.P24.APIKey,
				}),
				Settings: paymentsvc.Settings{
					CRC:        cfg.P24.CRC,
					GatewayURL: cfg.P24.GatewayURL,
					ReturnURL:  cfg.P24.ReturnURL,
					StatusURL:  cfg.P24.StatusURL,
				},
				Events:   publisher,
				Notifier: notifier,
			},
		},
		UploadDir: uploadDir,
		UploadURL: cfg.UploadURL,
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.SiteURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit("6M"))

	router.Register(e, deps)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("http_listening", "addr", srv.Addr, "p24_sandbox", cfg.P24.TestMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka_close_failed", "error", err)
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("shop stopped")
}
