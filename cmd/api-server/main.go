package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/izzypositivetech-001/IzzyCare/internal/api"
	"github.com/izzypositivetech-001/IzzyCare/internal/appointment"
	"github.com/izzypositivetech-001/IzzyCare/internal/blob"
	"github.com/izzypositivetech-001/IzzyCare/internal/config"
	"github.com/izzypositivetech-001/IzzyCare/internal/db"
	"github.com/izzypositivetech-001/IzzyCare/internal/guard"
	"github.com/izzypositivetech-001/IzzyCare/internal/logging"
	"github.com/izzypositivetech-001/IzzyCare/internal/metrics"
	"github.com/izzypositivetech-001/IzzyCare/internal/notify"
	"github.com/izzypositivetech-001/IzzyCare/internal/patient"
	redisclient "github.com/izzypositivetech-001/IzzyCare/internal/redis"
	"github.com/izzypositivetech-001/IzzyCare/internal/store"
	"github.com/izzypositivetech-001/IzzyCare/internal/view"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg, "api-server")
	slog.SetDefault(log)
	log.Info("api-server starting up", "http_port", cfg.HTTPPort, "store", cfg.StoreDriver, "notify", cfg.Notify.Channel)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Record store
	var backend store.Backend
	var pgPool *pgxpool.Pool
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		if err == nil {
			err = db.EnsureSchema(pgCtx, pgPool)
		}
		cancelPg()
		if err != nil {
			log.Error("postgres setup error", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()
		backend = store.NewPgBackend(pgPool)
		log.Info("connected to Postgres")
	default:
		backend = store.NewMemoryBackend()
		log.Warn("using in-memory record store, data is lost on restart")
	}

	// View cache
	var views view.Cache
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Error("redis connection error", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("error closing redis", "error", err)
			}
		}()
		locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		views = view.NewRedisCache(rdb, locker, cfg.ViewTTL, log)
		log.Info("connected to Redis")
	} else {
		views = view.NewMemoryCache(cfg.ViewTTL)
	}

	// Blob store
	var blobs blob.Store
	if cfg.S3.Enabled() {
		s3Store, err := blob.NewS3(rootCtx, cfg.S3)
		if err != nil {
			log.Error("s3 setup error", "error", err)
			os.Exit(1)
		}
		blobs = s3Store
	} else {
		blobs = blob.NewMemoryStore("local")
		log.Warn("S3 not configured, identification documents are kept in memory")
	}

	patients := patient.NewService(backend, blobs, cfg.S3.Bucket, cfg.DefaultRegion, log)

	// Notifications resolve recipients through the users collection.
	var dispatcher notify.Dispatcher
	switch cfg.Notify.Channel {
	case config.NotifyChannelSMS:
		dispatcher = notify.NewTwilioSMS(cfg.Notify.TwilioAccountSID, cfg.Notify.TwilioAuthToken, cfg.Notify.TwilioFromNumber, patients)
	case config.NotifyChannelEmail:
		n := cfg.Notify
		dispatcher = notify.NewSMTPEmail(n.SMTPHost, n.SMTPPort, n.SMTPUsername, n.SMTPPassword, n.SMTPFrom, cfg.ClinicName+" appointment update", patients)
	default:
		dispatcher = notify.NewNoop(log)
	}

	m := metrics.New()

	engine := appointment.NewEngine(appointment.NewRepository(backend), dispatcher, views, appointment.Options{
		ClinicName:    cfg.ClinicName,
		NotifyTimeout: cfg.Notify.Timeout,
		Observer:      m,
		Logger:        log,
	})

	key := cfg.Admin.EncryptionKey
	if key == "" {
		log.Warn("ADMIN_ENCRYPTION_KEY not set, admin cookies will not survive a restart")
		if key, err = guard.RandomKey(); err != nil {
			log.Error("admin key error", "error", err)
			os.Exit(1)
		}
	}
	codec, err := guard.NewAESCodec(key)
	if err != nil {
		log.Error("admin codec error", "error", err)
		os.Exit(1)
	}
	if cfg.Admin.Passkey == "" {
		log.Warn("ADMIN_PASSKEY not set, admin dashboard is closed")
	}

	router := api.NewRouter(api.RouterConfig{
		Appointments:  engine,
		Patients:      patients,
		Views:         views,
		Guard:         guard.New(codec, cfg.Admin.Passkey, log),
		Health:        api.NewHealthHandler(pgPool, rdb, cfg.Env, version),
		Metrics:       m.Handler(),
		Logger:        log,
		ClinicName:    cfg.ClinicName,
		SecureCookies: !cfg.IsDev(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
