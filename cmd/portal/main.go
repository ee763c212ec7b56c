package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/Spok95/ops-portal/internal/auth"
	"github.com/Spok95/ops-portal/internal/config"
	"github.com/Spok95/ops-portal/internal/domain/auditlog"
	"github.com/Spok95/ops-portal/internal/domain/brands"
	"github.com/Spok95/ops-portal/internal/domain/collections"
	"github.com/Spok95/ops-portal/internal/domain/customers"
	"github.com/Spok95/ops-portal/internal/domain/deliveries"
	"github.com/Spok95/ops-portal/internal/domain/inventory"
	"github.com/Spok95/ops-portal/internal/domain/products"
	"github.com/Spok95/ops-portal/internal/domain/removalists"
	"github.com/Spok95/ops-portal/internal/domain/users"
	"github.com/Spok95/ops-portal/internal/domain/waitlist"
	"github.com/Spok95/ops-portal/internal/domain/workorders"
	"github.com/Spok95/ops-portal/internal/handler"
	"github.com/Spok95/ops-portal/internal/infra/db"
	httpx "github.com/Spok95/ops-portal/internal/infra/http"
	"github.com/Spok95/ops-portal/internal/infra/logger"
	"github.com/Spok95/ops-portal/internal/infra/notify"
	"github.com/Spok95/ops-portal/internal/infra/session"
	"github.com/Spok95/ops-portal/migrations"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	goose.SetBaseFS(migrations.FS)
	return goose.Up(sqlDB, ".")
}

func configPath() string {
	if p := os.Getenv("PORTAL_CONFIG"); p != "" {
		return p
	}
	return "config/example.yaml"
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	rdb, err := session.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("redis connect failed", "err", err)
		return
	}
	defer func() { _ = rdb.Close() }()

	var notifier interface {
		workorders.Notifier
		deliveries.Notifier
	} = notify.Noop{}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
		if err != nil {
			log.Warn("telegram disabled", "err", err)
		} else {
			notifier = tg
		}
	}

	userRepo := users.NewRepo(pool)
	authSvc := auth.NewService(userRepo, session.New(rdb), auditlog.NewRepo(pool), cfg.JWT.Secret, cfg.JWT.TTL, log)

	woSvc := workorders.NewService(workorders.NewPgStore(pool),
		workorders.WithNotifier(notifier),
		workorders.WithLogger(log),
		workorders.WithLocation(cfg.Location()),
	)

	h := &handler.Handlers{
		Log:         log,
		Auth:        authSvc,
		Workorders:  woSvc,
		Customers:   customers.NewRepo(pool),
		Products:    products.NewRepo(pool),
		Brands:      brands.NewRepo(pool),
		Waitlist:    waitlist.NewRepo(pool),
		Users:       userRepo,
		Deliveries:  deliveries.NewService(pool, notifier, log),
		Collections: collections.NewRepo(pool),
		Removalists: removalists.NewRepo(pool),
		StockTake:   inventory.NewTaker(pool),
	}

	engine := httpx.NewEngine(log, cfg.Metrics.Enabled)
	h.Register(engine)

	srv := httpx.New(cfg.HTTP.Addr, engine)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}

