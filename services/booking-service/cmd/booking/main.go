package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/klaus2514/Sportsafari/pkg/config"
	"github.com/klaus2514/Sportsafari/pkg/db"
	"github.com/klaus2514/Sportsafari/pkg/logger"
	"github.com/klaus2514/Sportsafari/pkg/mq"
	"github.com/klaus2514/Sportsafari/pkg/obs"
	cons "github.com/klaus2514/Sportsafari/services/booking-service/internal/consumer"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/handlers"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/idempotency"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/repository"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/server"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/service"
)

var version = "dev"

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	lg := must(logger.ForEnv(cfg.Env, cfg.LogLevel, cfg.LogFormat)).Named("booking")
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := must(obs.InitTracer(ctx, server.ServiceName, version, cfg.Env, cfg.OTLPEndpoint))
	tracing := cfg.OTLPEndpoint != ""

	// DB
	gdb := must(db.Open(cfg.PGBookingDSN, db.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		Tracing:      tracing,
		Log:          lg.Named("gorm"),
	}))
	must(0, repository.Migrate(gdb))
	sqlDB := must(gdb.DB())
	stores := repository.NewStores(gdb)
	scope := repository.NewTxScope(gdb)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts := []service.Option{
		service.WithLogger(lg),
		service.WithMetrics(service.NewMetrics(reg)),
	}

	var pc *cons.PaymentConsumer
	health := map[string]handlers.Pinger{"db": handlers.PingFunc(sqlDB.PingContext)}

	// Messaging is optional; without it events are dropped and payment
	// statuses only change through the API.
	if cfg.RabbitURL != "" {
		pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange, server.ServiceName))
		defer pub.Close()
		opts = append(opts, service.WithPublisher(pub))

		paymentCons := must(mq.NewConsumer(mq.ConsumerConfig{
			URL:      cfg.RabbitURL,
			Exchange: cfg.PaymentExchange,
			Queue:    cfg.PaymentQueue,
			Keys:     cons.PaymentKeys,
			DLX:      cfg.PaymentQueue + ".dlx",
			Tag:      server.ServiceName,
		}))
		defer paymentCons.Close()
		pc = cons.NewPaymentConsumer(scope, paymentCons, lg)
	}

	var idem idempotency.Store
	if cfg.RedisAddr != "" {
		rs := must(idempotency.NewRedisStore(idempotency.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.IdempotencyTTL,
		}))
		defer rs.Close()
		idem = rs
		health["redis"] = rs
	} else {
		lg.Warn("REDIS_ADDR not set, idempotency keys are kept in memory")
		ms := idempotency.NewMemoryStore(cfg.IdempotencyTTL)
		defer ms.Close()
		idem = ms
	}

	bookings := service.NewBookingSvc(scope, opts...)
	grounds := service.NewGroundSvc(scope, stores, opts...)
	views := service.NewViewSvc(stores, opts...)
	auditor := service.NewAuditor(stores, opts...)

	router := must(server.New(server.Deps{
		Log:         lg,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Dev:         cfg.IsDevelopment(),
		Tracing:     tracing,
		Bookings:    bookings,
		Grounds:     grounds,
		Views:       views,
		Idem:        idem,
		Gatherer:    reg,
		Health:      health,
	}))
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		auditor.Run(gctx, cfg.AuditInterval)
		return nil
	})
	if pc != nil {
		g.Go(func() error {
			lg.Info("payment consumer started", zap.Strings("keys", cons.PaymentKeys))
			if err := pc.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		lg.Error("booking service stopped with error", zap.Error(err))
	}
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := shutdownTracer(sctx); err != nil {
		lg.Warn("tracer shutdown", zap.Error(err))
	}
	_ = sqlDB.Close()
	lg.Info("stopped")
}
