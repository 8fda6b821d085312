package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"attestor/internal/audit"
	authorityHandler "attestor/internal/authority/handler"
	authorityService "attestor/internal/authority/service"
	authorityStore "attestor/internal/authority/store"
	issuerCache "attestor/internal/issuer/cache"
	issuerHandler "attestor/internal/issuer/handler"
	issuerMetrics "attestor/internal/issuer/metrics"
	issuerService "attestor/internal/issuer/service"
	issuerStore "attestor/internal/issuer/store"
	jwttoken "attestor/internal/jwt_token"
	ledgerHandler "attestor/internal/ledger/handler"
	ledgerMetrics "attestor/internal/ledger/metrics"
	ledgerService "attestor/internal/ledger/service"
	ledgerStore "attestor/internal/ledger/store"
	"attestor/internal/platform/config"
	"attestor/internal/platform/httpserver"
	"attestor/internal/platform/logger"
	redisplatform "attestor/internal/platform/redis"
	"attestor/internal/platform/secrets"
	httptransport "attestor/internal/transport/http"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// main wires stores, services and transport, then runs the server until a
// shutdown signal. Business rules live in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db             *sql.DB
		authStore      authorityService.Store
		regStore       issuerService.Store
		credStore      ledgerService.Store
		auditStore     audit.Store
		auditOutbox    audit.Outbox
		healthChecks   []httptransport.HealthChecker
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		authStore = authorityStore.NewPostgres(db)
		regStore = issuerStore.NewPostgres(db)
		credStore = ledgerStore.NewPostgres(db)
		pgAudit := audit.NewPostgres(db)
		auditStore = pgAudit
		auditOutbox = pgAudit
		healthChecks = append(healthChecks, dbHealth{db})
		log.Info("using postgres storage")
	} else {
		authStore = authorityStore.NewInMemory()
		regStore = issuerStore.NewInMemory()
		credStore = ledgerStore.NewInMemory()
		auditStore = audit.NewInMemoryStore()
		log.Warn("no postgres DSN configured, using in-memory storage")
	}

	auditPublisher := audit.NewPublisher(auditStore)

	authoritySvc := authorityService.New(authStore,
		authorityService.WithLogger(log),
		authorityService.WithAuditPublisher(auditPublisher),
	)

	issuerOpts := []issuerService.Option{
		issuerService.WithLogger(log),
		issuerService.WithAuditPublisher(auditPublisher),
		issuerService.WithMetrics(issuerMetrics.New()),
	}
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		issuerOpts = append(issuerOpts, issuerService.WithCache(
			issuerCache.New(redisClient.Client, cfg.IssuerCacheTTL)))
		healthChecks = append(healthChecks, redisClient)
		log.Info("issuer authorization cache enabled")
	}
	issuerSvc := issuerService.New(regStore, authoritySvc, issuerOpts...)

	ledgerSvc := ledgerService.New(credStore, issuerSvc,
		ledgerService.WithLogger(log),
		ledgerService.WithAuditPublisher(auditPublisher),
		ledgerService.WithMetrics(ledgerMetrics.New()),
	)

	if err := bootstrap(ctx, cfg, authoritySvc, ledgerSvc, log); err != nil {
		return err
	}

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "attestor", "attestor")
	var authHandler *httptransport.AuthHandler
	if cfg.BootstrapSecret != "" {
		secretHash, err := secrets.Hash(cfg.BootstrapSecret)
		if err != nil {
			return err
		}
		authHandler = httptransport.NewAuthHandler(jwtSvc, secretHash, cfg.TokenTTL, log)
	} else {
		log.Warn("no bootstrap secret configured, token exchange disabled")
	}

	authorityH := authorityHandler.New(authoritySvc, log)
	issuerH := issuerHandler.New(issuerSvc, log)
	ledgerH := ledgerHandler.New(ledgerSvc, log)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:    log,
		Validator: jwtSvc,
		Auth:      authHandler,
		Public:    []httptransport.PublicRegistrar{authorityH, issuerH, ledgerH},
		Gated:     []httptransport.Registrar{authorityH, issuerH, ledgerH},
		Health:    healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	if auditOutbox != nil && len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := audit.NewKafkaClient(cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()
		if err := audit.EnsureTopic(ctx, kafkaClient, cfg.Kafka.Topic); err != nil {
			return err
		}
		relay := audit.NewRelay(auditOutbox, kafkaClient, cfg.Kafka.Topic, log)
		g.Go(func() error {
			return relay.Run(gctx)
		})
		log.Info("audit relay started", "topic", cfg.Kafka.Topic)
	}

	g.Go(func() error {
		log.Info("starting attestor", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// bootstrap performs the one-time setup when a bootstrap admin is configured.
// Re-running against an initialized system is a no-op.
func bootstrap(ctx context.Context, cfg config.Server, authoritySvc *authorityService.Service, ledgerSvc *ledgerService.Service, log *slog.Logger) error {
	if cfg.BootstrapAdmin == "" {
		return nil
	}
	admin, err := id.ParseIdentity(cfg.BootstrapAdmin)
	if err != nil {
		return err
	}
	registry := admin
	if cfg.RegistryRef != "" {
		registry, err = id.ParseIdentity(cfg.RegistryRef)
		if err != nil {
			return err
		}
	}

	err = authoritySvc.Initialize(ctx, admin, id.LogicRef(cfg.InitialLogicRef))
	switch {
	case err == nil:
		log.Info("authority initialized", "admin", admin.String())
	case dErrors.Is(err, dErrors.CodeAlreadyInitialized):
	default:
		return err
	}

	err = ledgerSvc.Initialize(ctx, cfg.LedgerName, cfg.LedgerSymbol, registry, admin)
	switch {
	case err == nil:
		log.Info("ledger initialized", "name", cfg.LedgerName)
	case dErrors.Is(err, dErrors.CodeAlreadyInitialized):
	default:
		return err
	}
	return nil
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
