package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"payadmin/internal/db"
	"payadmin/internal/domain/approval"
	"payadmin/internal/domain/audit"
	"payadmin/internal/domain/auth"
	"payadmin/internal/domain/core"
	"payadmin/internal/domain/deduction"
	"payadmin/internal/domain/payrun"
	"payadmin/internal/platform/config"
	"payadmin/internal/platform/crypto"
	platformdb "payadmin/internal/platform/db"
	"payadmin/internal/platform/jobs"
	"payadmin/internal/platform/metrics"
	"payadmin/internal/transport/http/api"
	approvalhandler "payadmin/internal/transport/http/handlers/approval"
	audithandler "payadmin/internal/transport/http/handlers/audit"
	authhandler "payadmin/internal/transport/http/handlers/auth"
	corehandler "payadmin/internal/transport/http/handlers/core"
	jurisdictionhandler "payadmin/internal/transport/http/handlers/jurisdiction"
	payrunhandler "payadmin/internal/transport/http/handlers/payrun"
	"payadmin/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := platformdb.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	rules, err := loadRules(cfg)
	if err != nil {
		log.Fatalf("deduction rules invalid: %v", err)
	}

	crypt, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		log.Fatalf("encryption key invalid: %v", err)
	}

	collector := metrics.New()
	auditSvc := audit.New(pool)
	authStore := auth.NewStore(pool)
	authSvc := auth.NewService(authStore, cfg.JWTSecret, cfg.TokenTTL)
	coreStore := core.NewStore(pool)

	approvalStore := approval.NewStore(pool)
	approvalSvc := approval.NewService(approvalStore)
	approvalSvc.Audit = auditSvc

	payrunStore := payrun.NewStore(pool)
	payrunSvc := payrun.NewService(payrunStore, coreStore, rules, crypt, approvalSvc)
	renderer := payrun.NewPayslipRenderer(cfg.PayslipDir, payrunStore, coreStore, crypt)

	jobsSvc := jobs.New(pool)
	jobsSvc.Start(ctx)

	// Payslips render off the request path once the final approval lands.
	approvalSvc.OnPayrunApproved = func(ctx context.Context, tenantID, payrunID string) {
		jobsSvc.Enqueue(jobs.JobPayslipBatch, tenantID, func(jobCtx context.Context) (any, error) {
			rendered, err := renderer.RenderPayrun(jobCtx, tenantID, payrunID)
			for i := 0; i < rendered; i++ {
				collector.PayslipRendered()
			}
			return map[string]any{"payRunId": payrunID, "rendered": rendered}, err
		})
	}

	idemStore := middleware.NewIdempotencyStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(collector))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(authSvc)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Get("/auth/me", authHandler.HandleMe)

		corehandler.NewHandler(coreStore, rules, crypt, authStore).RegisterRoutes(r)
		jurisdictionhandler.NewHandler(rules, authStore).RegisterRoutes(r)
		payrunhandler.NewHandler(payrunSvc, collector, authStore).RegisterRoutes(r)
		approvalhandler.NewHandler(approvalSvc, collector, authStore, idemStore).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, authStore).RegisterRoutes(r)
	})

	slog.Info("payroll server listening", "addr", cfg.Addr, "jurisdictions", rules.Codes())
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// loadRules merges the built-in statutory tables with the optional override
// file. File entries replace built-ins that share a country code.
func loadRules(cfg config.Config) (*deduction.Registry, error) {
	sets := [][]deduction.JurisdictionSet{deduction.Builtin()}
	if cfg.RulesFile != "" {
		fromFile, err := deduction.LoadFile(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		sets = append(sets, fromFile)
	}
	return deduction.NewRegistry(sets...)
}
