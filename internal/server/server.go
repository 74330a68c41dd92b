// Package server wires the HTTP surface: invoicing, tax rules, the
// consent ledger, compliance views, and DSAR handling.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	"github.com/nexuscore/nexuscore/internal/clock"
	"github.com/nexuscore/nexuscore/internal/config"
	consentdomain "github.com/nexuscore/nexuscore/internal/consent/domain"
	dsardomain "github.com/nexuscore/nexuscore/internal/dsar/domain"
	"github.com/nexuscore/nexuscore/internal/idempotency"
	idempotencydomain "github.com/nexuscore/nexuscore/internal/idempotency/domain"
	invoicedomain "github.com/nexuscore/nexuscore/internal/invoice/domain"
	"github.com/nexuscore/nexuscore/internal/observability"
	"github.com/nexuscore/nexuscore/internal/observability/logger"
	obsmetrics "github.com/nexuscore/nexuscore/internal/observability/metrics"
	"github.com/nexuscore/nexuscore/internal/observability/tracing"
	retentiondomain "github.com/nexuscore/nexuscore/internal/retention/domain"
	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type RouterParams struct {
	fx.In

	Cfg         config.Config
	ObsCfg      observability.Config
	Log         *zap.Logger
	HTTPMetrics *obsmetrics.HTTPMetrics
	Clock       clock.Clock

	Tax         taxdomain.Service
	Invoice     invoicedomain.Service
	Consent     consentdomain.Service
	Retention   retentiondomain.Service
	DSAR        dsardomain.Service
	Idempotency idempotencydomain.Service
	Audit       auditdomain.Service
}

func NewEngine(p RouterParams) *gin.Engine {
	if !p.ObsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		tracing.GinMiddleware(),
		logger.GinMiddleware(logger.MiddlewareConfig{
			Debug:           p.ObsCfg.Debug(),
			ErrorClassifier: classifyError,
		}),
		obsmetrics.GinMiddleware(p.HTTPMetrics),
		ErrorHandler(),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": p.Cfg.AppName,
			"version": p.Cfg.AppVersion,
		})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	(&invoiceHandler{
		svc:  p.Invoice,
		idem: idempotency.GinMiddleware(p.Idempotency),
	}).register(api)
	(&taxRuleHandler{svc: p.Tax}).register(api)
	(&consentHandler{svc: p.Consent}).register(api)
	(&complianceHandler{
		consent:   p.Consent,
		retention: p.Retention,
		audit:     p.Audit,
		clock:     p.Clock,
	}).register(api)
	(&dsarHandler{svc: p.DSAR}).register(api)

	return engine
}

func run(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Invoke(run),
)
