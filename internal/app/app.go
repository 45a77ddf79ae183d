package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glyph-id/glyph/internal/assurance"
	"github.com/glyph-id/glyph/internal/config"
	"github.com/glyph-id/glyph/internal/credential"
	"github.com/glyph-id/glyph/internal/handler"
	"github.com/glyph-id/glyph/internal/repository"
	"github.com/glyph-id/glyph/internal/service"
	"github.com/glyph-id/glyph/internal/trust"
	"github.com/glyph-id/glyph/internal/utils"
	"github.com/glyph-id/glyph/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra         Infrastructure
	config        *config.Config
	router        *gin.Engine
	server        *http.Server
	signalService service.SignalService
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	assuranceCalc := assurance.NewCalculator(assurance.Config{
		LevelBeta:  cfg.Assurance.LevelBeta,
		LevelGamma: cfg.Assurance.LevelGamma,
	})
	trustCalc := trust.NewCalculator(trust.Config{
		HalfLifeDays: cfg.Trust.HalfLifeDays,
		MinFreshness: cfg.Trust.MinFreshness,
	})
	assembler := credential.NewAssembler(assuranceCalc, trustCalc, jwtManager, credential.Policy{
		HalfLifeDays:    cfg.Trust.HalfLifeDays,
		MinFreshness:    cfg.Trust.MinFreshness,
		RetentionDays:   cfg.Trust.RetentionDays,
		ProvenanceLimit: cfg.Trust.ProvenanceLimit,
		RiskTTL:         cfg.Trust.RiskTTL.Duration,
	})

	challengeStore := service.NewChallengeStore(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	userService := service.NewUserService(repos.User, repos.Factor, assuranceCalc, metrics)
	issuerService := service.NewIssuerService(repos.User, repos.Factor, repos.Signal, assembler, jwtManager, metrics)
	signalService := service.NewSignalService(repos.User, repos.Signal, cfg.Trust.RetentionDays, metrics)
	oauthService := service.NewOAuthService(cfg.OAuth)

	webauthnService, err := service.NewWebAuthnService(cfg.WebAuthn, challengeStore)
	if err != nil {
		return nil, err
	}

	oauthHandler := handler.NewOAuthHandler(
		oauthService,
		userService,
		issuerService,
		challengeStore,
		cfg.OAuth.StateTTL.Duration,
		jwtManager.AccessTokenExpirySeconds(),
		jwtManager.RefreshTokenExpirySeconds(),
	)
	webauthnHandler := handler.NewWebAuthnHandler(
		userService,
		issuerService,
		webauthnService,
		jwtManager.AccessTokenExpirySeconds(),
		jwtManager.RefreshTokenExpirySeconds(),
	)
	trustHandler := handler.NewTrustHandler(signalService, issuerService, rateLimiter)
	meHandler := handler.NewMeHandler(userService, assuranceCalc)

	router := gin.Default()
	router.Use(otelgin.Middleware("glyph"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, oauthHandler, webauthnHandler, trustHandler, meHandler, issuerService, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:         infra,
		config:        cfg,
		router:        router,
		server:        srv,
		signalService: signalService,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	oauthHandler *handler.OAuthHandler,
	webauthnHandler *handler.WebAuthnHandler,
	trustHandler *handler.TrustHandler,
	meHandler *handler.MeHandler,
	issuerService service.IssuerService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	rateLimit := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
	)

	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)
	router.GET("/.well-known/openid-configuration", discoveryHandler(cfg))

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			oauth := auth.Group("/oauth")
			{
				oauth.GET("/:provider/login", rateLimit, oauthHandler.Login)
				oauth.GET("/:provider/callback", oauthHandler.Callback)
			}

			webauthn := auth.Group("/webauthn")
			{
				webauthn.POST("/register/start", rateLimit, webauthnHandler.RegisterStart)
				webauthn.POST("/register/finish", webauthnHandler.RegisterFinish)
				webauthn.POST("/authenticate/start", rateLimit, webauthnHandler.AuthenticateStart)
				webauthn.POST("/authenticate/finish", webauthnHandler.AuthenticateFinish)
			}

			auth.POST("/refresh", oauthHandler.Refresh)
		}

		api.POST("/trust/signals", trustHandler.ReportSignal)

		me := api.Group("/me", handler.AuthMiddleware(issuerService))
		{
			me.GET("", meHandler.GetMe)
			me.GET("/trust", trustHandler.GetTrust)
			me.PUT("/trust/consent", trustHandler.UpdateConsent)
		}
	}
}

// discoveryHandler serves a minimal OIDC-style discovery document so
// relying parties can locate the broker's endpoints.
func discoveryHandler(cfg *config.Config) gin.HandlerFunc {
	base := cfg.OAuth.RedirectBase
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"issuer":                                base,
			"token_endpoint":                        base + "/api/v1/auth/refresh",
			"userinfo_endpoint":                     base + "/api/v1/me",
			"response_types_supported":              []string{"token"},
			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{"HS256"},
			"claims_supported": []string{
				"sub", "email", "aegis_assurance", "extensions",
			},
		})
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	go a.runRetentionSweeper(ctx)

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

// runRetentionSweeper deletes trust signals past the retention horizon
// on a fixed interval until the context is cancelled.
func (a *App) runRetentionSweeper(ctx context.Context) {
	interval := a.config.Trust.SweepInterval.Duration
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := a.signalService.SweepExpired(ctx)
			if err != nil {
				a.infra.Logger().Error("Retention sweep failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				a.infra.Logger().Info("Retention sweep removed expired signals",
					zap.Int64("deleted", deleted),
				)
			}
		}
	}
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
