package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/hospitality/internal/config"
	"github.com/smallbiznis/hospitality/internal/observability/logger"
	"github.com/smallbiznis/hospitality/internal/observability/metrics"
	"github.com/smallbiznis/hospitality/internal/observability/tracing"
	rewardsdomain "github.com/smallbiznis/hospitality/internal/rewards/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var publicPaths = []string{"/healthz", "/metrics"}

type ServerParam struct {
	fx.In

	Engine       *gin.Engine
	Config       config.Config
	Log          *zap.Logger
	RewardsSvc   rewardsdomain.Service
	PromotionSvc rewardsdomain.PromotionService
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	rewardsSvc     rewardsdomain.Service
	promotionSvc   rewardsdomain.PromotionService
	refreshLimiter *rateLimiter
}

type EngineParam struct {
	fx.In

	Config      config.Config
	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

func NewEngine(p EngineParam) *gin.Engine {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "X-Request-Id"},
		ExposeHeaders:   []string{"Content-Length", "Content-Disposition", "X-Request-Id"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(tracing.GinMiddleware(p.Config.AppName))
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{SkipPaths: publicPaths}))
	r.Use(metrics.GinMiddleware(p.HTTPMetrics))
	return r
}

func NewServer(p ServerParam) *Server {
	return &Server{
		engine: p.Engine,
		cfg:    p.Config,
		log:    p.Log.Named("http.server"),

		rewardsSvc:     p.RewardsSvc,
		promotionSvc:   p.PromotionSvc,
		refreshLimiter: newRateLimiter(p.Config.Server.RefreshRateLimit, p.Config.Server.RefreshRateWindow),
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")

	rewards := api.Group("/rewards")
	rewards.POST("/refresh", s.refreshRateLimit(), s.RefreshRewards)
	rewards.GET("/summary", s.GetRewardsSummary)
	rewards.GET("/customers", s.ListRewardRecords)
	rewards.GET("/customers/:id", s.GetRewardRecord)
	rewards.POST("/evaluate", s.EvaluateRewards)

	api.GET("/promotions", s.ListPromotions)
	api.POST("/promotions", s.CreatePromotion)
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) refreshRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.refreshLimiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func RunHTTP(lc fx.Lifecycle, s *Server) {
	port := strings.TrimSpace(s.cfg.Server.Port)
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			listener, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
