// Package api is the HTTP and websocket transport edge: gin handlers
// that parse requests into the gateway's (service, action, params)
// shape, and a websocket handler that fans bus events out to connected
// clients.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trading-core/internal/auth"
	"trading-core/internal/events"
	"trading-core/internal/gateway"
)

const dexUpdateInterval = 5 * time.Second
const sessionSweepInterval = 10 * time.Minute

// Server wires every HTTP and websocket endpoint around one Gateway.
type Server struct {
	Router  *gin.Engine
	Gateway *gateway.Gateway
	Auth    *auth.Service
}

// NewServer builds the middleware stack in the documented order and
// registers every route.
func NewServer(gw *gateway.Gateway, authSvc *auth.Service) *Server {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())
	r.Use(BodyLimitMiddleware())

	s := &Server{Router: r, Gateway: gw, Auth: authSvc}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	apiGroup := s.Router.Group("/api")
	{
		apiGroup.GET("/status", s.getStatus)
		apiGroup.GET("/events", s.AuthMiddleware(), s.getEvents)

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", s.register)
			authGroup.POST("/login", s.login)
		}

		dexGroup := apiGroup.Group("/dex")
		{
			dexGroup.GET("/summary", s.dexSummary)
			dexGroup.GET("/pools", s.dexPools)
			dexGroup.GET("/tokens", s.dexTokens)
			dexGroup.GET("/orderbook", s.dexOrderbook)
			dexGroup.GET("/history", s.OptionalAuthMiddleware(), s.dexHistory)
			dexGroup.GET("/balances", s.AuthMiddleware(), s.dexBalances)
			dexGroup.POST("/swap", s.AuthMiddleware(), s.dexSwap)
			dexGroup.POST("/liquidity", s.AuthMiddleware(), s.dexAddLiquidity)
			dexGroup.POST("/order", s.AuthMiddleware(), s.dexPlaceOrder)
			dexGroup.DELETE("/order/:id", s.AuthMiddleware(), s.dexCancelOrder)
			dexGroup.GET("/pools/:id/history", s.dexPoolHistory)
		}

		marketGroup := apiGroup.Group("/market")
		marketGroup.Use(s.OptionalAuthMiddleware())
		{
			marketGroup.GET("/prices", s.marketPrices)
			marketGroup.GET("/candles", s.marketCandles)
			marketGroup.GET("/orderbook", s.marketOrderbook)
		}

		aiGroup := apiGroup.Group("/ai")
		aiGroup.Use(s.OptionalAuthMiddleware())
		{
			aiGroup.GET("/analyze", s.aiAnalyze)
			aiGroup.GET("/backtest", s.aiBacktest)
			aiGroup.GET("/multi-analyze", s.aiMultiAnalyze)
		}

		exchangeGroup := apiGroup.Group("/exchange")
		exchangeGroup.Use(s.AuthMiddleware())
		{
			exchangeGroup.POST("/order", s.exchangeOrder)
			exchangeGroup.POST("/cancel", s.exchangeCancel)
			exchangeGroup.GET("/balance", s.exchangeBalance)
			exchangeGroup.GET("/orders", s.exchangeOrders)
			exchangeGroup.GET("/history", s.exchangeHistory)
		}

		settingsGroup := apiGroup.Group("/settings/api-keys")
		settingsGroup.Use(s.AuthMiddleware())
		{
			settingsGroup.POST("", s.saveApiKeys)
			settingsGroup.GET("", s.getApiKeys)
			settingsGroup.DELETE("", s.deleteApiKeys)
		}

		autoGroup := apiGroup.Group("/auto")
		autoGroup.Use(s.AuthMiddleware())
		{
			autoGroup.POST("/enable", s.autoEnable)
			autoGroup.POST("/disable", s.autoDisable)
			autoGroup.GET("/status", s.autoStatus)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStatus(c *gin.Context) {
	resp, err := s.Gateway.Route(c.Request.Context(), "dex", "summary", nil, CurrentPrincipal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getEvents(c *gin.Context) {
	limit := 50
	if l, err := parseIntQuery(c, "limit"); err == nil && l > 0 {
		limit = l
	}
	c.JSON(http.StatusOK, gin.H{"events": s.Gateway.Log.Recent(limit)})
}

// Start runs the HTTP server on addr, blocking until it returns (on
// listener error or context-triggered shutdown handled by the caller).
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}

// RunBackgroundTickers starts the synthetic dex_update publisher and
// the expired-session sweep; both stop when ctx is cancelled.
func (s *Server) RunBackgroundTickers(ctx context.Context) {
	go s.runDexUpdateTicker(ctx)
	go s.runSessionSweep(ctx)
}

func (s *Server) runDexUpdateTicker(ctx context.Context) {
	ticker := time.NewTicker(dexUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Gateway.Bus.Publish(events.TopicDexUpdate, s.Gateway.Engine.Pools())
		}
	}
}

func (s *Server) runSessionSweep(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Auth.SweepExpired(ctx); err != nil {
				log.Printf("[AUTH] session sweep failed: %v", err)
			}
		}
	}
}
