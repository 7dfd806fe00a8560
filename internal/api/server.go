// Package api exposes the trade assistant over HTTP: auth, credential
// management, order submission, audit history and a websocket result
// stream.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trade-assistant/internal/advisor"
	"trade-assistant/internal/events"
	"trade-assistant/internal/gateway"
	"trade-assistant/internal/order"
	"trade-assistant/pkg/config"
	"trade-assistant/pkg/db"
	"trade-assistant/pkg/market"
	"trade-assistant/pkg/vault"
)

// OrderService is the order pipeline behind the /api/orders routes.
type OrderService interface {
	Submit(ctx context.Context, userID string, req order.Request) (order.Envelope, error)
	Cancel(ctx context.Context, userID, exchange, symbol, orderID string) error
}

// QuantityAdvisor sizes positions; nil disables the advisor endpoint.
type QuantityAdvisor interface {
	SuggestQuantity(ctx context.Context, symbol string, price, freeBalance float64) (advisor.Suggestion, error)
}

// Server wires the HTTP surface over the core services.
type Server struct {
	router    *gin.Engine
	cfg       *config.Config
	db        *db.Database
	vault     *vault.Vault
	orders    OrderService
	prices    *market.Service
	gateways  *gateway.Factory
	advisor   QuantityAdvisor
	bus       *events.Bus
	jwtSecret string
	log       *logrus.Logger
}

// Deps carries everything a Server needs.
type Deps struct {
	Config   *config.Config
	DB       *db.Database
	Vault    *vault.Vault
	Orders   OrderService
	Prices   *market.Service
	Gateways *gateway.Factory
	Advisor  QuantityAdvisor
	Bus      *events.Bus
	Log      *logrus.Logger
}

// NewServer builds the gin engine with the full middleware stack and
// routes.
func NewServer(d Deps) *Server {
	if d.Log == nil {
		d.Log = logrus.New()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(d.Log))
	r.Use(rateLimit(newIPLimiters()))
	r.Use(cors())

	s := &Server{
		router:    r,
		cfg:       d.Config,
		db:        d.DB,
		vault:     d.Vault,
		orders:    d.Orders,
		prices:    d.Prices,
		gateways:  d.Gateways,
		advisor:   d.Advisor,
		bus:       d.Bus,
		jwtSecret: d.Config.JWTSecret,
		log:       d.Log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/ws", s.websocket)

	api := s.router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
		}

		protected := api.Group("")
		protected.Use(authRequired(s.jwtSecret))
		{
			protected.PUT("/credentials", s.putCredentials)
			protected.GET("/credentials/status", s.credentialsStatus)

			protected.POST("/orders", s.submitOrder)
			protected.DELETE("/orders/:symbol/:orderId", s.cancelOrder)
			protected.GET("/orders/logs", s.listOrderLogs)

			protected.GET("/price/:symbol", s.getPrice)
			protected.POST("/advisor/quantity", s.suggestQuantity)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status": "ok",
		"mode":   string(s.cfg.Mode),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Run blocks serving on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the engine for tests and custom http.Server setups.
func (s *Server) Handler() *gin.Engine {
	return s.router
}
