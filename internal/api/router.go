package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/faceauth/internal/api/handlers"
	"github.com/your-org/faceauth/internal/api/ws"
	"github.com/your-org/faceauth/internal/auth"
	"github.com/your-org/faceauth/internal/faceid"
)

type RouterConfig struct {
	APIKey  string
	Service *faceid.Service
	Store   faceid.EmployeeStore
	Tokens  *auth.JWTIssuer
	// Photos and Events are optional; their endpoints answer 404 without them.
	Photos handlers.PhotoReader
	Events handlers.EventLister
	// Hub is optional; /v1/ws is not mounted without it.
	Hub    *ws.Hub
	Checks map[string]handlers.Check
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.New(corsConfig()))

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")

	// Public auth endpoints
	authH := handlers.NewAuthHandler(cfg.Service, cfg.Store)
	v1.POST("/auth/signup", authH.Signup)
	v1.POST("/auth/login/face", authH.LoginFace)
	v1.POST("/auth/login", authH.LoginPassword)

	// Bearer token
	v1.GET("/me", auth.JWTMiddleware(cfg.Tokens), authH.Me)

	// Admin: API key or admin token
	admin := v1.Group("", auth.AdminMiddleware(cfg.APIKey, cfg.Tokens))

	empH := handlers.NewEmployeeHandler(cfg.Service, cfg.Store, cfg.Photos, cfg.Events)
	admin.GET("/employees", empH.List)
	admin.POST("/employees", empH.Create)
	admin.GET("/employees/:id", empH.Get)
	admin.DELETE("/employees/:id", empH.Delete)
	admin.PUT("/employees/:id/face", empH.ReEnroll)
	admin.GET("/employees/:id/photo", empH.Photo)
	admin.GET("/employees/:id/events", empH.Events)

	if cfg.Hub != nil {
		admin.GET("/ws", cfg.Hub.HandleWS)
	}

	return r
}

func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	c.AllowAllOrigins = true
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", "X-API-Key")
	return c
}
