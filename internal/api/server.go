package api

import (
	"log/slog"
	"net/http"

	_ "sdi-exam/roster/docs" // register generated Swagger spec

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options controls the environment-dependent parts of the pipeline.
type Options struct {
	// Development exposes the Swagger UI and JSON under /swagger.
	Development  bool
	AllowOrigins []string
	// HTTPSPort enables redirection of plain HTTP requests when > 0.
	HTTPSPort   int
	JWTSecret   string
	ServiceName string
}

// Router wraps a configured Gin engine and exposes it as an http.Handler.
type Router struct {
	engine *gin.Engine
}

// NewRouter constructs a Router with the full middleware chain and all routes
// registered. Middleware order:
//  1. Recovery: panic to 500
//  2. RequestID: X-Request-ID propagation
//  3. OTEL: trace context per request
//  4. RequestLogger: structured request logging
//  5. CORS: preflight answered before any redirect
//  6. HTTPSRedirect
//
// Authorization applies to the character write routes only.
func NewRouter(chars characterService, health healthService, opts Options) *Router {
	engine := gin.New()

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "roster"
	}

	engine.Use(Recovery(slog.Default()))
	engine.Use(RequestID())
	engine.Use(OTEL(serviceName))
	engine.Use(RequestLogger(slog.Default()))
	engine.Use(CORS(opts.AllowOrigins))
	engine.Use(HTTPSRedirect(opts.HTTPSPort))

	h := &Handler{health: health}
	ch := &CharacterHandler{chars: chars}

	engine.GET("/health", h.Health)
	engine.GET("/health/deep", h.DeepHealth)
	engine.GET("/ready", h.Ready)

	api := engine.Group("/api/characters")
	api.GET("", ch.List)
	api.GET("/:id", ch.Get)

	write := api.Group("", Authorization(opts.JWTSecret))
	write.POST("", ch.Create)
	write.PUT("/:id", ch.Update)
	write.DELETE("/:id", ch.Delete)

	if opts.Development {
		engine.GET("/swagger", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return &Router{engine: engine}
}

// Handler returns the underlying http.Handler for use with net/http servers.
func (r *Router) Handler() http.Handler {
	return r.engine
}
