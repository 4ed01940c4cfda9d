package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatwidget/internal/bootstrap"
	"chatwidget/internal/transport/http/handler"
	"chatwidget/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	if app.Config.App.GinMode != "" {
		gin.SetMode(app.Config.App.GinMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(app.Logger),
		middleware.Metrics(),
		gin.Recovery(),
		cors.New(corsConfig(app.Config.CORS.AllowOrigins)),
	)

	healthHandler := handler.NewHealthHandler(app)
	messageHandler := handler.NewMessageHandler(app.ChatService)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	messages := router.Group("/messages")
	messages.GET("", messageHandler.List)
	messages.POST("", middleware.RateLimit(app.Config.RateLimit.CreateRPS, app.Config.RateLimit.CreateBurst), messageHandler.Create)
	messages.PUT("/:id", messageHandler.Update)
	messages.DELETE("/:id", messageHandler.Delete)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// Browsers only honour the wildcards on requests without credentials.
		cfg.AllowAllOrigins = true
		cfg.AllowHeaders = []string{"*"}
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
