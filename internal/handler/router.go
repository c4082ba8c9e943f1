package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cafesync/internal/handler/api"
	"cafesync/internal/handler/middleware"
	"cafesync/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, cfg config.Config, ordersHandler *api.OrdersHandler, streamHandler *api.StreamHandler) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, ordersHandler, streamHandler)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.NewLogger(cfg.Log).LoggingMiddleware())
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, ordersHandler *api.OrdersHandler, streamHandler *api.StreamHandler) {
	engine.GET("/health", healthCheck)

	apiGroup := engine.Group("/api")
	{
		orders := apiGroup.Group("/orders")
		{
			addRoutes(orders, []route{
				{Method: http.MethodGet, Path: "", Handler: ordersHandler.ListOrders},
				{Method: http.MethodGet, Path: "/:id", Handler: ordersHandler.GetOrder},
				{Method: http.MethodPut, Path: "/:id/status", Handler: ordersHandler.ChangeStatus},
				{Method: http.MethodPost, Path: "/:id/verify-payment", Handler: ordersHandler.VerifyPayment},
			})
		}

		addRoutes(apiGroup, []route{
			{Method: http.MethodGet, Path: "/events/:room", Handler: streamHandler.StreamEvents},
		})
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
