package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"tutor-booking/internal/handler/api"
	"tutor-booking/internal/handler/middleware"
	"tutor-booking/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type Handlers struct {
	Booking *api.BookingHandler
	WS      *api.WSHandler
}

func NewRouter(engine *gin.Engine, cfg config.Config, h Handlers, authMiddleware *middleware.AuthMiddleware, limiter *middleware.RateLimiter) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, h, authMiddleware, limiter)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.TracingMiddleware())
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware, limiter *middleware.RateLimiter) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	apiGroup.Use(authMiddleware.RequireAuth())
	{
		throttled := []gin.HandlerFunc{limiter.Middleware()}

		bookings := apiGroup.Group("/bookings")
		addRoutes(bookings, []route{
			{Method: http.MethodPost, Path: "", Handler: h.Booking.Create, Mw: throttled},
			{Method: http.MethodGet, Path: "", Handler: h.Booking.List},
			{Method: http.MethodGet, Path: "/:id", Handler: h.Booking.Get},
			{Method: http.MethodPost, Path: "/:id/respond", Handler: h.Booking.Respond},
			{Method: http.MethodPost, Path: "/:id/cancel", Handler: h.Booking.Cancel},
			{Method: http.MethodPost, Path: "/:id/complete", Handler: h.Booking.Complete},
			{Method: http.MethodPost, Path: "/:id/messages", Handler: h.Booking.SendMessage, Mw: throttled},
			{Method: http.MethodPost, Path: "/:id/messages/read", Handler: h.Booking.MarkRead},
			{Method: http.MethodGet, Path: "/:id/review-eligibility", Handler: h.Booking.ReviewEligibility},
		})

		addRoutes(apiGroup, []route{
			{Method: http.MethodGet, Path: "/providers/:id/stats", Handler: h.Booking.ProviderStats},
			{Method: http.MethodGet, Path: "/ws", Handler: h.WS.Connect},
		})
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
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
