package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slot-service/internal/logging"
)

// RouterOptions configures the middleware around the API.
type RouterOptions struct {
	JWTSecret       string
	StaticTokens    string
	RateLimitPerMin int
	CORSOrigins     []string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(a *App, opts RouterOptions) *gin.Engine {
	log := a.logger()

	router := gin.New()
	router.Use(Recovery(log), logging.GinLogger(log), CORS(opts.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/api")
	api.Use(AuthMiddleware(opts.JWTSecret, opts.StaticTokens), RateLimit(opts.RateLimitPerMin, log))
	a.Register(api)

	log.Debug("routes registered", zap.Int("count", len(router.Routes())))
	return router
}

// Register adds the API routes to an authenticated group.
func (a *App) Register(api *gin.RouterGroup) {
	admin := RequireAdmin()

	slots := api.Group("/slots")
	{
		slots.GET("/range", a.ListSlotsRangeHandler)
		slots.POST("/apply-template", admin, a.ApplyTemplateHandler)
		slots.POST("/blackout", admin, a.BlackoutSlotsHandler)
		slots.POST("/bulk", admin, a.BulkCreateSlotsHandler)
		slots.PATCH("/:id", admin, a.PatchSlotHandler)
	}

	templates := api.Group("/templates")
	{
		templates.GET("", a.ListTemplatesHandler)
		templates.GET("/:id", a.GetTemplateHandler)
		templates.POST("", admin, a.CreateTemplateHandler)
		templates.PUT("/:id", admin, a.UpdateTemplateHandler)
		templates.DELETE("/:id", admin, a.DeleteTemplateHandler)
		templates.POST("/:id/blackouts/google", admin, a.ImportGoogleBlackoutsHandler)
	}

	// Google Calendar integration routes
	calendar := api.Group("/calendar")
	{
		calendar.GET("/auth", admin, a.GoogleAuthHandler)
		calendar.GET("/calendars", admin, a.GetGoogleCalendarList)
	}
}
