package routes

import (
	"time"

	"courtwise/handlers"
	"courtwise/middleware"
	"courtwise/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterSessionRoutes registers session issuance and the session state read.
func RegisterSessionRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	r.POST("/api/session", hb.Session.IssueSessionHandler)
	r.GET("/api/session", auth, hb.Session.GetSessionHandler)
}

// RegisterAuthRoutes registers login, signup, logout and token refresh.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	api := r.Group("/api/auth")
	{
		api.Use(auth)
		api.POST("/login", hb.Auth.LoginHandler)
		api.POST("/signup", hb.Auth.SignupHandler)
		api.POST("/logout", hb.Auth.LogoutHandler)
		api.POST("/refresh", hb.Auth.RefreshHandler)
	}
}

// RegisterCaseRoutes registers the catalogue, gated case content, notes and search.
func RegisterCaseRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	api := r.Group("/api")
	{
		api.Use(auth)
		api.GET("/cases", hb.Cases.ListCasesHandler)
		api.GET("/cases/:id", hb.Cases.GetCaseHandler)
		api.GET("/cases/:id/download", hb.Cases.DownloadCaseHandler)
		api.GET("/cases/:id/notes", hb.Cases.ListNotesHandler)
		api.POST("/cases/:id/notes", hb.Cases.AddNoteHandler)
		api.PUT("/cases/:id/notes/:noteID", hb.Cases.UpdateNoteHandler)
		api.DELETE("/cases/:id/notes/:noteID", hb.Cases.DeleteNoteHandler)
		api.GET("/search", hb.Cases.SearchHandler)
	}
}

// RegisterProfileRoutes registers profile read, edit and avatar upload.
func RegisterProfileRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	api := r.Group("/api/profile")
	{
		api.Use(auth)
		api.GET("", hb.Profile.GetProfileHandler)
		api.PUT("", hb.Profile.UpdateProfileHandler)
		api.POST("/avatar", hb.Profile.UploadAvatarHandler)
	}
}

// RegisterSubscriptionRoutes registers the payment endpoints and the plan list.
func RegisterSubscriptionRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	api := r.Group("/api/subscription")
	{
		api.Use(auth)
		api.POST("/checkout", hb.Subscription.CheckoutHandler)
		api.POST("/portal", hb.Subscription.PortalHandler)
		api.POST("/check", hb.Subscription.CheckHandler)
	}
	r.GET("/api/plans", auth, hb.Subscription.PlansHandler)
}

// RegisterNewsRoutes registers the news feed.
func RegisterNewsRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	r.GET("/api/news", auth, hb.News.LatestNewsHandler)
}

// RegisterOpsRoutes registers the health check and the metrics endpoint.
func RegisterOpsRoutes(r *gin.Engine, hb *handlers.HandlerBundle, metrics *utils.Metrics) {
	r.GET("/health", hb.Health.HealthHandler)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, sessions middleware.SessionGetter, metrics *utils.Metrics, origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           12 * time.Hour,
	}))

	auth := middleware.SessionAuthMiddleware(sessions)
	RegisterSessionRoutes(r, hb, auth)
	RegisterAuthRoutes(r, hb, auth)
	RegisterCaseRoutes(r, hb, auth)
	RegisterProfileRoutes(r, hb, auth)
	RegisterSubscriptionRoutes(r, hb, auth)
	RegisterNewsRoutes(r, hb, auth)
	RegisterOpsRoutes(r, hb, metrics)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
