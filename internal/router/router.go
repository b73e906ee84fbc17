package router

import (
	"strings"
	"time"

	"github.com/dkhp/registration-backend/internal/config"
	"github.com/dkhp/registration-backend/internal/handler"
	"github.com/dkhp/registration-backend/internal/middleware"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// catalogCacheSeconds is how long admins' browsers may reuse catalog reads.
const catalogCacheSeconds = 30

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Registration *handler.RegistrationHandler
	Course       *handler.CourseHandler
	Subject      *handler.SubjectHandler
	Semester     *handler.SemesterHandler
	Period       *handler.RegistrationPeriodHandler
	Capacity     *handler.CapacityHandler
	System       *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens middleware.TokenValidator,
	enrollLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.AccessLog())
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		Skipper: func(c *gin.Context) bool {
			return strings.HasSuffix(c.Request.URL.Path, "/capacity/stream") ||
				strings.HasPrefix(c.Request.URL.Path, "/ws/")
		},
	}))

	router.GET("/health", handlers.System.Health)

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(tokens), middleware.NoStore())
	{
		studentAPI.POST("/enroll", enrollLimiter.Middleware(), handlers.Registration.Enroll)
		studentAPI.POST("/unenroll", enrollLimiter.Middleware(), handlers.Registration.Unenroll)
		studentAPI.GET("/registrations/history", handlers.Registration.History)

		studentAPI.GET("/periods/current", handlers.Period.Current)
		studentAPI.GET("/courses/opened", handlers.Course.Opened)
		studentAPI.GET("/courses/enrolled", handlers.Course.Enrolled)
		studentAPI.GET("/courses/studied", handlers.Course.Studied)
	}

	// ─── 2. Live capacity (SSE + WebSocket, token via header or ?token=) ─
	router.GET("/api/v1/courses/capacity/stream",
		middleware.RequireStudentJWT(tokens),
		handlers.Capacity.StreamSSE,
	)
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentJWT(tokens))
	{
		ws.GET("/courses/capacity", handlers.Capacity.StreamWS)
	}

	// ─── 3. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(tokens))
	{
		read := middleware.RequirePermission(model.PermissionCatalogRead)
		write := middleware.RequirePermission(model.PermissionCatalogWrite)
		cache := middleware.CacheControl(catalogCacheSeconds)

		courses := adminAPI.Group("/courses")
		{
			courses.GET("", read, cache, handlers.Course.List)
			courses.GET("/:id", read, cache, handlers.Course.GetByID)
			courses.POST("", write, handlers.Course.Create)
			courses.DELETE("/:id", write, handlers.Course.Delete)
		}

		subjects := adminAPI.Group("/subjects")
		{
			subjects.GET("", read, cache, handlers.Subject.GetAll)
			subjects.GET("/:id", read, cache, handlers.Subject.GetByID)
			subjects.POST("", write, handlers.Subject.Create)
			subjects.PUT("/:id", write, handlers.Subject.Update)
			subjects.DELETE("/:id", write, handlers.Subject.Delete)
		}

		semesters := adminAPI.Group("/semesters")
		{
			semesters.GET("", read, cache, handlers.Semester.List)
			semesters.GET("/latest", read, cache, handlers.Semester.ListLatest)
			semesters.POST("", write, handlers.Semester.Create)
			semesters.DELETE("/:id", write, handlers.Semester.Delete)
		}

		periods := adminAPI.Group("/periods")
		periods.Use(middleware.RequirePermission(model.PermissionPeriodsWrite))
		{
			periods.GET("", handlers.Period.List)
			periods.POST("", handlers.Period.Create)
			periods.PUT("/:id", handlers.Period.Update)
			periods.DELETE("/:id", handlers.Period.Delete)
		}

		// Open to all admins
		adminAPI.GET("/system/metrics", handlers.System.MetricsSSE)
	}

	return router
}
