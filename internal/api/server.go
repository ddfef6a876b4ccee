// Package api exposes the attendance service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"attendly/internal/auth"
	"attendly/internal/httpmiddleware"
	"attendly/internal/metrics"
)

// HealthFunc reports the status of one dependency.
type HealthFunc func(ctx context.Context) bool

// RouterOptions configures NewRouter. Health checks are keyed by dependency
// name and reported on /healthz.
type RouterOptions struct {
	RateLimitPerMin int
	Health          map[string]HealthFunc
	Logger          *zap.Logger
}

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = h.log
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(log, "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "token"},
		ExposeHeaders:   []string{"Content-Disposition", "Retry-After"},
		MaxAge:          24 * time.Hour,
	}))
	r.Use(securityHeaders())
	if opts.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin).Middleware())
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", healthz(opts.Health))

	v1 := r.Group("/v1")
	v1.POST("/teachers/register", h.RegisterTeacher)
	v1.POST("/teachers/login", h.LoginTeacher)
	v1.POST("/students/register", h.RegisterStudent)
	v1.POST("/students/login", h.LoginStudent)
	v1.POST("/auth/refresh", h.Refresh)

	teacher := v1.Group("/courses", auth.Bearer(h.signer), auth.RequireRole(auth.RoleTeacher))
	teacher.POST("", h.CreateCourse)
	teacher.GET("", h.ListCourses)

	course := teacher.Group("/:code", h.requireOwnedCourse)
	course.POST("/students", h.Enroll)
	course.GET("/students/:roll/history", h.StudentHistory)
	course.POST("/attendance", h.Mark)
	course.GET("/attendance/:date", h.DayAttendance)
	course.PUT("/attendance/:date", h.Replace)
	course.DELETE("/attendance/:date", h.Delete)
	course.GET("/attendance/:date/exists", h.Exists)
	course.GET("/summary", h.Summary)
	course.GET("/statistics", h.Statistics)
	course.GET("/report", h.Report)
	course.GET("/report.xlsx", h.ReportFile)

	me := v1.Group("/me", auth.Bearer(h.signer), auth.RequireRole(auth.RoleStudent))
	me.GET("/courses", h.MyCourses)
	me.GET("/courses/:code/history", h.MyHistory)

	return r
}

func healthz(checks map[string]HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		status := http.StatusOK
		for name, check := range checks {
			ok := check(c.Request.Context())
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		// HSTS only in release mode
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
