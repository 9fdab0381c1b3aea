package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kareemzeiad-ops/kero-feeder/internal/session"
)

type Options struct {
	AllowOrigins []string
	// Registerer and Gatherer back /metrics. Both may be nil.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger
}

type Handler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewRouter(sessions *session.Manager, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{sessions: sessions, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger, newRequestCounter(opts.Registerer)))

	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": len(sessions.IDs())})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/catalog", h.Catalog)
	r.GET("/purposes", h.Purposes)

	s := r.Group("/sessions")
	{
		s.POST("", h.CreateSession)
		s.GET("/:id", h.GetSession)
		s.DELETE("/:id", h.DeleteSession)
		s.PUT("/:id/context", h.SetContext)
		s.POST("/:id/selection", h.Select)
		s.DELETE("/:id/selection/:name", h.Deselect)
		s.POST("/:id/allocate", h.Allocate)
		s.POST("/:id/distribution", h.AddIngredient)
		s.PUT("/:id/distribution/:name", h.SetWeight)
		s.DELETE("/:id/distribution/:name", h.RemoveIngredient)
		s.POST("/:id/custom", h.DefineCustom)
		s.POST("/:id/advice", h.Advise)
		s.POST("/:id/advice/apply", h.ApplyAdvice)
		s.POST("/:id/reset", h.Reset)
	}
	return r
}

func newRequestCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	if reg == nil {
		return nil
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kero_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})
	reg.MustRegister(c)
	return c
}

func requestLogger(logger *slog.Logger, requests *prometheus.CounterVec) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if requests != nil {
			requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		}
		logger.Debug("http_request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
