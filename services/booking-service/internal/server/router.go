package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/klaus2514/Sportsafari/pkg/logger"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/handlers"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/idempotency"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/middlewares"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/service"
)

const ServiceName = "booking-service"

type Deps struct {
	Log         *zap.Logger
	JWTSecret   string
	CORSOrigins []string
	Dev         bool
	Tracing     bool

	Bookings *service.BookingSvc
	Grounds  *service.GroundSvc
	Views    *service.ViewSvc
	Idem     idempotency.Store

	Gatherer prometheus.Gatherer
	Health   map[string]handlers.Pinger
}

// New wires every route onto a fresh engine.
func New(d Deps) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}
	r := gin.New()
	r.Use(logger.RequestID(), logger.Recovery(d.Log))
	if d.Tracing {
		r.Use(otelgin.Middleware(ServiceName))
	}
	r.Use(logger.GinMiddleware(d.Log), middlewares.CORS(middlewares.DefaultCORSConfig(d.CORSOrigins)))

	r.GET("/healthz", handlers.NewHealthHandler(d.Health).Check)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	gh := handlers.NewGroundHandler(d.Grounds, d.Views, d.Dev)
	bh := handlers.NewBookingHandler(d.Bookings, d.Views, d.Idem, d.Dev)
	auth := middlewares.JWTAuth(d.JWTSecret)
	owner := middlewares.RequireRole(domain.RoleOwner)

	v1 := r.Group("/v1")
	{
		grounds := v1.Group("/grounds")
		grounds.GET("", gh.Available)
		grounds.GET("/all", gh.Catalog)
		grounds.GET("/:id", gh.Get)
		grounds.POST("/:id/slots/:slotId/book", auth, bh.BookSlot)

		mine := grounds.Group("", auth, owner)
		mine.POST("", gh.Create)
		mine.GET("/mine", gh.Mine)
		mine.PUT("/:id", gh.Update)
		mine.DELETE("/:id", gh.Delete)

		bookings := v1.Group("/bookings", auth)
		bookings.POST("/book", bh.Book)
		bookings.GET("/my-bookings", bh.Mine)
		bookings.DELETE("/:id", bh.Cancel)

		ob := bookings.Group("", owner)
		ob.PATCH("/:id/status", bh.SetStatus)
		ob.GET("/owner-bookings", bh.OwnerBookings)
		ob.GET("/owner-revenue", bh.OwnerRevenue)
	}
	return r, nil
}
