package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/rifalabs/rifa-api/internal/api/handler/v1"
	"github.com/rifalabs/rifa-api/internal/api/middleware"
	"github.com/rifalabs/rifa-api/internal/config"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

func NewServer(conf *config.AppConfig, enqueuer v1.AllocationEnqueuer, allocator Allocator, events v1.EventWriter) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()
	s.MountHandlers(
		v1.NewAllocationHandler(enqueuer, allocator, allocator),
		v1.NewEventHandler(events),
	)

	return s
}

// Allocator is the combined service surface the HTTP layer consumes.
type Allocator interface {
	v1.AvailabilityReader
	v1.PurchaseCreator
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(allocationHandler *v1.AllocationHandler, eventHandler *v1.EventHandler) {
	const basePath = "/api/v1"

	api := s.Router.Group(basePath)
	{
		api.POST("/events", eventHandler.HandleCreateEvent)
		api.POST("/allocations", allocationHandler.HandleAllocateSingle)
		api.POST("/events/:eventID/purchases", allocationHandler.HandleCheckout)
		api.POST("/events/:eventID/allocations/massive", allocationHandler.HandleAllocateBatch)
		api.GET("/events/:eventID/availability", allocationHandler.HandleAvailability)
	}

	s.Router.GET("/", v1.HandleHealthcheck)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
