// Package api exposes task submission, results and progress streaming
// over HTTP and WebSocket.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backtest-core/internal/dispatch"
	"backtest-core/internal/events"
	"backtest-core/internal/ledger"
	"backtest-core/internal/rl"
	"backtest-core/pkg/db"
)

// Server wires HTTP endpoints around the dispatcher and the event bus.
type Server struct {
	Router     *gin.Engine
	Bus        *events.Bus
	Store      *db.Store
	Dispatcher *dispatch.Dispatcher
	PoolSize   int
	Presets    map[string]rl.Config
	Costs      ledger.Costs
}

func NewServer(bus *events.Bus, store *db.Store, dispatcher *dispatch.Dispatcher, poolSize int, presets map[string]rl.Config, costs ledger.Costs) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(CORSMiddleware())

	s := &Server{
		Router:     r,
		Bus:        bus,
		Store:      store,
		Dispatcher: dispatcher,
		PoolSize:   poolSize,
		Presets:    presets,
		Costs:      costs,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.POST("/tasks", s.submitTasks)
		api.GET("/tasks", s.listTasks)
		api.GET("/tasks/:id", s.getTask)
		api.GET("/tasks/:id/signals", s.getTaskSignals)
		api.GET("/tasks/:id/episodes", s.getTaskEpisodes)
		api.GET("/tasks/:id/performance", s.getTaskPerformance)
		api.GET("/presets", s.getPresets)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
