package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/mizuha/uploadq-go/api/controllers"
	"github.com/mizuha/uploadq-go/api/eventhub"
	"github.com/mizuha/uploadq-go/api/middlewares"
	"github.com/mizuha/uploadq-go/dispatch"
	"github.com/mizuha/uploadq-go/tool"
)

// Server is the local HTTP command surface around the dispatch service.
type Server struct {
	port        int
	spoolFolder string
	service     *dispatch.Service
	hub         *eventhub.Hub
	engine      *gin.Engine
	server      *http.Server
	mu          sync.RWMutex
}

// NewServer creates the API server. The hub receives every output event via
// the caller's event pump.
func NewServer(port int, spoolFolder string, service *dispatch.Service, hub *eventhub.Hub) *Server {
	return &Server{
		port:        port,
		spoolFolder: spoolFolder,
		service:     service,
		hub:         hub,
	}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.Default()
	engine.Use(gin.Recovery())

	queueCtrl := controllers.NewQueueController(s.service, s.spoolFolder)
	transferCtrl := controllers.NewTransferController(s.service)

	// The command surface drives local uploads, so it is localhost-only.
	v1 := engine.Group("/api/uploader/v1", middlewares.OnlyAllowLocal)
	{
		v1.POST("/queue", queueCtrl.HandleEnqueue)        // enqueue a batch (JSON specs or multipart)
		v1.GET("/queue", queueCtrl.HandleList)            // current entries
		v1.GET("/queue/:id", queueCtrl.HandleGet)         // one entry, finished cache fallback
		v1.DELETE("/queue/:id", queueCtrl.HandleRemove)   // drop a non-active entry
		v1.DELETE("/queue", queueCtrl.HandleRemoveAll)    // drop all non-active entries
		v1.POST("/upload", transferCtrl.HandleUpload)     // start one transfer
		v1.POST("/upload-all", transferCtrl.HandleUploadAll)
		v1.POST("/cancel", transferCtrl.HandleCancel)
		v1.POST("/cancel-all", transferCtrl.HandleCancelAll)
		v1.GET("/probe", transferCtrl.HandleProbe)        // endpoint reachability pre-flight
		v1.GET("/status", controllers.HandleStatus(s.service))
		v1.GET("/events-ws", eventhub.HandleEventsWS(s.hub))
	}

	return engine
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: engine,
	}
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting API server on http://127.0.0.1:%d", s.port)
	return s.server.ListenAndServe()
}
