// Package web serves the local UI: resume upload, run start, status polling and
// ledger inspection.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"easyapply/internal/logging"
	"easyapply/internal/runs"
)

//go:embed static/index.html
var staticFS embed.FS

const (
	MaxUploadBytes = 10 << 20
	readTimeout    = 15 * time.Second
)

// RunService is the part of runs.Manager the UI drives.
type RunService interface {
	Start(req runs.Request) (string, error)
	Get(runID string) (runs.View, error)
	List() ([]runs.View, error)
}

type Options struct {
	Addr       string
	Runs       RunService
	ConfigPath string
	DataDir    string
	Log        *logging.Logger
}

type Server struct {
	opts   Options
	log    *logging.Logger
	engine *gin.Engine
	http   *http.Server

	mu         sync.Mutex
	resumePath string
}

func New(opts Options) (*Server, error) {
	if opts.Runs == nil {
		return nil, errors.New("run service is required")
	}
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}

	s := &Server{opts: opts, log: log}
	s.engine = s.routes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readTimeout,
	}
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = MaxUploadBytes
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.log.Error("handler panicked", "path", c.Request.URL.Path, "panic", fmt.Sprint(recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}))
	r.Use(requestLogger(s.log))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOriginFunc = isLocalOrigin
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	r.Use(cors.New(corsCfg))

	r.GET("/", s.index)

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/upload", s.uploadResume)
		api.POST("/start", s.startRun)
		api.GET("/status", s.latestStatus)
		api.GET("/status/:run_id", s.runStatus)
		api.GET("/runs", s.listRuns)
		api.GET("/jobs", s.listJobs)
		api.POST("/getJobProcessedInfo", s.listJobs)
		api.POST("/jobs/mark-applied", s.markApplied)
		api.POST("/updateJobProcessedInfo", s.markApplied)
	}
	return r
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.log.Info("web server listening", "addr", s.opts.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) currentResume() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumePath
}

func (s *Server) setResume(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumePath = path
}
