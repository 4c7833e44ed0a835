package daemon

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rohmanhakim/newscrawl/internal/cli"
	"github.com/rohmanhakim/newscrawl/internal/config"
	"github.com/rohmanhakim/newscrawl/internal/scheduler"
	"github.com/rohmanhakim/newscrawl/internal/telemetry"
)

// Server is the process-supervising HTTP API: it starts, lists,
// inspects, and stops crawl jobs through a single-job Registry.
type Server struct {
	router   *gin.Engine
	registry *Registry
	recorder *telemetry.Recorder
}

func NewServer(recorder *telemetry.Recorder) *Server {
	s := &Server{
		router:   gin.New(),
		registry: NewRegistry(),
		recorder: recorder,
	}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealthz)
	v1 := s.router.Group("/v1")
	v1.POST("/jobs", s.handleStartJob)
	v1.GET("/jobs", s.handleListJobs)
	v1.GET("/jobs/:id", s.handleGetJob)
	v1.POST("/jobs/:id/stop", s.handleStopJob)
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler returns the server's http.Handler, for tests driving it with
// httptest instead of a real listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// startJobRequest is the POST /v1/jobs body: a seed list or a runner
// config file path, plus the shared-override fields and the wiring
// knobs (gazetteer directory, database DSN) config.Overrides doesn't
// carry.
type startJobRequest struct {
	SeedURLs         []string `json:"seedUrls"`
	ConfigFile       string   `json:"configFile"`
	GazetteerDir     string   `json:"gazetteerDir"`
	DSN              string   `json:"dsn"`
	Concurrency      int      `json:"concurrency,omitempty"`
	MaxDownloads     int      `json:"maxDownloads,omitempty"`
	MaxDepth         int      `json:"maxDepth,omitempty"`
	OutputVerbosity  int      `json:"outputVerbosity,omitempty"`
	DBPath           string   `json:"dbPath,omitempty"`
	DataDir          string   `json:"dataDir,omitempty"`
	PlannerVerbosity int      `json:"plannerVerbosity,omitempty"`
}

func (s *Server) handleStartJob(c *gin.Context) {
	var req startJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seeds := make([]url.URL, 0, len(req.SeedURLs))
	for _, raw := range req.SeedURLs {
		u, err := url.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seed URL: " + raw})
			return
		}
		seeds = append(seeds, *u)
	}
	if len(seeds) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seedUrls is required"})
		return
	}

	cfg, err := config.Load(seeds, req.ConfigFile, config.Overrides{
		Concurrency:      req.Concurrency,
		MaxDownloads:     req.MaxDownloads,
		MaxDepth:         req.MaxDepth,
		OutputVerbosity:  req.OutputVerbosity,
		DBPath:           req.DBPath,
		DataDir:          req.DataDir,
		PlannerVerbosity: req.PlannerVerbosity,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := uuid.NewString()
	dsn := req.DSN
	if dsn == "" {
		dsn = cfg.DBPath()
	}
	sched, cleanup, err := cli.Build(jobID, cfg, cli.BuildOptions{GazetteerDir: req.GazetteerDir, DSN: dsn}, s.recorder)
	if err != nil {
		cleanup()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	err = s.registry.Start(jobID, func(ctx context.Context) (scheduler.RunSummary, error) {
		defer cleanup()
		return sched.Run(ctx)
	})
	if err != nil {
		cleanup()
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"id": jobID})
}

func (s *Server) handleListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.List())
}

func (s *Server) handleGetJob(c *gin.Context) {
	rec, err := s.registry.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleStopJob(c *gin.Context) {
	if err := s.registry.Stop(c.Param("id")); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "stopping"})
}
