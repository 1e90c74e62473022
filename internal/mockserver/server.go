// Package mockserver is an in-process stand-in for the ASearcher agent
// service. It serves /health, /query and /query/{id} with scripted progress
// so the monitor can be demonstrated and tested without a model.
package mockserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
	"github.com/agent-protocol/asearcher-monitor/pkg/ptr"
)

// Config contains configuration for the mock service
type Config struct {
	Scenario     *Scenario
	AllowOrigins []string
	Logger       *zerolog.Logger
}

type query struct {
	request  asearcher.QueryRequest
	revealed int
	finished bool
}

// Server is the mock ASearcher service
type Server struct {
	engine   *gin.Engine
	scenario *Scenario
	metrics  *metrics
	logger   zerolog.Logger

	mu      sync.Mutex
	queries map[string]*query
	server  *http.Server
}

// New creates a mock service. A nil scenario selects DefaultScenario.
func New(config Config) *Server {
	scenario := config.Scenario
	if scenario == nil {
		scenario = DefaultScenario()
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	s := &Server{
		scenario: scenario,
		metrics:  newMetrics(),
		logger:   logger.With().Str("component", "mockserver").Logger(),
		queries:  make(map[string]*query),
	}
	s.setupRoutes(config.AllowOrigins)
	return s
}

func (s *Server) setupRoutes(allowOrigins []string) {
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowOrigins
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.engine.Use(cors.New(corsConfig))

	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/query", s.handleSubmit)
	s.engine.GET("/query/:id", s.handleGetQuery)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("mock ASearcher service listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.logger.Debug().Msgf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	h := s.scenario.Health
	c.JSON(http.StatusOK, asearcher.HealthStatus{
		Status:        h.Status,
		LLMStatus:     h.LLMStatus,
		LLMType:       ptr.NonEmpty(h.LLMType),
		ModelName:     ptr.NonEmpty(h.ModelName),
		ModelPath:     ptr.NonEmpty(h.ModelPath),
		OpenAIBaseURL: ptr.NonEmpty(h.OpenAIBaseURL),
		APIKeyStatus:  ptr.NonEmpty(h.APIKeyStatus),
	})
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req asearcher.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}
	if detail := validateRequest(&req); detail != "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": detail})
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.queries[id] = &query{request: req}
	s.mu.Unlock()

	s.metrics.queriesTotal.Inc()
	s.logger.Info().Str("query_id", id).Str("agent_type", req.AgentType).Msg("query accepted")

	c.JSON(http.StatusOK, gin.H{
		"query_id": id,
		"status":   asearcher.QueryStatusPending,
		"message":  "Query started",
	})
}

func validateRequest(req *asearcher.QueryRequest) string {
	switch {
	case strings.TrimSpace(req.Query) == "":
		return "query must not be empty"
	case req.MaxTurns <= 0:
		return "max_turns must be positive"
	case req.MaxTokensPerCall <= 0:
		return "max_tokens_per_call must be positive"
	}
	return ""
}

type queryResponse struct {
	QueryID string `json:"query_id"`
	asearcher.QuerySnapshot
}

func (s *Server) handleGetQuery(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	q, ok := s.queries[id]
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"detail": "Query not found"})
		return
	}
	snapshot := s.advance(id, q)
	s.mu.Unlock()

	c.JSON(http.StatusOK, queryResponse{QueryID: id, QuerySnapshot: snapshot})
}

// advance reveals the next steps of q and returns its snapshot. Callers hold s.mu.
func (s *Server) advance(id string, q *query) asearcher.QuerySnapshot {
	total := len(s.scenario.Steps)
	q.revealed += s.scenario.StepsPerPoll
	if q.revealed > total {
		q.revealed = total
	}

	snapshot := asearcher.QuerySnapshot{
		Status: asearcher.QueryStatusRunning,
		Steps:  make([]asearcher.Step, 0, q.revealed),
	}
	for _, step := range s.scenario.Steps[:q.revealed] {
		snapshot.Steps = append(snapshot.Steps, asearcher.Step{
			StepType: asearcher.StepType(step.StepType),
			Title:    step.Title,
			Content:  strings.ReplaceAll(step.Content, "{query}", q.request.Query),
		})
	}

	if q.revealed < total {
		return snapshot
	}

	snapshot.Status = asearcher.QueryStatus(s.scenario.FinalStatus)
	snapshot.PredAnswer = s.scenario.PredAnswer
	snapshot.ErrorMessage = s.scenario.ErrorMessage
	if !q.finished {
		q.finished = true
		s.metrics.queriesFinished.WithLabelValues(s.scenario.FinalStatus).Inc()
		s.logger.Info().Str("query_id", id).Str("status", s.scenario.FinalStatus).Msg("query finished")
	}
	return snapshot
}
