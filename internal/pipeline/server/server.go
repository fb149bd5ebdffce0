// Package server exposes the Pipeline Runner over HTTP: submit a job,
// poll its status, and fetch its result once completed.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"svasr/internal/model"
	"svasr/internal/pipeline"
	"svasr/internal/pipeline/jobstore"
)

// Server wires the Runner and Store into gin routes.
type Server struct {
	runner *pipeline.Runner
	store  *jobstore.Store
	router *gin.Engine
}

func New(runner *pipeline.Runner, store *jobstore.Store) *Server {
	s := &Server{runner: runner, store: store}
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.POST("/jobs", s.handleSubmit)
	s.router.GET("/jobs/:id", s.handleGet)
	s.router.GET("/jobs/:id/result", s.handleResult)
	s.router.GET("/health", s.handleHealth)
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var input model.JobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Detail: "invalid job input"})
		return
	}
	if len(input.Segments) == 0 {
		c.JSON(http.StatusBadRequest, errorBody{Detail: "segments required"})
		return
	}

	id, err := s.runner.Submit(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Detail: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": id, "status": string(model.JobQueued)})
}

type jobStatusBody struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	CurrentStep string `json:"current_step"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (s *Server) handleGet(c *gin.Context) {
	id := c.Param("id")
	job, err := s.store.Get(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Detail: err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, errorBody{Detail: "job not found"})
		return
	}

	c.JSON(http.StatusOK, jobStatusBody{
		ID:          job.ID,
		Status:      job.Status,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   job.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// handleResult returns 409 if the job hasn't completed yet, matching the
// original "result not ready" semantics rather than a bare 404, and 422 with
// the job's error if the job failed.
func (s *Server) handleResult(c *gin.Context) {
	id := c.Param("id")
	job, err := s.store.Get(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Detail: err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, errorBody{Detail: "job not found"})
		return
	}

	if job.Status == string(model.JobFailed) {
		c.JSON(http.StatusUnprocessableEntity, errorBody{Detail: job.Error})
		return
	}
	if job.Status != string(model.JobCompleted) {
		c.JSON(http.StatusConflict, errorBody{Detail: "job not completed, status=" + job.Status})
		return
	}

	c.Data(http.StatusOK, "application/json", []byte(job.ResultData))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
