// Package server exposes the Ingest Orchestrator over HTTP and
// WebSocket: file-upload ingest, re-interpretation, session listing/
// retrieval/audio download, and the realtime chunk-stream intake adapted
// from original_source/backend/routers/{ingest,realtime}.py.
package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"svasr/internal/ingest"
	"svasr/internal/ingest/session"
	"svasr/internal/model"
	"svasr/internal/pipeline/contextprofiles"
	"svasr/pkg/logger"
)

// Server wires the ingest Service into gin routes.
type Server struct {
	svc       *ingest.Service
	sessions  *session.Store
	profiles  *contextprofiles.Registry
	router    *gin.Engine
	upgrader  websocket.Upgrader
}

func New(svc *ingest.Service, sessions *session.Store, profiles *contextprofiles.Registry) *Server {
	s := &Server{
		svc:      svc,
		sessions: sessions,
		profiles: profiles,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.POST("/api/ingest", s.handleIngest)
	s.router.POST("/api/interpret/:id", s.handleInterpret)
	s.router.GET("/api/sessions", s.handleListSessions)
	s.router.GET("/api/sessions/:id", s.handleGetSession)
	s.router.GET("/api/sessions/:id/audio", s.handleSessionAudio)
	s.router.GET("/api/sessions/:id/interpretations", s.handleSessionInterpretations)
	s.router.GET("/api/contexts", s.handleContexts)
	s.router.GET("/ws/transcribe", s.handleRealtimeWebSocket)
	s.router.GET("/health", s.handleHealth)
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) handleIngest(c *gin.Context) {
	profile := c.DefaultQuery("profile", model.DefaultProfile)
	contextProfile := c.Query("context")
	source := c.DefaultQuery("source", "api")

	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader.Size == 0 {
		c.JSON(http.StatusBadRequest, errorBody{Detail: "empty upload"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Detail: "failed to read upload"})
		return
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Detail: "failed to read upload"})
		return
	}

	result, err := s.svc.IngestFile(c.Request.Context(), buf, fileHeader.Filename, profile, contextProfile, source)
	if err != nil {
		logger.Error("ingest failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody{Detail: err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleInterpret(c *gin.Context) {
	sessionID := c.Param("id")
	contextProfile := c.Query("context")
	if contextProfile == "" {
		c.JSON(http.StatusBadRequest, errorBody{Detail: "context query param required"})
		return
	}

	jobID, pollURL, err := s.svc.Reinterpret(c.Request.Context(), sessionID, contextProfile)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, errorBody{Detail: "session not found"})
		case errors.Is(err, ingest.ErrSessionNoSegments):
			c.JSON(http.StatusBadRequest, errorBody{Detail: ingest.ErrSessionNoSegments.Error()})
		default:
			c.JSON(http.StatusInternalServerError, errorBody{Detail: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"context":    contextProfile,
		"job_id":     jobID,
		"poll_url":   pollURL,
	})
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	sessions, err := s.sessions.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Detail: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleGetSession(c *gin.Context) {
	id := c.Param("id")
	data, err := s.sessions.Get(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Detail: err.Error()})
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, errorBody{Detail: "session not found"})
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) handleSessionAudio(c *gin.Context) {
	id := c.Param("id")
	path, ok := s.sessions.AudioPath(id)
	if !ok {
		c.JSON(http.StatusNotFound, errorBody{Detail: "audio not found"})
		return
	}
	c.File(path)
}

func (s *Server) handleSessionInterpretations(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"interpretations": s.sessions.Interpretations(id)})
}

func (s *Server) handleContexts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"contexts": s.profiles.List()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleRealtimeWebSocket accepts binary audio chunks over the socket,
// transcribing each as it arrives and streaming back non-noise results;
// on disconnect it finalizes the accumulated session and submits a
// pipeline job, per original_source/backend/routers/realtime.py.
func (s *Server) handleRealtimeWebSocket(c *gin.Context) {
	profile := c.DefaultQuery("profile", model.DefaultProfile)
	contextProfile := c.Query("context")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("realtime websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	acc := s.svc.NewRealtimeAccumulator(profile)
	chunkIndex := 0

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		text, segments, err := acc.AcceptChunk(c.Request.Context(), data)
		if err != nil {
			_ = conn.WriteJSON(gin.H{"error": err.Error()})
			continue
		}
		if text == "" {
			continue
		}

		_ = conn.WriteJSON(gin.H{
			"text":     text,
			"chunk":    chunkIndex,
			"profile":  profile,
			"segments": segments,
		})
		chunkIndex++
	}

	sessionID, err := acc.Finalize(c.Request.Context(), contextProfile)
	if err != nil {
		logger.Error("failed to finalize realtime session", "error", err)
		return
	}
	if sessionID != "" {
		logger.Info("realtime session saved", "session_id", sessionID)
	}
}
