// Package server exposes the Transcription Gateway over HTTP and
// WebSocket: transcribe, retry, warmup, models, health, and the
// accumulate-then-transcribe realtime control protocol.
package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"svasr/internal/gateway"
	"svasr/internal/model"
	"svasr/pkg/logger"
	"svasr/pkg/wav"
)

// Server wires the gateway Service into gin routes.
type Server struct {
	svc     *gateway.Service
	tempDir string
	router  *gin.Engine
	upgrader websocket.Upgrader
}

func New(svc *gateway.Service, tempDir string) *Server {
	s := &Server{
		svc:     svc,
		tempDir: tempDir,
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
	s.router.POST("/transcribe", s.handleTranscribe)
	s.router.POST("/transcribe/retry", s.handleRetry)
	s.router.POST("/warmup", s.handleWarmup)
	s.router.GET("/models", s.handleModels)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws/transcribe", s.handleWebSocket)
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) handleTranscribe(c *gin.Context) {
	profile := c.Query("profile")
	language := c.DefaultQuery("language", "sv")
	includeTimestamps := c.DefaultQuery("include_timestamps", "true") == "true"

	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader.Size == 0 {
		c.JSON(http.StatusBadRequest, errorBody{Detail: "empty upload"})
		return
	}

	tmpPath := filepath.Join(s.tempDir, uuid.NewString()+"-"+filepath.Base(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Detail: "failed to store upload"})
		return
	}
	defer os.Remove(tmpPath)

	result, err := s.svc.Transcribe(c.Request.Context(), gateway.TranscribeRequest{
		AudioPath:         tmpPath,
		ProfileName:       profile,
		Language:          language,
		IncludeTimestamps: includeTimestamps,
	})
	if err != nil {
		logger.Error("transcribe failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody{Detail: err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

type retryBody struct {
	AudioBase64 string  `json:"audio_base64"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	BeamSize    int     `json:"beam_size"`
	Model       string  `json:"model"`
	Language    string  `json:"language"`
}

func (s *Server) handleRetry(c *gin.Context) {
	var body retryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Detail: "invalid request body"})
		return
	}
	if body.AudioBase64 == "" {
		c.JSON(http.StatusBadRequest, errorBody{Detail: "audio_base64 required"})
		return
	}

	if _, decodeErr := base64.StdEncoding.DecodeString(body.AudioBase64); decodeErr != nil {
		c.JSON(http.StatusBadRequest, errorBody{Detail: "invalid base64 audio"})
		return
	}

	result, err := s.svc.Retry(c.Request.Context(), gateway.RetryRequest{
		AudioBase64: body.AudioBase64,
		Start:       body.Start,
		End:         body.End,
		BeamSize:    body.BeamSize,
		Model:       body.Model,
		Language:    body.Language,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Detail: err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleWarmup(c *gin.Context) {
	profile := c.Query("profile")
	result := s.svc.Warmup(c.Request.Context(), profile)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": model.Profiles})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- WebSocket control protocol ---

type wsClientFrame struct {
	Action   string `json:"action"`
	Language string `json:"language,omitempty"`
	Profile  string `json:"profile,omitempty"`
	Data     string `json:"data,omitempty"`
}

type wsStatusFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Profile string `json:"profile,omitempty"`
}

type wsTranscriptFrame struct {
	Type          string          `json:"type"`
	Text          string          `json:"text"`
	IsFinal       bool            `json:"is_final"`
	Segments      []model.Segment `json:"segments"`
	Profile       string          `json:"profile"`
	Backend       string          `json:"backend"`
	InferenceTime float64         `json:"inference_time"`
}

// handleWebSocket implements the accumulate-then-transcribe protocol:
// start/audio/process/stop client frames, status/transcript server frames.
// On process, accumulated PCM16 audio is wrapped as WAV and transcribed;
// the buffer is then cleared.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var buffer []byte
	language := "sv"
	profileName := model.DefaultProfile

	for {
		var frame wsClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Action {
		case "start":
			buffer = nil
			if frame.Language != "" {
				language = frame.Language
			}
			if frame.Profile != "" {
				profileName = frame.Profile
			}
			_ = conn.WriteJSON(wsStatusFrame{Type: "status", Message: "started", Profile: profileName})

		case "audio":
			chunk, err := decodeBase64Audio(frame.Data)
			if err != nil {
				_ = conn.WriteJSON(wsStatusFrame{Type: "status", Message: "invalid audio chunk"})
				continue
			}
			buffer = append(buffer, chunk...)

		case "process":
			s.processWSBuffer(c.Request.Context(), conn, buffer, language, profileName, false)
			buffer = nil

		case "stop":
			if len(buffer) > 0 {
				s.processWSBuffer(c.Request.Context(), conn, buffer, language, profileName, true)
				buffer = nil
			}
			_ = conn.WriteJSON(wsStatusFrame{Type: "status", Message: "stopped"})
			return
		}
	}
}

func (s *Server) processWSBuffer(ctx context.Context, conn *websocket.Conn, pcm []byte, language, profileName string, isFinal bool) {
	if len(pcm) == 0 {
		return
	}
	wavBytes, err := wav.EncodePCM16(pcm)
	if err != nil {
		_ = conn.WriteJSON(wsStatusFrame{Type: "status", Message: "failed to encode audio"})
		return
	}

	tmpPath := filepath.Join(s.tempDir, uuid.NewString()+".wav")
	if err := os.WriteFile(tmpPath, wavBytes, 0644); err != nil {
		_ = conn.WriteJSON(wsStatusFrame{Type: "status", Message: "failed to stage audio"})
		return
	}
	defer os.Remove(tmpPath)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := s.svc.Transcribe(ctx, gateway.TranscribeRequest{
		AudioPath:         tmpPath,
		ProfileName:       profileName,
		Language:          language,
		IncludeTimestamps: true,
	})
	if err != nil {
		_ = conn.WriteJSON(wsStatusFrame{Type: "status", Message: fmt.Sprintf("transcription failed: %v", err)})
		return
	}

	_ = conn.WriteJSON(wsTranscriptFrame{
		Type:          "transcript",
		Text:          result.Text,
		IsFinal:       isFinal,
		Segments:      result.Segments,
		Profile:       result.Profile,
		Backend:       result.Backend,
		InferenceTime: result.InferenceTime,
	})
}

func decodeBase64Audio(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}
