package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lbj0223/AI/internal/models"
	"github.com/lbj0223/AI/internal/service/companion"
	"github.com/lbj0223/AI/internal/service/exercise"
	"github.com/lbj0223/AI/internal/session"
)

const maxUploadBytes = 10 << 20 // 10 MB

// ChatStreamer streams an assistant reply for the given history.
type ChatStreamer interface {
	StreamChat(ctx context.Context, system string, history []models.Message, onDelta func(string) error) (string, error)
}

// Recognizer converts an uploaded image into LaTeX.
type Recognizer interface {
	Recognize(ctx context.Context, filename string, image []byte) (string, error)
}

// Analyzer produces the knowledge card and exercise variants for a formula.
type Analyzer interface {
	Analyze(ctx context.Context, latex string) (*models.ExerciseSet, error)
}

// Handler wires HTTP routes to the companion state machine, the chat model
// and the error-question notebook.
type Handler struct {
	companion  *companion.Service
	chat       ChatStreamer
	recognizer Recognizer
	analyzer   Analyzer
	exercises  *exercise.Store
	prompt     func(nickname, nature string) string
}

// NewHandler constructs a Handler instance.
func NewHandler(comp *companion.Service, chat ChatStreamer, recognizer Recognizer, analyzer Analyzer, exercises *exercise.Store, prompt func(nickname, nature string) string) *Handler {
	return &Handler{
		companion:  comp,
		chat:       chat,
		recognizer: recognizer,
		analyzer:   analyzer,
		exercises:  exercises,
		prompt:     prompt,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/session", h.getActiveSession)
	api.PATCH("/session/profile", h.updateProfile)
	api.GET("/sessions", h.listSessions)
	api.POST("/sessions", h.newSession)
	api.POST("/sessions/:id/open", h.openSession)
	api.DELETE("/sessions/:id", h.deleteSession)
	api.POST("/chat", h.sendMessage)
	api.POST("/ocr", h.recognizeImage)
	api.POST("/exercises/analyze", h.analyzeFormula)
	api.POST("/exercises", h.saveExercise)
	api.GET("/exercises/recent", h.recentExercises)
	api.DELETE("/exercises", h.clearExercises)
}

func sessionErrorStatus(err error) int {
	var parseErr *session.ParseError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &parseErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) getActiveSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"session": h.companion.Active()})
}

func (h *Handler) listSessions(c *gin.Context) {
	ids, err := h.companion.Sessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"session_list": ids})
}

func (h *Handler) newSession(c *gin.Context) {
	sess, err := h.companion.StartNew()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sess})
}

func (h *Handler) openSession(c *gin.Context) {
	id := c.Param("id")
	sess, err := h.companion.Open(id)
	if err != nil {
		c.JSON(sessionErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *Handler) deleteSession(c *gin.Context) {
	id := c.Param("id")
	sess, err := h.companion.Delete(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

type profileRequest struct {
	Nickname string `json:"nickname"`
	Nature   string `json:"nature"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Nickname) == "" && strings.TrimSpace(req.Nature) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nickname or nature is required"})
		return
	}
	sess, err := h.companion.SetProfile(strings.TrimSpace(req.Nickname), strings.TrimSpace(req.Nature))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

type chatRequest struct {
	Content string `json:"content"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	sess, err := h.companion.AppendMessage(models.RoleUser, content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	streamCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if event != "" {
			if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := sendEvent("ack", gin.H{
		"session_id": sess.ID,
		"message":    gin.H{"role": models.RoleUser, "content": content},
	}); err != nil {
		return
	}

	system := h.prompt(sess.Nickname, sess.Nature)
	reply, err := h.chat.StreamChat(streamCtx, system, sess.Messages, func(accumulated string) error {
		return sendEvent("stream", gin.H{"content": accumulated})
	})
	if err != nil {
		_ = sendEvent("error", gin.H{"message": err.Error()})
		return
	}
	if strings.TrimSpace(reply) == "" {
		_ = sendEvent("error", gin.H{"message": "empty reply from model"})
		return
	}

	sess, err = h.companion.AppendMessage(models.RoleAssistant, reply)
	if err != nil {
		_ = sendEvent("error", gin.H{"message": err.Error()})
		return
	}
	_ = sendEvent("done", gin.H{
		"session_id":   sess.ID,
		"user_message": gin.H{"role": models.RoleUser, "content": content},
		"ai_message":   gin.H{"role": models.RoleAssistant, "content": reply},
	})
}

func (h *Handler) recognizeImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	defer f.Close()
	image, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read file failed"})
		return
	}

	latex, err := h.recognizer.Recognize(c.Request.Context(), filepath.Base(file.Filename), image)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"latex": latex})
}

type analyzeRequest struct {
	Latex string `json:"latex"`
}

func (h *Handler) analyzeFormula(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	set, err := h.analyzer.Analyze(c.Request.Context(), req.Latex)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"latex": strings.TrimSpace(req.Latex), "card": set.Card, "exercises": set.Exercises})
}

type saveExerciseRequest struct {
	Latex     string                   `json:"latex"`
	Card      models.KnowledgeCard     `json:"card"`
	Exercises []models.ExerciseVariant `json:"exercises"`
}

func (h *Handler) saveExercise(c *gin.Context) {
	var req saveExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	record, err := h.exercises.Insert(c.Request.Context(), req.Latex, &models.ExerciseSet{
		Card:      req.Card,
		Exercises: req.Exercises,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": record})
}

func (h *Handler) recentExercises(c *gin.Context) {
	limit := exercise.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	records, err := h.exercises.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []models.ErrorQuestion{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *Handler) clearExercises(c *gin.Context) {
	if err := h.exercises.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
