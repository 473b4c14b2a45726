// Package api serves progress documents over HTTP for clients that don't
// talk to the document store directly.
package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/readkode/readkode/internal/apperr"
	"github.com/readkode/readkode/internal/leveling"
	"github.com/readkode/readkode/internal/logger"
	"github.com/readkode/readkode/internal/progress"
	"github.com/readkode/readkode/internal/queue"
	"github.com/readkode/readkode/internal/ratelimit"
	"github.com/readkode/readkode/internal/store"
)

// maxBody caps request bodies. Progress patches are small.
const maxBody = 1 << 20

// Handler serves the progress API.
type Handler struct {
	gateway *progress.Gateway
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

// NewHandler creates a Handler. limiter guards the per-exercise endpoint
// and may be nil.
func NewHandler(gw *progress.Gateway, limiter *ratelimit.Limiter, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{gateway: gw, limiter: limiter, log: log}
}

// Router builds the chi router with middleware and routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/api/progress/{userID}", func(r chi.Router) {
		r.Get("/", h.getProgress)
		r.Patch("/", h.patchProgress)
		r.Post("/levels/{levelID}/complete", h.completeLevel)
		r.Post("/levels/{levelID}/exercises", h.saveExercises)
	})
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// progressResponse is a record plus the derived values clients display.
type progressResponse struct {
	Progress progress.Record   `json:"progress"`
	Level    leveling.Progress `json:"level"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	rec, err := h.gateway.GetUserProgress(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, "get_progress", err)
		return
	}
	JSON(w, http.StatusOK, progressResponse{Progress: rec, Level: leveling.ProgressToNextLevel(rec.TotalXP)})
}

func (h *Handler) patchProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var patch store.Document
	if !decode(w, r, &patch) {
		return
	}
	if len(patch) == 0 {
		Error(w, http.StatusBadRequest, "empty patch")
		return
	}
	patch, err := store.ToDocument(patch)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid patch")
		return
	}
	if _, err := progress.PatchRecord(progress.Record{}, patch); err != nil {
		Error(w, http.StatusBadRequest, "patch does not match the progress document")
		return
	}

	if err := h.gateway.UpdateUserProgress(r.Context(), userID, patch); err != nil {
		h.fail(w, r, "update_progress", err)
		return
	}
	h.getProgress(w, r)
}

func (h *Handler) completeLevel(w http.ResponseWriter, r *http.Request) {
	levelID, ok := levelParam(w, r)
	if !ok {
		return
	}
	var res progress.LevelResult
	if !decode(w, r, &res) {
		return
	}
	if res.CorrectAnswers < 0 || res.IncorrectAnswers < 0 || res.XPGained < 0 {
		Error(w, http.StatusBadRequest, "counts must not be negative")
		return
	}

	c, err := h.gateway.CompleteLevelBatch(r.Context(), chi.URLParam(r, "userID"), levelID, res)
	if err != nil {
		h.fail(w, r, "complete_level", err)
		return
	}
	JSON(w, http.StatusOK, c)
}

func (h *Handler) saveExercises(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	levelID, ok := levelParam(w, r)
	if !ok {
		return
	}
	if h.limiter != nil && !h.limiter.Check(userID) {
		wait := h.limiter.TimeUntilReset(userID)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		rl := &apperr.RateLimitError{Op: "save_exercises", Wait: wait}
		Error(w, http.StatusTooManyRequests, rl.UserMessage())
		return
	}

	var agg queue.Aggregate
	if !decode(w, r, &agg) {
		return
	}
	if agg.Correct < 0 || agg.Incorrect < 0 || agg.XPGained < 0 {
		Error(w, http.StatusBadRequest, "counts must not be negative")
		return
	}

	c, err := h.gateway.SaveExerciseBatch(r.Context(), userID, levelID, agg)
	if err != nil {
		h.fail(w, r, "save_exercises", err)
		return
	}
	JSON(w, http.StatusOK, c)
}

func levelParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	levelID := chi.URLParam(r, "levelID")
	if _, _, err := progress.ParseLevelID(levelID); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return levelID, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindNetwork:    http.StatusServiceUnavailable,
	apperr.KindAuth:       http.StatusUnauthorized,
	apperr.KindPermission: http.StatusForbidden,
	apperr.KindNotFound:   http.StatusNotFound,
	apperr.KindRateLimit:  http.StatusTooManyRequests,
}

// fail logs the technical error and responds with the kind's user message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := apperr.Classify(err)
	if errors.Is(err, store.ErrNotFound) {
		kind = apperr.KindNotFound
	}
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	h.log.Error("api request failed",
		"op", op,
		"kind", kind,
		"user_id", chi.URLParam(r, "userID"),
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"error", err,
	)
	Error(w, status, apperr.UserMessage(kind))
}

// requestLogger logs one line per request through zap.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", chiMiddleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
