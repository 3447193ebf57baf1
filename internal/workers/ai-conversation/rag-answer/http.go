// internal/workers/ai-conversation/rag-answer/http.go
package raganswer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	apperrors "rag-answer-service/internal/common/errors"
	"rag-answer-service/internal/common/logger"
	"rag-answer-service/internal/models"
)

const RequestIDHeader = "X-Request-ID"

// Asker is the pipeline entry point used by the transports.
type Asker interface {
	Ask(ctx context.Context, req AskRequest) (*models.Answer, error)
}

type HTTPHandler struct {
	cfg       *Config
	asker     Asker
	origins   map[string]struct{}
	anyOrigin bool
	logger    logger.Logger
}

// NewHTTPHandler returns the ask endpoint wrapped in CORS handling. Preflight
// requests are answered by the CORS layer before anything else runs.
func NewHTTPHandler(cfg *Config, asker Asker, log logger.Logger) http.Handler {
	h := &HTTPHandler{
		cfg:     cfg,
		asker:   asker,
		origins: make(map[string]struct{}, len(cfg.AllowedOrigins)),
		logger:  log.WithFields(map[string]interface{}{"component": "http"}),
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			h.anyOrigin = true
		}
		h.origins[strings.TrimRight(o, "/")] = struct{}{}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	return c.Handler(h)
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set(RequestIDHeader, requestID)
	log := h.logger.WithFields(map[string]interface{}{"requestId": requestID})

	if origin := r.Header.Get("Origin"); origin != "" && !h.originAllowed(origin) {
		log.Warn("origin not allowed", map[string]interface{}{"origin": origin})
		writeJSON(w, http.StatusForbidden, apperrors.ErrorResponse{Error: "Origin not allowed"})
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, apperrors.ErrorResponse{Error: "Method not allowed"})
		return
	}

	var body Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes()))
	if err := dec.Decode(&body); err != nil {
		resp := apperrors.ErrorResponse{Error: "Invalid JSON body"}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, apperrors.ErrorResponse{Error: "Request body too large"})
			return
		}
		if !h.cfg.Production {
			resp.Details = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	start := time.Now()
	answer, err := h.asker.Ask(r.Context(), body.Request())
	if err != nil {
		status := apperrors.HTTPStatus(err)
		fields := map[string]interface{}{
			"status":     status,
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			log.Error("ask failed", fields)
		} else {
			log.Warn("ask rejected", fields)
		}
		writeJSON(w, status, apperrors.NewErrorResponse(err, h.cfg.Production))
		return
	}

	log.Info("ask completed", map[string]interface{}{
		"sources":    len(answer.Sources),
		"confidence": answer.Confidence,
		"durationMs": time.Since(start).Milliseconds(),
	})
	writeJSON(w, http.StatusOK, answer)
}

func (h *HTTPHandler) originAllowed(origin string) bool {
	if h.anyOrigin {
		return true
	}
	_, ok := h.origins[strings.TrimRight(origin, "/")]
	return ok
}

func (h *HTTPHandler) maxBodyBytes() int64 {
	if h.cfg.MaxBodyBytes > 0 {
		return h.cfg.MaxBodyBytes
	}
	return 64 << 10
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
