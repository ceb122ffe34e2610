// Package server exposes the generation, review and publishing pipeline
// over HTTP with a {success, data|error} envelope.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"docsmith/internal/apperr"
	"docsmith/internal/events"
	"docsmith/internal/services"
	"docsmith/internal/source"
)

const DefaultBasePath = "/v1"

type Config struct {
	Services *services.Services
	Sources  *source.Resolver
	BasePath string
	Auth     AuthConfig
	Logger   *zap.Logger
}

type apiErrorBody struct {
	Message string `json:"message" example:"content is empty"`
	Code    string `json:"code" example:"VALIDATION"`
}

// apiError is the failure envelope.
type apiError struct {
	status  int
	Success bool         `json:"success"`
	Body    apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string) *apiError {
	if code == "" {
		code = codeForStatus(status)
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

// New returns the HTTP handler for the docsmith API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Services == nil {
		return nil, errors.New("server: services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")

	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(normalizeStatus(status), "", validationMessage(msg, errs))
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(normalizeStatus(status), "", validationMessage(msg, errs))
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(logger))
	router.Use(newAuthMiddleware(basePath, cfg.Auth, logger))

	hcfg := huma.DefaultConfig("docsmith API", "1.0.0")
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	h := &handlers{services: cfg.Services, sources: cfg.Sources, logger: logger}
	registerHealth(group)
	h.registerPipeline(group)
	h.registerPublish(group)
	h.registerModels(group)
	h.registerDocuments(group)
	return router, nil
}

// handleError maps a classified error onto the envelope. Unclassified
// errors are reported as INTERNAL without their text.
func (h *handlers) handleError(op string, err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var statusErr huma.StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}
	var classified *apperr.Error
	if !errors.As(err, &classified) {
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		return newAPIError(http.StatusInternalServerError, apperr.CodeInternal, "internal error")
	}
	h.logger.Warn("request failed",
		zap.String("op", op),
		zap.String("kind", string(classified.Kind)),
		zap.Error(err))
	msg := classified.Message
	if msg == "" {
		msg = http.StatusText(classified.HTTPStatus())
	}
	return newAPIError(classified.HTTPStatus(), classified.Code(), msg)
}

// normalizeStatus reports request validation as 400 like every other
// validation failure.
func normalizeStatus(status int) int {
	if status == http.StatusUnprocessableEntity {
		return http.StatusBadRequest
	}
	return status
}

func validationMessage(msg string, errs []error) string {
	if len(errs) == 0 {
		return msg
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			parts = append(parts, e.Error())
		}
	}
	if len(parts) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(parts, "; ")
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.CodeValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.CodeUnauthorized
	case http.StatusNotFound:
		return apperr.CodeNotFound
	case http.StatusTooManyRequests:
		return apperr.CodeRateLimit
	default:
		return apperr.CodeInternal
	}
}

func respondError(w http.ResponseWriter, err *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.status)
	_ = json.NewEncoder(w).Encode(err)
}

// requestLogger logs each request and tags pipeline events with its id.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqID := middleware.GetReqID(r.Context())
			ctx := events.WithSession(r.Context(), reqID)
			next.ServeHTTP(ww, r.WithContext(ctx))
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(started)),
				zap.String("request_id", reqID))
		})
	}
}
