package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/MJE43/rps-gauntlet/internal/game"
	"github.com/MJE43/rps-gauntlet/internal/session"
)

// ErrorBuilder assembles an EngineError for the request being served.
type ErrorBuilder struct {
	err EngineError
}

// NewError starts an error of the given type.
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{err: EngineError{Type: errType, Message: message, Context: map[string]any{}}}
}

// forRequest starts an error carrying the request id, route and any session
// or level named in the URL.
func forRequest(r *http.Request, errType, message string) *ErrorBuilder {
	b := NewError(errType, message).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("method", r.Method).
		WithContext("path", r.URL.Path)
	if id := chi.URLParam(r, "id"); id != "" {
		b.WithContext("session_id", id)
	}
	if id := chi.URLParam(r, "levelID"); id != "" {
		b.WithContext("level_id", id)
	}
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.Context[key] = value
	return b
}

func (b *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	b.err.RequestID = requestID
	return b
}

// WithCause records err's text under "cause". A nil err is ignored.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		b.err.Context["cause"] = err.Error()
	}
	return b
}

// Build stamps the error and returns it.
func (b *ErrorBuilder) Build() EngineError {
	out := b.err
	out.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if len(out.Context) == 0 {
		out.Context = nil
	}
	return out
}

// errorKinds maps game errors onto HTTP answers, first match wins.
var errorKinds = []struct {
	target  error
	status  int
	errType string
}{
	{session.ErrInvalidMove, http.StatusBadRequest, ErrTypeInvalidMove},
	{game.ErrUnknownLevel, http.StatusNotFound, ErrTypeLevelNotFound},
	{game.ErrLevelLocked, http.StatusForbidden, ErrTypeLevelLocked},
	{game.ErrUnknownSession, http.StatusNotFound, ErrTypeSessionNotFound},
	{session.ErrSessionCompleted, http.StatusConflict, ErrTypeSessionCompleted},
	{session.ErrNotInProgress, http.StatusConflict, ErrTypeNotInProgress},
	{session.ErrInputLocked, http.StatusLocked, ErrTypeInputLocked},
}

// classify returns the status and error type for err.
func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.status, k.errType
		}
	}
	return http.StatusInternalServerError, ErrTypeInternal
}

// seedKeys are never written to the log.
var seedKeys = map[string]bool{"server_seed": true, "client_seed": true}

// ErrorHandler writes EngineErrors and logs them by severity.
type ErrorHandler struct {
	logger zerolog.Logger
}

func NewErrorHandler(logger zerolog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError writes err as an EngineError with the status its kind implies.
// Internal errors keep their text in the log only.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var engineErr EngineError
	status := http.StatusInternalServerError
	if !errors.As(err, &engineErr) {
		var errType string
		status, errType = classify(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			message = "Internal server error"
		}
		engineErr = forRequest(r, errType, message).WithCause(err).Build()
	}

	eh.logError(r, engineErr, status)
	eh.writeErrorResponse(w, status, engineErr)
}

// HandleValidationError answers 400 for a bad field.
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	engineErr := forRequest(r, ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithContext("field", field).
		Build()

	eh.logError(r, engineErr, http.StatusBadRequest)
	eh.writeErrorResponse(w, http.StatusBadRequest, engineErr)
}

func (eh *ErrorHandler) logError(r *http.Request, engineErr EngineError, status int) {
	category := GetErrorCategory(engineErr.Type)

	event := eh.logger.Info()
	if status >= http.StatusInternalServerError {
		event = eh.logger.Error()
	} else if category == CategoryValidation {
		event = eh.logger.Warn()
	}

	event = event.
		Str("type", engineErr.Type).
		Str("category", string(category)).
		Int("status", status).
		Str("request_id", engineErr.RequestID).
		Str("remote_ip", r.RemoteAddr)
	for key, value := range engineErr.Context {
		if seedKeys[key] {
			continue
		}
		event = event.Interface(key, value)
	}
	event.Msg(engineErr.Message)
}

func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, status int, engineErr EngineError) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Gauntlet-Version", Version)
	h.Set("X-Error-Type", engineErr.Type)
	h.Set("X-Error-Category", string(GetErrorCategory(engineErr.Type)))
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		eh.logger.Error().Err(err).Msg("failed to encode error response")
	}
}

// RecoveryHandler turns a handler panic into a 500 EngineError.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			engineErr := forRequest(r, ErrTypeInternal, "Internal server error").Build()
			eh.logger.Error().
				Str("request_id", engineErr.RequestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Interface("panic", rvr).
				Msg("panic recovered")
			eh.writeErrorResponse(w, http.StatusInternalServerError, engineErr)
		}()

		next.ServeHTTP(w, r)
	})
}
