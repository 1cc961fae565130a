package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ssargent/dblog/pkg/logging"
)

const apiKeyHeader = "X-API-Key"

// apiKeyMiddleware validates the X-API-Key header. An empty expectedKey
// turns authentication off.
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			apiKey := r.Header.Get(apiKeyHeader)
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", CodeUnauthorized, http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				sendError(w, "Invalid API key", CodeUnauthorized, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger attaches log to the request context and logs one line per
// request.
func requestLogger(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log
			if id := middleware.GetReqID(r.Context()); id != "" {
				reqLog = &logging.Logger{Logger: log.With().Str("request_id", id).Logger()}
			}

			rw := wrapResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(reqLog.WithContext(r.Context())))

			reqLog.Info().
				Str("uri", r.RequestURI).
				Str("method", r.Method).
				Int("status", rw.statusCode).
				Dur("duration", time.Since(start)).
				Int("size", rw.size).
				Send()
		})
	}
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	sendJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// sendCreated sends a 201 JSON response
func sendCreated(w http.ResponseWriter, data interface{}) {
	sendJSON(w, http.StatusCreated, APIResponse{Success: true, Data: data})
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message, code string, statusCode int) {
	sendJSON(w, statusCode, APIResponse{Success: false, Error: message, Code: code})
}

// sendFailure classifies err and sends it. It returns the error code.
func sendFailure(w http.ResponseWriter, r *http.Request, err error) string {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Str("code", code).Msg("request failed")
	}
	sendError(w, err.Error(), code, status)
	return code
}

func sendJSON(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
