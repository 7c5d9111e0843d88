package middleware

import (
	"mime"
	"net/http"

	apperrors "urutibiz/pkg/errors"
	httputil "urutibiz/pkg/http"
	"urutibiz/pkg/logger"
)

// ContentTypeValidation requires application/json on write requests that
// carry a body. Bodiless confirm and complete calls pass through.
func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiresContentType(r) {
				contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
				if contentType != "application/json" {
					log.Warn("Invalid Content-Type header",
						"request_id", RequestID(r.Context()),
						"content_type", contentType,
						"path", r.URL.Path,
						"method", r.Method,
					)
					writeRejection(w, log, "ContentTypeValidation", apperrors.New(
						apperrors.CodeInvalidInput,
						"Content-Type must be application/json",
						http.StatusUnsupportedMediaType,
					))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requiresContentType(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return r.ContentLength != 0
	}
	return false
}

// MaxRequestSize caps the body a handler may read. Oversized bodies fail to
// decode and surface as invalid input.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeRejection(w, nil, "MaxRequestSize", apperrors.New(
					apperrors.CodeInvalidInput,
					"Request body too large",
					http.StatusRequestEntityTooLarge,
				))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRejection(w http.ResponseWriter, log *logger.Logger, middleware string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil && log != nil {
		log.Error("failed to write error response", "handler", middleware, "operation", "WriteError", "error", writeErr)
	}
}
