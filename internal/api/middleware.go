package api

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
)

// Recoverer is the fault barrier: a panic anywhere below it becomes a 500 JSON
// response and is logged with its stack, and the server keeps serving.
func (h *Handler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// Let net/http abort the connection as it would without us.
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			h.logger.Error("panic recovered",
				"panic", rec,
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			respondWithError(w, http.StatusInternalServerError, msgServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
