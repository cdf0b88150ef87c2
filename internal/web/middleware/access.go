package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/csvxlsx/internal/core"
)

// AccessHeader carries the shared password on API requests.
const AccessHeader = "X-Access-Password"

// AccessObserver is told about every gate evaluation.
type AccessObserver interface {
	ObserveAccess(core.AccessDecision)
}

// RequireAccess rejects requests whose AccessHeader does not match the
// gate: 401 when the header is missing, 403 when it is wrong.
func RequireAccess(gate *core.Gate, obs AccessObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := gate.Evaluate(r.Header.Get(AccessHeader))
			if obs != nil {
				obs.ObserveAccess(decision)
			}
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			DenyAccess(w, r, decision)
		})
	}
}

// AccessError is the JSON body of a rejected request.
type AccessError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// DenyAccess writes the JSON rejection for a failed decision.
func DenyAccess(w http.ResponseWriter, r *http.Request, d core.AccessDecision) {
	if d.Attempted {
		slog.Warn("access: incorrect password",
			"path", r.URL.Path,
			"method", r.Method,
			"remote_addr", r.RemoteAddr,
		)
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, AccessError{Error: d.Notice(), Code: "ACCESS_DENIED"})
		return
	}

	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, AccessError{Error: "password required", Code: "ACCESS_REQUIRED"})
}
