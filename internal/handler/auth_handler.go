package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"fsanano/item-catalog/internal/session"
)

const maxCodeSize = 8 << 10

// ShowLogin issues a new anti-forgery state and renders the sign-in page.
func (h *Handler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	state := h.auth.BeginLogin(sess)
	h.saveSession(w, r, sess)

	h.render(w, r, http.StatusOK, "login", view{State: state, Providers: h.loginOptions()})
}

// Connect completes a login with p. The request body carries the one-time
// authorization code and the query string the state issued by ShowLogin.
func (h *Handler) Connect(p session.IdentityProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxCodeSize))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, "Failed to read authorization code")
			return
		}

		sess := session.FromContext(r.Context())
		code := strings.TrimSpace(string(body))

		next, alreadyConnected, err := h.auth.CompleteLogin(r.Context(), sess, p, code, r.URL.Query().Get("state"))
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			h.logger.Warn("login rejected",
				zap.String("provider", p.Name()),
				zap.String("reason", authErr.Kind.String()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
			writeJSON(w, http.StatusUnauthorized, authErr.Message)
			return
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}

		if alreadyConnected {
			writeJSON(w, http.StatusOK, "Current user is already connected.")
			return
		}

		h.saveSession(w, r, next)
		h.execute(w, r, http.StatusOK, welcome, "welcome", next)
	}
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if !sess.IsAuthenticated() {
		h.redirect(w, r, "/category", "You were not logged in.")
		return
	}

	next := h.auth.EndSession(r.Context(), sess)
	next.Flash = "You have been successfully logged out."
	h.saveSession(w, r, next)
	http.Redirect(w, r, "/category", http.StatusSeeOther)
}
