package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
)

const authCookieName = "app_auth"

// cookieMaxAge mirrors the stored session TTL of 7 days.
const cookieMaxAge = 7 * 24 * 60 * 60

type unlockRequest struct {
	Password string `json:"password"`
}

type unlockResponse struct {
	OK bool `json:"ok"`
}

// HandleUnlock serves the unlock page on GET and checks the password on
// POST. A correct password mints a persisted session and sets the HTTP-only
// cookie that the gate middleware looks for.
func (m *Main) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		next := r.URL.Query().Get("next")
		if next == "" || !strings.HasPrefix(next, "/") {
			next = "/"
		}
		if err := m.templates.ExecuteTemplate(w, "unlock.html", struct{ Next string }{Next: next}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	case http.MethodPost:
		m.handleUnlockPost(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (m *Main) handleUnlockPost(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(m.password)) != 1 {
		writeJSON(w, http.StatusUnauthorized, unlockResponse{OK: false})
		return
	}

	token, err := m.sessions.Create()
	if err != nil {
		m.logger.Error("Failed to create session", slog.String(errLoggerKey, err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create session"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, unlockResponse{OK: true})
}

// Static asset extensions that bypass the gate.
var publicExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {},
	".ico": {}, ".webp": {}, ".txt": {}, ".json": {}, ".css": {}, ".js": {},
}

func isPublicPath(p string) bool {
	if strings.HasPrefix(p, "/unlock") ||
		strings.HasPrefix(p, "/static/") ||
		strings.HasPrefix(p, "/favicon.ico") ||
		p == "/health" {
		return true
	}
	_, ok := publicExtensions[path.Ext(p)]
	return ok
}

// Gate redirects any request lacking a live session to the unlock page,
// preserving the original path as the return target. The unlock surface,
// static assets, and the health endpoint stay public.
func (m *Main) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(authCookieName)
		if err == nil && m.sessions.Valid(cookie.Value) {
			next.ServeHTTP(w, r)
			return
		}

		target := "/unlock?next=" + url.QueryEscape(r.URL.Path)
		http.Redirect(w, r, target, http.StatusFound)
	})
}
