package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/auth"
	"github.com/sakif/starminder/internal/service"
)

const stateCookieName = "oauth_state"

// OAuthProvider is the slice of *auth.GitHubProvider the handler uses.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.SocialLogin, error)
}

// AuthHandler runs the GitHub login flow and the session endpoints.
//
//   - HandleGitHubLogin    → redirect to GitHub with a CSRF state cookie
//   - HandleGitHubCallback → check state, exchange code, save user, set JWT cookie
//   - HandleLogout         → clear the JWT cookie
//   - HandleMe             → the logged-in user's profile
type AuthHandler struct {
	provider OAuthProvider
	auth     *service.AuthService
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthHandler takes the session length so the cookie expires with the token.
func NewAuthHandler(provider OAuthProvider, authService *service.AuthService, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, auth: authService, tokenTTL: tokenTTL, logger: logger}
}

// HandleGitHubLogin redirects to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// The random state goes into a short-lived HttpOnly cookie and into the
// authorization URL. GitHub echoes it back on the callback, and a mismatch
// means the callback was not started by this browser.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the login.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
//  1. state query must equal the state cookie
//  2. GitHub's "error" param (user pressed Cancel) redirects home
//  3. code → SocialLogin via the provider
//  4. AuthService logs the attempt, saves the user and issues a JWT
//  5. JWT goes into an HttpOnly cookie, browser goes to "/"
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.WarnContext(r.Context(), "auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if q.Get("state") != stateCookie.Value {
		h.logger.WarnContext(r.Context(), "auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	// Single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.InfoContext(r.Context(), "auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	login, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), login)
	if err != nil {
		// AuthService has already logged the details.
		status := http.StatusInternalServerError
		if errors.Is(err, apperror.ErrAuthentication) {
			status = http.StatusUnauthorized
		}
		http.Error(w, "authentication failed", status)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout deletes the session cookie.
//
// HTTP: POST /auth/logout
//
// Sessions are stateless JWTs, so the token itself stays valid until it
// expires; the browser just stops sending it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the current user.
//
// HTTP: GET /api/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "HandleMe: loading user", slog.String("userID", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
