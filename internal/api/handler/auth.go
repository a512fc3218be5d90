package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/stagehand-music/stagehand/internal/api/middleware"
	"github.com/stagehand-music/stagehand/internal/auth"
	"github.com/stagehand-music/stagehand/internal/logging"
)

// AuthHandler handles admin sign-in through OIDC.
type AuthHandler struct {
	provider  *auth.OIDCProvider
	sessions  *auth.SessionManager
	states    *auth.StateStore
	logoutURL string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(provider *auth.OIDCProvider, sessions *auth.SessionManager, states *auth.StateStore, logoutURL string) *AuthHandler {
	return &AuthHandler{provider: provider, sessions: sessions, states: states, logoutURL: logoutURL}
}

// Login redirects to the identity provider. ?return_to= names a local path
// to come back to.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	stateData, err := h.states.Generate(w, safeReturnTo(r.URL.Query().Get("return_to")))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to generate OIDC state")
		respondError(w, http.StatusInternalServerError, "failed to initiate login")
		return
	}
	http.Redirect(w, r, h.provider.AuthCodeURL(stateData.State, stateData.Nonce), http.StatusSeeOther)
}

// Callback completes the code flow and issues the session cookie.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.Ctx(ctx)
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		desc := q.Get("error_description")
		if desc == "" {
			desc = errParam
		}
		logger.Warn().Str("error", errParam).Str("description", desc).Msg("OIDC provider returned error")
		respondError(w, http.StatusUnauthorized, desc)
		return
	}

	code := q.Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "no authorization code received")
		return
	}

	stateData, err := h.states.Validate(r, q.Get("state"))
	if err != nil {
		logger.Warn().Err(err).Msg("OIDC state validation failed")
		respondError(w, http.StatusBadRequest, "invalid state parameter")
		return
	}
	h.states.Clear(w)

	claims, err := h.provider.Exchange(ctx, code, stateData.Nonce)
	if err != nil {
		logger.Warn().Err(err).Msg("OIDC token exchange failed")
		respondError(w, http.StatusUnauthorized, "failed to complete authentication")
		return
	}
	if err := h.provider.ValidateClaims(claims); err != nil {
		logger.Warn().Err(err).Str("email", claims.Email).Msg("OIDC claims rejected")
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	session := &auth.Session{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}
	if err := h.sessions.Create(w, session); err != nil {
		logger.Error().Err(err).Msg("failed to create session")
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	logger.Info().Str("email", claims.Email).Msg("admin signed in")

	returnTo := stateData.ReturnTo
	if returnTo == "" {
		returnTo = "/"
	}
	http.Redirect(w, r, returnTo, http.StatusSeeOther)
}

// Logout clears the session and, when configured, sends the browser to the
// provider's logout page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	if h.logoutURL != "" {
		http.Redirect(w, r, h.logoutURL, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me reports who the current admin request is authenticated as.
func Me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		respondError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	respondJSON(w, http.StatusOK, principal)
}

// safeReturnTo keeps only same-origin absolute paths.
func safeReturnTo(s string) string {
	if s == "" || !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return s
}
