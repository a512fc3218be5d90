package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stagehand-music/stagehand/internal/auth"
	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/logging"
	"github.com/stagehand-music/stagehand/internal/storage"
)

type principalKey struct{}

// Auth authenticates admin requests. A Bearer API key is checked first; the
// bootstrap key is accepted only while no API keys exist. Without an
// Authorization header a valid OIDC session cookie is accepted when
// sessions is non-nil.
func Auth(store storage.Storage, bootstrapKey string, sessions *auth.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if sessions != nil {
					if session, err := sessions.Get(r); err == nil {
						serveAs(next, w, r, session.Principal())
						return
					}
				}
				unauthorized(w, "missing authorization header")
				return
			}

			apiKey, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				unauthorized(w, "invalid authorization header format")
				return
			}
			if apiKey == "" {
				unauthorized(w, "empty API key")
				return
			}

			keyCount, err := store.CountAPIKeys(ctx)
			if err != nil {
				logging.Ctx(ctx).Error().Err(err).Msg("counting API keys")
				writeError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error")
				return
			}

			if keyCount == 0 && bootstrapKey != "" &&
				subtle.ConstantTimeCompare([]byte(apiKey), []byte(bootstrapKey)) == 1 {
				serveAs(next, w, r, &domain.Principal{Kind: "bootstrap", ID: "bootstrap", Name: "Bootstrap Key"})
				return
			}

			storedKey, err := store.GetAPIKeyByHash(ctx, hashAPIKey(apiKey))
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					unauthorized(w, "invalid API key")
					return
				}
				logging.Ctx(ctx).Error().Err(err).Msg("looking up API key")
				writeError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error")
				return
			}

			// Fire and forget; must not hold up the request.
			go func(id string) {
				bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := store.UpdateAPIKeyLastUsed(bg, id); err != nil {
					logging.Ctx(ctx).Debug().Err(err).Str("key_id", id).Msg("updating API key last use")
				}
			}(storedKey.ID)

			serveAs(next, w, r, &domain.Principal{Kind: "api_key", ID: storedKey.ID, Name: storedKey.Name})
		})
	}
}

func serveAs(next http.Handler, w http.ResponseWriter, r *http.Request, p *domain.Principal) {
	ctx := context.WithValue(r.Context(), principalKey{}, p)
	logger := logging.Ctx(ctx).With().Str("principal", p.Kind+":"+p.ID).Logger()
	ctx = logging.WithLogger(ctx, &logger)
	next.ServeHTTP(w, r.WithContext(ctx))
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="stagehand"`)
	writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, message)
}

// hashAPIKey creates a SHA-256 hash of the API key.
// We use SHA-256 for fast lookups since API keys are already high-entropy random strings.
func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// PrincipalFromContext returns the authenticated admin, or nil.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey{}).(*domain.Principal)
	return p
}
