package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/services"
	"github.com/desertthunder/passtheaux/internal/shared"
	"github.com/go-chi/chi/v5/middleware"
)

// SubjectHeader optionally names the Spotify user a bearer token belongs to, saving a profile lookup.
const SubjectHeader = "X-Spotify-User"

type credentialKey struct{}

// CredentialFrom returns the credential attached by [RequireCredential].
func CredentialFrom(ctx context.Context) (models.Credential, bool) {
	cred, ok := ctx.Value(credentialKey{}).(models.Credential)
	return cred, ok
}

// RequestLogger logs each request with its status and duration.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Millisecond),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// RequireCredential builds a [models.Credential] from the Authorization header.
//
// The subject comes from [SubjectHeader] when present, otherwise from the streaming profile of the token.
func RequireCredential(streaming services.Streaming) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, err)
				return
			}

			cred := models.Credential{
				AccessToken: token,
				SubjectID:   strings.TrimSpace(r.Header.Get(SubjectHeader)),
			}

			if cred.SubjectID == "" {
				user, err := streaming.CurrentUser(r.Context(), cred)
				if err != nil {
					writeError(w, err)
					return
				}
				cred.SubjectID = user.ID
			}

			ctx := context.WithValue(r.Context(), credentialKey{}, cred)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("%w: Authorization header is required", shared.ErrMissingCredentials)
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: expected a Bearer token", shared.ErrMissingCredentials)
	}
	return strings.TrimSpace(token), nil
}
