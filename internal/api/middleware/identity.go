package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/TWRT/sprint-manager/internal/api/response"
	"github.com/TWRT/sprint-manager/internal/client"
	"github.com/TWRT/sprint-manager/internal/client/identity"
	"github.com/TWRT/sprint-manager/internal/logging"
	"github.com/TWRT/sprint-manager/internal/metrics"
	"github.com/TWRT/sprint-manager/internal/models"
)

// RequireIdentity resolves the caller from the session cookie before the
// wrapped handler runs. The handler only ever sees requests whose caller
// the identity service confirmed; everything else is answered here.
func RequireIdentity(resolver client.IdentityResolver, cookieName string, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqLogger := logger.With(logging.RequestID(RequestIDFromContext(ctx)))

			var credential string
			if cookie, err := r.Cookie(cookieName); err == nil {
				credential = cookie.Value
			}

			var subject string
			err := identity.ErrUnauthenticated
			if credential != "" {
				started := time.Now()
				subject, err = resolver.Resolve(ctx, credential)
				m.RecordRemoteCall("identity", "resolve", started, err)
			}
			if err != nil {
				status, kind, outcome := classifyIdentityError(err)
				m.RecordIdentity(outcome)
				reqLogger.Warn("identity resolution failed",
					logging.Status(outcome),
					slog.String("credential", logging.SanitizeToken(credential)),
					logging.Err(err),
				)
				response.Error(w, status, kind, identityMessage(kind))
				return
			}

			m.RecordIdentity(metrics.ResultSuccess)
			caller := models.Caller{Subject: subject, Credential: credential}
			next.ServeHTTP(w, r.WithContext(WithCaller(ctx, caller)))
		})
	}
}

func classifyIdentityError(err error) (status int, kind, outcome string) {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized, response.KindUnauthenticated, "unauthenticated"
	case errors.Is(err, identity.ErrInvalidIdentity):
		return http.StatusUnauthorized, response.KindInvalidIdentity, "invalid_identity"
	case errors.Is(err, identity.ErrIdentityUnreachable):
		return http.StatusBadGateway, response.KindIdentityUnreachable, "unreachable"
	default:
		return http.StatusInternalServerError, response.KindInternal, "error"
	}
}

func identityMessage(kind string) string {
	switch kind {
	case response.KindUnauthenticated:
		return "A session cookie is required."
	case response.KindInvalidIdentity:
		return "The session could not be matched to a user."
	case response.KindIdentityUnreachable:
		return "The identity service could not be reached."
	default:
		return "Identity resolution failed."
	}
}
