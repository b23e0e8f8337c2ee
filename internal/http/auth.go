package http

import (
	"context"
	"net/http"

	"budgy/internal/log"
	"budgy/internal/services"
)

type contextKey string

const (
	sessionContextKey contextKey = "ledger_session"
	ownerContextKey   contextKey = "owner"
)

// OwnerResolver turns a bearer token into an owner name.
type OwnerResolver interface {
	Owner(token string) (string, error)
}

// withSession authenticates the request and attaches the owner's ledger
// session to its context.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			UnauthorizedError(err.Error()).Write(w)
			return
		}
		owner, err := s.tokens.Owner(token)
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected bearer token",
				log.FieldErrorType, log.ErrorTypeAuth,
				log.FieldError, err.Error())
			ErrorFromDomain(err).Write(w)
			return
		}
		sess, err := s.registry.Session(owner)
		if err != nil {
			s.writeError(w, r, err, log.OpSignIn)
			return
		}

		logger := log.FromContext(r.Context()).With(log.FieldOwner, owner)
		ctx := log.NewContext(r.Context(), logger)
		ctx = context.WithValue(ctx, sessionContextKey, sess)
		ctx = context.WithValue(ctx, ownerContextKey, owner)
		next(w, r.WithContext(ctx))
	}
}

func sessionFrom(ctx context.Context) *services.LedgerSession {
	sess, _ := ctx.Value(sessionContextKey).(*services.LedgerSession)
	return sess
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerContextKey).(string)
	return owner
}
