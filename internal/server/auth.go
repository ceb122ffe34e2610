package server

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"docsmith/internal/apperr"
	"docsmith/internal/models"
)

type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens. Without it every bearer token
	// is rejected and requests run anonymously.
	JWTSecret string
}

// Claims is the session payload issued by the auth collaborator.
type Claims struct {
	jwt.RegisteredClaims
	Provider    string `json:"provider,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

type sessionKey struct{}

func withSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// sessionFromContext returns the caller's session; anonymous callers get
// the zero Session.
func sessionFromContext(ctx context.Context) models.Session {
	s, _ := ctx.Value(sessionKey{}).(models.Session)
	return s
}

func requireUser(ctx context.Context, op string) (models.Session, error) {
	s := sessionFromContext(ctx)
	if s.UserID == "" {
		return s, apperr.Unauthorized(op, "authentication required")
	}
	return s, nil
}

func authenticateJWT(token, secret string) (models.Session, error) {
	if strings.TrimSpace(secret) == "" {
		return models.Session{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return models.Session{}, err
	}
	if !parsed.Valid {
		return models.Session{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return models.Session{}, errors.New("subject claim required")
	}
	return models.Session{
		UserID:      claims.Subject,
		Provider:    strings.ToLower(strings.TrimSpace(claims.Provider)),
		AccessToken: claims.AccessToken,
	}, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// newAuthMiddleware attaches the session from a bearer token. Requests
// without Authorization continue anonymously; an invalid token is a 401.
func newAuthMiddleware(basePath string, cfg AuthConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	healthPath := path.Join(basePath, "health")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.URL.Path, basePath) || req.URL.Path == healthPath {
				next.ServeHTTP(w, req)
				return
			}
			authz := strings.TrimSpace(req.Header.Get("Authorization"))
			if authz == "" {
				next.ServeHTTP(w, req)
				return
			}
			token, ok := bearerToken(authz)
			if !ok {
				respondError(w, newAPIError(http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid credentials"))
				return
			}
			session, err := authenticateJWT(token, cfg.JWTSecret)
			if err != nil {
				logger.Debug("rejected bearer token", zap.Error(err))
				respondError(w, newAPIError(http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid credentials"))
				return
			}
			next.ServeHTTP(w, req.WithContext(withSession(req.Context(), session)))
		})
	}
}
