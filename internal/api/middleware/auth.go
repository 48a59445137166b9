package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/api/shared"
	"github.com/phrazzld/tahfidz-api/internal/config"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/phrazzld/tahfidz-api/internal/redact"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// leeway absorbs clock skew between this service and the identity provider.
const leeway = 30 * time.Second

// AuthMiddleware verifies HS256 learner tokens issued by the identity
// provider. The token subject is the learner UUID.
type AuthMiddleware struct {
	secret []byte
	parser *jwt.Parser
	logger *slog.Logger
}

// NewAuthMiddleware creates an AuthMiddleware from the auth settings.
func NewAuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) (*AuthMiddleware, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &AuthMiddleware{
		secret: []byte(cfg.JWTSecret),
		parser: jwt.NewParser(opts...),
		logger: logger.With(slog.String("component", "auth_middleware")),
	}, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// learner ID in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContextOrDefault(r.Context(), m.logger)

		learnerID, err := m.learnerFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			message := "Invalid token"
			switch {
			case errors.Is(err, ErrMissingToken):
				message = "Authorization header required"
			case errors.Is(err, ErrExpiredToken):
				message = "Token expired"
			}
			log.Debug("authentication failed", slog.String("error", redact.Error(err)))
			shared.RespondWithError(w, r, http.StatusUnauthorized, message)
			return
		}

		ctx := shared.WithLearnerID(r.Context(), learnerID)
		ctx = logger.WithLogger(ctx, log.With(slog.String("learner_id", learnerID.String())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) learnerFromHeader(header string) (uuid.UUID, error) {
	if header == "" {
		return uuid.Nil, ErrMissingToken
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return uuid.Nil, fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredToken
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	learnerID, err := uuid.Parse(claims.Subject)
	if err != nil || learnerID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a learner id", ErrInvalidToken)
	}
	return learnerID, nil
}
