// File: internal/server/auth.go
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/protocol"
)

const tokenIssuer = "repairfill"

var errUnauthorized = errors.New("missing or invalid access token")

// IssueToken signs an HS256 access token for subject that expires after ttl.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("server.auth_secret is not set")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// authenticate admits requests carrying a token signed with the configured
// secret. Websocket handshakes from a browser cannot set headers, so the token
// is also accepted in the access_token query parameter.
func (s *Server) authenticate(next http.Handler) http.Handler {
	key := []byte(s.cfg.AuthSecret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (interface{}, error) { return key, nil }

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			s.respond(w, http.StatusUnauthorized, protocol.Failure(errUnauthorized))
			return
		}
		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
			s.logger.Warn("Rejected access token.", zap.String("path", r.URL.Path), zap.Error(err))
			s.respond(w, http.StatusUnauthorized, protocol.Failure(errUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return r.URL.Query().Get("access_token")
}
