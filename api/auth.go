/*
auth.go - Actor identity for API requests

PURPOSE:
  Every mutation in the engine takes a leave.Actor. This middleware resolves
  the actor once per request and stores it in the request context.

MODES:
  JWT (JWTSecret set):
    Authorization: Bearer <HS256 token>
    Claims: sub = employee id, role = leave.Role, name (optional)
  Header (JWTSecret empty, development only):
    X-Actor-ID, X-Actor-Role, X-Actor-Name

  The role claim is trusted as issued. The engine still checks stage
  assignment against the directory for approvals.

SEE ALSO:
  - leave/auth.go: Actor and permission checks
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/logger"
)

// Claims is the JWT payload.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for actor.
func IssueToken(secret string, actor leave.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(actor.Role),
		Name: actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type actorKey struct{}

// ActorFrom returns the actor resolved by Authenticate.
func ActorFrom(ctx context.Context) (leave.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(leave.Actor)
	return a, ok
}

// Authenticate resolves the actor or answers 401.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := resolveActor(secret, r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Authentication required", err)
				return
			}
			ctx := context.WithValue(r.Context(), actorKey{}, actor)
			ctx = logger.WithFields(ctx, map[string]any{"actor_id": actor.ID, "actor_role": string(actor.Role)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveActor(secret string, r *http.Request) (leave.Actor, error) {
	var actor leave.Actor
	if secret != "" {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			return actor, errors.New("missing bearer token")
		}
		claims, err := parseToken(secret, raw)
		if err != nil {
			return actor, err
		}
		actor = leave.Actor{ID: claims.Subject, Name: claims.Name, Role: leave.Role(claims.Role)}
	} else {
		actor = leave.Actor{
			ID:   r.Header.Get("X-Actor-ID"),
			Name: r.Header.Get("X-Actor-Name"),
			Role: leave.Role(r.Header.Get("X-Actor-Role")),
		}
	}
	if actor.ID == "" {
		return actor, errors.New("actor id is missing")
	}
	if !actor.Role.Valid() {
		return actor, errors.New("actor role is missing or unknown")
	}
	return actor, nil
}
