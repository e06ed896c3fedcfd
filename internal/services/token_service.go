package services

import (
	"time"

	"relaydesk/internal/domain"
	relay_errors "relaydesk/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type AccessClaims struct {
	UserID string `json:"sub"`
	TeamID string `json:"tid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and validates the HMAC access tokens the API
// accepts. Identity itself lives in the surrounding CRM; this service
// only trusts its signatures.
type TokenService struct {
	jwtSecret []byte
	accessTTL time.Duration
}

func NewTokenService(secret string, accessTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &TokenService{jwtSecret: []byte(secret), accessTTL: accessTTL}
}

func (s *TokenService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, relay_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, relay_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, relay_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, relay_errors.ErrUnauthorized
	}

	return *claims, nil
}

// ActorFromClaims validates the claim identifiers and builds the Actor
// carried through request contexts.
func (s *TokenService) ActorFromClaims(claims AccessClaims) (Actor, error) {
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Actor{}, relay_errors.ErrUnauthorized
	}
	teamID, err := uuid.Parse(claims.TeamID)
	if err != nil {
		return Actor{}, relay_errors.ErrUnauthorized
	}

	role := domain.ActorRole(claims.Role)
	if role != domain.ActorRoleAdmin && role != domain.ActorRoleMember {
		role = domain.ActorRoleMember
	}

	return Actor{UserID: userID, TeamID: teamID, Role: role}, nil
}

// NewAccessToken exists for tooling and tests; production tokens come
// from the identity provider with the same claim shape.
func (s *TokenService) NewAccessToken(actor Actor) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)

	claims := AccessClaims{
		UserID: actor.UserID.String(),
		TeamID: actor.TeamID.String(),
		Role:   string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(s.accessTTL.Seconds()), nil
}
