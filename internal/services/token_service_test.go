package services

import (
	"testing"

	"relaydesk/internal/domain"
	relay_errors "relaydesk/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", 0)
	actor := Actor{UserID: uuid.New(), TeamID: uuid.New(), Role: domain.ActorRoleAdmin}

	signed, expiresIn, err := svc.NewAccessToken(actor)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), expiresIn)

	claims, err := svc.ParseAccessToken(signed)
	require.NoError(t, err)

	parsed, err := svc.ActorFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, actor, parsed)
}

func TestParseAccessTokenRejectsBadInput(t *testing.T) {
	svc := NewTokenService("test-secret", 0)

	_, err := svc.ParseAccessToken("")
	assert.ErrorIs(t, err, relay_errors.ErrUnauthorized)

	_, err = svc.ParseAccessToken("not.a.token")
	assert.ErrorIs(t, err, relay_errors.ErrUnauthorized)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService("issuer-secret", 0)
	verifier := NewTokenService("other-secret", 0)

	signed, _, err := issuer.NewAccessToken(Actor{UserID: uuid.New(), TeamID: uuid.New(), Role: domain.ActorRoleMember})
	require.NoError(t, err)

	_, err = verifier.ParseAccessToken(signed)
	assert.ErrorIs(t, err, relay_errors.ErrUnauthorized)
}

func TestActorFromClaimsDefaultsUnknownRole(t *testing.T) {
	svc := NewTokenService("test-secret", 0)

	actor, err := svc.ActorFromClaims(AccessClaims{
		UserID: uuid.NewString(),
		TeamID: uuid.NewString(),
		Role:   "SUPERUSER",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ActorRoleMember, actor.Role)
}

func TestActorFromClaimsRejectsMalformedIDs(t *testing.T) {
	svc := NewTokenService("test-secret", 0)

	_, err := svc.ActorFromClaims(AccessClaims{UserID: "abc", TeamID: uuid.NewString()})
	assert.ErrorIs(t, err, relay_errors.ErrUnauthorized)

	_, err = svc.ActorFromClaims(AccessClaims{UserID: uuid.NewString(), TeamID: ""})
	assert.ErrorIs(t, err, relay_errors.ErrUnauthorized)
}
