package main

import (
	"testing"

	"herbtrace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestJWTRoundTrip(t *testing.T) {
	u := &models.User{
		ID:       primitive.NewObjectID(),
		Username: "farmer1",
		FullName: "Ravi Kumar",
		Role:     models.RoleFarmer,
	}
	tok, err := signJWT("secret", u)
	require.NoError(t, err)

	got, err := parseJWT("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "farmer1", got.Username)
	assert.Equal(t, "Ravi Kumar", got.FullName)
	assert.Equal(t, models.RoleFarmer, got.Role)
	assert.Equal(t, u.ID.Hex(), got.ID)
}

func TestJWTWrongSecret(t *testing.T) {
	u := &models.User{ID: primitive.NewObjectID(), Username: "farmer1", Role: models.RoleFarmer}
	tok, err := signJWT("secret", u)
	require.NoError(t, err)

	_, err = parseJWT("other", tok)
	assert.Error(t, err)
}

func TestJWTGarbage(t *testing.T) {
	_, err := parseJWT("secret", "not.a.token")
	assert.Error(t, err)
}
