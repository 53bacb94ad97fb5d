package main

import (
	"errors"
	"time"

	"herbtrace/models"

	"github.com/golang-jwt/jwt/v5"
)

// authUser is the identity attached to every authenticated request.
type authUser struct {
	ID       string
	Username string
	FullName string
	Role     models.Role
}

// signJWT creates an HS256 token with 24h expiration. The username rides in
// sub; role and full name travel as custom claims so the middleware never has
// to hit the database.
func signJWT(secret string, u *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  u.Username,
		"uid":  u.ID.Hex(),
		"role": string(u.Role),
		"name": u.FullName,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
		"iss":  "herbtrace",
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// parseJWT validates the token and reconstructs the acting user.
func parseJWT(secret, tokenStr string) (authUser, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return authUser{}, errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return authUser{}, errors.New("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return authUser{}, errors.New("no subject")
	}
	uid, _ := claims["uid"].(string)
	role, _ := claims["role"].(string)
	name, _ := claims["name"].(string)
	return authUser{ID: uid, Username: sub, FullName: name, Role: models.Role(role)}, nil
}
