// Package auth builds the authenticator that guards the admin endpoints.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	jwttoken "huanbo/internal/jwt_token"
	"huanbo/internal/platform/config"
	dErrors "huanbo/pkg/domain-errors"
	"huanbo/pkg/platform/middleware/admin"
)

const jwtIssuer = "huanbo-web"

// StaticToken accepts exactly one preconfigured bearer token.
type StaticToken struct {
	token []byte
}

func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: []byte(token)}
}

func (s *StaticToken) Authenticate(_ context.Context, token string) (string, error) {
	if len(s.token) == 0 || subtle.ConstantTimeCompare([]byte(token), s.token) != 1 {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid admin token")
	}
	return jwttoken.AdminSubject, nil
}

// New returns the authenticator selected by cfg.Mode.
func New(cfg config.Admin) (admin.Authenticator, error) {
	switch cfg.Mode {
	case "static", "":
		return NewStaticToken(cfg.Token), nil
	case "jwt":
		return NewJWTIssuer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown admin auth mode %q", cfg.Mode)
	}
}

// NewJWTIssuer returns the service used to mint admin tokens from the CLI.
func NewJWTIssuer(cfg config.Admin) *jwttoken.JWTService {
	return jwttoken.NewJWTService(cfg.JWTSecret, jwtIssuer)
}
