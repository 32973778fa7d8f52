package main

import (
	"errors"
	"fmt"

	"github.com/elskow/erlbuild/internal/auth"
)

// TokenCmd implements the 'token' command.
type TokenCmd struct {
	Client     string `help:"Client name carried by the token" default:"cli"`
	HashSecret string `name:"hash-secret" help:"Print the bcrypt hash of this secret for auth.client_secret_hash and exit"`
}

func (c *TokenCmd) Run(g *Global) error {
	svc := auth.NewService(&g.Config.Auth, g.Logger)
	if c.HashSecret != "" {
		hash, err := svc.HashSecret(c.HashSecret)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	}

	if g.Config.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not configured")
	}
	token, err := svc.GenerateToken(c.Client)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
