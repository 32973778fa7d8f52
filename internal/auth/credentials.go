package auth

import (
	"context"
	"fmt"
)

// TokenCredentials attaches a freshly signed token to every outgoing call. It
// implements credentials.PerRPCCredentials.
type TokenCredentials struct {
	service *Service
	client  string
	secure  bool
}

func NewTokenCredentials(service *Service, client string, secure bool) *TokenCredentials {
	return &TokenCredentials{service: service, client: client, secure: secure}
}

func (c *TokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	token, err := c.service.GenerateToken(c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to sign backend token: %w", err)
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

func (c *TokenCredentials) RequireTransportSecurity() bool {
	return c.secure
}
