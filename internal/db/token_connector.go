package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/payetl/pkg/payetl"
)

// TokenProvider abstracts cloud token acquisition for database authentication.
type TokenProvider interface {
	// GetToken returns a token to use as the password and its expiry time.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider for logs. It must not include secrets.
	String() string
}

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens.
type TokenBasedConnector struct {
	config        *payetl.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error messages (e.g., "AWS IAM").
func NewTokenBasedConnector(config *payetl.ConnectionConfig, tokenProvider TokenProvider, providerName string) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	token, _, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s token: %v: %w", c.providerName, err, payetl.ErrConnectionFailed)
	}

	configWithToken := *c.config
	configWithToken.Password = token
	if configWithToken.SSLMode == "" || configWithToken.SSLMode == "disable" {
		// RDS rejects IAM tokens over plaintext connections.
		configWithToken.SSLMode = "require"
	}

	return openPool(ctx, &configWithToken)
}
