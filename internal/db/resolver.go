package db

import (
	"fmt"

	"github.com/vvka-141/payetl/internal/config"
	"github.com/vvka-141/payetl/pkg/payetl"
)

// ResolveConnection turns process configuration into connection parameters.
// DB_CREDENTIALS wins over DATABASE_URL; DB_AUTH selects the connector.
func ResolveConnection(cfg *config.Config) (*payetl.ConnectionConfig, error) {
	var (
		connConfig *payetl.ConnectionConfig
		err        error
	)
	switch {
	case cfg.DBCredentials != "":
		connConfig, err = ParseCredentials(cfg.DBCredentials)
	case cfg.DatabaseURL != "":
		connConfig, err = ParseConnectionString(cfg.DatabaseURL)
		if err != nil {
			err = fmt.Errorf("DATABASE_URL: %v: %w", err, payetl.ErrInvalidConfig)
		}
	default:
		err = fmt.Errorf("DB_CREDENTIALS or DATABASE_URL is required: %w", payetl.ErrInvalidConfig)
	}
	if err != nil {
		return nil, err
	}

	connConfig.AuthMethod, err = payetl.ParseAuthMethod(cfg.DBAuth)
	if err != nil {
		return nil, err
	}
	connConfig.AWSRegion = cfg.Region

	if err := connConfig.Validate(); err != nil {
		return nil, err
	}
	return connConfig, nil
}
