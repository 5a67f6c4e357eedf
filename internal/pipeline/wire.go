package pipeline

import (
	"context"

	"github.com/vvka-141/payetl/internal/config"
	"github.com/vvka-141/payetl/internal/db"
	"github.com/vvka-141/payetl/internal/store"
	"github.com/vvka-141/payetl/pkg/payetl"
)

// FromConfig validates cfg and builds a Pipeline backed by S3 and the
// configured database.
func FromConfig(ctx context.Context, cfg *config.Config, logger payetl.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	connConfig, err := db.ResolveConnection(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := db.NewConnector(connConfig)
	if err != nil {
		return nil, err
	}

	objects, err := store.NewS3Store(ctx, cfg.Region, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return New(cfg, objects, connector, logger), nil
}
