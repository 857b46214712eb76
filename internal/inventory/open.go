package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hardware-inventory/internal/kvstore"
)

// Open connects the configured key-value backend and loads the inventory
// from it. Closing the returned store also closes the backend.
func Open(ctx context.Context, cfg kvstore.Config, opts ...Option) (*Store, error) {
	kv, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Driver, err)
	}

	s := New(kv, opts...)
	s.ownsKV = true
	if err := s.Load(ctx); err != nil {
		if cerr := s.Close(ctx); cerr != nil {
			s.logger.Warn("close after failed load", zap.Error(cerr))
		}
		return nil, err
	}
	return s, nil
}
