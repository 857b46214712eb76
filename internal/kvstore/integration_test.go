//go:build integration

package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"hardware-inventory/internal/testutil"
)

func TestPostgresIntegration(t *testing.T) {
	testutil.RequireIntegration(t)

	pool := testutil.NewTestPool(t)
	s, err := NewPostgresWithPool(context.Background(), pool)
	require.NoError(t, err)
	defer s.Close()

	runContract(t, s)
}

func TestRedisIntegration(t *testing.T) {
	testutil.RequireIntegration(t)

	s := NewRedisWithClient(testutil.NewTestRedis(t), "test:")
	defer s.Close()

	runContract(t, s)
}
