//go:build integration

package comparison

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regentroute/regentroute/internal/database/dbtest"
)

func init() {
	extraRepositories["postgres"] = func(t *testing.T) Repository {
		repo := NewPostgresRepository(dbtest.StartPostgres(t))
		require.NoError(t, repo.EnsureSchema(context.Background()))
		return repo
	}
}
