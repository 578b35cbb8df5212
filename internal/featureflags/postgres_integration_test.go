//go:build integration

package featureflags_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/database/dbtest"
	"github.com/regentroute/regentroute/internal/featureflags"
)

func TestPostgresRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := featureflags.NewPostgresRepository(dbtest.StartPostgres(t))
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	if _, err := repo.GetFlag(ctx, featureflags.FlagDisableLiveDirections); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Fatalf("expected ErrFlagNotFound, got %v", err)
	}

	err := repo.SetFlags(ctx, []*featureflags.Flag{
		{Key: featureflags.FlagDisableLiveDirections, Value: true},
		{Key: featureflags.FlagIncludeFlightsByDefault, Value: false},
	})
	if err != nil {
		t.Fatalf("set flags: %v", err)
	}

	service := featureflags.NewService(featureflags.ServiceConfig{Repository: repo, Logger: zerolog.Nop()})
	if !service.IsLiveDirectionsDisabled(ctx) {
		t.Error("expected live directions to be disabled")
	}
	if service.IncludeFlightsByDefault(ctx) {
		t.Error("expected flights to be excluded by default")
	}

	if err := repo.DeleteFlag(ctx, featureflags.FlagDisableLiveDirections); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, err := repo.GetAllFlags(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 flag, got %d", len(all))
	}
}
