package featureflags_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/database"
	"github.com/regentroute/regentroute/internal/featureflags"
)

func newService(repo featureflags.Repository, ttl time.Duration) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{Repository: repo, Logger: zerolog.Nop(), CacheTTL: ttl})
}

func TestService_Defaults(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{}), time.Minute)
	ctx := context.Background()

	if service.IsLiveDirectionsDisabled(ctx) {
		t.Error("live directions should be on by default")
	}
	if service.IsFlightOffersDisabled(ctx) {
		t.Error("flight offers should be on by default")
	}
	if !service.IncludeFlightsByDefault(ctx) {
		t.Error("flights should be quoted by default")
	}
	if got := service.DefaultFerryCurveWidth(ctx, 1); got != 0.2 {
		t.Errorf("DefaultFerryCurveWidth = %v, want 0.2", got)
	}
	if !service.IsDisabled(ctx, featureflags.FlagDisableLiveDirections) {
		t.Error("IsDisabled should invert IsEnabled")
	}
	if f := service.GetFlag(ctx, "unknown_flag"); f != nil {
		t.Errorf("unknown key returned %+v", f)
	}

	all := service.GetAllFlags(ctx)
	for key := range featureflags.DefaultFlags() {
		if _, ok := all[key]; !ok {
			t.Errorf("GetAllFlags is missing %q", key)
		}
	}
}

func TestService_SetFlagsStampsAndApplies(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository(), time.Hour)
	ctx := context.Background()

	// Populate the snapshot before writing so the write must update it.
	_ = service.GetAllFlags(ctx)

	before := time.Now().Add(-time.Second)
	flags := []*featureflags.Flag{
		{Key: featureflags.FlagDisableLiveDirections, Value: true},
		{Key: featureflags.FlagDefaultFerryCurveWidth, Value: 0.35},
	}
	if err := service.SetFlags(ctx, flags); err != nil {
		t.Fatalf("SetFlags: %v", err)
	}
	for _, f := range flags {
		if f.UpdatedAt.Before(before) {
			t.Errorf("%s: UpdatedAt not stamped", f.Key)
		}
	}

	if !service.IsLiveDirectionsDisabled(ctx) {
		t.Error("expected live directions to be disabled")
	}
	if got := service.DefaultFerryCurveWidth(ctx, 0); got != 0.35 {
		t.Errorf("DefaultFerryCurveWidth = %v, want 0.35", got)
	}

	if err := service.SetFlag(ctx, &featureflags.Flag{Key: featureflags.FlagDisableFlightOffers, Value: true}); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}
	if !service.IsFlightOffersDisabled(ctx) {
		t.Error("expected flight offers to be disabled")
	}
}

func TestService_InvalidateCache(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	service := newService(repo, time.Hour)
	ctx := context.Background()

	if service.IsLiveDirectionsDisabled(ctx) {
		t.Fatal("unexpected initial value")
	}

	// A write that bypasses the service is invisible until invalidation.
	_ = repo.SetFlag(ctx, &featureflags.Flag{Key: featureflags.FlagDisableLiveDirections, Value: true})
	if service.IsLiveDirectionsDisabled(ctx) {
		t.Error("expected cached value before invalidation")
	}

	service.InvalidateCache()
	if !service.IsLiveDirectionsDisabled(ctx) {
		t.Error("expected fresh value after invalidation")
	}
}

func TestFlag_ValueHelpers(t *testing.T) {
	tests := []struct {
		name       string
		value      interface{}
		wantBool   bool
		wantString string
		wantInt    int
		wantFloat  float64
	}{
		{"bool", true, true, "-", -1, -1},
		{"string", "on", false, "on", -1, -1},
		{"float", 42.5, true, "-", 42, 42.5},
		{"zero", 0.0, false, "-", 0, 0},
		{"int", 7, true, "-", 7, 7},
		{"json number", json.Number("12"), true, "-", 12, 12},
		{"object", map[string]interface{}{"a": 1}, false, "-", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &featureflags.Flag{Key: "test", Value: tt.value}
			if got := f.BoolValue(false); got != tt.wantBool {
				t.Errorf("BoolValue() = %v, want %v", got, tt.wantBool)
			}
			if got := f.StringValue("-"); got != tt.wantString {
				t.Errorf("StringValue() = %v, want %v", got, tt.wantString)
			}
			if got := f.IntValue(-1); got != tt.wantInt {
				t.Errorf("IntValue() = %v, want %v", got, tt.wantInt)
			}
			if got := f.Float64Value(-1); got != tt.wantFloat {
				t.Errorf("Float64Value() = %v, want %v", got, tt.wantFloat)
			}
		})
	}

	var nilFlag *featureflags.Flag
	if !nilFlag.BoolValue(true) || nilFlag.StringValue("d") != "d" || nilFlag.IntValue(3) != 3 || nilFlag.Float64Value(0.5) != 0.5 {
		t.Error("nil flag should yield defaults")
	}
}

func TestInMemoryRepository_NotFound(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	ctx := context.Background()

	if _, err := repo.GetFlag(ctx, "nonexistent"); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("GetFlag: expected ErrFlagNotFound, got %v", err)
	}
	if err := repo.DeleteFlag(ctx, featureflags.FlagDisableLiveDirections); err != nil {
		t.Fatalf("DeleteFlag: %v", err)
	}
	if err := repo.DeleteFlag(ctx, featureflags.FlagDisableLiveDirections); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("second DeleteFlag: expected ErrFlagNotFound, got %v", err)
	}
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	repo := featureflags.NewSQLiteRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	if _, err := repo.GetFlag(ctx, featureflags.FlagDisableFlightOffers); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Fatalf("expected ErrFlagNotFound, got %v", err)
	}

	err = repo.SetFlags(ctx, []*featureflags.Flag{
		{Key: featureflags.FlagDisableFlightOffers, Value: true},
		{Key: featureflags.FlagDefaultFerryCurveWidth, Value: 0.5},
	})
	if err != nil {
		t.Fatalf("set flags: %v", err)
	}
	// Upsert.
	if err := repo.SetFlag(ctx, &featureflags.Flag{Key: featureflags.FlagDefaultFerryCurveWidth, Value: 0.75}); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	service := featureflags.NewService(featureflags.ServiceConfig{Repository: repo, Logger: zerolog.Nop()})
	if !service.IsFlightOffersDisabled(ctx) {
		t.Error("expected flight offers to be disabled")
	}
	if got := service.DefaultFerryCurveWidth(ctx, 0); got != 0.75 {
		t.Errorf("expected curve width 0.75, got %v", got)
	}

	all, err := repo.GetAllFlags(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 flags, got %d", len(all))
	}

	if err := repo.DeleteFlag(ctx, featureflags.FlagDisableFlightOffers); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteFlag(ctx, featureflags.FlagDisableFlightOffers); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("expected ErrFlagNotFound on second delete, got %v", err)
	}
}

type flakyRepository struct {
	*featureflags.InMemoryRepository
	fail  bool
	reads int
}

func (r *flakyRepository) GetAllFlags(ctx context.Context) (map[string]*featureflags.Flag, error) {
	r.reads++
	if r.fail {
		return nil, errors.New("connection reset")
	}
	return r.InMemoryRepository.GetAllFlags(ctx)
}

func TestService_ServesSnapshotWithinTTL(t *testing.T) {
	repo := &flakyRepository{InMemoryRepository: featureflags.NewInMemoryRepository()}
	service := featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Hour,
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = service.IsFlightOffersDisabled(ctx)
	}
	if repo.reads != 1 {
		t.Errorf("expected one repository read within the TTL, got %d", repo.reads)
	}
}

func TestService_KeepsPreviousValuesWhenRefreshFails(t *testing.T) {
	repo := &flakyRepository{InMemoryRepository: featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{
		featureflags.FlagDisableFlightOffers: {Key: featureflags.FlagDisableFlightOffers, Value: true},
	})}
	service := featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Nanosecond,
	})
	ctx := context.Background()

	if !service.IsFlightOffersDisabled(ctx) {
		t.Fatal("expected stored override to apply")
	}

	repo.fail = true
	time.Sleep(time.Millisecond)
	if !service.IsFlightOffersDisabled(ctx) {
		t.Error("expected previous snapshot to be served after a failed refresh")
	}
}

func TestService_UnreadableRepositoryFallsBackToDefaults(t *testing.T) {
	repo := &flakyRepository{InMemoryRepository: featureflags.NewInMemoryRepository(), fail: true}
	service := featureflags.NewService(featureflags.ServiceConfig{Repository: repo, Logger: zerolog.Nop()})
	ctx := context.Background()

	if !service.IncludeFlightsByDefault(ctx) {
		t.Error("expected include_flights_by_default from defaults")
	}
	if got := len(service.GetAllFlags(ctx)); got != len(featureflags.DefaultFlags()) {
		t.Errorf("expected %d default flags, got %d", len(featureflags.DefaultFlags()), got)
	}
}
