package comparison

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentroute/regentroute/internal/database"
	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/trip"
)

func fixture(id string, createdAt time.Time) *SavedComparison {
	origin := geo.Coordinate{Lat: 37.7749, Lon: -122.4194}
	dest := geo.Coordinate{Lat: 37.3382, Lon: -121.8863}
	return &SavedComparison{
		ID:                 id,
		Name:               "Comparison " + id,
		OriginAddress:      "San Francisco, CA",
		DestinationAddress: "San Jose, CA",
		Car: &trip.Estimate{
			Mode:            trip.ModeCar,
			DistanceMiles:   50,
			DurationMinutes: 58,
			Cost:            trip.CostOf(trip.ModeCar, 50),
			Path:            []geo.Coordinate{origin, dest},
			Source:          trip.SourceLive,
			Provider:        "openrouteservice",
		},
		Plane: &trip.Estimate{
			Mode:            trip.ModePlane,
			DistanceMiles:   45,
			DurationMinutes: 75,
			Cost:            trip.CostOf(trip.ModePlane, 45),
			Path:            trip.PlanePath(origin, dest),
			Source:          trip.SourceFormula,
		},
		Display:   Display{FerryCurveDirection: trip.CurveRight, FerryCurveWidth: 0.5},
		CreatedAt: createdAt.UTC(),
	}
}

// extraRepositories lets build-tagged test files add backends that need
// external services.
var extraRepositories = map[string]func(t *testing.T) Repository{}

func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	db, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqliteRepo := NewSQLiteRepository(db)
	require.NoError(t, sqliteRepo.EnsureSchema(context.Background()))

	repos := map[string]Repository{
		"memory": NewInMemoryRepository(),
		"sqlite": sqliteRepo,
	}
	for name, open := range extraRepositories {
		repos[name] = open(t)
	}
	return repos
}

func TestRepository_CreateGet(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 30, 15, 123456789, time.UTC)

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := fixture("cmp_a", created)
			require.NoError(t, repo.Create(ctx, want))

			got, err := repo.Get(ctx, "cmp_a")
			require.NoError(t, err)

			assert.Equal(t, want.Name, got.Name)
			assert.Equal(t, want.OriginAddress, got.OriginAddress)
			assert.Equal(t, want.Display, got.Display)
			assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, want.CreatedAt)
			assert.Equal(t, want.Car, got.Car)
			assert.Equal(t, want.Plane, got.Plane)
			assert.Nil(t, got.Ferry)
			assert.Equal(t, []trip.Mode{trip.ModeCar, trip.ModePlane}, got.Modes())

			_, err = repo.Get(ctx, "cmp_missing")
			assert.ErrorIs(t, err, ErrComparisonNotFound)
		})
	}
}

func TestRepository_ListPagination(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				id := fmt.Sprintf("cmp_%d", i)
				require.NoError(t, repo.Create(ctx, fixture(id, base.Add(time.Duration(i)*time.Hour))))
			}

			n, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 5, n)

			var ids []string
			cursor := ""
			for pages := 0; pages < 5; pages++ {
				result, err := repo.List(ctx, ListOptions{Limit: 2, Cursor: cursor})
				require.NoError(t, err)
				for _, c := range result.Items {
					ids = append(ids, c.ID)
				}
				if result.NextCursor == "" {
					break
				}
				cursor = result.NextCursor
			}

			assert.Equal(t, []string{"cmp_4", "cmp_3", "cmp_2", "cmp_1", "cmp_0"}, ids)
		})
	}
}

func TestRepository_ListEmpty(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			result, err := repo.List(context.Background(), ListOptions{})
			require.NoError(t, err)
			assert.NotNil(t, result.Items)
			assert.Empty(t, result.Items)
			assert.Empty(t, result.NextCursor)
		})
	}
}

func TestRepository_Delete(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, fixture("cmp_del", time.Now())))

			require.NoError(t, repo.Delete(ctx, "cmp_del"))
			assert.ErrorIs(t, repo.Delete(ctx, "cmp_del"), ErrComparisonNotFound)

			_, err := repo.Get(ctx, "cmp_del")
			assert.ErrorIs(t, err, ErrComparisonNotFound)
		})
	}
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, fixture("cmp_x", time.Now())))

	got, err := repo.Get(ctx, "cmp_x")
	require.NoError(t, err)
	got.Car.Path[0] = geo.Coordinate{}
	got.Name = "changed"

	again, err := repo.Get(ctx, "cmp_x")
	require.NoError(t, err)
	assert.Equal(t, "Comparison cmp_x", again.Name)
	assert.NotEqual(t, geo.Coordinate{}, again.Car.Path[0])
}

func TestRepository_CreateNamesConcurrentUnnamedSaves(t *testing.T) {
	const saves = 8
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, fixture("cmp_named", base)))

			names := make(chan string, saves)
			var wg sync.WaitGroup
			for i := 0; i < saves; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					c := fixture(fmt.Sprintf("cmp_auto_%d", i), base.Add(time.Duration(i+1)*time.Minute))
					c.Name = ""
					if err := repo.Create(ctx, c); err != nil {
						t.Errorf("create %d: %v", i, err)
						return
					}
					names <- c.Name
				}()
			}
			wg.Wait()
			close(names)

			var got []string
			for n := range names {
				got = append(got, n)
			}
			want := make([]string, 0, saves)
			for i := 2; i <= saves+1; i++ {
				want = append(want, AutoName(i))
			}
			assert.ElementsMatch(t, want, got)

			stored, err := repo.Get(ctx, "cmp_auto_0")
			require.NoError(t, err)
			assert.Contains(t, want, stored.Name)
		})
	}
}
