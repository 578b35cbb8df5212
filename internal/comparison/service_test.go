package comparison_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/comparison"
	"github.com/regentroute/regentroute/internal/events"
	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/trip"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

var (
	sanFrancisco = geo.Coordinate{Lat: 37.7749, Lon: -122.4194}
	sanJose      = geo.Coordinate{Lat: 37.3382, Lon: -121.8863}
)

func carEstimate() *trip.Estimate {
	return &trip.Estimate{
		Mode:            trip.ModeCar,
		DistanceMiles:   50,
		DurationMinutes: 58,
		Cost:            trip.CostOf(trip.ModeCar, 50),
		Path:            []geo.Coordinate{sanFrancisco, sanJose},
		Source:          trip.SourceFormula,
	}
}

func newService(pub events.Publisher) (*comparison.Service, *comparison.InMemoryRepository) {
	repo := comparison.NewInMemoryRepository()
	svc := comparison.NewService(comparison.ServiceConfig{
		Repository: repo,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})
	return svc, repo
}

func validInput() comparison.SaveInput {
	return comparison.SaveInput{
		OriginAddress:      "San Francisco, CA",
		DestinationAddress: "San Jose, CA",
		Car:                carEstimate(),
	}
}

func TestService_Save(t *testing.T) {
	pub := &recordingPublisher{}
	service, _ := newService(pub)
	ctx := context.Background()

	input := validInput()
	input.Name = "  Bay commute  "

	result, err := service.Save(ctx, input)
	if err != nil {
		t.Fatalf("failed to save comparison: %v", err)
	}

	if !strings.HasPrefix(result.ID, "cmp_") {
		t.Errorf("expected comparison ID to start with 'cmp_', got %q", result.ID)
	}
	if result.Name != "Bay commute" {
		t.Errorf("expected trimmed name, got %q", result.Name)
	}
	if result.Display.FerryCurveDirection != trip.DefaultCurve.Direction {
		t.Errorf("expected default curve direction, got %q", result.Display.FerryCurveDirection)
	}
	if result.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	if got := pub.types(); len(got) != 1 || got[0] != events.TypeComparisonSaved {
		t.Errorf("expected one saved event, got %v", got)
	}
}

func TestService_Save_AutoNames(t *testing.T) {
	service, _ := newService(nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		result, err := service.Save(ctx, validInput())
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		want := fmt.Sprintf("Comparison %d", i)
		if result.Name != want {
			t.Errorf("expected name %q, got %q", want, result.Name)
		}
	}
}

func TestService_Save_SnapshotIsIndependent(t *testing.T) {
	service, _ := newService(nil)
	ctx := context.Background()

	input := validInput()
	saved, err := service.Save(ctx, input)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	input.Car.Path[0] = geo.Coordinate{}
	input.Car.DistanceMiles = 999

	got, err := service.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Car.DistanceMiles != 50 {
		t.Errorf("stored distance changed to %v", got.Car.DistanceMiles)
	}
	if got.Car.Path[0] != sanFrancisco {
		t.Errorf("stored path changed to %v", got.Car.Path[0])
	}
}

func TestService_Save_ValidationErrors(t *testing.T) {
	service, _ := newService(nil)
	ctx := context.Background()

	ferryAsCar := carEstimate()
	ferryAsCar.Mode = trip.ModeFerry

	tests := []struct {
		name      string
		mutate    func(*comparison.SaveInput)
		wantField string
	}{
		{
			name:      "name too long",
			mutate:    func(in *comparison.SaveInput) { in.Name = strings.Repeat("a", 81) },
			wantField: "name",
		},
		{
			name:      "missing origin",
			mutate:    func(in *comparison.SaveInput) { in.OriginAddress = "   " },
			wantField: "originAddress",
		},
		{
			name:      "missing destination",
			mutate:    func(in *comparison.SaveInput) { in.DestinationAddress = "" },
			wantField: "destinationAddress",
		},
		{
			name:      "no results",
			mutate:    func(in *comparison.SaveInput) { in.Car = nil },
			wantField: "results",
		},
		{
			name:      "estimate in wrong slot",
			mutate:    func(in *comparison.SaveInput) { in.Car = ferryAsCar },
			wantField: "results.car",
		},
		{
			name: "ticket cost on a car",
			mutate: func(in *comparison.SaveInput) {
				car := *carEstimate()
				car.Cost.Kind = trip.CostTicket
				in.Car = &car
			},
			wantField: "results.car.cost",
		},
		{
			name: "cost not in dollars",
			mutate: func(in *comparison.SaveInput) {
				car := *carEstimate()
				car.Cost.Currency = "EUR"
				in.Car = &car
			},
			wantField: "results.car.cost",
		},
		{
			name: "invalid curve",
			mutate: func(in *comparison.SaveInput) {
				in.Display = &comparison.Display{FerryCurveDirection: "up", FerryCurveWidth: 0.2}
			},
			wantField: "display",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			_, err := service.Save(ctx, input)
			if err == nil {
				t.Fatal("expected validation error")
			}

			var validationErr *comparison.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}

			found := false
			for _, fe := range validationErr.Errors {
				if fe.Field == tt.wantField {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got %v", tt.wantField, validationErr.Errors)
			}
		})
	}
}

func TestService_Save_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	service, repo := newService(pub)
	ctx := context.Background()

	saved, err := service.Save(ctx, validInput())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := repo.Get(ctx, saved.ID); err != nil {
		t.Errorf("expected comparison to be stored: %v", err)
	}
}

func TestService_List(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo := comparison.NewInMemoryRepository()
	service := comparison.NewService(comparison.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		Now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		},
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := service.Save(ctx, validInput()); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	first, err := service.List(ctx, 3, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(first.Items))
	}
	if first.Items[0].Name != "Comparison 5" {
		t.Errorf("expected newest first, got %q", first.Items[0].Name)
	}
	if first.NextCursor == "" {
		t.Fatal("expected a next cursor")
	}

	second, err := service.List(ctx, 3, first.NextCursor)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(second.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(second.Items))
	}
	if second.Items[1].Name != "Comparison 1" {
		t.Errorf("expected oldest last, got %q", second.Items[1].Name)
	}
	if second.NextCursor != "" {
		t.Errorf("expected no further pages, got cursor %q", second.NextCursor)
	}
}

func TestService_Delete(t *testing.T) {
	pub := &recordingPublisher{}
	service, _ := newService(pub)
	ctx := context.Background()

	saved, err := service.Save(ctx, validInput())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := service.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.Get(ctx, saved.ID); !errors.Is(err, comparison.ErrComparisonNotFound) {
		t.Errorf("expected ErrComparisonNotFound after delete, got %v", err)
	}
	if err := service.Delete(ctx, saved.ID); !errors.Is(err, comparison.ErrComparisonNotFound) {
		t.Errorf("expected ErrComparisonNotFound on second delete, got %v", err)
	}

	got := pub.types()
	if len(got) != 2 || got[1] != events.TypeComparisonDeleted {
		t.Errorf("expected saved then deleted events, got %v", got)
	}
}
