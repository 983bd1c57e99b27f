package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"tourguide/pkg/catalog"
	"tourguide/pkg/location"
	"tourguide/pkg/model"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{
			Name:     "Success Probe",
			Check:    func(ctx context.Context) error { return nil },
			Critical: true,
		},
		{
			Name:  "Failure Probe (Non-Critical)",
			Check: func(ctx context.Context) error { return errors.New("minor issue") },
		},
		{
			Name:    "Slow Probe",
			Timeout: 10 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}

	results := Run(context.Background(), probes)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("Expected success probe to pass, got error: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("Expected failure probe to fail, got nil")
	}
	if !errors.Is(results[2].Error, context.DeadlineExceeded) {
		t.Errorf("Expected slow probe to time out, got %v", results[2].Error)
	}
}

func TestAnalyzeResults(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{
			name:    "All Pass",
			results: []Result{{Probe: Probe{Name: "P1", Critical: true}}},
		},
		{
			name:    "Critical Failure",
			results: []Result{{Probe: Probe{Name: "P1", Critical: true}, Error: errors.New("fail")}},
			wantErr: true,
		},
		{
			name:    "Non-Critical Failure",
			results: []Result{{Probe: Probe{Name: "P1"}, Error: errors.New("fail")}},
		},
		{
			name: "Mixed Failure",
			results: []Result{
				{Probe: Probe{Name: "P1"}, Error: errors.New("fail")},
				{Probe: Probe{Name: "P2", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if (err != nil) != tt.wantErr {
				t.Errorf("AnalyzeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCatalogProbe(t *testing.T) {
	empty := Catalog(catalog.Empty)
	if err := empty.Check(context.Background()); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("empty catalog: got %v", err)
	}
	if !empty.Critical {
		t.Error("catalog probe should be critical")
	}

	c, _ := catalog.New([]model.Region{{ID: 1, Lat: 47.5, Lon: 19.04}})
	full := Catalog(func() *catalog.Catalog { return c })
	if err := full.Check(context.Background()); err != nil {
		t.Errorf("populated catalog: got %v", err)
	}
}

func TestLocationProbe(t *testing.T) {
	src := location.NewPushSource()
	p := Location(src)
	if err := p.Check(context.Background()); err != nil {
		t.Errorf("push source: got %v", err)
	}
	if src.Watchers() != 0 {
		t.Error("probe left its watch running")
	}
	if p.Critical {
		t.Error("location probe should not be critical")
	}

	if err := Location(location.Unavailable()).Check(context.Background()); !errors.Is(err, location.ErrUnavailable) {
		t.Errorf("unavailable source: got %v", err)
	}
}
