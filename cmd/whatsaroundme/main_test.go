package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tourguide/pkg/catalog"
	"tourguide/pkg/geo"
	"tourguide/pkg/geofence"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		s        string
		l        int
		expected string
	}{
		{"Hello World", 5, "He..."},
		{"Hello World", 20, "Hello World"},
		{"Hello", 5, "Hello"},
		{"Hello", 3, "Hel"},
		{"", 5, ""},
		{"Mátyás-templom", 8, "Mátyá..."},
	}

	for _, tt := range tests {
		result := truncate(tt.s, tt.l)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.l, result, tt.expected)
		}
	}
}

func TestNearestAndOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	data := `
- {id: 1, name: Far, lat: 47.5100, lon: 19.0400, radius: 50}
- {id: 2, name: Here, lat: 47.4970, lon: 19.0400, radius: 80}
- {id: 3, name: Near, lat: 47.4990, lon: 19.0400}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := catalog.Build(context.Background(), catalog.NewFileSource(path))
	if err != nil {
		t.Fatal(err)
	}

	pos := geo.Point{Lat: 47.4970, Lon: 19.0400}
	list := nearest(cat, pos, 150)
	if len(list) != 3 {
		t.Fatalf("got %d regions, want 3", len(list))
	}
	if list[0].ID != 2 || list[1].ID != 3 || list[2].ID != 1 {
		t.Errorf("unexpected order: %+v", list)
	}
	if list[1].Radius != 150 {
		t.Errorf("default radius not applied: %v", list[1].Radius)
	}

	var buf bytes.Buffer
	printOutcome(&buf, geofence.Evaluate(pos, cat.Regions(), geofence.Params{RadiusDefault: 150}))
	printRegions(&buf, list, false)
	out := buf.String()
	if !strings.Contains(out, "INSIDE:      Here") {
		t.Errorf("missing containment line:\n%s", out)
	}
	if strings.Count(out, "inside") != 1 {
		t.Errorf("expected one region marked inside:\n%s", out)
	}
}
