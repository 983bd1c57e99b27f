package catalog

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourguide/pkg/geo"
	"tourguide/pkg/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestFileSource_YAML(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantLen int
	}{
		{
			name: "List",
			content: `
- id: 1
  name: Parliament
  lat: 47.5071
  lon: 19.0456
  radius: 120
  payload:
    tts_text: Az Országház.
- id: 2
  name: Basilica
  lat: 47.5009
  lon: 19.0540
`,
			wantLen: 2,
		},
		{
			name: "Wrapped",
			content: `
regions:
  - id: 1
    name: Parliament
    lat: 47.5071
    lon: 19.0456
`,
			wantLen: 1,
		},
		{name: "Empty", content: ``, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewFileSource(writeFile(t, "regions.yaml", tt.content))
			regions, err := src.Load(context.Background())
			require.NoError(t, err)
			assert.Len(t, regions, tt.wantLen)
		})
	}
}

func TestFileSource_YAMLFields(t *testing.T) {
	src := NewFileSource(writeFile(t, "regions.yml", `
- id: 1
  name: Parliament
  lat: 47.5071
  lon: 19.0456
  radius: 120
  payload:
    audio_url: https://cdn.example.org/parliament.mp3
- id: 2
  name: Missing lon
  lat: 47.5
`))
	regions, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, model.Region{
		ID: 1, Name: "Parliament", Lat: 47.5071, Lon: 19.0456, Radius: 120,
		Payload: model.Payload{AudioURL: "https://cdn.example.org/parliament.mp3"},
	}, regions[0])
	assert.True(t, math.IsNaN(regions[1].Lon))
}

func TestFileSource_Errors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml")).Load(context.Background())
	assert.Error(t, err)

	_, err = NewFileSource(writeFile(t, "bad.yaml", "just a string")).Load(context.Background())
	assert.Error(t, err)

	_, err = NewFileSource(writeFile(t, "bad.geojson", "{")).Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource_GeoJSON(t *testing.T) {
	src := NewFileSource(writeFile(t, "regions.geojson", `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "id": 10, "geometry": {"type": "Point", "coordinates": [19.0344, 47.5020]},
			 "properties": {"name": "Bastion", "radius": 80, "tts_text": "Hello", "slug": "bastion"}},
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [19.0436, 47.4991]},
			 "properties": {"id": "11", "name": "Chain Bridge", "radius": "95"}},
			{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[19, 47], [19.1, 47.1]]},
			 "properties": {"id": 12}}
		]
	}`))

	regions, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 2, "line feature is skipped")

	assert.Equal(t, int64(10), regions[0].ID)
	assert.Equal(t, "Bastion", regions[0].Name)
	assert.InDelta(t, 47.5020, regions[0].Lat, 1e-9)
	assert.InDelta(t, 19.0344, regions[0].Lon, 1e-9)
	assert.Equal(t, 80.0, regions[0].Radius)
	assert.Equal(t, "Hello", regions[0].Payload.TTSText)
	assert.Equal(t, "bastion", regions[0].Payload.Slug)

	assert.Equal(t, int64(11), regions[1].ID)
	assert.Equal(t, 95.0, regions[1].Radius)
}

func TestToGeoJSON(t *testing.T) {
	c, _ := New([]model.Region{
		{ID: 1, Name: "Bastion", Lat: 47.5020, Lon: 19.0344, Radius: 80},
		{ID: 2, Lat: 47.4991, Lon: 19.0436},
	})

	fc := ToGeoJSON(c, 150)
	require.Len(t, fc.Features, 2)

	f := fc.Features[1]
	poly, ok := f.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Equal(t, 150.0, f.Properties["radius"])
	assert.Equal(t, "region-2", f.Properties["name"])
	d := geo.Distance(geo.Point{Lat: 47.4991, Lon: 19.0436}, geo.FromOrb(poly[0][0]))
	assert.InDelta(t, 150, d, 0.01)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
}
