package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"tourguide/pkg/geo"
	"tourguide/pkg/model"
)

// FileSource loads regions from a YAML or GeoJSON file.
//
// YAML is either a bare list or a document with a top-level "regions" list.
// GeoJSON is a FeatureCollection of Point features whose properties carry
// id, name, radius, audio_url, tts_text and slug.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file:" + s.path }

// Path returns the file being read, for the watcher.
func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Load(_ context.Context) ([]model.Region, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".geojson", ".json":
		return ParseGeoJSON(data)
	default:
		return ParseYAML(data)
	}
}

// fileRegion keeps coordinates optional so a missing one is rejected rather
// than read as zero.
type fileRegion struct {
	ID      int64         `yaml:"id"`
	Name    string        `yaml:"name"`
	Lat     *float64      `yaml:"lat"`
	Lon     *float64      `yaml:"lon"`
	Radius  float64       `yaml:"radius"`
	Payload model.Payload `yaml:"payload"`
}

func (f *fileRegion) toRegion() model.Region {
	r := model.Region{ID: f.ID, Name: f.Name, Radius: f.Radius, Payload: f.Payload, Lat: math.NaN(), Lon: math.NaN()}
	if f.Lat != nil {
		r.Lat = *f.Lat
	}
	if f.Lon != nil {
		r.Lon = *f.Lon
	}
	return r
}

// ParseYAML decodes a YAML region list.
func ParseYAML(data []byte) ([]model.Region, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	var items []fileRegion
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&items); err != nil {
			return nil, fmt.Errorf("decode regions: %w", err)
		}
	case yaml.MappingNode:
		var wrapped struct {
			Regions []fileRegion `yaml:"regions"`
		}
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("decode regions: %w", err)
		}
		items = wrapped.Regions
	default:
		return nil, fmt.Errorf("unexpected yaml document kind %v", root.Kind)
	}

	regions := make([]model.Region, 0, len(items))
	for i := range items {
		regions = append(regions, items[i].toRegion())
	}
	return regions, nil
}

// ParseGeoJSON decodes a FeatureCollection of Point features. Other
// geometries are skipped.
func ParseGeoJSON(data []byte) ([]model.Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	regions := make([]model.Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			slog.Warn("Skipping non-point feature", "index", i, "type", geometryType(f.Geometry))
			continue
		}
		p := f.Properties
		regions = append(regions, model.Region{
			ID:     featureID(f),
			Name:   propString(p, "name"),
			Lat:    pt.Lat(),
			Lon:    pt.Lon(),
			Radius: propFloat(p, "radius"),
			Payload: model.Payload{
				AudioURL: propString(p, "audio_url"),
				TTSText:  propString(p, "tts_text"),
				Slug:     propString(p, "slug"),
			},
		})
	}
	return regions, nil
}

// propString and propFloat tolerate missing or mistyped properties, which
// the Must* accessors would panic on.
func propString(p geojson.Properties, key string) string {
	s, _ := p[key].(string)
	return s
}

func propFloat(p geojson.Properties, key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return 0
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "none"
	}
	return g.GeoJSONType()
}

// featureID reads the feature id, falling back to an "id" property.
func featureID(f *geojson.Feature) int64 {
	id := f.ID
	if id == nil {
		id = f.Properties["id"]
	}
	switch v := id.(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// ToGeoJSON renders the catalog as circle polygons for map display. radiusDefault
// applies to regions without their own radius.
func ToGeoJSON(c *Catalog, radiusDefault float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range c.Regions() {
		radius := r.RadiusOr(radiusDefault)
		f := geojson.NewFeature(geo.Circle(r.Center(), radius, 0))
		f.ID = r.ID
		f.Properties["id"] = r.ID
		f.Properties["name"] = r.DisplayName()
		f.Properties["radius"] = radius
		f.Properties["center"] = []float64{r.Lon, r.Lat}
		if r.Payload.AudioURL != "" {
			f.Properties["audio_url"] = r.Payload.AudioURL
		}
		if r.Payload.Slug != "" {
			f.Properties["slug"] = r.Payload.Slug
		}
		fc.Append(f)
	}
	return fc
}
