// Package main provides a debugging CLI that lists the catalog regions around
// a position, with their distance and what the geofence would report there.
// Without -lat/-lon it asks the running server for its last position.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"tourguide/pkg/catalog"
	"tourguide/pkg/config"
	"tourguide/pkg/db"
	"tourguide/pkg/geo"
	"tourguide/pkg/geofence"
	"tourguide/pkg/request"
	"tourguide/pkg/store"
)

// sessionResponse matches the fields of /api/session this tool reads.
type sessionResponse struct {
	Position *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"position"`
}

type regionDebug struct {
	ID       int64
	Name     string
	Radius   float64
	Distance float64
}

func main() {
	if err := run(os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(out io.Writer) error {
	cfgPath := flag.String("config", "configs/tourguide.yaml", "Path to config file")
	lat := flag.Float64("lat", 0, "Latitude (default: ask the running server)")
	lon := flag.Float64("lon", 0, "Longitude (default: ask the running server)")
	file := flag.String("file", "", "Read regions from this YAML/GeoJSON file instead of the configured source")
	showAll := flag.Bool("all", false, "Show all regions, not just the nearest 30")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pos := geo.Point{Lat: *lat, Lon: *lon}
	if !flagSet("lat") || !flagSet("lon") {
		pos, err = fetchPosition(cfg.Server.Address)
		if err != nil {
			return fmt.Errorf("failed to fetch position: %w\nIs TourGuide running? Otherwise pass -lat and -lon.", err)
		}
	}
	if !geo.Valid(pos) {
		return fmt.Errorf("invalid position %.5f, %.5f", pos.Lat, pos.Lon)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cat, err := loadCatalog(ctx, cfg, *file)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Position: %.5f, %.5f\n", pos.Lat, pos.Lon)
	fmt.Fprintf(out, "Catalog:  %s (%d regions)\n\n", cat.Source(), cat.Len())

	params := geofence.Params{
		RadiusDefault: cfg.Geofence.RadiusDefault.Meters(),
	}
	if cfg.Geofence.Approach.Enabled {
		params.ApproachDistance = cfg.Geofence.Approach.Distance.Meters()
	}
	printOutcome(out, geofence.Evaluate(pos, cat.Regions(), params))
	printRegions(out, nearest(cat, pos, params.RadiusDefault), *showAll)
	return nil
}

func flagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func loadCatalog(ctx context.Context, cfg *config.Config, path string) (*catalog.Catalog, error) {
	if path != "" {
		return catalog.Build(ctx, catalog.NewFileSource(path))
	}
	if cfg.Catalog.Source == "file" {
		return catalog.Build(ctx, catalog.NewFileSource(cfg.Catalog.Path))
	}

	// The server's cache is the fallback when the content store is down.
	database, err := db.Init(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	client := request.New(request.Options{
		Retries:   1,
		Timeout:   10 * time.Second,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  2 * time.Second,
	})
	defer client.Close()

	src := catalog.NewHTTPSource(client, store.NewSQLiteStore(database), cfg.Catalog.URL, cfg.Catalog.PageSize)
	return catalog.Build(ctx, src)
}

func nearest(cat *catalog.Catalog, pos geo.Point, radiusDefault float64) []regionDebug {
	regions := cat.Regions()
	list := make([]regionDebug, 0, len(regions))
	for i := range regions {
		r := &regions[i]
		list = append(list, regionDebug{
			ID:       r.ID,
			Name:     r.DisplayName(),
			Radius:   r.RadiusOr(radiusDefault),
			Distance: geo.Distance(pos, r.Center()),
		})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Distance < list[j].Distance
	})
	return list
}

func printOutcome(out io.Writer, o geofence.Outcome) {
	switch {
	case o.Contained != nil:
		fmt.Fprintf(out, "INSIDE:      %s (%.0fm from center)\n", o.Contained.Region.DisplayName(), o.Contained.Distance)
	case o.Approaching != nil:
		fmt.Fprintf(out, "APPROACHING: %s (%.0fm from center)\n", o.Approaching.Region.DisplayName(), o.Approaching.Distance)
	default:
		fmt.Fprintln(out, "Nothing nearby.")
	}
	fmt.Fprintln(out)
}

func printRegions(out io.Writer, list []regionDebug, showAll bool) {
	displayCount := len(list)
	if !showAll && displayCount > 30 {
		displayCount = 30
	}

	fmt.Fprintf(out, "%-8s %-40s %10s %8s  %s\n", "ID", "Name", "Distance", "Radius", "")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, r := range list[:displayCount] {
		mark := ""
		if r.Distance <= r.Radius {
			mark = "inside"
		}
		fmt.Fprintf(out, "%-8d %-40s %9.0fm %7.0fm  %s\n", r.ID, truncate(r.Name, 40), r.Distance, r.Radius, mark)
	}
	fmt.Fprintln(out, strings.Repeat("-", 80))
	if len(list) > displayCount {
		fmt.Fprintf(out, "\n... and %d more. Use -all to see all.\n", len(list)-displayCount)
	}
}

func fetchPosition(addr string) (geo.Point, error) {
	url := fmt.Sprintf("http://%s/api/session", addr)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return geo.Point{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Point{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var s sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return geo.Point{}, err
	}
	if s.Position == nil {
		return geo.Point{}, errors.New("no position received yet")
	}
	return geo.Point{Lat: s.Position.Lat, Lon: s.Position.Lon}, nil
}

// truncate shortens s to l runes, marking the cut with "...".
func truncate(s string, l int) string {
	r := []rune(s)
	if len(r) <= l {
		return s
	}
	if l <= 3 {
		return string(r[:l])
	}
	return string(r[:l-3]) + "..."
}
