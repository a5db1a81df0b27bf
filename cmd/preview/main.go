// Command preview runs the filter, cluster and format steps against a local
// FIRMS CSV file and prints the alert a subscriber at the given coordinates
// would receive. Nothing is fetched, stored or published. The matched
// detections can optionally be written out in snapshot form.
//
// Usage:
//
//	go run ./cmd/preview \
//	  -csv data/firms_usa_24h.csv \
//	  -lat 34.05 -lon -118.25 \
//	  -snapshot-out /tmp/wildfire_data_area.csv
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
	"github.com/couchcryptid/wildfire-alert-service/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	defaults := pipeline.DefaultMonitorOptions()

	csvPath := flag.String("csv", "", "path to a FIRMS country CSV file")
	lat := flag.Float64("lat", 0, "subscriber latitude")
	lon := flag.Float64("lon", 0, "subscriber longitude")
	radius := flag.Float64("radius", defaults.RadiusMiles, "search radius in miles")
	minFRP := flag.Float64("min-frp", defaults.MinIntensity, "minimum fire radiative power (MW), inclusive")
	grid := flag.Float64("grid", defaults.GridSize, "cluster grid cell size in degrees")
	snapshotOut := flag.String("snapshot-out", "", "optional path for the matched detections CSV")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -csv")
	}
	if *grid <= 0 {
		return fmt.Errorf("-grid must be positive")
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	parsed, err := domain.ParseFeed(f)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}
	log.Printf("parsed %d detections (%d dropped)", len(parsed.Detections), parsed.Dropped)

	center := domain.Coordinates{Lat: *lat, Lon: *lon}
	matches := domain.Filter(parsed.Detections, center, *radius, *minFRP)
	log.Printf("%d detections within %.0f mi at or above %.1f MW", len(matches), *radius, *minFRP)

	if *snapshotOut != "" {
		if err := writeSnapshot(*snapshotOut, matches); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		log.Printf("wrote snapshot: %s", *snapshotOut)
	}

	if len(matches) == 0 {
		log.Print("no alert would be sent")
		return nil
	}

	clusters := domain.Cluster(matches, *grid)
	alert := domain.FormatAlert(clusters)
	fmt.Printf("Subject: %s\n\n%s\n", alert.Subject, alert.Body)
	return nil
}

func writeSnapshot(path string, ds []domain.Detection) error {
	data, err := domain.EncodeCSV(ds)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
