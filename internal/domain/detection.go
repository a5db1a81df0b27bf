package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
)

// FIRMS column names consumed from the feed.
const (
	ColLatitude        = "latitude"
	ColLongitude       = "longitude"
	ColIntensity       = "frp"
	ColAcquisitionDate = "acq_date"
)

var requiredColumns = []string{ColLatitude, ColLongitude, ColIntensity, ColAcquisitionDate}

// Detection is a single active-fire observation.
type Detection struct {
	Latitude        float64 `csv:"latitude" json:"latitude"`
	Longitude       float64 `csv:"longitude" json:"longitude"`
	Intensity       float64 `csv:"frp" json:"frp"` // fire radiative power, MW
	AcquisitionDate string  `csv:"acq_date" json:"acq_date"`
}

// ParseResult holds the detections accepted from a feed and the number of
// rows that were dropped because a numeric field could not be parsed.
type ParseResult struct {
	Detections []Detection
	Dropped    int
}

// ParseDetections converts tabular feed rows into detections. header names
// are matched case-insensitively after trimming. A missing required column
// fails the whole batch with ErrMalformed. Rows with an unparseable latitude,
// longitude or frp, or too few fields, are dropped and counted.
func ParseDetections(header []string, rows [][]string) (ParseResult, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return ParseResult{}, fmt.Errorf("%w: missing columns %s", ErrMalformed, strings.Join(missing, ", "))
	}

	latIdx, lonIdx := idx[ColLatitude], idx[ColLongitude]
	frpIdx, dateIdx := idx[ColIntensity], idx[ColAcquisitionDate]
	width := max(latIdx, lonIdx, frpIdx, dateIdx) + 1

	result := ParseResult{Detections: make([]Detection, 0, len(rows))}
	for _, row := range rows {
		if len(row) < width {
			result.Dropped++
			continue
		}
		lat, okLat := parseFinite(row[latIdx])
		lon, okLon := parseFinite(row[lonIdx])
		frp, okFRP := parseFinite(row[frpIdx])
		if !okLat || !okLon || !okFRP {
			result.Dropped++
			continue
		}
		result.Detections = append(result.Detections, Detection{
			Latitude:        lat,
			Longitude:       lon,
			Intensity:       frp,
			AcquisitionDate: strings.TrimSpace(row[dateIdx]),
		})
	}
	return result, nil
}

// ParseFeed reads a CSV feed whose first record is the header. An empty body
// yields an empty result rather than an error. Only an unreadable header is
// fatal; a data row the CSV reader rejects is dropped and counted like any
// other unparseable row.
func ParseFeed(r io.Reader) (ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are dropped, not fatal
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true // a stray quote is a literal, e.g. 6"0

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{Detections: []Detection{}}, nil
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}

	var (
		rows       [][]string
		unreadable int
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			unreadable++
			continue
		}
		if err != nil {
			return ParseResult{}, fmt.Errorf("%w: read rows: %v", ErrMalformed, err)
		}
		rows = append(rows, row)
	}

	result, err := ParseDetections(header, rows)
	if err != nil {
		return ParseResult{}, err
	}
	result.Dropped += unreadable
	return result, nil
}

// EncodeCSV renders detections as CSV with a header row of the detection
// field names.
func EncodeCSV(ds []Detection) ([]byte, error) {
	data, err := csvutil.Marshal(ds)
	if err != nil {
		return nil, fmt.Errorf("encode detections: %w", err)
	}
	return data, nil
}

// parseFinite parses s as a float64, rejecting NaN and infinities.
func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
