package domain

// Defaults used by the daily run.
const (
	DefaultRadiusMiles  = 100.0
	DefaultMinIntensity = 50.0
)

// milesPerDegree approximates one degree of latitude. It is applied to
// longitude as well, see the package documentation.
const milesPerDegree = 69.0

// BoundingBox is an inclusive latitude/longitude range.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundingBoxAround returns the square box of radiusMiles around center.
func BoundingBoxAround(center Coordinates, radiusMiles float64) BoundingBox {
	degrees := radiusMiles / milesPerDegree
	return BoundingBox{
		MinLat: center.Lat - degrees,
		MaxLat: center.Lat + degrees,
		MinLon: center.Lon - degrees,
		MaxLon: center.Lon + degrees,
	}
}

// Contains reports whether (lat, lon) lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat &&
		lon >= b.MinLon && lon <= b.MaxLon
}

// Filter keeps detections within radiusMiles of center whose intensity is at
// least minIntensity. Input order is preserved; the result is never nil.
func Filter(ds []Detection, center Coordinates, radiusMiles, minIntensity float64) []Detection {
	box := BoundingBoxAround(center, radiusMiles)
	out := make([]Detection, 0)
	for _, d := range ds {
		if d.Intensity >= minIntensity && box.Contains(d.Latitude, d.Longitude) {
			out = append(out, d)
		}
	}
	return out
}
