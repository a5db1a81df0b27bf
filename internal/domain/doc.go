// Package domain models NASA FIRMS active-fire detections and the subscribers
// that receive wildfire alerts for their area.
//
// # Data Source
//
// Detections come from the FIRMS country API, which serves the last N days of
// MODIS near-real-time hotspots as CSV:
//
//	https://firms.modaps.eosdis.nasa.gov/api/country/csv/<MAP_KEY>/MODIS_NRT/USA/1
//
// Only four columns are consumed: latitude, longitude, frp and acq_date. The
// remaining columns (brightness, scan, track, confidence, satellite, ...) are
// ignored. A feed without one of the four is rejected as a whole, see
// [ErrMalformed].
//
// # FIRMS Data Conventions
//
// Fire Radiative Power (frp) is reported in megawatts. The column is usually
// numeric but occasionally carries blanks or non-numeric placeholders; those
// rows are dropped during parsing and counted in [ParseResult.Dropped].
//
// acq_date is a YYYY-MM-DD calendar date. It is passed through to alert text
// untouched.
//
// # Distance Approximation
//
// Both the bounding-box filter and the cluster grid treat one degree as 69
// miles on both axes:
//
//	radius degrees = radius miles / 69.0
//	grid cell      = 0.0725 degrees (about 5 miles)
//
// This stretches the search box east-west away from the equator. The
// approximation defines which fires a subscriber is alerted about, so it is
// kept as-is; changing it moves alert boundaries.
//
// # Clustering
//
// Each detection snaps to the grid point nearest its coordinates
// (math.Round of coordinate / grid size, halves away from zero). Detections
// sharing a grid point form one cluster; the first detection appended is the
// one shown in alerts. Clusters iterate in insertion order so the same feed
// always renders the same alert text. See [Cluster].
package domain
