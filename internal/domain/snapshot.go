package domain

import "strings"

// SnapshotContentType is the content type of stored detection snapshots.
const SnapshotContentType = "text/csv"

// SnapshotKey builds the object key for a subscriber's filtered detections on
// date, e.g. "jane@example.com/94103/2024-05-01/wildfire_data_94103.csv".
// Contact and area code scope the key per subscriber; the date keeps
// successive days from overwriting each other.
func SnapshotKey(contact, areaCode, date string) string {
	areaCode = strings.TrimSpace(areaCode)
	return strings.Join([]string{
		strings.TrimSpace(contact),
		areaCode,
		date,
		"wildfire_data_" + areaCode + ".csv",
	}, "/")
}
