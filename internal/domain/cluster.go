package domain

import (
	"math"
	"strconv"
)

// DefaultGridSize is the cluster cell edge in degrees, about 5 miles.
const DefaultGridSize = 0.0725

// GridCluster is the set of detections snapping to one grid point.
type GridCluster struct {
	Key     string
	Center  Coordinates
	Members []Detection
}

// Representative is the first detection appended to the cluster.
func (c *GridCluster) Representative() Detection {
	return c.Members[0]
}

// Clusters maps grid keys to clusters and iterates in insertion order.
type Clusters struct {
	order []string
	byKey map[string]*GridCluster
}

func newClusters() *Clusters {
	return &Clusters{byKey: make(map[string]*GridCluster)}
}

// Len returns the number of clusters.
func (c *Clusters) Len() int { return len(c.order) }

// Keys returns grid keys in insertion order.
func (c *Clusters) Keys() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

// Get returns the cluster for key.
func (c *Clusters) Get(key string) (*GridCluster, bool) {
	gc, ok := c.byKey[key]
	return gc, ok
}

// All returns the clusters in insertion order.
func (c *Clusters) All() []*GridCluster {
	out := make([]*GridCluster, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.byKey[k])
	}
	return out
}

// Members flattens all clusters back into detections, cluster by cluster.
func (c *Clusters) Members() []Detection {
	var out []Detection
	for _, k := range c.order {
		out = append(out, c.byKey[k].Members...)
	}
	return out
}

func (c *Clusters) add(key string, center Coordinates, d Detection) {
	gc, ok := c.byKey[key]
	if !ok {
		gc = &GridCluster{Key: key, Center: center}
		c.byKey[key] = gc
		c.order = append(c.order, key)
	}
	gc.Members = append(gc.Members, d)
}

// Cluster buckets detections into grid cells of gridSize degrees. Every
// detection lands in exactly one cluster and members keep input order.
// A non-positive gridSize falls back to DefaultGridSize.
func Cluster(ds []Detection, gridSize float64) *Clusters {
	if gridSize <= 0 {
		gridSize = DefaultGridSize
	}
	clusters := newClusters()
	for _, d := range ds {
		center := SnapToGrid(Coordinates{Lat: d.Latitude, Lon: d.Longitude}, gridSize)
		clusters.add(GridKey(center), center, d)
	}
	return clusters
}

// SnapToGrid rounds each coordinate to the nearest multiple of gridSize.
func SnapToGrid(c Coordinates, gridSize float64) Coordinates {
	return Coordinates{
		Lat: snap(c.Lat, gridSize),
		Lon: snap(c.Lon, gridSize),
	}
}

// GridKey renders a snapped center as the cluster key.
func GridKey(center Coordinates) string {
	return strconv.FormatFloat(center.Lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(center.Lon, 'f', -1, 64)
}

func snap(v, gridSize float64) float64 {
	g := math.Round(v/gridSize) * gridSize
	if g == 0 {
		g = 0 // collapse -0 so both sides of zero share a key
	}
	return g
}
