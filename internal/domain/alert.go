package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AlertSubject is the subject line of every wildfire notification.
const AlertSubject = "🔥 Wildfire Alert"

// Alert is a rendered notification ready for dispatch.
type Alert struct {
	Subject string
	Body    string
}

// FormatAlert renders one block per cluster, in cluster order, separated by
// a blank line. Callers must not format an empty cluster set.
func FormatAlert(clusters *Clusters) Alert {
	blocks := make([]string, 0, clusters.Len())
	for _, gc := range clusters.All() {
		blocks = append(blocks, formatClusterBlock(gc))
	}
	return Alert{
		Subject: AlertSubject,
		Body:    strings.Join(blocks, "\n\n"),
	}
}

func formatClusterBlock(gc *GridCluster) string {
	rep := gc.Representative()
	var b strings.Builder
	b.WriteString("🔥 Wildfire Alert!\n")
	fmt.Fprintf(&b, "Location: %.4f, %.4f\n", gc.Center.Lat, gc.Center.Lon)
	fmt.Fprintf(&b, "Fires in cluster: %d\n", len(gc.Members))
	fmt.Fprintf(&b, "FRP: %s MW\n", formatIntensity(rep.Intensity))
	fmt.Fprintf(&b, "Date: %s", rep.AcquisitionDate)
	return b.String()
}

// formatIntensity prints the shortest decimal form, keeping a trailing ".0" on
// whole values (60 -> "60.0", 60.5 -> "60.5").
func formatIntensity(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eInN") {
		s += ".0"
	}
	return s
}

// Notification is the message published to a channel.
type Notification struct {
	Channel     string    `json:"channel"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
}

// NewNotification stamps an alert for channel with the current time.
func NewNotification(channel, subject, body string) Notification {
	return Notification{
		Channel:     channel,
		Subject:     subject,
		Body:        body,
		PublishedAt: clock.Now().UTC(),
	}
}
