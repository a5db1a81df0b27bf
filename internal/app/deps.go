package app

import (
	"log/slog"

	"github.com/couchcryptid/wildfire-alert-service/internal/observability"
)

// Deps carries the ambient logger and metrics into New.
type Deps struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
}
