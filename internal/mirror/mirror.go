// Package mirror copies wheel state into redis for other local services.
package mirror

import (
	"context"

	"github.com/sweeney/wheel-sensor/internal/logic"
	"github.com/sweeney/wheel-sensor/internal/status"
)

// Redis keys.
const (
	StateKey            = "wheel"
	ActuationStream     = "wheel:actuations"
	ActuationStreamMax  = 1000
	NotificationChannel = "wheel"
)

// Actuation sources.
const (
	SourceThreshold = "threshold"
	SourceOverride  = "override"
)

// Mirror receives periodic readings and actuation events.
type Mirror interface {
	Publish(ctx context.Context, r status.Reading) error
	RecordActuation(ctx context.Context, a logic.Actuation, source string) error
	Close() error
}
