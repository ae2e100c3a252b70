package port

import (
	"context"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
)

type TelemetrySource interface {
	FetchReading(ctx context.Context) (*domain.Reading, error)
}

type ActuatorSink interface {
	SetChargeCurrent(ctx context.Context, amps float64) error
	SetOutputPriority(ctx context.Context, priority domain.OutputPriority) error
}

// Gateway is the hardware register gateway. Calls are not safe for
// concurrent use.
type Gateway interface {
	TelemetrySource
	ActuatorSink
	Open() error
	Close() error
}

// DailyTargetStore reads and replaces the record shared with the planner.
type DailyTargetStore interface {
	Load() (*domain.DailyTarget, error)
	Save(target domain.DailyTarget) error
}

type ChargeControlLogic interface {
	// Tick advances state by one control iteration. A nil reading means the
	// telemetry fetch failed.
	Tick(state *domain.ControllerState, now time.Time, reading *domain.Reading) domain.TickResult
}
