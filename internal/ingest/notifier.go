package ingest

import (
	"context"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
)

var _ Notifier = (*LogNotifier)(nil)

// LogNotifier writes alerts to the log. Used when no transport is configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n *LogNotifier) Name() string {
	return "log"
}

func (n *LogNotifier) Notify(_ context.Context, a types.Alert) error {
	n.Logger.Warn().
		Str("sensor_id", a.SensorID).
		Str("alert_id", a.AlertID.String()).
		Str("metric", string(a.Metric)).
		Float64("value", a.Value).
		Msg(a.Message)
	return nil
}
