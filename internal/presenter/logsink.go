package presenter

import (
	"go.uber.org/zap"

	"github.com/amirphl/alertdesk/internal/alert"
	"github.com/amirphl/alertdesk/internal/utils"
)

// LogSink writes every display record to the structured log.
type LogSink struct {
	log *zap.SugaredLogger
}

func NewLogSink(log *zap.SugaredLogger) *LogSink {
	if log == nil {
		log = utils.GetLogger()
	}
	return &LogSink{log: log.Named("alerts")}
}

func (s *LogSink) OnAlertCreated(rec ActiveRecord) {
	s.log.Infow("active alert",
		"key", rec.Key().String(),
		"symbol", rec.Symbol,
		"name", rec.Name,
		"timeframe", rec.TimeframeLabel,
		"trigger", rec.TriggerCondition,
		"cancellation", rec.CancellationCondition,
		"cancellation_pct", rec.CancellationPercent,
		"created", rec.CreatedLabel,
		"expiry", rec.ExpiryLabel,
		"countdown", rec.Countdown,
		"message", rec.Message,
	)
}

func (s *LogSink) OnAlertFired(rec HistoricalRecord) {
	s.log.Infow("fired alert",
		"key", rec.Key().String(),
		"symbol", rec.Symbol,
		"name", rec.Name,
		"timeframe", rec.TimeframeLabel,
		"trigger", rec.Trigger,
		"last_price", rec.LastPrice,
		"reason", rec.Reason,
		"at", rec.TimestampLabel,
		"message", rec.Message,
	)
}

func (s *LogSink) OnAlertRemoved(k alert.Key) {
	s.log.Infow("alert removed", "key", k.String())
}

func (s *LogSink) OnAlertEvicted(k alert.Key) {
	s.log.Debugw("alert evicted", "key", k.String())
}
