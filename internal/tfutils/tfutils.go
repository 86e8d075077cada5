package tfutils

import (
	"math"
	"time"
)

var labels = map[time.Duration]string{
	time.Second:         "1s",
	10 * time.Second:    "10s",
	30 * time.Second:    "30s",
	time.Minute:         "1m",
	2 * time.Minute:     "2m",
	3 * time.Minute:     "3m",
	5 * time.Minute:     "5m",
	10 * time.Minute:    "10m",
	15 * time.Minute:    "15m",
	30 * time.Minute:    "30m",
	time.Hour:           "1h",
	2 * time.Hour:       "2h",
	4 * time.Hour:       "4h",
	24 * time.Hour:      "1d",
	2 * 24 * time.Hour:  "2d",
	3 * 24 * time.Hour:  "3d",
	7 * 24 * time.Hour:  "1w",
	30 * 24 * time.Hour: "1M",
}

// TimeframeToString renders a timeframe label. Zero means tick level ("t");
// durations without a label fall back to their duration string.
func TimeframeToString(tf time.Duration) string {
	if tf <= 0 {
		return "t"
	}
	if label, ok := labels[tf]; ok {
		return label
	}
	return tf.String()
}

// FromSeconds converts a timeframe expressed in seconds, as sent by the
// remote service, to a duration. Values beyond the duration range saturate.
func FromSeconds(seconds float64) time.Duration {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	if seconds >= maxSeconds {
		return math.MaxInt64
	}
	return time.Duration(seconds * float64(time.Second))
}

const maxSeconds = float64(math.MaxInt64) / float64(time.Second)
