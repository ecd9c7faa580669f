package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewTraceLogger returns a sampled zerolog logger for per-tick traces.
// After burst entries per period, one in every n entries is kept.
func NewTraceLogger(w io.Writer, burst uint32, period time.Duration, n uint32) zerolog.Logger {
	if w == nil {
		return zerolog.Nop()
	}
	return zerolog.New(w).With().Timestamp().Str("stream", "trace").Logger().
		Sample(&zerolog.BurstSampler{
			Burst:       burst,
			Period:      period,
			NextSampler: &zerolog.BasicSampler{N: n},
		})
}
