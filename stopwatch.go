package engine

import (
	"time"

	"github.com/google/uuid"
)

// LogStopwatch times a named scope and the spans inside it, emitting through
// the context's logger. The world-level debug flag times every scope; a
// subsystem flag only times the fraction that passes a Bernoulli draw
// against the world's DebugSampleRate. Every emission of one scope shares a
// short id so interleaved ticks can be told apart.
type LogStopwatch struct {
	log      Logger
	name     string
	scope    string
	sampled  bool
	started  time.Time
	spanName string
	spanAt   time.Time
}

func NewLogStopwatch(ctx *Context, world *World, name string, subsystemDebug bool) *LogStopwatch {
	sampled := world.Debug || subsystemDebug && ctx.Rng.Float32() <= world.DebugSampleRate
	sw := &LogStopwatch{
		log:     ctx.Log,
		name:    name,
		sampled: sampled,
	}
	if sampled {
		sw.scope = uuid.NewString()[:8]
		sw.started = time.Now()
		sw.log.Infof("[%s] --------- %s begin ---------", sw.scope, name)
	}
	return sw
}

// Span ends the previous span, if any, and starts a new one.
func (sw *LogStopwatch) Span(name string) {
	if !sw.sampled {
		return
	}
	sw.endSpan()
	sw.spanName = name
	sw.spanAt = time.Now()
}

func (sw *LogStopwatch) endSpan() {
	if sw.spanName == "" {
		return
	}
	sw.log.Infof("[%s] %s: %s", sw.scope, sw.spanName, time.Since(sw.spanAt))
	sw.spanName = ""
}

// End closes the current span and the scope itself.
func (sw *LogStopwatch) End() {
	if !sw.sampled {
		return
	}
	sw.endSpan()
	sw.log.Infof("[%s] ---------- %s end (%s) ----------", sw.scope, sw.name, time.Since(sw.started))
	sw.sampled = false
}
