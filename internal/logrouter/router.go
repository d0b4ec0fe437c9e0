// Package logrouter implements the per-worker log attribution filter and
// multi-sink fan-out: every outgoing record from any logger handed to a
// worker's Router is filtered by symbol before reaching the file sink,
// the stream sink, or any optional remote sink, so that many engines
// sharing one process never cross-talk.
package logrouter

import (
	"sync"

	"github.com/blueenergy/strategy-supervisor/internal/logger"
	"github.com/blueenergy/strategy-supervisor/internal/logstream"
)

// Router is attached to exactly one worker and owns its sinks.
type Router struct {
	symbol  string
	log     *logger.Logger
	mu      sync.Mutex
	sinks   []Sink
	console Sink
}

// New creates a Router scoped to symbol. sinks typically contains a
// FileSink and a stream Sink wrapping the worker's LogStreamEndpoint;
// additional remote sinks from environment configuration may be
// appended with AddSink.
func New(symbol string, log *logger.Logger, sinks ...Sink) *Router {
	return &Router{
		symbol:  symbol,
		log:     log,
		sinks:   append([]Sink{}, sinks...),
		console: newConsoleSink(),
	}
}

// AddSink appends an additional sink (e.g. an optional remote sink).
func (r *Router) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks = append(r.sinks, s)
}

// Route applies the attribution filter and, if allowed, writes record to
// every sink. A sink write failure falls back to the console sink for
// that record rather than aborting the worker (LogSinkFailure policy).
func (r *Router) Route(record logstream.Record) {
	if !allow(r.symbol, record.LoggerName, record.Message) {
		return
	}

	r.mu.Lock()
	sinks := append([]Sink{}, r.sinks...)
	r.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Write(record); err != nil {
			r.log.Warn("log sink failure, falling back to console")

			_ = r.console.Write(record)
		}
	}
}

// Close closes every sink owned by this router.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sink := range r.sinks {
		_ = sink.Close()
	}
}
