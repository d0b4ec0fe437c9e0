package logrouter

import (
	"fmt"
	"io"
	"os"

	"github.com/blueenergy/strategy-supervisor/internal/logstream"
)

// Sink is one fan-out destination a Router writes allowed records to.
type Sink interface {
	Write(record logstream.Record) error
	Close() error
}

// consoleSink is the fallback sink used when another sink fails to
// accept a record (the LogSinkFailure policy), grounded in the original
// log_handlers.py's console fallback handler.
type consoleSink struct {
	out io.Writer
}

func newConsoleSink() *consoleSink {
	return &consoleSink{out: os.Stderr}
}

func (c *consoleSink) Write(record logstream.Record) error {
	_, err := fmt.Fprintf(c.out, "%s [%s] %s: %s\n", record.Timestamp.Format("2006-01-02T15:04:05"), record.Level, record.LoggerName, record.Message)

	return err
}

func (c *consoleSink) Close() error { return nil }

// streamSink adapts a logstream.Endpoint to the Sink interface.
type streamSink struct {
	endpoint *logstream.Endpoint
}

// NewStreamSink wraps ep as a Sink.
func NewStreamSink(ep *logstream.Endpoint) Sink {
	return &streamSink{endpoint: ep}
}

func (s *streamSink) Write(record logstream.Record) error {
	s.endpoint.Broadcast(record)

	return nil
}

func (s *streamSink) Close() error {
	s.endpoint.Stop()

	return nil
}
