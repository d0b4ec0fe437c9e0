package logrouter

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/blueenergy/strategy-supervisor/internal/logger"
	"github.com/blueenergy/strategy-supervisor/internal/logstream"
)

type recordingSink struct {
	records []logstream.Record
}

func (r *recordingSink) Write(record logstream.Record) error {
	r.records = append(r.records, record)

	return nil
}

func (r *recordingSink) Close() error { return nil }

type AttributionTestSuite struct {
	suite.Suite
}

func TestAttributionSuite(t *testing.T) {
	suite.Run(t, new(AttributionTestSuite))
}

func (s *AttributionTestSuite) TestAllowWhenSymbolInLoggerName() {
	s.True(allow("600000.SH", "strategies.600000.SH.turtle", "anything"))
}

func (s *AttributionTestSuite) TestAllowWhenMessageMatchesOwnSymbol() {
	s.True(allow("000001.SZ", "strategies.common", "order for 000001.SZ filled"))
}

func (s *AttributionTestSuite) TestRejectWhenMessageMatchesOtherSymbol() {
	s.False(allow("600000.SH", "strategies.common", "order for 000001.SZ filled"))
}

func (s *AttributionTestSuite) TestAllowWhenNoSymbolTokensAnywhere() {
	s.True(allow("600000.SH", "strategies.common", "engine started"))
}

func (s *AttributionTestSuite) TestCrossTalkRejection() {
	sinkA := &recordingSink{}
	sinkB := &recordingSink{}

	routerA := New("600000.SH", logger.NewNop(), sinkA)
	routerB := New("000001.SZ", logger.NewNop(), sinkB)

	record := logstream.Record{LoggerName: "strategies.common", Message: "order for 000001.SZ filled"}

	routerA.Route(record)
	routerB.Route(record)

	s.Empty(sinkA.records)
	s.Len(sinkB.records, 1)
}

func (s *AttributionTestSuite) TestFallsBackToConsoleOnSinkFailure() {
	failing := &failingSink{}
	router := New("600000.SH", logger.NewNop(), failing)

	s.NotPanics(func() {
		router.Route(logstream.Record{LoggerName: "strategies.common", Message: "hello"})
	})
}

type failingSink struct{}

func (f *failingSink) Write(logstream.Record) error { return assertError }
func (f *failingSink) Close() error                 { return nil }

var assertError = &sinkError{}

type sinkError struct{}

func (e *sinkError) Error() string { return "sink write failed" }
