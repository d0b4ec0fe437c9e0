// Package logstream implements the per-worker push server: a bounded
// replay buffer plus live fan-out to connected subscribers over
// WebSocket, using github.com/gorilla/websocket as the subscriber
// transport — it gives framed, newline-free JSON messages for free
// instead of hand-rolling a line-delimited TCP protocol.
package logstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/blueenergy/strategy-supervisor/internal/logger"
	"github.com/blueenergy/strategy-supervisor/internal/supervisorerrors"
)

// DefaultHistory is the default bounded replay buffer size.
const DefaultHistory = 100

// subscriberQueueSize bounds how far a subscriber may lag before the
// endpoint gives up on it. A full queue means the subscriber is too slow
// to keep up; a slow subscriber must never block the producer or other
// subscribers, so it is disconnected instead.
const subscriberQueueSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type subscriber struct {
	queue chan Record
	done  chan struct{}
}

// Endpoint is the LogStreamEndpoint: one per worker, serving the worker's
// bounded replay buffer plus live broadcasts to every connected
// subscriber.
type Endpoint struct {
	log     *logger.Logger
	history int

	mu          sync.Mutex
	ring        []Record
	subscribers map[*subscriber]struct{}

	listener net.Listener
	server   *http.Server
	wg       sync.WaitGroup

	host string
	port int
}

// New constructs an Endpoint. history<=0 defaults to DefaultHistory.
func New(log *logger.Logger, history int) *Endpoint {
	if history <= 0 {
		history = DefaultHistory
	}

	return &Endpoint{
		log:         log,
		history:     history,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Start binds to host:port (port=0 picks any free port) and begins
// serving. It returns once the listener is bound and ready to accept —
// Address() reflects the real port immediately after Start returns
// successfully.
func (e *Endpoint) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %v", supervisorerrors.ErrStreamStartupFailure, err)
	}

	e.listener = ln

	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		ln.Close()

		return fmt.Errorf("%w: unexpected listener address type", supervisorerrors.ErrStreamStartupFailure)
	}

	e.host = host
	e.port = tcpAddr.Port

	mux := http.NewServeMux()
	mux.HandleFunc("/", e.handleSubscribe)
	e.server = &http.Server{Handler: mux}

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		if err := e.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			e.log.Warn("log stream endpoint serve error", zap.Error(err))
		}
	}()

	return nil
}

// Address returns the bound (host, port).
func (e *Endpoint) Address() (string, int) {
	return e.host, e.port
}

// Broadcast appends record to the ring buffer (evicting the oldest entry
// past history capacity) then fans it out to every connected subscriber.
// It never blocks on a subscriber: each subscriber has its own bounded
// queue, and a subscriber that cannot keep up is disconnected rather
// than stalling Broadcast.
func (e *Endpoint) Broadcast(record Record) {
	e.mu.Lock()

	e.ring = append(e.ring, record)
	if len(e.ring) > e.history {
		e.ring = e.ring[len(e.ring)-e.history:]
	}

	targets := make([]*subscriber, 0, len(e.subscribers))
	for sub := range e.subscribers {
		targets = append(targets, sub)
	}

	e.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.queue <- record:
		default:
			e.dropSubscriber(sub)
		}
	}
}

func (e *Endpoint) dropSubscriber(sub *subscriber) {
	e.mu.Lock()
	if _, ok := e.subscribers[sub]; ok {
		delete(e.subscribers, sub)
		close(sub.done)
	}
	e.mu.Unlock()
}

// handleSubscribe upgrades the connection, replays the buffer, then
// streams live broadcasts until the client disconnects or the endpoint
// shuts down.
func (e *Endpoint) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.log.Warn("log stream upgrade failed", zap.Error(err))

		return
	}
	defer conn.Close()

	sub := &subscriber{
		queue: make(chan Record, subscriberQueueSize),
		done:  make(chan struct{}),
	}

	e.mu.Lock()
	replay := make([]Record, len(e.ring))
	copy(replay, e.ring)
	e.subscribers[sub] = struct{}{}
	e.mu.Unlock()

	defer e.dropSubscriber(sub)

	for _, rec := range replay {
		if err := writeRecord(conn, rec); err != nil {
			return
		}
	}

	// Detect client-initiated close without blocking the write loop.
	clientClosed := make(chan struct{})

	go func() {
		defer close(clientClosed)

		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case rec := <-sub.queue:
			if err := writeRecord(conn, rec); err != nil {
				return
			}
		case <-sub.done:
			return
		case <-clientClosed:
			return
		}
	}
}

func writeRecord(conn *websocket.Conn, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, payload)
}

// Stop signals every connected subscriber to stop (closing its done
// channel), then calls http.Server.Shutdown with a 5s bound, which
// closes the listener and unblocks Accept, then waits up to 5s more for
// the serve goroutine to finish. On timeout it logs a warning and
// returns without blocking the caller indefinitely; the serve goroutine
// is left to exit on its own. Stop is idempotent — calling it twice is
// safe.
func (e *Endpoint) Stop() {
	e.mu.Lock()
	for sub := range e.subscribers {
		close(sub.done)
	}
	e.subscribers = make(map[*subscriber]struct{})
	e.mu.Unlock()

	if e.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = e.server.Shutdown(ctx)

	done := make(chan struct{})

	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		e.log.Warn("log stream endpoint stop deadline exceeded; leaving serve loop as daemon")
	}

	e.server = nil
}
