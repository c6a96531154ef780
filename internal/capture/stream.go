// Package capture ingests live microphone audio over WebSocket and feeds the
// shared rolling buffer that trigger-time verification reads from.
//
// Clients connect to the handler and send binary messages of 16 kHz mono
// PCM16LE. Text messages are ignored.
package capture

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voicegate/internal/audio"
	"github.com/lexiqai/voicegate/internal/observability"
)

const (
	// audioQueueSize bounds chunks waiting to be written into the buffer.
	audioQueueSize = 100

	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second

	// maxMessageSize caps a single chunk at one second of audio.
	maxMessageSize = audio.SampleRate * audio.BytesPerSample
)

// Handler upgrades microphone connections and writes their samples into a
// RollingBuffer. Several sessions may feed the same buffer.
type Handler struct {
	buffer   *audio.RollingBuffer
	logger   zerolog.Logger
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	active   atomic.Int32
}

// NewHandler creates a capture handler writing into buffer.
func NewHandler(buffer *audio.RollingBuffer, logger zerolog.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		buffer:  buffer,
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			// The microphone client is a local collaborator, not a browser page.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// ActiveSessions returns the number of connected microphone streams.
func (h *Handler) ActiveSessions() int {
	return int(h.active.Load())
}

// ServeHTTP is the entry point for microphone WebSocket connections.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		h.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}
	defer conn.Close()

	s := newSession(conn, h.buffer, h.logger, h.metrics)

	h.active.Add(1)
	h.metrics.CaptureStarted()
	defer func() {
		h.active.Add(-1)
		h.metrics.CaptureEnded()
	}()

	s.run()
}

// session is one connected microphone stream.
type session struct {
	conn    *websocket.Conn
	buffer  *audio.RollingBuffer
	logger  zerolog.Logger
	metrics *observability.Metrics

	audioIn chan []int16
	done    chan struct{}

	samples atomic.Int64
	dropped atomic.Int64
}

func newSession(conn *websocket.Conn, buffer *audio.RollingBuffer, logger zerolog.Logger, metrics *observability.Metrics) *session {
	sessionID := observability.NewCorrelationID()
	return &session{
		conn:    conn,
		buffer:  buffer,
		logger:  logger.With().Str("session_id", sessionID).Str("remote", conn.RemoteAddr().String()).Logger(),
		metrics: metrics,
		audioIn: make(chan []int16, audioQueueSize),
		done:    make(chan struct{}),
	}
}

// run blocks until the client disconnects and every received chunk has been
// written into the buffer.
func (s *session) run() {
	start := time.Now()
	s.logger.Info().Msg("Microphone stream connected")

	written := make(chan struct{})
	go func() {
		defer close(written)
		s.processIncomingAudio()
	}()
	go s.keepAlive()

	s.processIncomingMessages()
	close(s.done)
	close(s.audioIn)
	<-written

	s.logger.Info().
		Int64("samples", s.samples.Load()).
		Int64("dropped_chunks", s.dropped.Load()).
		Dur("duration", time.Since(start)).
		Msg("Microphone stream ended")
}

// processIncomingMessages reads WebSocket frames until the connection closes.
func (s *session) processIncomingMessages() {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
				s.metrics.RecordError("read", "capture")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		if msgType != websocket.BinaryMessage {
			s.logger.Debug().Int("type", msgType).Msg("Ignoring non-binary message")
			continue
		}

		samples := audio.DecodeSamples(message)
		if len(samples) == 0 {
			continue
		}

		select {
		case s.audioIn <- samples:
		default:
			// Never block the socket reader on a slow consumer.
			s.dropped.Add(1)
			s.logger.Warn().Int("samples", len(samples)).Msg("Audio queue full, dropping chunk")
		}
	}
}

// processIncomingAudio drains queued chunks into the rolling buffer.
func (s *session) processIncomingAudio() {
	for samples := range s.audioIn {
		s.buffer.Write(samples)
		s.samples.Add(int64(len(samples)))
		s.metrics.RecordAudioSamples(len(samples))
	}
}

// keepAlive pings the client so dead connections hit the read deadline.
func (s *session) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
