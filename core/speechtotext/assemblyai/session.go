package assemblyai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultURL = "wss://api.assemblyai.com/v2/realtime/ws"

	defaultReconnectAttempts = 5
	inboundQueueCapacity     = 32
)

// Session streams captured audio to the AssemblyAI realtime API and writes
// the transcripts into the bound turn.
type Session struct {
	apiKey  string
	baseURL string

	options           speechtotext.SessionOptions
	dial              Dialer
	newBackOff        func() backoff.BackOff
	reconnectAttempts uint

	mu        sync.Mutex
	state     speechtotext.State
	running   bool
	sink      speechtotext.TranscriptSink
	turnDone  bool
	transport *transport
	cancel    context.CancelFunc
	span      trace.Span
	tasks     sync.WaitGroup
}

type Option func(*Session)

func WithSessionOptions(opts ...speechtotext.SessionOption) Option {
	return func(s *Session) {
		for _, opt := range opts {
			opt(&s.options)
		}
	}
}

func WithDialer(dial Dialer) Option {
	return func(s *Session) {
		if dial != nil {
			s.dial = dial
		}
	}
}

func WithURL(baseURL string) Option {
	return func(s *Session) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
	}
}

// WithReconnect sets the policy used by the transport to redial after a
// failed read.
func WithReconnect(attempts uint, newBackOff func() backoff.BackOff) Option {
	return func(s *Session) {
		s.reconnectAttempts = attempts
		if newBackOff != nil {
			s.newBackOff = newBackOff
		}
	}
}

func NewSession(apiKey string, opts ...Option) *Session {
	s := &Session{
		apiKey:            apiKey,
		baseURL:           DefaultURL,
		options:           speechtotext.DefaultSessionOptions(),
		dial:              DefaultDialer,
		newBackOff:        func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		reconnectAttempts: defaultReconnectAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() speechtotext.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start binds sink and opens the transport.
func (s *Session) Start(ctx context.Context, sink speechtotext.TranscriptSink) error {
	if sink == nil {
		return speechtotext.ErrNoTurnBound
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warn("start called on a running transcription session")
		return speechtotext.ErrAlreadyRunning
	}
	if s.state != speechtotext.StateClosed {
		state := s.state
		s.mu.Unlock()
		logger.Warn("start called before the previous transport closed", "state", state.String())
		return speechtotext.ErrTransportNotClosed
	}
	s.running = true
	s.state = speechtotext.StateConnecting
	s.sink = sink
	s.turnDone = false
	s.mu.Unlock()

	ctx, span := tracer.Start(ctx, "transcription session")
	span.SetAttributes(attribute.Int("audio.sample_rate", s.options.EncodingInfo.SampleRate))

	t := &transport{
		dial:        s.dial,
		url:         s.url(),
		header:      http.Header{"Authorization": {s.apiKey}},
		newBackOff:  s.newBackOff,
		maxAttempts: s.reconnectAttempts,
	}
	if err := t.connect(ctx); err != nil {
		err = fmt.Errorf("failed to start transcription session: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()

		s.mu.Lock()
		s.running = false
		s.state = speechtotext.StateClosed
		s.sink = nil
		s.mu.Unlock()
		return err
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	stopClosing := context.AfterFunc(sessionCtx, func() { t.closeConn() })

	s.mu.Lock()
	s.transport = t
	s.cancel = cancel
	s.span = span
	s.state = speechtotext.StateOpen
	s.mu.Unlock()

	inbound := make(chan []byte, inboundQueueCapacity)
	d := newDispatcher(s, sink)

	s.tasks.Add(3)
	go func() {
		defer s.tasks.Done()
		defer stopClosing()
		s.receive(sessionCtx, t, inbound)
	}()
	go func() {
		defer s.tasks.Done()
		d.run(sessionCtx, inbound)
	}()
	go func() {
		defer s.tasks.Done()
		s.keepAlive(sessionCtx, t)
	}()

	return nil
}

// Stop terminates the service session, closes the transport and waits for
// every session task to exit.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		logger.Warn("stop called on a transcription session that is not running")
		return speechtotext.ErrNotRunning
	}
	s.running = false
	s.state = speechtotext.StateClosing
	t := s.transport
	cancel := s.cancel
	span := s.span
	s.mu.Unlock()

	if t != nil {
		payload, _ := json.Marshal(terminateMessage{TerminateSession: true})
		if err := t.write(payload); err != nil {
			logger.Debug("failed to send session termination", "error", err)
		}
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.tasks.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		// Tasks are already cancelled and exit once their reads return.
		<-done
		err = ctx.Err()
	}

	if t != nil {
		t.closeConn()
	}
	if span != nil {
		span.End()
	}

	s.mu.Lock()
	s.state = speechtotext.StateClosed
	s.sink = nil
	s.transport = nil
	s.cancel = nil
	s.span = nil
	s.mu.Unlock()

	return err
}

// SendAudio forwards one PCM16 frame. Failures are logged and returned but
// do not stop the session.
func (s *Session) SendAudio(frame []byte) error {
	s.mu.Lock()
	sink := s.sink
	t := s.transport
	s.mu.Unlock()

	if sink == nil {
		return speechtotext.ErrNoTurnBound
	}
	if t == nil {
		return fmt.Errorf("failed to send audio frame: %w", errNotConnected)
	}

	payload, err := json.Marshal(audioMessage{AudioData: frame})
	if err != nil {
		return fmt.Errorf("failed to encode audio frame: %w", err)
	}
	if err := t.write(payload); err != nil {
		logger.Warn("failed to send audio frame", "error", err)
		return fmt.Errorf("failed to send audio frame: %w", err)
	}
	return nil
}

func (s *Session) url() string {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return s.baseURL + "?sample_rate=" + strconv.Itoa(s.options.EncodingInfo.SampleRate)
	}
	query := u.Query()
	query.Set("sample_rate", strconv.Itoa(s.options.EncodingInfo.SampleRate))
	u.RawQuery = query.Encode()
	return u.String()
}

func (s *Session) receive(ctx context.Context, t *transport, inbound chan<- []byte) {
	for {
		msg, err := t.read()
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			logger.Warn("transcription transport failed, reconnecting", "error", err)
			s.markConnecting()
			if err := t.reconnect(ctx); err != nil {
				if ctx.Err() == nil {
					logger.Error("transcription transport closed", "error", err)
				}
				s.transportClosed()
				return
			}
			if ctx.Err() != nil {
				t.closeConn()
				return
			}
			s.markOpen()
			continue
		}

		select {
		case inbound <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) keepAlive(ctx context.Context, t *transport) {
	if s.options.PingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.options.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.ping(); err != nil {
				logger.Debug("failed to ping transcription service", "error", err)
			}
		}
	}
}

func (s *Session) markConnecting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == speechtotext.StateOpen || s.state == speechtotext.StateOpenTurnFinished {
		s.state = speechtotext.StateConnecting
	}
}

func (s *Session) markOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != speechtotext.StateConnecting {
		return
	}
	if s.turnDone {
		s.state = speechtotext.StateOpenTurnFinished
	} else {
		s.state = speechtotext.StateOpen
	}
}

func (s *Session) turnFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnDone = true
	if s.state == speechtotext.StateOpen {
		s.state = speechtotext.StateOpenTurnFinished
	}
}

// transportClosed records a transport that could not be recovered. The
// session stays bound until Stop.
func (s *Session) transportClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != speechtotext.StateClosing {
		s.state = speechtotext.StateClosed
	}
	if s.span != nil {
		s.span.SetStatus(codes.Error, "transport closed")
	}
}
