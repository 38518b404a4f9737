package assemblyai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

var errNotConnected = errors.New("transport not connected")

// Conn is the part of a websocket connection the session relies on.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type Dialer func(ctx context.Context, url string, header http.Header) (Conn, error)

func DefaultDialer(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open socket connection to assemblyai (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to open socket connection to assemblyai: %w", err)
	}
	return conn, nil
}

// transport owns the websocket and redials it when reads fail.
type transport struct {
	dial   Dialer
	url    string
	header http.Header

	newBackOff  func() backoff.BackOff
	maxAttempts uint

	mu      sync.RWMutex
	conn    Conn
	writeMu sync.Mutex
}

func (t *transport) connect(ctx context.Context) error {
	conn, err := t.dial(ctx, t.url, t.header)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	return nil
}

func (t *transport) reconnect(ctx context.Context) error {
	t.closeConn()

	conn, err := backoff.Retry(ctx,
		func() (Conn, error) {
			conn, err := t.dial(ctx, t.url, t.header)
			if err != nil {
				logger.Warn("reconnect attempt failed", "error", err)
			}
			return conn, err
		},
		backoff.WithBackOff(t.newBackOff()),
		backoff.WithMaxTries(t.maxAttempts),
	)
	if err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	return nil
}

func (t *transport) write(data []byte) error {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return errNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (t *transport) ping() error {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return errNotConnected
	}

	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (t *transport) read() ([]byte, error) {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return nil, errNotConnected
	}

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.TextMessage {
			return msg, nil
		}
	}
}

func (t *transport) closeConn() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
