package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skypro1111/interview-service/internal/audio"
	"github.com/skypro1111/interview-service/internal/protocol"
)

// ErrClosed is returned by Receive after the connection was closed locally
var ErrClosed = errors.New("connection closed")

// Config holds connection settings
type Config struct {
	Endpoint         string
	APIKey           string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// Dialer opens live connections
type Dialer struct {
	config Config
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewDialer creates a dialer
func NewDialer(config Config, logger *slog.Logger) *Dialer {
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	return &Dialer{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
		},
		logger: logger,
	}
}

// Dial connects and sends the setup message. The server acknowledges setup
// asynchronously with a setupComplete message, read through Receive.
func (d *Dialer) Dial(ctx context.Context, setup protocol.SetupMessage) (*Conn, error) {
	target, err := d.endpointURL()
	if err != nil {
		return nil, err
	}

	ws, resp, err := d.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	conn := &Conn{
		ws:           ws,
		writeTimeout: d.config.WriteTimeout,
		logger:       d.logger,
		closed:       make(chan struct{}),
	}

	if err := conn.writeJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send setup: %w", err)
	}

	d.logger.Info("Live connection opened",
		slog.String("model", setup.Setup.Model),
		slog.String("host", ws.RemoteAddr().String()))

	return conn, nil
}

func (d *Dialer) endpointURL() (string, error) {
	u, err := url.Parse(d.config.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	if d.config.APIKey != "" {
		q := u.Query()
		q.Set("key", d.config.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Conn is one open live connection. Send may be called concurrently with
// Receive; Receive must be called from a single goroutine.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	logger       *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// Send streams one audio packet
func (c *Conn) Send(packet audio.WireAudioPacket) error {
	return c.writeJSON(protocol.NewRealtimeInput(packet))
}

// Receive blocks for the next server message. Both text and binary frames
// carry JSON.
func (c *Conn) Receive() (*protocol.ServerMessage, error) {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return nil, ErrClosed
			default:
			}
			return nil, fmt.Errorf("failed to read message: %w", err)
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		return protocol.ParseServerMessage(data)
	}
}

// Close sends a close frame and closes the socket. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		deadline := time.Now().Add(c.writeTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); werr != nil {
			c.logger.Debug("Failed to send close frame", slog.String("error", werr.Error()))
		}
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

func (c *Conn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
