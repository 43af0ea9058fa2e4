package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"podwatch/internal/config"
)

// ErrUnauthorized indicates the backend rejected the session credential
// during the handshake. Callers treat it like a sign-out, not a transient
// failure.
var ErrUnauthorized = errors.New("channel credential rejected")

// Transport is a single established push-channel connection. ReadMessage
// blocks until a message arrives or the transport fails; Close unblocks any
// pending read.
type Transport interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens a transport authorized by the given bearer credential. The
// context cancels an in-flight handshake.
type Dialer interface {
	Dial(ctx context.Context, token string) (Transport, error)
}

// WebsocketDialer dials the backend's websocket endpoint.
type WebsocketDialer struct {
	url              string
	handshakeTimeout time.Duration
	readLimit        int64
}

// NewWebsocketDialer builds a dialer from configuration.
func NewWebsocketDialer(cfg *config.Config) (*WebsocketDialer, error) {
	endpoint, err := cfg.ChannelURL()
	if err != nil {
		return nil, err
	}
	return &WebsocketDialer{
		url:              endpoint,
		handshakeTimeout: time.Duration(cfg.Channel.HandshakeTimeout) * time.Second,
		readLimit:        cfg.Channel.ReadLimit,
	}, nil
}

// Dial performs the websocket handshake, passing the credential as a
// connection-time header rather than a message.
func (d *WebsocketDialer) Dial(ctx context.Context, token string) (Transport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.handshakeTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, d.url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: handshake returned %d", ErrUnauthorized, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial channel: %w", err)
	}
	if d.readLimit > 0 {
		conn.SetReadLimit(d.readLimit)
	}
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return t.conn.Close()
}
