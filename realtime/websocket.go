// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/checkin/lib/netutil"
)

// defaultWriteTimeout bounds a frame write when the caller's context
// carries no deadline.
const defaultWriteTimeout = 10 * time.Second

// WebSocketDialer connects to the realtime service over WebSocket. The
// bearer token travels in the Authorization header of the upgrade
// request.
type WebSocketDialer struct {
	// URL is the service base URL. http and https schemes are mapped
	// to ws and wss.
	URL string

	// Namespace is appended to the URL path (e.g. "/checkin").
	Namespace string

	// Token is the bearer token. Empty means no Authorization header.
	Token string

	// Binary selects binary frames. Set it from Codec.Binary.
	Binary bool

	// HandshakeTimeout bounds the upgrade handshake. Zero uses the
	// gorilla default.
	HandshakeTimeout time.Duration
}

// Endpoint returns the WebSocket URL the dialer connects to.
func (d *WebSocketDialer) Endpoint() (string, error) {
	parsed, err := url.Parse(d.URL)
	if err != nil {
		return "", fmt.Errorf("realtime: parsing URL %q: %w", d.URL, err)
	}
	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("realtime: URL %q has unsupported scheme %q", d.URL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("realtime: URL %q has no host", d.URL)
	}
	if d.Namespace != "" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/" + strings.TrimPrefix(d.Namespace, "/")
	}
	return parsed.String(), nil
}

// Dial performs the WebSocket upgrade.
func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	endpoint, err := d.Endpoint()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	header := http.Header{}
	if d.Token != "" {
		header.Set("Authorization", "Bearer "+d.Token)
	}

	conn, response, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if response != nil {
			// The server's reason for refusing the upgrade (an expired
			// token, usually) is in the body.
			body := strings.TrimSpace(netutil.ErrorBody(response.Body))
			return nil, fmt.Errorf("realtime: dialing %s: %w (HTTP %d: %s)", endpoint, err, response.StatusCode, body)
		}
		return nil, fmt.Errorf("realtime: dialing %s: %w", endpoint, err)
	}

	messageType := websocket.TextMessage
	if d.Binary {
		messageType = websocket.BinaryMessage
	}
	return &webSocketConn{conn: conn, messageType: messageType}, nil
}

type webSocketConn struct {
	conn        *websocket.Conn
	messageType int

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *webSocketConn) ReadMessage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

func (c *webSocketConn) WriteMessage(ctx context.Context, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(c.messageType, frame)
}

func (c *webSocketConn) Close() error {
	c.closeOnce.Do(func() {
		// WriteControl may run concurrently with WriteMessage. Best
		// effort: the peer may already be gone.
		closeFrame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, closeFrame, time.Now().Add(time.Second))
		c.closeErr = c.conn.Close()
		if errors.Is(c.closeErr, io.EOF) {
			c.closeErr = nil
		}
	})
	return c.closeErr
}
