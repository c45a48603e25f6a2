package realtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vobuild/vobuild/pkg/fault"
)

// wsTransport owns the WebSocket connection. No media path and no
// microphone; audio would travel base64-encoded over the socket.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) send(raw []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, raw)
}

func (t *wsTransport) close() error {
	return t.conn.Close()
}

// ConnectWebSocket establishes the session over a WebSocket instead of a
// peer connection. Suitable for server-side use; the event model is the
// same as Connect's. A handshake failure surfaces as a negotiation fault.
func (c *Client) ConnectWebSocket(ctx context.Context) (*Session, error) {
	token, err := c.createSession(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?model=%s", c.config.wsURL, c.config.model)
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.httpClient.Timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, fault.New(fault.KindNegotiation, "handshake rejected with status %d: %v", resp.StatusCode, err)
		}
		return nil, negotiationErr("dial", err)
	}

	session := newSession(c.config.logger)
	session.transport = &wsTransport{conn: conn}

	// The socket is live as soon as the handshake completes.
	session.markConnected()
	go session.readSocket(conn)

	return session, nil
}

// readSocket feeds inbound messages to the dispatch queue until the
// connection drops or the session closes.
func (s *Session) readSocket(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.quit:
			default:
				s.log.Warn("socket read failed", "err", err)
			}
			return
		}
		s.enqueue(message)
	}
}
