package push

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WS pushes text frames to a websocket endpoint. The connection is dialled on
// first use and again after any write failure.
type WS struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWS(url string) *WS {
	return &WS{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: writeWait,
		},
	}
}

func (w *WS) Name() string {
	return w.url
}

func (w *WS) Deliver(ctx context.Context, msg string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", w.url, err)
		}
		w.conn = conn
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		_ = w.conn.Close()
		w.conn = nil
		return fmt.Errorf("write %s: %w", w.url, err)
	}
	return nil
}

func (w *WS) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := w.conn.Close()
	w.conn = nil
	return err
}
