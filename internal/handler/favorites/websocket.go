package favorites

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/transport-eta/backend/internal/model/transport"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	writeWait  = 10 * time.Second
)

// liveMessage is what the favorites feed sends to clients.
type liveMessage struct {
	Type      string                `json:"type"`
	Transport *transport.Transport  `json:"transport,omitempty"`
	Favorites []transport.Transport `json:"favorites"`
	Timestamp int64                 `json:"timestamp"`
}

// handleWebSocket 推送收藏列表的实时变化，连接建立后先发送一次快照。
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lggr.Warnf("[websocket] upgrade failed: %v", err)
		return
	}

	h.feeds.Add(1)
	defer h.feeds.Done()

	// conn.Close unblocks readLoop, so it must run before the wait
	var wg sync.WaitGroup
	defer wg.Wait()
	defer conn.Close()

	events, unsubscribe := h.svc.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	wg.Add(2)
	go func() {
		defer wg.Done()
		h.readLoop(conn, cancel)
	}()
	go func() {
		defer wg.Done()
		h.pingLoop(ctx, conn)
	}()

	snapshot, err := h.svc.GetAll(ctx)
	if err != nil {
		h.lggr.Warnf("[websocket] load snapshot failed: %v", err)
		return
	}
	if err := h.send(conn, liveMessage{Type: "snapshot", Favorites: snapshot}); err != nil {
		return
	}

	h.lggr.Debugf("[websocket] favorites feed opened from %s", r.RemoteAddr)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			msg := liveMessage{Type: string(event.Type), Transport: event.Transport, Favorites: event.Favorites}
			if err := h.send(conn, msg); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, msg liveMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	if msg.Favorites == nil {
		msg.Favorites = []transport.Transport{}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.lggr.Debugf("[websocket] write failed: %v", err)
		return err
	}
	return nil
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *Handler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.lggr.Debugf("[websocket] read error: %v", err)
			}
			return
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
