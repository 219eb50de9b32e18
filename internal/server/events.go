package server

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/wardenhq/warden/internal/observe"
)

// handleEvents upgrades the connection to a WebSocket and streams engine
// events as JSON text frames until the client disconnects. Delivery is
// best-effort per the engine's Subscribe contract.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "event stream aborted")

	events, cancel := s.engine.Subscribe()
	defer cancel()

	// The client never sends frames; CloseRead cancels the context when
	// the peer goes away.
	ctx := conn.CloseRead(r.Context())
	log := observe.Logger(ctx)
	log.Debug("event stream subscriber connected")

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "stream closed")
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "stream closed")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Error("event marshal failed", "err", err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				log.Debug("event stream subscriber gone", "err", err)
				return
			}
		}
	}
}
