package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/luno/qkdmap/api/render"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
}

// StreamHandler pushes the view and frame to the client every time the
// map changes. Notifications coalesce so slow clients only miss frames.
func StreamHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied to the client.
			log.Info(ctx, "websocket upgrade failed", log.WithError(err))
			return
		}
		defer conn.Close()
		streamClients.Inc()
		defer streamClients.Dec()

		mv := d.MapView()
		updates, unsub := mv.Subscribe()
		defer unsub()

		closed := make(chan struct{})
		go readPump(conn, closed)

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()

		if err := writeSnapshot(conn, mv); err != nil {
			return
		}
		for {
			select {
			case <-closed:
				return
			case <-ctx.Done():
				return
			case <-mv.Done():
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "map stopped"))
				return
			case <-updates:
				if err := writeSnapshot(conn, mv); err != nil {
					log.Info(ctx, "websocket write failed", j.KV("remote", r.RemoteAddr), log.WithError(err))
					return
				}
			case <-ping.C:
				err := conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, mv MapView) error {
	snap := mv.Snapshot()
	err := conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		return errors.Wrap(err, "set write deadline")
	}
	return conn.WriteJSON(render.StreamMessage{View: snap.View, Frame: snap.Frame})
}

// readPump discards client messages so control frames are processed and
// closes closed when the connection goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
