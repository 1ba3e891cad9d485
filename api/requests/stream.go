package requests

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/kilianp07/roadside/internal/eventbus"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Frame is one message on the live stream.
type Frame struct {
	Kind  string `json:"kind"`
	Event any    `json:"event"`
}

// events streams a request's events over a websocket. The first frame is
// the current snapshot.
func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	if h.opt.Bus == nil {
		writeError(w, http.StatusNotFound, "event stream disabled")
		return
	}
	id := mux.Vars(r)["id"]
	req, err := h.eng.Get(id)
	if err != nil {
		h.fail(w, err, http.StatusInternalServerError)
		return
	}
	sub := h.opt.Bus.SubscribeFiltered(eventbus.ForRequest(id))
	defer h.opt.Bus.Unsubscribe(sub)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade for %s: %v", id, err)
		return
	}
	defer func() { _ = conn.Close() }()

	// The client never sends data; reading detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := write(conn, Frame{Kind: "snapshot", Event: h.view(req)}); err != nil {
		return
	}
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
				return
			}
			if err := write(conn, Frame{Kind: ev.Kind(), Event: ev}); err != nil {
				return
			}
		}
	}
}

func write(conn *websocket.Conn, f Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}
