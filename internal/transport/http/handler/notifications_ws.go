package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ai-content-platform/internal/application/notification"
	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/transport/http/middleware"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxCommandSize = 4 * 1024
)

// Stream event types sent to the client.
const (
	eventSnapshot = "snapshot"
	eventError    = "error"
)

type snapshotEvent struct {
	Type          string                `json:"type"`
	Notifications []domain.Notification `json:"notifications"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// streamCommand is one client-to-server websocket frame.
type streamCommand struct {
	Action string `json:"action"`
	ID     int64  `json:"id"`
}

// Stream upgrades to a websocket, pushes the caller's queue after every change
// and accepts remove, clear, pause and resume commands. Changes are coalesced,
// so a slow reader only ever receives the latest queue.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Warn("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}

	mgr, release := h.hub.Hold(userID)
	defer release()
	changed := make(chan struct{}, 1)
	replies := make(chan errorEvent, 8)
	done := make(chan struct{})

	signal := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	unsubscribe := mgr.Subscribe(func([]domain.Notification) { signal() })
	signal()

	go h.writePump(conn, mgr, changed, replies, done)
	h.readPump(conn, userID, replies)

	unsubscribe()
	close(done)
}

func (h *NotificationHandler) readPump(conn *websocket.Conn, userID string, replies chan<- errorEvent) {
	conn.SetReadLimit(maxCommandSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("notification stream read failed", "user_id", userID, "err", err)
			}
			return
		}
		var cmd streamCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			sendReply(replies, "invalid command")
			continue
		}
		if err := h.apply(userID, cmd); err != nil {
			sendReply(replies, err.Error())
		}
	}
}

func (h *NotificationHandler) apply(userID string, cmd streamCommand) error {
	mgr := h.hub.For(userID)
	switch strings.ToLower(cmd.Action) {
	case "remove":
		mgr.Remove(cmd.ID)
	case "clear":
		mgr.Clear()
	case "pause":
		return h.setPaused(userID, cmd.ID, true)
	case "resume":
		return h.setPaused(userID, cmd.ID, false)
	default:
		return fmt.Errorf("unknown action %q: %w", cmd.Action, domain.ErrBadRequest)
	}
	return nil
}

func (h *NotificationHandler) writePump(conn *websocket.Conn, mgr *notification.Manager, changed <-chan struct{}, replies <-chan errorEvent, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	write := func(v interface{}) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			slog.Debug("notification stream write failed", "err", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-changed:
			ev := snapshotEvent{Type: eventSnapshot, Notifications: snapshotOf(mgr.Notifications()).Notifications}
			if !write(ev) {
				return
			}
		case ev := <-replies:
			if !write(ev) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func sendReply(replies chan<- errorEvent, msg string) {
	select {
	case replies <- errorEvent{Type: eventError, Error: msg}:
	default:
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients) and those whose origin is listed.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host) {
				return true
			}
		}
		return false
	}
}
