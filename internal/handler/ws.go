package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quizmasterpro/quizmaster/internal/attempt"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/router"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins.
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// handleQuizSocket streams the active attempt's events (countdown ticks,
// expiry, submission outcome) to the quiz page.
func (h *Handler) handleQuizSocket(w http.ResponseWriter, r *http.Request) {
	quizID, ok := parseID(r.URL.Query().Get(router.ParamQuizID))
	if !ok {
		http.Error(w, "invalid quiz ID", http.StatusBadRequest)
		return
	}
	ws, found := h.workspaces.Peek(model.BrowserIDFromContext(r.Context()))
	if !found {
		http.Error(w, "no active attempt", http.StatusNotFound)
		return
	}
	e := ws.Attempt()
	if e == nil || e.QuizID() != quizID {
		http.Error(w, "no active attempt", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := e.Subscribe()
	defer cancel()

	log := slog.With("quiz_id", quizID)
	log.Debug("quiz stream connected")

	// The page never sends anything; reading only tracks pongs and closes.
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn("unexpected websocket close", "error", err)
				}
				return
			}
		}
	}()

	snap := e.Snapshot()
	if err := writeEvent(conn, attempt.Event{Kind: attempt.EventTick, TimeLeft: snap.TimeLeft, Phase: snap.Phase}); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			log.Debug("quiz stream disconnected")
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				// Attempt closed.
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				log.Debug("quiz stream write failed", "error", err)
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev attempt.Event) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(ev)
}
