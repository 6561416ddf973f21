package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gorilla/mux"

	"github.com/p-n-ai/pai-quiz/internal/session"
)

const wsWriteTimeout = 5 * time.Second

// quizEvents handles GET /api/v1/quizzes/{id}/events by streaming session
// events as JSON WebSocket messages until the quiz ends or the client leaves.
func (s *Server) quizEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotImplemented, "event streaming is disabled")
		return
	}
	id := mux.Vars(r)["id"]
	if _, err := s.sessions.Quiz(id); err != nil {
		fail(w, err)
		return
	}

	// Subscribe before the handshake so no event between upgrade and
	// registration is lost.
	events, unsubscribe := s.hub.Subscribe(id)
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns()})
	if err != nil {
		slog.Warn("websocket accept failed", "quiz_id", id, "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	slog.Debug("event stream opened", "quiz_id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(wctx, conn, event)
			cancel()
			if err != nil {
				slog.Debug("event stream write failed", "quiz_id", id, "error", err)
				return
			}
			if event.EventType == session.EventQuizEnded {
				conn.Close(websocket.StatusNormalClosure, "quiz ended")
				return
			}
		}
	}
}
