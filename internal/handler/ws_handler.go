package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatsync/internal/app/chat"
	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/logx"
)

const (
	// timeout for a single write to the WebSocket connection.
	writeWait = 10 * time.Second

	// how long to wait for a Pong before considering the peer gone.
	pongWait = 60 * time.Second

	// Ping cadence, shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// the stream is server to client; inbound frames are only control traffic.
	maxMessageSize = 512

	// MessageTypeSnapshot labels a full session snapshot frame.
	MessageTypeSnapshot = "snapshot"
)

// StreamMessage is one frame on /ws.
type StreamMessage struct {
	Type string        `json:"type"`
	Data chat.Snapshot `json:"data"`
}

// snapshotStream pushes a session snapshot to one WebSocket peer whenever
// the session changes. Signals coalesce, so a slow peer sees fewer, newer
// snapshots rather than a backlog.
type snapshotStream struct {
	conn    *websocket.Conn
	session *chat.Session
	logger  zerolog.Logger
}

// HandleWebSocket upgrades the connection and streams snapshots until the
// peer goes away.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := jwt.ClaimsFromContext(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		stream := &snapshotStream{
			conn:    conn,
			session: deps.Session,
			logger:  logx.Component("ws").With().Str("subject", claims.Subject).Logger(),
		}
		stream.logger.Info().Msg("Snapshot stream opened.")

		done := make(chan struct{})
		go stream.writePump(done)
		stream.readPump(done)
	}
}

// readPump consumes control frames until the peer closes or stops answering
// pings, then closes done.
func (s *snapshotStream) readPump(done chan<- struct{}) {
	defer close(done)

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Snapshot stream closed unexpectedly.")
			}
			return
		}
	}
}

// writePump sends the current snapshot, then one per change signal, with
// periodic pings in between.
func (s *snapshotStream) writePump(done <-chan struct{}) {
	changes, unwatch := s.session.Watch()
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		unwatch()
		ticker.Stop()

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Snapshot stream close error")
		}
		s.logger.Info().Msg("Snapshot stream finished.")
	}()

	if !s.writeSnapshot() {
		return
	}

	for {
		select {
		case <-done:
			s.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-changes:
			if !s.writeSnapshot() {
				return
			}

		case <-ticker.C:
			if !s.writeControl(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (s *snapshotStream) writeSnapshot() bool {
	payload, err := json.Marshal(StreamMessage{Type: MessageTypeSnapshot, Data: s.session.Snapshot()})
	if err != nil {
		s.logger.Error().Err(err).Msg("Error marshaling snapshot")
		return false
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.Info().Err(err).Msg("Error writing snapshot")
		return false
	}
	return true
}

func (s *snapshotStream) writeControl(messageType int, data []byte) bool {
	if err := s.conn.WriteControl(messageType, data, time.Now().Add(writeWait)); err != nil {
		s.logger.Info().Err(err).Int("message_type", messageType).Msg("Error writing control frame")
		return false
	}
	return true
}
