package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	"github.com/Rimee2005/CareConnect-sub000/internal/relay"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxFrame   = 16 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно проверять origin
	},
}

type WebSocketHandler struct {
	relay      *relay.Relay
	bufferSize int
	log        logger.Logger

	mu       sync.Mutex
	sessions map[string]*wsSession
}

func NewWebSocketHandler(r *relay.Relay, bufferSize int, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		relay:      r,
		bufferSize: bufferSize,
		log:        log,
		sessions:   make(map[string]*wsSession),
	}
}

// Handle держит соединение до закрытия транспорта. Каждый кадр
// декодируется в типизированное событие и уходит в relay; нечитаемые
// кадры отбрасываются, соединение живет дальше.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	session := newWSSession(conn, h.bufferSize, h.log)
	h.track(session)
	go session.writePump()

	defer func() {
		// Закрытие транспорта - единственный механизм очистки реестров
		h.relay.Disconnect(session.ID())
		h.untrack(session)
		session.close()
	}()

	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("Connection closed unexpectedly", "connection_id", session.ID(), "error", err)
			}
			return
		}

		event, err := domain.DecodeClientEvent(raw)
		if err != nil {
			h.log.Warn("Dropping unreadable frame", "connection_id", session.ID(), "error", err)
			continue
		}

		h.relay.Dispatch(c.Request.Context(), session, event)
	}
}

// CloseAll шлет close-кадр всем живым сессиям (graceful shutdown)
func (h *WebSocketHandler) CloseAll() {
	h.mu.Lock()
	sessions := make([]*wsSession, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

func (h *WebSocketHandler) track(s *wsSession) {
	h.mu.Lock()
	h.sessions[s.ID()] = s
	h.mu.Unlock()
}

func (h *WebSocketHandler) untrack(s *wsSession) {
	h.mu.Lock()
	delete(h.sessions, s.ID())
	h.mu.Unlock()
}

// wsSession - реализация relay.Session поверх gorilla/websocket.
// Вся запись идет через writePump: gorilla разрешает одного писателя.
type wsSession struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	log  logger.Logger

	mu     sync.RWMutex
	closed bool
}

func newWSSession(conn *websocket.Conn, bufferSize int, log logger.Logger) *wsSession {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &wsSession{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, bufferSize),
		log:  log,
	}
}

func (s *wsSession) ID() string {
	return s.id
}

// Send не блокирует: при переполненном буфере кадр теряется,
// медленный клиент догонит состояние повторным запросом истории
func (s *wsSession) Send(event domain.ServerEvent) bool {
	data, err := domain.EncodeServerEvent(event)
	if err != nil {
		s.log.Error("Failed to encode server event", "error", err)
		return false
	}

	// RLock против close(): запись в закрытый канал недопустима
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *wsSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}
