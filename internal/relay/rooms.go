package relay

import (
	"sync"
)

// RoomManager - подписки соединений на переписки. Комната создается
// первым join и исчезает с последним участником; никакого persistent
// состояния у комнат нет.
type RoomManager struct {
	mu sync.RWMutex

	// conversationID -> connectionID -> session
	rooms map[string]map[string]Session
	// connectionID -> множество комнат, для очистки при disconnect
	joined map[string]map[string]struct{}
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]map[string]Session),
		joined: make(map[string]map[string]struct{}),
	}
}

func (m *RoomManager) Join(session Session, conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	connID := session.ID()
	if m.rooms[conversationID] == nil {
		m.rooms[conversationID] = make(map[string]Session)
	}
	m.rooms[conversationID][connID] = session

	if m.joined[connID] == nil {
		m.joined[connID] = make(map[string]struct{})
	}
	m.joined[connID][conversationID] = struct{}{}
}

func (m *RoomManager) Leave(connID, conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveLocked(connID, conversationID)
	if rooms, ok := m.joined[connID]; ok {
		delete(rooms, conversationID)
		if len(rooms) == 0 {
			delete(m.joined, connID)
		}
	}
}

func (m *RoomManager) leaveLocked(connID, conversationID string) {
	if members, ok := m.rooms[conversationID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(m.rooms, conversationID)
		}
	}
}

// DropConnection убирает соединение из всех комнат. Вызывается на
// закрытие транспорта - единственный механизм сборки мусора.
func (m *RoomManager) DropConnection(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for conversationID := range m.joined[connID] {
		m.leaveLocked(connID, conversationID)
	}
	delete(m.joined, connID)
}

// MembersOf - текущие подписчики переписки для broadcast
func (m *RoomManager) MembersOf(conversationID string) []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := m.rooms[conversationID]
	if len(members) == 0 {
		return nil
	}

	sessions := make([]Session, 0, len(members))
	for _, s := range members {
		sessions = append(sessions, s)
	}
	return sessions
}

// JoinedRooms - комнаты, в которых состоит соединение
func (m *RoomManager) JoinedRooms(connID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := m.joined[connID]
	if len(rooms) == 0 {
		return nil
	}

	out := make([]string, 0, len(rooms))
	for id := range rooms {
		out = append(out, id)
	}
	return out
}
