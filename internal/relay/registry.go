package relay

import (
	"sync"

	"github.com/google/uuid"
)

// ConnectionRegistry - живые соединения по пользователям. Один пользователь
// может держать несколько соединений (вкладки, устройства). Чисто
// in-memory: перезапуск процесса теряет только connectivity, не данные.
type ConnectionRegistry struct {
	mu sync.RWMutex

	// userID -> connectionID -> session
	byUser map[uuid.UUID]map[string]Session
	// connectionID -> userID, для снятия регистрации по одному id
	owners map[string]uuid.UUID
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		byUser: make(map[uuid.UUID]map[string]Session),
		owners: make(map[string]uuid.UUID),
	}
}

// Register связывает соединение с пользователем. Идемпотентен.
// Повторная регистрация под другим пользователем переносит соединение.
func (r *ConnectionRegistry) Register(session Session, userID uuid.UUID) {
	if userID == uuid.Nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	connID := session.ID()
	if prev, ok := r.owners[connID]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(connID, prev)
	}

	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]Session)
	}
	r.byUser[userID][connID] = session
	r.owners[connID] = userID
}

// Unregister убирает соединение из карты пользователей. Неизвестный id -
// не ошибка: соединение могло закрыться до register-user.
func (r *ConnectionRegistry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owners[connID]
	if !ok {
		return
	}
	r.removeLocked(connID, userID)
}

func (r *ConnectionRegistry) removeLocked(connID string, userID uuid.UUID) {
	delete(r.owners, connID)
	if conns, ok := r.byUser[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// ConnectionsFor возвращает живые соединения пользователя.
// Пустой срез - нормальное состояние: пользователь offline.
func (r *ConnectionRegistry) ConnectionsFor(userID uuid.UUID) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	if len(conns) == 0 {
		return nil
	}

	sessions := make([]Session, 0, len(conns))
	for _, s := range conns {
		sessions = append(sessions, s)
	}
	return sessions
}
