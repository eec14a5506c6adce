package relay

import (
	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
)

// Session - одно живое транспортное соединение. Реализация в handler
// (websocket), в тестах - фейк. Send не блокирует: медленный получатель
// теряет кадр, но никогда не тормозит relay.
type Session interface {
	ID() string
	Send(event domain.ServerEvent) bool
}
