package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role - вид участника переписки
type Role string

const (
	RoleVital    Role = "vital"    // ищет уход
	RoleGuardian Role = "guardian" // оказывает уход
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleVital, RoleGuardian:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Other возвращает роль второго участника переписки
func (r Role) Other() Role {
	if r == RoleVital {
		return RoleGuardian
	}
	return RoleVital
}

// ConversationID строит детерминированный ключ переписки.
// Порядок фиксированный: сначала vital, потом guardian - для пары
// участников существует ровно один ключ.
func ConversationID(vitalID, guardianID uuid.UUID) string {
	return vitalID.String() + "-" + guardianID.String()
}

// ParseConversationID разбирает ключ обратно на идентификаторы профилей
func ParseConversationID(id string) (vitalID, guardianID uuid.UUID, err error) {
	// UUID сам содержит дефисы, поэтому делим по известной длине
	const uuidLen = 36
	if len(id) != uuidLen*2+1 || id[uuidLen] != '-' {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed conversation id %q", id)
	}

	vitalID, err = uuid.Parse(id[:uuidLen])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed vital id: %w", err)
	}
	guardianID, err = uuid.Parse(id[uuidLen+1:])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed guardian id: %w", err)
	}
	return vitalID, guardianID, nil
}

// ValidConversationID проверяет ключ без разбора на составляющие
func ValidConversationID(id string) bool {
	_, _, err := ParseConversationID(strings.TrimSpace(id))
	return err == nil
}
