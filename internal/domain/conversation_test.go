package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestConversationIDIsOrderStable(t *testing.T) {
	vital := uuid.New()
	guardian := uuid.New()

	id := ConversationID(vital, guardian)
	require.Equal(t, vital.String()+"-"+guardian.String(), id)

	// Один и тот же ключ при повторном построении
	require.Equal(t, id, ConversationID(vital, guardian))
}

func TestParseConversationIDRoundTrip(t *testing.T) {
	vital := uuid.New()
	guardian := uuid.New()

	gotVital, gotGuardian, err := ParseConversationID(ConversationID(vital, guardian))
	require.NoError(t, err)
	require.Equal(t, vital, gotVital)
	require.Equal(t, guardian, gotGuardian)
}

func TestParseConversationIDRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"abc",
		"A-B",
		uuid.NewString(),                       // один uuid без пары
		uuid.NewString() + "_" + uuid.NewString(), // неверный разделитель
	}
	for _, id := range cases {
		_, _, err := ParseConversationID(id)
		require.Error(t, err, "id %q", id)
		require.False(t, ValidConversationID(id))
	}
}

func TestRoleOther(t *testing.T) {
	require.Equal(t, RoleGuardian, RoleVital.Other())
	require.Equal(t, RoleVital, RoleGuardian.Other())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("guardian")
	require.NoError(t, err)
	require.Equal(t, RoleGuardian, role)

	_, err = ParseRole("admin")
	require.Error(t, err)
}
