package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	"github.com/Rimee2005/CareConnect-sub000/internal/service"
	apperrors "github.com/Rimee2005/CareConnect-sub000/pkg/errors"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

type fakeSession struct {
	id string

	mu     sync.Mutex
	events []domain.ServerEvent
}

func newFakeSession() *fakeSession {
	return &fakeSession{id: uuid.NewString()}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(event domain.ServerEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return true
}

func (s *fakeSession) eventsOf(name string) []domain.ServerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ServerEvent
	for _, ev := range s.events {
		if ev.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}

type fakeMessageRepo struct {
	mu         sync.Mutex
	nextID     int64
	messages   []*domain.Message
	failCreate bool
}

func (r *fakeMessageRepo) Create(_ context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate {
		return errors.New("connection refused")
	}
	r.nextID++
	message.ID = r.nextID
	message.CreatedAt = time.Now()
	stored := *message
	r.messages = append(r.messages, &stored)
	return nil
}

func (r *fakeMessageRepo) ListByConversation(_ context.Context, conversationID string) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, messageIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range messageIDs {
		for _, m := range r.messages {
			if m.ID == id {
				m.Read = true
			}
		}
	}
	return nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        int64
	notifications []*domain.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	notification.ID = r.nextID
	notification.CreatedAt = time.Now()
	stored := *notification
	r.notifications = append(r.notifications, &stored)
	return nil
}

func (r *fakeNotificationRepo) ListForUser(_ context.Context, userID uuid.UUID, onlyUnread bool) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Notification
	for _, n := range r.notifications {
		if n.RecipientUserID == userID && (!onlyUnread || !n.Read) {
			copied := *n
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, notificationID int64, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notifications {
		if n.ID == notificationID && n.RecipientUserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notifications)
}

type fakeProfileRepo struct {
	owners map[uuid.UUID]uuid.UUID
}

func (r *fakeProfileRepo) OwningUserID(_ context.Context, profileID uuid.UUID, _ domain.Role) (uuid.UUID, error) {
	userID, ok := r.owners[profileID]
	if !ok {
		return uuid.Nil, apperrors.ErrProfileNotFound
	}
	return userID, nil
}

type testEnv struct {
	relay    *Relay
	messages *fakeMessageRepo
	notifs   *fakeNotificationRepo

	vitalProfile    uuid.UUID
	guardianProfile uuid.UUID
	vitalUser       uuid.UUID
	guardianUser    uuid.UUID
	conversationID  string
}

func newTestEnv(t *testing.T) *testEnv {
	env := baseTestEnv(t)
	env.buildRelay(map[uuid.UUID]uuid.UUID{
		env.vitalProfile:    env.vitalUser,
		env.guardianProfile: env.guardianUser,
	})
	return env
}

func baseTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		messages:        &fakeMessageRepo{},
		notifs:          &fakeNotificationRepo{},
		vitalProfile:    uuid.New(),
		guardianProfile: uuid.New(),
		vitalUser:       uuid.New(),
		guardianUser:    uuid.New(),
	}
	env.conversationID = domain.ConversationID(env.vitalProfile, env.guardianProfile)
	return env
}

func (env *testEnv) buildRelay(owners map[uuid.UUID]uuid.UUID) {
	log := logger.New("error")
	services := &service.Services{
		Chat:         service.NewChatService(env.messages, &fakeProfileRepo{owners: owners}, time.Second, log),
		Notification: service.NewNotificationService(env.notifs, &fakeProfileRepo{owners: owners}, time.Second, time.Second, log),
		RateLimit:    service.NewRateLimitService(nil, 0, log),
	}
	env.relay = New(services, log)
}

func (env *testEnv) join(sess *fakeSession, userID uuid.UUID, role domain.Role) {
	env.relay.Dispatch(context.Background(), sess, &domain.JoinRoom{
		UserID:         userID,
		Role:           role,
		ConversationID: env.conversationID,
	})
}

func (env *testEnv) send(sess *fakeSession, senderProfile uuid.UUID, role domain.Role, body string) {
	env.relay.Dispatch(context.Background(), sess, &domain.SendMessage{
		ConversationID: env.conversationID,
		SenderID:       senderProfile,
		SenderRole:     role,
		Body:           body,
	})
}

func TestSendBroadcastsToAllRoomMembers(t *testing.T) {
	env := newTestEnv(t)

	vitalSess := newFakeSession()
	guardianSess := newFakeSession()
	env.join(vitalSess, env.vitalUser, domain.RoleVital)
	env.join(guardianSess, env.guardianUser, domain.RoleGuardian)

	env.send(vitalSess, env.vitalProfile, domain.RoleVital, "Hello")

	// Оба участника, включая отправителя, получают один и тот же кадр
	for _, sess := range []*fakeSession{vitalSess, guardianSess} {
		received := sess.eventsOf(domain.EventReceiveMessage)
		require.Len(t, received, 1)
		msg := received[0].(*domain.ReceiveMessage)
		require.Equal(t, "Hello", msg.Body)
		require.Equal(t, int64(1), msg.ID)
	}

	sent := vitalSess.eventsOf(domain.EventMessageSent)
	require.Len(t, sent, 1)
	require.Equal(t, int64(1), sent[0].(*domain.MessageSent).MessageID)

	require.Empty(t, guardianSess.eventsOf(domain.EventMessageSent))
}

func TestSendEmptyBodyRejectedWithoutPersisting(t *testing.T) {
	env := newTestEnv(t)

	sess := newFakeSession()
	env.join(sess, env.vitalUser, domain.RoleVital)

	env.send(sess, env.vitalProfile, domain.RoleVital, "   \t\n")

	require.Len(t, sess.eventsOf(domain.EventMessageError), 1)
	require.Empty(t, sess.eventsOf(domain.EventReceiveMessage))
	require.Empty(t, env.messages.messages)
}

func TestStorageFailureReachesOnlySender(t *testing.T) {
	env := newTestEnv(t)

	vitalSess := newFakeSession()
	guardianSess := newFakeSession()
	env.join(vitalSess, env.vitalUser, domain.RoleVital)
	env.join(guardianSess, env.guardianUser, domain.RoleGuardian)

	env.messages.failCreate = true
	env.send(vitalSess, env.vitalProfile, domain.RoleVital, "Hello")

	require.Len(t, vitalSess.eventsOf(domain.EventMessageError), 1)
	require.Empty(t, vitalSess.eventsOf(domain.EventReceiveMessage))
	require.Empty(t, guardianSess.eventsOf(domain.EventReceiveMessage))

	env.relay.Drain()
	require.Zero(t, env.notifs.count())
}

func TestUnresolvableRecipientSkipsNotificationOnly(t *testing.T) {
	// Профиль guardian исчез: владельца не найти, но чат обязан работать
	env := baseTestEnv(t)
	env.buildRelay(map[uuid.UUID]uuid.UUID{
		env.vitalProfile: env.vitalUser,
	})

	vitalSess := newFakeSession()
	guardianSess := newFakeSession()
	env.join(vitalSess, env.vitalUser, domain.RoleVital)
	env.join(guardianSess, env.guardianUser, domain.RoleGuardian)

	env.send(vitalSess, env.vitalProfile, domain.RoleVital, "Hello")
	env.relay.Drain()

	// Сообщение записано и разослано как обычно
	require.Len(t, vitalSess.eventsOf(domain.EventReceiveMessage), 1)
	require.Len(t, guardianSess.eventsOf(domain.EventReceiveMessage), 1)
	require.Len(t, env.messages.messages, 1)

	// Уведомления нет ни durable, ни по соединениям
	require.Zero(t, env.notifs.count())
	require.Empty(t, guardianSess.eventsOf(domain.EventNewNotification))
}

func TestNotificationFansOutToEveryRecipientConnection(t *testing.T) {
	env := newTestEnv(t)

	vitalSess := newFakeSession()
	env.join(vitalSess, env.vitalUser, domain.RoleVital)

	// Guardian online на двух устройствах, но не в комнате переписки
	guardianTab := newFakeSession()
	guardianPhone := newFakeSession()
	env.relay.Dispatch(context.Background(), guardianTab, &domain.RegisterUser{UserID: env.guardianUser})
	env.relay.Dispatch(context.Background(), guardianPhone, &domain.RegisterUser{UserID: env.guardianUser})

	env.send(vitalSess, env.vitalProfile, domain.RoleVital, "Hello")
	env.relay.Drain()

	for _, sess := range []*fakeSession{guardianTab, guardianPhone} {
		notifs := sess.eventsOf(domain.EventNewNotification)
		require.Len(t, notifs, 1)
		ev := notifs[0].(*domain.NewNotification)
		require.Equal(t, domain.NotificationKindNewMessage, ev.Kind)
		require.Equal(t, int64(1), ev.RelatedMessageID)
	}

	// Не room-member: самого сообщения устройства не получали
	require.Empty(t, guardianTab.eventsOf(domain.EventReceiveMessage))
	require.Equal(t, 1, env.notifs.count())
}

func TestMessageIDsStrictlyIncreasePerConversation(t *testing.T) {
	env := newTestEnv(t)

	sess := newFakeSession()
	env.join(sess, env.vitalUser, domain.RoleVital)

	for _, body := range []string{"one", "two", "three"} {
		env.send(sess, env.vitalProfile, domain.RoleVital, body)
	}

	received := sess.eventsOf(domain.EventReceiveMessage)
	require.Len(t, received, 3)

	var prev int64
	for _, ev := range received {
		msg := ev.(*domain.ReceiveMessage)
		require.Greater(t, msg.ID, prev)
		prev = msg.ID
	}
}

func TestDisconnectedConnectionReceivesNothing(t *testing.T) {
	env := newTestEnv(t)

	vitalSess := newFakeSession()
	guardianSess := newFakeSession()
	env.join(vitalSess, env.vitalUser, domain.RoleVital)
	env.join(guardianSess, env.guardianUser, domain.RoleGuardian)

	env.relay.Disconnect(guardianSess.ID())

	env.send(vitalSess, env.vitalProfile, domain.RoleVital, "Hello")
	env.relay.Drain()

	require.Empty(t, guardianSess.eventsOf(domain.EventReceiveMessage))
	require.Empty(t, guardianSess.eventsOf(domain.EventNewNotification))
	require.Len(t, vitalSess.eventsOf(domain.EventReceiveMessage), 1)
}

func TestJoinWithoutConversationIDEmitsRoomError(t *testing.T) {
	env := newTestEnv(t)

	sess := newFakeSession()
	env.relay.Dispatch(context.Background(), sess, &domain.JoinRoom{
		UserID: env.vitalUser,
		Role:   domain.RoleVital,
	})

	require.Len(t, sess.eventsOf(domain.EventRoomError), 1)
	require.Empty(t, sess.eventsOf(domain.EventRoomJoined))
}

func TestMarkReadIsFireAndForget(t *testing.T) {
	env := newTestEnv(t)

	sess := newFakeSession()
	env.join(sess, env.vitalUser, domain.RoleVital)
	env.send(sess, env.vitalProfile, domain.RoleVital, "Hello")

	env.relay.Dispatch(context.Background(), sess, &domain.MarkRead{MessageIDs: []int64{1}})

	messages, err := env.messages.ListByConversation(context.Background(), env.conversationID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.True(t, messages[0].Read)
}
