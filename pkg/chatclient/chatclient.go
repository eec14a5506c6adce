package chatclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
)

// Client - клиентская сторона контракта relay: оптимистичные записи,
// сверка с серверным echo, пересинхронизация после reconnect.
// Go-версия той же state-машины, что исполняет фронтенд.

// outgoingState - явное двухвариантное состояние исходящего сообщения.
// Никакого разбора строковых префиксов id.
type outgoingState int

const (
	stateOptimistic outgoingState = iota // показано локально, сервер не подтвердил
	stateConfirmed                       // заменено серверной записью
)

// Outgoing - одно исходящее сообщение на пути Composing -> Pending ->
// Confirmed | Failed
type Outgoing struct {
	state    outgoingState
	tempID   uuid.UUID // действует в stateOptimistic
	serverID int64     // действует в stateConfirmed

	conversationID string
	senderID       uuid.UUID
	senderRole     domain.Role
	body           string
	submittedAt    time.Time
}

// TempID - клиентский идентификатор оптимистичной записи
func (o *Outgoing) TempID() uuid.UUID { return o.tempID }

// Entry - строка в отображаемом списке переписки: либо подтвержденное
// сообщение, либо оптимистичная запись
type Entry struct {
	Pending bool
	TempID  uuid.UUID      // только для Pending
	Message domain.Message // для Pending заполнены Body/Sender/CreatedAt локально
}

// SendFailure отдается приложению при отказе отправки: тело
// возвращается в поле ввода, записи в списке не остается
type SendFailure struct {
	ConversationID string
	Body           string
	Reason         string
}

type conversation struct {
	id       string
	role     domain.Role
	messages []domain.Message // подтвержденные, по возрастанию id
	pending  []*Outgoing      // только stateOptimistic
	seen     map[int64]struct{}
}

// Transport - исходящий канал к relay
type Transport interface {
	Emit(event domain.ClientEvent) error
}

// HistoryFetcher - запрос полной истории переписки (REST)
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, conversationID string) ([]*domain.Message, error)
}

type Client struct {
	mu sync.Mutex

	transport Transport
	history   HistoryFetcher

	// userID - идентичность аккаунта, под ней клиент регистрируется
	// для доставки уведомлений. profileID - идентичность участника
	// переписки, под ней уходят сообщения: ключ переписки составлен
	// из профилей, не из аккаунтов.
	userID    uuid.UUID
	profileID uuid.UUID

	conversations map[string]*conversation
	notifications []domain.NewNotification

	// OnSendFailure вызывается под локом - обработчик не должен
	// обращаться к клиенту повторно
	OnSendFailure func(SendFailure)
}

func New(transport Transport, history HistoryFetcher, userID, profileID uuid.UUID) *Client {
	return &Client{
		transport:     transport,
		history:       history,
		userID:        userID,
		profileID:     profileID,
		conversations: make(map[string]*conversation),
	}
}

// Register объявляет серверу идентичность пользователя
func (c *Client) Register() error {
	return c.transport.Emit(&domain.RegisterUser{UserID: c.userID})
}

// Join подписывает клиента на живую ленту переписки
func (c *Client) Join(conversationID string, role domain.Role) error {
	c.mu.Lock()
	if _, ok := c.conversations[conversationID]; !ok {
		c.conversations[conversationID] = &conversation{
			id:   conversationID,
			role: role,
			seen: make(map[int64]struct{}),
		}
	}
	c.mu.Unlock()

	return c.transport.Emit(&domain.JoinRoom{
		UserID:         c.userID,
		Role:           role,
		ConversationID: conversationID,
	})
}

// Send создает оптимистичную запись и отправляет сообщение.
// Запись видна в View сразу, до подтверждения сервером.
func (c *Client) Send(conversationID, body string) (uuid.UUID, error) {
	if strings.TrimSpace(body) == "" {
		return uuid.Nil, fmt.Errorf("empty message body")
	}

	c.mu.Lock()
	conv, ok := c.conversations[conversationID]
	if !ok {
		c.mu.Unlock()
		return uuid.Nil, fmt.Errorf("not joined to conversation %s", conversationID)
	}

	out := &Outgoing{
		state:          stateOptimistic,
		tempID:         uuid.New(),
		conversationID: conversationID,
		senderID:       c.profileID,
		senderRole:     conv.role,
		body:           body,
		submittedAt:    time.Now(),
	}
	conv.pending = append(conv.pending, out)
	c.mu.Unlock()

	err := c.transport.Emit(&domain.SendMessage{
		ConversationID: conversationID,
		SenderID:       c.profileID,
		SenderRole:     conv.role,
		Body:           body,
	})
	if err != nil {
		// Транспорт упал до отправки: откатываем сразу
		c.failPending(conversationID, out.tempID, "connection lost")
		return uuid.Nil, err
	}

	return out.tempID, nil
}

// MarkRead - best effort, ошибок не возвращает осознанно
func (c *Client) MarkRead(messageIDs []int64) {
	_ = c.transport.Emit(&domain.MarkRead{MessageIDs: messageIDs})
}

// HandleServerEvent обрабатывает один кадр от relay
func (c *Client) HandleServerEvent(event domain.ServerEvent) {
	switch ev := event.(type) {
	case *domain.ReceiveMessage:
		c.receiveMessage(ev.Message)
	case *domain.MessageSent:
		// Подтверждение получено и через echo; отдельной обработки
		// не требуется
	case *domain.MessageError:
		c.failOldestPending(ev.Error)
	case *domain.NewNotification:
		c.mu.Lock()
		c.notifications = append(c.notifications, *ev)
		c.mu.Unlock()
	case *domain.RoomJoined, *domain.RoomError:
		// состояние подписки сервер ведет сам
	}
}

func (c *Client) receiveMessage(message domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.conversations[message.ConversationID]
	if !ok {
		return
	}

	// Подавление дубликатов: echo собственной отправки и наложение
	// живой рассылки на повторную загрузку истории
	if _, dup := conv.seen[message.ID]; dup {
		return
	}

	if message.SenderID == c.profileID {
		conv.confirmNearest(message)
	}

	conv.seen[message.ID] = struct{}{}
	conv.insert(message)
}

// confirmNearest сверяет echo с оптимистичной записью: совпадение по
// переписке и отправителю, из кандидатов берется ближайший по времени
func (conv *conversation) confirmNearest(message domain.Message) {
	bestIdx := -1
	var bestDelta time.Duration
	for i, out := range conv.pending {
		if out.senderID != message.SenderID {
			continue
		}
		delta := message.CreatedAt.Sub(out.submittedAt)
		if delta < 0 {
			delta = -delta
		}
		if bestIdx == -1 || delta < bestDelta {
			bestIdx = i
			bestDelta = delta
		}
	}
	if bestIdx == -1 {
		return
	}

	out := conv.pending[bestIdx]
	out.state = stateConfirmed
	out.serverID = message.ID
	conv.pending = append(conv.pending[:bestIdx], conv.pending[bestIdx+1:]...)
}

// insert держит messages отсортированными по серверному id
func (conv *conversation) insert(message domain.Message) {
	idx := sort.Search(len(conv.messages), func(i int) bool {
		return conv.messages[i].ID >= message.ID
	})
	conv.messages = append(conv.messages, domain.Message{})
	copy(conv.messages[idx+1:], conv.messages[idx:])
	conv.messages[idx] = message
}

// failOldestPending откатывает самую раннюю неподтвержденную запись:
// message-error приходит без ссылки на сообщение, в полете она одна
func (c *Client) failOldestPending(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var target *conversation
	var oldest *Outgoing
	for _, conv := range c.conversations {
		for _, out := range conv.pending {
			if oldest == nil || out.submittedAt.Before(oldest.submittedAt) {
				oldest = out
				target = conv
			}
		}
	}
	if oldest == nil {
		return
	}

	c.removePendingLocked(target, oldest.tempID, reason)
}

func (c *Client) failPending(conversationID string, tempID uuid.UUID, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.conversations[conversationID]
	if !ok {
		return
	}
	c.removePendingLocked(conv, tempID, reason)
}

func (c *Client) removePendingLocked(conv *conversation, tempID uuid.UUID, reason string) {
	for i, out := range conv.pending {
		if out.tempID != tempID {
			continue
		}
		conv.pending = append(conv.pending[:i], conv.pending[i+1:]...)
		if c.OnSendFailure != nil {
			c.OnSendFailure(SendFailure{
				ConversationID: conv.id,
				Body:           out.body,
				Reason:         reason,
			})
		}
		return
	}
}

// Resync - единственный механизм восстановления после reconnect:
// заново вступить во все комнаты, затем заменить историю целиком
func (c *Client) Resync(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]string, 0, len(c.conversations))
	roles := make(map[string]domain.Role, len(c.conversations))
	for id, conv := range c.conversations {
		ids = append(ids, id)
		roles[id] = conv.role
	}
	c.mu.Unlock()

	if err := c.Register(); err != nil {
		return err
	}

	for _, id := range ids {
		if err := c.transport.Emit(&domain.JoinRoom{
			UserID:         c.userID,
			Role:           roles[id],
			ConversationID: id,
		}); err != nil {
			return err
		}

		messages, err := c.history.FetchHistory(ctx, id)
		if err != nil {
			return err
		}
		c.replaceHistory(id, messages)
	}

	return nil
}

// replaceHistory замещает подтвержденный список целиком. Оптимистичные
// записи переживают resync: они еще не известны серверу.
func (c *Client) replaceHistory(conversationID string, messages []*domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.conversations[conversationID]
	if !ok {
		return
	}

	conv.messages = conv.messages[:0]
	conv.seen = make(map[int64]struct{})
	for _, m := range messages {
		if _, dup := conv.seen[m.ID]; dup {
			continue
		}
		conv.seen[m.ID] = struct{}{}
		conv.messages = append(conv.messages, *m)
	}
}

// View - снимок переписки для отображения: подтвержденные сообщения,
// следом оптимистичные записи
func (c *Client) View(conversationID string) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.conversations[conversationID]
	if !ok {
		return nil
	}

	entries := make([]Entry, 0, len(conv.messages)+len(conv.pending))
	for _, m := range conv.messages {
		entries = append(entries, Entry{Message: m})
	}
	for _, out := range conv.pending {
		entries = append(entries, Entry{
			Pending: true,
			TempID:  out.tempID,
			Message: domain.Message{
				ConversationID: out.conversationID,
				SenderID:       out.senderID,
				SenderRole:     out.senderRole,
				Body:           out.body,
				CreatedAt:      out.submittedAt,
			},
		})
	}
	return entries
}

// Notifications - накопленные new-notification события
func (c *Client) Notifications() []domain.NewNotification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.NewNotification, len(c.notifications))
	copy(out, c.notifications)
	return out
}
