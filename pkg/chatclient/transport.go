package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
)

// WSTransport - Transport поверх gorilla/websocket. Читающая горутина
// декодирует кадры сервера и передает их клиенту.
type WSTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Dial открывает websocket до relay и запускает чтение. Каждый декодированный
// кадр уходит в handle; onClose зовется один раз при обрыве транспорта.
func Dial(ctx context.Context, url string, handle func(domain.ServerEvent), onClose func(error)) (*WSTransport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	t := &WSTransport{conn: conn}

	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if onClose != nil {
					onClose(err)
				}
				return
			}
			event, err := domain.DecodeServerEvent(raw)
			if err != nil {
				// Нечитаемый кадр не рвет соединение
				continue
			}
			handle(event)
		}
	}()

	return t, nil
}

func (t *WSTransport) Emit(event domain.ClientEvent) error {
	data, err := domain.EncodeClientEvent(event)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_ = t.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}

// HTTPHistoryFetcher - история переписки через REST relay
type HTTPHistoryFetcher struct {
	BaseURL     string
	AccessToken string
	Client      *http.Client
}

func (f *HTTPHistoryFetcher) FetchHistory(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	url := fmt.Sprintf("%s/api/v1/conversations/%s/messages", f.BaseURL, conversationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+f.AccessToken)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch history: unexpected status %d", resp.StatusCode)
	}

	var messages []*domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return messages, nil
}
