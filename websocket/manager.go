// websocket/manager.go
package websocket

import (
	"context"
	"encoding/json"

	"github.com/LilVoxy/sales_dwh/ETL/models"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// NewManager создает менеджер подписчиков на события запусков
func NewManager(logger *utils.ETLLogger) *Manager {
	return &Manager{
		Broadcast:  make(chan []byte, broadcastBufferSize),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[int64]*Client),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run обслуживает регистрацию клиентов и рассылку до отмены контекста
func (manager *Manager) Run(ctx context.Context) {
	defer close(manager.done)
	for {
		select {
		case <-ctx.Done():
			for id, client := range manager.Clients {
				close(client.Send)
				delete(manager.Clients, id)
			}
			return

		case client := <-manager.Register:
			manager.Clients[client.ID] = client
			manager.logger.Debug("Подписчик %d подключился", client.ID)

		case client := <-manager.Unregister:
			if _, ok := manager.Clients[client.ID]; ok {
				delete(manager.Clients, client.ID)
				close(client.Send)
				manager.logger.Debug("Подписчик %d отключился", client.ID)
			}

		case message := <-manager.Broadcast:
			manager.broadcast(message)
		}
	}
}

// broadcast отправляет сообщение всем подключенным клиентам.
// Клиент с переполненной очередью отключается
func (manager *Manager) broadcast(message []byte) {
	for id, client := range manager.Clients {
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(manager.Clients, id)
		}
	}
}

// Notify рассылает событие запуска. Не блокирует конвейер: при переполненной
// очереди событие отбрасывается
func (manager *Manager) Notify(event models.RunEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		manager.logger.Error("Ошибка сериализации события: %v", err)
		return
	}
	select {
	case manager.Broadcast <- data:
	default:
		manager.logger.Warn("Очередь событий переполнена, событие %s отброшено", event.Type)
	}
}
