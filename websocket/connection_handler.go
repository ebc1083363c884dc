// websocket/connection_handler.go
package websocket

import (
	"net/http"
	"sync/atomic"
)

// HandleConnections подключает клиента к потоку событий запусков
func (manager *Manager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		manager.logger.Error("Ошибка при установке WebSocket-соединения: %v", err)
		return
	}

	client := &Client{
		ID:     atomic.AddInt64(&manager.nextID, 1),
		Socket: conn,
		Send:   make(chan []byte, sendBufferSize),
	}

	select {
	case manager.Register <- client:
	case <-manager.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(manager)
}
