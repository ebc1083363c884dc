// websocket/types.go
package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/LilVoxy/sales_dwh/ETL/utils"
)

// Клиент WebSocket - подписчик на события запусков
type Client struct {
	ID     int64
	Socket *websocket.Conn
	Send   chan []byte
}

// Менеджер WebSocket-соединений
type Manager struct {
	Clients    map[int64]*Client
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client

	logger *utils.ETLLogger
	nextID int64
	done   chan struct{}
}

// Конфигурация WebSocket-соединения
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
