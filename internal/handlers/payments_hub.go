// atlant-crm/internal/handlers/payments_hub.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"atlant-crm/internal/payments"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Для разработки разрешаем все источники
	},
}

// PaymentsHub - единственный экземпляр хаба для всего приложения.
// Дашборды подключаются по вебсокету и получают события об оплатах.
var PaymentsHub = NewHub()

// ProgressEvent - событие обновления прогресса платежа.
// Отправляется после того, как барьер согласованности подтвердил чтение.
type ProgressEvent struct {
	Type      string                    `json:"type"` // всегда "paymentProgress"
	PaymentID uint                      `json:"paymentId"`
	Progress  payments.ProgressSnapshot `json:"progress"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// BroadcastProgress рассылает подтверждённую сводку всем подключённым дашбордам.
func (h *Hub) BroadcastProgress(paymentID uint, snap payments.ProgressSnapshot) {
	data, err := json.Marshal(ProgressEvent{
		Type:      "paymentProgress",
		PaymentID: paymentID,
		Progress:  snap,
	})
	if err != nil {
		slog.Error("Не удалось сериализовать событие прогресса", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Клиент не успевает читать - отключаем
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// PaymentsWSEndpoint поднимает вебсокет-соединение для дашборда.
func PaymentsWSEndpoint(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Не удалось установить websocket-соединение", "error", err)
		return
	}

	client := &hubClient{conn: conn, send: make(chan []byte, 16)}

	PaymentsHub.mu.Lock()
	PaymentsHub.clients[client] = struct{}{}
	PaymentsHub.mu.Unlock()

	go client.writeLoop()
	go client.readLoop()
}

func (cl *hubClient) writeLoop() {
	defer cl.conn.Close()
	for msg := range cl.send {
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readLoop нужен только чтобы заметить закрытие соединения клиентом.
func (cl *hubClient) readLoop() {
	defer func() {
		PaymentsHub.mu.Lock()
		if _, ok := PaymentsHub.clients[cl]; ok {
			delete(PaymentsHub.clients, cl)
			close(cl.send)
		}
		PaymentsHub.mu.Unlock()
		cl.conn.Close()
	}()
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
