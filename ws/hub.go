package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vnkhanh/duocast-backend/models"
)

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

type Hub struct {
	Clients       map[string]map[*websocket.Conn]*Client // Theo từng podcastID
	GlobalClients map[*websocket.Conn]*Client            // Dành cho broadcast chung
	Mutex         sync.RWMutex
}

var H = Hub{
	Clients:       make(map[string]map[*websocket.Conn]*Client),
	GlobalClients: make(map[*websocket.Conn]*Client),
}

// Struct gửi trạng thái tiến trình của 1 podcast
type PodcastStatusUpdate struct {
	PodcastID string `json:"podcast_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Register theo podcastID riêng
func (h *Hub) Register(podcastID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if _, ok := h.Clients[podcastID]; !ok {
		h.Clients[podcastID] = make(map[*websocket.Conn]*Client)
	}

	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.Clients[podcastID][conn] = client

	go h.readPump(podcastID, conn)
	go h.writePump(podcastID, conn)
}

// Register global cho trang danh sách
func (h *Hub) RegisterGlobal(conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.GlobalClients[conn] = client

	go h.readGlobalPump(conn)
	go h.writeGlobalPump(conn)
}

// Broadcast theo podcastID
func (h *Hub) Broadcast(podcastID string, data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	if clients, ok := h.Clients[podcastID]; ok {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// Broadcast toàn bộ global clients (danh sách)
func (h *Hub) BroadcastGlobal(data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	for _, client := range h.GlobalClients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// GetStats trả số lượng kết nối đang mở (cho health check)
func (h *Hub) GetStats() map[string]int {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	perPodcast := 0
	for _, clients := range h.Clients {
		perPodcast += len(clients)
	}
	return map[string]int{
		"podcast_connections": perPodcast,
		"global_connections":  len(h.GlobalClients),
	}
}

// SendPodcastStatus gửi trạng thái podcast tới các client đang theo dõi
func SendPodcastStatus(podcastID, status, errorMsg string) {
	update := PodcastStatusUpdate{
		PodcastID: podcastID,
		Status:    status,
		Error:     errorMsg,
	}
	data, err := json.Marshal(update)
	if err != nil {
		log.Println("JSON marshal error:", err)
		return
	}
	H.Broadcast(podcastID, data)
	BroadcastPodcastListChanged()
}

// BroadcastPodcastListChanged gửi signal cập nhật danh sách podcast
func BroadcastPodcastListChanged() {
	data := []byte(`{"type": "podcast_list_changed"}`)
	H.BroadcastGlobal(data)
}

// StatusNotifier implement services.StatusNotifier qua hub này
type StatusNotifier struct{}

func (StatusNotifier) PodcastStatusChanged(id uuid.UUID, status models.PodcastStatus, errMsg string) {
	SendPodcastStatus(id.String(), string(status), errMsg)
}

// Unregister client theo podcastID
func (h *Hub) Unregister(podcastID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if clients, ok := h.Clients[podcastID]; ok {
		if client, ok := clients[conn]; ok {
			close(client.Send)
			delete(clients, conn)
		}
		if len(clients) == 0 {
			delete(h.Clients, podcastID)
		}
	}
}

// Unregister global client
func (h *Hub) UnregisterGlobal(conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if client, ok := h.GlobalClients[conn]; ok {
		close(client.Send)
		delete(h.GlobalClients, conn)
	}
}

// Read pump riêng theo podcastID
func (h *Hub) readPump(podcastID string, conn *websocket.Conn) {
	defer h.Unregister(podcastID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Write pump riêng theo podcastID
func (h *Hub) writePump(podcastID string, conn *websocket.Conn) {
	h.Mutex.RLock()
	client := h.Clients[podcastID][conn]
	h.Mutex.RUnlock()
	if client == nil {
		return
	}
	defer func() {
		conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
	}()
	for msg := range client.Send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// Read pump global
func (h *Hub) readGlobalPump(conn *websocket.Conn) {
	defer h.UnregisterGlobal(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Write pump global
func (h *Hub) writeGlobalPump(conn *websocket.Conn) {
	h.Mutex.RLock()
	client := h.GlobalClients[conn]
	h.Mutex.RUnlock()
	if client == nil {
		return
	}
	defer func() {
		conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
	}()
	for msg := range client.Send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}
