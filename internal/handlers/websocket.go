package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"minevault-backend/internal/event"
	"minevault-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	redisService *services.RedisService
	hub          *WebSocketHub
}

type WebSocketHub struct {
	clients    map[string]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	Address string
	Conn    *websocket.Conn
}

// Message is one frame on the event feed. Address targets a single
// principal's connection; an empty Address broadcasts to everyone.
type Message struct {
	Type    string      `json:"type"`
	Address string      `json:"address,omitempty"`
	Data    interface{} `json:"data"`
}

func NewWebSocketHandler(redisService *services.RedisService, bus *event.Bus) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	h := &WebSocketHandler{
		redisService: redisService,
		hub:          hub,
	}
	h.subscribe(bus)
	return h
}

// subscribe forwards every engine event onto the feed. Game events go to
// the owning principal; delegation and parameter events go to everyone.
func (h *WebSocketHandler) subscribe(bus *event.Bus) {
	forward := func(msgType string, address func(interface{}) string) event.Handler {
		return func(payload interface{}) {
			h.hub.broadcast <- &Message{
				Type:    msgType,
				Address: address(payload),
				Data:    payload,
			}
		}
	}

	bus.Subscribe(event.EventGameRequested, forward("GAME_REQUESTED", func(p interface{}) string {
		return p.(*event.GameRequested).Principal
	}))
	bus.Subscribe(event.EventRandomnessReceived, forward("RANDOMNESS_FULFILLED", func(p interface{}) string {
		return p.(*event.RandomnessReceived).Principal
	}))
	bus.Subscribe(event.EventSecretRevealed, forward("SECRET_REVEALED", func(p interface{}) string {
		return p.(*event.SecretRevealed).Principal
	}))
	bus.Subscribe(event.EventCellRevealed, forward("CELL_REVEALED", func(p interface{}) string {
		return p.(*event.CellRevealed).Principal
	}))
	bus.Subscribe(event.EventGameEnded, forward("GAME_ENDED", func(p interface{}) string {
		return p.(*event.GameEnded).Principal
	}))
	bus.Subscribe(event.EventDelegateRegistered, forward("DELEGATE_REGISTERED", func(p interface{}) string {
		return p.(*event.DelegateChanged).Principal
	}))
	bus.Subscribe(event.EventDelegateRevoked, forward("DELEGATE_REVOKED", func(p interface{}) string {
		return p.(*event.DelegateChanged).Principal
	}))
	bus.Subscribe(event.EventParamProposed, forward("PARAM_PROPOSED", func(interface{}) string { return "" }))
	bus.Subscribe(event.EventParamApplied, forward("PARAM_APPLIED", func(interface{}) string { return "" }))
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	address := c.GetString("address")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		Address: address,
		Conn:    conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if msg.Type == "PING" {
			h.sendPong(client)
		}
	}
}

func (h *WebSocketHandler) sendBalance(client *Client) {
	wallet, err := h.redisService.GetWallet(client.Address)
	if err != nil {
		log.Printf("Failed to get wallet for WS: %v", err)
		return
	}

	client.Conn.WriteJSON(Message{
		Type: "BALANCE_UPDATE",
		Data: gin.H{
			"balance":       wallet.Balance,
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
		},
	})
}

func (h *WebSocketHandler) sendPong(client *Client) {
	client.Conn.WriteJSON(Message{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	})
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.Address] = client.Conn
			log.Printf("Client registered: %s", client.Address)

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.Address]; ok {
				delete(hub.clients, client.Address)
				log.Printf("Client unregistered: %s", client.Address)
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.Address != "" {
		if conn, ok := hub.clients[message.Address]; ok {
			conn.WriteJSON(message)
		}
	} else {
		for _, conn := range hub.clients {
			conn.WriteJSON(message)
		}
	}
}
