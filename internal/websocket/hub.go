package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"proctor-backend/internal/middleware"
	"proctor-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one live connection. Frames are read by a single goroutine, so
// per-connection ordering holds for free; writes are serialized because both
// the read loop and the pub/sub fan-out emit on the same socket.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	session models.LiveSession
}

func (c *client) send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub is the session registry: it binds connection ids to LiveSessions for
// the lifetime of the connection and fans pipeline acks out to a user's
// connections via Redis pub/sub.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*client           // connection id → client
	userConns   map[int64]map[string]*client // user id → their connections
	cancelFuncs map[int64]context.CancelFunc // per-user pub/sub subscriptions
	relay       *FrameRelay
	jwt         *middleware.JWTAuth
	redisClient *redis.Client
}

func NewHub(relay *FrameRelay, jwtAuth *middleware.JWTAuth, redisClient *redis.Client) *Hub {
	return &Hub{
		clients:     make(map[string]*client),
		userConns:   make(map[int64]map[string]*client),
		cancelFuncs: make(map[int64]context.CancelFunc),
		relay:       relay,
		jwt:         jwtAuth,
		redisClient: redisClient,
	}
}

// HandleWebSocket authenticates the handshake, binds the connection to a
// LiveSession and starts its read loop. The handshake must carry a valid
// token plus the examId/sessionId obtained from the start-session call;
// anything less is rejected before the upgrade.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, _, err := h.jwt.VerifyToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	examID, err := strconv.ParseInt(r.URL.Query().Get("examId"), 10, 64)
	if err != nil || examID <= 0 {
		http.Error(w, "Invalid examId", http.StatusBadRequest)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "Invalid sessionId", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	connID := uuid.NewString()
	cl := &client{
		conn: conn,
		session: models.LiveSession{
			SessionID: sessionID,
			ExamID:    examID,
			UserID:    userID,
		},
	}

	h.register(connID, userID, cl)
	go h.readLoop(connID, userID, cl)
}

// Lookup resolves a connection id to its LiveSession. Absence means "no
// session": the relay must reject the frame rather than guess identity.
func (h *Hub) Lookup(connID string) (models.LiveSession, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cl, ok := h.clients[connID]
	if !ok {
		return models.LiveSession{}, false
	}
	return cl.session, true
}

func (h *Hub) register(connID string, userID int64, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[connID] = cl
	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[string]*client)
	}
	h.userConns[userID][connID] = cl

	// First connection for this user: subscribe to pipeline acks.
	if len(h.userConns[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.subscribeToPubSub(ctx, userID)
	}

	log.Printf("WebSocket connected: conn=%s session=%s exam=%d user=%d",
		connID, cl.session.SessionID, cl.session.ExamID, userID)
}

// unregister removes the mapping unconditionally; safe when already gone.
func (h *Hub) unregister(connID string, userID int64, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cl.conn.Close()
	delete(h.clients, connID)

	if conns := h.userConns[userID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.userConns, userID)
			if cancel, ok := h.cancelFuncs[userID]; ok {
				cancel()
				delete(h.cancelFuncs, userID)
			}
		}
	}

	log.Printf("WebSocket disconnected: conn=%s user=%d", connID, userID)
}

// readLoop processes frames for one connection in arrival order. Other
// connections run their own loops, so a slow inference call here never
// blocks frame intake elsewhere.
func (h *Hub) readLoop(connID string, userID int64, cl *client) {
	defer h.unregister(connID, userID, cl)

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleMessage(connID, cl, data)
	}
}

func (h *Hub) handleMessage(connID string, cl *client, data []byte) {
	var msg models.FrameMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		cl.send(models.ErrorMessage{Event: models.EventError, Message: "Malformed message"})
		return
	}
	if msg.Event != models.EventFrame {
		return
	}

	sess, ok := h.Lookup(connID)
	if !ok {
		cl.send(models.ErrorMessage{Event: models.EventError, Message: "No active session"})
		return
	}

	frame, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		cl.send(models.ErrorMessage{Event: models.EventError, Message: "Invalid frame encoding"})
		return
	}

	raw, err := h.relay.HandleFrame(context.Background(), sess, frame)
	if err != nil {
		// Full upstream detail goes to the log; the client gets a generic
		// notice and may simply send the next frame.
		log.Printf("frame analysis failed (conn=%s session=%s exam=%d user=%d): %v",
			connID, sess.SessionID, sess.ExamID, sess.UserID, err)
		cl.send(models.ErrorMessage{Event: models.EventError, Message: "Frame analysis failed"})
		return
	}

	cl.send(models.AnalysisMessage{Event: models.EventAnalysis, Verdict: raw})
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID int64) {
	channel := "user_updates:" + strconv.FormatInt(userID, 10)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(userID int64, data []byte) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.userConns[userID]))
	for _, cl := range h.userConns[userID] {
		conns = append(conns, cl)
	}
	h.mu.RUnlock()

	for _, cl := range conns {
		cl.writeMu.Lock()
		cl.conn.WriteMessage(websocket.TextMessage, data)
		cl.writeMu.Unlock()
	}
}
