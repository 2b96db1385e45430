package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// LogsHandler receives one log batch per matching notification
type LogsHandler func(notification LogsNotification)

// WSClient represents a WebSocket client for Solana log subscriptions
type WSClient struct {
	url            string
	conn           *websocket.Conn
	logger         *logrus.Logger
	mu             sync.RWMutex
	subscriptions  map[int]*LogsSubscription
	nextID         int
	ctx            context.Context
	cancel         context.CancelFunc
	reconnectDelay time.Duration

	messagesReceived int
	reconnectCount   int
	lastActivity     time.Time
}

// LogsSubscription tracks a single logsSubscribe registration
type LogsSubscription struct {
	ID          int // client-side request id, also used as the public handle
	ServerID    int // server-assigned subscription number
	ProgramID   string
	Handler     LogsHandler
	Active      bool
	Created     time.Time
	LastMessage time.Time
}

// WSMessage represents a WebSocket JSON-RPC message
type WSMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// LogsNotification represents a logs notification
type LogsNotification struct {
	Subscription int `json:"subscription"`
	Result       struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Signature string      `json:"signature"`
			Err       interface{} `json:"err"`
			Logs      []string    `json:"logs"`
		} `json:"value"`
	} `json:"result"`
}

// NewWSClient creates a new WebSocket client
func NewWSClient(url string, logger *logrus.Logger) *WSClient {
	ctx, cancel := context.WithCancel(context.Background())

	return &WSClient{
		url:            url,
		logger:         logger,
		subscriptions:  make(map[int]*LogsSubscription),
		nextID:         1,
		ctx:            ctx,
		cancel:         cancel,
		reconnectDelay: 5 * time.Second,
		lastActivity:   time.Now(),
	}
}

// Connect establishes the WebSocket connection and starts the read loop
func (ws *WSClient) Connect() error {
	ws.logger.WithField("url", ws.url).Info("🔌 Connecting to Solana WebSocket...")

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, resp, err := dialer.Dial(ws.url, nil)
	if err != nil {
		if resp != nil {
			ws.logger.WithFields(logrus.Fields{
				"status": resp.Status,
				"url":    ws.url,
			}).Error("❌ WebSocket connection failed")
		}
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	ws.mu.Lock()
	ws.conn = conn
	ws.lastActivity = time.Now()
	ws.mu.Unlock()

	ws.logger.WithField("url", ws.url).Info("✅ WebSocket connected")

	conn.SetReadLimit(1024 * 1024)
	conn.SetPongHandler(func(string) error {
		ws.mu.Lock()
		ws.lastActivity = time.Now()
		ws.mu.Unlock()
		return nil
	})

	go ws.handleMessages()
	go ws.pingHandler()

	return nil
}

// Disconnect closes the WebSocket connection
func (ws *WSClient) Disconnect() error {
	ws.cancel()

	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.conn != nil {
		err := ws.conn.Close()
		ws.conn = nil
		return err
	}

	return nil
}

// SubscribeLogs subscribes to log notifications mentioning programID.
// The returned id is the handle for Unsubscribe.
func (ws *WSClient) SubscribeLogs(programID string, handler LogsHandler) (int, error) {
	ws.mu.Lock()
	id := ws.nextID
	ws.nextID++
	ws.subscriptions[id] = &LogsSubscription{
		ID:        id,
		ProgramID: programID,
		Handler:   handler,
		Created:   time.Now(),
	}
	ws.mu.Unlock()

	params := []interface{}{
		map[string]interface{}{
			"mentions": []string{programID},
		},
		map[string]interface{}{
			"commitment": "processed",
		},
	}

	if err := ws.sendRequest(id, "logsSubscribe", params); err != nil {
		ws.mu.Lock()
		delete(ws.subscriptions, id)
		ws.mu.Unlock()
		return 0, fmt.Errorf("failed to send subscription: %w", err)
	}

	ws.logger.WithFields(logrus.Fields{
		"program_id": programID,
		"id":         id,
	}).Info("📡 Log subscription request sent")

	return id, nil
}

// Unsubscribe cancels a subscription. Once it returns, the handler will not
// be invoked again. Unsubscribing an unknown id is a no-op.
func (ws *WSClient) Unsubscribe(ctx context.Context, id int) error {
	ws.mu.Lock()
	subscription, exists := ws.subscriptions[id]
	if exists {
		// Removing the entry under the same lock the dispatcher takes
		// guarantees no further handler calls after this point.
		delete(ws.subscriptions, id)
	}
	ws.mu.Unlock()

	if !exists {
		return nil
	}

	if subscription.Active {
		if err := ws.sendRequest(id, "logsUnsubscribe", []interface{}{subscription.ServerID}); err != nil {
			ws.logger.WithError(err).WithField("id", id).Warn("⚠️ Failed to send unsubscribe, handler already detached")
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	ws.logger.WithField("id", id).Info("🗑️ Subscription cancelled")
	return nil
}

// sendRequest sends a JSON-RPC request over the socket
func (ws *WSClient) sendRequest(id int, method string, params interface{}) error {
	ws.mu.RLock()
	conn := ws.conn
	ws.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("WebSocket not connected")
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	message := WSMessage{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
		Params:  rawParams,
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

// handleMessages handles incoming WebSocket messages
func (ws *WSClient) handleMessages() {
	defer ws.logger.Info("🛑 WebSocket message handler stopped")

	for {
		select {
		case <-ws.ctx.Done():
			return
		default:
			ws.mu.RLock()
			conn := ws.conn
			ws.mu.RUnlock()

			if conn == nil {
				ws.logger.Warn("⚠️ Connection lost, attempting to reconnect...")
				if err := ws.attemptReconnect(); err != nil {
					ws.logger.WithError(err).Error("❌ Reconnection failed")
					select {
					case <-ws.ctx.Done():
						return
					case <-time.After(ws.reconnectDelay):
					}
				}
				continue
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					ws.logger.WithError(err).Error("❌ WebSocket read error")
				}

				ws.mu.Lock()
				ws.conn = nil
				ws.mu.Unlock()

				continue
			}

			ws.mu.Lock()
			ws.messagesReceived++
			ws.lastActivity = time.Now()
			ws.mu.Unlock()

			var message WSMessage
			if err := json.Unmarshal(data, &message); err != nil {
				ws.logger.WithError(err).Error("❌ Failed to unmarshal WebSocket message")
				continue
			}

			ws.handleMessage(message)
		}
	}
}

// handleMessage processes a single WebSocket message
func (ws *WSClient) handleMessage(message WSMessage) {
	// Subscription confirmations carry the server-assigned subscription id
	if message.ID != nil && len(message.Result) > 0 {
		var serverID int
		if err := json.Unmarshal(message.Result, &serverID); err != nil {
			// logsUnsubscribe acks with a bool, nothing to track
			return
		}

		ws.mu.Lock()
		if subscription, exists := ws.subscriptions[*message.ID]; exists && !subscription.Active {
			subscription.Active = true
			subscription.ServerID = serverID
			subscription.LastMessage = time.Now()

			ws.logger.WithFields(logrus.Fields{
				"id":        *message.ID,
				"server_id": serverID,
			}).Info("✅ Log subscription confirmed")
		}
		ws.mu.Unlock()
		return
	}

	if message.Error != nil {
		ws.logger.WithFields(logrus.Fields{
			"code":    message.Error.Code,
			"message": message.Error.Message,
		}).Error("❌ WebSocket error received")
		return
	}

	if message.Method == "logsNotification" {
		ws.handleLogsNotification(message.Params)
	}
}

// handleLogsNotification dispatches a logs notification to its handler
func (ws *WSClient) handleLogsNotification(params json.RawMessage) {
	var notification LogsNotification
	if err := json.Unmarshal(params, &notification); err != nil {
		ws.logger.WithError(err).Error("❌ Failed to unmarshal logs notification")
		return
	}

	// Dispatch synchronously under the read lock so Unsubscribe can fence
	// out handlers by removing the map entry.
	ws.mu.RLock()
	for _, subscription := range ws.subscriptions {
		if subscription.Active && subscription.ServerID == notification.Subscription && subscription.Handler != nil {
			subscription.LastMessage = time.Now()
			subscription.Handler(notification)
		}
	}
	ws.mu.RUnlock()
}

// attemptReconnect reconnects and replays all live subscriptions
func (ws *WSClient) attemptReconnect() error {
	ws.mu.Lock()
	ws.reconnectCount++
	attempt := ws.reconnectCount
	ws.mu.Unlock()

	ws.logger.WithField("attempt", attempt).Info("🔄 Attempting to reconnect WebSocket...")

	if err := ws.Connect(); err != nil {
		return fmt.Errorf("reconnection failed: %w", err)
	}

	ws.mu.Lock()
	resubscribe := make([]*LogsSubscription, 0, len(ws.subscriptions))
	for _, sub := range ws.subscriptions {
		sub.Active = false
		resubscribe = append(resubscribe, sub)
	}
	ws.mu.Unlock()

	for _, sub := range resubscribe {
		params := []interface{}{
			map[string]interface{}{
				"mentions": []string{sub.ProgramID},
			},
			map[string]interface{}{
				"commitment": "processed",
			},
		}
		if err := ws.sendRequest(sub.ID, "logsSubscribe", params); err != nil {
			ws.logger.WithError(err).WithField("id", sub.ID).Error("❌ Failed to resubscribe")
		}
	}

	ws.logger.WithFields(logrus.Fields{
		"reconnect_count": attempt,
		"resubscribed":    len(resubscribe),
	}).Info("✅ WebSocket reconnected")

	return nil
}

// pingHandler sends periodic ping messages
func (ws *WSClient) pingHandler() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ws.ctx.Done():
			return
		case <-ticker.C:
			ws.mu.RLock()
			conn := ws.conn
			lastActivity := ws.lastActivity
			ws.mu.RUnlock()

			if conn != nil {
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					ws.logger.WithError(err).Debug("❌ Failed to send ping")
				}

				if time.Since(lastActivity) > 2*time.Minute {
					ws.logger.WithField("last_activity", lastActivity).Warn("⚠️ Connection appears stale")
				}
			}
		}
	}
}

// Stats returns connection statistics for the status command
func (ws *WSClient) Stats() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	active := 0
	for _, sub := range ws.subscriptions {
		if sub.Active {
			active++
		}
	}

	return map[string]interface{}{
		"messages_received":    ws.messagesReceived,
		"active_subscriptions": active,
		"reconnect_count":      ws.reconnectCount,
		"last_activity":        ws.lastActivity,
		"connection_active":    ws.conn != nil,
	}
}
