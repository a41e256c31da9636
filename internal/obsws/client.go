package obsws

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"obskeyd/internal/diaglog"
)

// Client is an OBS WebSocket v5 client. It owns a single logical connection
// to the obs-websocket endpoint and performs the Hello/Identify handshake,
// including challenge-response authentication when the server requires it.
//
// The client never reconnects on its own: when the socket dies it reports
// the fact through OnDisconnected and IsConnected, and it is the caller's
// job to invoke Connect again. Connect may be called repeatedly; any stale
// socket from a previous attempt is torn down first.
type Client struct {
	url      string
	password string

	mu         sync.RWMutex
	conn       *websocket.Conn
	connected  bool
	identified bool
	closed     bool

	requestID   int
	requestIDMu sync.Mutex
	responses   map[int]chan *Response
	responseMu  sync.RWMutex

	logger   *diaglog.Logger
	loggerMu sync.RWMutex

	onRecordStateChanged func(recording bool)
	onDisconnected       func()

	// Handshake channels, re-created per Connect attempt.
	identifiedChan chan struct{}
	helloChan      chan *HelloData
	helloErrChan   chan error
}

// Message is the obs-websocket envelope.
type Message struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type HelloData struct {
	OBSWebSocketVersion string `json:"obsWebSocketVersion"`
	RPCVersion          int    `json:"rpcVersion"`
	Authentication      struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication"`
}

type IdentifyData struct {
	RPCVersion         int    `json:"rpcVersion"`
	Authentication     string `json:"authentication,omitempty"`
	EventSubscriptions int    `json:"eventSubscriptions"`
}

type Request struct {
	RequestType string      `json:"requestType"`
	RequestID   string      `json:"requestId"`
	RequestData interface{} `json:"requestData,omitempty"`
}

type Response struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment,omitempty"`
	} `json:"requestStatus"`
	ResponseData json.RawMessage `json:"responseData,omitempty"`
}

type Event struct {
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData,omitempty"`
}

// OpCodes for the obs-websocket protocol.
const (
	OpHello           = 0
	OpIdentify        = 1
	OpIdentified      = 2
	OpEvent           = 5
	OpRequest         = 6
	OpRequestResponse = 7
)

// Event subscription flags.
const (
	EventSubscriptionAll = 0xFFFFFFFF
)

const handshakeTimeout = 10 * time.Second

var dialer = &websocket.Dialer{HandshakeTimeout: 5 * time.Second}

// NewClient creates a client for the given ws:// URL. The password may be
// empty when the server has authentication disabled.
func NewClient(url, password string) *Client {
	return &Client{
		url:       url,
		password:  password,
		responses: make(map[int]chan *Response),
	}
}

// Connect establishes the WebSocket connection and completes the
// Hello/Identify handshake. Any previous connection is closed first, so the
// reconnect supervisor can call this blindly on a fixed interval.
func (c *Client) Connect() error {
	c.disconnect()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	c.identifiedChan = make(chan struct{}, 1)
	c.helloChan = make(chan *HelloData, 1)
	c.helloErrChan = make(chan error, 1)
	helloChan, helloErrChan := c.helloChan, c.helloErrChan
	c.mu.Unlock()

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readMessages(conn)

	select {
	case hello := <-helloChan:
		return c.authenticate(hello)
	case err := <-helloErrChan:
		c.disconnect()
		return err
	case <-time.After(handshakeTimeout):
		c.disconnect()
		return fmt.Errorf("timeout waiting for Hello message")
	}
}

// authenticate sends the Identify message with the auth response derived
// from the server's challenge and salt.
func (c *Client) authenticate(hello *HelloData) error {
	identify := IdentifyData{
		RPCVersion:         1,
		EventSubscriptions: EventSubscriptionAll,
	}

	if hello.Authentication.Challenge != "" && c.password != "" {
		// secret = base64(sha256(password + salt))
		secret := sha256.Sum256([]byte(c.password + hello.Authentication.Salt))
		secretB64 := base64.StdEncoding.EncodeToString(secret[:])

		// auth = base64(sha256(secret + challenge))
		auth := sha256.Sum256([]byte(secretB64 + hello.Authentication.Challenge))
		identify.Authentication = base64.StdEncoding.EncodeToString(auth[:])
	}

	msg := Message{Op: OpIdentify}
	msg.D, _ = json.Marshal(identify)

	c.mu.RLock()
	conn := c.conn
	identifiedChan := c.identifiedChan
	helloErrChan := c.helloErrChan
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("connection lost during handshake")
	}
	if err := conn.WriteJSON(msg); err != nil {
		c.disconnect()
		return err
	}

	select {
	case err := <-helloErrChan:
		c.disconnect()
		return fmt.Errorf("handshake failed: %w", err)
	case <-identifiedChan:
		c.mu.Lock()
		c.identified = true
		c.mu.Unlock()
		c.log(diaglog.LogEntry{
			Event:   diaglog.EventWSConnect,
			Payload: map[string]interface{}{"obs_ws_version": hello.OBSWebSocketVersion},
		})
		return nil
	case <-time.After(handshakeTimeout):
		c.disconnect()
		return fmt.Errorf("timeout waiting for Identified message")
	}
}

// readMessages continuously reads and dispatches WebSocket messages for one
// connection. It exits when the connection dies and reports the loss via the
// OnDisconnected callback (unless the close was deliberate).
func (c *Client) readMessages(conn *websocket.Conn) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.RLock()
			current := c.conn == conn
			closed := c.closed
			helloErrChan := c.helloErrChan
			c.mu.RUnlock()
			if current {
				// Unblock a Connect call still waiting on the handshake.
				select {
				case helloErrChan <- err:
				default:
				}
				c.disconnect()
				if !closed && c.onDisconnected != nil {
					c.onDisconnected()
				}
			}
			return
		}

		switch msg.Op {
		case OpHello:
			var hello HelloData
			c.mu.RLock()
			helloChan, helloErrChan := c.helloChan, c.helloErrChan
			c.mu.RUnlock()
			if err := json.Unmarshal(msg.D, &hello); err != nil {
				select {
				case helloErrChan <- err:
				default:
				}
				return
			}
			select {
			case helloChan <- &hello:
			default:
			}

		case OpIdentified:
			c.mu.RLock()
			identifiedChan := c.identifiedChan
			c.mu.RUnlock()
			select {
			case identifiedChan <- struct{}{}:
			default:
			}

		case OpEvent:
			var event Event
			if err := json.Unmarshal(msg.D, &event); err == nil {
				c.handleEvent(&event)
			}

		case OpRequestResponse:
			var resp Response
			if err := json.Unmarshal(msg.D, &resp); err == nil {
				c.log(diaglog.LogEntry{
					Event:   diaglog.EventWSRecv,
					Payload: map[string]interface{}{"request_type": resp.RequestType, "request_id": resp.RequestID},
				})
				c.handleResponse(&resp)
			}
		}
	}
}

// handleEvent processes OBS events we subscribe to.
func (c *Client) handleEvent(event *Event) {
	switch event.EventType {
	case "RecordStateChanged":
		var data struct {
			OutputActive bool `json:"outputActive"`
		}
		if err := json.Unmarshal(event.EventData, &data); err == nil {
			if c.onRecordStateChanged != nil {
				c.onRecordStateChanged(data.OutputActive)
			}
		}
	}
}

// handleResponse routes responses to waiting request channels.
func (c *Client) handleResponse(resp *Response) {
	c.responseMu.RLock()
	defer c.responseMu.RUnlock()

	var id int
	if _, err := fmt.Sscanf(resp.RequestID, "%d", &id); err != nil {
		log.Printf("Warning: failed to parse request ID: %v", err)
		return
	}

	if ch, ok := c.responses[id]; ok {
		ch <- resp
	}
}

// sendRequest sends a request and waits for its correlated response.
func (c *Client) sendRequest(requestType string, requestData interface{}) (*Response, error) {
	c.mu.RLock()
	if !c.connected || !c.identified {
		c.mu.RUnlock()
		return nil, fmt.Errorf("not connected")
	}
	conn := c.conn
	c.mu.RUnlock()

	c.requestIDMu.Lock()
	c.requestID++
	id := c.requestID
	c.requestIDMu.Unlock()
	requestID := fmt.Sprintf("%d", id)

	req := Request{
		RequestType: requestType,
		RequestID:   requestID,
		RequestData: requestData,
	}

	msg := Message{Op: OpRequest}
	msg.D, _ = json.Marshal(req)

	c.log(diaglog.LogEntry{
		Event:   diaglog.EventWSSend,
		Payload: map[string]interface{}{"request_type": requestType, "request_id": requestID},
	})

	respChan := make(chan *Response, 1)
	c.responseMu.Lock()
	c.responses[id] = respChan
	c.responseMu.Unlock()

	defer func() {
		c.responseMu.Lock()
		delete(c.responses, id)
		c.responseMu.Unlock()
	}()

	if err := conn.WriteJSON(msg); err != nil {
		return nil, err
	}

	select {
	case resp := <-respChan:
		if !resp.RequestStatus.Result {
			return nil, errors.New(requestError(resp, requestType))
		}
		return resp, nil
	case <-time.After(handshakeTimeout):
		return nil, fmt.Errorf("request timeout after %s (request: %s)", handshakeTimeout, requestType)
	}
}

// requestError builds a diagnostic message for a failed request.
func requestError(resp *Response, requestType string) string {
	if resp.RequestStatus.Code == 204 {
		return fmt.Sprintf("OBS rejected request type %q (code 204: InvalidRequest), likely an OBS version mismatch: %s",
			requestType, resp.RequestStatus.Comment)
	}
	return fmt.Sprintf("request failed: %s (request: %s, code: %d)",
		resp.RequestStatus.Comment, requestType, resp.RequestStatus.Code)
}

// disconnect closes the current WebSocket connection, if any.
func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.log(diaglog.LogEntry{
			Event:   diaglog.EventWSDisconnect,
			Payload: map[string]interface{}{"url": c.url},
		})
		if err := c.conn.Close(); err != nil {
			log.Printf("Warning: failed to close connection: %v", err)
		}
		c.conn = nil
	}
	c.connected = false
	c.identified = false
}

// Close shuts the client down for good. Connect returns an error afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.disconnect()
}

// SetLogger injects a diaglog.Logger. Safe to call any time before or after
// Connect. Passing nil disables structured logging.
func (c *Client) SetLogger(l *diaglog.Logger) {
	c.loggerMu.Lock()
	c.logger = l
	c.loggerMu.Unlock()
}

// log emits a LogEntry when a logger is set. Component defaults to
// ComponentOBSClient when left empty.
func (c *Client) log(entry diaglog.LogEntry) {
	c.loggerMu.RLock()
	l := c.logger
	c.loggerMu.RUnlock()
	if l == nil {
		return
	}
	if entry.Component == "" {
		entry.Component = diaglog.ComponentOBSClient
	}
	l.Log(entry)
}

// OnRecordStateChanged registers a callback for RecordStateChanged events.
// Must be called before Connect.
func (c *Client) OnRecordStateChanged(handler func(recording bool)) {
	c.onRecordStateChanged = handler
}

// OnDisconnected registers a callback fired when an established connection
// is lost. Must be called before Connect.
func (c *Client) OnDisconnected(handler func()) {
	c.onDisconnected = handler
}

// IsConnected reports whether the connection is established and identified.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.identified
}
