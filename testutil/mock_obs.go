// Package testutil provides test doubles shared across packages, most
// notably a stateful mock of the OBS WebSocket v5 server.
package testutil

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Failure modes for the mock server.
const (
	ModeNormal     = "normal"
	ModeCode204    = "code204" // "not ready" busy responses
	ModeCode203    = "code203" // generic request failure
	ModeDisconnect = "disconnect"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MockOBSServer simulates an OBS WebSocket v5 server: Hello/Identify
// handshake (with optional challenge auth), ToggleRecord, GetRecordStatus
// and GetVersion, plus pushed RecordStateChanged events. Record state is
// real: ToggleRecord flips it and GetRecordStatus reports it, so a test can
// exercise a full press-to-recording round trip.
type MockOBSServer struct {
	listener net.Listener
	server   *http.Server

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	mode         string
	password     string
	recordActive bool

	challenge string
	salt      string
}

// NewMockOBS creates a mock server with auth disabled and recording off.
func NewMockOBS() *MockOBSServer {
	return &MockOBSServer{
		mode:      ModeNormal,
		challenge: "mockchallenge",
		salt:      "mocksalt",
	}
}

// Start begins listening on a dynamic localhost port.
func (m *MockOBSServer) Start() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	m.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handleWebSocket)
	m.server = &http.Server{Handler: mux}

	go func() {
		_ = m.server.Serve(m.listener)
	}()
	return nil
}

// Stop tears down the server and any live connection.
func (m *MockOBSServer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	if m.server != nil {
		_ = m.server.Close()
	}
	if m.listener != nil {
		_ = m.listener.Close()
	}
	m.connected = false
	return nil
}

// URL returns the ws:// endpoint of the running server.
func (m *MockOBSServer) URL() string {
	return "ws://" + m.listener.Addr().String()
}

// SetPassword enables challenge authentication with the given password.
func (m *MockOBSServer) SetPassword(pw string) {
	m.mu.Lock()
	m.password = pw
	m.mu.Unlock()
}

// SetFailureMode configures how subsequent requests are answered.
func (m *MockOBSServer) SetFailureMode(mode string) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

// RecordActive reports the mock's current record output state.
func (m *MockOBSServer) RecordActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordActive
}

// SetRecordActive forces the record output state, as if toggled in the UI.
func (m *MockOBSServer) SetRecordActive(v bool) {
	m.mu.Lock()
	m.recordActive = v
	m.mu.Unlock()
}

// Connected reports whether a client is currently identified.
func (m *MockOBSServer) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// PushRecordStateChanged sends a RecordStateChanged event to the client.
func (m *MockOBSServer) PushRecordStateChanged(active bool) error {
	m.mu.Lock()
	conn := m.conn
	m.recordActive = active
	m.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no client connected")
	}
	return conn.WriteJSON(map[string]interface{}{
		"op": 5,
		"d": map[string]interface{}{
			"eventType": "RecordStateChanged",
			"eventData": map[string]interface{}{"outputActive": active},
		},
	})
}

// CloseClient drops the current connection without stopping the server,
// simulating an OBS shutdown mid-session.
func (m *MockOBSServer) CloseClient() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.connected = false
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (m *MockOBSServer) expectedAuth() string {
	secret := sha256.Sum256([]byte(m.password + m.salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(secretB64 + m.challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

func (m *MockOBSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m.mu.Lock()
	if m.conn != nil {
		_ = m.conn.Close()
	}
	m.conn = conn
	needAuth := m.password != ""
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.conn == conn {
			m.conn = nil
			m.connected = false
		}
		m.mu.Unlock()
		_ = conn.Close()
	}()

	hello := map[string]interface{}{
		"op": 0,
		"d": map[string]interface{}{
			"obsWebSocketVersion": "5.3.3",
			"rpcVersion":          1,
		},
	}
	if needAuth {
		hello["d"].(map[string]interface{})["authentication"] = map[string]interface{}{
			"challenge": m.challenge,
			"salt":      m.salt,
		}
	}
	if err := conn.WriteJSON(hello); err != nil {
		return
	}

	var identify struct {
		Op int `json:"op"`
		D  struct {
			Authentication string `json:"authentication"`
		} `json:"d"`
	}
	if err := conn.ReadJSON(&identify); err != nil {
		return
	}
	if needAuth && identify.D.Authentication != m.expectedAuth() {
		// Real OBS closes with 4009 on a failed auth.
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(4009, "authentication failed"))
		return
	}
	if err := conn.WriteJSON(map[string]interface{}{
		"op": 2,
		"d":  map[string]interface{}{"negotiatedRpcVersion": 1},
	}); err != nil {
		return
	}

	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()

	for {
		var msg struct {
			Op int `json:"op"`
			D  struct {
				RequestType string `json:"requestType"`
				RequestID   string `json:"requestId"`
			} `json:"d"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Op != 6 {
			continue
		}

		m.mu.Lock()
		mode := m.mode
		m.mu.Unlock()
		if mode == ModeDisconnect {
			return
		}

		resp := m.respond(msg.D.RequestType, msg.D.RequestID, mode)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (m *MockOBSServer) respond(requestType, requestID, mode string) map[string]interface{} {
	status := map[string]interface{}{"result": true, "code": 100}
	switch mode {
	case ModeCode204:
		status = map[string]interface{}{"result": false, "code": 204, "comment": "not ready"}
	case ModeCode203:
		status = map[string]interface{}{"result": false, "code": 203, "comment": "request failed"}
	}

	var data interface{}
	if mode == ModeNormal {
		switch requestType {
		case "ToggleRecord":
			m.mu.Lock()
			m.recordActive = !m.recordActive
			data = map[string]interface{}{"outputActive": m.recordActive}
			m.mu.Unlock()
		case "GetRecordStatus":
			m.mu.Lock()
			data = map[string]interface{}{"outputActive": m.recordActive}
			m.mu.Unlock()
		case "GetVersion":
			data = map[string]interface{}{
				"obsVersion":          "30.0.0",
				"obsWebSocketVersion": "5.3.3",
			}
		}
	}

	d := map[string]interface{}{
		"requestType":   requestType,
		"requestId":     requestID,
		"requestStatus": status,
	}
	if data != nil {
		d["responseData"] = data
	}
	return map[string]interface{}{"op": 7, "d": d}
}
