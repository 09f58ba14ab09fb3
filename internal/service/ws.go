package service

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// Time allowed between messages from the peer
	readWait = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// handleWebsocket answers each text frame holding a ScanRequest with a
// ScanResponse, or an error object, in order.
func (s *Service) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	ip := clientIP(r)
	for {
		settings := s.settings.Load()
		conn.SetReadLimit(settings.MaxTextBytes*2 + envelopeBytes)
		_ = conn.SetReadDeadline(time.Now().Add(readWait))

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("Websocket closed", zap.String("client_ip", ip), zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var reply any
		if req, err := decodeScanRequest(bytes.NewReader(data)); err != nil {
			reply = errorResponse{Error: "invalid request: " + err.Error()}
		} else if resp, err := s.scan(r.Context(), req, SourceWebsocket, ip); err != nil {
			reply = errorResponse{RequestID: resp.RequestID, Error: err.Error()}
		} else {
			reply = resp
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Debug("Websocket write failed", zap.String("client_ip", ip), zap.Error(err))
			return
		}
	}
}
