package game

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 4096
	readDeadline   = time.Minute
	closeDeadline  = 20 * time.Second
)

// NetworkSession abstracts the socket so pumps and tests never touch gorilla
// directly.
type NetworkSession interface {
	Close(reason string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

type websocketSession struct {
	socket *websocket.Conn
}

func NewWebsocketSession(conn *websocket.Conn) *websocketSession {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})
	return &websocketSession{socket: conn}
}

func (ws *websocketSession) Write(data []byte) error {
	return ws.socket.WriteMessage(websocket.TextMessage, data)
}

func (ws *websocketSession) Read() ([]byte, error) {
	_, p, err := ws.socket.ReadMessage()
	return p, err
}

func (ws *websocketSession) Ping() error {
	return ws.socket.WriteMessage(websocket.PingMessage, nil)
}

func (ws *websocketSession) Close(reason string) {
	ws.socket.SetWriteDeadline(time.Now().Add(closeDeadline))
	ws.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	ws.socket.Close()
}
