package game

import (
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

var errSessionClosed = errors.New("session closed")

// --- Conn ---

// fakeConn records every outbound message so scenarios can assert on the
// exact traffic a player saw.
type fakeConn struct {
	id string

	mu     sync.Mutex
	sent   []Outbound
	pings  int
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(msg Outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
}

func (c *fakeConn) Ping() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) messages() []Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Outbound, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) ofEvent(event string) []Outbound {
	var out []Outbound
	for _, m := range c.messages() {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) announcementsOfType(kind string) []Announcement {
	var out []Announcement
	for _, m := range c.ofEvent(EventAnnouncement) {
		a := m.Data.(Announcement)
		if a.Type == kind {
			out = append(out, a)
		}
	}
	return out
}

func (c *fakeConn) lastLobbyUpdate() (LobbyUpdate, bool) {
	updates := c.ofEvent(EventLobbyUpdate)
	if len(updates) == 0 {
		return LobbyUpdate{}, false
	}
	return updates[len(updates)-1].Data.(LobbyUpdate), true
}

func (c *fakeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

// --- lobbyHost ---

type MockLobbyHost struct {
	mock.Mock
}

func (m *MockLobbyHost) updateDescription(d LobbyDescription) {
	m.Called(d)
}

func (m *MockLobbyHost) requestRemove(code string) {
	m.Called(code)
}

// quietHost accepts any description traffic; scenarios that only care about
// game flow use it instead of spelling out every expectation.
func quietHost() *MockLobbyHost {
	h := &MockLobbyHost{}
	h.On("updateDescription", mock.Anything).Return().Maybe()
	h.On("requestRemove", mock.Anything).Return().Maybe()
	return h
}

// --- PeriodicTickerCreator ---

type MockTickerCreator struct {
	mock.Mock
}

func (m *MockTickerCreator) Create(d time.Duration) <-chan time.Time {
	args := m.Called(d)
	return args.Get(0).(chan time.Time)
}

// --- NetworkSession ---

type fakeSession struct {
	mu     sync.Mutex
	reads  chan []byte
	writes [][]byte
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{reads: make(chan []byte, 64)}
}

func (s *fakeSession) Read() ([]byte, error) {
	data, ok := <-s.reads
	if !ok {
		return nil, errSessionClosed
	}
	return data, nil
}

func (s *fakeSession) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, append([]byte(nil), data...))
	return nil
}

func (s *fakeSession) Ping() error { return nil }

func (s *fakeSession) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSession) written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.writes))
	copy(out, s.writes)
	return out
}
