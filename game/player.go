package game

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const routeTimeout = 2 * time.Second

// client is one websocket connection. Its uuid is the player identity for as
// long as the socket lives; a reconnect is a new identity with a fresh seat.
type client struct {
	id       string
	session  NetworkSession
	registry *Registry
	limiter  *rate.Limiter
	log      zerolog.Logger

	outbox    chan Outbound
	pingCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(session NetworkSession, registry *Registry, log zerolog.Logger) *client {
	id := uuid.NewString()
	return &client{
		id:       id,
		session:  session,
		registry: registry,
		limiter:  rate.NewLimiter(4, 8),
		log:      log.With().Str("conn", id).Logger(),
		outbox:   make(chan Outbound, 256),
		pingCh:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (c *client) ID() string {
	return c.id
}

// Send enqueues without blocking; a backed-up client loses messages rather
// than stalling its lobby.
func (c *client) Send(msg Outbound) {
	select {
	case <-c.done:
	case c.outbox <- msg:
	default:
		c.log.Warn().Str("event", msg.Event).Msg("outbox full, dropping message")
	}
}

func (c *client) Ping() {
	select {
	case c.pingCh <- struct{}{}:
	default:
	}
}

func (c *client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.session.Close("")
	})
}

func (c *client) ReadPump() {
	defer func() {
		c.registry.Disconnect(c.id)
		c.Close()
	}()

	for {
		data, err := c.session.Read()
		if err != nil {
			c.log.Debug().Err(err).Msg("client disconnected")
			return
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			continue
		}
		if !c.limiter.Allow() {
			continue
		}
		c.dispatch(msg)
	}
}

func (c *client) dispatch(msg Inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), routeTimeout)
	defer cancel()

	switch msg.Event {
	case EventJoinLobby:
		var payload JoinLobbyPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		if payload.LobbyID == "" || payload.PlayerName == "" {
			return
		}
		c.registry.Join(ctx, payload, c)
	default:
		// Every other event addresses a lobby by code.
		var addr struct {
			LobbyID string `json:"lobbyId"`
		}
		if err := json.Unmarshal(msg.Data, &addr); err != nil || addr.LobbyID == "" {
			return
		}
		c.registry.Route(ctx, addr.LobbyID, msg, c)
	}
}

func (c *client) WritePump() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.outbox:
			data, err := json.Marshal(msg)
			if err != nil {
				c.log.Error().Err(err).Str("event", msg.Event).Msg("failed to marshal outbound message")
				continue
			}
			if err := c.session.Write(data); err != nil {
				c.Close()
				return
			}
		case <-c.pingCh:
			if err := c.session.Ping(); err != nil {
				c.Close()
				return
			}
		}
	}
}
