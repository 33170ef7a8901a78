package game

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/maciejszaman/enavti/feed"
)

// Sink is the write side of a connected client. Sends must never block the
// lobby goroutine.
type Sink interface {
	Send(msg Outbound)
	Ping()
	Close()
}

// Conn is what the lobby knows about a connection: an identity and a sink.
type Conn interface {
	Sink
	ID() string
}

// Player is a roster seat. Seats are owned by the lobby goroutine and must
// not be touched from outside it.
type Player struct {
	id        string
	name      string
	character Character
	lives     int
	score     int
	conn      Conn
}

type inboundEnvelope struct {
	msg  Inbound
	from Conn
}

type joinRequest struct {
	payload JoinLobbyPayload
	from    Conn
}

// LobbyDescription is the registry's cached view of a lobby, served on the
// HTTP listing endpoints.
type LobbyDescription struct {
	Code        string    `json:"lobbyId"`
	CreatedAt   time.Time `json:"createdAt"`
	PlayerCount int       `json:"playerCount"`
	GameState   Stage     `json:"gameState"`
}

// lobbyHost is the registry as seen from a lobby.
type lobbyHost interface {
	updateDescription(d LobbyDescription)
	requestRemove(code string)
}

type activeQuestion struct {
	question feed.Question
	targetID string
	askedAt  time.Time
	seq      uint64
}

type roundTwoState struct {
	currentIndex   int
	awaitingChoice bool
	chooserID      string
	lastChooserID  string
	pendingIndex   int
	startingRoster int
}

type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingShuffle
	pendingModalClose
	pendingReading
	pendingNextDispatch
)

// Lobby owns one game room end to end: roster, stage, question dispatch and
// the answer countdown. All state below the channels is confined to run().
type Lobby struct {
	code      string
	createdAt time.Time
	host      lobbyHost
	questions *feed.Feed
	rng       *rand.Rand
	log       zerolog.Logger

	stage   Stage
	players []*Player

	queue         []feed.Question
	questionIndex int

	active   *activeQuestion
	seq      uint64
	roundTwo *roundTwoState

	pending    pendingKind
	deadline   time.Time
	pendingSeq uint64

	countdown *countdown

	inbox    chan inboundEnvelope
	joins    chan joinRequest
	removals chan string
	ticks    chan time.Time
	pings    chan struct{}
	stop     chan struct{}
}

func newLobby(code string, host lobbyHost, questions *feed.Feed, rng *rand.Rand, log zerolog.Logger) *Lobby {
	return &Lobby{
		code:      code,
		createdAt: time.Now(),
		host:      host,
		questions: questions,
		rng:       rng,
		log:       log.With().Str("lobby", code).Logger(),
		stage:     StageLobby,
		inbox:     make(chan inboundEnvelope, 1024),
		joins:     make(chan joinRequest, 16),
		removals:  make(chan string, 64),
		ticks:     make(chan time.Time, 24),
		pings:     make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
}

func (l *Lobby) run() {
	for {
		select {
		case <-l.stop:
			return
		case env := <-l.inbox:
			l.handleEvent(env, time.Now())
		case req := <-l.joins:
			l.handleJoin(req)
		case id := <-l.removals:
			l.handleLeave(id, time.Now())
		case now := <-l.ticks:
			l.handleTick(now)
		case <-l.pings:
			l.pingPlayers()
		}
	}
}

func (l *Lobby) handleEvent(env inboundEnvelope, now time.Time) {
	switch env.msg.Event {
	case EventChatMessage:
		var payload ChatPayload
		if err := json.Unmarshal(env.msg.Data, &payload); err != nil {
			return
		}
		l.handleChat(env.from, payload.Message, now)
	case EventStartGame:
		l.handleStartGame(env.from.ID(), now)
	case EventPlayerPick:
		var payload PlayerPickPayload
		if err := json.Unmarshal(env.msg.Data, &payload); err != nil {
			return
		}
		l.handlePick(env.from, payload.Pick, now)
	case EventLobbyState:
		env.from.Send(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
	}
}

// handleJoin seats a new connection, or renames an already seated one. The
// same connection id never gets a second seat.
func (l *Lobby) handleJoin(req joinRequest) {
	for _, p := range l.players {
		if p.id == req.from.ID() {
			p.name = req.payload.PlayerName
			l.log.Info().Str("player", p.id).Str("name", p.name).Msg("player renamed")
			l.broadcast(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
			return
		}
	}

	player := &Player{
		id:        req.from.ID(),
		name:      req.payload.PlayerName,
		character: req.payload.Character,
		conn:      req.from,
	}
	l.players = append(l.players, player)

	l.log.Info().Str("player", player.id).Str("name", player.name).Msg("player joined")
	l.broadcast(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
	l.host.updateDescription(l.description())
}

func (l *Lobby) handleLeave(connID string, now time.Time) {
	index := -1
	for i, p := range l.players {
		if p.id == connID {
			index = i
			break
		}
	}
	if index == -1 {
		return
	}

	left := l.players[index]
	l.players = append(l.players[:index], l.players[index+1:]...)
	l.log.Info().Str("player", left.id).Str("name", left.name).Msg("player left")

	if len(l.players) == 0 {
		l.host.requestRemove(l.code)
		return
	}

	l.playerRemoved(index, left.id, now)
	l.broadcast(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
	l.host.updateDescription(l.description())
}

func (l *Lobby) handleChat(from Conn, message string, now time.Time) {
	player := l.playerByID(from.ID())
	if player == nil {
		return
	}

	if l.active != nil && l.active.targetID == player.id {
		l.resolveAnswer(player, message, now)
		return
	}

	l.broadcast(makeChatBroadcast(player.id, player.name, message, now))
}

func (l *Lobby) playerByID(id string) *Player {
	for _, p := range l.players {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (l *Lobby) playerIndex(id string) int {
	for i, p := range l.players {
		if p.id == id {
			return i
		}
	}
	return -1
}

func (l *Lobby) aliveCount() int {
	alive := 0
	for _, p := range l.players {
		if p.lives > 0 {
			alive++
		}
	}
	return alive
}

func (l *Lobby) broadcast(msg Outbound) {
	for _, p := range l.players {
		p.conn.Send(msg)
	}
}

func (l *Lobby) pingPlayers() {
	for _, p := range l.players {
		p.conn.Ping()
	}
}

func (l *Lobby) snapshotPlayers() []PlayerSnapshot {
	out := make([]PlayerSnapshot, 0, len(l.players))
	for _, p := range l.players {
		out = append(out, PlayerSnapshot{
			ID:        p.id,
			Name:      p.name,
			Character: p.character,
			Lives:     p.lives,
			Score:     p.score,
		})
	}
	return out
}

func (l *Lobby) description() LobbyDescription {
	return LobbyDescription{
		Code:        l.code,
		CreatedAt:   l.createdAt,
		PlayerCount: len(l.players),
		GameState:   l.stage,
	}
}
