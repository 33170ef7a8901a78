package game

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/maciejszaman/enavti/feed"
)

const pingInterval = 30 * time.Second

type registryJoinRequest struct {
	payload JoinLobbyPayload
	from    Conn
}

type routedEnvelope struct {
	lobbyID string
	env     inboundEnvelope
}

type lookupRequest struct {
	code string
	resp chan lookupResult
}

type lookupResult struct {
	desc LobbyDescription
	ok   bool
}

// Registry owns every live lobby. A single actor goroutine holds the lobby
// map, routes inbound events by code, fans the shared ticker into each lobby
// and evicts lobbies that report themselves empty. Construct one per server;
// there is no package-global instance.
type Registry struct {
	questions *feed.Feed
	tickers   PeriodicTickerCreator
	newRNG    func() *rand.Rand
	log       zerolog.Logger

	lobbies      map[string]*Lobby
	descriptions map[string]LobbyDescription

	createReqs  chan chan string
	joinReqs    chan registryJoinRequest
	routes      chan routedEnvelope
	disconnects chan string
	descUpdates chan LobbyDescription
	removeReqs  chan string
	listReqs    chan chan []LobbyDescription
	lookupReqs  chan lookupRequest
}

func NewRegistry(questions *feed.Feed, tickers PeriodicTickerCreator, log zerolog.Logger) *Registry {
	return &Registry{
		questions: questions,
		tickers:   tickers,
		newRNG: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		log:          log.With().Str("component", "registry").Logger(),
		lobbies:      make(map[string]*Lobby),
		descriptions: make(map[string]LobbyDescription),
		createReqs:   make(chan chan string, 32),
		joinReqs:     make(chan registryJoinRequest, 256),
		routes:       make(chan routedEnvelope, 1024),
		disconnects:  make(chan string, 256),
		descUpdates:  make(chan LobbyDescription, 256),
		removeReqs:   make(chan string, 32),
		listReqs:     make(chan chan []LobbyDescription, 32),
		lookupReqs:   make(chan lookupRequest, 256),
	}
}

// Run is the registry actor. It owns all registry state; close nothing and
// call nothing on the maps from outside it.
func (r *Registry) Run(started chan struct{}) {
	ticker := r.tickers.Create(countdownTick)
	pingTicker := r.tickers.Create(pingInterval)

	close(started)

	for {
		select {
		case now := <-ticker:
			for _, l := range r.lobbies {
				select {
				case l.ticks <- now:
				default:
				}
			}
		case <-pingTicker:
			for _, l := range r.lobbies {
				select {
				case l.pings <- struct{}{}:
				default:
				}
			}
		case resp := <-r.createReqs:
			resp <- r.handleCreate()
		case req := <-r.joinReqs:
			r.handleJoinRequest(req)
		case routed := <-r.routes:
			r.handleRoute(routed)
		case connID := <-r.disconnects:
			for _, l := range r.lobbies {
				select {
				case l.removals <- connID:
				default:
					r.log.Warn().Str("lobby", l.code).Msg("removal queue full, dropping disconnect")
				}
			}
		case desc := <-r.descUpdates:
			if _, ok := r.lobbies[desc.Code]; ok {
				r.descriptions[desc.Code] = desc
			}
		case code := <-r.removeReqs:
			r.handleRemove(code)
		case resp := <-r.listReqs:
			out := make([]LobbyDescription, 0, len(r.descriptions))
			for _, d := range r.descriptions {
				out = append(out, d)
			}
			resp <- out
		case req := <-r.lookupReqs:
			desc, ok := r.descriptions[req.code]
			req.resp <- lookupResult{desc: desc, ok: ok}
		}
	}
}

func (r *Registry) handleCreate() string {
	code := newLobbyCode(func(c string) bool {
		_, taken := r.lobbies[c]
		return taken
	})

	lobby := newLobby(code, r, r.questions, r.newRNG(), r.log)
	r.lobbies[code] = lobby
	r.descriptions[code] = lobby.description()
	go lobby.run()

	r.log.Info().Str("lobby", code).Msg("lobby created")
	return code
}

func (r *Registry) handleJoinRequest(req registryJoinRequest) {
	lobby, ok := r.lobbies[req.payload.LobbyID]
	if !ok {
		req.from.Send(makeError(ErrLobbyNotFound.Error()))
		return
	}
	select {
	case lobby.joins <- joinRequest{payload: req.payload, from: req.from}:
	default:
		r.log.Warn().Str("lobby", lobby.code).Msg("join queue full, dropping join")
	}
}

func (r *Registry) handleRoute(routed routedEnvelope) {
	lobby, ok := r.lobbies[routed.lobbyID]
	if !ok {
		routed.env.from.Send(makeError(ErrLobbyNotFound.Error()))
		return
	}
	select {
	case lobby.inbox <- routed.env:
	default:
		r.log.Warn().Str("lobby", lobby.code).Msg("inbox full, dropping event")
	}
}

func (r *Registry) handleRemove(code string) {
	lobby, ok := r.lobbies[code]
	if !ok {
		return
	}
	delete(r.lobbies, code)
	delete(r.descriptions, code)
	close(lobby.stop)
	r.log.Info().Str("lobby", code).Msg("empty lobby removed")
}

// CreateLobby makes a new lobby and returns its code.
func (r *Registry) CreateLobby(ctx context.Context) (string, error) {
	resp := make(chan string, 1)
	select {
	case r.createReqs <- resp:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case code := <-resp:
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Join routes a join request to the addressed lobby. An unknown code is
// answered with a private error to the requesting connection only.
func (r *Registry) Join(ctx context.Context, payload JoinLobbyPayload, from Conn) {
	select {
	case r.joinReqs <- registryJoinRequest{payload: payload, from: from}:
	case <-ctx.Done():
	}
}

// Route forwards any other inbound event to the addressed lobby.
func (r *Registry) Route(ctx context.Context, lobbyID string, msg Inbound, from Conn) {
	select {
	case r.routes <- routedEnvelope{lobbyID: lobbyID, env: inboundEnvelope{msg: msg, from: from}}:
	case <-ctx.Done():
	}
}

// Disconnect removes the connection's seat from whichever lobby holds it.
func (r *Registry) Disconnect(connID string) {
	r.disconnects <- connID
}

// Lobbies lists every live lobby.
func (r *Registry) Lobbies(ctx context.Context) []LobbyDescription {
	resp := make(chan []LobbyDescription, 1)
	select {
	case r.listReqs <- resp:
	case <-ctx.Done():
		return nil
	}
	select {
	case out := <-resp:
		return out
	case <-ctx.Done():
		return nil
	}
}

// Lookup reports whether a lobby code is live, with its cached description.
func (r *Registry) Lookup(ctx context.Context, code string) (LobbyDescription, bool) {
	resp := make(chan lookupResult, 1)
	select {
	case r.lookupReqs <- lookupRequest{code: code, resp: resp}:
	case <-ctx.Done():
		return LobbyDescription{}, false
	}
	select {
	case res := <-resp:
		return res.desc, res.ok
	case <-ctx.Done():
		return LobbyDescription{}, false
	}
}

// lobbyHost implementation, called from lobby goroutines.

func (r *Registry) updateDescription(d LobbyDescription) {
	select {
	case r.descUpdates <- d:
	default:
	}
}

func (r *Registry) requestRemove(code string) {
	select {
	case r.removeReqs <- code:
	default:
	}
}
