package game

import (
	"encoding/json"
	"time"

	"github.com/maciejszaman/enavti/feed"
)

// Stage is the lobby's current phase. The values are contractual: clients
// switch views on them.
type Stage string

const (
	StageLobby    Stage = "lobby"
	StageRoundOne Stage = "roundOne"
	StageRoundTwo Stage = "roundTwo"
	StageEnded    Stage = "ended"
)

// Character is a cosmetic avatar descriptor chosen by the player.
type Character struct {
	Character    int `json:"character"`
	ClothesColor int `json:"clothesColor"`
}

// Inbound event names.
const (
	EventJoinLobby   = "join-lobby"
	EventChatMessage = "chat-message-req"
	EventStartGame   = "start-game"
	EventPlayerPick  = "player-choice"
	EventLobbyState  = "lobby-update-req"
)

// Outbound event names.
const (
	EventLobbyUpdate   = "lobby-update"
	EventChatBroadcast = "chat-message-broadcast"
	EventAnnouncement  = "announcement"
	EventTimerUpdate   = "timer-update"
	EventTimerStop     = "timer-stop"
	EventError         = "error"
)

// Announcement kinds, a closed set. Each carries a display duration so
// clients can time their own transitions off it.
const (
	AnnounceInfo        = "info"
	AnnounceQuestion    = "question"
	AnnounceRightAnswer = "right-answer"
	AnnounceWrongAnswer = "wrong-answer"
	AnnounceGameStart   = "game-start"
	AnnounceGameEnd     = "game-end"
	AnnounceModal       = "modal"
	AnnounceCloseModal  = "closeModal"
)

const ModalShufflingPlayers = "shufflingPlayers"

// Inbound is the envelope for every client-to-server event.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinLobbyPayload struct {
	LobbyID    string    `json:"lobbyId"`
	PlayerName string    `json:"playerName"`
	Character  Character `json:"character"`
}

type ChatPayload struct {
	LobbyID string `json:"lobbyId"`
	Message string `json:"message"`
}

type StartGamePayload struct {
	LobbyID string `json:"lobbyId"`
}

type PlayerPickPayload struct {
	LobbyID string `json:"lobbyId"`
	Pick    string `json:"pick"`
}

type LobbyStatePayload struct {
	LobbyID string `json:"lobbyId"`
}

// Outbound is the envelope for every server-to-client event.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// PlayerSnapshot is the wire form of a seated player.
type PlayerSnapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Character Character `json:"character"`
	Lives     int       `json:"lives"`
	Score     int       `json:"score"`
}

type LobbyUpdate struct {
	Players   []PlayerSnapshot `json:"players"`
	GameState Stage            `json:"gameState"`
}

type ChatBroadcast struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

type Announcement struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	GameState    Stage  `json:"gameState,omitempty"`
	Duration     int64  `json:"duration"`
	TargetPlayer string `json:"targetPlayer,omitempty"`
}

// TimerUpdate fields are contractual: clients render the shared countdown
// bar directly from them.
type TimerUpdate struct {
	TimeRemaining int64  `json:"timeRemaining"`
	TotalTime     int64  `json:"totalTime"`
	TargetPlayer  string `json:"targetPlayer"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func makeLobbyUpdate(players []PlayerSnapshot, stage Stage) Outbound {
	return Outbound{Event: EventLobbyUpdate, Data: LobbyUpdate{Players: players, GameState: stage}}
}

func makeChatBroadcast(playerID, playerName, message string, at time.Time) Outbound {
	return Outbound{Event: EventChatBroadcast, Data: ChatBroadcast{
		PlayerID:   playerID,
		PlayerName: playerName,
		Message:    message,
		Timestamp:  at.UnixMilli(),
	}}
}

func makeAnnouncement(kind, message string, duration time.Duration) Outbound {
	return Outbound{Event: EventAnnouncement, Data: Announcement{
		Type:     kind,
		Message:  message,
		Duration: duration.Milliseconds(),
	}}
}

func makeStageAnnouncement(kind, message string, stage Stage, duration time.Duration) Outbound {
	return Outbound{Event: EventAnnouncement, Data: Announcement{
		Type:      kind,
		Message:   message,
		GameState: stage,
		Duration:  duration.Milliseconds(),
	}}
}

func makeQuestionAnnouncement(q feed.Question, targetID string, duration time.Duration) Outbound {
	return Outbound{Event: EventAnnouncement, Data: Announcement{
		Type:         AnnounceQuestion,
		Message:      q.Prompt,
		Duration:     duration.Milliseconds(),
		TargetPlayer: targetID,
	}}
}

func makeTimerUpdate(remaining, total time.Duration, targetID string) Outbound {
	return Outbound{Event: EventTimerUpdate, Data: TimerUpdate{
		TimeRemaining: remaining.Milliseconds(),
		TotalTime:     total.Milliseconds(),
		TargetPlayer:  targetID,
	}}
}

func makeTimerStop() Outbound {
	return Outbound{Event: EventTimerStop, Data: struct{}{}}
}

func makeError(message string) Outbound {
	return Outbound{Event: EventError, Data: ErrorPayload{Message: message}}
}
