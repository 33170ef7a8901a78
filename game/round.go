package game

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maciejszaman/enavti/feed"
)

const (
	startingLives = 3

	gameStartDelay     = 3 * time.Second
	modalHoldBase      = 5 * time.Second
	modalHoldPerPlayer = time.Second

	readingBase    = 1500 * time.Millisecond
	readingPerWord = 300 * time.Millisecond

	rightAnswerHold = 1500 * time.Millisecond
	wrongAnswerHold = 2500 * time.Millisecond
	roundIntroHold  = 2500 * time.Millisecond
	gameEndHold     = 5 * time.Second
	chooserHold     = 2 * time.Second
)

// readingTime scales with the prompt length so players get to read the
// question before the answer window opens.
func readingTime(prompt string) time.Duration {
	return readingBase + time.Duration(len(strings.Fields(prompt)))*readingPerWord
}

func answerMatches(canonical, submitted string) bool {
	return strings.Contains(
		strings.ToLower(strings.TrimSpace(submitted)),
		strings.ToLower(canonical),
	)
}

// handleStartGame begins round one. Only the host (seat zero) may trigger it,
// and only from the lobby stage; anything else is routine UI desync and is
// dropped without a reply.
func (l *Lobby) handleStartGame(fromID string, now time.Time) {
	if l.stage != StageLobby {
		return
	}
	if len(l.players) == 0 || l.players[0].id != fromID {
		return
	}

	l.stage = StageRoundOne
	for _, p := range l.players {
		p.lives = startingLives
		p.score = 0
	}

	l.log.Info().Int("players", len(l.players)).Msg("game started")
	l.broadcast(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
	l.broadcast(makeStageAnnouncement(AnnounceGameStart, "Game started", l.stage, gameStartDelay))
	l.host.updateDescription(l.description())

	l.pending = pendingShuffle
	l.deadline = now.Add(gameStartDelay)
}

// handleTick drives every deadline in the lobby: the answer countdown and
// whatever delayed transition is pending. Called from the registry ticker.
func (l *Lobby) handleTick(now time.Time) {
	if c := l.countdown; c != nil {
		if !now.Before(c.endsAt) {
			l.resolveTimeout(now)
		} else if now.Sub(c.lastTick) >= countdownTick {
			c.lastTick = now
			l.broadcast(makeTimerUpdate(c.remaining(now), c.total, c.targetID))
		}
	}

	if l.pending != pendingNone && !now.Before(l.deadline) {
		l.firePending(now)
	}
}

func (l *Lobby) firePending(now time.Time) {
	kind := l.pending
	l.pending = pendingNone

	switch kind {
	case pendingShuffle:
		l.shuffleRoster(now)
	case pendingModalClose:
		l.closeModalAndBegin(now)
	case pendingReading:
		// The reading delay may outlive its question if the target answered
		// early or left. A stale continuation must not start a countdown.
		if l.active == nil || l.active.seq != l.pendingSeq {
			l.log.Debug().Msg("dropping stale reading continuation")
			return
		}
		l.startCountdown(now)
	case pendingNextDispatch:
		l.advance(now)
	}
}

// shuffleRoster randomizes turn order behind a modal. The modal is held long
// enough for the client reveal animation, proportional to roster size.
func (l *Lobby) shuffleRoster(now time.Time) {
	l.rng.Shuffle(len(l.players), func(i, j int) {
		l.players[i], l.players[j] = l.players[j], l.players[i]
	})

	hold := time.Duration(len(l.players))*modalHoldPerPlayer + modalHoldBase

	l.broadcast(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
	l.broadcast(makeAnnouncement(AnnounceModal, ModalShufflingPlayers, hold))

	l.pending = pendingModalClose
	l.deadline = now.Add(hold)
}

func (l *Lobby) closeModalAndBegin(now time.Time) {
	l.broadcast(makeAnnouncement(AnnounceCloseModal, "", 0))

	pool := l.questions.RoundOne()
	l.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	count := 2 * len(l.players)
	if count > len(pool) {
		count = len(pool)
	}
	l.queue = pool[:count]
	l.questionIndex = 0

	l.log.Info().Int("questions", count).Msg("round one begins")
	l.advance(now)
}

// advance moves dispatch forward after a resolution or transition delay.
func (l *Lobby) advance(now time.Time) {
	switch l.stage {
	case StageRoundOne:
		if l.questionIndex >= len(l.queue) {
			l.startRoundTwo(now)
			return
		}
		if len(l.players) == 0 {
			return
		}
		target := l.players[l.questionIndex%len(l.players)]
		l.askQuestion(l.queue[l.questionIndex], target, now)
	case StageRoundTwo:
		l.roundTwoTurn(now)
	}
}

func (l *Lobby) askQuestion(q feed.Question, target *Player, now time.Time) {
	l.seq++
	l.active = &activeQuestion{question: q, targetID: target.id, askedAt: now, seq: l.seq}

	read := readingTime(q.Prompt)
	l.broadcast(makeQuestionAnnouncement(q, target.id, read))
	l.log.Debug().Int("question", q.ID).Str("target", target.id).Msg("question dispatched")

	l.pending = pendingReading
	l.pendingSeq = l.seq
	l.deadline = now.Add(read)
}

// resolveAnswer settles the active question with the target's submission.
// The countdown and any reading delay are cancelled before any effect is
// applied so the timeout path cannot also fire for this question.
func (l *Lobby) resolveAnswer(target *Player, text string, now time.Time) {
	q := l.active
	l.stopCountdown()
	l.pending = pendingNone
	l.active = nil

	if answerMatches(q.question.Answer, text) {
		target.score++
		l.broadcast(Outbound{Event: EventAnnouncement, Data: Announcement{
			Type:         AnnounceRightAnswer,
			Message:      fmt.Sprintf("%s got it!", target.name),
			Duration:     rightAnswerHold.Milliseconds(),
			TargetPlayer: target.id,
		}})
		l.broadcast(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
		l.afterResolution(true, target.id, rightAnswerHold, now)
		return
	}

	l.loseLife(target)
	l.broadcast(Outbound{Event: EventAnnouncement, Data: Announcement{
		Type:         AnnounceWrongAnswer,
		Message:      fmt.Sprintf("Wrong! The answer was %s", q.question.Answer),
		Duration:     wrongAnswerHold.Milliseconds(),
		TargetPlayer: target.id,
	}})
	l.broadcast(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
	l.afterResolution(false, target.id, wrongAnswerHold, now)
}

// resolveTimeout is the countdown expiry path. It shares the wrong-answer
// resolution and advances dispatch without any further client input.
func (l *Lobby) resolveTimeout(now time.Time) {
	c := l.countdown
	l.countdown = nil

	if l.active == nil || l.active.seq != c.seq {
		l.log.Debug().Msg("dropping stale countdown expiry")
		return
	}

	q := l.active
	l.active = nil
	l.pending = pendingNone
	l.broadcast(makeTimerStop())

	target := l.playerByID(q.targetID)
	if target == nil {
		l.afterResolution(false, q.targetID, wrongAnswerHold, now)
		return
	}

	l.loseLife(target)
	l.broadcast(Outbound{Event: EventAnnouncement, Data: Announcement{
		Type:         AnnounceWrongAnswer,
		Message:      fmt.Sprintf("Time's up! The answer was %s", q.question.Answer),
		Duration:     wrongAnswerHold.Milliseconds(),
		TargetPlayer: target.id,
	}})
	l.broadcast(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
	l.afterResolution(false, target.id, wrongAnswerHold, now)
}

func (l *Lobby) loseLife(p *Player) {
	if p.lives > 0 {
		p.lives--
	}
}

// afterResolution records round-two turn intent and schedules the next
// dispatch after the reveal announcement has had its display time.
func (l *Lobby) afterResolution(correct bool, targetID string, displayFor time.Duration, now time.Time) {
	switch l.stage {
	case StageRoundOne:
		l.questionIndex++
	case StageRoundTwo:
		rt := l.roundTwo
		if correct {
			rt.awaitingChoice = true
			rt.chooserID = targetID
		} else {
			if l.endIfThresholdReached(now) {
				return
			}
			// A wrong answer by a chosen target sends the pick back to the
			// same chooser, not to sequential rotation.
			if rt.lastChooserID != "" {
				if chooser := l.playerByID(rt.lastChooserID); chooser != nil && chooser.lives > 0 {
					rt.awaitingChoice = true
					rt.chooserID = rt.lastChooserID
				}
			}
		}
	}

	l.pending = pendingNextDispatch
	l.deadline = now.Add(displayFor)
}

func (l *Lobby) startRoundTwo(now time.Time) {
	l.stage = StageRoundTwo
	l.roundTwo = &roundTwoState{currentIndex: -1, pendingIndex: -1, startingRoster: len(l.players)}
	for _, p := range l.players {
		p.lives = startingLives
		p.score = 0
	}

	l.log.Info().Int("players", len(l.players)).Msg("round two begins")
	l.broadcast(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
	l.host.updateDescription(l.description())

	if l.questions.RoundTwoSize() == 0 {
		l.endGame(now)
		return
	}

	l.broadcast(makeStageAnnouncement(AnnounceInfo, "Round two!", l.stage, roundIntroHold))
	l.pending = pendingNextDispatch
	l.deadline = now.Add(roundIntroHold)
}

// roundTwoTurn decides who is asked next: a chooser's pick when one is
// pending, otherwise sequential rotation skipping eliminated players,
// bounded by a single lap.
func (l *Lobby) roundTwoTurn(now time.Time) {
	rt := l.roundTwo

	if rt.awaitingChoice {
		chooser := l.playerByID(rt.chooserID)
		if chooser != nil && chooser.lives > 0 {
			l.broadcast(Outbound{Event: EventAnnouncement, Data: Announcement{
				Type:         AnnounceInfo,
				Message:      fmt.Sprintf("%s picks the next player (1-%d)", chooser.name, len(l.players)),
				Duration:     chooserHold.Milliseconds(),
				TargetPlayer: chooser.id,
			}})
			return
		}
		rt.awaitingChoice = false
		rt.chooserID = ""
	}

	if rt.pendingIndex >= 0 && rt.pendingIndex < len(l.players) {
		index := rt.pendingIndex
		rt.pendingIndex = -1
		rt.currentIndex = index
		l.askRandomQuestion(l.players[index], now)
		return
	}

	n := len(l.players)
	for step := 1; step <= n; step++ {
		index := (rt.currentIndex + step) % n
		if l.players[index].lives > 0 {
			rt.currentIndex = index
			l.askRandomQuestion(l.players[index], now)
			return
		}
	}

	// Everyone eliminated at once: end rather than spin.
	l.endGame(now)
}

func (l *Lobby) askRandomQuestion(target *Player, now time.Time) {
	size := l.questions.RoundTwoSize()
	if size == 0 {
		l.endGame(now)
		return
	}
	l.askQuestion(l.questions.RoundTwo(l.rng.Intn(size)), target, now)
}

// handlePick consumes a chooser's numeric pick. Picks from anyone but the
// current chooser are ignored; invalid picks are corrected privately and do
// not consume the turn.
func (l *Lobby) handlePick(from Conn, pick string, now time.Time) {
	rt := l.roundTwo
	if l.stage != StageRoundTwo || rt == nil || !rt.awaitingChoice {
		return
	}
	if from.ID() != rt.chooserID {
		return
	}

	n, err := strconv.Atoi(strings.TrimSpace(pick))
	if err != nil || n < 1 || n > len(l.players) {
		from.Send(makeAnnouncement(AnnounceInfo,
			fmt.Sprintf("Pick a number between 1 and %d", len(l.players)), chooserHold))
		return
	}

	target := l.players[n-1]
	if target.lives == 0 {
		from.Send(makeAnnouncement(AnnounceInfo,
			fmt.Sprintf("%s is already out, pick someone else", target.name), chooserHold))
		return
	}

	rt.awaitingChoice = false
	rt.lastChooserID = rt.chooserID
	rt.chooserID = ""
	rt.pendingIndex = n - 1
	l.roundTwoTurn(now)
}

func (l *Lobby) endIfThresholdReached(now time.Time) bool {
	rt := l.roundTwo
	if rt == nil {
		return false
	}
	limit := 2
	if rt.startingRoster >= 5 {
		limit = 3
	}
	if l.aliveCount() <= limit {
		l.endGame(now)
		return true
	}
	return false
}

// endGame is terminal and idempotent: the final snapshot and game-end
// announcement go out exactly once.
func (l *Lobby) endGame(now time.Time) {
	if l.stage == StageEnded {
		return
	}
	l.stage = StageEnded
	l.stopCountdown()
	l.pending = pendingNone
	l.active = nil

	l.log.Info().Msg("game ended")
	l.broadcast(makeLobbyUpdate(l.snapshotPlayers(), l.stage))
	l.broadcast(makeStageAnnouncement(AnnounceGameEnd, "Game over", l.stage, gameEndHold))
	l.host.updateDescription(l.description())
}

// playerRemoved repairs round state after a seat is removed at index.
func (l *Lobby) playerRemoved(index int, id string, now time.Time) {
	if l.stage != StageRoundOne && l.stage != StageRoundTwo {
		return
	}

	if rt := l.roundTwo; rt != nil {
		if index <= rt.currentIndex {
			rt.currentIndex--
		}
		if rt.pendingIndex >= 0 {
			if rt.pendingIndex == index {
				rt.pendingIndex = -1
			} else if index < rt.pendingIndex {
				rt.pendingIndex--
			}
		}
		if rt.lastChooserID == id {
			rt.lastChooserID = ""
		}
		if rt.chooserID == id {
			rt.chooserID = ""
			if rt.awaitingChoice {
				rt.awaitingChoice = false
				l.pending = pendingNextDispatch
				l.deadline = now
			}
		}
	}

	if l.active != nil && l.active.targetID == id {
		// The target walked out mid-question: cancel and move on, no life
		// penalty to apply to an empty seat.
		l.stopCountdown()
		l.pending = pendingNone
		l.active = nil
		if l.stage == StageRoundOne {
			l.questionIndex++
		}
		l.pending = pendingNextDispatch
		l.deadline = now
	}

	if l.stage == StageRoundTwo {
		l.endIfThresholdReached(now)
	}
}
