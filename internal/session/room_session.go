package session

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/event"
	"github.com/phash/playtogether-sub000/internal/game"
	"github.com/phash/playtogether-sub000/internal/logger"
	"github.com/phash/playtogether-sub000/internal/metrics"
	"github.com/phash/playtogether-sub000/internal/room"
	"github.com/phash/playtogether-sub000/internal/sched"
	"github.com/phash/playtogether-sub000/internal/vote"
)

const inboxSize = 256

// Inbox messages
type (
	clientMessage struct {
		conn     Conn
		playerID string
		env      Envelope
	}
	timerFired struct {
		id sched.ID
	}
	connClosed struct {
		connID   string
		playerID string
	}
	bindRequest struct {
		conn      Conn
		playerID  string
		accountID *int64
		mode      bindMode
	}
	closeRoom struct {
		reason string
	}
	barrier struct {
		done chan struct{}
	}
)

type bindMode int

const (
	bindCreate bindMode = iota
	bindJoin
	bindReconnect
)

type roomStatePayload struct {
	Room     room.Room `json:"room"`
	PlayerID string    `json:"playerId,omitempty"`
}

type playerLeftPayload struct {
	PlayerID  string `json:"playerId"`
	NewHostID string `json:"newHostId,omitempty"`
}

type gameStartingPayload struct {
	Seconds  int             `json:"seconds"`
	GameKind domain.GameKind `json:"gameKind"`
	Playlist int             `json:"playlistIndex"`
}

type gameEndedPayload struct {
	GameKind domain.GameKind `json:"gameKind"`
	Scores   map[string]int  `json:"scores"`
	Winner   string          `json:"winner,omitempty"`
}

type standingsPayload struct {
	Rankings    []vote.Ranking `json:"rankings"`
	GamesPlayed int            `json:"gamesPlayed"`
}

// roomSession is the single goroutine allowed to drive one room: its engine,
// its vote and its timers.
type roomSession struct {
	o      *Orchestrator
	roomID string
	log    *slog.Logger

	inbox   chan any
	done    chan struct{}
	stopped bool

	dispatch sched.Dispatch
	flow     *sched.Set
	grace    *sched.Set
	pending  map[string]sched.ID
	rng      *rand.Rand

	conns     map[string]Conn
	votes     *vote.Manager
	startedAt time.Time
}

func newRoomSession(o *Orchestrator, r room.Room, rng *rand.Rand) *roomSession {
	rs := &roomSession{
		o:       o,
		roomID:  r.ID,
		log:     logger.Room(r.Code),
		inbox:   make(chan any, inboxSize),
		done:    make(chan struct{}),
		pending: make(map[string]sched.ID),
		rng:     rng,
		conns:   make(map[string]Conn),
	}
	rs.dispatch = func(id sched.ID) { rs.send(timerFired{id: id}) }
	rs.flow = sched.NewSet(o.clock, rs.dispatch)
	rs.grace = sched.NewSet(o.clock, rs.dispatch)
	return rs
}

func (rs *roomSession) send(msg any) bool {
	select {
	case <-rs.done:
		return false
	default:
	}
	select {
	case rs.inbox <- msg:
		return true
	case <-rs.done:
		return false
	}
}

func (rs *roomSession) sync() {
	done := make(chan struct{})
	if !rs.send(barrier{done: done}) {
		return
	}
	select {
	case <-done:
	case <-rs.done:
	}
}

func (rs *roomSession) run() {
	defer rs.o.actorWG.Done()
	for !rs.stopped {
		select {
		case msg := <-rs.inbox:
			rs.handle(msg)
		case <-rs.done:
			return
		}
	}
}

func (rs *roomSession) handle(msg any) {
	switch m := msg.(type) {
	case clientMessage:
		rs.handleClient(m)
	case timerFired:
		rs.fire(m.id)
	case connClosed:
		rs.disconnected(m)
	case bindRequest:
		rs.bind(m)
	case closeRoom:
		rs.close(m.reason)
	case barrier:
		close(m.done)
	}
	if !rs.stopped {
		rs.flush()
	}
}

func (rs *roomSession) fire(id sched.ID) {
	var target string
	switch {
	case rs.flow.Fire(id):
		target = "session"
	case rs.grace.Fire(id):
		target = "grace"
	case rs.o.games.HandleTimer(rs.roomID, id):
		target = "engine"
	case rs.votes != nil && rs.votes.HandleTimer(id):
		target = "vote"
	default:
		return
	}
	metrics.TimersFired.WithLabelValues(target).Inc()
}

func (rs *roomSession) handleClient(m clientMessage) {
	if c, ok := rs.conns[m.playerID]; !ok || c.ID() != m.conn.ID() {
		m.conn.Send(ErrorFrame(ErrNotInRoom))
		return
	}

	var err error
	switch m.env.Type {
	case MsgLeaveRoom:
		rs.leave(m.playerID)
	case MsgSetReady:
		err = rs.setReady(m)
	case MsgStartGame:
		err = rs.startGame(m.playerID)
	case MsgGameAction:
		err = rs.gameAction(m)
	case MsgUpdateSettings:
		err = rs.updateSettings(m)
	case MsgUpdatePlaylist:
		err = rs.updatePlaylist(m)
	case MsgCastVote:
		err = rs.castVote(m)
	case MsgEndSession:
		err = rs.endSession(m.playerID)
	default:
		err = ErrInvalidMessage
	}
	if err != nil {
		m.conn.Send(ErrorFrame(err))
	}
}

// flush forwards whatever the engine and the vote emitted, then moves the
// session along if either of them finished.
func (rs *roomSession) flush() {
	if e, ok := rs.o.games.Get(rs.roomID); ok {
		changed := false
		for _, ev := range e.Drain() {
			rs.deliver(ev)
			if ev.Name != "timer_tick" {
				changed = true
			}
		}
		if changed {
			rs.broadcast(EvtGameState, e.State())
		}
		if e.Finished() {
			rs.finishGame(e)
		}
	}
	if rs.votes != nil {
		for _, ev := range rs.votes.Drain() {
			rs.deliver(ev)
		}
		if res, ok := rs.votes.TakeResult(); ok {
			rs.voteResolved(res)
		}
	}
}

func (rs *roomSession) deliver(ev event.Event) {
	if ev.To != "" {
		rs.sendTo(ev.To, ev.Name, ev.Payload)
		return
	}
	rs.broadcast(ev.Name, ev.Payload)
}

func (rs *roomSession) broadcast(msgType string, payload any) {
	b := Frame(msgType, payload)
	if b == nil {
		return
	}
	for _, c := range rs.conns {
		c.Send(b)
	}
}

func (rs *roomSession) broadcastExcept(playerID, msgType string, payload any) {
	b := Frame(msgType, payload)
	if b == nil {
		return
	}
	for id, c := range rs.conns {
		if id != playerID {
			c.Send(b)
		}
	}
}

func (rs *roomSession) sendTo(playerID, msgType string, payload any) {
	c, ok := rs.conns[playerID]
	if !ok {
		return
	}
	if b := Frame(msgType, payload); b != nil {
		c.Send(b)
	}
}

func (rs *roomSession) bind(m bindRequest) {
	r, ok := rs.o.rooms.Get(rs.roomID)
	p, seated := r.Player(m.playerID)
	if !ok || !seated {
		m.conn.Send(ErrorFrame(room.ErrPlayerNotFound))
		rs.o.unbind(m.conn.ID())
		return
	}
	if prev, ok := rs.conns[p.ID]; ok && prev.ID() != m.conn.ID() {
		rs.o.unbind(prev.ID())
	}
	rs.conns[p.ID] = m.conn
	if m.accountID != nil {
		if updated, err := rs.o.rooms.SetAccount(rs.roomID, p.ID, *m.accountID); err == nil {
			r = updated
		}
	}

	if m.mode == bindReconnect {
		if id, ok := rs.pending[p.ID]; ok {
			rs.grace.Cancel(id)
			delete(rs.pending, p.ID)
		}
		// the old socket's close may have been handled after Reconnect
		// marked the seat, so the flag is set again here
		if updated, err := rs.o.rooms.SetConnected(rs.roomID, p.ID, true); err == nil {
			r = updated
			p, _ = r.Player(p.ID)
		}
		rs.broadcastExcept(p.ID, EvtPlayerReconnected, map[string]any{"playerId": p.ID, "player": p})
		rs.snapshot(p.ID, r)
		rs.log.Info("player reconnected", "player", p.Name)
		return
	}

	if rs.votes != nil {
		rs.votes.AddPlayer(vote.Player{ID: p.ID, Name: p.Name})
	}
	if m.mode == bindJoin {
		rs.broadcastExcept(p.ID, EvtPlayerJoined, map[string]any{"player": p})
		rs.log.Info("player joined", "player", p.Name)
	}
	rs.sendTo(p.ID, EvtRoomState, roomStatePayload{Room: r, PlayerID: p.ID})
}

// snapshot brings a returning player up to date.
func (rs *roomSession) snapshot(playerID string, r room.Room) {
	rs.sendTo(playerID, EvtRoomState, roomStatePayload{Room: r, PlayerID: playerID})
	if e, ok := rs.o.games.Get(rs.roomID); ok && !e.Finished() {
		rs.sendTo(playerID, EvtGameState, e.State())
	}
	if rs.votes != nil && rs.votes.Voting() {
		candidates, left, votes := rs.votes.Ballot()
		rs.sendTo(playerID, EvtVoteStart, map[string]any{
			"candidates": candidates,
			"seconds":    left,
			"votes":      votes,
		})
	}
}

func (rs *roomSession) disconnected(m connClosed) {
	c, ok := rs.conns[m.playerID]
	if !ok || c.ID() != m.connID {
		return
	}
	delete(rs.conns, m.playerID)
	if _, err := rs.o.rooms.SetConnected(rs.roomID, m.playerID, false); err != nil {
		return
	}
	grace := rs.o.cfg.Grace
	rs.broadcast(EvtPlayerDisconnected, map[string]any{
		"playerId":     m.playerID,
		"graceSeconds": int(grace / time.Second),
	})

	pid := m.playerID
	rs.pending[pid] = rs.grace.After(grace, func() {
		delete(rs.pending, pid)
		rs.log.Info("reconnect window expired", "player", pid)
		rs.leave(pid)
	})
}

// leave removes a player for good. The last one out closes the room.
func (rs *roomSession) leave(playerID string) {
	if id, ok := rs.pending[playerID]; ok {
		rs.grace.Cancel(id)
		delete(rs.pending, playerID)
	}
	_, newHost, deleted, err := rs.o.rooms.RemovePlayer(rs.roomID, playerID)
	if err != nil {
		return
	}

	rs.broadcast(EvtPlayerLeft, playerLeftPayload{PlayerID: playerID, NewHostID: newHost})
	if c, ok := rs.conns[playerID]; ok {
		delete(rs.conns, playerID)
		rs.o.unbind(c.ID())
	}
	if deleted {
		rs.stop("empty")
		return
	}
	rs.o.games.PlayerLeft(rs.roomID, playerID)
	if rs.votes != nil {
		rs.votes.RemovePlayer(playerID)
	}
}

func (rs *roomSession) close(reason string) {
	if reason == "idle" {
		if r, ok := rs.o.rooms.Get(rs.roomID); ok && !r.Idle() {
			return
		}
	}
	rs.broadcast(EvtRoomClosed, map[string]string{"reason": reason})
	rs.o.rooms.Delete(rs.roomID)
	rs.stop(reason)
}

func (rs *roomSession) stop(reason string) {
	rs.stopped = true
	rs.flow.Close()
	rs.grace.Close()
	rs.o.games.EndGame(rs.roomID)
	if rs.votes != nil {
		rs.votes.Destroy()
		rs.votes = nil
	}
	for _, c := range rs.conns {
		rs.o.unbind(c.ID())
	}
	rs.conns = map[string]Conn{}
	rs.o.removeActor(rs.roomID)
	close(rs.done)
	rs.log.Info("room closed", "reason", reason)
}

func (rs *roomSession) setReady(m clientMessage) error {
	var p setReadyPayload
	if err := decodePayload(m.env.Payload, &p); err != nil {
		return err
	}
	r, err := rs.o.rooms.SetReady(rs.roomID, m.playerID, p.Ready)
	if err != nil {
		return err
	}
	player, _ := r.Player(m.playerID)
	rs.broadcast(EvtPlayerUpdated, map[string]any{"player": player})
	return nil
}

func (rs *roomSession) updateSettings(m clientMessage) error {
	var patch room.SettingsPatch
	if err := decodePayload(m.env.Payload, &patch); err != nil {
		return err
	}
	r, err := rs.o.rooms.UpdateSettings(rs.roomID, m.playerID, patch)
	if err != nil {
		return err
	}
	rs.broadcast(EvtRoomState, roomStatePayload{Room: r})
	return nil
}

func (rs *roomSession) updatePlaylist(m clientMessage) error {
	var p updatePlaylistPayload
	if err := decodePayload(m.env.Payload, &p); err != nil {
		return err
	}
	r, err := rs.o.rooms.UpdatePlaylist(rs.roomID, m.playerID, p.Entries)
	if err != nil {
		return err
	}
	rs.broadcast(EvtRoomState, roomStatePayload{Room: r})
	return nil
}

func (rs *roomSession) startGame(playerID string) error {
	if _, _, err := rs.o.rooms.CheckStart(rs.roomID, playerID); err != nil {
		return err
	}
	r, err := rs.o.rooms.BeginSession(rs.roomID)
	if err != nil {
		return err
	}
	players := make([]vote.Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = vote.Player{ID: p.ID, Name: p.Name}
	}
	rs.votes = vote.New(players, nil, rs.o.clock, rs.dispatch, rs.rng)
	rs.startedAt = rs.o.clock.Now()
	rs.log.Info("session started", "players", len(players))
	rs.beginCountdown()
	return nil
}

func (rs *roomSession) beginCountdown() {
	r, err := rs.o.rooms.SetStatus(rs.roomID, domain.RoomStarting)
	if err != nil {
		return
	}
	kind := r.CurrentEntry().Kind
	secs := rs.o.cfg.StartCountdown
	rs.broadcast(EvtGameStarting, gameStartingPayload{Seconds: secs, GameKind: kind, Playlist: r.PlaylistIndex})
	rs.flow.Countdown(secs, func(left int) {
		rs.broadcast(EvtGameStarting, gameStartingPayload{Seconds: left, GameKind: kind, Playlist: r.PlaylistIndex})
	}, rs.launchGame)
}

func (rs *roomSession) launchGame() {
	r, ok := rs.o.rooms.Get(rs.roomID)
	if !ok {
		return
	}
	entry := r.CurrentEntry()
	players := make([]game.Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = game.Player{ID: p.ID, Name: p.Name}
	}
	env := game.Env{
		Clock:    rs.o.clock,
		Dispatch: rs.dispatch,
		Rand:     rs.rng,
		Content:  rs.o.content,
	}
	settings := game.Settings{Rounds: entry.Rounds, TimePerRound: entry.TimePerRound}
	e := rs.o.games.CreateGameWithSettings(rs.roomID, entry.Kind, players, settings, env)
	if e == nil {
		rs.log.Warn("no engine for playlist entry", "kind", entry.Kind)
		rs.startVote()
		return
	}
	if _, err := rs.o.rooms.SetStatus(rs.roomID, domain.RoomPlaying); err != nil {
		return
	}
	rs.log.Info("game started", "kind", entry.Kind, "players", len(players))
	e.Start()
}

func (rs *roomSession) gameAction(m clientMessage) error {
	var p gameActionPayload
	if err := decodePayload(m.env.Payload, &p); err != nil {
		return err
	}
	if p.Action == "" {
		return ErrInvalidMessage
	}
	// Actions outside a running game are dropped like any other invalid move.
	rs.o.games.HandleAction(rs.roomID, m.playerID, p.Action, p.Data)
	return nil
}

func (rs *roomSession) finishGame(e game.Engine) {
	scores := e.Scores()
	winner := e.Winner()
	rs.o.games.EndGame(rs.roomID)

	rs.broadcast(EvtGameEnded, gameEndedPayload{GameKind: e.Kind(), Scores: scores, Winner: winner})
	rs.log.Info("game ended", "kind", e.Kind(), "winner", winner)
	if rs.votes == nil {
		return
	}
	rs.votes.AddGameScores(scores)
	rs.votes.SetLastKind(e.Kind())
	rs.broadcast(EvtSessionResults, standingsPayload{
		Rankings:    rs.votes.Rankings(),
		GamesPlayed: rs.votes.GamesPlayed(),
	})
	if _, err := rs.o.rooms.SetStatus(rs.roomID, domain.RoomResults); err != nil {
		return
	}
	rs.flow.After(rs.o.cfg.ResultsPause, rs.afterResults)
}

func (rs *roomSession) afterResults() {
	_, more, err := rs.o.rooms.AdvancePlaylist(rs.roomID)
	if err != nil {
		return
	}
	if more {
		rs.beginCountdown()
		return
	}
	rs.startVote()
}

func (rs *roomSession) startVote() {
	r, err := rs.o.rooms.SetStatus(rs.roomID, domain.RoomVoting)
	if err != nil || rs.votes == nil {
		return
	}
	if rs.votes.StartVoting(len(r.Players), rs.o.cfg.VoteSeconds) == nil {
		rs.log.Warn("no game fits the room, ending session", "players", len(r.Players))
		rs.finishSession()
	}
}

func (rs *roomSession) castVote(m clientMessage) error {
	var p castVotePayload
	if err := decodePayload(m.env.Payload, &p); err != nil {
		return err
	}
	if rs.votes != nil {
		rs.votes.CastVote(m.playerID, p.GameKind)
	}
	return nil
}

func (rs *roomSession) voteResolved(res vote.Result) {
	if _, err := rs.o.rooms.SetGameKind(rs.roomID, res.Kind); err != nil {
		rs.log.Error("apply vote", "kind", res.Kind, "error", err)
		return
	}
	rs.log.Info("vote resolved", "kind", res.Kind, "tiebreak", res.Tiebreak)
	rs.beginCountdown()
}

func (rs *roomSession) endSession(playerID string) error {
	r, ok := rs.o.rooms.Get(rs.roomID)
	if !ok {
		return room.ErrRoomNotFound
	}
	if r.HostID != playerID {
		return room.ErrNotHost
	}
	if rs.votes == nil {
		return ErrNoSession
	}
	rs.finishSession()
	return nil
}

func (rs *roomSession) finishSession() {
	rs.flow.Clear()
	rs.o.games.EndGame(rs.roomID)

	rankings := rs.votes.Rankings()
	played := rs.votes.GamesPlayed()
	rs.votes.Destroy()
	rs.votes = nil

	r, err := rs.o.rooms.SetStatus(rs.roomID, domain.RoomFinished)
	if err != nil {
		return
	}
	rs.broadcast(EvtSessionEnded, standingsPayload{Rankings: rankings, GamesPlayed: played})
	metrics.SessionsFinished.Inc()
	rs.log.Info("session ended", "games", played)

	result := domain.SessionResult{
		RoomCode:    r.Code,
		GamesPlayed: played,
		StartedAt:   rs.startedAt,
		EndedAt:     rs.o.clock.Now(),
		Players:     make([]domain.SessionPlayer, 0, len(rankings)),
	}
	for _, rk := range rankings {
		sp := domain.SessionPlayer{Name: rk.Name, Score: rk.Score, Rank: rk.Rank}
		if p, ok := r.Player(rk.PlayerID); ok && p.AccountID != nil {
			id := *p.AccountID
			sp.AccountID = &id
		}
		result.Players = append(result.Players, sp)
	}
	rs.o.record(result)
}
