package session

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/phash/playtogether-sub000/internal/content"
	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/game"
	"github.com/phash/playtogether-sub000/internal/logger"
	"github.com/phash/playtogether-sub000/internal/room"
	"github.com/phash/playtogether-sub000/internal/sched"
)

// Conn is one client connection as seen by the orchestrator.
type Conn interface {
	ID() string
	// Send queues an encoded frame. It must not block.
	Send(msg []byte)
}

// Recorder persists finished sessions.
type Recorder interface {
	RecordSession(ctx context.Context, result domain.SessionResult) error
}

type Config struct {
	Grace          time.Duration
	StartCountdown int
	ResultsPause   time.Duration
	VoteSeconds    int
	IdleTimeout    time.Duration
	SweepSchedule  string
	RecordTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Grace:          30 * time.Second,
		StartCountdown: 3,
		ResultsPause:   5 * time.Second,
		VoteSeconds:    15,
		IdleTimeout:    time.Hour,
		SweepSchedule:  "@every 5m",
		RecordTimeout:  5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Grace <= 0 {
		c.Grace = d.Grace
	}
	if c.StartCountdown <= 0 {
		c.StartCountdown = d.StartCountdown
	}
	if c.ResultsPause <= 0 {
		c.ResultsPause = d.ResultsPause
	}
	if c.VoteSeconds <= 0 {
		c.VoteSeconds = d.VoteSeconds
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = d.SweepSchedule
	}
	if c.RecordTimeout <= 0 {
		c.RecordTimeout = d.RecordTimeout
	}
	return c
}

type Option func(*Orchestrator)

func WithClock(c sched.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithContent(c *content.Catalog) Option {
	return func(o *Orchestrator) { o.content = c }
}

// WithSeed fixes the random source handed to each room.
func WithSeed(seed func() int64) Option {
	return func(o *Orchestrator) { o.seed = seed }
}

type binding struct {
	conn      Conn
	roomID    string
	playerID  string
	accountID *int64
}

// Orchestrator routes client messages to per-room actors and owns the
// registries they share.
type Orchestrator struct {
	cfg      Config
	rooms    *room.Manager
	games    *game.Manager
	clock    sched.Clock
	content  *content.Catalog
	recorder Recorder
	seed     func() int64

	mu       sync.Mutex
	actors   map[string]*roomSession
	bindings map[string]*binding

	cron    *cron.Cron
	actorWG sync.WaitGroup
	recWG   sync.WaitGroup
}

func New(cfg Config, rooms *room.Manager, games *game.Manager, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg.withDefaults(),
		rooms:    rooms,
		games:    games,
		clock:    sched.RealClock,
		seed:     func() int64 { return time.Now().UnixNano() },
		actors:   make(map[string]*roomSession),
		bindings: make(map[string]*binding),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rooms == nil {
		o.rooms = room.NewManager(room.WithClock(o.clock.Now))
	}
	if o.games == nil {
		o.games = game.NewManager(nil)
	}
	if o.content == nil {
		o.content = content.MustLoad()
	}
	return o
}

func (o *Orchestrator) Rooms() *room.Manager { return o.rooms }

// Connect registers a connection. accountID is set when the client
// authenticated with a token.
func (o *Orchestrator) Connect(c Conn, accountID *int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bindings[c.ID()] = &binding{conn: c, accountID: accountID}
}

// Disconnect forgets a connection. A seated player gets a grace period to
// reconnect.
func (o *Orchestrator) Disconnect(c Conn) {
	o.mu.Lock()
	b, ok := o.bindings[c.ID()]
	delete(o.bindings, c.ID())
	o.mu.Unlock()
	if !ok || b.roomID == "" {
		return
	}
	if rs := o.actor(b.roomID); rs != nil {
		rs.send(connClosed{connID: c.ID(), playerID: b.playerID})
	}
}

var roomMessages = map[string]bool{
	MsgLeaveRoom:      true,
	MsgSetReady:       true,
	MsgStartGame:      true,
	MsgGameAction:     true,
	MsgUpdateSettings: true,
	MsgUpdatePlaylist: true,
	MsgCastVote:       true,
	MsgEndSession:     true,
}

// HandleMessage decodes one frame from c and routes it. Errors go back to c
// only.
func (o *Orchestrator) HandleMessage(c Conn, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		c.Send(ErrorFrame(ErrInvalidMessage))
		return
	}

	var err error
	switch env.Type {
	case MsgPing:
		c.Send(Frame(EvtPong, nil))
	case MsgCreateRoom:
		err = o.createRoom(c, env.Payload)
	case MsgJoinRoom:
		err = o.joinRoom(c, env.Payload, bindJoin)
	case MsgReconnect:
		err = o.joinRoom(c, env.Payload, bindReconnect)
	default:
		if !roomMessages[env.Type] {
			err = ErrInvalidMessage
			break
		}
		err = o.route(c, env)
	}
	if err != nil {
		c.Send(ErrorFrame(err))
	}
}

func (o *Orchestrator) route(c Conn, env Envelope) error {
	b := o.binding(c)
	if b.roomID == "" {
		return ErrNotInRoom
	}
	rs := o.actor(b.roomID)
	if rs == nil || !rs.send(clientMessage{conn: c, playerID: b.playerID, env: env}) {
		o.unbind(c.ID())
		return ErrNotInRoom
	}
	return nil
}

func (o *Orchestrator) createRoom(c Conn, raw json.RawMessage) error {
	b := o.binding(c)
	if b.roomID != "" {
		return ErrAlreadyInRoom
	}
	var p createRoomPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	r, player, err := o.rooms.CreateRoom(p.Name, p.MaxPlayers, p.GameKind)
	if err != nil {
		return err
	}
	rs := o.spawn(r)
	o.attach(c, r.ID, player.ID)
	rs.send(bindRequest{conn: c, playerID: player.ID, accountID: b.accountID, mode: bindCreate})
	logger.Room(r.Code).Info("room created", "host", player.Name)
	return nil
}

func (o *Orchestrator) joinRoom(c Conn, raw json.RawMessage, mode bindMode) error {
	b := o.binding(c)
	if b.roomID != "" {
		return ErrAlreadyInRoom
	}
	var p joinRoomPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}

	var (
		r      room.Room
		player room.Player
		err    error
	)
	if mode == bindReconnect {
		r, player, err = o.rooms.Reconnect(p.Code, p.Name)
	} else {
		r, player, err = o.rooms.JoinRoom(p.Code, p.Name)
	}
	if err != nil {
		return err
	}

	rs := o.actor(r.ID)
	if rs == nil {
		return room.ErrRoomNotFound
	}
	if mode == bindReconnect {
		if !o.claim(c, r.ID, player.ID) {
			return room.ErrNameTaken
		}
	} else {
		o.attach(c, r.ID, player.ID)
	}
	if !rs.send(bindRequest{conn: c, playerID: player.ID, accountID: b.accountID, mode: mode}) {
		o.unbind(c.ID())
		return room.ErrRoomNotFound
	}
	return nil
}

func (o *Orchestrator) binding(c Conn) binding {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.bindings[c.ID()]
	if !ok {
		b = &binding{conn: c}
		o.bindings[c.ID()] = b
	}
	return *b
}

func (o *Orchestrator) attach(c Conn, roomID, playerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.bindings[c.ID()]
	if !ok {
		b = &binding{conn: c}
		o.bindings[c.ID()] = b
	}
	b.roomID = roomID
	b.playerID = playerID
}

// claim binds c to a seat unless another live connection still holds it.
// A closed socket is dropped from bindings before its room hears about it,
// so a quick reconnect after a drop succeeds.
func (o *Orchestrator) claim(c Conn, roomID, playerID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, b := range o.bindings {
		if id != c.ID() && b.roomID == roomID && b.playerID == playerID {
			return false
		}
	}
	b, ok := o.bindings[c.ID()]
	if !ok {
		b = &binding{conn: c}
		o.bindings[c.ID()] = b
	}
	b.roomID = roomID
	b.playerID = playerID
	return true
}

// unbind detaches a connection from its room but keeps it registered.
func (o *Orchestrator) unbind(connID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if b, ok := o.bindings[connID]; ok {
		b.roomID = ""
		b.playerID = ""
	}
}

func (o *Orchestrator) spawn(r room.Room) *roomSession {
	rs := newRoomSession(o, r, rand.New(rand.NewSource(o.seed())))
	o.mu.Lock()
	o.actors[r.ID] = rs
	o.mu.Unlock()
	o.actorWG.Add(1)
	go rs.run()
	return rs
}

func (o *Orchestrator) actor(roomID string) *roomSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.actors[roomID]
}

func (o *Orchestrator) removeActor(roomID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.actors, roomID)
}

func (o *Orchestrator) actorList() []*roomSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*roomSession, 0, len(o.actors))
	for _, rs := range o.actors {
		out = append(out, rs)
	}
	return out
}

// ActiveRooms reports how many room actors are running.
func (o *Orchestrator) ActiveRooms() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.actors)
}

// Sync blocks until the room's actor has handled everything queued before
// the call. It returns at once if the room is gone.
func (o *Orchestrator) Sync(roomID string) {
	if rs := o.actor(roomID); rs != nil {
		rs.sync()
	}
}

func (o *Orchestrator) SyncAll() {
	for _, rs := range o.actorList() {
		rs.sync()
	}
}

// SweepIdle closes rooms that sat between sessions longer than the idle
// timeout. It returns how many were closed.
func (o *Orchestrator) SweepIdle() int {
	n := 0
	for _, r := range o.rooms.IdleRooms(o.cfg.IdleTimeout) {
		rs := o.actor(r.ID)
		if rs != nil && rs.send(closeRoom{reason: "idle"}) {
			n++
			continue
		}
		o.rooms.Delete(r.ID)
		n++
	}
	if n > 0 {
		logger.Info("idle rooms swept", "count", n)
	}
	return n
}

// StartSweeper schedules SweepIdle.
func (o *Orchestrator) StartSweeper() error {
	c := cron.New()
	if _, err := c.AddFunc(o.cfg.SweepSchedule, func() { o.SweepIdle() }); err != nil {
		return err
	}
	o.cron = c
	c.Start()
	return nil
}

// Shutdown closes every room and waits for actors and pending session
// records, or for ctx to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	if o.cron != nil {
		<-o.cron.Stop().Done()
	}
	for _, rs := range o.actorList() {
		rs.send(closeRoom{reason: "shutdown"})
	}

	done := make(chan struct{})
	go func() {
		o.actorWG.Wait()
		o.recWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// record hands a finished session to the recorder off the actor goroutine.
func (o *Orchestrator) record(result domain.SessionResult) {
	if o.recorder == nil {
		return
	}
	o.recWG.Add(1)
	go func() {
		defer o.recWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.RecordTimeout)
		defer cancel()
		if err := o.recorder.RecordSession(ctx, result); err != nil {
			logger.Room(result.RoomCode).Error("record session", "error", err)
		}
	}()
}
