package sched

import (
	"sync/atomic"
	"time"
)

// ID identifies one armed timer. IDs are unique for the life of the process,
// so a late firing can never be mistaken for a timer armed afterwards.
type ID uint64

var lastID atomic.Uint64

func nextID() ID {
	return ID(lastID.Add(1))
}

// Dispatch receives the id of a timer that fell due. It must not touch the
// owning state machine directly; the owner calls Fire from its own goroutine.
type Dispatch func(ID)

type pending struct {
	stop Stopper
	fn   func()
}

// Set holds every timer armed by a single state machine. It is not safe for
// concurrent use: arm, fire and clear from the owner's goroutine only.
type Set struct {
	clock    Clock
	dispatch Dispatch
	timers   map[ID]pending
	closed   bool
}

func NewSet(clock Clock, dispatch Dispatch) *Set {
	if clock == nil {
		clock = RealClock
	}
	return &Set{
		clock:    clock,
		dispatch: dispatch,
		timers:   make(map[ID]pending),
	}
}

func (s *Set) Now() time.Time { return s.clock.Now() }

// After arms a one-shot timer that runs fn once d has elapsed.
func (s *Set) After(d time.Duration, fn func()) ID {
	if s.closed {
		return 0
	}
	if d < 0 {
		d = 0
	}
	id := nextID()
	stop := s.clock.AfterFunc(d, func() {
		if s.dispatch != nil {
			s.dispatch(id)
		}
	})
	s.timers[id] = pending{stop: stop, fn: fn}
	return id
}

// Fire runs the callback registered under id. Unknown or cleared ids are
// ignored and reported as false.
func (s *Set) Fire(id ID) bool {
	if s.closed {
		return false
	}
	p, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	p.fn()
	return true
}

// Cancel disarms one timer and reports whether it was still armed.
func (s *Set) Cancel(id ID) bool {
	p, ok := s.timers[id]
	if !ok {
		return false
	}
	p.stop.Stop()
	delete(s.timers, id)
	return true
}

// Clear cancels every armed timer.
func (s *Set) Clear() {
	for id, p := range s.timers {
		p.stop.Stop()
		delete(s.timers, id)
	}
}

// Close clears the set and refuses any further timers.
func (s *Set) Close() {
	s.Clear()
	s.closed = true
}

func (s *Set) Len() int { return len(s.timers) }

// Countdown tracks a 1-second ticking deadline.
type Countdown struct {
	left int
}

// Left returns the whole seconds remaining.
func (c *Countdown) Left() int {
	if c == nil {
		return 0
	}
	return c.left
}

// Countdown ticks once per second with the seconds remaining and calls expire
// when it reaches zero. Clearing the set stops the countdown.
func (s *Set) Countdown(seconds int, tick func(left int), expire func()) *Countdown {
	cd := &Countdown{left: seconds}
	if seconds <= 0 {
		s.After(0, expire)
		return cd
	}
	var step func()
	step = func() {
		cd.left--
		if cd.left <= 0 {
			expire()
			return
		}
		if tick != nil {
			tick(cd.left)
		}
		s.After(time.Second, step)
	}
	s.After(time.Second, step)
	return cd
}
