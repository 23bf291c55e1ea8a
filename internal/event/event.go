package event

// Event is an outbound notification produced by a room state machine.
// An empty To means the event is broadcast to the whole room.
type Event struct {
	Name    string `json:"type"`
	To      string `json:"-"`
	Payload any    `json:"payload,omitempty"`
}

// Outbox buffers events until the room actor drains them.
type Outbox struct {
	events []Event
	closed bool
}

func (o *Outbox) Emit(name string, payload any) {
	if o.closed {
		return
	}
	o.events = append(o.events, Event{Name: name, Payload: payload})
}

// EmitTo queues an event for a single player.
func (o *Outbox) EmitTo(playerID, name string, payload any) {
	if o.closed {
		return
	}
	o.events = append(o.events, Event{Name: name, To: playerID, Payload: payload})
}

// Drain returns queued events in emission order and empties the outbox.
func (o *Outbox) Drain() []Event {
	if len(o.events) == 0 {
		return nil
	}
	out := o.events
	o.events = nil
	return out
}

// Close discards pending events and drops everything emitted afterwards.
func (o *Outbox) Close() {
	o.closed = true
	o.events = nil
}
