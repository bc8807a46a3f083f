package tictactoe

import "github.com/rocketscienceinc/tictactoe-engine/internal/entity"

type EventKind string

const (
	EventFirstMoverChosen EventKind = "first_mover_chosen"
	EventMoveApplied      EventKind = "move_applied"
	EventRoundFinished    EventKind = "round_finished"
	EventRoundReset       EventKind = "round_reset"
)

// Event is delivered to listeners after the operation that produced it completes.
type Event struct {
	Kind  EventKind       `json:"kind"`
	Mark  entity.Mark     `json:"mark,omitempty"`
	Cell  *int            `json:"cell,omitempty"`
	State entity.Snapshot `json:"state"`
}

type Listener func(event Event)

// Subscribe registers listener and returns a function that removes it.
func (that *Engine) Subscribe(listener Listener) func() {
	that.listenersMu.Lock()
	defer that.listenersMu.Unlock()

	id := that.nextListenerID
	that.nextListenerID++
	that.listeners[id] = listener

	return func() {
		that.listenersMu.Lock()
		defer that.listenersMu.Unlock()

		delete(that.listeners, id)
	}
}

func (that *Engine) emit(kind EventKind, mark entity.Mark, cell int) {
	event := Event{
		Kind:  kind,
		Mark:  mark,
		State: that.snapshot(),
	}

	if kind == EventMoveApplied {
		event.Cell = &cell
	}

	that.pending = append(that.pending, event)
}

func (that *Engine) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}

	that.listenersMu.Lock()
	listeners := make([]Listener, 0, len(that.listeners))
	for id := 0; id < that.nextListenerID; id++ {
		if listener, ok := that.listeners[id]; ok {
			listeners = append(listeners, listener)
		}
	}
	that.listenersMu.Unlock()

	for _, event := range events {
		for _, listener := range listeners {
			listener(event)
		}
	}
}
