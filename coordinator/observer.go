package coordinator

import (
	"sync"

	"github.com/rs/zerolog"
)

// Observer receives the Coordinator's event stream. Grounded on the
// teacher's internal/infrastructure/monitoring.ObserverManager, adapted
// from a synchronous Notify-method interface to a channel so delivery can
// be non-blocking per SPEC_FULL §5's backpressure policy.
type Observer struct {
	id     uint64
	events chan Event
}

func (o *Observer) Events() <-chan Event { return o.events }

// ObserverManager fans an event stream out to all subscribed observers.
// Modeled on the teacher's internal/infrastructure/websocket.Hub
// broadcast pattern: a bounded per-observer channel with a non-blocking,
// drop-on-full send, so one slow observer never slows execution.
type ObserverManager struct {
	mu        sync.RWMutex
	observers map[uint64]*Observer
	nextID    uint64
	log       zerolog.Logger
}

func NewObserverManager(log zerolog.Logger) *ObserverManager {
	return &ObserverManager{
		observers: make(map[uint64]*Observer),
		log:       log.With().Str("component", "observer_manager").Logger(),
	}
}

// Subscribe registers a new observer with a bounded event buffer.
func (m *ObserverManager) Subscribe() *Observer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	o := &Observer{id: m.nextID, events: make(chan Event, 128)}
	m.observers[o.id] = o
	return o
}

// Unsubscribe removes an observer and closes its channel.
func (m *ObserverManager) Unsubscribe(o *Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.observers[o.id]; ok {
		delete(m.observers, o.id)
		close(o.events)
	}
}

// Publish fans out ev to every subscribed observer without blocking; an
// observer whose buffer is full has this event dropped. Every event kind is
// treated alike, so a terminal cell_status event can be dropped too.
func (m *ObserverManager) Publish(ev Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.observers {
		select {
		case o.events <- ev:
		default:
			m.log.Warn().Str("kind", string(ev.Kind)).Str("cell", string(ev.CellID)).Msg("observer buffer full, dropping event")
		}
	}
}
