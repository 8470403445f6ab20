package handle

import (
	"sync"

	"go.uber.org/zap"
)

// EventType is a handle lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDestroyed
	EventDestroyRefused
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDestroyed:
		return "destroyed"
	case EventDestroyRefused:
		return "destroy_refused"
	}
	return "unknown"
}

// Event describes a lifecycle change of a tracked object. Count is the
// observed reference count for EventDestroyRefused.
type Event struct {
	ObjectType string
	Handle     Handle
	Count      int64
	Type       EventType
	Owned      bool
}

// Observer receives lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Entry is a live tracked object.
type Entry struct {
	ObjectType string
	Handle     Handle
	Count      int64
	Owned      bool
}

// Tracker records live objects and notifies observers of their lifecycle.
// Objects opt in through Options.Tracker.
type Tracker struct {
	entries   []*state
	freeList  []uint32
	observers []Observer
	live      int
	mu        sync.RWMutex
	obsMu     sync.RWMutex
}

func NewTracker() *Tracker {
	return &Tracker{
		entries:  make([]*state, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

func (t *Tracker) add(st *state) uint32 {
	t.mu.Lock()
	var id uint32
	if n := len(t.freeList); n > 0 {
		id = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[id-1] = st
	} else {
		t.entries = append(t.entries, st)
		id = uint32(len(t.entries))
	}
	t.live++
	t.mu.Unlock()

	t.notify(Event{
		Type:       EventCreated,
		Handle:     st.handle,
		ObjectType: st.objectType,
		Count:      1,
		Owned:      st.owns,
	})
	return id
}

func (t *Tracker) remove(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id == 0 || int(id) > len(t.entries) || t.entries[id-1] == nil {
		return
	}
	t.entries[id-1] = nil
	t.freeList = append(t.freeList, id)
	t.live--
}

// Len returns the number of live tracked objects.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Live returns a snapshot of the live tracked objects in creation-slot order.
func (t *Tracker) Live() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0, t.live)
	for _, st := range t.entries {
		if st == nil {
			continue
		}
		out = append(out, Entry{
			ObjectType: st.objectType,
			Handle:     st.handle,
			Count:      st.count.Load(),
			Owned:      st.owns,
		})
	}
	return out
}

// Subscribe adds an observer for lifecycle events.
func (t *Tracker) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Tracker) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Tracker) notify(e Event) {
	t.obsMu.RLock()
	observers := t.observers
	t.obsMu.RUnlock()

	for _, o := range observers {
		o.OnHandleEvent(e)
	}
}

// LogObserver logs lifecycle events at debug level.
type LogObserver struct {
	Logger *zap.Logger
}

func (o *LogObserver) OnHandleEvent(e Event) {
	l := o.Logger
	if l == nil {
		l = Logger()
	}
	fields := []zap.Field{
		zap.String("type", e.ObjectType),
		zap.Stringer("handle", e.Handle),
		zap.Bool("owned", e.Owned),
	}
	if e.Type == EventDestroyRefused {
		l.Debug("destroy refused", append(fields, zap.Int64("count", e.Count))...)
		return
	}
	l.Debug("handle "+e.Type.String(), fields...)
}
