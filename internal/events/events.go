// Package events fans draft change notifications out to subscribers such as
// a UI that re-renders whenever the open draft changes.
package events

import (
	"sync"

	"github.com/debemdeboas/postdeck/internal/model"
)

// Event says that the draft changed. It carries no state; subscribers read
// the Store for that.
type Event struct {
	Post    model.PostID
	Dirty   bool
	Version uint64
}

type Subscriber struct {
	C    <-chan Event
	c    chan Event
	post model.PostID
}

type Hub struct {
	subs map[*Subscriber]bool
	mu   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[*Subscriber]bool),
	}
}

// Subscribe registers for events about post, or about every post when post is
// empty. Events that do not fit in buffer are dropped.
func (h *Hub) Subscribe(post model.PostID, buffer int) *Subscriber {
	if buffer < 1 {
		buffer = 1
	}
	c := make(chan Event, buffer)
	s := &Subscriber{C: c, c: c, post: post}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s] = true
	return s
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[s] {
		delete(h.subs, s)
		close(s.c)
	}
}

// Publish never blocks; a subscriber that is behind misses the event.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.post != "" && s.post != e.Post {
			continue
		}
		select {
		case s.c <- e:
		default:
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
