package chat

import (
	"container/list"
	"sync"
)

const defaultAudioPoolSize = 16

// AudioElement is one playable audio handle keyed by turn id.
type AudioElement struct {
	TurnID  string
	URL     string
	Playing bool
}

// AudioRegistry is a bounded pool of per-turn audio elements. Starting one
// turn's audio pauses the currently playing one; least-recently-played
// elements are evicted once the pool is full, so the registry does not grow
// with conversation length.
type AudioRegistry struct {
	mu      sync.Mutex
	max     int
	entries map[string]*list.Element
	order   *list.List // front = most recently played
	current string
}

// NewAudioRegistry builds a registry holding at most max elements.
func NewAudioRegistry(max int) *AudioRegistry {
	if max <= 0 {
		max = defaultAudioPoolSize
	}
	return &AudioRegistry{
		max:     max,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Play registers (or revives) the element for turnID and marks it playing,
// pausing any other element.
func (r *AudioRegistry) Play(turnID, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != "" && r.current != turnID {
		if el, ok := r.entries[r.current]; ok {
			el.Value.(*AudioElement).Playing = false
		}
	}

	el, ok := r.entries[turnID]
	if ok {
		r.order.MoveToFront(el)
		audio := el.Value.(*AudioElement)
		audio.URL = url
		audio.Playing = true
	} else {
		el = r.order.PushFront(&AudioElement{TurnID: turnID, URL: url, Playing: true})
		r.entries[turnID] = el
		r.evictLocked()
	}

	r.current = turnID
}

// Pause stops playback for turnID without discarding the element.
func (r *AudioRegistry) Pause(turnID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.entries[turnID]; ok {
		el.Value.(*AudioElement).Playing = false
	}
	if r.current == turnID {
		r.current = ""
	}
}

// Current returns the element playing right now, if any.
func (r *AudioRegistry) Current() (AudioElement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == "" {
		return AudioElement{}, false
	}
	el, ok := r.entries[r.current]
	if !ok {
		return AudioElement{}, false
	}
	return *el.Value.(*AudioElement), true
}

// Get looks up the element for turnID.
func (r *AudioRegistry) Get(turnID string) (AudioElement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.entries[turnID]
	if !ok {
		return AudioElement{}, false
	}
	return *el.Value.(*AudioElement), true
}

// Len reports how many elements the pool currently holds.
func (r *AudioRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}

// evictLocked drops least-recently-played elements beyond the pool size. The
// playing element is never evicted.
func (r *AudioRegistry) evictLocked() {
	for r.order.Len() > r.max {
		el := r.order.Back()
		if el == nil {
			return
		}
		audio := el.Value.(*AudioElement)
		if audio.Playing {
			r.order.MoveToFront(el)
			continue
		}
		r.order.Remove(el)
		delete(r.entries, audio.TurnID)
	}
}
