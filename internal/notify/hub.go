// Package notify fans discovery changes out to in-process subscribers and
// external publishers.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jengzang/fog-backend-go/internal/logger"
)

// Kind of change
type Kind string

const (
	KindInsert  Kind = "insert"
	KindRefresh Kind = "refresh"
	KindClear   Kind = "clear"
)

// Change describes one committed store mutation
type Change struct {
	Kind Kind `json:"kind"`

	// Tokens of the instance cells whose data changed, empty for clear and refresh
	Instances []string `json:"instances,omitempty"`

	Area float64   `json:"area"` // square meters discovered by the change
	Time time.Time `json:"time"`
}

// Publisher delivers changes somewhere
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Hub is a Publisher that forwards to subscriber channels and to other publishers
type Hub struct {
	mu         sync.RWMutex
	subs       map[int]chan Change
	next       int
	publishers []Publisher
}

// NewHub creates a hub forwarding to publishers
func NewHub(publishers ...Publisher) *Hub {
	return &Hub{
		subs:       make(map[int]chan Change),
		publishers: publishers,
	}
}

// Subscribe returns a channel receiving every change and a function that
// cancels the subscription. A subscriber that falls more than buffer changes
// behind misses changes.
func (h *Hub) Subscribe(buffer int) (<-chan Change, func()) {
	ch := make(chan Change, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish implements Publisher
func (h *Hub) Publish(ctx context.Context, change Change) error {
	if h == nil {
		return nil
	}
	if change.Time.IsZero() {
		change.Time = time.Now()
	}

	h.mu.RLock()
	for _, ch := range h.subs {
		select {
		case ch <- change:
		default:
			logger.S().Warnf("[Notify] subscriber is full, dropping %s change", change.Kind)
		}
	}
	h.mu.RUnlock()

	var errs []error
	for _, p := range h.publishers {
		if err := p.Publish(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
