package stock

import (
	"math"
	"strconv"
	"strings"
	"sync"
)

// Update is a single authoritative stock fact for one record.
type Update struct {
	RecordID int
	NewStock int
}

// Handler receives accepted stock updates synchronously.
type Handler func(Update)

type subscriber struct {
	handler Handler
	active  bool
}

// Broadcast fans stock updates out to every live subscriber, in
// subscription order, with no history and no replay. It is the only
// coordination point between views showing the same record.
type Broadcast struct {
	mu   sync.Mutex
	subs []*subscriber
}

func NewBroadcast() *Broadcast {
	return &Broadcast{}
}

// Subscribe registers a handler for every future accepted update and
// returns its unsubscribe function. Unsubscribing stops delivery
// immediately and drops the channel's reference to the handler.
func (b *Broadcast) Subscribe(handler Handler) (unsubscribe func()) {
	if handler == nil {
		return func() {}
	}

	sub := &subscriber{handler: handler, active: true}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			sub.active = false
			sub.handler = nil
			for i, s := range b.subs {
				if s == sub {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Notify publishes a stock fact. Negative values are dropped silently; no
// error is surfaced and nothing is retried.
func (b *Broadcast) Notify(recordID, newStock int) {
	if newStock < 0 {
		return
	}
	b.deliver(Update{RecordID: recordID, NewStock: newStock})
}

// NotifyValue accepts a loosely typed stock value straight off a JSON
// decode. Missing, non-numeric, fractional, or negative values are
// dropped.
func (b *Broadcast) NotifyValue(recordID int, value any) {
	if s, ok := Coerce(value); ok {
		b.Notify(recordID, s)
	}
}

// Coerce normalizes a loosely typed stock value into a whole number.
// Handles the shapes servers send: JSON numbers (float64), numeric
// strings, and native ints; anything else reports false.
func Coerce(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		s, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return s, true
	case *int:
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

// deliver invokes handlers outside the subscriber-list lock so a handler
// may subscribe or unsubscribe during delivery. Liveness is re-checked per
// handler: an unsubscribe that lands mid-fanout suppresses later delivery
// to that handler.
func (b *Broadcast) deliver(update Update) {
	b.mu.Lock()
	snapshot := make([]*subscriber, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.mu.Lock()
		handler := sub.handler
		live := sub.active
		b.mu.Unlock()
		if live && handler != nil {
			handler(update)
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (b *Broadcast) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
