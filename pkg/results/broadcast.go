// Package results fans resolved outcomes out to in-process subscribers.
// Delivery is at-least-once from the subscriber's point of view: a slow
// listener may drop updates, and the archive stays idempotently
// re-queryable for anything missed.
package results

import (
	"context"
	"sync"

	"github.com/Digital-Creators-Team/round-engine/game"
)

const defaultBuffer = 16

// Update is one published result
type Update struct {
	Family      game.Family
	IntervalSec int64 // 0 for the continuous game
	Outcome     *game.Outcome
}

type subscriber struct {
	family      game.Family
	intervalSec int64
	ch          chan *game.Outcome
}

// Broadcaster is a minimal keyed pub/sub for result updates
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]*subscriber),
	}
}

// Publish sends an update to every matching subscriber. Non-blocking:
// a subscriber with a full buffer misses the update rather than stalling
// the clock that published it.
func (b *Broadcaster) Publish(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.family != u.Family || sub.intervalSec != u.IntervalSec {
			continue
		}
		select {
		case sub.ch <- u.Outcome:
		default:
			// drop if the listener is slow; the archive covers the gap
		}
	}
}

// Subscribe returns a channel of outcomes for one clock plus a cancel
// function. The channel closes on cancel or when ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context, family game.Family, intervalSec int64) (<-chan *game.Outcome, context.CancelFunc) {
	sub := &subscriber{
		family:      family,
		intervalSec: intervalSec,
		ch:          make(chan *game.Outcome, defaultBuffer),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	listenerCtx, cancel := context.WithCancel(ctx)
	out := make(chan *game.Outcome, defaultBuffer)

	go func() {
		defer close(out)
		defer func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		}()
		for {
			select {
			case <-listenerCtx.Done():
				return
			case o := <-sub.ch:
				select {
				case out <- o:
				case <-listenerCtx.Done():
					return
				}
			}
		}
	}()

	return out, cancel
}

// Subscribers returns the current subscriber count (for tests and metrics)
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
