package report

import (
	"log"
	"sync"

	"github.com/reny1cao/crypto-insights/internal/types"
)

const subscriberBuffer = 256

// EventBroker fans published snapshots out to the watchers of a date.
type EventBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan *types.ProcessState
}

func NewEventBroker() *EventBroker {
	return &EventBroker{subs: make(map[string]map[int]chan *types.ProcessState)}
}

// Subscribe registers a watcher for date. The returned cancel func
// unregisters it and closes the channel.
func (b *EventBroker) Subscribe(date string) (<-chan *types.ProcessState, func()) {
	ch := make(chan *types.ProcessState, subscriberBuffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[date] == nil {
		b.subs[date] = make(map[int]chan *types.ProcessState)
	}
	b.subs[date][id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[date], id)
			if len(b.subs[date]) == 0 {
				delete(b.subs, date)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers a copy of st to every watcher of its date. A watcher
// whose buffer is full misses the update.
func (b *EventBroker) Publish(st *types.ProcessState) {
	if st == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs[st.Date] {
		select {
		case ch <- st.Clone():
		default:
			log.Printf("report: watcher %d for %s is behind, dropping %s update", id, st.Date, st.Stage)
		}
	}
}

// Watchers reports how many subscriptions are open for date.
func (b *EventBroker) Watchers(date string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[date])
}
