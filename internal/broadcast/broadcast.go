package broadcast

import (
	"encoding/json"
	"sync"

	"quickdraw/internal/events"

	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 32

// Broadcaster fans encoded server messages out to the subscribers of one
// room. Slow subscribers lose messages rather than stall the room.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]chan []byte
	room    string
}

func NewBroadcaster(room string) *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan []byte),
		room:    room,
	}
}

// Subscribe registers id and returns the channel its messages arrive on.
// Subscribing an id twice replaces the earlier channel.
func (b *Broadcaster) Subscribe(id string) <-chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	if old, ok := b.clients[id]; ok {
		close(old)
	}
	b.clients[id] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes id and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.clients[id]; ok {
		delete(b.clients, id)
		close(ch)
	}
}

func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish sends msg to every subscriber.
func (b *Broadcaster) Publish(msg events.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("room", b.room).Msg("encoding broadcast")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.clients {
		b.deliver(id, ch, msg.Type, data)
	}
}

// SendTo sends msg to a single subscriber, if present.
func (b *Broadcaster) SendTo(id string, msg events.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("room", b.room).Msg("encoding message")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.clients[id]; ok {
		b.deliver(id, ch, msg.Type, data)
	}
}

func (b *Broadcaster) deliver(id string, ch chan []byte, msgType string, data []byte) {
	select {
	case ch <- data:
	default:
		log.Warn().Str("room", b.room).Str("client", id).Str("type", msgType).Msg("subscriber buffer full, dropping message")
	}
}
