package transportsvc

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/collab"
)

var errChannelClosed = errors.New("channel closed")

type (
	// MemBroker is an in-process pub/sub backend used in tests and local
	// development. Delivery is synchronous and excludes the sender, matching
	// the production broker's client-event semantics.
	MemBroker struct {
		mu     sync.RWMutex
		topics map[string][]*memChannel
	}

	memChannel struct {
		broker   *MemBroker
		key      string
		identity collab.Identity

		mu     sync.RWMutex
		onMsg  collab.MessageHandler
		onPres collab.PresenceHandler
		closed bool
	}
)

var _ collab.Connector = (*MemBroker)(nil)

func NewMemBroker() *MemBroker {
	return &MemBroker{topics: make(map[string][]*memChannel)}
}

func (b *MemBroker) Connect(_ context.Context, key string, identity collab.Identity) (collab.Channel, error) {
	ch := &memChannel{broker: b, key: key, identity: identity}

	b.mu.Lock()
	peers := append([]*memChannel(nil), b.topics[key]...)
	b.topics[key] = append(b.topics[key], ch)
	b.mu.Unlock()

	// transport presence is an opaque signal; display info travels in the
	// user_join broadcast
	for _, peer := range peers {
		peer.deliverPresence(collab.PresenceEvent{Kind: collab.PresenceJoin, User: collab.Identity{ID: identity.ID}})
	}
	return ch, nil
}

func (b *MemBroker) remove(ch *memChannel) {
	b.mu.Lock()
	subs := b.topics[ch.key]
	for i, sub := range subs {
		if sub == ch {
			b.topics[ch.key] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	peers := append([]*memChannel(nil), b.topics[ch.key]...)
	b.mu.Unlock()

	for _, peer := range peers {
		peer.deliverPresence(collab.PresenceEvent{Kind: collab.PresenceLeave, User: collab.Identity{ID: ch.identity.ID}})
	}
}

func (b *MemBroker) fanOut(sender *memChannel, data []byte) {
	b.mu.RLock()
	peers := append([]*memChannel(nil), b.topics[sender.key]...)
	b.mu.RUnlock()

	for _, peer := range peers {
		if peer == sender {
			continue
		}
		peer.deliver(data)
	}
}

func (ch *memChannel) Key() string { return ch.key }

func (ch *memChannel) Publish(_ context.Context, msg collab.Message) error {
	ch.mu.RLock()
	closed := ch.closed
	ch.mu.RUnlock()
	if closed {
		return &collab.PublishError{Key: ch.key, Err: errChannelClosed}
	}
	data, err := collab.EncodeMessage(msg)
	if err != nil {
		return &collab.PublishError{Key: ch.key, Err: err}
	}
	ch.broker.fanOut(ch, data)
	return nil
}

func (ch *memChannel) OnMessage(h collab.MessageHandler) {
	ch.mu.Lock()
	ch.onMsg = h
	ch.mu.Unlock()
}

func (ch *memChannel) OnPresence(h collab.PresenceHandler) {
	ch.mu.Lock()
	ch.onPres = h
	ch.mu.Unlock()
}

func (ch *memChannel) Close() error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil
	}
	ch.closed = true
	ch.mu.Unlock()

	ch.broker.remove(ch)
	return nil
}

func (ch *memChannel) deliver(data []byte) {
	ch.mu.RLock()
	h := ch.onMsg
	closed := ch.closed
	ch.mu.RUnlock()
	if h != nil && !closed {
		h(data)
	}
}

func (ch *memChannel) deliverPresence(evt collab.PresenceEvent) {
	ch.mu.RLock()
	h := ch.onPres
	closed := ch.closed
	ch.mu.RUnlock()
	if h != nil && !closed {
		h(evt)
	}
}
