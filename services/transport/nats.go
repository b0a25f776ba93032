package transportsvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/collab"
)

const originHeader = "Darasa-Origin"

type (
	// NATSConnector opens collaboration channels backed by NATS subjects:
	// <key>.messages for wire messages and <key>.presence for join/leave
	// events. Frames carry an origin header so a channel never receives its
	// own publishes.
	NATSConnector struct {
		nc     *nats.Conn
		logger core.Logger
	}

	natsChannel struct {
		nc       *nats.Conn
		key      string
		origin   string
		identity collab.Identity

		mu      sync.Mutex
		onMsg   collab.MessageHandler
		onPres  collab.PresenceHandler
		msgSub  *nats.Subscription
		presSub *nats.Subscription
		closed  bool
	}
)

var _ collab.Connector = (*NATSConnector)(nil)

func NewNATSConnector(conf *core.Config, logger core.Logger) (*NATSConnector, error) {
	nc, err := nats.Connect(conf.NATS.URL,
		nats.Name(conf.NATS.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to NATS")
	}
	return &NATSConnector{nc: nc, logger: logger}, nil
}

func (c *NATSConnector) Close() {
	c.nc.Drain()
}

func (c *NATSConnector) Connect(_ context.Context, key string, identity collab.Identity) (collab.Channel, error) {
	ch := &natsChannel{
		nc:       c.nc,
		key:      key,
		origin:   nats.NewInbox(), // unique per channel instance
		identity: identity,
	}

	msgSub, err := c.nc.Subscribe(key+".messages", func(m *nats.Msg) {
		if m.Header.Get(originHeader) == ch.origin {
			return
		}
		ch.mu.Lock()
		h := ch.onMsg
		ch.mu.Unlock()
		if h != nil {
			h(m.Data)
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "subscribing to "+key+".messages")
	}

	presSub, err := c.nc.Subscribe(key+".presence", func(m *nats.Msg) {
		if m.Header.Get(originHeader) == ch.origin {
			return
		}
		var evt collab.PresenceEvent
		if err := json.Unmarshal(m.Data, &evt); err != nil {
			c.logger.Warn("dropping malformed presence event on "+key, err)
			return
		}
		ch.mu.Lock()
		h := ch.onPres
		ch.mu.Unlock()
		if h != nil {
			h(evt)
		}
	})
	if err != nil {
		_ = msgSub.Unsubscribe()
		return nil, errors.Wrap(err, "subscribing to "+key+".presence")
	}

	ch.msgSub = msgSub
	ch.presSub = presSub
	ch.publishPresence(collab.PresenceJoin)
	return ch, nil
}

func (ch *natsChannel) Key() string { return ch.key }

func (ch *natsChannel) Publish(_ context.Context, msg collab.Message) error {
	ch.mu.Lock()
	closed := ch.closed
	ch.mu.Unlock()
	if closed {
		return &collab.PublishError{Key: ch.key, Err: errChannelClosed}
	}
	data, err := collab.EncodeMessage(msg)
	if err != nil {
		return &collab.PublishError{Key: ch.key, Err: err}
	}
	if err := ch.publishRaw(ch.key+".messages", data); err != nil {
		return &collab.PublishError{Key: ch.key, Err: err}
	}
	return nil
}

func (ch *natsChannel) OnMessage(h collab.MessageHandler) {
	ch.mu.Lock()
	ch.onMsg = h
	ch.mu.Unlock()
}

func (ch *natsChannel) OnPresence(h collab.PresenceHandler) {
	ch.mu.Lock()
	ch.onPres = h
	ch.mu.Unlock()
}

func (ch *natsChannel) Close() error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil
	}
	ch.closed = true
	msgSub, presSub := ch.msgSub, ch.presSub
	ch.mu.Unlock()

	ch.publishPresence(collab.PresenceLeave)
	if msgSub != nil {
		_ = msgSub.Unsubscribe()
	}
	if presSub != nil {
		_ = presSub.Unsubscribe()
	}
	return nil
}

// publishPresence emits an id-only signal; display info travels in the
// user_join broadcast.
func (ch *natsChannel) publishPresence(kind string) {
	data, err := json.Marshal(collab.PresenceEvent{Kind: kind, User: collab.Identity{ID: ch.identity.ID}})
	if err != nil {
		return
	}
	_ = ch.publishRaw(ch.key+".presence", data)
}

func (ch *natsChannel) publishRaw(subject string, data []byte) error {
	msg := nats.NewMsg(subject)
	msg.Header.Set(originHeader, ch.origin)
	msg.Data = data
	return ch.nc.PublishMsg(msg)
}
