package collab

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core"
)

// Channel kinds: each collaboration channel is keyed by its owning entity.
const (
	KindLesson  = "lesson"
	KindMeeting = "meeting"
)

// Presence event kinds
const (
	PresenceJoin  = "join"
	PresenceLeave = "leave"
)

type (
	// PresenceEvent is a transport-level join/leave signal. It may carry only
	// an opaque user id; display info arrives via the user_join broadcast.
	PresenceEvent struct {
		Kind string   `json:"kind"`
		User Identity `json:"user"`
	}

	MessageHandler  func(data []byte)
	PresenceHandler func(evt PresenceEvent)

	// Channel is a live named pub/sub topic. Registering a handler replaces
	// any previous one, so a message is never delivered twice.
	Channel interface {
		Key() string
		Publish(ctx context.Context, msg Message) error
		OnMessage(h MessageHandler)
		OnPresence(h PresenceHandler)
		// Close is idempotent and safe to call multiple times.
		Close() error
	}

	// Connector opens channels on some pub/sub backend. Implementations live
	// under services/transport.
	Connector interface {
		Connect(ctx context.Context, key string, identity Identity) (Channel, error)
	}
)

// ChannelKey derives the deterministic channel key for an entity, so all
// participants viewing the same entity converge on the same channel without a
// discovery step.
func ChannelKey(kind, id string) string {
	return core.Conf.Collab.ChannelPrefix + "." + kind + "." + id
}

// ConnectionError reports a failed channel join handshake. Non-fatal: the
// session remains usable in local-only mode.
type ConnectionError struct {
	Key string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to channel %s: %v", e.Key, e.Err)
}

func (e *ConnectionError) Cause() error { return e.Err }

// PublishError reports a local mutation that could not be broadcast. Local
// state is not rolled back; callers log and move on.
type PublishError struct {
	Key string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing on channel %s: %v", e.Key, e.Err)
}

func (e *PublishError) Cause() error { return e.Err }

// MalformedMessageError reports an unparseable or unknown-type inbound
// message. Dropped and logged, never propagated.
type MalformedMessageError struct {
	Reason string
	Err    error
}

func (e *MalformedMessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *MalformedMessageError) Cause() error { return e.Err }
