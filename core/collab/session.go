package collab

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// Session states
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

var ErrReconnectDisabled = errors.New("automatic reconnection is disabled")

type (
	Options struct {
		Connector Connector
		Logger    core.Logger
		Identity  Identity
		Key       string // channel key, see ChannelKey
		Notify    Notifier
		Reorder   ReorderPolicy // defaults to LastWriterWins
		OnChange  func()        // optional UI refresh hook
		OnRemote  func(data []byte)
	}

	SessionStats struct {
		DroppedPublishes uint64
		DroppedMessages  uint64
	}

	// Session orchestrates one collaboration channel:
	// connect -> join-announce -> listen -> teardown. It is the only
	// component with a lifecycle state machine, and it owns the deck replica
	// exclusively; replicas are never shared across sessions.
	Session struct {
		opts   Options
		deck   *DeckStore
		agenda *AgendaStore
		roster *Tracker
		disp   *Dispatcher

		mu      sync.Mutex
		state   State
		channel Channel

		droppedPublishes uint64
	}
)

func NewSession(opts Options) *Session {
	s := &Session{
		opts:   opts,
		deck:   NewDeckStore(opts.Reorder, opts.OnChange),
		agenda: NewAgendaStore(),
		roster: NewTracker(opts.Identity.ID),
		state:  StateDisconnected,
	}
	s.disp = NewDispatcher(s.deck, s.agenda, s.roster, opts.Logger, opts.Notify)
	s.disp.tap = opts.OnRemote
	// Announcements only reach peers already connected, so on seeing a new
	// peer each session re-announces itself, notice-free. The exchange
	// terminates because only a NEW roster entry triggers it.
	s.disp.onPeerJoin = func() {
		s.publish(context.Background(), &UserJoinMessage{
			UserID: s.opts.Identity.ID,
			User:   s.opts.Identity,
		})
	}
	s.disp.onAgendaRequest = func() {
		s.publish(context.Background(), &AgendaItemsMoveMessage{
			UserID: s.opts.Identity.ID,
			Items:  s.agenda.Items(),
		})
	}
	return s
}

func (s *Session) Deck() *DeckStore     { return s.deck }
func (s *Session) Agenda() *AgendaStore { return s.agenda }
func (s *Session) Roster() *Tracker     { return s.roster }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Stats() SessionStats {
	return SessionStats{
		DroppedPublishes: atomic.LoadUint64(&s.droppedPublishes),
		DroppedMessages:  s.disp.Dropped(),
	}
}

// Start connects the channel, registers the dispatcher as both message and
// presence handler, and announces the local user. A failed join handshake
// returns a *ConnectionError and leaves the session usable in local-only
// mode. Starting a connected session is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.mu.Unlock()

	ch, err := s.opts.Connector.Connect(ctx, s.opts.Key, s.opts.Identity)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return &ConnectionError{Key: s.opts.Key, Err: err}
	}

	ch.OnMessage(s.disp.Dispatch)
	ch.OnPresence(s.disp.HandlePresence)

	s.mu.Lock()
	s.channel = ch
	s.state = StateConnected
	s.mu.Unlock()

	s.roster.Join(s.opts.Identity)
	s.publish(ctx, &UserJoinMessage{
		UserID: s.opts.Identity.ID,
		User:   s.opts.Identity,
		Notice: s.opts.Identity.Name + " joined",
	})
	return nil
}

// Close tears the session down: handlers are detached before the channel is
// closed so no message can fire against a torn-down replica. Safe to call
// multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	ch := s.channel
	s.channel = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if ch == nil {
		return nil
	}
	ch.OnMessage(nil)
	ch.OnPresence(nil)
	return ch.Close()
}

// Reconnect tears down and rejoins the channel, re-announcing the local user.
// Gated behind the collabAutoReconnect flag: a dropped connection is not
// retried automatically, and nothing calls this on the session's behalf.
func (s *Session) Reconnect(ctx context.Context) error {
	if !core.Conf.Collab.AutoReconnect {
		return ErrReconnectDisabled
	}
	if err := s.Close(); err != nil {
		s.opts.Logger.Warn("closing channel before reconnect", err)
	}
	return s.Start(ctx)
}

// publish broadcasts msg on a best-effort, at-most-once basis. Failures are
// logged and counted; local state is never rolled back, so the local user's
// own edit remains applied even if peers never see it.
func (s *Session) publish(ctx context.Context, msg Message) {
	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch == nil {
		return
	}
	if err := ch.Publish(ctx, msg); err != nil {
		atomic.AddUint64(&s.droppedPublishes, 1)
		s.opts.Logger.Warn("broadcast failed; peers may not see this change", err)
	}
}

// Relay applies a client-originated wire message locally and rebroadcasts it,
// keeping a single code path for local and remote state changes. Malformed
// input is logged and dropped.
func (s *Session) Relay(ctx context.Context, data []byte) {
	msg, err := DecodeMessage(data)
	if err != nil {
		s.opts.Logger.Warn("dropping relayed message", err)
		return
	}
	s.disp.apply(msg)
	s.publish(ctx, msg)
}

// Local actions. Each applies to the replica first, then broadcasts.

func (s *Session) CreateSlide(ctx context.Context, title, noteContent string) Slide {
	sl := s.deck.CreateSlide(title, noteContent)
	s.publish(ctx, &SlideCreatedMessage{
		UserID: s.opts.Identity.ID,
		Slide:  sl,
		Notice: s.opts.Identity.Name + " added a slide",
	})
	return sl
}

func (s *Session) MoveSlide(ctx context.Context, from, to int) {
	order := s.deck.MoveSlide(from, to)
	if order == nil {
		return
	}
	s.publish(ctx, &SlidesMoveMessage{
		UserID: s.opts.Identity.ID,
		Slides: order,
		Notice: s.opts.Identity.Name + " reordered the deck",
	})
}

func (s *Session) DeleteSlide(ctx context.Context, slideID string) {
	if !s.deck.DeleteSlide(slideID) {
		return
	}
	s.publish(ctx, &SlideDeletedMessage{
		UserID:  s.opts.Identity.ID,
		SlideID: slideID,
		Slides:  s.deck.Slides(),
		Notice:  s.opts.Identity.Name + " deleted a slide",
	})
}

// RenameSlide is local-only: continuous text edits are not synchronized in
// real time, an explicit scope boundary.
func (s *Session) RenameSlide(slideID, title string) {
	s.deck.RenameSlide(slideID, title)
}

// EditNote is local-only, same scope boundary as RenameSlide.
func (s *Session) EditNote(slideID, noteID, content string) {
	s.deck.EditNote(slideID, noteID, content)
}

func (s *Session) AddComment(ctx context.Context, slideID, text string) Comment {
	c := NewComment(slideID, text, s.opts.Identity)
	if !s.deck.AddComment(slideID, c) {
		return c
	}
	s.publish(ctx, &TextMessage{
		ID:        c.ID,
		Text:      c.Text,
		Sender:    c.Sender,
		SlideID:   c.SlideID,
		Timestamp: c.CreatedAt,
	})
	return c
}

// DeleteComment is local-only; comment deletion has no wire message.
func (s *Session) DeleteComment(slideID, commentID string) {
	s.deck.DeleteComment(slideID, commentID)
}

func (s *Session) AddReaction(ctx context.Context, slideID, commentID, emoji string) Reaction {
	r := NewReaction(emoji, s.opts.Identity)
	s.deck.AddReaction(commentID, slideID, r)
	s.publish(ctx, &ReactionMessage{
		ID:        r.ID,
		Emoji:     r.Emoji,
		Sender:    r.User,
		SlideID:   slideID,
		MessageID: commentID,
		Action:    ReactionAdd,
	})
	return r
}

func (s *Session) RemoveReaction(ctx context.Context, slideID, commentID, reactionID string) {
	s.deck.RemoveReaction(slideID, commentID, reactionID)
	s.publish(ctx, &ReactionMessage{
		Sender:     s.opts.Identity,
		SlideID:    slideID,
		MessageID:  commentID,
		Action:     ReactionRemove,
		ReactionID: reactionID,
	})
}

func (s *Session) SelectSlide(ctx context.Context, slideID string) {
	s.deck.Select(slideID)
	s.publish(ctx, &SlideSelectedMessage{
		UserID:  s.opts.Identity.ID,
		SlideID: slideID,
	})
}

func (s *Session) CreateAgendaItem(ctx context.Context, title string) {
	items := s.agenda.CreateItem(title)
	s.publish(ctx, &AgendaItemsMoveMessage{
		UserID: s.opts.Identity.ID,
		Items:  items,
		Notice: s.opts.Identity.Name + " added an agenda item",
	})
}

func (s *Session) MoveAgendaItem(ctx context.Context, from, to int) {
	items := s.agenda.MoveItem(from, to)
	if items == nil {
		return
	}
	s.publish(ctx, &AgendaItemsMoveMessage{
		UserID: s.opts.Identity.ID,
		Items:  items,
		Notice: s.opts.Identity.Name + " reordered the agenda",
	})
}

func (s *Session) DeleteAgendaItem(ctx context.Context, itemID string) {
	if !s.agenda.DeleteItem(itemID) {
		return
	}
	s.publish(ctx, &DeleteAgendaItemMessage{
		UserID: s.opts.Identity.ID,
		ItemID: itemID,
		Notice: s.opts.Identity.Name + " removed an agenda item",
	})
}

// RequestAgendaItems asks peers for the current agenda; any connected peer
// answers with a full agendaItems_move broadcast.
func (s *Session) RequestAgendaItems(ctx context.Context) {
	s.publish(ctx, &RequestAgendaItemsMessage{UserID: s.opts.Identity.ID})
}
