package collab

import (
	"sync/atomic"

	"github.com/trezcool/darasa/core"
)

// Notifier surfaces a transient, non-error notice on peer actions (join,
// move, delete). It is UI-facing only; nothing in the core reads it back.
type Notifier func(notice string)

// Dispatcher is the single message handler of a session. It classifies each
// inbound wire message by type and applies it to the deck store, the agenda
// store or the presence tracker — exactly one mutator per message and no
// business logic of its own, so the state-transition policy lives entirely in
// the stores and the local and remote application paths cannot diverge.
//
// Malformed messages are counted, logged and dropped; they never crash the
// dispatcher or leave partial state.
type Dispatcher struct {
	deck   *DeckStore
	agenda *AgendaStore
	roster *Tracker
	logger core.Logger
	notify Notifier

	// onAgendaRequest answers request_agendaItems; the session wires it to a
	// broadcast of the current agenda.
	onAgendaRequest func()
	// onPeerJoin fires when a previously unknown peer appears. The session
	// wires it to a re-announcement of the local user so late joiners learn
	// about participants who announced before they connected.
	onPeerJoin func()
	// tap observes every successfully applied remote message (used by the
	// websocket bridge to forward remote changes to its client).
	tap func(data []byte)

	dropped uint64
}

func NewDispatcher(deck *DeckStore, agenda *AgendaStore, roster *Tracker, logger core.Logger, notify Notifier) *Dispatcher {
	return &Dispatcher{
		deck:   deck,
		agenda: agenda,
		roster: roster,
		logger: logger,
		notify: notify,
	}
}

// Dropped reports how many inbound messages were discarded as malformed.
func (d *Dispatcher) Dropped() uint64 {
	return atomic.LoadUint64(&d.dropped)
}

// Dispatch decodes and applies one inbound wire message.
func (d *Dispatcher) Dispatch(data []byte) {
	msg, err := DecodeMessage(data)
	if err != nil {
		atomic.AddUint64(&d.dropped, 1)
		d.logger.Warn("dropping inbound message", err)
		return
	}
	d.apply(msg)
	if d.tap != nil {
		d.tap(data)
	}
}

// HandlePresence applies a transport-level presence signal. A transport leave
// without a corresponding application message still removes the roster entry.
func (d *Dispatcher) HandlePresence(evt PresenceEvent) {
	switch evt.Kind {
	case PresenceJoin:
		if d.roster.Join(evt.User) && d.onPeerJoin != nil {
			d.onPeerJoin()
		}
	case PresenceLeave:
		d.roster.Leave(evt.User.ID)
	default:
		d.logger.Warn("dropping presence event of unknown kind " + evt.Kind)
	}
}

func (d *Dispatcher) apply(msg Message) {
	switch m := msg.(type) {
	case *UserJoinMessage:
		if d.roster.Join(m.User) {
			d.showNotice(m.Notice)
			if d.onPeerJoin != nil {
				d.onPeerJoin()
			}
		}
	case *SlidesMoveMessage:
		d.deck.ReplaceSlides(m.Slides)
		d.showNotice(m.Notice)
	case *SlideCreatedMessage:
		d.deck.ApplySlideCreated(m.Slide)
		d.showNotice(m.Notice)
	case *SlideDeletedMessage:
		if m.SlideID != "" {
			d.deck.DeleteSlide(m.SlideID)
		} else {
			d.deck.ReplaceSlides(m.Slides)
		}
		d.showNotice(m.Notice)
	case *TextMessage:
		d.deck.AddComment(m.SlideID, Comment{
			ID:        m.ID,
			Text:      m.Text,
			Sender:    m.Sender,
			SlideID:   m.SlideID,
			CreatedAt: m.Timestamp,
			UpdatedAt: m.Timestamp,
		})
	case *ReactionMessage:
		switch m.Action {
		case ReactionAdd:
			d.deck.AddReaction(m.MessageID, m.SlideID, Reaction{ID: m.ID, Emoji: m.Emoji, User: m.Sender})
		case ReactionRemove:
			d.deck.RemoveReaction(m.SlideID, m.MessageID, m.ReactionID)
		}
	case *SlideSelectedMessage:
		d.roster.SetFocus(m.UserID, m.SlideID)
	case *AgendaItemsMoveMessage:
		d.agenda.ReplaceItems(m.Items)
		d.showNotice(m.Notice)
	case *DeleteAgendaItemMessage:
		d.agenda.DeleteItem(m.ItemID)
		d.showNotice(m.Notice)
	case *RequestAgendaItemsMessage:
		if d.onAgendaRequest != nil {
			d.onAgendaRequest()
		}
	}
}

func (d *Dispatcher) showNotice(notice string) {
	if d.notify != nil && notice != "" {
		d.notify(notice)
	}
}
