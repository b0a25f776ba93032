package collab

import (
	"encoding/json"
	"time"

	"github.com/trezcool/darasa/core"
)

// Wire message types. The `type` field of every wire message holds one of
// these; anything else is rejected at the decode boundary.
const (
	TypeUserJoin           = "user_join"
	TypeSlidesMove         = "slides_move"
	TypeSlideCreated       = "slide_created"
	TypeSlideDeleted       = "slide_deleted"
	TypeText               = "text"
	TypeReaction           = "reaction"
	TypeSlideSelected      = "slide_selected"
	TypeAgendaItemsMove    = "agendaItems_move"
	TypeDeleteAgendaItem   = "delete_agendaItem"
	TypeRequestAgendaItems = "request_agendaItems"
)

// Reaction actions
const (
	ReactionAdd    = "add"
	ReactionRemove = "remove"
)

type (
	// Message is one member of the tagged union carried on a channel.
	Message interface {
		Type() string
	}

	UserJoinMessage struct {
		UserID string   `json:"userId" validate:"required"`
		User   Identity `json:"user"`
		Notice string   `json:"message"`
	}

	// SlidesMoveMessage carries the full resulting slide order, not a delta.
	// The transport gives no ordering guarantee between clients, so a
	// positional delta applied against a divergent local array produces a
	// different result on different clients; the full order is idempotent and
	// order-tolerant at the cost of being last-writer-wins.
	SlidesMoveMessage struct {
		UserID string  `json:"userId" validate:"required"`
		Slides []Slide `json:"slides"`
		Notice string  `json:"message"`
	}

	SlideCreatedMessage struct {
		UserID string `json:"userId" validate:"required"`
		Slide  Slide  `json:"slide"`
		Notice string `json:"message"`
	}

	// SlideDeletedMessage carries either the deleted slide id or the
	// resulting array; both shapes appear on the wire.
	SlideDeletedMessage struct {
		UserID  string  `json:"userId" validate:"required"`
		SlideID string  `json:"slideId,omitempty"`
		Slides  []Slide `json:"slides,omitempty"`
		Notice  string  `json:"message"`
	}

	TextMessage struct {
		ID        string    `json:"id" validate:"required"`
		Text      string    `json:"text"`
		Sender    Identity  `json:"sender"`
		SlideID   string    `json:"slide" validate:"required"`
		Timestamp time.Time `json:"timestamp"`
	}

	ReactionMessage struct {
		ID         string   `json:"id"`
		Emoji      string   `json:"emoji"`
		Sender     Identity `json:"sender"`
		SlideID    string   `json:"slide" validate:"required"`
		MessageID  string   `json:"messageId" validate:"required"`
		Action     string   `json:"action" validate:"required,oneof=add remove"`
		ReactionID string   `json:"reactionId,omitempty"` // set for remove
	}

	// SlideSelectedMessage is advisory; it only moves the sender's remote
	// cursor on peers.
	SlideSelectedMessage struct {
		UserID  string `json:"userId" validate:"required"`
		SlideID string `json:"slideId"`
	}

	AgendaItemsMoveMessage struct {
		UserID string       `json:"userId" validate:"required"`
		Items  []AgendaItem `json:"agendaItems"`
		Notice string       `json:"message"`
	}

	DeleteAgendaItemMessage struct {
		UserID string `json:"userId" validate:"required"`
		ItemID string `json:"agendaItemId" validate:"required"`
		Notice string `json:"message"`
	}

	RequestAgendaItemsMessage struct {
		UserID string `json:"userId" validate:"required"`
	}
)

func (UserJoinMessage) Type() string           { return TypeUserJoin }
func (SlidesMoveMessage) Type() string         { return TypeSlidesMove }
func (SlideCreatedMessage) Type() string       { return TypeSlideCreated }
func (SlideDeletedMessage) Type() string       { return TypeSlideDeleted }
func (TextMessage) Type() string               { return TypeText }
func (ReactionMessage) Type() string           { return TypeReaction }
func (SlideSelectedMessage) Type() string      { return TypeSlideSelected }
func (AgendaItemsMoveMessage) Type() string    { return TypeAgendaItemsMove }
func (DeleteAgendaItemMessage) Type() string   { return TypeDeleteAgendaItem }
func (RequestAgendaItemsMessage) Type() string { return TypeRequestAgendaItems }

// EncodeMessage serializes msg to its wire form, with the discriminating
// `type` field spliced into the payload object.
func EncodeMessage(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, err
	}
	obj["type"] = msg.Type()
	return json.Marshal(obj)
}

// DecodeMessage parses and validates a wire message. Bad JSON, an unknown
// `type` or a payload failing validation all yield a *MalformedMessageError;
// callers log and drop, they never propagate.
func DecodeMessage(data []byte) (Message, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &MalformedMessageError{Reason: "unparseable message", Err: err}
	}

	var msg Message
	switch env.Type {
	case TypeUserJoin:
		msg = new(UserJoinMessage)
	case TypeSlidesMove:
		msg = new(SlidesMoveMessage)
	case TypeSlideCreated:
		msg = new(SlideCreatedMessage)
	case TypeSlideDeleted:
		msg = new(SlideDeletedMessage)
	case TypeText:
		msg = new(TextMessage)
	case TypeReaction:
		msg = new(ReactionMessage)
	case TypeSlideSelected:
		msg = new(SlideSelectedMessage)
	case TypeAgendaItemsMove:
		msg = new(AgendaItemsMoveMessage)
	case TypeDeleteAgendaItem:
		msg = new(DeleteAgendaItemMessage)
	case TypeRequestAgendaItems:
		msg = new(RequestAgendaItemsMessage)
	default:
		return nil, &MalformedMessageError{Reason: "unknown message type " + env.Type}
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, &MalformedMessageError{Reason: "unparseable " + env.Type + " payload", Err: err}
	}
	if err := core.Validate.Struct(msg); err != nil {
		return nil, &MalformedMessageError{Reason: "invalid " + env.Type + " payload", Err: err}
	}
	return msg, nil
}
