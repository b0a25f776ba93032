package collab

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	testutil "github.com/trezcool/darasa/tests"
)

type stubChannel struct {
	key         string
	failPublish bool
	published   []Message
	onMsg       MessageHandler
	onPres      PresenceHandler
	closes      int
}

var _ Channel = (*stubChannel)(nil)

func (c *stubChannel) Key() string { return c.key }

func (c *stubChannel) Publish(_ context.Context, msg Message) error {
	if c.failPublish {
		return &PublishError{Key: c.key, Err: errors.New("broker unreachable")}
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *stubChannel) OnMessage(h MessageHandler)   { c.onMsg = h }
func (c *stubChannel) OnPresence(h PresenceHandler) { c.onPres = h }
func (c *stubChannel) Close() error                 { c.closes++; return nil }

type stubConnector struct {
	ch  *stubChannel
	err error
}

var _ Connector = (*stubConnector)(nil)

func (c *stubConnector) Connect(_ context.Context, key string, _ Identity) (Channel, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.ch.key = key
	return c.ch, nil
}

func newTestSession(t *testing.T, conn Connector) *Session {
	return NewSession(Options{
		Connector: conn,
		Logger:    testutil.NewLogger(t),
		Identity:  Identity{ID: "me", Name: "Moi", Email: "moi@example.com"},
		Key:       ChannelKey(KindLesson, "les-1"),
	})
}

func Test_Session_startAnnouncesJoin(t *testing.T) {
	ch := &stubChannel{}
	s := newTestSession(t, &stubConnector{ch: ch})

	assert.NoError(t, s.Start(context.Background()))

	assert.Equal(t, StateConnected, s.State())
	assert.NotNil(t, ch.onMsg)
	assert.NotNil(t, ch.onPres)
	if assert.Len(t, ch.published, 1) {
		join := ch.published[0].(*UserJoinMessage)
		assert.Equal(t, "me", join.UserID)
		assert.Equal(t, "Moi", join.User.Name)
	}
	assert.Equal(t, 1, s.Roster().Len(), "local user is on their own roster")

	// starting a connected session is a no-op
	assert.NoError(t, s.Start(context.Background()))
	assert.Len(t, ch.published, 1)
}

func Test_Session_connectFailureIsLocalOnly(t *testing.T) {
	s := newTestSession(t, &stubConnector{err: errors.New("handshake timeout")})

	err := s.Start(context.Background())
	if assert.Error(t, err) {
		assert.IsType(t, &ConnectionError{}, err)
	}
	assert.Equal(t, StateDisconnected, s.State())

	// the session remains usable in local-only mode
	sl := s.CreateSlide(context.Background(), "offline", "still works")
	assert.Equal(t, []string{sl.ID}, slideIDs(s.Deck().Slides()))
}

func Test_Session_localFirstMutation(t *testing.T) {
	ch := &stubChannel{failPublish: true}
	s := newTestSession(t, &stubConnector{ch: ch})
	assert.NoError(t, s.Start(context.Background()))

	sl := s.CreateSlide(context.Background(), "t", "c")

	// the local edit survives the failed broadcast; no rollback
	assert.Equal(t, []string{sl.ID}, slideIDs(s.Deck().Slides()))
	assert.Equal(t, uint64(2), s.Stats().DroppedPublishes, "join announce + slide create")
}

func Test_Session_localActionsBroadcast(t *testing.T) {
	ch := &stubChannel{}
	s := newTestSession(t, &stubConnector{ch: ch})
	assert.NoError(t, s.Start(context.Background()))
	ctx := context.Background()

	sl := s.CreateSlide(ctx, "one", "")
	s.CreateSlide(ctx, "two", "")
	s.MoveSlide(ctx, 0, 1)
	s.MoveSlide(ctx, 7, 0) // out of range: no broadcast
	c := s.AddComment(ctx, sl.ID, "hello")
	r := s.AddReaction(ctx, sl.ID, c.ID, "👍")
	s.RemoveReaction(ctx, sl.ID, c.ID, r.ID)
	s.SelectSlide(ctx, sl.ID)
	s.DeleteSlide(ctx, sl.ID)
	s.DeleteSlide(ctx, sl.ID) // replay: no broadcast
	s.RenameSlide(sl.ID, "local only")

	var types []string
	for _, msg := range ch.published {
		types = append(types, msg.Type())
	}
	assert.Equal(t, []string{
		TypeUserJoin,
		TypeSlideCreated,
		TypeSlideCreated,
		TypeSlidesMove,
		TypeText,
		TypeReaction,
		TypeReaction,
		TypeSlideSelected,
		TypeSlideDeleted,
	}, types)
}

func Test_Session_agendaActions(t *testing.T) {
	ch := &stubChannel{}
	s := newTestSession(t, &stubConnector{ch: ch})
	assert.NoError(t, s.Start(context.Background()))
	ctx := context.Background()

	s.CreateAgendaItem(ctx, "intros")
	s.CreateAgendaItem(ctx, "demo")
	s.MoveAgendaItem(ctx, 0, 1)
	items := s.Agenda().Items()
	s.DeleteAgendaItem(ctx, items[0].ID)
	s.RequestAgendaItems(ctx)

	var types []string
	for _, msg := range ch.published[1:] { // skip the join announce
		types = append(types, msg.Type())
	}
	assert.Equal(t, []string{
		TypeAgendaItemsMove,
		TypeAgendaItemsMove,
		TypeAgendaItemsMove,
		TypeDeleteAgendaItem,
		TypeRequestAgendaItems,
	}, types)
	assert.Equal(t, "intros", s.Agenda().Items()[0].Title)
}

func Test_Session_answersAgendaRequests(t *testing.T) {
	ch := &stubChannel{}
	s := newTestSession(t, &stubConnector{ch: ch})
	assert.NoError(t, s.Start(context.Background()))
	s.Agenda().Load([]AgendaItem{{ID: "a1", Title: "intros"}})

	data, err := EncodeMessage(&RequestAgendaItemsMessage{UserID: "u2"})
	assert.NoError(t, err)
	ch.onMsg(data)

	last := ch.published[len(ch.published)-1]
	if move, ok := last.(*AgendaItemsMoveMessage); assert.True(t, ok) {
		assert.Len(t, move.Items, 1)
	}
}

func Test_Session_reannouncesToLateJoiners(t *testing.T) {
	ch := &stubChannel{}
	s := newTestSession(t, &stubConnector{ch: ch})
	assert.NoError(t, s.Start(context.Background()))

	data, err := EncodeMessage(&UserJoinMessage{UserID: "u2", User: Identity{ID: "u2", Name: "Ben"}})
	assert.NoError(t, err)
	ch.onMsg(data)
	ch.onMsg(data) // duplicate join must not trigger another round

	var joins []*UserJoinMessage
	for _, msg := range ch.published {
		if join, ok := msg.(*UserJoinMessage); ok {
			joins = append(joins, join)
		}
	}
	if assert.Len(t, joins, 2, "initial announce + one re-announcement") {
		assert.NotEmpty(t, joins[0].Notice)
		assert.Empty(t, joins[1].Notice, "re-announcements are notice-free")
	}
	assert.Equal(t, 2, s.Roster().Len())
}

func Test_Session_teardown(t *testing.T) {
	ch := &stubChannel{}
	s := newTestSession(t, &stubConnector{ch: ch})
	assert.NoError(t, s.Start(context.Background()))

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close()) // safe to call multiple times

	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, 1, ch.closes)
	// handlers are detached before the channel closes: nothing can fire
	// against a torn-down replica
	assert.Nil(t, ch.onMsg)
	assert.Nil(t, ch.onPres)

	// publishes after teardown are silently skipped
	s.CreateSlide(context.Background(), "late", "")
	assert.Len(t, ch.published, 1, "join announce only, nothing after close")
}

func Test_Session_relay(t *testing.T) {
	ch := &stubChannel{}
	s := newTestSession(t, &stubConnector{ch: ch})
	assert.NoError(t, s.Start(context.Background()))
	s.Deck().Load([]Slide{slide("A", "")})

	data, err := EncodeMessage(&TextMessage{ID: "c1", Text: "hi", Sender: Identity{ID: "me"}, SlideID: "A"})
	assert.NoError(t, err)
	s.Relay(context.Background(), data)

	assert.Len(t, s.Deck().Slides()[0].Comments, 1, "applied locally")
	assert.Equal(t, TypeText, ch.published[len(ch.published)-1].Type(), "and rebroadcast")

	// malformed frames are dropped, not published
	before := len(ch.published)
	s.Relay(context.Background(), []byte("lol nope"))
	assert.Len(t, ch.published, before)
}

func Test_Session_reconnectDisabled(t *testing.T) {
	prev := core.Conf.Collab.AutoReconnect
	core.Conf.Collab.AutoReconnect = false
	defer func() { core.Conf.Collab.AutoReconnect = prev }()

	s := newTestSession(t, &stubConnector{ch: &stubChannel{}})
	assert.NoError(t, s.Start(context.Background()))

	assert.Equal(t, ErrReconnectDisabled, s.Reconnect(context.Background()))
	assert.Equal(t, StateConnected, s.State())
}

func Test_Session_reconnectBehindFlag(t *testing.T) {
	prev := core.Conf.Collab.AutoReconnect
	core.Conf.Collab.AutoReconnect = true
	defer func() { core.Conf.Collab.AutoReconnect = prev }()

	ch := &stubChannel{}
	s := newTestSession(t, &stubConnector{ch: ch})
	assert.NoError(t, s.Start(context.Background()))

	assert.NoError(t, s.Reconnect(context.Background()))

	assert.Equal(t, StateConnected, s.State())
	assert.Equal(t, 1, ch.closes)
	// a fresh join announcement went out
	assert.Equal(t, TypeUserJoin, ch.published[len(ch.published)-1].Type())
}

func Test_ChannelKey(t *testing.T) {
	assert.Equal(t, "collab.lesson.les-1", ChannelKey(KindLesson, "les-1"))
	assert.Equal(t, "collab.meeting.m-9", ChannelKey(KindMeeting, "m-9"))
}
