package echoapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/collab"
)

type collabApi struct {
	connector collab.Connector
	deckRepo  collab.DeckRepository
	inviteSvc *collab.InviteService
	logger    core.Logger
	upgrader  websocket.Upgrader
}

func registerCollabAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *collabApi) {
	lg := g.Group("/lessons/:id", jwt)
	lg.GET("/collab", api.connect)
	lg.POST("/invite", api.invite)
}

// connect upgrades the request to a websocket and bridges the client into the
// lesson's collaboration channel: inbound frames are wire messages relayed
// through the session (applied locally, then broadcast); remote messages and
// transient notices are forwarded back over the socket. The deck is loaded on
// join and saved on disconnect; the session itself never persists.
func (api *collabApi) connect(ctx echo.Context) error {
	lessonID := ctx.Param("id")
	identity, err := contextIdentity(ctx)
	if err != nil {
		return err
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading to websocket")
	}
	defer func() { _ = conn.Close() }()

	// gorilla/websocket allows a single concurrent writer
	var writeMu sync.Mutex
	write := func(data []byte) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			api.logger.Debug("writing websocket frame", err)
		}
	}

	reqCtx := ctx.Request().Context()
	sess := collab.NewSession(collab.Options{
		Connector: api.connector,
		Logger:    api.logger,
		Identity:  identity,
		Key:       collab.ChannelKey(collab.KindLesson, lessonID),
		Notify: func(notice string) {
			frame, err := json.Marshal(echo.Map{"type": "notice", "message": notice})
			if err != nil {
				return
			}
			write(frame)
		},
		OnRemote: func(data []byte) { write(data) },
	})
	defer func() { _ = sess.Close() }()

	if err := sess.Start(reqCtx); err != nil {
		// non-fatal: the session stays usable in local-only mode
		api.logger.Warn("channel join failed; continuing in local-only mode", err, identity)
	}

	// initial full-state load
	slides, err := api.deckRepo.FetchDeck(reqCtx, lessonID)
	switch errors.Cause(err) {
	case nil:
		sess.Deck().Load(slides)
	case collab.ErrDeckNotFound:
		// fresh lesson, empty deck
	default:
		api.logger.Error("fetching deck for lesson "+lessonID, err, identity)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		sess.Relay(reqCtx, data)
	}

	if err := api.deckRepo.SaveDeck(reqCtx, lessonID, sess.Deck().Slides()); err != nil {
		api.logger.Error("saving deck for lesson "+lessonID, err, identity)
	}
	return nil
}

func (api *collabApi) invite(ctx echo.Context) error {
	identity, err := contextIdentity(ctx)
	if err != nil {
		return err
	}

	var inv collab.Invite
	if err := ctx.Bind(&inv); err != nil {
		return err
	}
	inv.LessonID = ctx.Param("id")
	inv.From = identity

	if err := api.inviteSvc.Send(inv); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusAccepted)
}
