package main

import (
	"log"
	"os"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/collab"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	transportsvc "github.com/trezcool/darasa/services/transport"
	"github.com/trezcool/darasa/storage/database"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, core.Conf.AppName+" : ", log.LstdFlags|log.Lshortfile)

	// set up services
	var logger core.Logger
	var mailSvc core.EmailService
	if core.Conf.Debug {
		logger = logsvc.NewConsoleLogger(std)
		mailSvc = emailsvc.NewConsoleService()
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	// set up the pub/sub backend & deck storage
	var connector collab.Connector
	var deckRepo collab.DeckRepository
	if core.Conf.Debug {
		connector = transportsvc.NewMemBroker()

		db, err := dummydb.Open()
		errAndDie(err)
		deckRepo = dummydb.NewDeckRepository(db)
	} else {
		nats, err := transportsvc.NewNATSConnector(core.Conf, logger)
		errAndDie(err)
		defer nats.Close()
		connector = nats

		db, err := database.Open(core.Conf)
		errAndDie(err)
		defer func() { _ = db.Close() }()
		errAndDie(database.Ping(db))
		deckRepo, err = sqlxrepos.NewDeckRepository(db)
		errAndDie(err)
	}

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Address:   core.Conf.Server.Host + ":" + core.Conf.Server.Port,
		Logger:    logger,
		Connector: connector,
		DeckRepo:  deckRepo,
		InviteSvc: collab.NewInviteService(mailSvc),
	})
	app.Start()
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
