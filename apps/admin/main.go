package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/user"
	emailsvc "github.com/trezcool/tutortrack/services/email"
	logsvc "github.com/trezcool/tutortrack/services/logger"
	"github.com/trezcool/tutortrack/storage/database"
	sqlxrepos "github.com/trezcool/tutortrack/storage/database/sqlx"
	mongodocs "github.com/trezcool/tutortrack/storage/documents/mongo"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Printf("building zap logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl, "ADMIN", conf)
	defer logger.Sync()

	os.Exit(run(conf, logger))
}

func run(conf *core.Config, logger core.Logger) int {
	ctx := context.Background()
	if !conf.Database.Enabled() || conf.Mongo.URI == "" {
		logger.Error("admin commands need both the database and mongo to be configured")
		return 1
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("opening database: %v", err), err)
		return 1
	}
	defer func() { _ = db.Close() }()

	client, err := mongodocs.Connect(ctx, conf)
	if err != nil {
		logger.Error(fmt.Sprintf("connecting to mongo: %v", err), err)
		return 1
	}
	defer func() { _ = client.Disconnect(ctx) }()

	accounts := sqlxrepos.NewAccountRepository(db)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		accounts: accounts,
		usrSvc: user.NewService(user.Deps{
			Accounts: accounts,
			Sessions: sqlxrepos.NewSessionRepository(db),
			Roles:    mongodocs.NewRoleStore(client, conf.Mongo.Database),
			Mail:     emailsvc.NewConsoleService(conf, logger),
			Logger:   logger,
			Conf:     conf,
		}),
		out: os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		return 1
	}
	return 0
}
