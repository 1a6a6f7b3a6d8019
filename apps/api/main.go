package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"

	echoapi "github.com/trezcool/tutortrack/apps/api/echo"
	"github.com/trezcool/tutortrack/assets"
	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/flow"
	"github.com/trezcool/tutortrack/core/user"
	emailsvc "github.com/trezcool/tutortrack/services/email"
	eventsvc "github.com/trezcool/tutortrack/services/events"
	exportsvc "github.com/trezcool/tutortrack/services/export"
	llmsvc "github.com/trezcool/tutortrack/services/llm"
	logsvc "github.com/trezcool/tutortrack/services/logger"
	"github.com/trezcool/tutortrack/storage/database"
	sqlxrepos "github.com/trezcool/tutortrack/storage/database/sqlx"
	mongodocs "github.com/trezcool/tutortrack/storage/documents/mongo"
	inmemdb "github.com/trezcool/tutortrack/storage/inmem"
)

type stores struct {
	accounts user.AccountRepository
	sessions user.SessionRepository
	roles    user.RoleStore
	close    func()
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("building zap logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl, "API", conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Sync()

	dbLogger := logsvc.NewRollbarLogger(zl, "DB", conf)

	// set up storage
	st, err := setUpStores(ctx, conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer st.close()

	// set up services
	mailSvc := emailsvc.New(conf, logger)
	events, err := eventsvc.New(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up events: %v", err), err)
	}
	defer func() {
		if err = events.Close(); err != nil {
			logger.Error("closing events publisher", err)
		}
	}()

	var verifier user.FederatedVerifier
	if conf.Auth.GoogleClientID != "" {
		verifier = user.NewGoogleVerifier(conf.Auth.GoogleClientID)
	}
	usrSvc := user.NewService(user.Deps{
		Accounts: st.accounts,
		Sessions: st.sessions,
		Roles:    st.roles,
		Mail:     mailSvc,
		Events:   events,
		Verifier: verifier,
		Logger:   logger,
		Conf:     conf,
	})

	var gen flow.Generator
	if gemini, err := llmsvc.NewGemini(ctx, conf, logger); err == nil {
		gen = gemini
	} else if errors.Cause(err) == llmsvc.ErrNotConfigured {
		logger.Warn("LLM API key not set: flows are disabled")
		gen = llmsvc.Unconfigured{}
	} else {
		logger.Fatal(fmt.Sprintf("setting up LLM client: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	flow.InitValidators(validate, translator)

	if err = core.ParseEmailTemplates(assets.EmailTemplates, assets.EmailTemplatesDir, conf); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	catalog, err := flow.LoadCatalog(assets.Prompts, conf.AppName)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading prompt catalog: %v", err), err)
	}
	flowSvc, err := flow.NewService(catalog, gen, validate, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up flows: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			FlowSvc:    flowSvc,
			Exporter:   exportsvc.NewExporter(conf.AppName),
			Mail:       mailSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpStores picks Postgres for accounts & sessions and Mongo for role documents when they are configured,
// falling back to the in-memory stores otherwise.
func setUpStores(ctx context.Context, conf *core.Config, logger core.Logger) (*stores, error) {
	mem := inmemdb.Open()
	st := &stores{
		accounts: inmemdb.NewAccountRepository(mem),
		sessions: inmemdb.NewSessionRepository(mem),
		roles:    inmemdb.NewRoleStore(mem),
	}
	var closers []func()
	st.close = func() {
		for _, c := range closers {
			c()
		}
	}

	if conf.Database.Enabled() {
		db, err := setUpDB(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "setting up database")
		}
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		})
		st.accounts = sqlxrepos.NewAccountRepository(db)
		st.sessions = sqlxrepos.NewSessionRepository(db)
	} else {
		logger.Warn("database not configured: accounts & sessions are kept in memory")
	}

	if conf.Mongo.URI != "" {
		client, err := mongodocs.Connect(ctx, conf)
		if err != nil {
			st.close()
			return nil, errors.Wrap(err, "connecting to mongo")
		}
		closers = append(closers, func() { disconnect(client, logger) })
		st.roles = mongodocs.NewRoleStore(client, conf.Mongo.Database)
	} else {
		logger.Warn("mongo not configured: role documents are kept in memory")
	}
	return st, nil
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func disconnect(client *mongo.Client, logger core.Logger) {
	if err := client.Disconnect(context.Background()); err != nil {
		logger.Error("disconnecting from mongo", err)
	}
}
