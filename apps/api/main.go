package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/kozihq/kozi/api/echo"
	"github.com/kozihq/kozi/core"
	"github.com/kozihq/kozi/core/access"
	"github.com/kozihq/kozi/core/eventlog"
	"github.com/kozihq/kozi/core/roster"
	"github.com/kozihq/kozi/core/session"
	"github.com/kozihq/kozi/core/student"
	"github.com/kozihq/kozi/core/submission"
	emailsvc "github.com/kozihq/kozi/services/email"
	logsvc "github.com/kozihq/kozi/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	rosters := roster.NewStore(conf.RosterPath, conf.RosterTTL)
	events := eventlog.NewLog(conf.DataDir)
	sessions := session.NewMemStore(conf.SessionTTL)
	gate := access.NewGate(conf, rosters)
	registry := student.NewRegistry(conf, events, logger, validate)
	submissions := submission.NewStore(conf, events, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// load the roster early so a bad file fails loudly at startup,
	// not on the first student login
	if _, err := rosters.Roster(); err != nil {
		logger.Fatal(fmt.Sprintf("loading roster: %v", err), err)
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			MailSvc:     mailSvc,
			Sessions:    sessions,
			Rosters:     rosters,
			Gate:        gate,
			Registry:    registry,
			Submissions: submissions,
			Events:      events,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	return translator
}
